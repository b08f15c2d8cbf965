package sessionx

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Well-known claim names read from token payloads.
const (
	ClaimExpiresAt = "exp"
	ClaimIssuedAt  = "iat"
	ClaimNotBefore = "nbf"
	ClaimSubject   = "sub"
	ClaimIssuer    = "iss"
	ClaimAudience  = "aud"
	ClaimJWTID     = "jti"

	ClaimNickname = "nickname"
	ClaimUsername = "username"
	ClaimName     = "name"
	ClaimUser     = "user"
	ClaimPhone    = "phone"
	ClaimUserID   = "userId"
	ClaimEmail    = "email"
)

// ClaimSet is the loosely typed claim map decoded from a token payload.
// Numbers are kept as json.Number so that large identifiers and phone
// numbers survive without float rounding.
type ClaimSet map[string]any

// Has reports whether the claim is present with a non-null value.
func (c ClaimSet) Has(name string) bool {
	v, ok := c[name]
	return ok && v != nil
}

// String returns the claim coerced to a string. Objects and arrays are not
// coerced.
func (c ClaimSet) String(name string) (string, bool) {
	v, ok := c[name]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Int64 returns the claim coerced to an integer. Numeric strings are accepted;
// fractional values are truncated.
func (c ClaimSet) Int64(name string) (int64, bool) {
	v, ok := c[name]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		return numberToInt64(t.String())
	case float64:
		return floatToInt64(t)
	case string:
		return numberToInt64(strings.TrimSpace(t))
	default:
		return 0, false
	}
}

// maxDateSeconds bounds the seconds converted to time.Time. Later dates are
// reported as 9999-12-31T23:59:59Z.
const maxDateSeconds = 253402300799

// NumericDate returns a NumericDate claim as float seconds since the epoch.
// ok is false when the claim is absent or null; err is set when it is
// present but not a number.
func (c ClaimSet) NumericDate(name string) (secs float64, ok bool, err error) {
	v, present := c[name]
	if !present || v == nil {
		return 0, false, nil
	}
	// golang-jwt only classifies the value; its time conversion overflows
	// for large dates.
	if _, err := (jwt.MapClaims{ClaimExpiresAt: v}).GetExpirationTime(); err != nil {
		return 0, false, err
	}
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil && !math.IsInf(f, 0) {
			return 0, false, err
		}
		secs = f
	case float64:
		secs = t
	default:
		return 0, false, jwt.ErrInvalidType
	}
	if math.IsNaN(secs) {
		return 0, false, jwt.ErrInvalidType
	}
	return secs, true, nil
}

// Expiry returns the exp claim. ok is false when the claim is absent or
// null; err is set when it is present but not a numeric date.
func (c ClaimSet) Expiry() (exp time.Time, ok bool, err error) {
	secs, ok, err := c.NumericDate(ClaimExpiresAt)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return secondsToTime(secs), true, nil
}

func (c ClaimSet) date(name string) time.Time {
	secs, ok, err := c.NumericDate(name)
	if err != nil || !ok {
		return time.Time{}
	}
	return secondsToTime(secs).UTC()
}

func secondsToTime(secs float64) time.Time {
	if secs >= maxDateSeconds {
		return time.Unix(maxDateSeconds, 0)
	}
	if secs <= -maxDateSeconds {
		return time.Unix(-maxDateSeconds, 0)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9))
}

// Registered returns the normalized view of the claim set.
func (c ClaimSet) Registered() *Claims {
	mc := jwt.MapClaims(c)
	claims := &Claims{}
	claims.Subject, _ = mc.GetSubject()
	claims.Issuer, _ = mc.GetIssuer()
	if aud, err := mc.GetAudience(); err == nil && len(aud) > 0 {
		claims.Audience = append([]string(nil), aud...)
	}
	claims.ExpiresAt = c.date(ClaimExpiresAt)
	claims.NotBefore = c.date(ClaimNotBefore)
	claims.IssuedAt = c.date(ClaimIssuedAt)
	claims.JWTID, _ = c.String(ClaimJWTID)
	if email, ok := c.String(ClaimEmail); ok {
		claims.Email = strings.ToLower(email)
	}

	custom := make(map[string]any, len(c))
	for k, v := range c {
		switch k {
		case ClaimExpiresAt, ClaimIssuedAt, ClaimNotBefore, ClaimSubject, ClaimIssuer, ClaimAudience, ClaimJWTID:
			continue
		}
		custom[k] = v
	}
	if len(custom) > 0 {
		claims.CustomClaims = custom
	}
	return claims
}

// Claims represents the registered claims of a token plus everything else.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string

	Email        string
	CustomClaims map[string]any
}

func numberToInt64(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt64(f)
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
