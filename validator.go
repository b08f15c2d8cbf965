package sessionx

import (
	"fmt"
	"time"
)

// DefaultExpiringSoonThreshold is the lead time used by IsExpiringSoon when
// callers pass a non-positive threshold.
const DefaultExpiringSoonThreshold = 5 * time.Minute

// Validator decides whether a raw token is well formed and unexpired.
//
// "Valid" never means "issued by a trusted authority": the payload is decoded
// without signature verification because the client holds no key. A forged
// token with a future exp is accepted.
type Validator struct {
	clock Clock
}

// NewValidator builds a validator reading time from clock. A nil clock means
// the system clock.
func NewValidator(clock Clock) *Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Validator{clock: clock}
}

// Validate decodes raw and checks its expiry, returning the claims on success.
func (v *Validator) Validate(raw string) (ClaimSet, error) {
	claims, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	exp, ok, err := claims.NumericDate(ClaimExpiresAt)
	if err != nil {
		return nil, newError(ErrCodeDecode, fmt.Errorf("exp claim: %w", err))
	}
	if ok && v.now() >= exp {
		return nil, newError(ErrCodeExpired, fmt.Errorf("expired at %s", secondsToTime(exp).UTC().Format(time.RFC3339)))
	}
	return claims, nil
}

// IsValid reports whether raw decodes and is not past its exp claim. Tokens
// without exp never expire.
func (v *Validator) IsValid(raw string) bool {
	_, err := v.Validate(raw)
	return err == nil
}

// IsExpiringSoon reports whether raw carries an exp claim that is at most
// threshold away (or already past).
func (v *Validator) IsExpiringSoon(raw string, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultExpiringSoonThreshold
	}
	claims, err := Decode(raw)
	if err != nil {
		return false
	}
	exp, ok, err := claims.NumericDate(ClaimExpiresAt)
	if err != nil || !ok {
		return false
	}
	return exp-v.now() <= threshold.Seconds()
}

// now returns the current time in fractional seconds since the epoch.
func (v *Validator) now() float64 {
	t := v.clock.Now()
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}
