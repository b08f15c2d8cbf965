package sessionx

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DevClaims holds attributes used when minting tokens for local development.
// The session layer never checks signatures, so any key works.
type DevClaims struct {
	Subject  string
	Nickname string
	Username string
	Email    string
	Phone    string
	UserID   int64
	TTL      time.Duration
	Extra    map[string]any
}

// DefaultDevClaims returns a baseline identity suitable for local development.
func DefaultDevClaims() DevClaims {
	return DevClaims{
		Subject:  "dev-user",
		Nickname: "Dev User",
		Username: "dev",
		TTL:      time.Hour,
	}
}

// MintDevToken builds an HS256-signed token carrying d. now anchors iat and
// exp; a zero TTL produces a token without exp.
func MintDevToken(d DevClaims, key []byte, now time.Time) (string, error) {
	if len(key) == 0 {
		return "", errors.New("signing key is required")
	}
	builder := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		IssuedAt(now)
	if d.Subject != "" {
		builder = builder.Subject(d.Subject)
	}
	if d.TTL > 0 {
		builder = builder.Expiration(now.Add(d.TTL))
	}
	optional := map[string]string{
		ClaimNickname: d.Nickname,
		ClaimUsername: d.Username,
		ClaimEmail:    d.Email,
		ClaimPhone:    d.Phone,
	}
	for name, value := range optional {
		if value != "" {
			builder = builder.Claim(name, value)
		}
	}
	if d.UserID != 0 {
		builder = builder.Claim(ClaimUserID, d.UserID)
	}
	for name, value := range d.Extra {
		builder = builder.Claim(name, value)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}
