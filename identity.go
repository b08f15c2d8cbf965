package sessionx

import "errors"

// UnknownNickname is used when no claim yields a display name.
const UnknownNickname = "Unknown User"

// nicknameClaims lists the claims consulted for the display name, first
// non-empty wins.
var nicknameClaims = []string{ClaimNickname, ClaimUsername, ClaimSubject, ClaimName, ClaimUser}

// Identity is the normalized user record derived from a token. Nickname is
// always set; the other fields are nil when the token does not carry them.
type Identity struct {
	Nickname string  `json:"nickname"`
	Phone    *string `json:"phone,omitempty"`
	UserID   *int64  `json:"userId,omitempty"`
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Clone returns a deep copy of the identity.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := &Identity{Nickname: i.Nickname}
	if i.Phone != nil {
		out.Phone = ptr(*i.Phone)
	}
	if i.UserID != nil {
		out.UserID = ptr(*i.UserID)
	}
	if i.Username != nil {
		out.Username = ptr(*i.Username)
	}
	if i.Email != nil {
		out.Email = ptr(*i.Email)
	}
	return out
}

// Extract decodes raw and maps its claims to an Identity. It returns nil
// when raw cannot be decoded. Expiry is not checked here.
func Extract(raw string) *Identity {
	id, err := ExtractE(raw)
	if err != nil {
		return nil
	}
	return id
}

// ExtractE is Extract with the failure reason.
func ExtractE(raw string) (*Identity, error) {
	claims, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return IdentityFromClaims(claims)
}

// IdentityFromClaims applies the nickname fallback chain and copies the
// optional fields that are present.
func IdentityFromClaims(claims ClaimSet) (*Identity, error) {
	if claims == nil {
		return nil, newError(ErrCodeMissingIdentity, errors.New("no claims"))
	}
	id := &Identity{Nickname: UnknownNickname}
	for _, name := range nicknameClaims {
		if s, ok := claims.String(name); ok && s != "" {
			id.Nickname = s
			break
		}
	}
	if s, ok := claims.String(ClaimPhone); ok {
		id.Phone = ptr(s)
	}
	if n, ok := claims.Int64(ClaimUserID); ok {
		id.UserID = ptr(n)
	}
	if s, ok := claims.String(ClaimUsername); ok {
		id.Username = ptr(s)
	}
	if s, ok := claims.String(ClaimEmail); ok {
		id.Email = ptr(s)
	}
	return id, nil
}

func ptr[T any](v T) *T {
	return &v
}
