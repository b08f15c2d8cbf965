package sessionx

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned by BearerTokenSource when the cookie tier holds
// no usable token.
var ErrNoSession = errors.New("no authenticated session")

// BearerTokenSource hands the persisted session token to unrelated request
// code as an OAuth2 bearer credential. It reads the cookie tier on every
// call so that a logout is observed immediately.
type BearerTokenSource struct {
	cookie    *CookieTier
	validator *Validator
}

var _ oauth2.TokenSource = (*BearerTokenSource)(nil)

// TokenSource returns a source backed by the manager's cookie tier.
func (m *Manager) TokenSource() *BearerTokenSource {
	return &BearerTokenSource{cookie: m.cookie, validator: m.validator}
}

// Token implements oauth2.TokenSource.
func (b *BearerTokenSource) Token() (*oauth2.Token, error) {
	raw, ok, err := b.cookie.Probe()
	if err != nil {
		return nil, newError(ErrCodeStorageUnavailable, err)
	}
	if !ok {
		return nil, newError(ErrCodeTokenAbsent, ErrNoSession)
	}
	claims, err := b.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, ok, _ := claims.Expiry(); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// NewHTTPClient returns a client that attaches the session token to every
// request. A base client may be supplied in ctx under oauth2.HTTPClient. The
// source is not wrapped in a reuse cache, so logouts take effect on the next
// request.
func (m *Manager) NewHTTPClient(ctx context.Context) *http.Client {
	base := http.DefaultTransport
	if ctx != nil {
		if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil && c.Transport != nil {
			base = c.Transport
		}
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: m.TokenSource(), Base: base},
	}
}
