package sessionx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// CookieOptions defines how the session cookie is written.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// normalize applies the defaults: path "/" and SameSite=Lax. Secure stays
// off unless asked for so that plain-HTTP local hosts keep working.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// Cookie builds the session cookie carrying value and expiring at expiresAt.
func (o CookieOptions) Cookie(name, value string, expiresAt time.Time) *http.Cookie {
	o = o.normalize()
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		Expires:  expiresAt,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	}
}

// Expired builds the deletion cookie for name.
func (o CookieOptions) Expired(name string) *http.Cookie {
	o = o.normalize()
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	}
}

// CookieStore is the cookie area of the host.
type CookieStore interface {
	Cookie(name string) (string, bool, error)
	SetCookie(c *http.Cookie) error
}

// JarCookieStore keeps cookies in an http.CookieJar scoped to one origin.
// Sharing the jar with an http.Client lets unrelated requests send the
// session cookie.
type JarCookieStore struct {
	jar    http.CookieJar
	origin *url.URL
}

// NewJarCookieStore creates a public-suffix aware jar for origin.
func NewJarCookieStore(origin string) (*JarCookieStore, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q must be absolute", origin)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &JarCookieStore{jar: jar, origin: u}, nil
}

// Jar exposes the underlying jar.
func (j *JarCookieStore) Jar() http.CookieJar { return j.jar }

func (j *JarCookieStore) Cookie(name string) (string, bool, error) {
	for _, c := range j.jar.Cookies(j.origin) {
		if c.Name == name {
			return c.Value, true, nil
		}
	}
	return "", false, nil
}

func (j *JarCookieStore) SetCookie(c *http.Cookie) error {
	j.jar.SetCookies(j.origin, []*http.Cookie{c})
	return nil
}

// StorageCookieStore persists cookies inside a Storage, honoring their
// expiry against clock. It gives CLIs a cookie tier that survives restarts.
type StorageCookieStore struct {
	storage Storage
	clock   Clock
}

type cookieRecord struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// NewStorageCookieStore wraps storage. A nil clock means the system clock.
func NewStorageCookieStore(storage Storage, clock Clock) *StorageCookieStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StorageCookieStore{storage: storage, clock: clock}
}

func (s *StorageCookieStore) Cookie(name string) (string, bool, error) {
	raw, ok, err := s.storage.Get(cookieKey(name))
	if err != nil || !ok {
		return "", false, err
	}
	var rec cookieRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", false, newError(ErrCodeStorageUnavailable, fmt.Errorf("cookie %s: %w", name, err))
	}
	if !rec.Expires.IsZero() && !s.clock.Now().Before(rec.Expires) {
		return "", false, nil
	}
	return rec.Value, true, nil
}

func (s *StorageCookieStore) SetCookie(c *http.Cookie) error {
	if c.MaxAge < 0 || (!c.Expires.IsZero() && !s.clock.Now().Before(c.Expires)) {
		return s.storage.Remove(cookieKey(c.Name))
	}
	rec := cookieRecord{Value: c.Value, Expires: c.Expires}
	if c.MaxAge > 0 {
		rec.Expires = s.clock.Now().Add(time.Duration(c.MaxAge) * time.Second)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if r, ok := s.storage.(*RedisStorage); ok && !rec.Expires.IsZero() {
		return r.SetWithTTL(cookieKey(c.Name), string(data), rec.Expires.Sub(s.clock.Now()))
	}
	return s.storage.Set(cookieKey(c.Name), string(data))
}

func cookieKey(name string) string {
	return "cookie:" + name
}
