package sessionx

import (
	"time"
)

// Tier is one place a token may be found.
type Tier interface {
	Name() string
	// Probe returns the token held by the tier. A tier without a token
	// returns ok == false and a nil error.
	Probe() (token string, ok bool, err error)
}

// Consumer is implemented by tiers whose token must be removed from view
// once it has been picked up.
type Consumer interface {
	Consume() error
}

// Tier names used in logs.
const (
	TierCookie         = "cookie"
	TierPersistent     = "persistent_storage"
	TierSessionStorage = "session_storage"
	TierURL            = "url"
)

// CookieTier is the primary tier and the persisted source of truth.
type CookieTier struct {
	store CookieStore
	name  string
	opts  CookieOptions
	ttl   time.Duration
	clock Clock
}

// NewCookieTier binds the cookie called name in store.
func NewCookieTier(store CookieStore, name string, opts CookieOptions, ttl time.Duration, clock Clock) *CookieTier {
	if clock == nil {
		clock = SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultCookieTTL
	}
	return &CookieTier{store: store, name: name, opts: opts.normalize(), ttl: ttl, clock: clock}
}

func (c *CookieTier) Name() string { return TierCookie }

func (c *CookieTier) Probe() (string, bool, error) {
	v, ok, err := c.store.Cookie(c.name)
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	return v, true, nil
}

// Set writes token with the tier's expiry.
func (c *CookieTier) Set(token string) error {
	return c.store.SetCookie(c.opts.Cookie(c.name, token, c.clock.Now().Add(c.ttl)))
}

// Delete removes the cookie.
func (c *CookieTier) Delete() error {
	return c.store.SetCookie(c.opts.Expired(c.name))
}

// StorageTier looks a token up under a list of key aliases. It never writes.
type StorageTier struct {
	name    string
	storage Storage
	keys    []string
}

// NewStorageTier probes storage under keys in order.
func NewStorageTier(name string, storage Storage, keys []string) *StorageTier {
	return &StorageTier{name: name, storage: storage, keys: append([]string(nil), keys...)}
}

func (s *StorageTier) Name() string { return s.name }

func (s *StorageTier) Probe() (string, bool, error) {
	for _, key := range s.keys {
		v, ok, err := s.storage.Get(key)
		if err != nil {
			return "", false, err
		}
		if ok && v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

// URLTier reads a token from the current address's query string. Consume
// strips every alias parameter with a history replace.
type URLTier struct {
	location Location
	params   []string
}

// NewURLTier probes location's query under params in order.
func NewURLTier(location Location, params []string) *URLTier {
	return &URLTier{location: location, params: append([]string(nil), params...)}
}

func (u *URLTier) Name() string { return TierURL }

func (u *URLTier) Probe() (string, bool, error) {
	q := u.location.URL().Query()
	for _, p := range u.params {
		if v := q.Get(p); v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (u *URLTier) Consume() error {
	cur := u.location.URL()
	q := cur.Query()
	changed := false
	for _, p := range u.params {
		if _, ok := q[p]; ok {
			q.Del(p)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	cur.RawQuery = q.Encode()
	return u.location.Replace(cur)
}
