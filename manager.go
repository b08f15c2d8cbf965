package sessionx

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State is the observable session state.
//
// IsAuthenticated is true exactly when Identity is non-nil. IsLoading is only
// true until the first resolution completes.
type State struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	Identity        *Identity `json:"user"`
	IsLoading       bool      `json:"isLoading"`
}

func (s State) clone() State {
	s.Identity = s.Identity.Clone()
	return s
}

// Option customizes a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	log        *zap.Logger
	clock      Clock
	persistent Storage
	session    Storage
	location   Location
	extraTiers []Tier
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *managerOptions) {
		o.log = log
	}
}

// WithClock overrides the clock used for expiry checks and refresh ticks.
func WithClock(clock Clock) Option {
	return func(o *managerOptions) {
		o.clock = clock
	}
}

// WithPersistentStorage adds the persistent storage tier.
func WithPersistentStorage(s Storage) Option {
	return func(o *managerOptions) {
		o.persistent = s
	}
}

// WithSessionStorage adds the session-scoped storage tier.
func WithSessionStorage(s Storage) Option {
	return func(o *managerOptions) {
		o.session = s
	}
}

// WithLocation adds the URL query tier.
func WithLocation(l Location) Option {
	return func(o *managerOptions) {
		o.location = l
	}
}

// WithTiers appends custom tiers after the built-in ones.
func WithTiers(tiers ...Tier) Option {
	return func(o *managerOptions) {
		o.extraTiers = append(o.extraTiers, tiers...)
	}
}

// Manager owns the session state. It is the only writer of that state and
// exposes it through Login, Logout, RefreshAuthStatus and State.
//
// None of the operations perform network I/O; every decision is made from
// the configured tiers and the clock.
type Manager struct {
	mu        sync.Mutex
	cfg       Config
	log       *zap.Logger
	validator *Validator
	cookie    *CookieTier
	locator   *Locator
	scheduler *Scheduler

	state    State
	initOnce sync.Once
	closed   bool

	subs    map[int]func(State)
	nextSub int
}

// NewManager builds a manager around the cookie store. Storage and URL
// tiers are optional and probed in the order persistent, session, URL.
func NewManager(cfg Config, cookies CookieStore, opts ...Option) (*Manager, error) {
	if cookies == nil {
		return nil, errors.New("cookie store is required")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := managerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.clock == nil {
		o.clock = SystemClock{}
	}

	cookie := NewCookieTier(cookies, cfg.CookieName, cfg.CookieOptions(), cfg.CookieTTL, o.clock)
	var secondary []Tier
	if o.persistent != nil {
		secondary = append(secondary, NewStorageTier(TierPersistent, o.persistent, cfg.StorageKeys))
	}
	if o.session != nil {
		secondary = append(secondary, NewStorageTier(TierSessionStorage, o.session, cfg.StorageKeys))
	}
	if o.location != nil {
		secondary = append(secondary, NewURLTier(o.location, cfg.QueryParams))
	}
	secondary = append(secondary, o.extraTiers...)

	m := &Manager{
		cfg:       cfg,
		log:       o.log,
		validator: NewValidator(o.clock),
		cookie:    cookie,
		locator:   NewLocator(cookie, secondary, o.log),
		state:     State{IsLoading: true},
		subs:      make(map[int]func(State)),
	}
	m.scheduler = NewScheduler(o.clock, cfg.RefreshInterval, m.tick, o.log)
	return m, nil
}

// Initialize performs the first resolution. Only the first call has any
// effect.
func (m *Manager) Initialize() State {
	m.initOnce.Do(func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.state.IsLoading = true
		func() {
			defer func() { m.state.IsLoading = false }()
			m.checkLocked()
		}()
		m.log.Info("session initialized", zap.Bool("authenticated", m.state.IsAuthenticated))
		m.unlockAndNotify()
	})
	return m.State()
}

// CheckAuthStatus re-resolves the session from the tiers. A missing,
// invalid or unextractable token leaves the session unauthenticated and
// removes the cookie.
func (m *Manager) CheckAuthStatus() State {
	m.mu.Lock()
	if m.closed {
		defer m.mu.Unlock()
		return m.state.clone()
	}
	m.checkLocked()
	return m.unlockAndNotify()
}

// RefreshAuthStatus is CheckAuthStatus for callers that want to force a
// re-validation.
func (m *Manager) RefreshAuthStatus() State {
	return m.CheckAuthStatus()
}

// Login accepts a token obtained out of band. The token must decode, be
// unexpired and yield an identity; otherwise Login reports false and the
// current state is kept.
func (m *Manager) Login(raw string) bool {
	claims, err := m.validator.Validate(raw)
	if err != nil {
		m.log.Info("login rejected", zap.String("reason", string(CodeOf(err))), zap.Error(err))
		return false
	}
	id, err := IdentityFromClaims(claims)
	if err != nil {
		m.log.Info("login rejected", zap.String("reason", string(CodeOf(err))), zap.Error(err))
		return false
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if err := m.cookie.Set(raw); err != nil {
		m.mu.Unlock()
		m.log.Warn("login token not persisted", zap.Error(err))
		return false
	}
	m.authenticateLocked(id)
	m.log.Info("session authenticated", zap.String("nickname", id.Nickname), zap.String("via", "login"))
	m.unlockAndNotify()
	return true
}

// Logout removes the cookie and clears the session.
func (m *Manager) Logout() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.clearLocked("logout")
	m.unlockAndNotify()
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// IsExpiringSoon reports whether the persisted token expires within the
// configured threshold.
func (m *Manager) IsExpiringSoon() bool {
	token, ok, err := m.cookie.Probe()
	if err != nil || !ok {
		return false
	}
	return m.validator.IsExpiringSoon(token, m.cfg.ExpiringSoonThreshold)
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Close stops the refresh scheduler and waits for it. Later calls to the
// operations leave the state untouched.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.subs = map[int]func(State){}
	m.mu.Unlock()
	m.scheduler.Close()
	m.log.Debug("session manager closed")
}

// tick is the scheduler task. It does nothing once the session is no
// longer authenticated.
func (m *Manager) tick() {
	m.mu.Lock()
	if m.closed || !m.state.IsAuthenticated {
		m.mu.Unlock()
		m.scheduler.Stop()
		return
	}
	m.checkLocked()
	if m.state.IsAuthenticated && m.IsExpiringSoon() {
		m.log.Info("session token expiring soon")
	}
	m.unlockAndNotify()
}

func (m *Manager) checkLocked() {
	token, ok := m.locator.Locate()
	if !ok {
		m.clearLocked(string(ErrCodeTokenAbsent))
		return
	}
	claims, err := m.validator.Validate(token)
	if err != nil {
		m.clearLocked(string(CodeOf(err)))
		return
	}
	id, err := IdentityFromClaims(claims)
	if err != nil {
		m.clearLocked(string(CodeOf(err)))
		return
	}
	if !m.state.IsAuthenticated {
		m.log.Info("session authenticated", zap.String("nickname", id.Nickname), zap.String("via", "check"))
	}
	m.authenticateLocked(id)
}

func (m *Manager) authenticateLocked(id *Identity) {
	m.state.IsAuthenticated = true
	m.state.Identity = id
	m.scheduler.Start()
}

func (m *Manager) clearLocked(reason string) {
	if err := m.cookie.Delete(); err != nil {
		m.log.Warn("session cookie not removed", zap.Error(fmt.Errorf("delete %s: %w", m.cfg.CookieName, err)))
	}
	if m.state.IsAuthenticated {
		m.log.Info("session cleared", zap.String("reason", reason))
	} else {
		m.log.Debug("session unauthenticated", zap.String("reason", reason))
	}
	m.state.IsAuthenticated = false
	m.state.Identity = nil
	m.scheduler.Stop()
}

// unlockAndNotify releases m.mu and then delivers the new state to
// subscribers.
func (m *Manager) unlockAndNotify() State {
	snapshot := m.state.clone()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(snapshot.clone())
	}
	return snapshot
}
