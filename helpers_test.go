package sessionx

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a Clock whose time only moves when told to and whose tickers
// fire only on Tick.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) NewTicker(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeClock) tickerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// Tick delivers one tick to the most recent ticker. It reports false when
// nothing received the tick within a short wait.
func (f *fakeClock) Tick() bool {
	f.mu.Lock()
	if len(f.tickers) == 0 {
		f.mu.Unlock()
		return false
	}
	t := f.tickers[len(f.tickers)-1]
	now := f.now
	f.mu.Unlock()

	select {
	case t.c <- now:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

type manualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.c }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// makeToken assembles an unsigned compact token carrying claims.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	header := EncodeSegment([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + EncodeSegment(payload) + ".c2lnbmF0dXJl"
}

func validToken(t *testing.T, clock Clock, nickname string) string {
	t.Helper()
	return makeToken(t, map[string]any{
		"nickname": nickname,
		"sub":      "user-" + nickname,
		"exp":      clock.Now().Add(time.Hour).Unix(),
	})
}

func expiredToken(t *testing.T, clock Clock, nickname string) string {
	t.Helper()
	return makeToken(t, map[string]any{
		"nickname": nickname,
		"exp":      clock.Now().Add(-time.Minute).Unix(),
	})
}

// testEnv wires a manager against in-memory tiers.
type testEnv struct {
	clock         *fakeClock
	cookieStorage *MemoryStorage
	cookies       *StorageCookieStore
	persistent    *MemoryStorage
	session       *MemoryStorage
	address       *AddressBar
	manager       *Manager
}

func newTestEnv(t *testing.T, rawURL string) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:         newFakeClock(),
		cookieStorage: NewMemoryStorage(nil),
		persistent:    NewMemoryStorage(nil),
		session:       NewMemoryStorage(nil),
	}
	env.cookies = NewStorageCookieStore(env.cookieStorage, env.clock)
	if rawURL == "" {
		rawURL = "https://app.example.com/"
	}
	address, err := NewAddressBar(rawURL)
	if err != nil {
		t.Fatalf("NewAddressBar: %v", err)
	}
	env.address = address

	m, err := NewManager(Config{}, env.cookies,
		WithClock(env.clock),
		WithPersistentStorage(env.persistent),
		WithSessionStorage(env.session),
		WithLocation(env.address),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.scheduler.ticked = make(chan struct{}, 64)
	env.manager = m
	t.Cleanup(m.Close)
	return env
}

func (e *testEnv) cookie(t *testing.T) (string, bool) {
	t.Helper()
	v, ok, err := e.cookies.Cookie(DefaultCookieName)
	if err != nil {
		t.Fatalf("read cookie: %v", err)
	}
	return v, ok
}

func (e *testEnv) setCookie(t *testing.T, token string) {
	t.Helper()
	opts := CookieOptions{}
	if err := e.cookies.SetCookie(opts.Cookie(DefaultCookieName, token, e.clock.Now().Add(DefaultCookieTTL))); err != nil {
		t.Fatalf("set cookie: %v", err)
	}
}

func waitTicked(t *testing.T, s *Scheduler) {
	t.Helper()
	select {
	case <-s.ticked:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not run its task")
	}
}

// waitLoopExit blocks until the most recent ticker has been stopped by its
// loop, after which ticks can no longer be received.
func waitLoopExit(t *testing.T, clock *fakeClock) {
	t.Helper()
	clock.mu.Lock()
	if len(clock.tickers) == 0 {
		clock.mu.Unlock()
		return
	}
	ticker := clock.tickers[len(clock.tickers)-1]
	clock.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for !ticker.isStopped() {
		if time.Now().After(deadline) {
			t.Fatal("refresh loop did not exit")
		}
		time.Sleep(time.Millisecond)
	}
}
