package sessionx

import (
	"net/url"
	"sync"
)

// Location is the host's current address with history-replace semantics:
// Replace swaps the visible URL without navigating.
type Location interface {
	URL() *url.URL
	Replace(u *url.URL) error
}

// AddressBar is an in-memory Location.
type AddressBar struct {
	mu       sync.RWMutex
	current  *url.URL
	replaces int
}

// NewAddressBar parses rawURL as the current address.
func NewAddressBar(rawURL string) (*AddressBar, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &AddressBar{current: u}, nil
}

// URL returns a copy of the current address.
func (a *AddressBar) URL() *url.URL {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return &url.URL{}
	}
	u := *a.current
	return &u
}

// Replace sets the current address.
func (a *AddressBar) Replace(u *url.URL) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := *u
	a.current = &c
	a.replaces++
	return nil
}

// Replaces reports how many times the address was replaced.
func (a *AddressBar) Replaces() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.replaces
}

// String returns the current address.
func (a *AddressBar) String() string {
	return a.URL().String()
}
