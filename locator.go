package sessionx

import (
	"fmt"

	"go.uber.org/zap"
)

// Locator probes tiers in order and converges a token found in a secondary
// tier into the primary cookie tier.
type Locator struct {
	primary *CookieTier
	tiers   []Tier
	log     *zap.Logger
}

// NewLocator builds a locator. primary is always probed first; secondary
// tiers follow in the given order.
func NewLocator(primary *CookieTier, secondary []Tier, log *zap.Logger) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	tiers := make([]Tier, 0, len(secondary)+1)
	tiers = append(tiers, primary)
	for _, t := range secondary {
		if t != nil {
			tiers = append(tiers, t)
		}
	}
	return &Locator{primary: primary, tiers: tiers, log: log}
}

// Locate returns the first token found. Tier errors are logged and the next
// tier is tried.
func (l *Locator) Locate() (string, bool) {
	for _, tier := range l.tiers {
		token, ok, err := l.probe(tier)
		if err != nil {
			l.log.Warn("token tier unavailable", zap.String("tier", tier.Name()), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		l.log.Debug("token located", zap.String("tier", tier.Name()))
		if tier != Tier(l.primary) {
			l.converge(tier, token)
		}
		return token, true
	}
	return "", false
}

// probe isolates a tier so that a panicking host binding behaves like an
// unavailable tier.
func (l *Locator) probe(tier Tier) (token string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			token, ok, err = "", false, newError(ErrCodeStorageUnavailable, panicError{r})
		}
	}()
	return tier.Probe()
}

func (l *Locator) converge(from Tier, token string) {
	if err := l.primary.Set(token); err != nil {
		l.log.Warn("token convergence failed", zap.String("tier", from.Name()), zap.Error(err))
	}
	if c, ok := from.(Consumer); ok {
		if err := c.Consume(); err != nil {
			l.log.Warn("token tier consume failed", zap.String("tier", from.Name()), zap.Error(err))
		}
	}
}

type panicError struct {
	v any
}

func (p panicError) Error() string {
	return fmt.Sprintf("tier panicked: %v", p.v)
}
