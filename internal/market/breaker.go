package market

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is the feed breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"    // requests flow
	BreakerOpen     BreakerState = "open"      // feed considered down
	BreakerHalfOpen BreakerState = "half_open" // probing recovery
)

// FeedBreakerConfig tunes the data-feed circuit breaker.
type FeedBreakerConfig struct {
	Enabled bool `json:"enabled"`
	// MaxConsecutiveFailures trips the breaker once this many requests in
	// a row have failed.
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`
	// Cooldown is how long the breaker stays open before a probe request
	// is allowed through.
	Cooldown time.Duration `json:"cooldown"`
}

// DefaultFeedBreakerConfig returns the standard breaker tuning.
func DefaultFeedBreakerConfig() FeedBreakerConfig {
	return FeedBreakerConfig{
		Enabled:                true,
		MaxConsecutiveFailures: 5,
		Cooldown:               time.Minute,
	}
}

// ErrFeedDown is returned for requests refused while the breaker is open.
var ErrFeedDown = fmt.Errorf("market data feed down")

// FeedBreaker stops hammering a failing data API. After a run of
// consecutive failures it refuses requests for a cooldown, then lets a
// single probe through; one success closes it again. A scan cycle against
// an open breaker fails fast instead of burning its timeout per symbol.
type FeedBreaker struct {
	cfg FeedBreakerConfig

	mu            sync.Mutex
	state         BreakerState
	failures      int
	openedAt      time.Time
	lastFailure   string
	probeInFlight bool
}

// NewFeedBreaker creates a closed breaker, filling zero config values
// with defaults.
func NewFeedBreaker(cfg FeedBreakerConfig) *FeedBreaker {
	def := DefaultFeedBreakerConfig()
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &FeedBreaker{cfg: cfg, state: BreakerClosed}
}

// Allow reports whether a request may proceed. In the half-open state only
// one probe is admitted at a time.
func (b *FeedBreaker) Allow() error {
	if !b.cfg.Enabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cfg.Cooldown {
			return fmt.Errorf("%w: cooling down after %s", ErrFeedDown, b.lastFailure)
		}
		b.state = BreakerHalfOpen
		b.probeInFlight = true
		return nil
	default: // half-open
		if b.probeInFlight {
			return fmt.Errorf("%w: recovery probe in flight", ErrFeedDown)
		}
		b.probeInFlight = true
		return nil
	}
}

// RecordSuccess closes the breaker and clears the failure run.
func (b *FeedBreaker) RecordSuccess() {
	if !b.cfg.Enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.probeInFlight = false
	b.lastFailure = ""
}

// RecordFailure counts a failed request and trips the breaker when the
// consecutive-failure limit is reached. A failed half-open probe re-opens
// immediately.
func (b *FeedBreaker) RecordFailure(err error) {
	if !b.cfg.Enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if err != nil {
		b.lastFailure = err.Error()
	}
	b.probeInFlight = false

	if b.state == BreakerHalfOpen || b.failures >= b.cfg.MaxConsecutiveFailures {
		b.state = BreakerOpen
		b.openedAt = time.Now()
	}
}

// State returns the current breaker state.
func (b *FeedBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats summarizes the breaker for status reporting.
func (b *FeedBreaker) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]interface{}{
		"state":                b.state,
		"consecutive_failures": b.failures,
		"last_failure":         b.lastFailure,
		"opened_at":            b.openedAt,
	}
}
