package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/market"
)

// Failure records one strategy error during a scan, kept for status
// reporting instead of being propagated.
type Failure struct {
	Strategy string    `json:"strategy"`
	Symbol   string    `json:"symbol"`
	Error    string    `json:"error"`
	At       time.Time `json:"at"`
}

// Registry holds the registered strategies and runs them in isolation:
// one strategy's panic or error never stops the others. Strategies are
// registered at startup and can be toggled at runtime.
type Registry struct {
	log zerolog.Logger

	mu         sync.RWMutex
	strategies map[string]Strategy
	enabled    map[string]bool
	failures   []Failure
}

const maxFailureHistory = 100

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		log:        logger.With().Str("component", "StrategyRegistry").Logger(),
		strategies: make(map[string]Strategy),
		enabled:    make(map[string]bool),
	}
}

// Register adds a strategy, enabled by default. Registering the same
// name twice replaces the previous implementation.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
	r.enabled[s.Name()] = true
	r.log.Info().Str("strategy", s.Name()).Msg("strategy registered")
}

// SetEnabled toggles a strategy. Unknown names return false.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[name]; !ok {
		return false
	}
	r.enabled[name] = enabled
	return true
}

// Enabled reports whether a strategy exists and is enabled.
func (r *Registry) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[name]
}

// Names returns all registered strategy names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}

// AnalyzeAll runs every enabled strategy against the instrument and
// merges their results. Errors and panics are recorded as failures and
// never returned to the caller.
func (r *Registry) AnalyzeAll(ctx context.Context, inst market.Instrument) *Result {
	r.mu.RLock()
	enabled := make([]Strategy, 0, len(r.strategies))
	for name, s := range r.strategies {
		if r.enabled[name] {
			enabled = append(enabled, s)
		}
	}
	r.mu.RUnlock()

	merged := &Result{}
	for _, s := range enabled {
		res, err := r.runOne(ctx, s, inst)
		if err != nil {
			r.recordFailure(s.Name(), inst.Symbol, err)
			continue
		}
		if res == nil {
			continue
		}
		merged.Signals = append(merged.Signals, res.Signals...)
		merged.PendingSetups = append(merged.PendingSetups, res.PendingSetups...)
	}
	return merged
}

// runOne isolates a single strategy invocation, converting panics into
// errors at the registry boundary.
func (r *Registry) runOne(ctx context.Context, s Strategy, inst market.Instrument) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("strategy panic: %v", rec)
		}
	}()
	return s.Analyze(ctx, inst)
}

func (r *Registry) recordFailure(name, symbol string, err error) {
	r.log.Error().Err(err).Str("strategy", name).Str("symbol", symbol).Msg("strategy failed")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, Failure{
		Strategy: name,
		Symbol:   symbol,
		Error:    err.Error(),
		At:       time.Now(),
	})
	if len(r.failures) > maxFailureHistory {
		r.failures = r.failures[len(r.failures)-maxFailureHistory:]
	}
}

// Failures returns a copy of the recorded failure history, newest last.
func (r *Registry) Failures() []Failure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	return out
}
