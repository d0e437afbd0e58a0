// Package strategy defines the detection strategy capability and the
// registry that runs strategies in isolation.
package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"signal-scanner/internal/market"
	"signal-scanner/internal/smc"
)

// Strategy is the capability a detection strategy implements. Analyze
// must be a pure computation over the fetched data apart from the candle
// provider calls at its edges.
type Strategy interface {
	// Name returns the strategy identifier used in the registry and in
	// persisted signals.
	Name() string

	// Analyze evaluates one instrument and returns zero or more signals
	// and pending setups.
	Analyze(ctx context.Context, inst market.Instrument) (*Result, error)
}

// Result is one strategy's output for one instrument.
type Result struct {
	Signals       []Signal
	PendingSetups []PendingSetup
}

// Signal is a fully-built directional trade candidate emitted by a
// strategy. It wraps the priced setup with identity and provenance.
type Signal struct {
	ID        string         `json:"id"`
	Symbol    string         `json:"symbol"`
	Strategy  string         `json:"strategy"`
	Setup     smc.EntrySetup `json:"setup"`
	Timeframe struct {
		Context    market.Timeframe `json:"context"`
		Zone       market.Timeframe `json:"zone"`
		Entry      market.Timeframe `json:"entry"`
		Refinement market.Timeframe `json:"refinement"`
	} `json:"timeframe"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingSetup is a candidate whose confidence sits in the watchlist
// band. Same shape as a signal, marked not yet actionable.
type PendingSetup struct {
	ID        string         `json:"id"`
	Symbol    string         `json:"symbol"`
	Strategy  string         `json:"strategy"`
	Setup     smc.EntrySetup `json:"setup"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewID returns a fresh signal/setup identifier.
func NewID() string {
	return uuid.NewString()
}
