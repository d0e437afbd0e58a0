// Package storage persists signals, pending setups and trade history.
// The core treats it as a keyed record store; the only atomicity it
// relies on is the per-symbol critical section in the lifecycle manager.
package storage

import (
	"context"
	"errors"
	"time"

	"signal-scanner/internal/strategy"
)

// Status is a signal's lifecycle state.
type Status string

// Forming and watchlist setups live in the pending-setup store and only
// become a SignalRecord on activation, so the first status is active.
const (
	StatusActive     Status = "active"
	StatusStoppedOut Status = "stopped_out"
	StatusTargetHit  Status = "target_hit"
	StatusExpired    Status = "expired"
)

// Terminal reports whether a status ends the lifecycle.
func (s Status) Terminal() bool {
	return s == StatusStoppedOut || s == StatusTargetHit || s == StatusExpired
}

// SignalRecord wraps a strategy signal with its lifecycle status. Owned
// exclusively by the lifecycle manager from creation to terminal state.
type SignalRecord struct {
	Signal    strategy.Signal `json:"signal"`
	Status    Status          `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TradeRecord is the archived outcome of a terminal signal.
type TradeRecord struct {
	SignalID   string        `json:"signal_id"`
	Symbol     string        `json:"symbol"`
	Strategy   string        `json:"strategy"`
	Direction  string        `json:"direction"`
	EntryPrice float64       `json:"entry_price"`
	ExitPrice  float64       `json:"exit_price"`
	PnLPercent float64       `json:"pnl_percent"`
	Outcome    Status        `json:"outcome"`
	Duration   time.Duration `json:"duration"`
	OpenedAt   time.Time     `json:"opened_at"`
	ClosedAt   time.Time     `json:"closed_at"`
}

// SignalFilter narrows listing queries. Zero values match everything.
type SignalFilter struct {
	Symbol string
	Status Status
	Limit  int
}

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// SignalStore persists lifecycle-managed signals.
type SignalStore interface {
	CreateSignal(ctx context.Context, rec SignalRecord) error
	UpdateSignal(ctx context.Context, id string, status Status) error
	GetSignal(ctx context.Context, id string) (SignalRecord, error)
	ListSignals(ctx context.Context, f SignalFilter) ([]SignalRecord, error)
}

// SetupStore persists pending setups between scans.
type SetupStore interface {
	CreatePendingSetup(ctx context.Context, setup strategy.PendingSetup) error
	UpdatePendingSetup(ctx context.Context, setup strategy.PendingSetup) error
	DeletePendingSetup(ctx context.Context, id string) error
	ListPendingSetups(ctx context.Context, symbol string) ([]strategy.PendingSetup, error)
}

// TradeArchive records terminal outcomes.
type TradeArchive interface {
	ArchiveTrade(ctx context.Context, rec TradeRecord) error
	ListTrades(ctx context.Context, limit int) ([]TradeRecord, error)
}

// Store is the full persistence surface the scanner and lifecycle
// manager depend on.
type Store interface {
	SignalStore
	SetupStore
	TradeArchive
}
