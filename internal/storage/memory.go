package storage

import (
	"context"
	"sync"
	"time"

	"signal-scanner/internal/strategy"
)

// MemoryStore is the in-process store used in development, tests and as
// the fallback when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	signals map[string]SignalRecord
	setups  map[string]strategy.PendingSetup
	trades  []TradeRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		signals: make(map[string]SignalRecord),
		setups:  make(map[string]strategy.PendingSetup),
	}
}

func (m *MemoryStore) CreateSignal(_ context.Context, rec SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = time.Now()
	m.signals[rec.Signal.ID] = rec
	return nil
}

func (m *MemoryStore) UpdateSignal(_ context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.signals[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
	m.signals[id] = rec
	return nil
}

func (m *MemoryStore) GetSignal(_ context.Context, id string) (SignalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.signals[id]
	if !ok {
		return SignalRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) ListSignals(_ context.Context, f SignalFilter) ([]SignalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SignalRecord
	for _, rec := range m.signals {
		if f.Symbol != "" && rec.Signal.Symbol != f.Symbol {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) CreatePendingSetup(_ context.Context, setup strategy.PendingSetup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setups[setup.ID] = setup
	return nil
}

func (m *MemoryStore) UpdatePendingSetup(_ context.Context, setup strategy.PendingSetup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.setups[setup.ID]; !ok {
		return ErrNotFound
	}
	m.setups[setup.ID] = setup
	return nil
}

func (m *MemoryStore) DeletePendingSetup(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.setups, id)
	return nil
}

func (m *MemoryStore) ListPendingSetups(_ context.Context, symbol string) ([]strategy.PendingSetup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []strategy.PendingSetup
	for _, s := range m.setups {
		if symbol != "" && s.Symbol != symbol {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) ArchiveTrade(_ context.Context, rec TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, rec)
	return nil
}

func (m *MemoryStore) ListTrades(_ context.Context, limit int) ([]TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TradeRecord, len(m.trades))
	copy(out, m.trades)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
