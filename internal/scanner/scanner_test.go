package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/lifecycle"
	"signal-scanner/internal/market"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/strategy"
)

type countingStrategy struct {
	calls int
}

func (c *countingStrategy) Name() string { return "counting" }

func (c *countingStrategy) Analyze(_ context.Context, _ market.Instrument) (*strategy.Result, error) {
	c.calls++
	return &strategy.Result{}, nil
}

func newTestScanner(store storage.Store, registry *strategy.Registry, now time.Time) *Scanner {
	lc := lifecycle.NewManager(lifecycle.Config{Cooldown: 2 * time.Hour}, store, nil, nil, nil, zerolog.Nop())
	s := New(Config{}, nil, registry, lc, store, nil, zerolog.Nop())
	s.SetNow(func() time.Time { return now })
	return s
}

func activeRecord(id, symbol string, createdAt time.Time) storage.SignalRecord {
	return storage.SignalRecord{
		Signal: strategy.Signal{ID: id, Symbol: symbol, Strategy: "smc", CreatedAt: createdAt},
		Status: storage.StatusActive,
	}
}

func TestCooldownPrecheckRespectsSignalAge(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	s := newTestScanner(store, strategy.NewRegistry(zerolog.Nop()), now)

	if err := store.CreateSignal(ctx, activeRecord("sig-old", "EURUSD", now.Add(-3*time.Hour))); err != nil {
		t.Fatalf("seed signal: %v", err)
	}
	if s.inCooldown(ctx, "EURUSD") {
		t.Error("an active signal older than the cooldown must not block the symbol")
	}

	if err := store.CreateSignal(ctx, activeRecord("sig-fresh", "GBPUSD", now.Add(-30*time.Minute))); err != nil {
		t.Fatalf("seed signal: %v", err)
	}
	if !s.inCooldown(ctx, "GBPUSD") {
		t.Error("an active signal inside the cooldown must block the symbol")
	}
}

func TestScanSymbolAnalyzesAfterCooldownElapsed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	counter := &countingStrategy{}
	registry := strategy.NewRegistry(zerolog.Nop())
	registry.Register(counter)
	s := newTestScanner(store, registry, now)

	inst := market.NewInstrument("EURUSD", market.AssetForex, 1.0850)

	if err := store.CreateSignal(ctx, activeRecord("sig-1", "EURUSD", now.Add(-30*time.Minute))); err != nil {
		t.Fatalf("seed signal: %v", err)
	}
	s.ScanSymbol(ctx, inst)
	if counter.calls != 0 {
		t.Fatalf("symbol in cooldown must skip analysis, got %d calls", counter.calls)
	}

	// Same signal three hours on: cooldown elapsed, analysis runs again.
	s.SetNow(func() time.Time { return now.Add(3 * time.Hour) })
	s.ScanSymbol(ctx, inst)
	if counter.calls != 1 {
		t.Errorf("cooldown elapsed, expected 1 analysis call, got %d", counter.calls)
	}
}
