package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/smc"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/strategy"
)

type stubPrices struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
}

func (s *stubPrices) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	p, ok := s.prices[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return p, nil
}

type stubNotifier struct {
	mu     sync.Mutex
	events []string
}

func (s *stubNotifier) NotifySignal(event string, _ storage.SignalRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

var testBase = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func testSignal(id, symbol string, dir smc.Direction, createdAt time.Time) strategy.Signal {
	setup := smc.EntrySetup{
		Direction:  dir,
		EntryType:  smc.EntryCHoCH,
		EntryPrice: 106.35,
		StopLoss:   107.025,
		TakeProfit: 100.5,
		RiskReward: 3.0,
		Confidence: 80,
		CreatedAt:  createdAt.UnixMilli(),
		ExpiresAt:  createdAt.Add(4 * time.Hour).UnixMilli(),
	}
	if dir == smc.DirectionBuy {
		setup.EntryPrice = 100.0
		setup.StopLoss = 99.0
		setup.TakeProfit = 103.0
	}
	return strategy.Signal{
		ID:        id,
		Symbol:    symbol,
		Strategy:  "smc",
		Setup:     setup,
		CreatedAt: createdAt,
	}
}

func newTestManager(store storage.Store, prices PriceSource, notifier Notifier) *Manager {
	return NewManager(Config{Cooldown: 2 * time.Hour}, store, prices, nil, notifier, zerolog.Nop())
}

func TestCooldownRejectsSecondActivation(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(store, &stubPrices{}, nil)
	ctx := context.Background()

	m.SetNow(func() time.Time { return testBase })
	ok, err := m.TryActivate(ctx, testSignal("sig-1", "EUR/USD", smc.DirectionSell, testBase))
	if err != nil || !ok {
		t.Fatalf("first activation should succeed, ok=%v err=%v", ok, err)
	}

	// Thirty minutes later the symbol is still cooling down.
	m.SetNow(func() time.Time { return testBase.Add(30 * time.Minute) })
	ok, err = m.TryActivate(ctx, testSignal("sig-2", "EUR/USD", smc.DirectionSell, testBase.Add(30*time.Minute)))
	if err != nil {
		t.Fatalf("cooldown rejection must not be an error: %v", err)
	}
	if ok {
		t.Error("activation inside the cooldown window must be refused")
	}

	// A different symbol is unaffected.
	ok, _ = m.TryActivate(ctx, testSignal("sig-3", "GBP/USD", smc.DirectionSell, testBase.Add(30*time.Minute)))
	if !ok {
		t.Error("cooldown is per symbol")
	}

	// Three hours later the window has passed.
	m.SetNow(func() time.Time { return testBase.Add(3 * time.Hour) })
	ok, _ = m.TryActivate(ctx, testSignal("sig-4", "EUR/USD", smc.DirectionSell, testBase.Add(3*time.Hour)))
	if !ok {
		t.Error("activation after the cooldown window must be allowed")
	}
}

func TestResolveArchivesTradeExactlyOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &stubNotifier{}
	m := newTestManager(store, &stubPrices{}, notifier)
	ctx := context.Background()
	m.SetNow(func() time.Time { return testBase })

	if ok, err := m.TryActivate(ctx, testSignal("sig-1", "EUR/USD", smc.DirectionSell, testBase)); err != nil || !ok {
		t.Fatalf("activation failed: ok=%v err=%v", ok, err)
	}

	m.SetNow(func() time.Time { return testBase.Add(time.Hour) })
	if err := m.Resolve(ctx, "sig-1", storage.StatusTargetHit, 100.5); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	rec, err := store.GetSignal(ctx, "sig-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != storage.StatusTargetHit {
		t.Errorf("expected target_hit, got %s", rec.Status)
	}

	trades, _ := store.ListTrades(ctx, 0)
	if len(trades) != 1 {
		t.Fatalf("expected 1 archived trade, got %d", len(trades))
	}
	// A winning sell archives positive pnl.
	if trades[0].PnLPercent <= 0 {
		t.Errorf("sell hitting its target should book a gain, got %.2f", trades[0].PnLPercent)
	}
	if trades[0].Outcome != storage.StatusTargetHit || trades[0].Duration != time.Hour {
		t.Errorf("trade record wrong: %+v", trades[0])
	}

	// Re-resolving a terminal signal is a no-op, not an error.
	if err := m.Resolve(ctx, "sig-1", storage.StatusStoppedOut, 108.0); err != nil {
		t.Fatalf("repeat resolve should be a no-op: %v", err)
	}
	trades, _ = store.ListTrades(ctx, 0)
	if len(trades) != 1 {
		t.Errorf("repeat resolve must not archive again, got %d trades", len(trades))
	}
	rec, _ = store.GetSignal(ctx, "sig-1")
	if rec.Status != storage.StatusTargetHit {
		t.Errorf("terminal status must not change, got %s", rec.Status)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	want := []string{"signal_activated", "signal_target_hit"}
	if len(notifier.events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, notifier.events)
	}
	for i := range want {
		if notifier.events[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], notifier.events[i])
		}
	}
}

func TestResolveRejectsNonTerminalStatus(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(store, &stubPrices{}, nil)
	if err := m.Resolve(context.Background(), "sig-1", storage.StatusActive, 100); err == nil {
		t.Error("non-terminal outcome must be rejected")
	}
}

func TestMonitorResolvesStopAndTarget(t *testing.T) {
	store := storage.NewMemoryStore()
	prices := &stubPrices{prices: map[string]float64{}}
	m := newTestManager(store, prices, nil)
	ctx := context.Background()
	m.SetNow(func() time.Time { return testBase })

	// Buy stopped out at the stop price.
	m.TryActivate(ctx, testSignal("buy-1", "EUR/USD", smc.DirectionBuy, testBase))
	// Sell reaching its target.
	m.TryActivate(ctx, testSignal("sell-1", "GBP/USD", smc.DirectionSell, testBase))

	prices.mu.Lock()
	prices.prices["EUR/USD"] = 98.9 // below the 99.0 stop
	prices.prices["GBP/USD"] = 100.4
	prices.mu.Unlock()

	m.MonitorOnce(ctx)

	rec, _ := store.GetSignal(ctx, "buy-1")
	if rec.Status != storage.StatusStoppedOut {
		t.Errorf("buy below stop should stop out, got %s", rec.Status)
	}
	rec, _ = store.GetSignal(ctx, "sell-1")
	if rec.Status != storage.StatusTargetHit {
		t.Errorf("sell below target should hit target, got %s", rec.Status)
	}
}

func TestMonitorLeavesHealthySignalsAlone(t *testing.T) {
	store := storage.NewMemoryStore()
	prices := &stubPrices{prices: map[string]float64{"EUR/USD": 100.5}}
	m := newTestManager(store, prices, nil)
	ctx := context.Background()
	m.SetNow(func() time.Time { return testBase })

	m.TryActivate(ctx, testSignal("buy-1", "EUR/USD", smc.DirectionBuy, testBase))
	m.MonitorOnce(ctx)

	rec, _ := store.GetSignal(ctx, "buy-1")
	if rec.Status != storage.StatusActive {
		t.Errorf("price between stop and target must stay active, got %s", rec.Status)
	}
}

func TestMonitorExpiresWithoutPrice(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(store, &stubPrices{err: errors.New("feed down")}, nil)
	ctx := context.Background()
	m.SetNow(func() time.Time { return testBase })

	m.TryActivate(ctx, testSignal("buy-1", "EUR/USD", smc.DirectionBuy, testBase))

	// No price yet: the signal is skipped, not expired.
	m.MonitorOnce(ctx)
	rec, _ := store.GetSignal(ctx, "buy-1")
	if rec.Status != storage.StatusActive {
		t.Fatalf("unexpired signal without a price must be left alone, got %s", rec.Status)
	}

	// Past the expiry it resolves at the entry price for a flat trade.
	m.SetNow(func() time.Time { return testBase.Add(5 * time.Hour) })
	m.MonitorOnce(ctx)
	rec, _ = store.GetSignal(ctx, "buy-1")
	if rec.Status != storage.StatusExpired {
		t.Fatalf("expected expired, got %s", rec.Status)
	}
	trades, _ := store.ListTrades(ctx, 0)
	if len(trades) != 1 || trades[0].PnLPercent != 0 {
		t.Errorf("expiry without a price should book a flat trade, got %+v", trades)
	}
}

func TestSyncPendingReconcilesByShape(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(store, &stubPrices{}, nil)
	ctx := context.Background()

	held := strategy.PendingSetup{
		ID: "old-1", Symbol: "EUR/USD", Strategy: "smc",
		Setup: smc.EntrySetup{Direction: smc.DirectionBuy, EntryType: smc.EntryContinuation, EntryPrice: 100.0, StopLoss: 99.0},
	}
	stale := strategy.PendingSetup{
		ID: "old-2", Symbol: "EUR/USD", Strategy: "smc",
		Setup: smc.EntrySetup{Direction: smc.DirectionSell, EntryType: smc.EntryFlip, EntryPrice: 105.0, StopLoss: 106.0},
	}
	store.CreatePendingSetup(ctx, held)
	store.CreatePendingSetup(ctx, stale)

	fresh := []strategy.PendingSetup{
		// Same trading shape as held, new random id.
		{ID: "new-1", Symbol: "EUR/USD", Strategy: "smc",
			Setup: smc.EntrySetup{Direction: smc.DirectionBuy, EntryType: smc.EntryContinuation, EntryPrice: 100.0, StopLoss: 99.0}},
		// Genuinely new setup.
		{ID: "new-2", Symbol: "EUR/USD", Strategy: "smc",
			Setup: smc.EntrySetup{Direction: smc.DirectionSell, EntryType: smc.EntryCHoCH, EntryPrice: 104.0, StopLoss: 104.8}},
	}
	if err := m.SyncPending(ctx, "EUR/USD", fresh); err != nil {
		t.Fatal(err)
	}

	setups, _ := store.ListPendingSetups(ctx, "EUR/USD")
	if len(setups) != 2 {
		t.Fatalf("expected 2 setups after sync, got %d", len(setups))
	}
	byID := make(map[string]bool, len(setups))
	for _, s := range setups {
		byID[s.ID] = true
	}
	if !byID["old-1"] {
		t.Error("re-detected setup should keep its original record")
	}
	if byID["old-2"] {
		t.Error("setup the scan did not reproduce must be dropped")
	}
	if !byID["new-2"] {
		t.Error("new setup should be added")
	}
}
