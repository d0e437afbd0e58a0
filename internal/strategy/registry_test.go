package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"signal-scanner/internal/market"
)

type stubStrategy struct {
	name    string
	result  *Result
	err     error
	panics  bool
	calls   int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Analyze(ctx context.Context, inst market.Instrument) (*Result, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func testInstrument() market.Instrument {
	return market.NewInstrument("EUR_USD", market.AssetForex, 1.0850)
}

func TestRegistryIsolatesPanickingStrategy(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	good := &stubStrategy{name: "good", result: &Result{
		Signals: []Signal{{ID: NewID(), Symbol: "EUR_USD", Strategy: "good"}},
	}}
	bad := &stubStrategy{name: "bad", panics: true}
	r.Register(good)
	r.Register(bad)

	res := r.AnalyzeAll(context.Background(), testInstrument())
	if len(res.Signals) != 1 {
		t.Fatalf("healthy strategy's signals must survive, got %d", len(res.Signals))
	}
	if good.calls != 1 || bad.calls != 1 {
		t.Errorf("both strategies should run, got %d and %d", good.calls, bad.calls)
	}

	failures := r.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", len(failures))
	}
	if failures[0].Strategy != "bad" || failures[0].Symbol != "EUR_USD" {
		t.Errorf("failure misattributed: %+v", failures[0])
	}
}

func TestRegistryRecordsErrorsWithoutPropagating(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register(&stubStrategy{name: "flaky", err: errors.New("feed unavailable")})

	res := r.AnalyzeAll(context.Background(), testInstrument())
	if len(res.Signals) != 0 || len(res.PendingSetups) != 0 {
		t.Error("a failed strategy must contribute nothing")
	}
	failures := r.Failures()
	if len(failures) != 1 || failures[0].Error != "feed unavailable" {
		t.Errorf("expected the error recorded, got %+v", failures)
	}
}

func TestRegistryDisabledStrategySkipped(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	s := &stubStrategy{name: "smc", result: &Result{}}
	r.Register(s)

	if !r.SetEnabled("smc", false) {
		t.Fatal("toggling a known strategy should succeed")
	}
	if r.Enabled("smc") {
		t.Error("strategy should report disabled")
	}
	r.AnalyzeAll(context.Background(), testInstrument())
	if s.calls != 0 {
		t.Errorf("disabled strategy must not run, got %d calls", s.calls)
	}

	if r.SetEnabled("unknown", true) {
		t.Error("toggling an unknown strategy must fail")
	}
}

func TestRegistryMergesResults(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register(&stubStrategy{name: "a", result: &Result{
		Signals: []Signal{{ID: NewID(), Symbol: "EUR_USD", Strategy: "a"}},
	}})
	r.Register(&stubStrategy{name: "b", result: &Result{
		PendingSetups: []PendingSetup{{Symbol: "EUR_USD", Strategy: "b"}},
	}})

	res := r.AnalyzeAll(context.Background(), testInstrument())
	if len(res.Signals) != 1 {
		t.Errorf("expected 1 signal, got %d", len(res.Signals))
	}
	if len(res.PendingSetups) != 1 {
		t.Errorf("expected 1 pending setup, got %d", len(res.PendingSetups))
	}
}

func TestRegistryFailureHistoryCapped(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	r.Register(&stubStrategy{name: "flaky", err: errors.New("down")})

	inst := testInstrument()
	for i := 0; i < maxFailureHistory+20; i++ {
		r.AnalyzeAll(context.Background(), inst)
	}
	if got := len(r.Failures()); got != maxFailureHistory {
		t.Errorf("failure history should cap at %d, got %d", maxFailureHistory, got)
	}
}
