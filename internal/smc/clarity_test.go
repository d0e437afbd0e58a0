package smc

import (
	"testing"

	"signal-scanner/internal/market"
)

func newTestClarityAnalyzer() *ClarityAnalyzer {
	return NewClarityAnalyzer(ClarityConfig{},
		NewStructureAnalyzer(StructureConfig{}),
		NewZoneDetector(ZoneConfig{}))
}

func TestClarityInsufficientDataScoresZero(t *testing.T) {
	a := newTestClarityAnalyzer()
	cs := a.AnalyzeClarity(series([][4]float64{
		{100.0, 100.4, 99.6, 100.1},
		{100.1, 100.6, 99.9, 100.3},
	}))
	if cs.Score != 0 {
		t.Errorf("short window must score zero, got %.2f", cs.Score)
	}
	if cs.Clear {
		t.Error("short window must never be clear")
	}
}

func TestClarityScoresReversalScenario(t *testing.T) {
	a := newTestClarityAnalyzer()
	cs := a.AnalyzeClarity(reversalScenario())

	if cs.SwingCount != 5 {
		t.Errorf("expected 5 swings, got %d", cs.SwingCount)
	}
	if cs.ZoneCount != 5 {
		t.Errorf("expected 5 unmitigated zones, got %d", cs.ZoneCount)
	}
	if cs.Trend != TrendBullish {
		t.Errorf("expected bullish swing majority, got %s", cs.Trend)
	}
	// Swings alternate perfectly between highs and lows.
	if cs.StructureScore != 100 {
		t.Errorf("expected structure score 100, got %.2f", cs.StructureScore)
	}
	// Four of the five swings agree with the bullish read.
	if cs.TrendScore != 80 {
		t.Errorf("expected trend score 80, got %.2f", cs.TrendScore)
	}
	if !cs.Clear {
		t.Errorf("scenario should be clear, score %.2f", cs.Score)
	}
	if cs.Score < 60 || cs.Score > 100 {
		t.Errorf("score out of expected band: %.2f", cs.Score)
	}
}

func TestStructureClarityAlternation(t *testing.T) {
	alternating := []SwingPoint{
		{IsHigh: true}, {IsHigh: false}, {IsHigh: true}, {IsHigh: false},
	}
	if got := structureClarity(alternating); got != 1.0 {
		t.Errorf("perfect alternation should score 1.0, got %.2f", got)
	}
	doubled := []SwingPoint{
		{IsHigh: true}, {IsHigh: true}, {IsHigh: false},
	}
	if got := structureClarity(doubled); got != 0.5 {
		t.Errorf("one repeat in two steps should score 0.5, got %.2f", got)
	}
	if got := structureClarity(nil); got != 0 {
		t.Errorf("no swings should score 0, got %.2f", got)
	}
}

func TestSelectTimeframesRejectsEmptyData(t *testing.T) {
	a := newTestClarityAnalyzer()
	sel := a.SelectTimeframes(&market.MultiTimeframeData{})
	if sel.OK {
		t.Error("empty data must be rejected")
	}
	if sel.Reason == "" {
		t.Error("rejection must carry a reason")
	}
}

func TestSelectTimeframesPicksClearCombination(t *testing.T) {
	a := newTestClarityAnalyzer()

	data := &market.MultiTimeframeData{}
	data.Set(market.TF4H, reversalScenario())
	data.Set(market.TF15M, reversalScenario())

	sel := a.SelectTimeframes(data)
	if !sel.OK {
		t.Fatalf("expected an accepted combination, reason: %s", sel.Reason)
	}
	if sel.Context != market.TF4H {
		t.Errorf("expected 4H context, got %s", sel.Context)
	}
	if sel.Zone != market.TF4H {
		t.Errorf("expected 4H zone timeframe, got %s", sel.Zone)
	}
	if sel.Entry != market.TF15M {
		t.Errorf("expected 15M entry, got %s", sel.Entry)
	}
	// No refinement data; the entry timeframe doubles as the finest level.
	if sel.Refinement != market.TF15M {
		t.Errorf("expected refinement to fall back to entry, got %s", sel.Refinement)
	}
}

func TestPickRoleFallbackOrder(t *testing.T) {
	a := newTestClarityAnalyzer()

	// No clear candidate, default above its floor: default wins.
	scores := map[market.Timeframe]ClarityScore{
		market.TF1D: {Timeframe: market.TF1D, Score: 45},
		market.TF4H: {Timeframe: market.TF4H, Score: 55},
	}
	tf, ok := a.pickRole(RoleContext, scores)
	if !ok || tf != market.TF4H {
		t.Errorf("expected default 4H, got %s ok=%v", tf, ok)
	}

	// Clear candidate beats a higher-scoring default.
	scores = map[market.Timeframe]ClarityScore{
		market.TF1D: {Timeframe: market.TF1D, Score: 65, Clear: true},
		market.TF4H: {Timeframe: market.TF4H, Score: 80},
	}
	tf, ok = a.pickRole(RoleContext, scores)
	if !ok || tf != market.TF1D {
		t.Errorf("expected clear 1D, got %s ok=%v", tf, ok)
	}

	// Default below its floor: best candidate above the fallback floor.
	scores = map[market.Timeframe]ClarityScore{
		market.TF1D: {Timeframe: market.TF1D, Score: 45},
		market.TF4H: {Timeframe: market.TF4H, Score: 30},
	}
	tf, ok = a.pickRole(RoleContext, scores)
	if !ok || tf != market.TF1D {
		t.Errorf("expected fallback 1D, got %s ok=%v", tf, ok)
	}

	// Nothing usable at all.
	scores = map[market.Timeframe]ClarityScore{
		market.TF1D: {Timeframe: market.TF1D, Score: 20},
	}
	if _, ok = a.pickRole(RoleContext, scores); ok {
		t.Error("expected no usable timeframe")
	}
}
