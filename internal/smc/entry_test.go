package smc

import (
	"testing"
	"time"
)

func testEntryInput() EntryInput {
	return EntryInput{
		Direction: DirectionSell,
		Zone: Zone{
			Type:           ZoneSupply,
			Top:            106.8,
			Bottom:         105.9,
			FormedIndex:    19,
			Status:         StatusUnmitigated,
			Strength:       StrengthStrong,
			MitigatedIndex: -1,
			RefinedFrom:    -1,
		},
		ZoneIndex: 0,
		EntryZones: &ZoneSet{Zones: []Zone{
			{Type: ZoneDemand, Top: 100.5, Bottom: 99.5, Status: StatusUnmitigated, MitigatedIndex: -1, RefinedFrom: -1},
		}},
		CHoCH: &CHoCHResult{
			Detected:   true,
			Direction:  DirectionSell,
			PivotIndex: 30,
			PivotPrice: 97.0,
			EntryValid: true,
			Confidence: 85,
		},
		Trend: TrendBullish,
		Now:   time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
	}
}

func TestValidatedCHoCHWinsPriority(t *testing.T) {
	b := NewEntryBuilder(EntryConfig{})
	in := testEntryInput()
	in.SweptPool = &LiquidityPool{Price: 107.0, Side: PoolHigh, Swept: true, SweptIndex: 20}

	setup, grade, _ := b.BuildEntry(in)
	if setup == nil {
		t.Fatal("expected a setup")
	}
	if setup.EntryType != EntryCHoCH {
		t.Errorf("validated reversal must win priority, got %s", setup.EntryType)
	}
	if setup.Evidence.CHoCH == nil {
		t.Error("choch entry must carry choch evidence")
	}
	if setup.Evidence.Sweep != nil || setup.Evidence.Flip != nil || setup.Evidence.Continuation != nil {
		t.Error("exactly one evidence variant may be set")
	}
	if grade != GradeActive {
		t.Errorf("expected active grade, got %s", grade)
	}
}

func TestActiveSignalMeetsGates(t *testing.T) {
	b := NewEntryBuilder(EntryConfig{})
	setup, grade, _ := b.BuildEntry(testEntryInput())
	if setup == nil {
		t.Fatal("expected a setup")
	}
	if grade != GradeActive {
		t.Fatalf("expected active grade, got %s", grade)
	}
	if setup.RiskReward < 2.0 {
		t.Errorf("active signals require rr >= 2, got %.2f", setup.RiskReward)
	}
	if setup.Confidence < 70 || setup.Confidence > 100 {
		t.Errorf("active confidence out of range: %d", setup.Confidence)
	}
	if setup.Direction != DirectionSell {
		t.Errorf("expected sell, got %s", setup.Direction)
	}
	// Sell entry at the zone midpoint, stop above the top plus buffer.
	if setup.EntryPrice != testEntryInput().Zone.Mid() {
		t.Errorf("expected midpoint entry, got %.4f", setup.EntryPrice)
	}
	if setup.StopLoss <= testEntryInput().Zone.Top {
		t.Errorf("sell stop must sit above the zone top, got %.4f", setup.StopLoss)
	}
	if setup.TakeProfit != 100.5 {
		t.Errorf("target should be the nearest demand zone top, got %.4f", setup.TakeProfit)
	}
}

func TestLowRiskRewardDowngradesToPending(t *testing.T) {
	b := NewEntryBuilder(EntryConfig{})
	in := testEntryInput()
	// An opposing zone right under the entry caps the reward.
	in.EntryZones = &ZoneSet{Zones: []Zone{
		{Type: ZoneDemand, Top: 106.0, Bottom: 105.5, Status: StatusUnmitigated, MitigatedIndex: -1, RefinedFrom: -1},
	}}
	setup, grade, _ := b.BuildEntry(in)
	if setup == nil {
		t.Fatal("expected a setup")
	}
	if setup.RiskReward >= 2.0 {
		t.Fatalf("test premise broken, rr %.2f", setup.RiskReward)
	}
	if grade != GradePending {
		t.Errorf("low rr must not grade active, got %s", grade)
	}
}

func TestConfidenceAlwaysClamped(t *testing.T) {
	b := NewEntryBuilder(EntryConfig{})
	in := testEntryInput()
	in.SweptPool = &LiquidityPool{Price: 107.0, Side: PoolHigh, Swept: true, SweptIndex: 20}
	in.Trend = TrendBearish

	setup, _, _ := b.BuildEntry(in)
	if setup == nil {
		t.Fatal("expected a setup")
	}
	if setup.Confidence < 0 || setup.Confidence > 100 {
		t.Errorf("confidence out of bounds: %d", setup.Confidence)
	}

	if ClampConfidence(240) != 100 {
		t.Error("clamp must cap at 100")
	}
	if ClampConfidence(-3) != 0 {
		t.Error("clamp must floor at 0")
	}
}

func TestConfiguredExpiryHonored(t *testing.T) {
	b := NewEntryBuilder(EntryConfig{Expiry: 8 * time.Hour})
	in := testEntryInput()
	setup, _, _ := b.BuildEntry(in)
	if setup == nil {
		t.Fatal("expected a setup")
	}
	want := in.Now.Add(8 * time.Hour).UnixMilli()
	if setup.ExpiresAt != want {
		t.Errorf("expected expiry %d, got %d", want, setup.ExpiresAt)
	}
}

func TestContinuationUsesWeightedEntry(t *testing.T) {
	b := NewEntryBuilder(EntryConfig{})
	in := EntryInput{
		Direction: DirectionBuy,
		Zone: Zone{
			Type:           ZoneDemand,
			Top:            100.5,
			Bottom:         99.5,
			Status:         StatusUnmitigated,
			Strength:       StrengthStrong,
			MitigatedIndex: -1,
			RefinedFrom:    -1,
		},
		Trend: TrendBullish,
		Now:   time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
	}
	setup, grade, _ := b.BuildEntry(in)
	if setup == nil {
		t.Fatalf("expected a setup, grade %s", grade)
	}
	if setup.EntryType != EntryContinuation {
		t.Fatalf("expected continuation, got %s", setup.EntryType)
	}
	want := 99.5 + 1.0*0.35
	if setup.EntryPrice != want {
		t.Errorf("expected weighted entry %.4f, got %.4f", want, setup.EntryPrice)
	}
	if setup.Evidence.Continuation == nil {
		t.Error("continuation entry must carry continuation evidence")
	}
}

func TestReversalScenarioProducesActiveSell(t *testing.T) {
	candles := reversalScenario()
	structure := NewStructureAnalyzer(StructureConfig{})
	zones := NewZoneDetector(ZoneConfig{})
	builder := NewEntryBuilder(EntryConfig{})

	set, _ := zones.DetectZones(candles)
	swings := structure.SwingPoints(candles)
	choch := structure.DetectCHoCH(candles, swings, set)
	if !choch.EntryValid {
		t.Fatalf("expected a valid reversal, reasoning: %v", choch.Reasoning)
	}

	setup, grade, _ := builder.BuildEntry(EntryInput{
		Direction:  choch.Direction,
		Zone:       set.Zones[choch.TargetZone],
		ZoneIndex:  choch.TargetZone,
		EntryZones: set,
		CHoCH:      &choch,
		Trend:      structure.Trend(swings),
		Now:        time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
	})
	if setup == nil {
		t.Fatal("expected a setup from the scenario")
	}
	if grade != GradeActive {
		t.Errorf("expected an active signal, got %s (rr %.2f conf %d)", grade, setup.RiskReward, setup.Confidence)
	}
	if setup.Direction != DirectionSell {
		t.Errorf("expected sell, got %s", setup.Direction)
	}
	if setup.EntryType != EntryCHoCH {
		t.Errorf("expected a reversal entry, got %s", setup.EntryType)
	}
	if setup.Confidence < 75 {
		t.Errorf("expected confidence >= 75, got %d", setup.Confidence)
	}
	if setup.RiskReward < 2.0 {
		t.Errorf("expected rr >= 2, got %.2f", setup.RiskReward)
	}
	if setup.StopLoss <= setup.EntryPrice || setup.TakeProfit >= setup.EntryPrice {
		t.Errorf("sell pricing inverted: entry %.2f stop %.2f target %.2f",
			setup.EntryPrice, setup.StopLoss, setup.TakeProfit)
	}
}

func TestNoEntryConditionYieldsNothing(t *testing.T) {
	b := NewEntryBuilder(EntryConfig{})
	in := EntryInput{
		Direction: DirectionBuy,
		Zone: Zone{
			Type:           ZoneDemand,
			Top:            100.5,
			Bottom:         99.5,
			Status:         StatusUnmitigated,
			MitigatedIndex: -1,
			RefinedFrom:    -1,
		},
		Trend: TrendSideways, // no continuation context
		Now:   time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
	}
	setup, grade, reasoning := b.BuildEntry(in)
	if setup != nil || grade != GradeNone {
		t.Errorf("expected no setup, got grade %s", grade)
	}
	if len(reasoning) == 0 {
		t.Error("expected reasoning for the rejection")
	}
}
