package smc

import (
	"fmt"
	"time"
)

// EntryConfig tunes setup pricing and grading.
type EntryConfig struct {
	// StopBufferRatio sizes the stop buffer as a fraction of zone height.
	StopBufferRatio float64
	// TPRiskMultiple prices the target when no opposing zone exists.
	TPRiskMultiple float64
	// ContinuationWeight positions a continuation entry inside the zone,
	// biased toward the side giving the better fill.
	ContinuationWeight float64
	// MinRiskReward and ActiveConfidence gate active signals;
	// PendingConfidence is the floor of the watchlist band.
	MinRiskReward     float64
	ActiveConfidence  int
	PendingConfidence int
	// Expiry is how long a setup stays actionable.
	Expiry time.Duration
}

// DefaultEntryConfig returns the standard entry tuning.
func DefaultEntryConfig() EntryConfig {
	return EntryConfig{
		StopBufferRatio:    0.25,
		TPRiskMultiple:     2.5,
		ContinuationWeight: 0.35,
		MinRiskReward:      2.0,
		ActiveConfidence:   70,
		PendingConfidence:  40,
		Expiry:             4 * time.Hour,
	}
}

// entry-type base confidence scores.
var entryBaseConfidence = map[EntryType]int{
	EntryCHoCH:        70,
	EntrySweep:        65,
	EntryFlip:         60,
	EntryContinuation: 50,
}

// SetupGrade is the builder's verdict on a priced setup.
type SetupGrade string

const (
	GradeActive  SetupGrade = "active"
	GradePending SetupGrade = "pending"
	GradeNone    SetupGrade = "none"
)

// EntryInput is everything the builder combines into one candidate.
type EntryInput struct {
	Direction Direction
	// Zone is the trade zone, possibly a refined descendant of the zone
	// timeframe's pick; ZoneIndex is its index in the zone-timeframe set.
	Zone      Zone
	ZoneIndex int
	// EntryZones is the full zone set on the entry timeframe, used for
	// target selection.
	EntryZones *ZoneSet
	// CHoCH is the entry-timeframe reversal result, if any.
	CHoCH *CHoCHResult
	// SweptPool is a pool swept in the recent window, if any.
	SweptPool *LiquidityPool
	// Trend is the context-timeframe trend.
	Trend Trend
	Now   time.Time
}

// EntryBuilder prices and grades trade candidates.
type EntryBuilder struct {
	cfg EntryConfig
}

// NewEntryBuilder creates a builder, filling zero config values with
// defaults.
func NewEntryBuilder(cfg EntryConfig) *EntryBuilder {
	def := DefaultEntryConfig()
	if cfg.StopBufferRatio <= 0 {
		cfg.StopBufferRatio = def.StopBufferRatio
	}
	if cfg.TPRiskMultiple <= 0 {
		cfg.TPRiskMultiple = def.TPRiskMultiple
	}
	if cfg.ContinuationWeight <= 0 {
		cfg.ContinuationWeight = def.ContinuationWeight
	}
	if cfg.MinRiskReward <= 0 {
		cfg.MinRiskReward = def.MinRiskReward
	}
	if cfg.ActiveConfidence <= 0 {
		cfg.ActiveConfidence = def.ActiveConfidence
	}
	if cfg.PendingConfidence <= 0 {
		cfg.PendingConfidence = def.PendingConfidence
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = def.Expiry
	}
	return &EntryBuilder{cfg: cfg}
}

// BuildEntry combines the detection results into one priced, graded
// setup. It returns GradeNone with a nil setup when no entry condition
// holds or the pricing is degenerate.
func (b *EntryBuilder) BuildEntry(in EntryInput) (*EntrySetup, SetupGrade, []string) {
	var reasoning []string

	entryType, evidence, ok := b.classify(in, &reasoning)
	if !ok {
		return nil, GradeNone, reasoning
	}

	zone := in.Zone
	if zone.Size() <= 0 {
		reasoning = append(reasoning, "degenerate zone with zero height, no setup")
		return nil, GradeNone, reasoning
	}

	entry := b.entryPrice(entryType, in.Direction, zone)
	stop := b.stopLoss(in.Direction, zone)
	risk := entry - stop
	if risk < 0 {
		risk = -risk
	}
	if risk <= 0 {
		reasoning = append(reasoning, "zero risk distance, no setup")
		return nil, GradeNone, reasoning
	}

	target, targetReason := b.takeProfit(in.Direction, entry, risk, in.EntryZones)
	reasoning = append(reasoning, targetReason)

	reward := target - entry
	if reward < 0 {
		reward = -reward
	}
	rr := reward / risk

	conf := b.confidence(entryType, in, &reasoning)

	setup := &EntrySetup{
		Direction:  in.Direction,
		EntryType:  entryType,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		RiskReward: rr,
		Confidence: conf,
		Zone:       zone,
		ZoneIndex:  in.ZoneIndex,
		Evidence:   evidence,
		Reasoning:  reasoning,
		CreatedAt:  in.Now.UnixMilli(),
		ExpiresAt:  in.Now.Add(b.cfg.Expiry).UnixMilli(),
	}

	switch {
	case rr >= b.cfg.MinRiskReward && conf >= b.cfg.ActiveConfidence:
		setup.Reasoning = append(setup.Reasoning,
			fmt.Sprintf("active: rr %.2f, confidence %d", rr, conf))
		return setup, GradeActive, setup.Reasoning
	case conf >= b.cfg.PendingConfidence:
		setup.Reasoning = append(setup.Reasoning,
			fmt.Sprintf("pending: rr %.2f, confidence %d", rr, conf))
		return setup, GradePending, setup.Reasoning
	default:
		reasoning = append(reasoning, fmt.Sprintf("below pending band: confidence %d", conf))
		return nil, GradeNone, reasoning
	}
}

// classify picks the entry type by priority: validated CHoCH, then a
// confirmed sweep into a mitigated zone, then a supply/demand flip, then
// plain trend continuation. First satisfied condition wins.
func (b *EntryBuilder) classify(in EntryInput, reasoning *[]string) (EntryType, Evidence, bool) {
	if in.CHoCH != nil && in.CHoCH.Detected && in.CHoCH.EntryValid && in.CHoCH.Direction == in.Direction {
		*reasoning = append(*reasoning, "validated change of character reversal")
		return EntryCHoCH, Evidence{CHoCH: &CHoCHEvidence{
			PivotIndex:   in.CHoCH.PivotIndex,
			PivotPrice:   in.CHoCH.PivotPrice,
			LevelsBroken: in.CHoCH.LevelsBroken,
			Confidence:   in.CHoCH.Confidence,
		}}, true
	}

	if in.SweptPool != nil && in.SweptPool.Swept && in.Zone.Status == StatusMitigated {
		*reasoning = append(*reasoning,
			fmt.Sprintf("liquidity sweep of %s %s pool into mitigated zone", in.SweptPool.Category, in.SweptPool.Side))
		return EntrySweep, Evidence{Sweep: &SweepEvidence{
			Pool:       *in.SweptPool,
			SweptIndex: in.SweptPool.SweptIndex,
		}}, true
	}

	// A mitigated zone trading in the opposite role is a flip.
	if in.Zone.Status == StatusMitigated {
		expected := ZoneDemand
		if in.Direction == DirectionSell {
			expected = ZoneSupply
		}
		if in.Zone.Type != expected {
			*reasoning = append(*reasoning,
				fmt.Sprintf("mitigated %s zone flipping to %s role", in.Zone.Type, expected))
			return EntryFlip, Evidence{Flip: &FlipEvidence{
				OriginalType:   in.Zone.Type,
				MitigatedIndex: in.Zone.MitigatedIndex,
			}}, true
		}
	}

	trendMatches := (in.Direction == DirectionBuy && in.Trend == TrendBullish) ||
		(in.Direction == DirectionSell && in.Trend == TrendBearish)
	if trendMatches && in.Zone.Status == StatusUnmitigated {
		*reasoning = append(*reasoning, fmt.Sprintf("%s continuation into %s zone", in.Trend, in.Zone.Type))
		return EntryContinuation, Evidence{Continuation: &ContinuationEvidence{
			Trend:        in.Trend,
			ZoneStrength: in.Zone.Strength,
		}}, true
	}

	*reasoning = append(*reasoning, "no entry condition satisfied")
	return "", Evidence{}, false
}

// entryPrice is the zone midpoint, except continuation entries which sit
// inside the zone biased toward the side giving the better fill.
func (b *EntryBuilder) entryPrice(et EntryType, dir Direction, zone Zone) float64 {
	if et != EntryContinuation {
		return zone.Mid()
	}
	if dir == DirectionBuy {
		return zone.Bottom + zone.Size()*b.cfg.ContinuationWeight
	}
	return zone.Top - zone.Size()*b.cfg.ContinuationWeight
}

func (b *EntryBuilder) stopLoss(dir Direction, zone Zone) float64 {
	buffer := zone.Size() * b.cfg.StopBufferRatio
	if dir == DirectionBuy {
		return zone.Bottom - buffer
	}
	return zone.Top + buffer
}

// takeProfit targets the nearest unmitigated opposite zone boundary in
// the profit direction, or a fixed risk multiple when none exists.
func (b *EntryBuilder) takeProfit(dir Direction, entry, risk float64, entryZones *ZoneSet) (float64, string) {
	if entryZones != nil {
		opposite := ZoneSupply
		if dir == DirectionSell {
			opposite = ZoneDemand
		}
		best := 0.0
		found := false
		for _, i := range entryZones.Unmitigated(opposite) {
			z := entryZones.Zones[i]
			if dir == DirectionBuy && z.Bottom > entry {
				if !found || z.Bottom < best {
					best, found = z.Bottom, true
				}
			}
			if dir == DirectionSell && z.Top < entry {
				if !found || z.Top > best {
					best, found = z.Top, true
				}
			}
		}
		if found {
			return best, fmt.Sprintf("target at nearest %s zone boundary %.5f", opposite, best)
		}
	}

	if dir == DirectionBuy {
		return entry + risk*b.cfg.TPRiskMultiple, fmt.Sprintf("target at %.1fx risk", b.cfg.TPRiskMultiple)
	}
	return entry - risk*b.cfg.TPRiskMultiple, fmt.Sprintf("target at %.1fx risk", b.cfg.TPRiskMultiple)
}

// confidence starts from the entry type's base score and adds bonuses
// for liquidity confirmation, zone strength and extra independent
// confirmations.
func (b *EntryBuilder) confidence(et EntryType, in EntryInput, reasoning *[]string) int {
	conf := entryBaseConfidence[et]

	if in.SweptPool != nil && in.SweptPool.Swept && et != EntrySweep {
		conf += 10
		*reasoning = append(*reasoning, "liquidity confirmation, confidence +10")
	}
	if in.Zone.Strength == StrengthStrong {
		conf += 10
		*reasoning = append(*reasoning, "strong zone, confidence +10")
	}
	if in.CHoCH != nil && in.CHoCH.Detected && et != EntryCHoCH && in.CHoCH.Direction == in.Direction {
		conf += 5
		*reasoning = append(*reasoning, "structure reversal agrees, confidence +5")
	}
	trendMatches := (in.Direction == DirectionBuy && in.Trend == TrendBullish) ||
		(in.Direction == DirectionSell && in.Trend == TrendBearish)
	if trendMatches && et != EntryContinuation {
		conf += 5
		*reasoning = append(*reasoning, "context trend agrees, confidence +5")
	}

	return ClampConfidence(conf)
}
