// Package smc implements the Smart-Money-Concepts detection core:
// liquidity pools, supply/demand zones, swing structure and change of
// character, timeframe clarity scoring and entry construction.
package smc

import (
	"signal-scanner/internal/market"
)

// Direction is the trade direction of a signal or setup.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Trend labels the structural direction of a candle window.
type Trend string

const (
	TrendBullish  Trend = "bullish"
	TrendBearish  Trend = "bearish"
	TrendSideways Trend = "sideways"
)

// PoolSide marks whether a liquidity pool sits above (high) or below
// (low) price action.
type PoolSide string

const (
	PoolHigh PoolSide = "high"
	PoolLow  PoolSide = "low"
)

// PoolCategory identifies how a liquidity pool was derived.
type PoolCategory string

const (
	PoolEqualLevels PoolCategory = "equal_levels"
	PoolSwing       PoolCategory = "swing"
	PoolSession     PoolCategory = "session"
	PoolDaily       PoolCategory = "daily"
	PoolWeekly      PoolCategory = "weekly"
	PoolMonthly     PoolCategory = "monthly"
)

// LiquidityPool is a price level where resting orders are presumed to
// cluster. Pools are recomputed from the current candle window every scan
// and never persisted.
type LiquidityPool struct {
	Price         float64      `json:"price"`
	Side          PoolSide     `json:"side"`
	Category      PoolCategory `json:"category"`
	Occurrences   int          `json:"occurrences,omitempty"` // equal-level pools only
	CandleIndexes []int        `json:"candle_indexes,omitempty"`
	Swept         bool         `json:"swept"`
	SweptIndex    int          `json:"swept_index"` // -1 until swept
	Label         string       `json:"label,omitempty"`
}

// ZoneType distinguishes supply (sell-side) from demand (buy-side) zones.
type ZoneType string

const (
	ZoneSupply ZoneType = "supply"
	ZoneDemand ZoneType = "demand"
)

// Opposite returns the other zone type.
func (zt ZoneType) Opposite() ZoneType {
	if zt == ZoneSupply {
		return ZoneDemand
	}
	return ZoneSupply
}

// ZoneStrength grades a zone by the impulse that formed it and how often
// price has returned since.
type ZoneStrength string

const (
	StrengthStrong   ZoneStrength = "strong"
	StrengthModerate ZoneStrength = "moderate"
	StrengthWeak     ZoneStrength = "weak"
)

// ZoneStatus tracks mitigation. The transition is one-way: a mitigated
// zone never becomes unmitigated again.
type ZoneStatus string

const (
	StatusUnmitigated ZoneStatus = "unmitigated"
	StatusMitigated   ZoneStatus = "mitigated"
)

// Zone is a supply or demand zone. Top >= Bottom always holds for zones
// produced by the detector.
type Zone struct {
	Type           ZoneType         `json:"type"`
	Top            float64          `json:"top"`
	Bottom         float64          `json:"bottom"`
	FormedIndex    int              `json:"formed_index"`
	FormedAt       int64            `json:"formed_at"`
	Timeframe      market.Timeframe `json:"timeframe"`
	Strength       ZoneStrength     `json:"strength"`
	Status         ZoneStatus       `json:"status"`
	MitigatedIndex int              `json:"mitigated_index"` // -1 while unmitigated
	Touches        int              `json:"touches"`
	// RefinedFrom is the index of the coarser-timeframe zone this one was
	// refined from, within that zone's own ZoneSet; -1 when not refined.
	// Index link, not a pointer: zones are recomputed each scan.
	RefinedFrom int `json:"refined_from"`
}

// Mid returns the zone midpoint.
func (z Zone) Mid() float64 {
	return (z.Top + z.Bottom) / 2
}

// Size returns the zone height in price units.
func (z Zone) Size() float64 {
	return z.Top - z.Bottom
}

// Contains reports whether a price lies inside the zone.
func (z Zone) Contains(price float64) bool {
	return price >= z.Bottom && price <= z.Top
}

// ZoneSet is the arena of zones detected on one timeframe in one scan.
// Zones are addressed by index into Zones.
type ZoneSet struct {
	Timeframe market.Timeframe `json:"timeframe"`
	Zones     []Zone           `json:"zones"`
}

// Unmitigated returns the indexes of unmitigated zones of the given type,
// in formation order.
func (zs *ZoneSet) Unmitigated(zt ZoneType) []int {
	var idx []int
	for i, z := range zs.Zones {
		if z.Type == zt && z.Status == StatusUnmitigated {
			idx = append(idx, i)
		}
	}
	return idx
}

// CountUnmitigated returns the number of unmitigated zones of any type.
func (zs *ZoneSet) CountUnmitigated() int {
	n := 0
	for _, z := range zs.Zones {
		if z.Status == StatusUnmitigated {
			n++
		}
	}
	return n
}

// SwingLabel classifies a swing point relative to the previous swing of
// the same side.
type SwingLabel string

const (
	SwingHH SwingLabel = "HH"
	SwingHL SwingLabel = "HL"
	SwingLH SwingLabel = "LH"
	SwingLL SwingLabel = "LL"
)

// SwingPoint is a classified local extremum.
type SwingPoint struct {
	Label  SwingLabel `json:"label"`
	Price  float64    `json:"price"`
	Index  int        `json:"index"`
	IsHigh bool       `json:"is_high"`
}

// CHoCHResult describes a detected change of character and whether it
// qualifies as an entry.
type CHoCHResult struct {
	Detected      bool      `json:"detected"`
	Direction     Direction `json:"direction,omitempty"`
	PivotIndex    int       `json:"pivot_index"`
	PivotPrice    float64   `json:"pivot_price"`
	PreviousTrend Trend     `json:"previous_trend,omitempty"`
	// TargetZone indexes into the ZoneSet the detection was validated
	// against; -1 when no qualifying zone was found.
	TargetZone   int      `json:"target_zone"`
	LevelsBroken int      `json:"levels_broken"`
	EntryValid   bool     `json:"entry_valid"`
	Confidence   int      `json:"confidence"`
	Reasoning    []string `json:"reasoning,omitempty"`
}

// EntryType identifies which trigger produced a setup.
type EntryType string

const (
	EntryCHoCH        EntryType = "choch"
	EntrySweep        EntryType = "liquidity_sweep"
	EntryFlip         EntryType = "flip"
	EntryContinuation EntryType = "continuation"
)

// Evidence is the per-entry-type detail attached to a setup. Exactly one
// field is non-nil, matching the setup's EntryType.
type Evidence struct {
	CHoCH        *CHoCHEvidence        `json:"choch,omitempty"`
	Sweep        *SweepEvidence        `json:"sweep,omitempty"`
	Flip         *FlipEvidence         `json:"flip,omitempty"`
	Continuation *ContinuationEvidence `json:"continuation,omitempty"`
}

// CHoCHEvidence records the reversal backing a choch entry.
type CHoCHEvidence struct {
	PivotIndex   int     `json:"pivot_index"`
	PivotPrice   float64 `json:"pivot_price"`
	LevelsBroken int     `json:"levels_broken"`
	Confidence   int     `json:"confidence"`
}

// SweepEvidence records the liquidity pool taken before the entry.
type SweepEvidence struct {
	Pool       LiquidityPool `json:"pool"`
	SweptIndex int           `json:"swept_index"`
}

// FlipEvidence records a zone changing role after mitigation.
type FlipEvidence struct {
	OriginalType   ZoneType `json:"original_type"`
	MitigatedIndex int      `json:"mitigated_index"`
}

// ContinuationEvidence records the trend context of a continuation entry.
type ContinuationEvidence struct {
	Trend        Trend        `json:"trend"`
	ZoneStrength ZoneStrength `json:"zone_strength"`
}

// EntrySetup is a fully priced trade candidate. It becomes immutable once
// persisted as an active signal.
type EntrySetup struct {
	Direction  Direction `json:"direction"`
	EntryType  EntryType `json:"entry_type"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	RiskReward float64   `json:"risk_reward"`
	Confidence int       `json:"confidence"` // clamped 0-100
	Zone       Zone      `json:"zone"`
	ZoneIndex  int       `json:"zone_index"`
	Evidence   Evidence  `json:"evidence"`
	Reasoning  []string  `json:"reasoning"`
	CreatedAt  int64     `json:"created_at"`
	ExpiresAt  int64     `json:"expires_at"`
}

// Risk returns the entry-to-stop distance.
func (s *EntrySetup) Risk() float64 {
	d := s.EntryPrice - s.StopLoss
	if d < 0 {
		return -d
	}
	return d
}

// Reward returns the entry-to-target distance.
func (s *EntrySetup) Reward() float64 {
	d := s.TakeProfit - s.EntryPrice
	if d < 0 {
		return -d
	}
	return d
}

// ClampConfidence bounds a confidence value to [0, 100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
