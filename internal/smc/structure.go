package smc

import (
	"fmt"

	"signal-scanner/internal/market"
)

// StructureConfig tunes swing classification and CHoCH detection.
type StructureConfig struct {
	// SwingNeighbors is the fractal width used to find swing extrema.
	SwingNeighbors int
	// RecentSwings is how many trailing swing points CHoCH inspects.
	RecentSwings int
	// RecentCloseLookback is how many candles before the pivot are
	// checked for a close back inside the target zone.
	RecentCloseLookback int
	// MinLevelsBroken is the minimum count of cleanly-broken opposite
	// zones for a CHoCH entry to validate.
	MinLevelsBroken int
	// BaseConfidence seeds the CHoCH confidence score; bonuses raise it
	// up to MaxConfidence.
	BaseConfidence int
	MaxConfidence  int
}

// DefaultStructureConfig returns the standard structure tuning.
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{
		SwingNeighbors:      2,
		RecentSwings:        5,
		RecentCloseLookback: 3,
		MinLevelsBroken:     2,
		BaseConfidence:      65,
		MaxConfidence:       95,
	}
}

// StructureAnalyzer classifies swing structure and detects changes of
// character.
type StructureAnalyzer struct {
	cfg StructureConfig
}

// NewStructureAnalyzer creates an analyzer, filling zero config values
// with defaults.
func NewStructureAnalyzer(cfg StructureConfig) *StructureAnalyzer {
	def := DefaultStructureConfig()
	if cfg.SwingNeighbors <= 0 {
		cfg.SwingNeighbors = def.SwingNeighbors
	}
	if cfg.RecentSwings <= 0 {
		cfg.RecentSwings = def.RecentSwings
	}
	if cfg.RecentCloseLookback <= 0 {
		cfg.RecentCloseLookback = def.RecentCloseLookback
	}
	if cfg.MinLevelsBroken <= 0 {
		cfg.MinLevelsBroken = def.MinLevelsBroken
	}
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = def.BaseConfidence
	}
	if cfg.MaxConfidence <= 0 {
		cfg.MaxConfidence = def.MaxConfidence
	}
	return &StructureAnalyzer{cfg: cfg}
}

// SwingPoints finds fractal extrema and classifies each against the
// previous swing of the same side: a higher swing high is HH, a lower
// one LH; a higher swing low is HL, a lower one LL. The first swing of
// each side defaults to the stronger label.
func (a *StructureAnalyzer) SwingPoints(candles []market.Candle) []SwingPoint {
	n := a.cfg.SwingNeighbors
	if len(candles) < n*2+1 {
		return nil
	}

	var swings []SwingPoint
	var lastHigh, lastLow float64
	haveHigh, haveLow := false, false

	for i := n; i < len(candles)-n; i++ {
		isHigh, isLow := true, true
		for j := 1; j <= n; j++ {
			if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
				isHigh = false
			}
			if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
				isLow = false
			}
		}

		if isHigh {
			sp := SwingPoint{Price: candles[i].High, Index: i, IsHigh: true, Label: SwingHH}
			if haveHigh && sp.Price <= lastHigh {
				sp.Label = SwingLH
			}
			swings = append(swings, sp)
			lastHigh, haveHigh = sp.Price, true
		}
		if isLow {
			sp := SwingPoint{Price: candles[i].Low, Index: i, IsHigh: false, Label: SwingHL}
			if haveLow && sp.Price <= lastLow {
				sp.Label = SwingLL
			}
			swings = append(swings, sp)
			lastLow, haveLow = sp.Price, true
		}
	}
	return swings
}

// Trend labels a window's direction from its recent swing mix: mostly
// HH/HL is bullish, mostly LH/LL bearish, anything else sideways.
func (a *StructureAnalyzer) Trend(swings []SwingPoint) Trend {
	recent := tailSwings(swings, a.cfg.RecentSwings)
	if len(recent) < 2 {
		return TrendSideways
	}

	up, down := 0, 0
	for _, s := range recent {
		switch s.Label {
		case SwingHH, SwingHL:
			up++
		case SwingLH, SwingLL:
			down++
		}
	}
	switch {
	case up > down:
		return TrendBullish
	case down > up:
		return TrendBearish
	default:
		return TrendSideways
	}
}

// DetectCHoCH looks for a change of character in the most recent swings
// and validates it against the zone set. A bullish CHoCH is a prior
// {LH, LL} structure broken by a new HH targeting a demand zone; the
// bearish case is symmetric. The result always carries reasoning, even
// when nothing was detected.
func (a *StructureAnalyzer) DetectCHoCH(candles []market.Candle, swings []SwingPoint, zones *ZoneSet) CHoCHResult {
	res := CHoCHResult{PivotIndex: -1, TargetZone: -1}

	recent := tailSwings(swings, a.cfg.RecentSwings)
	if len(recent) < 3 {
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("insufficient swing points: %d < 3", len(recent)))
		return res
	}

	pivot := recent[len(recent)-1]
	prior := recent[:len(recent)-1]

	hasLH, hasLL, hasHH, hasHL := false, false, false, false
	for _, s := range prior {
		switch s.Label {
		case SwingLH:
			hasLH = true
		case SwingLL:
			hasLL = true
		case SwingHH:
			hasHH = true
		case SwingHL:
			hasHL = true
		}
	}

	var targetType ZoneType
	switch {
	case pivot.Label == SwingHH && hasLH && hasLL:
		res.Detected = true
		res.Direction = DirectionBuy
		res.PreviousTrend = TrendBearish
		targetType = ZoneDemand
	case pivot.Label == SwingLL && hasHH && hasHL:
		res.Detected = true
		res.Direction = DirectionSell
		res.PreviousTrend = TrendBullish
		targetType = ZoneSupply
	default:
		res.Reasoning = append(res.Reasoning, "no reversal pattern in recent structure")
		return res
	}

	res.PivotIndex = pivot.Index
	res.PivotPrice = pivot.Price
	res.Reasoning = append(res.Reasoning,
		fmt.Sprintf("%s change of character at index %d (%.5f)", res.Direction, pivot.Index, pivot.Price))

	a.validateCHoCH(&res, candles, zones, targetType)
	return res
}

// validateCHoCH applies the three entry conditions: an unmitigated
// target-type zone formed before the pivot, at least MinLevelsBroken
// opposite-type zones broken cleanly between it and the pivot, and no
// recent close back inside the target zone.
func (a *StructureAnalyzer) validateCHoCH(res *CHoCHResult, candles []market.Candle, zones *ZoneSet, targetType ZoneType) {
	if zones == nil || len(zones.Zones) == 0 {
		res.Reasoning = append(res.Reasoning, "no zones available for validation")
		return
	}

	// Most recent unmitigated target-type zone formed strictly before
	// the pivot.
	target := -1
	for i, z := range zones.Zones {
		if z.Type != targetType || z.Status != StatusUnmitigated {
			continue
		}
		if z.FormedIndex >= res.PivotIndex {
			continue
		}
		if target == -1 || z.FormedIndex > zones.Zones[target].FormedIndex {
			target = i
		}
	}
	if target == -1 {
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("no unmitigated %s zone before pivot", targetType))
		return
	}
	res.TargetZone = target
	tz := zones.Zones[target]

	// Opposite-type zones sitting between the target zone and the pivot
	// extreme that were never mitigated count as structure broken
	// cleanly: price traversed them on its way to the pivot without
	// either zone absorbing the move.
	broken := 0
	for _, z := range zones.Zones {
		if z.Type != targetType.Opposite() || z.Status != StatusUnmitigated {
			continue
		}
		if z.FormedIndex >= res.PivotIndex {
			continue
		}
		switch targetType {
		case ZoneSupply: // bearish reversal, demand broken below
			if z.Bottom > res.PivotPrice && z.Top <= tz.Top {
				broken++
			}
		case ZoneDemand: // bullish reversal, supply broken above
			if z.Top < res.PivotPrice && z.Bottom >= tz.Bottom {
				broken++
			}
		}
	}
	res.LevelsBroken = broken
	if broken < a.cfg.MinLevelsBroken {
		res.Reasoning = append(res.Reasoning,
			fmt.Sprintf("only %d opposite levels broken cleanly, need %d", broken, a.cfg.MinLevelsBroken))
		return
	}

	// A recent close back inside the target zone means it is still in
	// control and the reversal is suspect.
	from := res.PivotIndex - a.cfg.RecentCloseLookback
	if from < 0 {
		from = 0
	}
	for i := from; i < res.PivotIndex && i < len(candles); i++ {
		if tz.Contains(candles[i].Close) {
			res.Reasoning = append(res.Reasoning,
				fmt.Sprintf("price closed back inside target zone at index %d, zone still in control", i))
			return
		}
	}

	res.EntryValid = true
	conf := a.cfg.BaseConfidence
	if broken >= a.cfg.MinLevelsBroken+1 {
		conf += 10
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("%d levels broken, confidence +10", broken))
	}
	if tz.Strength == StrengthStrong {
		conf += 10
		res.Reasoning = append(res.Reasoning, "strong target zone, confidence +10")
	}
	if conf > a.cfg.MaxConfidence {
		conf = a.cfg.MaxConfidence
	}
	res.Confidence = conf
	res.Reasoning = append(res.Reasoning,
		fmt.Sprintf("entry valid: %d levels broken toward %s zone, confidence %d", broken, targetType, conf))
}

func tailSwings(swings []SwingPoint, n int) []SwingPoint {
	if len(swings) <= n {
		return swings
	}
	return swings[len(swings)-n:]
}
