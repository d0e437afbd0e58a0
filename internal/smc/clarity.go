package smc

import (
	"fmt"

	"signal-scanner/internal/market"
)

// ClarityConfig tunes timeframe clarity scoring and role selection.
type ClarityConfig struct {
	TrendWeight     float64
	ZoneWeight      float64
	StructureWeight float64
	// ClearFloor is the score a timeframe needs to count as clear.
	ClearFloor float64
	// DefaultFloor is the score a role's default timeframe needs when no
	// candidate cleared ClearFloor.
	DefaultFloor float64
	// FallbackFloor is the last-resort minimum for the best available
	// candidate.
	FallbackFloor float64
	// MinSwings and MinZones are the minimum structure a clear timeframe
	// must show.
	MinSwings int
	MinZones  int
	// Combination gates. An instrument is skipped for the cycle when the
	// selected combination fails any of these.
	MinContextScore float64
	MinZoneScore    float64
	MinEntryScore   float64
}

// DefaultClarityConfig returns the standard clarity tuning.
func DefaultClarityConfig() ClarityConfig {
	return ClarityConfig{
		TrendWeight:     0.35,
		ZoneWeight:      0.35,
		StructureWeight: 0.30,
		ClearFloor:      60,
		DefaultFloor:    50,
		FallbackFloor:   40,
		MinSwings:       3,
		MinZones:        2,
		MinContextScore: 50,
		MinZoneScore:    50,
		MinEntryScore:   40,
	}
}

// TimeframeRole names the job a selected timeframe performs in the
// pipeline.
type TimeframeRole string

const (
	RoleContext    TimeframeRole = "context"
	RoleZone       TimeframeRole = "zone"
	RoleEntry      TimeframeRole = "entry"
	RoleRefinement TimeframeRole = "refinement"
)

// roleCandidates lists each role's candidate timeframes, best first, and
// its fixed fallback default.
var roleCandidates = map[TimeframeRole]struct {
	candidates []market.Timeframe
	def        market.Timeframe
}{
	RoleContext:    {[]market.Timeframe{market.TF1D, market.TF4H, market.TF2H}, market.TF4H},
	RoleZone:       {[]market.Timeframe{market.TF4H, market.TF2H, market.TF1H, market.TF30M}, market.TF1H},
	RoleEntry:      {[]market.Timeframe{market.TF30M, market.TF15M, market.TF5M}, market.TF15M},
	RoleRefinement: {[]market.Timeframe{market.TF5M, market.TF3M, market.TF1M}, market.TF1M},
}

// ClarityScore is one timeframe's legibility assessment.
type ClarityScore struct {
	Timeframe      market.Timeframe `json:"timeframe"`
	Score          float64          `json:"score"`
	TrendScore     float64          `json:"trend_score"`
	ZoneScore      float64          `json:"zone_score"`
	StructureScore float64          `json:"structure_score"`
	Trend          Trend            `json:"trend"`
	SwingCount     int              `json:"swing_count"`
	ZoneCount      int              `json:"zone_count"` // unmitigated
	Clear          bool             `json:"clear"`
}

// TimeframeSelection is the accepted context/zone/entry/refinement
// combination, or a rejection with its reason.
type TimeframeSelection struct {
	Context    market.Timeframe                  `json:"context"`
	Zone       market.Timeframe                  `json:"zone"`
	Entry      market.Timeframe                  `json:"entry"`
	Refinement market.Timeframe                  `json:"refinement"`
	Scores     map[market.Timeframe]ClarityScore `json:"scores"`
	OK         bool                              `json:"ok"`
	Reason     string                            `json:"reason,omitempty"`
}

// ClarityAnalyzer scores timeframe legibility and picks the timeframe
// combination a scan should trade on.
type ClarityAnalyzer struct {
	cfg       ClarityConfig
	structure *StructureAnalyzer
	zones     *ZoneDetector
}

// NewClarityAnalyzer creates an analyzer over the given detectors,
// filling zero config values with defaults.
func NewClarityAnalyzer(cfg ClarityConfig, structure *StructureAnalyzer, zones *ZoneDetector) *ClarityAnalyzer {
	def := DefaultClarityConfig()
	if cfg.TrendWeight <= 0 {
		cfg.TrendWeight = def.TrendWeight
	}
	if cfg.ZoneWeight <= 0 {
		cfg.ZoneWeight = def.ZoneWeight
	}
	if cfg.StructureWeight <= 0 {
		cfg.StructureWeight = def.StructureWeight
	}
	if cfg.ClearFloor <= 0 {
		cfg.ClearFloor = def.ClearFloor
	}
	if cfg.DefaultFloor <= 0 {
		cfg.DefaultFloor = def.DefaultFloor
	}
	if cfg.FallbackFloor <= 0 {
		cfg.FallbackFloor = def.FallbackFloor
	}
	if cfg.MinSwings <= 0 {
		cfg.MinSwings = def.MinSwings
	}
	if cfg.MinZones <= 0 {
		cfg.MinZones = def.MinZones
	}
	if cfg.MinContextScore <= 0 {
		cfg.MinContextScore = def.MinContextScore
	}
	if cfg.MinZoneScore <= 0 {
		cfg.MinZoneScore = def.MinZoneScore
	}
	if cfg.MinEntryScore <= 0 {
		cfg.MinEntryScore = def.MinEntryScore
	}
	return &ClarityAnalyzer{cfg: cfg, structure: structure, zones: zones}
}

// AnalyzeClarity scores one timeframe's window. Insufficient data yields
// a zero score, never an error.
func (a *ClarityAnalyzer) AnalyzeClarity(candles []market.Candle) ClarityScore {
	cs := ClarityScore{}
	if len(candles) > 0 {
		cs.Timeframe = candles[0].Timeframe
	}
	if len(candles) < 10 {
		return cs
	}

	swings := a.structure.SwingPoints(candles)
	trend := a.structure.Trend(swings)
	set, _ := a.zones.DetectZones(candles)

	cs.Trend = trend
	cs.SwingCount = len(swings)
	cs.ZoneCount = set.CountUnmitigated()

	cs.TrendScore = trendConsistency(swings, trend) * 100
	cs.ZoneScore = zoneClarity(set) * 100
	cs.StructureScore = structureClarity(swings) * 100

	cs.Score = a.cfg.TrendWeight*cs.TrendScore +
		a.cfg.ZoneWeight*cs.ZoneScore +
		a.cfg.StructureWeight*cs.StructureScore

	cs.Clear = cs.Score >= a.cfg.ClearFloor &&
		cs.SwingCount >= a.cfg.MinSwings &&
		cs.ZoneCount >= a.cfg.MinZones
	return cs
}

// trendConsistency is the fraction of recent swings agreeing with the
// detected trend. Sideways windows score a neutral 0.5.
func trendConsistency(swings []SwingPoint, trend Trend) float64 {
	if trend == TrendSideways || len(swings) == 0 {
		return 0.5
	}
	recent := tailSwings(swings, 6)
	agree := 0
	for _, s := range recent {
		switch trend {
		case TrendBullish:
			if s.Label == SwingHH || s.Label == SwingHL {
				agree++
			}
		case TrendBearish:
			if s.Label == SwingLH || s.Label == SwingLL {
				agree++
			}
		}
	}
	return float64(agree) / float64(len(recent))
}

// zoneClarity rewards a small set of strong, type-balanced unmitigated
// zones and penalizes overcrowding.
func zoneClarity(set *ZoneSet) float64 {
	var supply, demand int
	var strength float64
	for _, z := range set.Zones {
		if z.Status != StatusUnmitigated {
			continue
		}
		if z.Type == ZoneSupply {
			supply++
		} else {
			demand++
		}
		switch z.Strength {
		case StrengthStrong:
			strength += 1.0
		case StrengthModerate:
			strength += 0.6
		default:
			strength += 0.3
		}
	}
	n := supply + demand
	if n == 0 {
		return 0
	}

	avgStrength := strength / float64(n)

	diff := supply - demand
	if diff < 0 {
		diff = -diff
	}
	balance := 1 - float64(diff)/float64(n)

	// Two to six unmitigated zones is legible; more starts to crowd.
	crowd := 1.0
	if n > 6 {
		crowd = 6.0 / float64(n)
	}

	return 0.5*avgStrength + 0.3*balance + 0.2*crowd
}

// structureClarity is the fraction of consecutive swings that alternate
// between highs and lows.
func structureClarity(swings []SwingPoint) float64 {
	if len(swings) < 2 {
		return 0
	}
	alternating := 0
	for i := 1; i < len(swings); i++ {
		if swings[i].IsHigh != swings[i-1].IsHigh {
			alternating++
		}
	}
	return float64(alternating) / float64(len(swings)-1)
}

// SelectTimeframes scores every populated timeframe and picks one per
// role. The combination is rejected, and the instrument skipped for the
// cycle, unless context, zone and entry all clear their gates.
func (a *ClarityAnalyzer) SelectTimeframes(data *market.MultiTimeframeData) TimeframeSelection {
	sel := TimeframeSelection{Scores: make(map[market.Timeframe]ClarityScore)}

	for _, tf := range market.AllTimeframes {
		candles := data.ForTimeframe(tf)
		if len(candles) == 0 {
			continue
		}
		sel.Scores[tf] = a.AnalyzeClarity(candles)
	}
	if len(sel.Scores) == 0 {
		sel.Reason = "no timeframe data"
		return sel
	}

	ctx, ctxOK := a.pickRole(RoleContext, sel.Scores)
	zone, zoneOK := a.pickRole(RoleZone, sel.Scores)
	entry, entryOK := a.pickRole(RoleEntry, sel.Scores)
	refine, refineOK := a.pickRole(RoleRefinement, sel.Scores)
	if !ctxOK || !zoneOK || !entryOK {
		sel.Reason = "no usable timeframe for a required role"
		return sel
	}
	if !refineOK {
		// Refinement is optional; entry doubles as the finest level.
		refine = entry
	}

	if sel.Scores[ctx].Score < a.cfg.MinContextScore ||
		sel.Scores[zone].Score < a.cfg.MinZoneScore ||
		sel.Scores[entry].Score < a.cfg.MinEntryScore {
		sel.Reason = fmt.Sprintf("combination below gates: context %.0f zone %.0f entry %.0f",
			sel.Scores[ctx].Score, sel.Scores[zone].Score, sel.Scores[entry].Score)
		return sel
	}

	sel.Context, sel.Zone, sel.Entry, sel.Refinement = ctx, zone, entry, refine
	sel.OK = true
	return sel
}

// pickRole picks the best-scoring clear candidate, then the role default
// if it scores at least DefaultFloor, then the best candidate above
// FallbackFloor.
func (a *ClarityAnalyzer) pickRole(role TimeframeRole, scores map[market.Timeframe]ClarityScore) (market.Timeframe, bool) {
	spec := roleCandidates[role]

	best := market.Timeframe("")
	bestScore := -1.0
	for _, tf := range spec.candidates {
		cs, ok := scores[tf]
		if !ok {
			continue
		}
		if cs.Clear && cs.Score > bestScore {
			best, bestScore = tf, cs.Score
		}
	}
	if best != "" {
		return best, true
	}

	if cs, ok := scores[spec.def]; ok && cs.Score >= a.cfg.DefaultFloor {
		return spec.def, true
	}

	bestScore = -1.0
	for _, tf := range spec.candidates {
		cs, ok := scores[tf]
		if !ok {
			continue
		}
		if cs.Score >= a.cfg.FallbackFloor && cs.Score > bestScore {
			best, bestScore = tf, cs.Score
		}
	}
	if best != "" {
		return best, true
	}
	return "", false
}
