package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/market"
	"signal-scanner/internal/smc"
)

// SMCConfig bundles the detector tunings for the smart-money strategy.
type SMCConfig struct {
	Liquidity smc.LiquidityConfig
	Zones     smc.ZoneConfig
	Structure smc.StructureConfig
	Clarity   smc.ClarityConfig
	Entry     smc.EntryConfig
	// PoolLookback caps how many trailing candles the pool detector
	// considers.
	PoolLookback int
}

// SMCStrategy is the smart-money-concepts pipeline: clarity-driven
// timeframe selection, context trend, zone detection with refinement,
// liquidity and structure analysis on the entry timeframe, then entry
// construction.
type SMCStrategy struct {
	provider  market.CandleProvider
	pools     *smc.PoolDetector
	zones     *smc.ZoneDetector
	structure *smc.StructureAnalyzer
	clarity   *smc.ClarityAnalyzer
	entry     *smc.EntryBuilder
	lookback  int
	now       func() time.Time
	log       zerolog.Logger
}

// NewSMCStrategy wires the detector stack over a candle provider.
func NewSMCStrategy(cfg SMCConfig, provider market.CandleProvider, logger zerolog.Logger) *SMCStrategy {
	structure := smc.NewStructureAnalyzer(cfg.Structure)
	zones := smc.NewZoneDetector(cfg.Zones)
	lookback := cfg.PoolLookback
	if lookback <= 0 {
		lookback = 100
	}
	return &SMCStrategy{
		provider:  provider,
		pools:     smc.NewPoolDetector(cfg.Liquidity),
		zones:     zones,
		structure: structure,
		clarity:   smc.NewClarityAnalyzer(cfg.Clarity, structure, zones),
		entry:     smc.NewEntryBuilder(cfg.Entry),
		lookback:  lookback,
		now:       time.Now,
		log:       logger.With().Str("component", "SMCStrategy").Logger(),
	}
}

// SetNow overrides the clock, for tests.
func (s *SMCStrategy) SetNow(now func() time.Time) { s.now = now }

func (s *SMCStrategy) Name() string { return "smc" }

// Analyze runs the full pipeline for one instrument. An instrument whose
// timeframe combination fails the clarity gates is skipped for the cycle
// with an empty result, not an error.
func (s *SMCStrategy) Analyze(ctx context.Context, inst market.Instrument) (*Result, error) {
	data, err := s.provider.FetchMultiTimeframe(ctx, inst.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", inst.Symbol, err)
	}

	sel := s.clarity.SelectTimeframes(data)
	if !sel.OK {
		s.log.Debug().Str("symbol", inst.Symbol).Str("reason", sel.Reason).Msg("instrument skipped")
		return &Result{}, nil
	}

	contextCandles := data.ForTimeframe(sel.Context)
	contextTrend := s.structure.Trend(s.structure.SwingPoints(contextCandles))

	zoneCandles := data.ForTimeframe(sel.Zone)
	zoneSet, _ := s.zones.DetectZones(zoneCandles)

	entryCandles := data.ForTimeframe(sel.Entry)
	if len(entryCandles) == 0 {
		return &Result{}, nil
	}
	entrySwings := s.structure.SwingPoints(entryCandles)
	entryZones, _ := s.zones.DetectZones(entryCandles)
	choch := s.structure.DetectCHoCH(entryCandles, entrySwings, entryZones)

	pools, _ := s.pools.DetectPools(entryCandles, s.lookback)
	sweptIdx := s.pools.DetectSweeps(pools, entryCandles)
	var swept *smc.LiquidityPool
	if sweptIdx >= 0 {
		swept = &pools[sweptIdx]
	}

	direction, ok := s.resolveDirection(contextTrend, &choch)
	if !ok {
		s.log.Debug().Str("symbol", inst.Symbol).Msg("no directional bias")
		return &Result{}, nil
	}

	price := entryCandles[len(entryCandles)-1].Close
	zoneIdx := s.pickTradeZone(zoneSet, direction, price)
	if zoneIdx < 0 {
		s.log.Debug().Str("symbol", inst.Symbol).Msg("no tradable zone")
		return &Result{}, nil
	}

	tradeZone := s.refineZone(zoneSet.Zones[zoneIdx], zoneIdx, data, sel, inst.PipSize)

	setup, grade, _ := s.entry.BuildEntry(smc.EntryInput{
		Direction:  direction,
		Zone:       tradeZone,
		ZoneIndex:  zoneIdx,
		EntryZones: entryZones,
		CHoCH:      &choch,
		SweptPool:  swept,
		Trend:      contextTrend,
		Now:        s.now(),
	})

	res := &Result{}
	switch grade {
	case smc.GradeActive:
		sig := Signal{
			ID:        NewID(),
			Symbol:    inst.Symbol,
			Strategy:  s.Name(),
			Setup:     *setup,
			CreatedAt: s.now(),
		}
		sig.Timeframe.Context = sel.Context
		sig.Timeframe.Zone = sel.Zone
		sig.Timeframe.Entry = sel.Entry
		sig.Timeframe.Refinement = sel.Refinement
		res.Signals = append(res.Signals, sig)
		s.log.Info().Str("symbol", inst.Symbol).Str("direction", string(direction)).
			Int("confidence", setup.Confidence).Float64("rr", setup.RiskReward).
			Msg("signal built")
	case smc.GradePending:
		res.PendingSetups = append(res.PendingSetups, PendingSetup{
			ID:        NewID(),
			Symbol:    inst.Symbol,
			Strategy:  s.Name(),
			Setup:     *setup,
			CreatedAt: s.now(),
		})
	}
	return res, nil
}

// resolveDirection prefers a validated reversal over the context trend.
func (s *SMCStrategy) resolveDirection(trend smc.Trend, choch *smc.CHoCHResult) (smc.Direction, bool) {
	if choch.Detected && choch.EntryValid {
		return choch.Direction, true
	}
	switch trend {
	case smc.TrendBullish:
		return smc.DirectionBuy, true
	case smc.TrendBearish:
		return smc.DirectionSell, true
	default:
		return "", false
	}
}

// pickTradeZone selects the unmitigated zone matching the trade
// direction nearest to the current price: demand below price for buys,
// supply above price for sells. Returns -1 when none qualifies.
func (s *SMCStrategy) pickTradeZone(set *smc.ZoneSet, dir smc.Direction, price float64) int {
	want := smc.ZoneDemand
	if dir == smc.DirectionSell {
		want = smc.ZoneSupply
	}

	best := -1
	bestDist := 0.0
	for _, i := range set.Unmitigated(want) {
		z := set.Zones[i]
		var dist float64
		switch dir {
		case smc.DirectionBuy:
			if z.Top > price {
				continue
			}
			dist = price - z.Top
		case smc.DirectionSell:
			if z.Bottom < price {
				continue
			}
			dist = z.Bottom - price
		}
		if best == -1 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best >= 0 {
		return best
	}

	// Price may already be inside the zone; fall back to the nearest
	// midpoint.
	for _, i := range set.Unmitigated(want) {
		z := set.Zones[i]
		dist := price - z.Mid()
		if dist < 0 {
			dist = -dist
		}
		if best == -1 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// refineZone runs the refinement cascade through the entry and
// refinement timeframes, keeping the coarse zone when a step is
// ambiguous.
func (s *SMCStrategy) refineZone(coarse smc.Zone, coarseIdx int, data *market.MultiTimeframeData, sel smc.TimeframeSelection, pipSize float64) smc.Zone {
	var levels []smc.RefineLevel
	if c := data.ForTimeframe(sel.Entry); len(c) > 0 {
		levels = append(levels, smc.RefineLevel{Candles: c})
	}
	if sel.Refinement != sel.Entry {
		if c := data.ForTimeframe(sel.Refinement); len(c) > 0 {
			levels = append(levels, smc.RefineLevel{Candles: c})
		}
	}
	if len(levels) == 0 {
		return coarse
	}
	return s.zones.RefineCascade(coarse, coarseIdx, levels, pipSize)
}

var _ Strategy = (*SMCStrategy)(nil)
