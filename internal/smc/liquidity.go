package smc

import (
	"fmt"
	"time"

	"signal-scanner/internal/market"
)

// LiquidityConfig tunes the pool detector.
type LiquidityConfig struct {
	// EqualLevelTolerance is the relative distance within which two
	// highs/lows join the same equal-level cluster.
	EqualLevelTolerance float64
	// MinOccurrences is the minimum cluster size kept as a pool.
	MinOccurrences int
	// SwingNeighbors is the fractal width on each side of a swing extremum.
	SwingNeighbors int
	// SweepWindow is how many trailing candles sweep detection inspects.
	SweepWindow int
	// SweepBuffer is the absolute confirmation buffer a breach must exceed.
	// When zero, SweepBufferRel of the pool price is used instead.
	SweepBuffer    float64
	SweepBufferRel float64
}

// DefaultLiquidityConfig returns the standard detector tuning.
func DefaultLiquidityConfig() LiquidityConfig {
	return LiquidityConfig{
		EqualLevelTolerance: 0.0015, // 0.15%
		MinOccurrences:      2,
		SwingNeighbors:      2,
		SweepWindow:         10,
		SweepBufferRel:      0.0005,
	}
}

// PoolDetector finds liquidity pools in a candle window.
type PoolDetector struct {
	cfg LiquidityConfig
}

// NewPoolDetector creates a detector with the given config, filling in
// defaults for zero values.
func NewPoolDetector(cfg LiquidityConfig) *PoolDetector {
	def := DefaultLiquidityConfig()
	if cfg.EqualLevelTolerance <= 0 {
		cfg.EqualLevelTolerance = def.EqualLevelTolerance
	}
	if cfg.MinOccurrences <= 0 {
		cfg.MinOccurrences = def.MinOccurrences
	}
	if cfg.SwingNeighbors <= 0 {
		cfg.SwingNeighbors = def.SwingNeighbors
	}
	if cfg.SweepWindow <= 0 {
		cfg.SweepWindow = def.SweepWindow
	}
	if cfg.SweepBuffer <= 0 && cfg.SweepBufferRel <= 0 {
		cfg.SweepBufferRel = def.SweepBufferRel
	}
	return &PoolDetector{cfg: cfg}
}

// DetectPools finds all liquidity pools in the trailing lookback of the
// window. Pool indexes refer to positions in the candles slice. With
// insufficient data it returns no pools and a reasoning string.
func (d *PoolDetector) DetectPools(candles []market.Candle, lookback int) ([]LiquidityPool, []string) {
	minCandles := d.cfg.SwingNeighbors*2 + 1
	if len(candles) < minCandles {
		return nil, []string{fmt.Sprintf("insufficient candles for pool detection: %d < %d", len(candles), minCandles)}
	}

	start := 0
	if lookback > 0 && len(candles) > lookback {
		start = len(candles) - lookback
	}

	var pools []LiquidityPool
	var reasoning []string

	eq := d.equalLevelPools(candles, start)
	pools = append(pools, eq...)
	reasoning = append(reasoning, fmt.Sprintf("equal-level pools: %d", len(eq)))

	sw := d.swingPools(candles, start)
	pools = append(pools, sw...)
	reasoning = append(reasoning, fmt.Sprintf("swing pools: %d", len(sw)))

	se := d.sessionPools(candles)
	pools = append(pools, se...)
	reasoning = append(reasoning, fmt.Sprintf("session pools: %d", len(se)))

	te := d.timeframePools(candles)
	pools = append(pools, te...)
	reasoning = append(reasoning, fmt.Sprintf("timeframe-extrema pools: %d", len(te)))

	return pools, reasoning
}

type levelCluster struct {
	anchor  float64
	indexes []int
}

// equalLevelPools clusters highs, then lows, in chronological order. The
// cluster anchor is the first price seen, so results depend on iteration
// order; this bias is intentional and documented, not corrected.
func (d *PoolDetector) equalLevelPools(candles []market.Candle, start int) []LiquidityPool {
	highs := d.clusterLevels(candles, start, true)
	lows := d.clusterLevels(candles, start, false)

	var pools []LiquidityPool
	for _, c := range highs {
		if len(c.indexes) < d.cfg.MinOccurrences {
			continue
		}
		pools = append(pools, LiquidityPool{
			Price:         c.anchor,
			Side:          PoolHigh,
			Category:      PoolEqualLevels,
			Occurrences:   len(c.indexes),
			CandleIndexes: c.indexes,
			SweptIndex:    -1,
		})
	}
	for _, c := range lows {
		if len(c.indexes) < d.cfg.MinOccurrences {
			continue
		}
		pools = append(pools, LiquidityPool{
			Price:         c.anchor,
			Side:          PoolLow,
			Category:      PoolEqualLevels,
			Occurrences:   len(c.indexes),
			CandleIndexes: c.indexes,
			SweptIndex:    -1,
		})
	}
	return pools
}

func (d *PoolDetector) clusterLevels(candles []market.Candle, start int, highs bool) []levelCluster {
	var clusters []levelCluster
	for i := start; i < len(candles); i++ {
		price := candles[i].Low
		if highs {
			price = candles[i].High
		}
		joined := false
		for ci := range clusters {
			anchor := clusters[ci].anchor
			if anchor <= 0 {
				continue
			}
			diff := price - anchor
			if diff < 0 {
				diff = -diff
			}
			if diff/anchor <= d.cfg.EqualLevelTolerance {
				clusters[ci].indexes = append(clusters[ci].indexes, i)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, levelCluster{anchor: price, indexes: []int{i}})
		}
	}
	return clusters
}

// swingPools finds fractal swing highs/lows: a candle whose high exceeds
// (low undercuts) its SwingNeighbors neighbors on each side.
func (d *PoolDetector) swingPools(candles []market.Candle, start int) []LiquidityPool {
	n := d.cfg.SwingNeighbors
	lo := start
	if lo < n {
		lo = n
	}

	var pools []LiquidityPool
	for i := lo; i < len(candles)-n; i++ {
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
			pools = append(pools, LiquidityPool{
				Price:         candles[i].High,
				Side:          PoolHigh,
				Category:      PoolSwing,
				CandleIndexes: []int{i},
				SweptIndex:    -1,
			})
		}
		if isLow {
			pools = append(pools, LiquidityPool{
				Price:         candles[i].Low,
				Side:          PoolLow,
				Category:      PoolSwing,
				CandleIndexes: []int{i},
				SweptIndex:    -1,
			})
		}
	}
	return pools
}

// sessionPools records each named session's high and low over the
// trailing 24h of the window. Sessions without a candle in the window
// contribute nothing.
func (d *PoolDetector) sessionPools(candles []market.Candle) []LiquidityPool {
	if len(candles) == 0 {
		return nil
	}
	last := candles[len(candles)-1]
	cutoff := last.Timestamp - int64(24*time.Hour/time.Millisecond)

	var pools []LiquidityPool
	for _, sess := range market.TradingSessions {
		hiIdx, loIdx := -1, -1
		var hi, lo float64
		for i, c := range candles {
			if c.Timestamp < cutoff {
				continue
			}
			if !sess.IsOpen(c.Time()) {
				continue
			}
			if hiIdx == -1 || c.High > hi {
				hi, hiIdx = c.High, i
			}
			if loIdx == -1 || c.Low < lo {
				lo, loIdx = c.Low, i
			}
		}
		if hiIdx == -1 {
			continue
		}
		pools = append(pools,
			LiquidityPool{Price: hi, Side: PoolHigh, Category: PoolSession, CandleIndexes: []int{hiIdx}, SweptIndex: -1, Label: sess.Name},
			LiquidityPool{Price: lo, Side: PoolLow, Category: PoolSession, CandleIndexes: []int{loIdx}, SweptIndex: -1, Label: sess.Name},
		)
	}
	return pools
}

// timeframePools records rolling extrema over trailing windows that
// approximate daily, weekly and monthly spans on the window's timeframe.
func (d *PoolDetector) timeframePools(candles []market.Candle) []LiquidityPool {
	if len(candles) == 0 {
		return nil
	}
	tfMin := candles[0].Timeframe.Minutes()
	if tfMin <= 0 {
		return nil
	}

	spans := []struct {
		category PoolCategory
		minutes  int
	}{
		{PoolDaily, 1440},
		{PoolWeekly, 1440 * 7},
		{PoolMonthly, 1440 * 30},
	}

	var pools []LiquidityPool
	for _, span := range spans {
		want := span.minutes / tfMin
		if want < 2 {
			continue
		}
		// Require at least half the span before reporting an extremum.
		if len(candles) < want/2 {
			continue
		}
		start := len(candles) - want
		if start < 0 {
			start = 0
		}
		hiIdx, loIdx := start, start
		for i := start + 1; i < len(candles); i++ {
			if candles[i].High > candles[hiIdx].High {
				hiIdx = i
			}
			if candles[i].Low < candles[loIdx].Low {
				loIdx = i
			}
		}
		pools = append(pools,
			LiquidityPool{Price: candles[hiIdx].High, Side: PoolHigh, Category: span.category, CandleIndexes: []int{hiIdx}, SweptIndex: -1},
			LiquidityPool{Price: candles[loIdx].Low, Side: PoolLow, Category: span.category, CandleIndexes: []int{loIdx}, SweptIndex: -1},
		)
	}
	return pools
}

func (d *PoolDetector) sweepBuffer(poolPrice float64) float64 {
	if d.cfg.SweepBuffer > 0 {
		return d.cfg.SweepBuffer
	}
	return poolPrice * d.cfg.SweepBufferRel
}

// DetectSweeps scans the most recent SweepWindow candles and marks the
// first not-yet-swept pool, in pool slice order, whose boundary is
// exceeded by more than the confirmation buffer. At most one pool is
// marked per call and already-swept pools are never re-flagged, so
// repeated runs over the same window flag each pool at most once.
//
// The tie-break is deliberately iteration order, not nearest-to-price:
// equal-level pools come first, then swing, session and timeframe
// extrema, matching the order DetectPools emits them.
func (d *PoolDetector) DetectSweeps(pools []LiquidityPool, candles []market.Candle) int {
	if len(candles) == 0 {
		return -1
	}
	start := len(candles) - d.cfg.SweepWindow
	if start < 0 {
		start = 0
	}

	for pi := range pools {
		if pools[pi].Swept {
			continue
		}
		buffer := d.sweepBuffer(pools[pi].Price)
		for ci := start; ci < len(candles); ci++ {
			breached := false
			switch pools[pi].Side {
			case PoolHigh:
				breached = candles[ci].High > pools[pi].Price+buffer
			case PoolLow:
				breached = candles[ci].Low < pools[pi].Price-buffer
			}
			if breached {
				pools[pi].Swept = true
				pools[pi].SweptIndex = ci
				return pi
			}
		}
	}
	return -1
}
