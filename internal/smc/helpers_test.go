package smc

import (
	"time"

	"signal-scanner/internal/market"
)

var testStart = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

// series builds a 15M candle window from [open, high, low, close] rows.
func series(rows [][4]float64) []market.Candle {
	candles := make([]market.Candle, 0, len(rows))
	for i, r := range rows {
		candles = append(candles, market.Candle{
			Timestamp: testStart.Add(time.Duration(i) * 15 * time.Minute).UnixMilli(),
			Open:      r[0],
			High:      r[1],
			Low:       r[2],
			Close:     r[3],
			Volume:    1000,
			Timeframe: market.TF15M,
		})
	}
	return candles
}

// reversalScenario is a 40-candle uptrend that tops out, breaks several
// demand zones cleanly and prints a lower low at index 30. It produces:
// demand zones at indexes 3, 4, 9 and 10, a strong supply zone at index
// 19, swing structure HL(3) HH(6) HL(8) HH(19) LL(30), and a shallow
// bounce that never re-enters the broken zones.
func reversalScenario() []market.Candle {
	return series([][4]float64{
		{100.0, 100.4, 99.6, 100.1},    // 0
		{100.1, 100.6, 99.9, 100.3},    // 1
		{100.3, 100.7, 99.9, 100.0},    // 2
		{100.0, 100.5, 99.5, 100.2},    // 3  demand base
		{100.2, 101.8, 100.1, 101.7},   // 4  impulse, also a base
		{101.7, 102.5, 101.6, 102.4},   // 5
		{102.4, 103.6, 102.3, 103.4},   // 6  swing high
		{103.4, 103.5, 102.0, 102.2},   // 7
		{102.2, 102.6, 101.9, 102.5},   // 8  swing low
		{102.5, 102.9, 102.1, 102.7},   // 9  demand base
		{102.7, 104.3, 102.6, 104.2},   // 10 impulse, also a base
		{104.2, 104.9, 104.1, 104.8},   // 11
		{104.8, 105.3, 104.7, 105.2},   // 12
		{105.2, 105.4, 104.9, 105.0},   // 13
		{105.0, 105.5, 104.8, 105.3},   // 14
		{105.3, 105.8, 105.1, 105.6},   // 15
		{105.6, 106.0, 105.4, 105.8},   // 16
		{105.8, 106.2, 105.6, 106.0},   // 17
		{106.0, 106.5, 105.9, 106.3},   // 18
		{106.3, 106.8, 105.9, 106.1},   // 19 supply base, swing high
		{106.1, 106.2, 104.7, 104.8},   // 20 bearish impulse
		{104.8, 104.9, 104.2, 104.35},  // 21
		{104.35, 104.6, 104.3, 104.5},  // 22
		{104.5, 104.6, 101.85, 101.95}, // 23 breaks demand at 9/10
		{101.95, 102.05, 101.9, 102.0}, // 24
		{102.0, 102.1, 98.9, 99.0},     // 25 breaks demand at 3/4
		{99.0, 99.3, 98.9, 99.2},       // 26
		{99.2, 99.3, 98.4, 98.5},       // 27
		{98.5, 98.8, 98.4, 98.7},       // 28
		{98.7, 98.8, 97.8, 97.9},       // 29
		{97.9, 98.0, 97.0, 97.95},      // 30 lower low pivot
		{97.95, 98.3, 97.9, 98.15},     // 31
		{98.15, 98.45, 98.05, 98.35},   // 32
		{98.35, 98.6, 98.25, 98.5},     // 33
		{98.5, 98.75, 98.4, 98.65},     // 34
		{98.65, 98.9, 98.55, 98.8},     // 35
		{98.8, 99.0, 98.7, 98.9},       // 36
		{98.9, 99.1, 98.8, 99.0},       // 37
		{99.0, 99.2, 98.9, 99.1},       // 38
		{99.1, 99.3, 99.0, 99.2},       // 39
	})
}
