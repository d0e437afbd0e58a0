package market

import "time"

// Candle represents a single OHLCV candle. Candles are immutable once
// produced; detectors treat windows as read-only chronological slices.
type Candle struct {
	Timestamp int64     `json:"timestamp"` // milliseconds since epoch
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timeframe Timeframe `json:"timeframe"`
}

// Time returns the candle open time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// BodySize returns the absolute open-to-close distance.
func (c Candle) BodySize() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low distance.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// UpperWick returns the distance from the body top to the high.
func (c Candle) UpperWick() float64 {
	if c.Open > c.Close {
		return c.High - c.Open
	}
	return c.High - c.Close
}

// LowerWick returns the distance from the low to the body bottom.
func (c Candle) LowerWick() float64 {
	if c.Open < c.Close {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// BodyRatio returns body size relative to the full range. Zero-range
// candles yield 0 so callers never divide by zero.
func (c Candle) BodyRatio() float64 {
	r := c.Range()
	if r <= 0 {
		return 0
	}
	return c.BodySize() / r
}

// MultiTimeframeData holds candle windows for every timeframe the engine
// analyzes. Missing timeframes are simply empty slices.
type MultiTimeframeData struct {
	D1  []Candle
	H4  []Candle
	H2  []Candle
	H1  []Candle
	M30 []Candle
	M15 []Candle
	M5  []Candle
	M3  []Candle
	M1  []Candle
}

// ForTimeframe returns the candle window for the given timeframe.
func (d *MultiTimeframeData) ForTimeframe(tf Timeframe) []Candle {
	switch tf {
	case TF1D:
		return d.D1
	case TF4H:
		return d.H4
	case TF2H:
		return d.H2
	case TF1H:
		return d.H1
	case TF30M:
		return d.M30
	case TF15M:
		return d.M15
	case TF5M:
		return d.M5
	case TF3M:
		return d.M3
	case TF1M:
		return d.M1
	}
	return nil
}

// Set stores a candle window under the given timeframe.
func (d *MultiTimeframeData) Set(tf Timeframe, candles []Candle) {
	switch tf {
	case TF1D:
		d.D1 = candles
	case TF4H:
		d.H4 = candles
	case TF2H:
		d.H2 = candles
	case TF1H:
		d.H1 = candles
	case TF30M:
		d.M30 = candles
	case TF15M:
		d.M15 = candles
	case TF5M:
		d.M5 = candles
	case TF3M:
		d.M3 = candles
	case TF1M:
		d.M1 = candles
	}
}
