package market

// Timeframe identifies a candle interval.
type Timeframe string

const (
	TF1D  Timeframe = "1D"
	TF4H  Timeframe = "4H"
	TF2H  Timeframe = "2H"
	TF1H  Timeframe = "1H"
	TF30M Timeframe = "30M"
	TF15M Timeframe = "15M"
	TF5M  Timeframe = "5M"
	TF3M  Timeframe = "3M"
	TF1M  Timeframe = "1M"
)

// AllTimeframes lists every timeframe the engine fetches, coarsest first.
var AllTimeframes = []Timeframe{TF1D, TF4H, TF2H, TF1H, TF30M, TF15M, TF5M, TF3M, TF1M}

// Minutes returns the interval length in minutes.
func (tf Timeframe) Minutes() int {
	switch tf {
	case TF1D:
		return 1440
	case TF4H:
		return 240
	case TF2H:
		return 120
	case TF1H:
		return 60
	case TF30M:
		return 30
	case TF15M:
		return 15
	case TF5M:
		return 5
	case TF3M:
		return 3
	case TF1M:
		return 1
	}
	return 0
}

// Valid reports whether tf is a supported interval.
func (tf Timeframe) Valid() bool {
	return tf.Minutes() > 0
}

// fetchCounts maps each timeframe to the window size fetched per scan.
// Coarse timeframes need fewer candles to cover the same lookback span.
var fetchCounts = map[Timeframe]int{
	TF1D:  60,
	TF4H:  120,
	TF2H:  120,
	TF1H:  150,
	TF30M: 150,
	TF15M: 200,
	TF5M:  200,
	TF3M:  200,
	TF1M:  240,
}

// FetchCount returns how many candles a scan requests for the timeframe.
func (tf Timeframe) FetchCount() int {
	if n, ok := fetchCounts[tf]; ok {
		return n
	}
	return 100
}
