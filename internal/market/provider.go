package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// CandleProvider supplies ordered OHLCV sequences per instrument per
// timeframe. Implementations must return candles in ascending timestamp
// order.
type CandleProvider interface {
	// FetchCandles returns up to count candles for the symbol/timeframe,
	// oldest first.
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, count int) ([]Candle, error)

	// FetchMultiTimeframe fetches all analysis timeframes for a symbol.
	// Individual timeframe failures leave that window empty rather than
	// failing the whole fetch.
	FetchMultiTimeframe(ctx context.Context, symbol string) (*MultiTimeframeData, error)

	// CurrentPrice returns the latest traded price for the symbol.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// ErrNoData is returned when a provider has no candles for a request.
var ErrNoData = errors.New("no candle data available")

// ValidateAscending checks that candles are chronological and returns an
// error naming the first out-of-order pair.
func ValidateAscending(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp < candles[i-1].Timestamp {
			return fmt.Errorf("candles out of order at index %d: %d < %d",
				i, candles[i].Timestamp, candles[i-1].Timestamp)
		}
	}
	return nil
}

// SortAscending sorts candles by timestamp in place.
func SortAscending(candles []Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
}
