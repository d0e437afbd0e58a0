package market

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"
)

// MockProvider generates deterministic simulated OHLCV data for
// development and tests. Each symbol gets its own seeded random walk so
// repeated fetches over the same window are reproducible.
type MockProvider struct {
	mu         sync.Mutex
	basePrices map[string]float64
	now        func() time.Time
}

// NewMockProvider creates a mock provider seeded with the default
// universe's prices.
func NewMockProvider() *MockProvider {
	prices := make(map[string]float64)
	for _, inst := range DefaultUniverse() {
		prices[inst.Symbol] = inst.DefaultPrice
	}
	return &MockProvider{
		basePrices: prices,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (m *MockProvider) SetNow(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *MockProvider) basePrice(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.basePrices[symbol]; ok {
		return p
	}
	return 100.0
}

func symbolSeed(symbol string, tf Timeframe) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(tf))
	return int64(h.Sum64())
}

// FetchCandles returns a seeded random walk ending near the symbol's base
// price, with mild trend segments so structure detectors have something
// to find.
func (m *MockProvider) FetchCandles(_ context.Context, symbol string, tf Timeframe, count int) ([]Candle, error) {
	if count <= 0 {
		return nil, ErrNoData
	}

	rng := rand.New(rand.NewSource(symbolSeed(symbol, tf)))
	base := m.basePrice(symbol)
	step := time.Duration(tf.Minutes()) * time.Minute

	m.mu.Lock()
	end := m.now().UTC().Truncate(step)
	m.mu.Unlock()

	price := base * (0.97 + rng.Float64()*0.02)
	candles := make([]Candle, 0, count)
	start := end.Add(-step * time.Duration(count))

	for i := 0; i < count; i++ {
		// Gentle sinusoidal drift plus noise gives alternating trend legs.
		drift := math.Sin(float64(i)/18.0) * 0.0015
		change := drift + (rng.Float64()-0.5)*0.004

		open := price
		close := open * (1 + change)
		high := math.Max(open, close) * (1 + rng.Float64()*0.0012)
		low := math.Min(open, close) * (1 - rng.Float64()*0.0012)

		candles = append(candles, Candle{
			Timestamp: start.Add(step * time.Duration(i)).UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + rng.Float64()*5000,
			Timeframe: tf,
		})
		price = close
	}
	return candles, nil
}

// FetchMultiTimeframe fills every timeframe window from the generator.
func (m *MockProvider) FetchMultiTimeframe(ctx context.Context, symbol string) (*MultiTimeframeData, error) {
	data := &MultiTimeframeData{}
	for _, tf := range AllTimeframes {
		candles, err := m.FetchCandles(ctx, symbol, tf, tf.FetchCount())
		if err != nil {
			continue
		}
		data.Set(tf, candles)
	}
	return data, nil
}

// CurrentPrice returns the close of the freshest 1M candle.
func (m *MockProvider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	candles, err := m.FetchCandles(ctx, symbol, TF1M, 2)
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}

var _ CandleProvider = (*MockProvider)(nil)
