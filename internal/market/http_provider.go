package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// HTTPProviderConfig configures the REST/websocket market data client.
type HTTPProviderConfig struct {
	BaseURL      string        `json:"base_url"`
	StreamURL    string        `json:"stream_url"` // websocket quote stream, optional
	APIKey       string        `json:"api_key"`
	Timeout      time.Duration `json:"timeout"`
	QuoteMaxAge  time.Duration `json:"quote_max_age"`
	StreamEnable bool          `json:"stream_enable"`
}

// HTTPProvider fetches candles over REST and keeps a live quote cache fed
// by an optional websocket stream. When the stream is down or a quote is
// stale the provider falls back to a REST price lookup.
type HTTPProvider struct {
	cfg     HTTPProviderConfig
	client  *http.Client
	breaker *FeedBreaker
	log     zerolog.Logger

	mu     sync.RWMutex
	quotes map[string]quote

	stopStream chan struct{}
	streamWG   sync.WaitGroup
}

type quote struct {
	price float64
	at    time.Time
}

// NewHTTPProvider creates a provider client. Call StartStream to enable
// live quotes.
func NewHTTPProvider(cfg HTTPProviderConfig, logger zerolog.Logger) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QuoteMaxAge <= 0 {
		cfg.QuoteMaxAge = 30 * time.Second
	}
	return &HTTPProvider{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		breaker:    NewFeedBreaker(DefaultFeedBreakerConfig()),
		log:        logger.With().Str("component", "HTTPProvider").Logger(),
		quotes:     make(map[string]quote),
		stopStream: make(chan struct{}),
	}
}

// Breaker exposes the feed breaker for status reporting.
func (p *HTTPProvider) Breaker() *FeedBreaker { return p.breaker }

// candlePayload is the wire shape of one candle from the data API.
type candlePayload struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchCandles requests candles over REST and validates ordering.
// Requests fail fast while the feed breaker is open.
func (p *HTTPProvider) FetchCandles(ctx context.Context, symbol string, tf Timeframe, count int) ([]Candle, error) {
	if err := p.breaker.Allow(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/candles?symbol=%s&timeframe=%s&limit=%d",
		p.cfg.BaseURL, url.QueryEscape(symbol), tf, count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build candle request: %w", err)
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.breaker.RecordFailure(err)
		return nil, fmt.Errorf("fetch candles %s %s: %w", symbol, tf, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch candles %s %s: status %d", symbol, tf, resp.StatusCode)
		p.breaker.RecordFailure(err)
		return nil, err
	}
	p.breaker.RecordSuccess()

	var payload []candlePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode candles %s %s: %w", symbol, tf, err)
	}
	if len(payload) == 0 {
		return nil, ErrNoData
	}

	candles := make([]Candle, 0, len(payload))
	for _, c := range payload {
		candles = append(candles, Candle{
			Timestamp: c.Timestamp,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			Timeframe: tf,
		})
	}

	SortAscending(candles)
	if err := ValidateAscending(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// FetchMultiTimeframe fetches every analysis timeframe. A failed timeframe
// is logged and left empty so one bad window does not abort the scan.
func (p *HTTPProvider) FetchMultiTimeframe(ctx context.Context, symbol string) (*MultiTimeframeData, error) {
	data := &MultiTimeframeData{}
	var fetched int
	for _, tf := range AllTimeframes {
		candles, err := p.FetchCandles(ctx, symbol, tf, tf.FetchCount())
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).
				Msg("timeframe fetch failed, leaving window empty")
			continue
		}
		data.Set(tf, candles)
		fetched++
	}
	if fetched == 0 {
		return nil, fmt.Errorf("fetch multi-timeframe %s: %w", symbol, ErrNoData)
	}
	return data, nil
}

// CurrentPrice returns the freshest known price, preferring the stream
// cache over a REST round trip.
func (p *HTTPProvider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	p.mu.RLock()
	q, ok := p.quotes[symbol]
	p.mu.RUnlock()
	if ok && time.Since(q.at) <= p.cfg.QuoteMaxAge {
		return q.price, nil
	}

	if err := p.breaker.Allow(); err != nil {
		// Degrade to the last streamed quote even if stale.
		if ok {
			return q.price, nil
		}
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/price?symbol=%s", p.cfg.BaseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.breaker.RecordFailure(err)
		if ok {
			return q.price, nil
		}
		return 0, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price %s: %w", symbol, err)
	}
	p.breaker.RecordSuccess()

	p.setQuote(symbol, body.Price)
	return body.Price, nil
}

func (p *HTTPProvider) setQuote(symbol string, price float64) {
	p.mu.Lock()
	p.quotes[symbol] = quote{price: price, at: time.Now()}
	p.mu.Unlock()
}

// streamTick is the wire shape of one quote from the websocket stream.
type streamTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// StartStream connects the websocket quote stream and keeps it alive with
// reconnect backoff until StopStream is called.
func (p *HTTPProvider) StartStream(symbols []string) {
	if !p.cfg.StreamEnable || p.cfg.StreamURL == "" {
		return
	}
	p.streamWG.Add(1)
	go func() {
		defer p.streamWG.Done()
		backoff := time.Second
		for {
			select {
			case <-p.stopStream:
				return
			default:
			}

			if err := p.runStream(symbols); err != nil {
				p.log.Warn().Err(err).Dur("backoff", backoff).Msg("quote stream disconnected")
			}

			select {
			case <-p.stopStream:
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
}

func (p *HTTPProvider) runStream(symbols []string) error {
	conn, _, err := websocket.DefaultDialer.Dial(p.cfg.StreamURL, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	sub := struct {
		Action  string   `json:"action"`
		Symbols []string `json:"symbols"`
	}{Action: "subscribe", Symbols: symbols}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	p.log.Info().Int("symbols", len(symbols)).Msg("quote stream connected")

	for {
		select {
		case <-p.stopStream:
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(time.Minute))
		var tick streamTick
		if err := conn.ReadJSON(&tick); err != nil {
			return fmt.Errorf("read tick: %w", err)
		}
		if tick.Symbol != "" && tick.Price > 0 {
			p.setQuote(tick.Symbol, tick.Price)
		}
	}
}

// StopStream shuts down the websocket stream.
func (p *HTTPProvider) StopStream() {
	close(p.stopStream)
	p.streamWG.Wait()
}

var _ CandleProvider = (*HTTPProvider)(nil)
