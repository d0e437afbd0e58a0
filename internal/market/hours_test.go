package market

import (
	"testing"
	"time"
)

// 2025-06-02 is a Monday, 2025-06-07 a Saturday.
var (
	mondayLondon  = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	mondayOverlap = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	mondayQuiet   = time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC) // sydney only
	saturday      = time.Date(2025, 6, 7, 14, 0, 0, 0, time.UTC)
)

func TestSessionWrapsMidnight(t *testing.T) {
	sydney := TradingSessions[0]
	if sydney.Name != "sydney" {
		t.Fatalf("session table order changed, got %s first", sydney.Name)
	}
	if !sydney.IsOpen(time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)) {
		t.Error("sydney should be open at 23:00 UTC")
	}
	if !sydney.IsOpen(time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)) {
		t.Error("sydney should be open at 03:00 UTC")
	}
	if sydney.IsOpen(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)) {
		t.Error("sydney should be closed at 12:00 UTC")
	}
}

func TestCryptoNeverCloses(t *testing.T) {
	for _, now := range []time.Time{mondayLondon, mondayQuiet, saturday} {
		open, reason := IsMarketOpen(AssetCrypto, now)
		if !open {
			t.Errorf("crypto closed at %s: %s", now, reason)
		}
	}
}

func TestForexClosedOnWeekend(t *testing.T) {
	open, reason := IsMarketOpen(AssetForex, saturday)
	if open {
		t.Error("forex must be closed on saturday")
	}
	if reason == "" {
		t.Error("closed market must carry a reason")
	}

	if open, _ := IsMarketOpen(AssetForex, mondayLondon); !open {
		t.Error("forex should be open monday during london hours")
	}
}

func TestStocksNeedNewYorkSession(t *testing.T) {
	if open, _ := IsMarketOpen(AssetStock, mondayOverlap); !open {
		t.Error("stocks should trade during new york hours")
	}
	if open, _ := IsMarketOpen(AssetStock, mondayLondon); open {
		t.Error("stocks should not trade at 10:00 UTC")
	}
	if open, _ := IsMarketOpen(AssetStock, mondayQuiet); open {
		t.Error("stocks should not trade during the sydney-only window")
	}
}

func TestActiveSessionsOverlap(t *testing.T) {
	names := func(sessions []Session) map[string]bool {
		out := make(map[string]bool, len(sessions))
		for _, s := range sessions {
			out[s.Name] = true
		}
		return out
	}

	got := names(ActiveSessions(mondayOverlap))
	if !got["london"] || !got["new_york"] {
		t.Errorf("14:00 UTC should be the london/new_york overlap, got %v", got)
	}
	got = names(ActiveSessions(mondayQuiet))
	if !got["sydney"] || len(got) != 1 {
		t.Errorf("23:00 UTC should be sydney only, got %v", got)
	}
}

func TestFilterTradeablePartitionsUniverse(t *testing.T) {
	universe := []Instrument{
		NewInstrument("EUR/USD", AssetForex, 1.0850),
		NewInstrument("BTC/USD", AssetCrypto, 104500.0),
		NewInstrument("AAPL", AssetStock, 235.0),
	}

	res := FilterTradeable(universe, saturday)
	if len(res.Tradeable) != 1 || res.Tradeable[0].Symbol != "BTC/USD" {
		t.Errorf("only crypto trades on saturday, got %+v", res.Tradeable)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skipped, got %d", len(res.Skipped))
	}
	for _, s := range res.Skipped {
		if s.Reason == "" {
			t.Errorf("skipped %s without a reason", s.Instrument.Symbol)
		}
	}

	res = FilterTradeable(universe, mondayOverlap)
	if len(res.Tradeable) != 3 {
		t.Errorf("everything trades in the london/new_york overlap, got %d", len(res.Tradeable))
	}
}

func TestPipSizeInference(t *testing.T) {
	cases := []struct {
		symbol string
		class  AssetClass
		want   float64
	}{
		{"EUR/USD", AssetForex, 0.0001},
		{"USD/JPY", AssetForex, 0.01},
		{"XAU/USD", AssetCommodity, 0.1},
		{"WTI/USD", AssetCommodity, 0.01},
		{"BTC/USD", AssetCrypto, 1.0},
		{"US30", AssetIndex, 0.01},
	}
	for _, c := range cases {
		if got := PipSizeFor(c.symbol, c.class); got != c.want {
			t.Errorf("%s: expected pip %v, got %v", c.symbol, c.want, got)
		}
	}
}
