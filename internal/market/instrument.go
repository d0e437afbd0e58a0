package market

import "strings"

// AssetClass groups instruments by market behavior and trading hours.
type AssetClass string

const (
	AssetForex     AssetClass = "forex"
	AssetIndex     AssetClass = "index"
	AssetStock     AssetClass = "stock"
	AssetCommodity AssetClass = "commodity"
	AssetCrypto    AssetClass = "crypto"
)

// Instrument represents a tradeable symbol.
type Instrument struct {
	Symbol       string     `json:"symbol"`
	AssetClass   AssetClass `json:"asset_class"`
	DefaultPrice float64    `json:"default_price"` // fallback when no live quote is available
	PipSize      float64    `json:"pip_size"`
}

// NewInstrument builds an instrument with the pip size inferred from the
// symbol and asset class.
func NewInstrument(symbol string, class AssetClass, defaultPrice float64) Instrument {
	return Instrument{
		Symbol:       symbol,
		AssetClass:   class,
		DefaultPrice: defaultPrice,
		PipSize:      PipSizeFor(symbol, class),
	}
}

// PipSizeFor returns the minimum meaningful price increment for a symbol.
// JPY forex pairs quote to two decimals, everything else forex to four;
// gold uses tenths, crypto whole units.
func PipSizeFor(symbol string, class AssetClass) float64 {
	switch class {
	case AssetForex:
		if strings.Contains(symbol, "JPY") {
			return 0.01
		}
		return 0.0001
	case AssetIndex, AssetStock:
		return 0.01
	case AssetCommodity:
		if strings.Contains(symbol, "XAU") {
			return 0.1
		}
		return 0.01
	case AssetCrypto:
		return 1.0
	}
	return 0.0001
}

// DefaultUniverse returns the built-in instrument universe, grouped by
// asset class.
func DefaultUniverse() []Instrument {
	instruments := []Instrument{
		// Forex majors
		NewInstrument("EUR/USD", AssetForex, 1.0850),
		NewInstrument("GBP/USD", AssetForex, 1.2650),
		NewInstrument("USD/JPY", AssetForex, 149.50),
		NewInstrument("USD/CHF", AssetForex, 0.8750),
		NewInstrument("AUD/USD", AssetForex, 0.6580),
		NewInstrument("USD/CAD", AssetForex, 1.3550),
		NewInstrument("NZD/USD", AssetForex, 0.6150),

		// Forex crosses
		NewInstrument("EUR/GBP", AssetForex, 0.8580),
		NewInstrument("EUR/JPY", AssetForex, 162.00),
		NewInstrument("EUR/CHF", AssetForex, 0.9500),
		NewInstrument("EUR/AUD", AssetForex, 1.6500),
		NewInstrument("GBP/JPY", AssetForex, 185.50),
		NewInstrument("GBP/CHF", AssetForex, 1.1050),
		NewInstrument("AUD/JPY", AssetForex, 98.50),
		NewInstrument("CAD/JPY", AssetForex, 110.50),
		NewInstrument("CHF/JPY", AssetForex, 170.75),
		NewInstrument("AUD/NZD", AssetForex, 1.0700),

		// Indices
		NewInstrument("US30", AssetIndex, 44500.0),
		NewInstrument("SPX500", AssetIndex, 6050.0),
		NewInstrument("NAS100", AssetIndex, 21500.0),
		NewInstrument("GER40", AssetIndex, 20300.0),
		NewInstrument("UK100", AssetIndex, 8250.0),
		NewInstrument("JPN225", AssetIndex, 39500.0),

		// Commodities
		NewInstrument("XAU/USD", AssetCommodity, 2650.0),
		NewInstrument("XAG/USD", AssetCommodity, 31.00),
		NewInstrument("WTI/USD", AssetCommodity, 70.50),

		// Stocks
		NewInstrument("AAPL", AssetStock, 235.0),
		NewInstrument("MSFT", AssetStock, 430.0),
		NewInstrument("NVDA", AssetStock, 140.0),
		NewInstrument("TSLA", AssetStock, 350.0),
		NewInstrument("AMZN", AssetStock, 215.0),

		// Crypto
		NewInstrument("BTC/USD", AssetCrypto, 104500.0),
		NewInstrument("ETH/USD", AssetCrypto, 3900.0),
		NewInstrument("SOL/USD", AssetCrypto, 220.0),
		NewInstrument("XRP/USD", AssetCrypto, 2.35),
	}
	return instruments
}
