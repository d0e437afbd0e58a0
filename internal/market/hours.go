package market

import (
	"fmt"
	"time"
)

// Session describes a named trading session by its UTC hours. Sessions
// that wrap midnight have OpenHour > CloseHour.
type Session struct {
	Name         string
	OpenHour     int
	CloseHour    int
	AssetClasses []AssetClass
}

// TradingSessions is the fixed session table, in priority order. The last
// open session in this list is considered the primary one.
var TradingSessions = []Session{
	{Name: "sydney", OpenHour: 21, CloseHour: 6, AssetClasses: []AssetClass{AssetForex, AssetCrypto}},
	{Name: "tokyo", OpenHour: 0, CloseHour: 9, AssetClasses: []AssetClass{AssetForex, AssetCrypto}},
	{Name: "london", OpenHour: 7, CloseHour: 16, AssetClasses: []AssetClass{AssetForex, AssetIndex, AssetCommodity, AssetCrypto}},
	{Name: "new_york", OpenHour: 13, CloseHour: 22, AssetClasses: []AssetClass{AssetForex, AssetStock, AssetIndex, AssetCommodity, AssetCrypto}},
}

// IsOpen reports whether the session is open at the given time.
func (s Session) IsOpen(now time.Time) bool {
	h := now.UTC().Hour()
	if s.OpenHour < s.CloseHour {
		return h >= s.OpenHour && h < s.CloseHour
	}
	return h >= s.OpenHour || h < s.CloseHour
}

// Covers reports whether the session trades the given asset class.
func (s Session) Covers(class AssetClass) bool {
	for _, c := range s.AssetClasses {
		if c == class {
			return true
		}
	}
	return false
}

// ActiveSessions returns all sessions open at the given time.
func ActiveSessions(now time.Time) []Session {
	var active []Session
	for _, s := range TradingSessions {
		if s.IsOpen(now) {
			active = append(active, s)
		}
	}
	return active
}

// IsMarketOpen reports whether the market for an asset class is open,
// with a human-readable reason when it is not. Crypto never closes.
func IsMarketOpen(class AssetClass, now time.Time) (bool, string) {
	if class == AssetCrypto {
		return true, ""
	}

	now = now.UTC()
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false, fmt.Sprintf("weekend, %s market closed", class)
	}

	active := ActiveSessions(now)
	for i := len(active) - 1; i >= 0; i-- {
		if active[i].Covers(class) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("no active session for %s", class)
}

// SkippedInstrument pairs a skipped instrument with the reason.
type SkippedInstrument struct {
	Instrument Instrument
	Reason     string
}

// FilterResult partitions an instrument universe by tradeability.
type FilterResult struct {
	Tradeable []Instrument
	Skipped   []SkippedInstrument
}

// FilterTradeable splits instruments into those whose market is open now
// and those skipped with a reason.
func FilterTradeable(instruments []Instrument, now time.Time) FilterResult {
	var result FilterResult
	for _, inst := range instruments {
		open, reason := IsMarketOpen(inst.AssetClass, now)
		if !open {
			result.Skipped = append(result.Skipped, SkippedInstrument{Instrument: inst, Reason: reason})
			continue
		}
		result.Tradeable = append(result.Tradeable, inst)
	}
	return result
}

// SessionInfo summarizes the current session state for status reporting.
type SessionInfo struct {
	CurrentUTC     string   `json:"current_utc"`
	Weekday        string   `json:"weekday"`
	ActiveSessions []string `json:"active_sessions"`
	ForexOpen      bool     `json:"forex_open"`
	StockOpen      bool     `json:"stock_open"`
	CryptoOpen     bool     `json:"crypto_open"`
}

// CurrentSessionInfo builds a SessionInfo snapshot for the given time.
func CurrentSessionInfo(now time.Time) SessionInfo {
	now = now.UTC()
	info := SessionInfo{
		CurrentUTC: now.Format(time.RFC3339),
		Weekday:    now.Weekday().String(),
		CryptoOpen: true,
	}
	for _, s := range ActiveSessions(now) {
		info.ActiveSessions = append(info.ActiveSessions, s.Name)
	}
	info.ForexOpen, _ = IsMarketOpen(AssetForex, now)
	info.StockOpen, _ = IsMarketOpen(AssetStock, now)
	return info
}
