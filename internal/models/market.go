package models

// Timeframe is an OHLCV aggregation granularity. Session data only exists
// below daily granularity.
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

// Valid reports whether the timeframe is one of the supported values.
func (t Timeframe) Valid() bool {
	switch t {
	case Timeframe15m, Timeframe1h, Timeframe4h, Timeframe1d, Timeframe1w:
		return true
	}
	return false
}

// IsIntraday reports whether the timeframe is below daily granularity.
// Only intraday candles carry a session dimension.
func (t Timeframe) IsIntraday() bool {
	switch t {
	case Timeframe15m, Timeframe1h, Timeframe4h:
		return true
	}
	return false
}

// Session is a trading session window.
type Session string

const (
	SessionAsian   Session = "asian"
	SessionLondon  Session = "london"
	SessionNewYork Session = "new_york"
)

// Valid reports whether the session is one of the supported values.
func (s Session) Valid() bool {
	switch s {
	case SessionAsian, SessionLondon, SessionNewYork:
		return true
	}
	return false
}

// HighLiquiditySessions are the sessions bound when a request asks for
// high_liquidity session relevance on an intraday timeframe.
var HighLiquiditySessions = []Session{SessionLondon, SessionNewYork}

// MajorPairs is the fixed major-pair universe.
var MajorPairs = []string{
	"eurusd", "gbpusd", "usdjpy", "usdchf", "audusd", "usdcad", "nzdusd",
}

// CrossPairs is the fixed cross-pair universe.
var CrossPairs = []string{
	"eurgbp", "eurjpy", "gbpjpy", "euraud", "audjpy", "chfjpy", "eurchf", "audnzd",
}

// IsMajorPair reports whether the symbol belongs to the major-pair universe.
func IsMajorPair(symbol string) bool {
	return containsString(MajorPairs, symbol)
}

// IsCrossPair reports whether the symbol belongs to the cross-pair universe.
func IsCrossPair(symbol string) bool {
	return containsString(CrossPairs, symbol)
}

// IsSupportedSymbol reports whether the symbol belongs to either universe.
func IsSupportedSymbol(symbol string) bool {
	return IsMajorPair(symbol) || IsCrossPair(symbol)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
