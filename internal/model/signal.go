package model

import "time"

// Signal is the recommendation attached to an analysis.
type Signal string

const (
	SignalBuy   Signal = "BUY"
	SignalSell  Signal = "SELL"
	SignalHold  Signal = "HOLD"
	SignalWait  Signal = "WAIT"
	SignalError Signal = "ERROR"
)

// Signals lists the verdicts a generator may emit, in scan order.
var Signals = []Signal{SignalBuy, SignalSell, SignalHold, SignalWait}

// Verdict is the structured form of the generator's free text.
type Verdict struct {
	Signal      Signal
	Reason      string
	NewsSummary string
}

// Metrics holds the raw fundamentals used in an analysis.
type Metrics struct {
	PERatio       float64
	DividendYield float64
	MarketCap     string
}

// AnalysisResult is produced once per analyzed symbol and never mutated afterwards.
type AnalysisResult struct {
	Symbol      string
	Market      Market
	CompanyName string
	Quote       Quote
	Metrics     Metrics
	Indicators  IndicatorSet
	History     []float64
	News        []string
	Signal      Signal
	Reason      string
	NewsSummary string
	Degraded    []string
	AnalyzedAt  time.Time
}

// NewErrorResult builds the placeholder returned when a symbol cannot be analyzed.
func NewErrorResult(symbol, reason string, at time.Time) *AnalysisResult {
	return &AnalysisResult{
		Symbol:      NormalizeSymbol(symbol),
		Market:      ClassifyMarket(symbol),
		Signal:      SignalError,
		Reason:      reason,
		NewsSummary: "-",
		AnalyzedAt:  at,
	}
}

// Indicator is an optional numeric value. Valid is false when there was not enough data.
type Indicator struct {
	Value float64
	Valid bool
}

// Some returns a valid indicator.
func Some(v float64) Indicator { return Indicator{Value: v, Valid: true} }

// IndicatorSet holds computed technical indicators. RangePosition is the
// current price's place in [RangeLow, RangeHigh] as a percentage.
type IndicatorSet struct {
	RSI14         Indicator
	SMA50         Indicator
	RangeHigh     Indicator
	RangeLow      Indicator
	RangePosition Indicator
	MarketCap     string
}
