package model

import (
	"strings"
	"time"
)

// Market identifies which upstream provider family serves a symbol.
type Market string

const (
	MarketDomestic Market = "DOMESTIC"
	MarketGlobal   Market = "GLOBAL"
)

// DomesticSuffix marks symbols listed on the domestic exchange.
const DomesticSuffix = ".BK"

// NormalizeSymbol trims and upper-cases a user supplied ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ClassifyMarket returns MarketDomestic for symbols ending in ".BK" (any case).
func ClassifyMarket(symbol string) Market {
	if strings.HasSuffix(NormalizeSymbol(symbol), DomesticSuffix) {
		return MarketDomestic
	}
	return MarketGlobal
}

// BaseSymbol strips the domestic suffix, e.g. "PTT.BK" -> "PTT".
func BaseSymbol(symbol string) string {
	return strings.TrimSuffix(NormalizeSymbol(symbol), DomesticSuffix)
}

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceHistory holds bars ordered oldest to newest.
type PriceHistory struct {
	Symbol string
	Bars   []OHLCV
}

// Closes extracts the close series.
func (h PriceHistory) Closes() []float64 {
	closes := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Len returns the number of bars.
func (h PriceHistory) Len() int { return len(h.Bars) }

// Quote is a point-in-time price snapshot.
type Quote struct {
	Symbol        string
	Name          string
	Price         float64
	Change        float64
	PercentChange float64
	Open          float64
	High          float64
	Low           float64
	PreviousClose float64
	Volume        float64
}

// HasPrice reports whether the quote carries a usable price.
func (q *Quote) HasPrice() bool {
	return q != nil && q.Price > 0
}

// RawMarketData is everything the provider router gathered for one symbol.
// Optional parts are left zero when their provider failed; Degraded names them.
type RawMarketData struct {
	Symbol       string
	Market       Market
	Quote        Quote
	Fundamentals FundamentalsRecord
	History      PriceHistory
	News         []string
	Degraded     []string
	FetchedAt    time.Time
}
