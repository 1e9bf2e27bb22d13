package collector

import (
	"context"
	"time"

	"StockSentinel/internal/model"
)

// QuoteProvider returns the latest quote for a global symbol.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*model.Quote, error)
}

// HistoryProvider returns bars ordered oldest to newest.
type HistoryProvider interface {
	GetHistory(ctx context.Context, symbol, interval string, size int) (model.PriceHistory, error)
}

// ProfileProvider returns company fundamentals.
type ProfileProvider interface {
	GetProfile(ctx context.Context, symbol string) (model.FundamentalsRecord, error)
}

// NewsProvider returns headline strings.
type NewsProvider interface {
	GetCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]string, error)
	GetMarketNews(ctx context.Context) ([]string, error)
}

// DomesticSnapshot is a domestic quote with the fundamentals the exchange bundles with it.
type DomesticSnapshot struct {
	Quote        model.Quote
	Fundamentals model.FundamentalsRecord
}

// DomesticProvider serves ".BK" symbols from a single authenticated session.
type DomesticProvider interface {
	GetSnapshot(ctx context.Context, symbol string) (*DomesticSnapshot, error)
	GetHistory(ctx context.Context, symbol, interval string, size int) (model.PriceHistory, error)
}

// FundamentalsSource is the cache-fronted view of ProfileProvider used by the router.
type FundamentalsSource interface {
	GetOrFetch(ctx context.Context, symbol string) model.FundamentalsRecord
}
