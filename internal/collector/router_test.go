package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

func testRouterConfig() RouterConfig {
	cfg := DefaultRouterConfig()
	cfg.PolitenessPause = 0
	return cfg
}

func newMockRouter(global, domestic *MockProvider) *Router {
	p := Providers{}
	if global != nil {
		p.Quotes, p.History, p.News, p.Fundamentals = global, global, global, global
	}
	if domestic != nil {
		p.Domestic = domestic
	}
	return NewRouter(p, testRouterConfig(), logger.Nop())
}

func TestRouterGlobalFetch(t *testing.T) {
	m := &MockProvider{
		Price:        150,
		Bars:         60,
		Headlines:    []string{"a", "b", "c", "d"},
		Macro:        []string{"m1", "m2", "m3"},
		Fundamentals: model.FundamentalsRecord{CompanyName: "Apple", PERatio: 28},
	}
	r := newMockRouter(m, nil)

	data, err := r.Fetch(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", data.Symbol)
	assert.Equal(t, model.MarketGlobal, data.Market)
	assert.Equal(t, 150.0, data.Quote.Price)
	assert.Equal(t, 60, data.History.Len())
	assert.Equal(t, 28.0, data.Fundamentals.PERatio)
	assert.Equal(t, []string{"a", "b", "c", MacroNewsPrefix + "m1", MacroNewsPrefix + "m2"}, data.News)
	assert.Empty(t, data.Degraded)
	assert.Zero(t, m.Calls("GetSnapshot"))
}

func TestRouterOptionalStepsDegrade(t *testing.T) {
	m := &MockProvider{
		Price:      150,
		HistoryErr: errors.ErrProviderUnavailable,
		NewsErr:    errors.ErrTimeout,
		ProfileErr: errors.ErrProviderUnavailable,
	}
	r := newMockRouter(m, nil)

	data, err := r.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.0, data.Quote.Price)
	assert.Zero(t, data.History.Len())
	assert.Empty(t, data.News)
	assert.ElementsMatch(t, []string{StepFundamentals, StepHistory, StepCompanyNews, StepMarketNews}, data.Degraded)
	// one retry for history
	assert.Equal(t, 2, m.Calls("GetHistory"))
}

func TestRouterHistoryRetrySucceeds(t *testing.T) {
	m := &MockProvider{Price: 10, Bars: 30, HistoryFailures: 1}
	r := newMockRouter(m, nil)

	data, err := r.Fetch(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 30, data.History.Len())
	assert.Equal(t, 2, m.Calls("GetHistory"))
}

func TestRouterQuoteFailureAborts(t *testing.T) {
	m := &MockProvider{QuoteErr: errors.ErrProviderUnavailable}
	r := newMockRouter(m, nil)

	_, err := r.Fetch(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoPriceData))
	assert.True(t, errors.Is(err, errors.ErrProviderUnavailable))
	assert.Zero(t, m.Calls("GetHistory"))
	assert.Zero(t, m.Calls("GetCompanyNews"))
}

func TestRouterDomestic(t *testing.T) {
	global := &MockProvider{Price: 999}
	domestic := &MockProvider{Price: 34.25, Bars: 60, Fundamentals: model.FundamentalsRecord{PERatio: 9.8, DividendYield: 6.2}}
	r := newMockRouter(global, domestic)

	data, err := r.Fetch(context.Background(), "ptt.bk")
	require.NoError(t, err)
	assert.Equal(t, model.MarketDomestic, data.Market)
	assert.Equal(t, 34.25, data.Quote.Price)
	assert.Equal(t, 9.8, data.Fundamentals.PERatio)
	assert.Equal(t, 60, data.History.Len())
	assert.Zero(t, global.Calls("GetQuote"))
	assert.Zero(t, global.Calls("GetProfile"))
}

func TestRouterDomesticNoPrice(t *testing.T) {
	r := newMockRouter(nil, &MockProvider{Price: 0})
	_, err := r.Fetch(context.Background(), "PTT.BK")
	assert.True(t, errors.Is(err, errors.ErrNoPriceData))
}

func TestRouterPolitenessPauseHonoursContext(t *testing.T) {
	m := &MockProvider{Price: 10}
	cfg := DefaultRouterConfig()
	cfg.PolitenessPause = time.Hour
	r := NewRouter(Providers{Quotes: m, History: m, News: m, Fundamentals: m}, cfg, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Fetch(ctx, "AAPL")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRouterResolve(t *testing.T) {
	t.Run("global first", func(t *testing.T) {
		r := newMockRouter(&MockProvider{Price: 100}, &MockProvider{Price: 5})
		q, err := r.Resolve(context.Background(), "aapl")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", q.Symbol)
	})

	t.Run("falls back to domestic", func(t *testing.T) {
		r := newMockRouter(&MockProvider{QuoteErr: errors.ErrNotFound}, &MockProvider{Price: 34})
		q, err := r.Resolve(context.Background(), "ptt")
		require.NoError(t, err)
		assert.Equal(t, "PTT.BK", q.Symbol)
	})

	t.Run("explicit suffix skips global", func(t *testing.T) {
		global := &MockProvider{Price: 100}
		r := newMockRouter(global, &MockProvider{Price: 34})
		q, err := r.Resolve(context.Background(), "kbank.bk")
		require.NoError(t, err)
		assert.Equal(t, "KBANK.BK", q.Symbol)
		assert.Zero(t, global.Calls("GetQuote"))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		r := newMockRouter(&MockProvider{Price: 100}, nil)
		_, err := r.Resolve(context.Background(), "x")
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		_, err = r.Resolve(context.Background(), "ABCDEFGHIJKL")
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})

	t.Run("not found anywhere", func(t *testing.T) {
		r := newMockRouter(&MockProvider{}, &MockProvider{})
		_, err := r.Resolve(context.Background(), "ZZZZ")
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}
