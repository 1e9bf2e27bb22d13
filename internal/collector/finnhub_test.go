package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

func newFinnhubServer(t *testing.T, mux *http.ServeMux) *FinnhubClient {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewFinnhubClient("tok", "", 2*time.Second,
		WithFinnhubBaseURL(srv.URL), WithFinnhubRateLimit(0), WithFinnhubLogger(logger.Nop()))
}

func TestFinnhubProfileWithMetricFallback(t *testing.T) {
	metricCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/stock/profile2", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Finnhub-Token"))
		_, _ = w.Write([]byte(`{"name":"Apple Inc","ticker":"AAPL","marketCapitalization":2850000.5}`))
	})
	mux.HandleFunc("/stock/metric", func(w http.ResponseWriter, r *http.Request) {
		metricCalls++
		assert.Equal(t, "all", r.URL.Query().Get("metric"))
		_, _ = w.Write([]byte(`{"metric":{"peBasicExclExtraTTM":null,"peTTM":29.4,"dividendYield5Y":0.55}}`))
	})
	c := newFinnhubServer(t, mux)

	rec, err := c.GetProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, metricCalls)
	assert.Equal(t, "Apple Inc", rec.CompanyName)
	assert.Equal(t, 29.4, rec.PERatio)
	assert.Equal(t, 0.55, rec.DividendYield)
	assert.Equal(t, "2850000.5", rec.MarketCap)
}

func TestFinnhubProfileMetricFailureIsSoft(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stock/profile2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Tiny Co","ticker":"TINY"}`))
	})
	mux.HandleFunc("/stock/metric", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newFinnhubServer(t, mux)

	rec, err := c.GetProfile(context.Background(), "TINY")
	require.NoError(t, err)
	assert.Equal(t, "Tiny Co", rec.CompanyName)
	assert.Zero(t, rec.PERatio)
}

func TestFinnhubEmptyProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stock/profile2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	c := newFinnhubServer(t, mux)

	_, err := c.GetProfile(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFinnhubNews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/company-news", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-03-07", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-03-10", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`[{"headline":"Apple beats"},{"headline":"  "},{"headline":"iPhone sales"}]`))
	})
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "general", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`[{"headline":"Fed holds rates"}]`))
	})
	c := newFinnhubServer(t, mux)

	to := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	company, err := c.GetCompanyNews(context.Background(), "AAPL", to.AddDate(0, 0, -3), to)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple beats", "iPhone sales"}, company)

	macro, err := c.GetMarketNews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Fed holds rates"}, macro)
}
