package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

func TestSettradeSnapshotAndRelogin(t *testing.T) {
	var logins, quotes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oam/v1/B1/broker-apps/ALGO/login", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&logins, 1)
		if n == 1 {
			_, _ = w.Write([]byte(`{"access_token":"stale","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"fresh","expires_in":3600}`))
	})
	mux.HandleFunc("/api/marketdata/v3/B1/quote/PTT", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&quotes, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"symbol":"PTT","last":34.25,"change":0.5,"percentChange":1.48,"high":34.5,"low":33.75,"pe":"9.8","pbv":0.9,"yield":"6.2"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewSettradeClient(SettradeConfig{BaseURL: srv.URL, AppID: "id", AppSecret: "secret", BrokerID: "B1", Timeout: time.Second}, logger.Nop())

	snap, err := c.GetSnapshot(context.Background(), "ptt.bk")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
	assert.Equal(t, int32(2), atomic.LoadInt32(&quotes))
	assert.Equal(t, "PTT.BK", snap.Quote.Symbol)
	assert.Equal(t, 34.25, snap.Quote.Price)
	assert.Equal(t, 9.8, snap.Fundamentals.PERatio)
	assert.Equal(t, 6.2, snap.Fundamentals.DividendYield)
}

func TestSettradeZeroPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oam/v1/B1/broker-apps/ALGO/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"t"}`))
	})
	mux.HandleFunc("/api/marketdata/v3/B1/quote/XYZ", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"XYZ","last":"-"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewSettradeClient(SettradeConfig{BaseURL: srv.URL, AppID: "id", AppSecret: "s", BrokerID: "B1"}, logger.Nop())
	_, err := c.GetSnapshot(context.Background(), "XYZ.BK")
	assert.True(t, errors.Is(err, errors.ErrNoPriceData))
}

func TestSettradeHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oam/v1/B1/broker-apps/ALGO/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"t"}`))
	})
	mux.HandleFunc("/api/techchart/v3/B1/candlestick", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PTT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "60", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"time":[1700000000,1700086400],"open":[1,2],"high":[1.5,2.5],"low":[0.5,1.5],"close":[1,2],"volume":[10,20]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewSettradeClient(SettradeConfig{BaseURL: srv.URL, AppID: "id", AppSecret: "s", BrokerID: "B1"}, logger.Nop())
	h, err := c.GetHistory(context.Background(), "PTT.BK", "1d", 60)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, h.Closes())
	require.NoError(t, c.Close())
}

func TestSettradeMissingCredentials(t *testing.T) {
	c := NewSettradeClient(SettradeConfig{BaseURL: "http://127.0.0.1:0"}, logger.Nop())
	err := c.Login(context.Background())
	assert.True(t, errors.Is(err, errors.ErrProviderUnavailable))
}
