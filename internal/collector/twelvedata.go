package collector

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// TwelveDataClient serves global quotes and daily history.
type TwelveDataClient struct {
	restClient
	apiKey string
}

// TwelveDataOption configures a TwelveDataClient.
type TwelveDataOption func(*TwelveDataClient)

// WithTwelveDataBaseURL overrides the API root (tests point it at httptest).
func WithTwelveDataBaseURL(u string) TwelveDataOption {
	return func(c *TwelveDataClient) { c.baseURL = u }
}

// WithTwelveDataRateLimit sets the per-minute credit budget.
func WithTwelveDataRateLimit(rpm int) TwelveDataOption {
	return func(c *TwelveDataClient) { c.limiter = newLimiter(rpm) }
}

// NewTwelveDataClient creates a client with an 8s timeout.
func NewTwelveDataClient(apiKey, proxyURL string, timeout time.Duration, opts ...TwelveDataOption) *TwelveDataClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	c := &TwelveDataClient{
		restClient: restClient{
			name:    "twelvedata",
			baseURL: "https://api.twelvedata.com",
			http:    newHTTPClient(proxyURL, timeout),
			limiter: newLimiter(8),
		},
		apiKey: apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// twelveStatus is embedded in every response; an error payload carries code != 200.
type twelveStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s twelveStatus) err(endpoint string) error {
	if s.Code != 0 && s.Code != 200 {
		return fmt.Errorf("twelvedata %s: code %d: %s: %w", endpoint, s.Code, s.Message, errors.ErrProviderUnavailable)
	}
	if s.Status == "error" {
		return fmt.Errorf("twelvedata %s: %s: %w", endpoint, s.Message, errors.ErrProviderUnavailable)
	}
	return nil
}

type twelveQuote struct {
	twelveStatus
	Symbol        string      `json:"symbol"`
	Name          string      `json:"name"`
	Open          interface{} `json:"open"`
	High          interface{} `json:"high"`
	Low           interface{} `json:"low"`
	Close         interface{} `json:"close"`
	Volume        interface{} `json:"volume"`
	PreviousClose interface{} `json:"previous_close"`
	Change        interface{} `json:"change"`
	PercentChange interface{} `json:"percent_change"`
}

type twelveSeries struct {
	twelveStatus
	Values []struct {
		Datetime string      `json:"datetime"`
		Open     interface{} `json:"open"`
		High     interface{} `json:"high"`
		Low      interface{} `json:"low"`
		Close    interface{} `json:"close"`
		Volume   interface{} `json:"volume"`
	} `json:"values"`
}

func (c *TwelveDataClient) params(symbol string) url.Values {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("apikey", c.apiKey)
	return p
}

// GetQuote fetches /quote. A zero close is reported as ErrNoPriceData.
func (c *TwelveDataClient) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrProviderUnavailable, "twelvedata: no api key")
	}
	var q twelveQuote
	if err := c.getJSON(ctx, "/quote", c.params(symbol), nil, &q); err != nil {
		return nil, err
	}
	if err := q.err("/quote"); err != nil {
		return nil, err
	}
	quote := &model.Quote{
		Symbol:        symbol,
		Name:          q.Name,
		Price:         toFloat(q.Close),
		Change:        toFloat(q.Change),
		PercentChange: toFloat(q.PercentChange),
		Open:          toFloat(q.Open),
		High:          toFloat(q.High),
		Low:           toFloat(q.Low),
		PreviousClose: toFloat(q.PreviousClose),
		Volume:        toFloat(q.Volume),
	}
	if quote.Name == "" {
		quote.Name = symbol
	}
	if !quote.HasPrice() {
		return nil, errors.Wrapf(errors.ErrNoPriceData, "twelvedata quote %s", symbol)
	}
	return quote, nil
}

// GetHistory fetches /time_series. The API returns newest first; bars are
// re-sorted oldest first.
func (c *TwelveDataClient) GetHistory(ctx context.Context, symbol, interval string, size int) (model.PriceHistory, error) {
	if c.apiKey == "" {
		return model.PriceHistory{}, errors.Wrap(errors.ErrProviderUnavailable, "twelvedata: no api key")
	}
	p := c.params(symbol)
	p.Set("interval", interval)
	p.Set("outputsize", strconv.Itoa(size))

	var ts twelveSeries
	if err := c.getJSON(ctx, "/time_series", p, nil, &ts); err != nil {
		return model.PriceHistory{}, err
	}
	if err := ts.err("/time_series"); err != nil {
		return model.PriceHistory{}, err
	}
	if len(ts.Values) == 0 {
		return model.PriceHistory{}, errors.Wrapf(errors.ErrInsufficientData, "twelvedata history %s", symbol)
	}

	bars := make([]model.OHLCV, 0, len(ts.Values))
	for _, v := range ts.Values {
		closePrice := toFloat(v.Close)
		if closePrice == 0 {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   parseDatetime(v.Datetime),
			Open:   toFloat(v.Open),
			High:   toFloat(v.High),
			Low:    toFloat(v.Low),
			Close:  closePrice,
			Volume: toFloat(v.Volume),
		})
	}
	// Stable sort keeps reversed input order when datetimes are missing.
	reverse(bars)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return model.PriceHistory{Symbol: symbol, Bars: bars}, nil
}

func parseDatetime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func reverse(bars []model.OHLCV) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
