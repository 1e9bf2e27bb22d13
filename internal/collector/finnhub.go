package collector

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// FinnhubClient serves company profiles, key metrics and news.
type FinnhubClient struct {
	restClient
	apiKey string
	log    *logger.Logger
}

// FinnhubOption configures a FinnhubClient.
type FinnhubOption func(*FinnhubClient)

// WithFinnhubBaseURL overrides the API root.
func WithFinnhubBaseURL(u string) FinnhubOption {
	return func(c *FinnhubClient) { c.baseURL = u }
}

// WithFinnhubRateLimit sets the per-minute request budget.
func WithFinnhubRateLimit(rpm int) FinnhubOption {
	return func(c *FinnhubClient) { c.limiter = newLimiter(rpm) }
}

// WithFinnhubLogger sets the logger.
func WithFinnhubLogger(l *logger.Logger) FinnhubOption {
	return func(c *FinnhubClient) { c.log = l.With("component", "finnhub") }
}

// NewFinnhubClient creates a client. Profile and news calls are short (3s by default).
func NewFinnhubClient(apiKey, proxyURL string, timeout time.Duration, opts ...FinnhubOption) *FinnhubClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := &FinnhubClient{
		restClient: restClient{
			name:    "finnhub",
			baseURL: "https://finnhub.io/api/v1",
			http:    newHTTPClient(proxyURL, timeout),
			limiter: newLimiter(60),
		},
		apiKey: apiKey,
		log:    logger.Get().With("component", "finnhub"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FinnhubClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return errors.Wrap(errors.ErrProviderUnavailable, "finnhub: no api key")
	}
	h := http.Header{}
	h.Set("X-Finnhub-Token", c.apiKey)
	return c.getJSON(ctx, path, params, h, out)
}

type finnhubProfile struct {
	Name                 string      `json:"name"`
	Ticker               string      `json:"ticker"`
	MarketCapitalization interface{} `json:"marketCapitalization"`
	PE                   interface{} `json:"pe"`
	DividendYield        interface{} `json:"dividendYield"`
}

// Key fallbacks tried in order when the profile lacks a value.
var (
	peMetricKeys        = []string{"peBasicExclExtraTTM", "peTTM", "peNormalized", "peExclExtraTTM"}
	yieldMetricKeys     = []string{"dividendYieldIndicatedAnnual", "dividendYield5Y", "currentDividendYieldTTM"}
	marketCapMetricKeys = []string{"marketCapitalization"}
)

// GetProfile fetches /stock/profile2 and fills missing P/E, yield or market
// cap from /stock/metric. An empty profile is ErrNotFound.
func (c *FinnhubClient) GetProfile(ctx context.Context, symbol string) (model.FundamentalsRecord, error) {
	p := url.Values{}
	p.Set("symbol", symbol)

	var prof finnhubProfile
	if err := c.get(ctx, "/stock/profile2", p, &prof); err != nil {
		return model.FundamentalsRecord{}, err
	}
	if prof.Name == "" && prof.Ticker == "" {
		return model.FundamentalsRecord{}, errors.Wrapf(errors.ErrNotFound, "finnhub profile %s", symbol)
	}

	pe := toFloat(prof.PE)
	yield := toFloat(prof.DividendYield)
	marketCap := toFloat(prof.MarketCapitalization)

	if pe == 0 || yield == 0 || marketCap == 0 {
		m, err := c.getMetrics(ctx, symbol)
		if err != nil {
			c.log.Warnw("metric fallback failed", "symbol", symbol, "error", err)
		} else {
			pe = firstNonZero(pe, m, peMetricKeys)
			yield = firstNonZero(yield, m, yieldMetricKeys)
			marketCap = firstNonZero(marketCap, m, marketCapMetricKeys)
		}
	}

	name := prof.Name
	if name == "" {
		name = symbol
	}
	return model.FundamentalsRecord{
		Symbol:        symbol,
		CompanyName:   name,
		MarketCap:     model.FormatMarketCap(marketCap),
		PERatio:       pe,
		DividendYield: yield,
	}, nil
}

func (c *FinnhubClient) getMetrics(ctx context.Context, symbol string) (map[string]interface{}, error) {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("metric", "all")

	var resp struct {
		Metric map[string]interface{} `json:"metric"`
	}
	if err := c.get(ctx, "/stock/metric", p, &resp); err != nil {
		return nil, err
	}
	if len(resp.Metric) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "finnhub metric %s", symbol)
	}
	return resp.Metric, nil
}

func firstNonZero(current float64, m map[string]interface{}, keys []string) float64 {
	if current != 0 {
		return current
	}
	for _, k := range keys {
		if v := toFloat(m[k]); v != 0 {
			return v
		}
	}
	return 0
}

type finnhubNews struct {
	Headline string `json:"headline"`
	Datetime int64  `json:"datetime"`
}

// GetCompanyNews returns headlines for the symbol between from and to, newest first.
func (c *FinnhubClient) GetCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]string, error) {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("from", from.Format("2006-01-02"))
	p.Set("to", to.Format("2006-01-02"))

	var items []finnhubNews
	if err := c.get(ctx, "/company-news", p, &items); err != nil {
		return nil, err
	}
	return headlines(items), nil
}

// GetMarketNews returns general market headlines.
func (c *FinnhubClient) GetMarketNews(ctx context.Context) ([]string, error) {
	p := url.Values{}
	p.Set("category", "general")

	var items []finnhubNews
	if err := c.get(ctx, "/news", p, &items); err != nil {
		return nil, err
	}
	return headlines(items), nil
}

func headlines(items []finnhubNews) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if h := strings.TrimSpace(it.Headline); h != "" {
			out = append(out, h)
		}
	}
	return out
}
