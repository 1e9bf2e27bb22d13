package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// SettradeConfig holds domestic exchange credentials.
type SettradeConfig struct {
	BaseURL   string
	AppID     string
	AppSecret string
	BrokerID  string
	Timeout   time.Duration
	ProxyURL  string
}

// SettradeClient implements DomesticProvider against the exchange's open API.
// It owns one login session; Login is called lazily and again after a 401.
type SettradeClient struct {
	restClient
	cfg SettradeConfig
	log *logger.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewSettradeClient creates a client. No network call is made until first use or Login.
func NewSettradeClient(cfg SettradeConfig, log *logger.Logger) *SettradeClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}
	return &SettradeClient{
		restClient: restClient{
			name:    "settrade",
			baseURL: cfg.BaseURL,
			http:    newHTTPClient(cfg.ProxyURL, cfg.Timeout),
		},
		cfg: cfg,
		log: log.With("component", "settrade"),
	}
}

type settradeLoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login exchanges the app credentials for a bearer token.
func (c *SettradeClient) Login(ctx context.Context) error {
	if c.cfg.AppID == "" || c.cfg.AppSecret == "" {
		return errors.Wrap(errors.ErrProviderUnavailable, "settrade: credentials not configured")
	}
	payload, err := json.Marshal(map[string]string{
		"appId":     c.cfg.AppID,
		"appSecret": c.cfg.AppSecret,
	})
	if err != nil {
		return fmt.Errorf("marshal login: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/oam/v1/%s/broker-apps/ALGO/login", c.cfg.BaseURL, url.PathEscape(c.cfg.BrokerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("settrade login: %w: %w", errors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if err := statusError(c.name, "/login", resp.StatusCode, body); err != nil {
		return err
	}

	var lr settradeLoginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return fmt.Errorf("decode login: %w: %w", errors.ErrProviderUnavailable, err)
	}
	if lr.AccessToken == "" {
		return errors.Wrap(errors.ErrUnauthorized, "settrade login returned no token")
	}

	c.mu.Lock()
	c.token = lr.AccessToken
	if lr.ExpiresIn > 0 {
		c.expiresAt = time.Now().Add(time.Duration(lr.ExpiresIn) * time.Second)
	} else {
		c.expiresAt = time.Time{}
	}
	c.mu.Unlock()

	c.log.Infow("session established", "broker", c.cfg.BrokerID)
	return nil
}

// Close drops the session.
func (c *SettradeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
	return nil
}

func (c *SettradeClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return ""
	}
	if !c.expiresAt.IsZero() && time.Now().After(c.expiresAt.Add(-30*time.Second)) {
		return ""
	}
	return c.token
}

// authGet performs an authenticated GET, logging in first when needed and
// once more if the token was rejected.
func (c *SettradeClient) authGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token := c.currentToken()
		if token == "" {
			if err := c.Login(ctx); err != nil {
				return err
			}
			token = c.currentToken()
		}
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		err := c.getJSON(ctx, path, params, h, out)
		if errors.Is(err, errors.ErrUnauthorized) && attempt == 0 {
			c.log.Warnw("token rejected, logging in again", "path", path)
			_ = c.Close()
			continue
		}
		return err
	}
	return errors.Wrap(errors.ErrUnauthorized, "settrade: re-login did not help")
}

type settradeQuote struct {
	Symbol        string      `json:"symbol"`
	Last          interface{} `json:"last"`
	Change        interface{} `json:"change"`
	PercentChange interface{} `json:"percentChange"`
	High          interface{} `json:"high"`
	Low           interface{} `json:"low"`
	Open          interface{} `json:"open"`
	PrevClose     interface{} `json:"prior"`
	Volume        interface{} `json:"totalVolume"`
	PE            interface{} `json:"pe"`
	PBV           interface{} `json:"pbv"`
	Yield         interface{} `json:"yield"`
	MarketCap     interface{} `json:"marketCap"`
}

// GetSnapshot returns the quote plus bundled fundamentals. A zero last price
// fails the whole call, matching a closed or unknown instrument.
func (c *SettradeClient) GetSnapshot(ctx context.Context, symbol string) (*DomesticSnapshot, error) {
	base := model.BaseSymbol(symbol)
	path := fmt.Sprintf("/api/marketdata/v3/%s/quote/%s", url.PathEscape(c.cfg.BrokerID), url.PathEscape(base))

	var q settradeQuote
	if err := c.authGet(ctx, path, nil, &q); err != nil {
		return nil, err
	}
	price := toFloat(q.Last)
	if price <= 0 {
		return nil, errors.Wrapf(errors.ErrNoPriceData, "settrade quote %s", base)
	}

	sym := model.NormalizeSymbol(symbol)
	return &DomesticSnapshot{
		Quote: model.Quote{
			Symbol:        sym,
			Name:          base,
			Price:         price,
			Change:        toFloat(q.Change),
			PercentChange: toFloat(q.PercentChange),
			Open:          toFloat(q.Open),
			High:          toFloat(q.High),
			Low:           toFloat(q.Low),
			PreviousClose: toFloat(q.PrevClose),
			Volume:        toFloat(q.Volume),
		},
		Fundamentals: model.FundamentalsRecord{
			Symbol:        sym,
			CompanyName:   base,
			PERatio:       toFloat(q.PE),
			DividendYield: toFloat(q.Yield),
			MarketCap:     model.FormatMarketCap(toFloat(q.MarketCap)),
		},
	}, nil
}

type settradeCandles struct {
	Time   []int64       `json:"time"`
	Open   []interface{} `json:"open"`
	High   []interface{} `json:"high"`
	Low    []interface{} `json:"low"`
	Close  []interface{} `json:"close"`
	Volume []interface{} `json:"volume"`
}

func at(vs []interface{}, i int) float64 {
	if i < len(vs) {
		return toFloat(vs[i])
	}
	return 0
}

// GetHistory returns candlesticks oldest first.
func (c *SettradeClient) GetHistory(ctx context.Context, symbol, interval string, size int) (model.PriceHistory, error) {
	base := model.BaseSymbol(symbol)
	path := fmt.Sprintf("/api/techchart/v3/%s/candlestick", url.PathEscape(c.cfg.BrokerID))
	p := url.Values{}
	p.Set("symbol", base)
	p.Set("interval", interval)
	p.Set("limit", strconv.Itoa(size))

	var cs settradeCandles
	if err := c.authGet(ctx, path, p, &cs); err != nil {
		return model.PriceHistory{}, err
	}
	if len(cs.Close) == 0 {
		return model.PriceHistory{}, errors.Wrapf(errors.ErrInsufficientData, "settrade candles %s", base)
	}

	bars := make([]model.OHLCV, 0, len(cs.Close))
	for i := range cs.Close {
		var ts time.Time
		if i < len(cs.Time) {
			ts = time.Unix(cs.Time[i], 0)
		}
		bars = append(bars, model.OHLCV{
			Time:   ts,
			Open:   at(cs.Open, i),
			High:   at(cs.High, i),
			Low:    at(cs.Low, i),
			Close:  at(cs.Close, i),
			Volume: at(cs.Volume, i),
		})
	}
	// Ensure chronological order
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return model.PriceHistory{Symbol: model.NormalizeSymbol(symbol), Bars: bars}, nil
}
