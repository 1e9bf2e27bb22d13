package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"StockSentinel/internal/metrics"
	"StockSentinel/pkg/errors"
)

// newHTTPClient builds an http.Client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// newLimiter converts a per-minute quota into a token bucket.
func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
}

// restClient is the shared GET-and-decode plumbing of the vendor clients.
type restClient struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func (c *restClient) getJSON(ctx context.Context, path string, params url.Values, header http.Header, out interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderCall(c.name, path, time.Since(start), err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(err, "rate limiter %s", c.name)
		}
	}

	u := strings.TrimRight(c.baseURL, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", c.name, path, errors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s read body: %w: %w", c.name, errors.ErrProviderUnavailable, err)
	}
	if err := statusError(c.name, path, resp.StatusCode, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s decode %s: %w: %w", c.name, path, errors.ErrProviderUnavailable, err)
	}
	return nil
}

func statusError(name, path string, code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", name, path, errors.ErrUnauthorized)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", name, path, errors.ErrRateLimitExceeded)
	default:
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("%s %s: status %d, body: %s: %w", name, path, code, snippet, errors.ErrProviderUnavailable)
	}
}

// toFloat accepts the number encodings vendors mix freely: JSON numbers,
// numeric strings, "-" and null. Anything unparseable or non-finite is 0.
func toFloat(v interface{}) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		f, _ = n.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
