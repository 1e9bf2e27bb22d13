package collector

import (
	"context"
	"fmt"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// Providers bundles the upstream clients the router dispatches to.
// Any optional provider may be nil; its data is then reported as degraded.
type Providers struct {
	Domestic     DomesticProvider
	Quotes       QuoteProvider
	History      HistoryProvider
	News         NewsProvider
	Fundamentals FundamentalsSource
}

// RouterConfig tunes request shape and pacing.
type RouterConfig struct {
	PolitenessPause  time.Duration // between quote and history on the same vendor
	HistoryInterval  string
	HistorySize      int
	HistoryRetries   int
	NewsLookback     time.Duration
	CompanyNewsLimit int
	MarketNewsLimit  int
}

// DefaultRouterConfig mirrors the vendors' free-tier quotas.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		PolitenessPause:  1 * time.Second,
		HistoryInterval:  "1day",
		HistorySize:      60,
		HistoryRetries:   1,
		NewsLookback:     3 * 24 * time.Hour,
		CompanyNewsLimit: 3,
		MarketNewsLimit:  2,
	}
}

// MacroNewsPrefix marks headlines that are not about the symbol itself.
const MacroNewsPrefix = "[GLOBAL MACRO] "

// Degraded step names.
const (
	StepFundamentals = "fundamentals"
	StepHistory      = "history"
	StepCompanyNews  = "company_news"
	StepMarketNews   = "market_news"
)

// Router picks the provider family by market and assembles RawMarketData.
type Router struct {
	p   Providers
	cfg RouterConfig
	log *logger.Logger
	now func() time.Time
}

// NewRouter creates a Router. Zero config fields take defaults.
func NewRouter(p Providers, cfg RouterConfig, log *logger.Logger) *Router {
	def := DefaultRouterConfig()
	if cfg.HistoryInterval == "" {
		cfg.HistoryInterval = def.HistoryInterval
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.NewsLookback == 0 {
		cfg.NewsLookback = def.NewsLookback
	}
	if cfg.CompanyNewsLimit == 0 {
		cfg.CompanyNewsLimit = def.CompanyNewsLimit
	}
	if cfg.MarketNewsLimit == 0 {
		cfg.MarketNewsLimit = def.MarketNewsLimit
	}
	if cfg.HistoryRetries < 0 {
		cfg.HistoryRetries = 0
	}
	if log == nil {
		log = logger.Get()
	}
	return &Router{p: p, cfg: cfg, log: log.With("component", "router"), now: time.Now}
}

// Fetch gathers quote, fundamentals, history and news for one symbol.
// Only a missing price is an error; every other step degrades softly.
func (r *Router) Fetch(ctx context.Context, symbol string) (*model.RawMarketData, error) {
	sym := model.NormalizeSymbol(symbol)
	if model.ClassifyMarket(sym) == model.MarketDomestic {
		return r.fetchDomestic(ctx, sym)
	}
	return r.fetchGlobal(ctx, sym)
}

func (r *Router) fetchDomestic(ctx context.Context, sym string) (*model.RawMarketData, error) {
	if r.p.Domestic == nil {
		return nil, fmt.Errorf("domestic %s: %w: %w", sym, errors.ErrNoPriceData, errors.ErrProviderUnavailable)
	}
	snap, err := r.p.Domestic.GetSnapshot(ctx, sym)
	if err != nil {
		return nil, noPrice(sym, err)
	}
	if !snap.Quote.HasPrice() {
		return nil, errors.Wrapf(errors.ErrNoPriceData, "domestic %s", sym)
	}

	data := &model.RawMarketData{
		Symbol:       sym,
		Market:       model.MarketDomestic,
		Quote:        snap.Quote,
		Fundamentals: snap.Fundamentals,
		FetchedAt:    r.now(),
	}
	if err := sleepCtx(ctx, r.cfg.PolitenessPause); err != nil {
		return nil, err
	}
	// Domestic candles use the exchange's interval notation.
	hist, err := r.historyWithRetry(ctx, sym, func(ctx context.Context) (model.PriceHistory, error) {
		return r.p.Domestic.GetHistory(ctx, sym, "1d", r.cfg.HistorySize)
	})
	if err != nil {
		r.degrade(data, StepHistory, err)
	} else {
		data.History = hist
	}
	return data, nil
}

func (r *Router) fetchGlobal(ctx context.Context, sym string) (*model.RawMarketData, error) {
	if r.p.Quotes == nil {
		return nil, fmt.Errorf("global %s: %w: %w", sym, errors.ErrNoPriceData, errors.ErrProviderUnavailable)
	}
	quote, err := r.p.Quotes.GetQuote(ctx, sym)
	if err != nil {
		return nil, noPrice(sym, err)
	}
	if !quote.HasPrice() {
		return nil, errors.Wrapf(errors.ErrNoPriceData, "global %s", sym)
	}

	data := &model.RawMarketData{
		Symbol:    sym,
		Market:    model.MarketGlobal,
		Quote:     *quote,
		FetchedAt: r.now(),
	}

	if r.p.Fundamentals != nil {
		data.Fundamentals = r.p.Fundamentals.GetOrFetch(ctx, sym)
	}
	if data.Fundamentals.IsEmpty() {
		r.degrade(data, StepFundamentals, errors.ErrNotFound)
	}

	if r.p.History != nil {
		if err := sleepCtx(ctx, r.cfg.PolitenessPause); err != nil {
			return nil, err
		}
		hist, err := r.historyWithRetry(ctx, sym, func(ctx context.Context) (model.PriceHistory, error) {
			return r.p.History.GetHistory(ctx, sym, r.cfg.HistoryInterval, r.cfg.HistorySize)
		})
		if err != nil {
			r.degrade(data, StepHistory, err)
		} else {
			data.History = hist
		}
	} else {
		r.degrade(data, StepHistory, errors.ErrProviderUnavailable)
	}

	data.News = r.news(ctx, data)
	return data, nil
}

func (r *Router) news(ctx context.Context, data *model.RawMarketData) []string {
	if r.p.News == nil {
		r.degrade(data, StepCompanyNews, errors.ErrProviderUnavailable)
		return nil
	}
	to := r.now()
	from := to.Add(-r.cfg.NewsLookback)

	var out []string
	company, err := r.p.News.GetCompanyNews(ctx, data.Symbol, from, to)
	if err != nil {
		r.degrade(data, StepCompanyNews, err)
	} else {
		out = append(out, limit(company, r.cfg.CompanyNewsLimit)...)
	}

	macro, err := r.p.News.GetMarketNews(ctx)
	if err != nil {
		r.degrade(data, StepMarketNews, err)
	} else {
		for _, h := range limit(macro, r.cfg.MarketNewsLimit) {
			out = append(out, MacroNewsPrefix+h)
		}
	}
	return out
}

func (r *Router) historyWithRetry(ctx context.Context, sym string, fetch func(context.Context) (model.PriceHistory, error)) (model.PriceHistory, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.HistoryRetries; attempt++ {
		if attempt > 0 {
			r.log.Debugw("retrying history", "symbol", sym, "attempt", attempt, "error", lastErr)
			if err := sleepCtx(ctx, r.cfg.PolitenessPause); err != nil {
				return model.PriceHistory{}, err
			}
		}
		hist, err := fetch(ctx)
		if err == nil {
			return hist, nil
		}
		lastErr = err
	}
	return model.PriceHistory{}, lastErr
}

func (r *Router) degrade(data *model.RawMarketData, step string, err error) {
	data.Degraded = append(data.Degraded, step)
	r.log.Warnw("optional step failed", "symbol", data.Symbol, "step", step, "error", err)
}

// Resolve turns user input into a tradable symbol. Explicit ".BK" input goes
// straight to the domestic provider; otherwise the global quote is tried first
// and the domestic exchange second, in which case ".BK" is appended.
func (r *Router) Resolve(ctx context.Context, raw string) (*model.Quote, error) {
	sym := model.NormalizeSymbol(raw)
	base := model.BaseSymbol(sym)
	if len(base) < 2 || len(base) > 10 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "symbol %q", raw)
	}

	if model.ClassifyMarket(sym) == model.MarketGlobal && r.p.Quotes != nil {
		q, err := r.p.Quotes.GetQuote(ctx, sym)
		if err == nil && q.HasPrice() {
			q.Symbol = sym
			return q, nil
		}
		r.log.Debugw("global lookup missed", "symbol", sym, "error", err)
	}

	if r.p.Domestic != nil {
		domestic := base + model.DomesticSuffix
		snap, err := r.p.Domestic.GetSnapshot(ctx, domestic)
		if err == nil && snap.Quote.HasPrice() {
			q := snap.Quote
			q.Symbol = domestic
			return &q, nil
		}
		r.log.Debugw("domestic lookup missed", "symbol", domestic, "error", err)
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "symbol %s", sym)
}

func noPrice(sym string, err error) error {
	if errors.Is(err, errors.ErrNoPriceData) {
		return err
	}
	return fmt.Errorf("quote %s: %w: %w", sym, errors.ErrNoPriceData, err)
}

func limit(items []string, n int) []string {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
