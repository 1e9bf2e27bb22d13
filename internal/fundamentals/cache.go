package fundamentals

import (
	"context"
	"time"

	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// Fetcher is the upstream profile source behind the cache.
type Fetcher interface {
	GetProfile(ctx context.Context, symbol string) (model.FundamentalsRecord, error)
}

// Store persists records keyed by symbol. Get returns errors.ErrNotFound when absent.
// Implementations must be safe for concurrent use; same-key writes are last-writer-wins.
type Store interface {
	Get(ctx context.Context, symbol string) (*model.FundamentalsRecord, error)
	Upsert(ctx context.Context, rec model.FundamentalsRecord) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cache implements fetch-or-fallback over a Store.
type Cache struct {
	store   Store
	fetcher Fetcher
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a Cache.
func NewCache(store Store, fetcher Fetcher, log *logger.Logger, opts ...Option) *Cache {
	if log == nil {
		log = logger.Get()
	}
	c := &Cache{
		store:   store,
		fetcher: fetcher,
		log:     log.With("component", "fundamentals_cache"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns a valid cached record, else refreshes from the fetcher,
// else falls back to the stale record, else returns an empty record. It never fails.
func (c *Cache) GetOrFetch(ctx context.Context, symbol string) model.FundamentalsRecord {
	sym := model.NormalizeSymbol(symbol)
	now := c.now()

	cached, err := c.store.Get(ctx, sym)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		c.log.Warnw("cache read failed, treating as miss", "symbol", sym, "error", err)
		cached = nil
	}
	if cached != nil && cached.IsValid(now) {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return *cached
	}

	fresh, err := c.fetch(ctx, sym)
	if err == nil {
		fresh.Symbol = sym
		fresh.UpdatedAt = now
		if err := c.store.Upsert(ctx, fresh); err != nil {
			c.log.Warnw("cache write failed", "symbol", sym, "error", err)
		}
		metrics.CacheLookups.WithLabelValues("refresh").Inc()
		return fresh
	}

	if cached != nil {
		c.log.Infow("using stale fundamentals", "symbol", sym, "updated_at", cached.UpdatedAt, "error", err)
		metrics.CacheLookups.WithLabelValues("stale_fallback").Inc()
		return *cached
	}
	c.log.Warnw("fundamentals unavailable", "symbol", sym, "error", err)
	metrics.CacheLookups.WithLabelValues("empty").Inc()
	return model.FundamentalsRecord{Symbol: sym}
}

func (c *Cache) fetch(ctx context.Context, sym string) (model.FundamentalsRecord, error) {
	if c.fetcher == nil {
		return model.FundamentalsRecord{}, errors.Wrap(errors.ErrProviderUnavailable, "no fundamentals fetcher")
	}
	return c.fetcher.GetProfile(ctx, sym)
}

// Prune deletes records whose last update is older than maxAge.
func (c *Cache) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.Wrap(errors.ErrInvalidInput, "prune max age must be positive")
	}
	n, err := c.store.DeleteOlderThan(ctx, c.now().Add(-maxAge))
	if err != nil {
		return 0, errors.Wrap(err, "prune fundamentals")
	}
	c.log.Infow("pruned fundamentals", "deleted", n, "max_age", maxAge)
	return n, nil
}
