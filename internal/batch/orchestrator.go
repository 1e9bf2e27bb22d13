package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/pkg/logger"
)

// ItemErrorPrefix starts the reason of a synthesized per-item failure.
const ItemErrorPrefix = "เกิดข้อผิดพลาด: "

// Analyzer produces one result per symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, s model.Settings) *model.AnalysisResult
}

// Callback receives each result as soon as it is ready.
type Callback func(*model.AnalysisResult)

// Config controls pacing and parallelism.
type Config struct {
	DomesticDelay time.Duration
	GlobalDelay   time.Duration
	Workers       int
}

// DefaultConfig matches the upstream free-tier budgets.
func DefaultConfig() Config {
	return Config{
		DomesticDelay: 1 * time.Second,
		GlobalDelay:   15 * time.Second,
		Workers:       4,
	}
}

// Orchestrator runs an analyzer over a watchlist. Every item yields exactly
// one result; failures never abort sibling items.
type Orchestrator struct {
	engine Analyzer
	cfg    Config
	log    *logger.Logger
	now    func() time.Time
}

// NewOrchestrator creates an Orchestrator. A non-positive worker count uses the default.
func NewOrchestrator(engine Analyzer, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if log == nil {
		log = logger.Get()
	}
	return &Orchestrator{engine: engine, cfg: cfg, log: log.With("component", "batch"), now: time.Now}
}

// NewRunID returns a fresh identifier for a batch run.
func NewRunID() string {
	return uuid.NewString()
}

// Run analyzes items sequentially and returns results in item order.
func (o *Orchestrator) Run(ctx context.Context, items []model.WatchlistItem, defaults model.UserDefaults) []*model.AnalysisResult {
	return o.RunStream(ctx, items, defaults, nil)
}

// RunStream is Run with a callback invoked after each item, before pacing.
// A delay follows every item except the last: short for domestic symbols,
// long for global ones. Cancelling ctx turns the remaining items into errors.
func (o *Orchestrator) RunStream(ctx context.Context, items []model.WatchlistItem, defaults model.UserDefaults, cb Callback) []*model.AnalysisResult {
	start := o.now()
	defer func() { metrics.BatchDuration.WithLabelValues("sequential").Observe(time.Since(start).Seconds()) }()

	o.log.Infow("batch started", "mode", "sequential", "items", len(items), "estimate", Estimate(items))

	results := make([]*model.AnalysisResult, 0, len(items))
	for i, item := range items {
		res := o.analyzeItem(ctx, item, defaults)
		results = append(results, res)
		if cb != nil {
			o.deliver(cb, res)
		}

		if i == len(items)-1 || ctx.Err() != nil {
			continue
		}
		if err := sleepCtx(ctx, o.delayFor(item.Symbol)); err != nil {
			o.log.Warnw("batch pacing interrupted", "remaining", len(items)-i-1, "error", err)
		}
	}

	o.log.Infow("batch finished", "mode", "sequential", "items", len(results), "errors", CountErrors(results), "elapsed", time.Since(start))
	return results
}

// RunParallel analyzes items on a fixed pool of workers. No inter-item delay
// is applied; provider rate limiters govern quota. Result order is unspecified.
func (o *Orchestrator) RunParallel(ctx context.Context, items []model.WatchlistItem, defaults model.UserDefaults, cb Callback) []*model.AnalysisResult {
	start := o.now()
	defer func() { metrics.BatchDuration.WithLabelValues("parallel").Observe(time.Since(start).Seconds()) }()

	o.log.Infow("batch started", "mode", "parallel", "items", len(items), "workers", o.cfg.Workers)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]*model.AnalysisResult, 0, len(items))
	)
	semaphore := make(chan struct{}, o.cfg.Workers)

	for _, item := range items {
		wg.Add(1)
		go func(it model.WatchlistItem) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			res := o.analyzeItem(ctx, it, defaults)

			mu.Lock()
			results = append(results, res)
			if cb != nil {
				o.deliver(cb, res)
			}
			mu.Unlock()
		}(item)
	}
	wg.Wait()

	o.log.Infow("batch finished", "mode", "parallel", "items", len(results), "errors", CountErrors(results), "elapsed", time.Since(start))
	return results
}

func (o *Orchestrator) analyzeItem(ctx context.Context, item model.WatchlistItem, defaults model.UserDefaults) (res *model.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorw("analysis panicked", "symbol", item.Symbol, "panic", r)
			res = model.NewErrorResult(item.Symbol, fmt.Sprintf("%s%v", ItemErrorPrefix, r), o.now())
		}
	}()

	if err := ctx.Err(); err != nil {
		return model.NewErrorResult(item.Symbol, ItemErrorPrefix+err.Error(), o.now())
	}

	res = o.engine.Analyze(ctx, item.Symbol, item.Resolve(defaults))
	if res == nil {
		return model.NewErrorResult(item.Symbol, ItemErrorPrefix+"empty result", o.now())
	}
	return res
}

func (o *Orchestrator) deliver(cb Callback, res *model.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorw("result callback panicked", "symbol", res.Symbol, "panic", r)
		}
	}()
	cb(res)
}

func (o *Orchestrator) delayFor(symbol string) time.Duration {
	if model.ClassifyMarket(symbol) == model.MarketDomestic {
		return o.cfg.DomesticDelay
	}
	return o.cfg.GlobalDelay
}

// Estimate predicts the wall time of a sequential run, for user feedback.
func Estimate(items []model.WatchlistItem) time.Duration {
	d := 20 * time.Second
	for _, it := range items {
		if model.ClassifyMarket(it.Symbol) == model.MarketDomestic {
			d += 15 * time.Second
		} else {
			d += 30 * time.Second
		}
	}
	return d
}

// CountErrors counts ERROR results.
func CountErrors(results []*model.AnalysisResult) int {
	n := 0
	for _, r := range results {
		if r.Signal == model.SignalError {
			n++
		}
	}
	return n
}

// Summarize builds the run record persisted after a batch.
func Summarize(runID, userID, source string, results []*model.AnalysisResult, started, finished time.Time) model.BatchRun {
	return model.BatchRun{
		RunID:      runID,
		UserID:     userID,
		Source:     source,
		Items:      len(results),
		Errors:     CountErrors(results),
		StartedAt:  started,
		FinishedAt: finished,
	}
}

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
