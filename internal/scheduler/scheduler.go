package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"StockSentinel/internal/batch"
	"StockSentinel/internal/cooldown"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// ScheduleStore persists alert schedules.
type ScheduleStore interface {
	Get(ctx context.Context, userID string) (model.Schedule, error)
	Upsert(ctx context.Context, s model.Schedule) error
	ListActive(ctx context.Context) ([]model.Schedule, error)
	// MarkRun claims the hour of at; errors.ErrAlreadyClaimed when taken.
	MarkRun(ctx context.Context, userID string, at time.Time) error
}

// WatchlistStore persists watchlists and per-user defaults.
type WatchlistStore interface {
	AddItem(ctx context.Context, item model.WatchlistItem) error
	RemoveItem(ctx context.Context, userID, symbol string) error
	ListItems(ctx context.Context, userID string) ([]model.WatchlistItem, error)
	GetUserDefaults(ctx context.Context, userID string) (model.UserDefaults, error)
	SetUserDefaults(ctx context.Context, u model.UserDefaults) error
	SetItemOverride(ctx context.Context, userID, symbol string, field model.SettingField, value *string) error
}

// BatchRunner analyzes a watchlist, streaming each result.
type BatchRunner interface {
	RunStream(ctx context.Context, items []model.WatchlistItem, defaults model.UserDefaults, cb batch.Callback) []*model.AnalysisResult
	RunParallel(ctx context.Context, items []model.WatchlistItem, defaults model.UserDefaults, cb batch.Callback) []*model.AnalysisResult
}

// SymbolResolver turns user input into a tradable symbol.
type SymbolResolver interface {
	Resolve(ctx context.Context, raw string) (*model.Quote, error)
}

// Pruner removes old cached fundamentals.
type Pruner interface {
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Deps are the collaborators of a Scheduler. Cooldown and Pruner may be nil.
type Deps struct {
	Schedules ScheduleStore
	Watchlist WatchlistStore
	Batch     BatchRunner
	Analyzer  batch.Analyzer
	Resolver  SymbolResolver
	Pusher    notifier.Pusher
	Recorder  recorder.Recorder
	Cooldown  cooldown.Guard
	Pruner    Pruner
}

// Options tune the Scheduler.
type Options struct {
	Location    *time.Location
	CooldownTTL time.Duration
	PruneMaxAge time.Duration
	Parallel    bool
}

// Scheduler manages cron tasks and chat commands.
type Scheduler struct {
	cron *cron.Cron
	deps Deps
	opts Options
	log  *logger.Logger
	ctx  context.Context
	now  func() time.Time

	// serializes CheckJobs so overlapping triggers see each other's MarkRun
	checkMu sync.Mutex
}

// NewScheduler creates a Scheduler. ctx bounds every job started by cron.
func NewScheduler(ctx context.Context, deps Deps, opts Options, log *logger.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CooldownTTL <= 0 {
		opts.CooldownTTL = 30 * time.Second
	}
	if opts.PruneMaxAge <= 0 {
		opts.PruneMaxAge = 90 * 24 * time.Hour
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = logger.Get()
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithLocation(opts.Location)),
		deps: deps,
		opts: opts,
		log:  log.With("component", "scheduler"),
		ctx:  ctx,
		now:  time.Now,
	}
}

// RegisterAll registers the alert check and the fundamentals prune.
func (s *Scheduler) RegisterAll(checkCron, pruneCron string) error {
	if _, err := s.cron.AddFunc(checkCron, func() {
		if _, err := s.CheckJobs(s.ctx); err != nil {
			s.log.Errorw("check jobs failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register check task: %w", err)
	}
	if pruneCron != "" && s.deps.Pruner != nil {
		if _, err := s.cron.AddFunc(pruneCron, s.pruneTask); err != nil {
			return fmt.Errorf("register prune task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infow("scheduler started", "location", s.opts.Location.String())
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Infow("scheduler stopped")
}

// CheckJobs runs the batch of every schedule due in the current hour and
// returns how many fired. LastRun is claimed before the batch starts; a
// schedule whose claim fails or was taken by another trigger is skipped.
func (s *Scheduler) CheckJobs(ctx context.Context) (int, error) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	now := s.now().In(s.opts.Location)
	schedules, err := s.deps.Schedules.ListActive(ctx)
	if err != nil {
		metrics.ScheduleFires.WithLabelValues("error").Inc()
		return 0, errors.Wrap(err, "list active schedules")
	}

	fired := 0
	for _, sch := range schedules {
		if !ShouldFire(sch, now) {
			metrics.ScheduleFires.WithLabelValues("skipped").Inc()
			continue
		}
		if err := s.deps.Schedules.MarkRun(ctx, sch.UserID, now); err != nil {
			if errors.Is(err, errors.ErrAlreadyClaimed) {
				metrics.ScheduleFires.WithLabelValues("skipped").Inc()
				s.log.Debugw("schedule claimed elsewhere", "user_id", sch.UserID)
				continue
			}
			metrics.ScheduleFires.WithLabelValues("error").Inc()
			s.log.Errorw("mark run failed, skipping", "user_id", sch.UserID, "error", err)
			continue
		}
		metrics.ScheduleFires.WithLabelValues("fired").Inc()
		fired++

		if _, err := s.RunForUser(ctx, sch.UserID, "schedule"); err != nil {
			s.log.Errorw("scheduled batch failed", "user_id", sch.UserID, "error", err)
		}
	}
	s.log.Infow("schedules checked", "active", len(schedules), "fired", fired, "hour", now.Hour())
	return fired, nil
}

// RunForUser analyzes a user's watchlist, pushing a header, one message per
// result and a footer to the user's chat.
func (s *Scheduler) RunForUser(ctx context.Context, userID, source string) (model.BatchRun, error) {
	items, err := s.deps.Watchlist.ListItems(ctx, userID)
	if err != nil {
		return model.BatchRun{}, errors.Wrap(err, "load watchlist")
	}
	if len(items) == 0 {
		s.push(ctx, userID, notifier.FormatWatchlist(nil))
		return model.BatchRun{UserID: userID, Source: source}, nil
	}
	defaults, err := s.deps.Watchlist.GetUserDefaults(ctx, userID)
	if err != nil {
		return model.BatchRun{}, errors.Wrap(err, "load user defaults")
	}

	formats := make(map[string]string, len(items))
	for _, it := range items {
		formats[model.NormalizeSymbol(it.Symbol)] = it.Resolve(defaults).ReportFormat
	}

	runID := batch.NewRunID()
	started := s.now()
	s.push(ctx, userID, notifier.FormatBatchHeader(len(items), batch.Estimate(items)))

	cb := func(res *model.AnalysisResult) {
		s.push(ctx, userID, notifier.FormatResult(res, formats[res.Symbol]))
		if err := s.deps.Recorder.RecordAnalysis(ctx, runID, res); err != nil {
			s.log.Errorw("record analysis failed", "run_id", runID, "symbol", res.Symbol, "error", err)
		}
	}

	var results []*model.AnalysisResult
	if s.opts.Parallel {
		results = s.deps.Batch.RunParallel(ctx, items, defaults, cb)
	} else {
		results = s.deps.Batch.RunStream(ctx, items, defaults, cb)
	}

	run := batch.Summarize(runID, userID, source, results, started, s.now())
	if err := s.deps.Recorder.RecordBatch(ctx, run); err != nil {
		s.log.Errorw("record batch failed", "run_id", runID, "error", err)
	}
	s.push(ctx, userID, notifier.FormatBatchFooter(run))
	return run, nil
}

func (s *Scheduler) pruneTask() {
	n, err := s.deps.Pruner.Prune(s.ctx, s.opts.PruneMaxAge)
	if err != nil {
		s.log.Errorw("prune fundamentals failed", "error", err)
		return
	}
	s.log.Infow("fundamentals pruned", "deleted", n, "max_age", s.opts.PruneMaxAge)
}

func (s *Scheduler) push(ctx context.Context, chatID, text string) {
	if s.deps.Pusher == nil {
		return
	}
	if err := s.deps.Pusher.Push(ctx, chatID, text); err != nil {
		s.log.Errorw("push failed", "chat_id", chatID, "error", err)
	}
}
