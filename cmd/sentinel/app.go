package main

import (
	"context"
	"fmt"

	"StockSentinel/internal/analysis"
	"StockSentinel/internal/batch"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/config"
	"StockSentinel/internal/cooldown"
	"StockSentinel/internal/fundamentals"
	"StockSentinel/internal/llm"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/scheduler"
	"StockSentinel/internal/store"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// app holds every wired component. Optional pieces are nil when unconfigured.
type app struct {
	cfg *config.Config
	log *logger.Logger

	db        *store.DB
	settrade  *collector.SettradeClient
	cache     *fundamentals.Cache
	router    *collector.Router
	engine    *analysis.Engine
	orch      *batch.Orchestrator
	recorder  *recorder.SQLRecorder
	schedules *store.ScheduleRepository
	watchlist *store.WatchlistRepository
	guard     cooldown.Guard
	redis     *cooldown.RedisGuard
	telegram  *notifier.TelegramNotifier
}

func newApp(ctx context.Context, cfg *config.Config, withTelegram bool) (*app, error) {
	log := logger.Get()
	a := &app{cfg: cfg, log: log}

	db, err := store.Open(cfg.Database.Driver, cfg.Database.URL, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.schedules = store.NewScheduleRepository(db)
	a.watchlist = store.NewWatchlistRepository(db)
	a.recorder = recorder.NewSQLRecorder(db, log)

	finnhub := collector.NewFinnhubClient(cfg.Finnhub.APIKey, cfg.Proxy, cfg.Finnhub.Timeout,
		collector.WithFinnhubBaseURL(cfg.Finnhub.BaseURL),
		collector.WithFinnhubRateLimit(cfg.Finnhub.RequestsPerMinute),
		collector.WithFinnhubLogger(log),
	)
	twelve := collector.NewTwelveDataClient(cfg.TwelveData.APIKey, cfg.Proxy, cfg.TwelveData.Timeout,
		collector.WithTwelveDataBaseURL(cfg.TwelveData.BaseURL),
		collector.WithTwelveDataRateLimit(cfg.TwelveData.RequestsPerMinute),
	)
	a.cache = fundamentals.NewCache(store.NewFundamentalsRepository(db), finnhub, log)

	providers := collector.Providers{
		Quotes:       twelve,
		History:      twelve,
		News:         finnhub,
		Fundamentals: a.cache,
	}
	if cfg.Settrade.AppID != "" {
		a.settrade = collector.NewSettradeClient(collector.SettradeConfig{
			BaseURL:   cfg.Settrade.BaseURL,
			AppID:     cfg.Settrade.AppID,
			AppSecret: cfg.Settrade.AppSecret,
			BrokerID:  cfg.Settrade.BrokerID,
			Timeout:   cfg.Settrade.Timeout,
			ProxyURL:  cfg.Proxy,
		}, log)
		providers.Domestic = a.settrade
	} else {
		log.Warn("settrade credentials not set, domestic symbols will report no data")
	}

	routerCfg := collector.DefaultRouterConfig()
	routerCfg.PolitenessPause = cfg.Batch.PolitenessPause
	a.router = collector.NewRouter(providers, routerCfg, log)

	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
		APIKey:            cfg.AI.GeminiAPIKey,
		Model:             cfg.AI.Model,
		Timeout:           cfg.AI.Timeout,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
	}, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	a.engine = analysis.NewEngine(a.router, gen, log)
	a.orch = batch.NewOrchestrator(a.engine, batch.Config{
		DomesticDelay: cfg.Batch.DomesticDelay,
		GlobalDelay:   cfg.Batch.GlobalDelay,
		Workers:       cfg.Batch.Workers,
	}, log)

	a.guard = cooldown.NewMemoryGuard()
	if cfg.Redis.Addr != "" {
		rg, err := cooldown.NewRedisGuard(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warnw("redis unavailable, using in-process cooldown", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.redis = rg
			a.guard = rg
		}
	}

	if withTelegram && cfg.Telegram.BotToken != "" {
		tn, err := notifier.NewTelegramNotifier(notifier.TelegramConfig{
			Token:         cfg.Telegram.BotToken,
			DefaultChatID: cfg.Telegram.ChatID,
			Proxy:         cfg.Proxy,
		}, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init telegram: %w", err)
		}
		a.telegram = tn
	}
	return a, nil
}

func (a *app) scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	deps := scheduler.Deps{
		Schedules: a.schedules,
		Watchlist: a.watchlist,
		Batch:     a.orch,
		Analyzer:  a.engine,
		Resolver:  a.router,
		Recorder:  a.recorder,
		Cooldown:  a.guard,
		Pruner:    a.cache,
	}
	if a.telegram != nil {
		deps.Pusher = a.telegram
	}
	return scheduler.NewScheduler(ctx, deps, scheduler.Options{
		Location:    loc,
		CooldownTTL: a.cfg.Cooldown.Report,
		PruneMaxAge: a.cfg.Cache.PruneMaxAge,
		Parallel:    a.cfg.Batch.Parallel,
	}, a.log), nil
}

func (a *app) Close() {
	var errs errors.MultiError
	if a.settrade != nil {
		errs.Add(errors.Wrap(a.settrade.Close(), "settrade logout"))
	}
	if a.redis != nil {
		errs.Add(errors.Wrap(a.redis.Close(), "close redis"))
	}
	if a.db != nil {
		errs.Add(errors.Wrap(a.db.Close(), "close database"))
	}
	if err := errs.ToError(); err != nil {
		a.log.Warnw("shutdown incomplete", "error", err, "failures", len(errs.Errors))
	}
}
