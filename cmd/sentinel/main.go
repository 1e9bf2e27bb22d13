package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"StockSentinel/internal/api"
	"StockSentinel/internal/config"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/pkg/logger"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "sentinel",
		Short:         "Stock watchlist analysis with AI signals and scheduled alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(pruneCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig(serve bool) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	validate := cfg.Validate
	if serve {
		validate = cfg.ValidateServe
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, Telegram bot and HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			defer logger.Sync()
			log := logger.Get()
			metrics.Init()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.scheduler(ctx)
			if err != nil {
				return err
			}
			if err := sched.RegisterAll(cfg.Schedule.CheckCron, cfg.Schedule.PruneCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			go a.telegram.StartPolling(ctx, sched.HandleCommand)

			srv := api.NewServer(ctx, api.Deps{
				Jobs:     sched,
				Analyzer: a.engine,
				History:  a.recorder,
				DB:       a.db,
			}, cfg.HTTP.CronSecret, cfg.App.Env == "production", log).HTTPServer(cfg.HTTP.Addr)

			go func() {
				log.Infow("http server listening", "addr", cfg.HTTP.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorw("http server failed", "error", err)
					stop()
				}
			}()

			log.Info("StockSentinel is running. Press Ctrl+C to stop.")
			<-ctx.Done()
			log.Info("shutdown signal received, stopping...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnw("http shutdown", "error", err)
			}
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var (
		settings = model.DefaultSettings
		parallel bool
	)
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL [SYMBOL...]",
		Short: "Analyze symbols once and print the verdicts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			items := make([]model.WatchlistItem, len(args))
			for i, s := range args {
				items[i] = model.WatchlistItem{Symbol: s}
			}
			defaults := model.UserDefaults{
				Strategy:     settings.Strategy,
				Goal:         settings.Goal,
				Risk:         settings.Risk,
				ReportFormat: settings.ReportFormat,
			}

			emit := func(r *model.AnalysisResult) {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-5s %10.2f  %s | %s\n",
					r.Symbol, r.Signal, r.Quote.Price, r.Reason, r.NewsSummary)
			}
			if parallel {
				a.orch.RunParallel(ctx, items, defaults, emit)
			} else {
				a.orch.RunStream(ctx, items, defaults, emit)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&settings.Strategy, "strategy", settings.Strategy, "Investment strategy (Value, Growth, Dividend, ...)")
	cmd.Flags().StringVar(&settings.Goal, "goal", settings.Goal, "Investment horizon (Short, Medium, Long)")
	cmd.Flags().StringVar(&settings.Risk, "risk", settings.Risk, "Risk tolerance (Low, Medium, High)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Use the worker pool instead of paced sequential runs")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run schedules due in the current hour once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.scheduler(ctx)
			if err != nil {
				return err
			}
			fired, err := sched.CheckJobs(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d schedule(s) fired\n", fired)
			return nil
		},
	}
}

func pruneCmd() *cobra.Command {
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached fundamentals older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if maxAge <= 0 {
				maxAge = cfg.Cache.PruneMaxAge
			}

			a, err := newApp(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.cache.Prune(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d record(s) older than %s\n", n, maxAge)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Maximum record age (default from config)")
	return cmd
}
