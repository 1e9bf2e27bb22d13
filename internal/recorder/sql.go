package recorder

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"StockSentinel/internal/model"
	"StockSentinel/internal/store"
	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// SQLRecorder writes into the analysis_history and batch_runs tables.
type SQLRecorder struct {
	db  *store.DB
	mu  sync.Mutex
	log *logger.Logger
}

// NewSQLRecorder wraps an open database. The schema is created by store.Open.
func NewSQLRecorder(db *store.DB, log *logger.Logger) *SQLRecorder {
	if log == nil {
		log = logger.Get()
	}
	return &SQLRecorder{db: db, log: log.With("component", "recorder")}
}

func (r *SQLRecorder) RecordAnalysis(ctx context.Context, runID string, res *model.AnalysisResult) error {
	if res == nil {
		return errors.Wrap(errors.ErrInvalidInput, "nil analysis result")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	query := r.db.Rebind(`INSERT INTO analysis_history
		(run_id, symbol, market, price, pe_ratio, dividend_yield, rsi14, sma50,
		 signal, reason, news_summary, degraded, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		runID, res.Symbol, string(res.Market), res.Quote.Price,
		res.Metrics.PERatio, res.Metrics.DividendYield,
		nullable(res.Indicators.RSI14), nullable(res.Indicators.SMA50),
		string(res.Signal), res.Reason, res.NewsSummary,
		strings.Join(res.Degraded, ","), res.AnalyzedAt.UTC().Unix(),
	)
	return errors.Wrap(err, "insert analysis history")
}

func (r *SQLRecorder) RecordBatch(ctx context.Context, run model.BatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := r.db.Rebind(`INSERT INTO batch_runs
		(run_id, user_id, source, items, errors, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		run.RunID, run.UserID, run.Source, run.Items, run.Errors,
		run.StartedAt.UTC().Unix(), run.FinishedAt.UTC().Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "insert batch run")
	}
	r.log.Debugw("batch recorded", "run_id", run.RunID, "items", run.Items, "errors", run.Errors)
	return nil
}

// History returns the latest analyses of a symbol, newest first.
func (r *SQLRecorder) History(ctx context.Context, symbol string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []HistoryEntry
	query := r.db.Rebind(`SELECT run_id, symbol, market, COALESCE(price, 0) AS price, signal,
			COALESCE(reason, '') AS reason, COALESCE(news_summary, '') AS news_summary, analyzed_at
		FROM analysis_history WHERE symbol = ? ORDER BY analyzed_at DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &out, query, model.NormalizeSymbol(symbol), limit); err != nil {
		return nil, errors.Wrap(err, "select analysis history")
	}
	return out, nil
}

// Close closes the underlying database.
func (r *SQLRecorder) Close() error {
	return r.db.Close()
}

func nullable(i model.Indicator) sql.NullFloat64 {
	return sql.NullFloat64{Float64: i.Value, Valid: i.Valid}
}
