package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/model"
	"StockSentinel/internal/store"
	"StockSentinel/pkg/logger"
)

func newTestRecorder(t *testing.T) *SQLRecorder {
	t.Helper()
	db, err := store.Open("sqlite", ":memory:", logger.Nop())
	require.NoError(t, err)
	r := NewSQLRecorder(db, logger.Nop())
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLRecorder_AnalysisHistory(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first := &model.AnalysisResult{
		Symbol:     "PTT.BK",
		Market:     model.MarketDomestic,
		Quote:      model.Quote{Price: 34.5},
		Indicators: model.IndicatorSet{RSI14: model.Some(41.2)},
		Signal:     model.SignalHold,
		Reason:     "แนวโน้มทรงตัว",
		AnalyzedAt: base,
	}
	second := &model.AnalysisResult{
		Symbol:      "PTT.BK",
		Market:      model.MarketDomestic,
		Signal:      model.SignalError,
		Reason:      "no data",
		NewsSummary: "-",
		Degraded:    []string{"history", "company_news"},
		AnalyzedAt:  base.Add(time.Hour),
	}
	require.NoError(t, r.RecordAnalysis(ctx, "run-1", first))
	require.NoError(t, r.RecordAnalysis(ctx, "run-2", second))

	hist, err := r.History(ctx, "ptt.bk", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "run-2", hist[0].RunID)
	assert.Equal(t, "ERROR", hist[0].Signal)
	assert.Equal(t, "HOLD", hist[1].Signal)
	assert.Equal(t, 34.5, hist[1].Price)

	assert.Error(t, r.RecordAnalysis(ctx, "run-3", nil))
}

func TestSQLRecorder_RecordBatch(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	now := time.Now()

	run := model.BatchRun{RunID: "abc", UserID: "u1", Source: "schedule", Items: 3, Errors: 1, StartedAt: now, FinishedAt: now.Add(time.Minute)}
	require.NoError(t, r.RecordBatch(ctx, run))
	// run_id is the primary key
	assert.Error(t, r.RecordBatch(ctx, run))

	var count int
	require.NoError(t, r.db.Get(&count, `SELECT COUNT(*) FROM batch_runs`))
	assert.Equal(t, 1, count)
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	assert.NoError(t, rec.RecordAnalysis(context.Background(), "x", &model.AnalysisResult{}))
	assert.NoError(t, rec.RecordBatch(context.Background(), model.BatchRun{}))
	assert.NoError(t, rec.Close())
}
