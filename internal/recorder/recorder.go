package recorder

import (
	"context"

	"StockSentinel/internal/model"
)

// Recorder persists analysis history for later review.
type Recorder interface {
	RecordAnalysis(ctx context.Context, runID string, res *model.AnalysisResult) error
	RecordBatch(ctx context.Context, run model.BatchRun) error
	Close() error
}

// HistoryEntry is one persisted analysis.
type HistoryEntry struct {
	RunID       string  `db:"run_id" json:"run_id"`
	Symbol      string  `db:"symbol" json:"symbol"`
	Market      string  `db:"market" json:"market"`
	Price       float64 `db:"price" json:"price"`
	Signal      string  `db:"signal" json:"signal"`
	Reason      string  `db:"reason" json:"reason"`
	NewsSummary string  `db:"news_summary" json:"news_summary"`
	AnalyzedAt  int64   `db:"analyzed_at" json:"analyzed_at"`
}
