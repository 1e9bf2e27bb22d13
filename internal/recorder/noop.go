package recorder

import (
	"context"

	"StockSentinel/internal/model"
)

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ context.Context, _ string, _ *model.AnalysisResult) error {
	return nil
}
func (n *NoopRecorder) RecordBatch(_ context.Context, _ model.BatchRun) error { return nil }
func (n *NoopRecorder) Close() error                                         { return nil }
