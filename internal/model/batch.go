package model

import "time"

// BatchRun summarizes one batch execution.
type BatchRun struct {
	RunID      string    `db:"run_id"`
	UserID     string    `db:"user_id"`
	Source     string    `db:"source"` // schedule|command|api|cli
	Items      int       `db:"items"`
	Errors     int       `db:"errors"`
	StartedAt  time.Time `db:"-"`
	FinishedAt time.Time `db:"-"`
}
