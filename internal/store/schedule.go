package store

import (
	"context"
	"database/sql"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// ScheduleRepository stores per-user alert schedules.
type ScheduleRepository struct {
	db *DB
}

// NewScheduleRepository creates a repository.
func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

type scheduleRow struct {
	UserID    string        `db:"user_id"`
	AlertTime string        `db:"alert_time"`
	LastRun   sql.NullInt64 `db:"last_run"`
	Active    bool          `db:"active"`
}

func (r scheduleRow) toModel() model.Schedule {
	s := model.Schedule{UserID: r.UserID, AlertTime: r.AlertTime, Active: r.Active}
	if r.LastRun.Valid {
		t := fromUnix(r.LastRun.Int64)
		s.LastRun = &t
	}
	return s
}

// Upsert sets a user's alert time and active flag. LastRun is preserved.
func (r *ScheduleRepository) Upsert(ctx context.Context, s model.Schedule) error {
	query := r.db.Rebind(`INSERT INTO schedules (user_id, alert_time, active)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			alert_time = excluded.alert_time,
			active = excluded.active`)
	_, err := r.db.ExecContext(ctx, query, s.UserID, s.AlertTime, s.Active)
	return errors.Wrap(err, "upsert schedule")
}

// Get returns a user's schedule or ErrNotFound.
func (r *ScheduleRepository) Get(ctx context.Context, userID string) (model.Schedule, error) {
	var row scheduleRow
	query := r.db.Rebind(`SELECT user_id, alert_time, last_run, active FROM schedules WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Schedule{}, errors.Wrapf(errors.ErrNotFound, "schedule %s", userID)
		}
		return model.Schedule{}, errors.Wrap(err, "get schedule")
	}
	return row.toModel(), nil
}

// ListActive returns every active schedule.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]model.Schedule, error) {
	var rows []scheduleRow
	query := r.db.Rebind(`SELECT user_id, alert_time, last_run, active FROM schedules WHERE active = ? ORDER BY user_id`)
	if err := r.db.SelectContext(ctx, &rows, query, true); err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	out := make([]model.Schedule, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// MarkRun claims the hour containing at for the user's schedule and records
// at as the last run. It is ErrAlreadyClaimed when last_run already falls in
// that hour or later, and ErrNotFound when the user has no schedule.
func (r *ScheduleRepository) MarkRun(ctx context.Context, userID string, at time.Time) error {
	hourStart := time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), 0, 0, 0, at.Location())
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE schedules SET last_run = ? WHERE user_id = ? AND (last_run IS NULL OR last_run < ?)`),
		unix(at), userID, unix(hourStart))
	if err != nil {
		return errors.Wrap(err, "mark schedule run")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, userID); err != nil {
		return err
	}
	return errors.Wrapf(errors.ErrAlreadyClaimed, "schedule %s at %s", userID, hourStart.Format("2006-01-02 15:04"))
}
