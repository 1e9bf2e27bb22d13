package store

import (
	"context"
	"database/sql"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// WatchlistRepository stores users' watchlists and account-wide defaults.
type WatchlistRepository struct {
	db       *DB
	now      func() time.Time
	maxItems int
}

// NewWatchlistRepository creates a repository capped at model.MaxWatchlistItems per user.
func NewWatchlistRepository(db *DB) *WatchlistRepository {
	return &WatchlistRepository{db: db, now: time.Now, maxItems: model.MaxWatchlistItems}
}

// AddItem inserts a watchlist entry. An entry already present is left
// untouched and reported as ErrAlreadyExists; a full watchlist is ErrLimitReached.
func (r *WatchlistRepository) AddItem(ctx context.Context, item model.WatchlistItem) error {
	item.Symbol = model.NormalizeSymbol(item.Symbol)
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin add watchlist item")
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM watchlist WHERE user_id = ? AND symbol = ?`),
		item.UserID, item.Symbol); err != nil {
		return errors.Wrap(err, "check watchlist item")
	}
	if exists > 0 {
		return errors.Wrapf(errors.ErrAlreadyExists, "watchlist %s/%s", item.UserID, item.Symbol)
	}

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM watchlist WHERE user_id = ?`), item.UserID); err != nil {
		return errors.Wrap(err, "count watchlist")
	}
	if count >= r.maxItems {
		return errors.Wrapf(errors.ErrLimitReached, "watchlist %s has %d items", item.UserID, count)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO watchlist
		(user_id, symbol, strategy, goal, risk, report_format, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, symbol) DO NOTHING`),
		item.UserID, item.Symbol, item.Strategy, item.Goal, item.Risk, item.ReportFormat, unix(r.now()))
	if err != nil {
		return errors.Wrap(err, "add watchlist item")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrAlreadyExists, "watchlist %s/%s", item.UserID, item.Symbol)
	}
	return errors.Wrap(tx.Commit(), "commit watchlist item")
}

// SetItemOverride sets one per-item setting. A nil value clears the override.
// Missing entries are ErrNotFound.
func (r *WatchlistRepository) SetItemOverride(ctx context.Context, userID, symbol string, field model.SettingField, value *string) error {
	var column string
	switch field {
	case model.FieldStrategy, model.FieldGoal, model.FieldRisk, model.FieldReportFormat:
		column = string(field)
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "setting %q", field)
	}
	symbol = model.NormalizeSymbol(symbol)
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE watchlist SET `+column+` = ? WHERE user_id = ? AND symbol = ?`),
		value, userID, symbol)
	if err != nil {
		return errors.Wrap(err, "set watchlist override")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "watchlist %s/%s", userID, symbol)
	}
	return nil
}

// RemoveItem deletes a watchlist entry. Missing entries are ErrNotFound.
func (r *WatchlistRepository) RemoveItem(ctx context.Context, userID, symbol string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`),
		userID, model.NormalizeSymbol(symbol))
	if err != nil {
		return errors.Wrap(err, "remove watchlist item")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "watchlist %s/%s", userID, symbol)
	}
	return nil
}

// ListItems returns a user's watchlist in insertion order.
func (r *WatchlistRepository) ListItems(ctx context.Context, userID string) ([]model.WatchlistItem, error) {
	var items []model.WatchlistItem
	query := r.db.Rebind(`SELECT user_id, symbol, strategy, goal, risk, report_format
		FROM watchlist WHERE user_id = ? ORDER BY created_at, symbol`)
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, errors.Wrap(err, "list watchlist")
	}
	return items, nil
}

// GetUserDefaults returns the user's defaults, or empty defaults when the user has none.
func (r *WatchlistRepository) GetUserDefaults(ctx context.Context, userID string) (model.UserDefaults, error) {
	var u model.UserDefaults
	query := r.db.Rebind(`SELECT user_id, strategy, goal, risk, report_format FROM users WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &u, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserDefaults{UserID: userID}, nil
		}
		return model.UserDefaults{}, errors.Wrap(err, "get user defaults")
	}
	return u, nil
}

// SetUserDefaults inserts or replaces the user's defaults.
func (r *WatchlistRepository) SetUserDefaults(ctx context.Context, u model.UserDefaults) error {
	query := r.db.Rebind(`INSERT INTO users (user_id, strategy, goal, risk, report_format)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			strategy = excluded.strategy,
			goal = excluded.goal,
			risk = excluded.risk,
			report_format = excluded.report_format`)
	_, err := r.db.ExecContext(ctx, query, u.UserID, u.Strategy, u.Goal, u.Risk, u.ReportFormat)
	return errors.Wrap(err, "set user defaults")
}
