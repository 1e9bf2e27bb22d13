package store

import (
	"context"
	"database/sql"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// FundamentalsRepository persists the fundamentals cache.
type FundamentalsRepository struct {
	db *DB
}

// NewFundamentalsRepository creates a repository.
func NewFundamentalsRepository(db *DB) *FundamentalsRepository {
	return &FundamentalsRepository{db: db}
}

type fundamentalsRow struct {
	Symbol        string  `db:"symbol"`
	CompanyName   string  `db:"company_name"`
	MarketCap     string  `db:"market_cap"`
	PERatio       float64 `db:"pe_ratio"`
	DividendYield float64 `db:"dividend_yield"`
	UpdatedAt     int64   `db:"updated_at"`
}

// Get returns errors.ErrNotFound when the symbol has no record.
func (r *FundamentalsRepository) Get(ctx context.Context, symbol string) (*model.FundamentalsRecord, error) {
	var row fundamentalsRow
	query := r.db.Rebind(`SELECT symbol, company_name, market_cap, pe_ratio, dividend_yield, updated_at
		FROM fundamentals WHERE symbol = ?`)
	if err := r.db.GetContext(ctx, &row, query, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "fundamentals %s", symbol)
		}
		return nil, errors.Wrap(err, "get fundamentals")
	}
	return &model.FundamentalsRecord{
		Symbol:        row.Symbol,
		CompanyName:   row.CompanyName,
		MarketCap:     row.MarketCap,
		PERatio:       row.PERatio,
		DividendYield: row.DividendYield,
		UpdatedAt:     fromUnix(row.UpdatedAt),
	}, nil
}

// Upsert inserts or replaces the record for rec.Symbol.
func (r *FundamentalsRepository) Upsert(ctx context.Context, rec model.FundamentalsRecord) error {
	query := r.db.Rebind(`INSERT INTO fundamentals
		(symbol, company_name, market_cap, pe_ratio, dividend_yield, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = excluded.company_name,
			market_cap = excluded.market_cap,
			pe_ratio = excluded.pe_ratio,
			dividend_yield = excluded.dividend_yield,
			updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query,
		rec.Symbol, rec.CompanyName, rec.MarketCap, rec.PERatio, rec.DividendYield, unix(rec.UpdatedAt))
	return errors.Wrap(err, "upsert fundamentals")
}

// DeleteOlderThan removes records last updated before cutoff.
func (r *FundamentalsRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM fundamentals WHERE updated_at < ?`), unix(cutoff))
	if err != nil {
		return 0, errors.Wrap(err, "delete fundamentals")
	}
	return res.RowsAffected()
}
