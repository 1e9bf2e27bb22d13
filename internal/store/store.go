package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"StockSentinel/pkg/logger"
)

// DB is the shared connection used by every repository.
type DB struct {
	*sqlx.DB
	driver string
}

// Open connects to sqlite (file path or ":memory:") or postgres and runs migrations.
func Open(driver, dsn string, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Get()
	}
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case "sqlite":
		db, err = sqlx.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One writer; also keeps ":memory:" a single database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	case "postgres":
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	s := &DB{DB: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Infow("database opened", "driver", driver)
	return s, nil
}

// Driver returns "sqlite" or "postgres".
func (s *DB) Driver() string { return s.driver }

func (s *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fundamentals (
			symbol         TEXT PRIMARY KEY,
			company_name   TEXT NOT NULL DEFAULT '',
			market_cap     TEXT NOT NULL DEFAULT '',
			pe_ratio       DOUBLE PRECISION NOT NULL DEFAULT 0,
			dividend_yield DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at     BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fundamentals_updated ON fundamentals(updated_at)`,

		`CREATE TABLE IF NOT EXISTS users (
			user_id       TEXT PRIMARY KEY,
			strategy      TEXT NOT NULL DEFAULT '',
			goal          TEXT NOT NULL DEFAULT '',
			risk          TEXT NOT NULL DEFAULT '',
			report_format TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS watchlist (
			user_id       TEXT NOT NULL,
			symbol        TEXT NOT NULL,
			strategy      TEXT,
			goal          TEXT,
			risk          TEXT,
			report_format TEXT,
			created_at    BIGINT NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,

		`CREATE TABLE IF NOT EXISTS schedules (
			user_id    TEXT PRIMARY KEY,
			alert_time TEXT NOT NULL,
			last_run   BIGINT,
			active     BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS analysis_history (
			run_id         TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			market         TEXT NOT NULL,
			price          DOUBLE PRECISION,
			pe_ratio       DOUBLE PRECISION,
			dividend_yield DOUBLE PRECISION,
			rsi14          DOUBLE PRECISION,
			sma50          DOUBLE PRECISION,
			signal         TEXT NOT NULL,
			reason         TEXT,
			news_summary   TEXT,
			degraded       TEXT,
			analyzed_at    BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_symbol_ts ON analysis_history(symbol, analyzed_at)`,

		`CREATE TABLE IF NOT EXISTS batch_runs (
			run_id      TEXT PRIMARY KEY,
			user_id     TEXT,
			source      TEXT NOT NULL,
			items       INTEGER NOT NULL,
			errors      INTEGER NOT NULL,
			started_at  BIGINT NOT NULL,
			finished_at BIGINT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

func unix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}
