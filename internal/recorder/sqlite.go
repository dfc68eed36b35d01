package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"Backtester/internal/model"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			symbol             TEXT NOT NULL,
			start_date         TEXT,
			end_date           TEXT,
			short_window       INTEGER,
			long_window        INTEGER,
			initial_capital    REAL,
			final_value        REAL,
			total_return       REAL,
			annualized_return  REAL,
			market_return      REAL,
			volatility         REAL,
			sharpe_ratio       REAL,
			max_drawdown       REAL,
			win_rate           REAL,
			active_days        INTEGER,
			entries            INTEGER,
			exits              INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON backtest_runs(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS portfolio_values (
			run_id  INTEGER NOT NULL REFERENCES backtest_runs(id),
			date    TEXT NOT NULL,
			close   REAL,
			cash    REAL,
			shares  REAL,
			value   REAL,
			action  TEXT,
			PRIMARY KEY (run_id, date)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rep := rec.Report
	res, err := tx.Exec(`INSERT INTO backtest_runs
		(timestamp, symbol, start_date, end_date, short_window, long_window,
		 initial_capital, final_value, total_return, annualized_return, market_return,
		 volatility, sharpe_ratio, max_drawdown, win_rate, active_days, entries, exits)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), rec.Symbol,
		rec.Start.Format(model.DateLayout), rec.End.Format(model.DateLayout),
		rec.ShortWindow, rec.LongWindow,
		rec.InitialCapital, rep.FinalValue, rep.TotalReturn, nullable(rep.AnnualizedReturn), rep.MarketReturn,
		rep.Volatility, rep.SharpeRatio, rep.MaxDrawdown, rep.WinRate,
		rep.ActiveDays, rep.Entries, rep.Exits,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	if rec.Values != nil {
		stmt, err := tx.Prepare(`INSERT INTO portfolio_values
			(run_id, date, close, cash, shares, value, action) VALUES (?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare values: %w", err)
		}
		defer stmt.Close()
		for _, p := range rec.Values.Points {
			if _, err := stmt.Exec(runID, p.Time.Format(model.DateLayout), p.Close, p.Cash, p.Shares, p.Value, string(p.Action)); err != nil {
				return fmt.Errorf("insert value %s: %w", p.Time.Format(model.DateLayout), err)
			}
		}
	}
	return tx.Commit()
}

// RecentRuns returns the latest runs of symbol, newest first. An empty symbol matches all.
func (r *SQLiteRecorder) RecentRuns(symbol string, limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, symbol, short_window, long_window,
		total_return, final_value, sharpe_ratio, max_drawdown, entries
		FROM backtest_runs WHERE (? = '' OR symbol = ?) ORDER BY id DESC LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var ts int64
		if err := rows.Scan(&s.ID, &ts, &s.Symbol, &s.ShortWindow, &s.LongWindow,
			&s.TotalReturn, &s.FinalValue, &s.SharpeRatio, &s.MaxDrawdown, &s.Entries); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
