package summary

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists daily summaries to a SQLite database, one row per
// trading day.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS day_summaries (
		day          TEXT PRIMARY KEY,
		outcome      TEXT NOT NULL,
		open_capture TEXT,
		entry_quote  TEXT,
		decision     TEXT,
		symbol       TEXT,
		realized_pnl TEXT NOT NULL,
		equity       TEXT,
		buying_power TEXT,
		trades_json  TEXT NOT NULL
	)`)
	return err
}

// Record inserts or replaces the day's row, so a re-run of the same day
// never duplicates it.
func (r *SQLiteRecorder) Record(ctx context.Context, s DaySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trades, err := json.Marshal(s.Trades)
	if err != nil {
		return fmt.Errorf("marshal trades: %w", err)
	}

	var openCapture, entryQuote any
	if s.OpenCapture != nil {
		openCapture = s.OpenCapture.String()
	}
	if s.EntryQuote != nil {
		entryQuote = s.EntryQuote.String()
	}

	_, err = r.db.ExecContext(ctx, `INSERT OR REPLACE INTO day_summaries
		(day, outcome, open_capture, entry_quote, decision, symbol, realized_pnl, equity, buying_power, trades_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Day, s.Outcome, openCapture, entryQuote, s.Decision, s.Symbol,
		s.RealizedPnL.String(), s.Equity.String(), s.BuyingPower.String(), string(trades))
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
