// Package history persists daily benchmark closing prices so benchmark
// replays survive network outages and repeated runs don't refetch the same
// span. Dates are stored as Unix timestamps at midnight UTC.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/database"
	"github.com/ankitjgd/xirrcalc/internal/modules/benchmark"
)

// DailyClose is one benchmark price point.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Repository stores and queries benchmark daily closes.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates the repository and ensures its schema exists.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS benchmark_prices (
			symbol     TEXT    NOT NULL,
			date       INTEGER NOT NULL,
			close      REAL    NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create benchmark_prices table: %w", err)
	}
	return nil
}

// Upsert stores daily closes for a symbol, replacing existing rows for the
// same dates. Returns the number of rows written.
func (r *Repository) Upsert(symbol string, closes []DailyClose) (int, error) {
	written := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO benchmark_prices (symbol, date, close, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (symbol, date) DO UPDATE SET close = excluded.close
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().Unix()
		for _, c := range closes {
			if _, err := stmt.Exec(symbol, dayUnix(c.Date), c.Close, now); err != nil {
				return fmt.Errorf("failed to upsert price for %s: %w", c.Date.Format("2006-01-02"), err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Debug().Str("symbol", symbol).Int("rows", written).Msg("Prices upserted")
	return written, nil
}

// PriceOn returns the close for a symbol on exactly the given date.
func (r *Repository) PriceOn(symbol string, date time.Time) (float64, error) {
	var close float64
	err := r.db.QueryRow(
		"SELECT close FROM benchmark_prices WHERE symbol = ? AND date = ?",
		symbol, dayUnix(date),
	).Scan(&close)
	if err == sql.ErrNoRows {
		return 0, &benchmark.LookupError{Symbol: symbol, Date: date}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query price: %w", err)
	}
	return close, nil
}

// LatestOnOrBefore returns the most recent close at or before the date.
func (r *Repository) LatestOnOrBefore(symbol string, date time.Time) (float64, time.Time, error) {
	var close float64
	var dateUnix int64
	err := r.db.QueryRow(`
		SELECT close, date FROM benchmark_prices
		WHERE symbol = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, symbol, dayUnix(date)).Scan(&close, &dateUnix)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, &benchmark.LookupError{Symbol: symbol, Date: date}
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to query latest price: %w", err)
	}
	return close, time.Unix(dateUnix, 0).UTC(), nil
}

// Range returns closes within [from, to], ordered by date ascending.
func (r *Repository) Range(symbol string, from, to time.Time) ([]DailyClose, error) {
	rows, err := r.db.Query(`
		SELECT date, close FROM benchmark_prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, dayUnix(from), dayUnix(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query price range: %w", err)
	}
	defer rows.Close()

	var closes []DailyClose
	for rows.Next() {
		var dateUnix int64
		var c DailyClose
		if err := rows.Scan(&dateUnix, &c.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		c.Date = time.Unix(dateUnix, 0).UTC()
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}
	return closes, nil
}

// Count returns the number of stored closes for a symbol.
func (r *Repository) Count(symbol string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM benchmark_prices WHERE symbol = ?", symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return count, nil
}

// Source binds the repository to one symbol as a benchmark.PriceSource.
func (r *Repository) Source(symbol string) benchmark.PriceSource {
	return &boundSource{repo: r, symbol: symbol}
}

type boundSource struct {
	repo   *Repository
	symbol string
}

func (b *boundSource) PriceOn(date time.Time) (float64, error) {
	return b.repo.PriceOn(b.symbol, date)
}

func (b *boundSource) LatestOnOrBefore(date time.Time) (float64, time.Time, error) {
	return b.repo.LatestOnOrBefore(b.symbol, date)
}

// dayUnix converts a date to a Unix timestamp at midnight UTC.
func dayUnix(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}
