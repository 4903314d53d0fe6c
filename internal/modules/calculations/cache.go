// Package calculations provides an optional, injectable result cache for
// solve and benchmark runs. It is an explicit collaborator with its own
// lifecycle, never ambient global state: the solver itself stays pure and
// callers decide whether a cache sits in front of it.
package calculations

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
)

// DefaultTTL bounds how long a cached result is trusted. Solves are pure, so
// staleness only matters when the caller changes solver tuning between
// releases; the TTL keeps old entries from outliving a deploy by much.
const DefaultTTL = 24 * time.Hour

// Cache stores msgpack-encoded calculation results keyed by a content hash
// of the input series.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates the cache and ensures its schema exists.
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "calc_cache").Logger(),
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS calc_cache (
			key        TEXT PRIMARY KEY,
			payload    BLOB    NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create calc_cache table: %w", err)
	}
	return c, nil
}

// SeriesKey derives a deterministic cache key from a series' content. Two
// series with identical flows, terminal value and valuation date hash the
// same regardless of account name.
func SeriesKey(prefix string, s *cashflow.Series) string {
	h := sha256.New()
	for _, f := range s.All() {
		fmt.Fprintf(h, "%d|%.6f;", f.Date.Unix(), f.Amount)
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

// Get loads a cached value into dest. The second return reports a hit;
// expired entries are misses.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	var payload []byte
	var expiresAt int64
	err := c.db.QueryRow("SELECT payload, expires_at FROM calc_cache WHERE key = ?", key).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if time.Now().Unix() >= expiresAt {
		return false, nil
	}

	if err := msgpack.Unmarshal(payload, dest); err != nil {
		// A decode failure means the stored shape changed; treat as a miss
		// and let the caller overwrite it.
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return false, nil
	}
	return true, nil
}

// Set stores a value under key with the configured TTL.
func (c *Cache) Set(key string, value interface{}) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	expiresAt := time.Now().Add(c.ttl).Unix()
	_, err = c.db.Exec(`
		INSERT INTO calc_cache (key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at
	`, key, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (c *Cache) Prune() (int64, error) {
	res, err := c.db.Exec("DELETE FROM calc_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
