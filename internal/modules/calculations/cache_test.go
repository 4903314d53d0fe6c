package calculations

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankitjgd/xirrcalc/internal/database"
	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
)

type cachedResult struct {
	Rate      float64
	Converged bool
}

func newTestCache(t *testing.T) (*Cache, *database.DB) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
		Log:     zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache, err := NewCache(db.Conn(), time.Hour, zerolog.Nop())
	require.NoError(t, err)
	return cache, db
}

func testSeries(t *testing.T, terminal float64) *cashflow.Series {
	t.Helper()
	s, err := cashflow.NewSeries("acct", []cashflow.CashFlow{
		{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Amount: -1000},
	}, terminal, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return s
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	key := SeriesKey("solve", testSeries(t, 1150))

	var missed cachedResult
	hit, err := cache.Get(key, &missed)
	require.NoError(t, err)
	assert.False(t, hit)

	stored := cachedResult{Rate: 0.15, Converged: true}
	require.NoError(t, cache.Set(key, stored))

	var loaded cachedResult
	hit, err = cache.Get(key, &loaded)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stored, loaded)
}

func TestCache_RoundTripsSolverResult(t *testing.T) {
	cache, _ := newTestCache(t)

	stored := solver.Result{
		Rate:       0.1234,
		Method:     solver.MethodNewton,
		Iterations: 5,
		Converged:  true,
	}
	require.NoError(t, cache.Set("result", stored))

	var loaded solver.Result
	hit, err := cache.Get("result", &loaded)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, stored, loaded)
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	cache, db := newTestCache(t)
	require.NoError(t, cache.Set("stale", cachedResult{Rate: 0.1}))

	// Backdate the entry past its TTL.
	_, err := db.Conn().Exec("UPDATE calc_cache SET expires_at = ? WHERE key = ?",
		time.Now().Add(-time.Minute).Unix(), "stale")
	require.NoError(t, err)

	var out cachedResult
	hit, err := cache.Get("stale", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_Prune(t *testing.T) {
	cache, db := newTestCache(t)
	require.NoError(t, cache.Set("stale", cachedResult{}))
	require.NoError(t, cache.Set("fresh", cachedResult{}))

	_, err := db.Conn().Exec("UPDATE calc_cache SET expires_at = ? WHERE key = ?",
		time.Now().Add(-time.Minute).Unix(), "stale")
	require.NoError(t, err)

	removed, err := cache.Prune()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var out cachedResult
	hit, err := cache.Get("fresh", &out)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestSeriesKey_ContentAddressed(t *testing.T) {
	a := SeriesKey("solve", testSeries(t, 1150))
	b := SeriesKey("solve", testSeries(t, 1150))
	c := SeriesKey("solve", testSeries(t, 1200))

	// Same content hashes the same; different terminal values differ.
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// The prefix namespaces otherwise identical series.
	assert.NotEqual(t, a, SeriesKey("bench", testSeries(t, 1150)))
}

func TestCache_UndecodableEntryIsMiss(t *testing.T) {
	cache, db := newTestCache(t)
	require.NoError(t, cache.Set("weird", cachedResult{Rate: 0.5}))

	_, err := db.Conn().Exec("UPDATE calc_cache SET payload = ? WHERE key = ?",
		[]byte{0xc1}, "weird") // 0xc1 is never valid msgpack
	require.NoError(t, err)

	var out cachedResult
	hit, err := cache.Get("weird", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}
