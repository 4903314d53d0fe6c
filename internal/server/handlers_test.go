package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankitjgd/xirrcalc/internal/config"
	"github.com/ankitjgd/xirrcalc/internal/database"
	"github.com/ankitjgd/xirrcalc/internal/modules/benchmark"
	"github.com/ankitjgd/xirrcalc/internal/modules/history"
	"github.com/ankitjgd/xirrcalc/internal/modules/portfolio"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
)

func testRouter(t *testing.T) (*chi.Mux, *history.Repository) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
		Log:     zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := history.NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, err)

	chain := solver.NewChain(zerolog.Nop())
	h := NewHandlers(
		zerolog.Nop(),
		&config.Config{BenchmarkSymbol: "^NSEI"},
		portfolio.NewService(chain, zerolog.Nop()),
		benchmark.NewSimulator(chain, benchmark.FallbackNearestPrior, zerolog.Nop()),
		repo,
		nil, // no calculation cache in tests
		nil,
		nil,
	)

	r := chi.NewRouter()
	r.Post("/api/solve", h.HandleSolve)
	r.Post("/api/portfolio/analyze", h.HandleAnalyze)
	r.Post("/api/benchmark/compare", h.HandleBenchmarkCompare)
	r.Get("/api/prices/{symbol}", h.HandlePrices)
	r.Post("/api/prices/{symbol}/sync", h.HandlePriceSync)
	return r, repo
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleSolve(t *testing.T) {
	router, _ := testRouter(t)

	rec := postJSON(t, router, "/api/solve", AccountPayload{
		Account:       "acct",
		Flows:         []FlowPayload{{Date: "2023-01-01", Amount: -100000}},
		TerminalValue: 115000,
		ValuationDate: "2024-01-01",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis portfolio.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.True(t, analysis.XIRR.Converged)
	assert.InDelta(t, 0.15, analysis.XIRR.Rate, 1e-6)
	assert.Equal(t, 100000.0, analysis.Stats.TotalInvested)
}

func TestHandleSolve_BadBody(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/solve", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSolve_InvalidSeries(t *testing.T) {
	router, _ := testRouter(t)

	// Valuation date precedes the flow.
	rec := postJSON(t, router, "/api/solve", AccountPayload{
		Account:       "acct",
		Flows:         []FlowPayload{{Date: "2024-06-01", Amount: -1000}},
		TerminalValue: 1100,
		ValuationDate: "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestHandleAnalyze(t *testing.T) {
	router, _ := testRouter(t)

	rec := postJSON(t, router, "/api/portfolio/analyze", AnalyzeRequest{
		Accounts: []AccountPayload{
			{
				Account:       "a",
				Flows:         []FlowPayload{{Date: "2023-01-01", Amount: -50000}},
				TerminalValue: 56000,
				ValuationDate: "2024-01-01",
			},
			{
				Account:       "dormant",
				ValuationDate: "2024-01-01",
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result portfolio.CombinedAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Accounts, 1)
	assert.Equal(t, []string{"dormant"}, result.Skipped)
	assert.True(t, result.Combined.XIRR.Converged)
}

func TestHandleAnalyze_Empty(t *testing.T) {
	router, _ := testRouter(t)

	rec := postJSON(t, router, "/api/portfolio/analyze", AnalyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBenchmarkCompare(t *testing.T) {
	router, repo := testRouter(t)

	_, err := repo.Upsert("^NSEI", []history.DailyClose{
		{Date: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
		{Date: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Close: 110},
	})
	require.NoError(t, err)

	rec := postJSON(t, router, "/api/benchmark/compare", CompareRequest{
		AccountPayload: AccountPayload{
			Account:       "acct",
			Flows:         []FlowPayload{{Date: "2023-01-02", Amount: -10000}},
			TerminalValue: 11500,
			ValuationDate: "2024-01-01",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CompareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "^NSEI", resp.Symbol)
	// 10000 / 100 = 100 units, worth 11000 at the latest close.
	assert.InDelta(t, 100.0, resp.Position.Units, 1e-9)
	assert.InDelta(t, 11000.0, resp.Position.TerminalValue, 1e-9)
	assert.True(t, resp.XIRR.Converged)
	assert.True(t, resp.Account.XIRR.Converged)
}

func TestHandleBenchmarkCompare_NoPrices(t *testing.T) {
	router, _ := testRouter(t)

	rec := postJSON(t, router, "/api/benchmark/compare", CompareRequest{
		AccountPayload: AccountPayload{
			Account:       "acct",
			Flows:         []FlowPayload{{Date: "2023-01-02", Amount: -10000}},
			TerminalValue: 11500,
			ValuationDate: "2024-01-01",
		},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlePrices(t *testing.T) {
	router, repo := testRouter(t)

	_, err := repo.Upsert("^NSEI", []history.DailyClose{
		{Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Close: 100},
		{Date: time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC), Close: 101},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/prices/^NSEI?from=2023-06-01&to=2023-06-02", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Symbol string               `json:"symbol"`
		Count  int                  `json:"count"`
		Prices []history.DailyClose `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "^NSEI", resp.Symbol)
	assert.Equal(t, 2, resp.Count)
}

func TestHandlePriceSync_Unconfigured(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/prices/^NSEI/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
