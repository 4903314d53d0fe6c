package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/config"
	"github.com/ankitjgd/xirrcalc/internal/modules/benchmark"
	"github.com/ankitjgd/xirrcalc/internal/modules/calculations"
	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
	"github.com/ankitjgd/xirrcalc/internal/modules/history"
	"github.com/ankitjgd/xirrcalc/internal/modules/portfolio"
	"github.com/ankitjgd/xirrcalc/internal/modules/solver"
	"github.com/ankitjgd/xirrcalc/internal/scheduler"
)

const dateLayout = "2006-01-02"

// Handlers serves the valuation API endpoints.
type Handlers struct {
	log       zerolog.Logger
	cfg       *config.Config
	portfolio *portfolio.Service
	simulator *benchmark.Simulator
	history   *history.Repository
	cache     *calculations.Cache
	priceSync scheduler.Job
	sched     *scheduler.Scheduler
}

// NewHandlers creates the API handlers.
func NewHandlers(
	log zerolog.Logger,
	cfg *config.Config,
	portfolioSvc *portfolio.Service,
	simulator *benchmark.Simulator,
	historyRepo *history.Repository,
	cache *calculations.Cache,
	priceSync scheduler.Job,
	sched *scheduler.Scheduler,
) *Handlers {
	return &Handlers{
		log:       log.With().Str("component", "api").Logger(),
		cfg:       cfg,
		portfolio: portfolioSvc,
		simulator: simulator,
		history:   historyRepo,
		cache:     cache,
		priceSync: priceSync,
		sched:     sched,
	}
}

// FlowPayload is one dated cash movement in a request body. Deposits are
// negative, withdrawals positive.
type FlowPayload struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// AccountPayload is one account's flows plus its terminal value.
type AccountPayload struct {
	Account       string        `json:"account"`
	Flows         []FlowPayload `json:"flows"`
	TerminalValue float64       `json:"terminal_value"`
	ValuationDate string        `json:"valuation_date"`
}

// AnalyzeRequest is the body of POST /api/portfolio/analyze.
type AnalyzeRequest struct {
	Accounts []AccountPayload `json:"accounts"`
}

// CompareRequest is the body of POST /api/benchmark/compare.
type CompareRequest struct {
	AccountPayload
	Symbol string `json:"symbol,omitempty"`
}

// CompareResponse pairs the real account analysis with the benchmark replay.
type CompareResponse struct {
	Symbol   string             `json:"symbol"`
	Account  portfolio.Analysis `json:"account"`
	Position benchmark.Position `json:"position"`
	XIRR     solver.Result      `json:"xirr"`
}

func (p AccountPayload) toSeries() (*cashflow.Series, error) {
	valuation, err := time.Parse(dateLayout, p.ValuationDate)
	if err != nil {
		return nil, err
	}
	flows := make([]cashflow.CashFlow, 0, len(p.Flows))
	for _, f := range p.Flows {
		d, err := time.Parse(dateLayout, f.Date)
		if err != nil {
			return nil, err
		}
		flows = append(flows, cashflow.CashFlow{Date: d, Amount: f.Amount})
	}
	return cashflow.NewSeries(p.Account, flows, p.TerminalValue, valuation)
}

func (p AccountPayload) toAccount() (portfolio.Account, error) {
	valuation, err := time.Parse(dateLayout, p.ValuationDate)
	if err != nil {
		return portfolio.Account{}, err
	}
	flows := make([]cashflow.CashFlow, 0, len(p.Flows))
	for _, f := range p.Flows {
		d, err := time.Parse(dateLayout, f.Date)
		if err != nil {
			return portfolio.Account{}, err
		}
		flows = append(flows, cashflow.CashFlow{Date: d, Amount: f.Amount})
	}
	return portfolio.Account{
		Name:          p.Account,
		Flows:         flows,
		TerminalValue: p.TerminalValue,
		ValuationDate: valuation,
	}, nil
}

// HandleSolve solves one account's series.
// POST /api/solve
func (h *Handlers) HandleSolve(w http.ResponseWriter, r *http.Request) {
	var payload AccountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	series, err := payload.toSeries()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Serve an identical series from the calculation cache when possible.
	key := calculations.SeriesKey("solve", series)
	if h.cache != nil {
		var cached portfolio.Analysis
		if hit, err := h.cache.Get(key, &cached); err == nil && hit {
			h.writeJSON(w, cached)
			return
		}
	}

	analysis := h.portfolio.Solve(series)
	if h.cache != nil {
		if err := h.cache.Set(key, analysis); err != nil {
			h.log.Warn().Err(err).Msg("Failed to cache solve result")
		}
	}
	h.writeJSON(w, analysis)
}

// HandleAnalyze runs a multi-account combined analysis.
// POST /api/portfolio/analyze
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Accounts) == 0 {
		h.writeError(w, http.StatusBadRequest, "no accounts provided")
		return
	}

	accounts := make([]portfolio.Account, 0, len(req.Accounts))
	for _, p := range req.Accounts {
		acc, err := p.toAccount()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		accounts = append(accounts, acc)
	}

	result, err := h.portfolio.SolveCombined(accounts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, cashflow.ErrDataConsistency) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, status, err.Error())
		return
	}
	h.writeJSON(w, result)
}

// HandleBenchmarkCompare replays an account's flows against the benchmark
// index and solves both series.
// POST /api/benchmark/compare
func (h *Handlers) HandleBenchmarkCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	symbol := req.Symbol
	if symbol == "" {
		symbol = h.cfg.BenchmarkSymbol
	}

	series, err := req.toSeries()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	position, benchResult, err := h.simulator.Replay(series, h.history.Source(symbol))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, benchmark.ErrPriceMissing):
			status = http.StatusConflict
		case errors.Is(err, cashflow.ErrDataConsistency):
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, CompareResponse{
		Symbol:   symbol,
		Account:  h.portfolio.Solve(series),
		Position: *position,
		XIRR:     benchResult,
	})
}

// HandlePrices returns stored daily closes for a symbol.
// GET /api/prices/{symbol}?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handlers) HandlePrices(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	to := time.Now().UTC()
	from := to.AddDate(-1, 0, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = d
	}

	closes, err := h.history.Range(symbol, from, to)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"symbol": symbol,
		"count":  len(closes),
		"prices": closes,
	})
}

// HandlePriceSync triggers an immediate benchmark price refresh.
// POST /api/prices/{symbol}/sync
func (h *Handlers) HandlePriceSync(w http.ResponseWriter, r *http.Request) {
	if h.priceSync == nil || h.sched == nil {
		h.writeError(w, http.StatusServiceUnavailable, "price sync is not configured")
		return
	}

	if err := h.sched.RunNow(h.priceSync); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, map[string]string{
		"status": "completed",
		"job":    h.priceSync.Name(),
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
