// Package ledger ingests broker ledger CSV exports and classifies their
// rows into signed cash flows: fund additions become invested (negative)
// amounts, payouts and quarterly settlements become withdrawn (positive)
// amounts. The solver core never sees file formats; this package is the
// boundary where text becomes typed flows.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ankitjgd/xirrcalc/internal/modules/cashflow"
)

// Required columns of a Zerodha ledger export.
const (
	colParticulars = "particulars"
	colPostingDate = "posting_date"
	colCredit      = "credit"
	colDebit       = "debit"
)

// ParseResult is the classified outcome of one ledger file.
type ParseResult struct {
	Account     string
	Flows       []cashflow.CashFlow
	Additions   int // "Funds added" rows
	Payouts     int // "Payout" rows
	Settlements int // quarterly settlement rows
	SkippedRows int // rows missing dates or with unparseable amounts
}

// Parser reads and classifies ledger CSV files.
type Parser struct {
	log zerolog.Logger
}

// NewParser creates a ledger parser.
func NewParser(log zerolog.Logger) *Parser {
	return &Parser{log: log.With().Str("component", "ledger").Logger()}
}

// ParseFile parses one ledger CSV file. The account name is derived from
// the file name. A file yielding no fund additions is an error: without at
// least one investment no return can be computed for the account.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	account := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res, err := p.Parse(f, account)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse classifies ledger rows from r.
func (p *Parser) Parse(r io.Reader, account string) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colParticulars, colPostingDate, colCredit, colDebit} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	res := &ParseResult{Account: account}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		particulars := field(row, cols[colParticulars])
		date, ok := parseDate(field(row, cols[colPostingDate]))
		if !ok {
			res.SkippedRows++
			continue
		}

		switch {
		case strings.Contains(particulars, "Funds added"):
			amount, ok := parseAmount(field(row, cols[colCredit]))
			if !ok || amount.IsZero() {
				res.SkippedRows++
				continue
			}
			// Money leaving the investor's pocket: negative.
			res.Flows = append(res.Flows, cashflow.CashFlow{Date: date, Amount: -toFloat(amount)})
			res.Additions++

		case strings.Contains(particulars, "Payout"):
			amount, ok := parseAmount(field(row, cols[colDebit]))
			if !ok || amount.IsZero() {
				res.SkippedRows++
				continue
			}
			res.Flows = append(res.Flows, cashflow.CashFlow{Date: date, Amount: toFloat(amount)})
			res.Payouts++

		case strings.Contains(strings.ToLower(particulars), "quarterly settlement"):
			amount, ok := parseAmount(field(row, cols[colDebit]))
			if !ok {
				res.SkippedRows++
				continue
			}
			// Settlements are always treated as money returned. A negative
			// amount would mean the broker reported a settlement that is
			// actually a deposit; refuse to guess.
			if amount.IsNegative() || amount.IsZero() {
				p.log.Warn().
					Str("account", account).
					Str("date", date.Format("2006-01-02")).
					Str("amount", amount.String()).
					Msg("Skipping non-positive quarterly settlement")
				res.SkippedRows++
				continue
			}
			res.Flows = append(res.Flows, cashflow.CashFlow{Date: date, Amount: toFloat(amount)})
			res.Settlements++
		}
	}

	if res.Additions == 0 {
		return nil, fmt.Errorf("no fund additions found in ledger for account %s", account)
	}

	sort.SliceStable(res.Flows, func(i, j int) bool {
		return res.Flows[i].Date.Before(res.Flows[j].Date)
	})

	p.log.Info().
		Str("account", account).
		Int("additions", res.Additions).
		Int("payouts", res.Payouts).
		Int("settlements", res.Settlements).
		Int("skipped", res.SkippedRows).
		Msg("Ledger parsed")

	return res, nil
}

// FindLedgerFiles lists ledger CSV files in dir, sorted by name. A missing
// directory is created so first-time users get a place to drop exports.
func FindLedgerFiles(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger directory: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseDate accepts the date formats seen in broker exports.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseAmount parses a currency value, tolerating thousands separators.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
