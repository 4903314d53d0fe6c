package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLedger = `particulars,posting_date,credit,debit
Funds added using UPI,2023-01-05,"1,00,000.00",0
Net obligation for Equity,2023-01-06,0,99500.00
Funds added using UPI,2023-03-10,50000.00,0
Payout of 20000.00,2023-06-15,0,20000.00
Quarterly Settlement processed,2023-09-30,0,15000.00
AMC for Demat Account,2023-10-01,0,118.00
`

func TestParse_ClassifiesRows(t *testing.T) {
	p := NewParser(zerolog.Nop())

	res, err := p.Parse(strings.NewReader(sampleLedger), "zerodha")
	require.NoError(t, err)

	assert.Equal(t, "zerodha", res.Account)
	assert.Equal(t, 2, res.Additions)
	assert.Equal(t, 1, res.Payouts)
	assert.Equal(t, 1, res.Settlements)
	require.Len(t, res.Flows, 4)

	// Trade obligations and fees are internal churn, not investor flows.
	// Fund additions are negative (money in), payouts and settlements
	// positive (money out), sorted by date.
	assert.Equal(t, -100000.0, res.Flows[0].Amount)
	assert.Equal(t, -50000.0, res.Flows[1].Amount)
	assert.Equal(t, 20000.0, res.Flows[2].Amount)
	assert.Equal(t, 15000.0, res.Flows[3].Amount)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), res.Flows[0].Date)
}

func TestParse_SkipsNegativeSettlement(t *testing.T) {
	csv := `particulars,posting_date,credit,debit
Funds added using UPI,2023-01-05,10000.00,0
Quarterly settlement,2023-03-31,0,-5000.00
`
	res, err := NewParser(zerolog.Nop()).Parse(strings.NewReader(csv), "acct")
	require.NoError(t, err)

	assert.Equal(t, 0, res.Settlements)
	assert.Equal(t, 1, res.SkippedRows)
	require.Len(t, res.Flows, 1)
}

func TestParse_SkipsBadDates(t *testing.T) {
	csv := `particulars,posting_date,credit,debit
Funds added using UPI,2023-01-05,10000.00,0
Funds added using UPI,not-a-date,5000.00,0
`
	res, err := NewParser(zerolog.Nop()).Parse(strings.NewReader(csv), "acct")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Additions)
	assert.Equal(t, 1, res.SkippedRows)
}

func TestParse_AcceptsAlternateDateFormats(t *testing.T) {
	csv := `particulars,posting_date,credit,debit
Funds added using UPI,05/01/2023,10000.00,0
Funds added using UPI,2023-02-01 10:30:00,5000.00,0
`
	res, err := NewParser(zerolog.Nop()).Parse(strings.NewReader(csv), "acct")
	require.NoError(t, err)

	require.Equal(t, 2, res.Additions)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), res.Flows[0].Date)
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), res.Flows[1].Date)
}

func TestParse_NoAdditionsIsError(t *testing.T) {
	csv := `particulars,posting_date,credit,debit
Payout of 500,2023-06-15,0,500.00
`
	_, err := NewParser(zerolog.Nop()).Parse(strings.NewReader(csv), "acct")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fund additions")
}

func TestParse_MissingColumnIsError(t *testing.T) {
	csv := `particulars,credit,debit
Funds added,10000.00,0
`
	_, err := NewParser(zerolog.Nop()).Parse(strings.NewReader(csv), "acct")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "posting_date")
}

func TestParseFile_AccountFromFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my-broker.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleLedger), 0644))

	res, err := NewParser(zerolog.Nop()).ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "my-broker", res.Account)
}

func TestFindLedgerFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	files, err := FindLedgerFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.csv", filepath.Base(files[0]))
	assert.Equal(t, "b.csv", filepath.Base(files[1]))
}

func TestFindLedgerFiles_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")

	files, err := FindLedgerFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.DirExists(t, dir)
}
