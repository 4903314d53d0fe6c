// Package yahoo fetches benchmark index price history from Yahoo Finance.
// The default symbol is ^NSEI (Nifty 50); any Yahoo chart symbol works.
package yahoo

import (
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"

	"github.com/ankitjgd/xirrcalc/internal/modules/history"
)

// Buffer days around the requested span. The start buffer guarantees a
// prior trading day exists for the earliest flow; the end buffer absorbs
// timezone skew around "today".
const (
	startBufferDays = 10
	endBufferDays   = 5
	maxAttempts     = 3
)

// Client fetches daily close history.
type Client struct {
	log zerolog.Logger
}

// NewClient creates a Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{log: log.With().Str("client", "yahoo").Logger()}
}

// DailyHistory fetches daily closes for symbol covering [start, end], with
// buffer days added on both sides. Transient fetch failures are retried a
// few times with a short backoff.
func (c *Client) DailyHistory(symbol string, start, end time.Time) ([]history.DailyClose, error) {
	buffStart := start.AddDate(0, 0, -startBufferDays)
	buffEnd := end.AddDate(0, 0, endBufferDays)

	var closes []history.DailyClose
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		closes, lastErr = c.fetch(symbol, buffStart, buffEnd)
		if lastErr == nil {
			break
		}
		c.log.Warn().
			Err(lastErr).
			Str("symbol", symbol).
			Int("attempt", attempt).
			Msg("History fetch failed")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, lastErr)
	}

	c.log.Info().
		Str("symbol", symbol).
		Int("points", len(closes)).
		Str("from", buffStart.Format("2006-01-02")).
		Str("to", buffEnd.Format("2006-01-02")).
		Msg("Benchmark history fetched")
	return closes, nil
}

func (c *Client) fetch(symbol string, start, end time.Time) ([]history.DailyClose, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	var closes []history.DailyClose
	for iter.Next() {
		bar := iter.Bar()
		closePrice, _ := bar.Close.Float64()
		if closePrice == 0 {
			continue
		}
		closes = append(closes, history.DailyClose{
			Date:  time.Unix(int64(bar.Timestamp), 0).UTC(),
			Close: closePrice,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("no price data returned for %s", symbol)
	}
	return closes, nil
}
