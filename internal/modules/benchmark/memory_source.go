package benchmark

import (
	"sort"
	"time"
)

// MemorySource is a PriceSource over an in-memory date→price map. It backs
// tests and one-shot CLI runs where the price history was just fetched and
// a database round trip buys nothing.
type MemorySource struct {
	Symbol string
	dates  []time.Time // sorted ascending
	prices map[time.Time]float64
}

// NewMemorySource builds a MemorySource. Dates are normalized to midnight
// UTC so lookups are calendar-date equality.
func NewMemorySource(symbol string, points map[time.Time]float64) *MemorySource {
	src := &MemorySource{
		Symbol: symbol,
		prices: make(map[time.Time]float64, len(points)),
	}
	for d, p := range points {
		day := normalize(d)
		src.prices[day] = p
		src.dates = append(src.dates, day)
	}
	sort.Slice(src.dates, func(i, j int) bool { return src.dates[i].Before(src.dates[j]) })
	return src
}

// PriceOn implements PriceSource.
func (m *MemorySource) PriceOn(date time.Time) (float64, error) {
	if p, ok := m.prices[normalize(date)]; ok {
		return p, nil
	}
	return 0, &LookupError{Symbol: m.Symbol, Date: date}
}

// LatestOnOrBefore implements PriceSource.
func (m *MemorySource) LatestOnOrBefore(date time.Time) (float64, time.Time, error) {
	day := normalize(date)
	// First index strictly after day; the entry before it is the answer.
	i := sort.Search(len(m.dates), func(i int) bool { return m.dates[i].After(day) })
	if i == 0 {
		return 0, time.Time{}, &LookupError{Symbol: m.Symbol, Date: date}
	}
	d := m.dates[i-1]
	return m.prices[d], d, nil
}

func normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
