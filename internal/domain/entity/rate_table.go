package entity

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// DateColumn is the header of the date column in daily tables
	DateColumn = "Date"
	// WeekStartColumn is the header of the date column in weekly tables
	WeekStartColumn = "Week_start"
	// DateLayout is the format of every date in the API response and cache file
	DateLayout = "2006-01-02"
)

// RateTable holds exchange rates keyed by date, one column per currency.
// Rates[i][j] is the rate of Currencies[j] on Dates[i]; a missing value is NaN.
type RateTable struct {
	DateColumn string
	Base       string
	Currencies []string
	Dates      []time.Time
	Rates      [][]float64
}

// NewRateTable creates an empty table with a fixed column set
func NewRateTable(dateColumn, base string, currencies []string) *RateTable {
	cols := make([]string, len(currencies))
	copy(cols, currencies)

	return &RateTable{
		DateColumn: dateColumn,
		Base:       base,
		Currencies: cols,
	}
}

// Len returns the number of rows
func (t *RateTable) Len() int {
	return len(t.Dates)
}

// AppendRow adds a row; values must line up with Currencies
func (t *RateTable) AppendRow(date time.Time, values []float64) error {
	if len(values) != len(t.Currencies) {
		return fmt.Errorf("row for %s has %d values, table has %d columns",
			date.Format(DateLayout), len(values), len(t.Currencies))
	}

	row := make([]float64, len(values))
	copy(row, values)

	t.Dates = append(t.Dates, date)
	t.Rates = append(t.Rates, row)
	return nil
}

// SortByDate orders rows chronologically
func (t *RateTable) SortByDate() {
	sort.Sort(byDate{t})
}

// ColumnIndex returns the position of a currency column
func (t *RateTable) ColumnIndex(currency string) (int, bool) {
	for i, c := range t.Currencies {
		if c == currency {
			return i, true
		}
	}
	return -1, false
}

// HasCurrency reports whether the currency is a column of the table
func (t *RateTable) HasCurrency(currency string) bool {
	_, ok := t.ColumnIndex(currency)
	return ok
}

// Column returns a copy of the rate series for a currency
func (t *RateTable) Column(currency string) ([]float64, error) {
	idx, ok := t.ColumnIndex(currency)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	col := make([]float64, len(t.Rates))
	for i, row := range t.Rates {
		col[i] = row[idx]
	}
	return col, nil
}

// Rate returns the rate of a currency at a row
func (t *RateTable) Rate(row int, currency string) (float64, error) {
	idx, ok := t.ColumnIndex(currency)
	if !ok {
		return math.NaN(), fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	if row < 0 || row >= len(t.Rates) {
		return math.NaN(), fmt.Errorf("row %d out of range", row)
	}
	return t.Rates[row][idx], nil
}

// Clone returns a deep copy of the table
func (t *RateTable) Clone() *RateTable {
	c := NewRateTable(t.DateColumn, t.Base, t.Currencies)
	c.Dates = make([]time.Time, len(t.Dates))
	copy(c.Dates, t.Dates)
	c.Rates = make([][]float64, len(t.Rates))
	for i, row := range t.Rates {
		c.Rates[i] = make([]float64, len(row))
		copy(c.Rates[i], row)
	}
	return c
}

// RenameDateColumn sets the header used for the date column
func (t *RateTable) RenameDateColumn(name string) {
	t.DateColumn = name
}

type byDate struct{ t *RateTable }

func (b byDate) Len() int           { return len(b.t.Dates) }
func (b byDate) Less(i, j int) bool { return b.t.Dates[i].Before(b.t.Dates[j]) }
func (b byDate) Swap(i, j int) {
	b.t.Dates[i], b.t.Dates[j] = b.t.Dates[j], b.t.Dates[i]
	b.t.Rates[i], b.t.Rates[j] = b.t.Rates[j], b.t.Rates[i]
}
