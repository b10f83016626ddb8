// Package service internal/application/service/transform.go
package service

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
)

// Derive computes latest and first values, percentage change and rolling volatility for every currency
func Derive(table *entity.RateTable, window int) (*entity.DerivedSeries, error) {
	if table.Len() == 0 {
		return nil, entity.ErrEmptyTable
	}
	if window < 2 {
		return nil, fmt.Errorf("volatility window must be at least 2, got %d", window)
	}

	last := table.Len() - 1
	derived := &entity.DerivedSeries{
		FirstDate:     table.Dates[0],
		LatestDate:    table.Dates[last],
		First:         make(map[string]float64, len(table.Currencies)),
		Latest:        make(map[string]float64, len(table.Currencies)),
		PercentChange: make(map[string]float64, len(table.Currencies)),
		Volatility:    make(map[string][]float64, len(table.Currencies)),
		Window:        window,
	}

	for _, currency := range table.Currencies {
		first, err := table.Rate(0, currency)
		if err != nil {
			return nil, err
		}
		latest, err := table.Rate(last, currency)
		if err != nil {
			return nil, err
		}

		derived.First[currency] = first
		derived.Latest[currency] = latest
		derived.PercentChange[currency] = PercentChange(first, latest)

		col, err := table.Column(currency)
		if err != nil {
			return nil, err
		}
		derived.Volatility[currency] = RollingVolatility(col, window)
	}

	return derived, nil
}

// PercentChange returns (latest - first) / first * 100
func PercentChange(first, latest float64) float64 {
	return (latest - first) / first * 100
}

// RollingVolatility returns, for each index i >= window, the sample standard
// deviation of values[i-window:i]. Earlier indexes are NaN.
func RollingVolatility(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(values[i-window:i], nil)
	}
	return out
}

// WeekStart returns the Monday of the week containing d
func WeekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return time.Date(d.Year(), d.Month(), d.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// ResampleWeekly averages rows into Monday-started weeks. Missing rates are
// skipped; a week with no rate for a currency keeps NaN.
func ResampleWeekly(table *entity.RateTable) *entity.RateTable {
	weekly := entity.NewRateTable(entity.WeekStartColumn, table.Base, table.Currencies)
	if table.Len() == 0 {
		return weekly
	}

	sorted := table.Clone()
	sorted.SortByDate()

	flush := func(week time.Time, rows [][]float64) {
		means := make([]float64, len(table.Currencies))
		for j := range means {
			var vals []float64
			for _, row := range rows {
				if !math.IsNaN(row[j]) {
					vals = append(vals, row[j])
				}
			}
			if len(vals) == 0 {
				means[j] = math.NaN()
				continue
			}
			means[j] = stat.Mean(vals, nil)
		}
		// Lengths match by construction
		_ = weekly.AppendRow(week, means)
	}

	current := WeekStart(sorted.Dates[0])
	var bucket [][]float64
	for i, d := range sorted.Dates {
		week := WeekStart(d)
		if !week.Equal(current) {
			flush(current, bucket)
			current, bucket = week, nil
		}
		bucket = append(bucket, sorted.Rates[i])
	}
	flush(current, bucket)

	return weekly
}
