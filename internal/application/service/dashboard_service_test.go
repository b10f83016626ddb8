// internal/application/service/dashboard_service_test.go
package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDashboard(t *testing.T, table *entity.RateTable) (*DashboardService, *cache.FigureCache) {
	t.Helper()
	figures := cache.NewFigureCache()
	log := logger.NewJSONLogger(nil, logger.ErrorLevel)

	svc, err := NewDashboardService(table, 3, figures, log)
	require.NoError(t, err)
	return svc, figures
}

func TestDashboardLayout(t *testing.T) {
	table := buildTable(t)
	svc, _ := newTestDashboard(t, table)

	layout := svc.Layout()
	assert.Equal(t, "USD", layout.Base)
	assert.Equal(t, "EUR", layout.DefaultCurrency)
	assert.Equal(t, DefaultAmount, layout.DefaultAmount)
	assert.Equal(t, []Option{
		{Label: "Euro (EUR)", Value: "EUR"},
		{Label: "Japanese Yen (JPY)", Value: "JPY"},
	}, layout.Options)
	assert.Equal(t, "2023-01-02", layout.FirstDate)
	assert.Equal(t, "2023-01-07", layout.LatestDate)

	require.Len(t, layout.LatestRates.Data, 1)
	assert.Equal(t, "bar", layout.LatestRates.Data[0].Type)
	assert.Equal(t, []string{"EUR", "JPY"}, layout.LatestRates.Data[0].X)
	assert.Equal(t, 0.96, *layout.LatestRates.Data[0].Y[0])

	require.Len(t, layout.PercentChange.Data, 1)
	assert.InDelta(t, (140.0-130.0)/130.0*100, *layout.PercentChange.Data[0].Y[1], 1e-9)

	require.Len(t, layout.Volatility.Data, 2)
	assert.Nil(t, layout.Volatility.Data[0].Y[0], "volatility before the window is null")
	assert.NotNil(t, layout.Volatility.Data[0].Y[3])
}

func TestUpdateGraph(t *testing.T) {
	table := buildTable(t)
	svc, figures := newTestDashboard(t, table)
	ctx := context.Background()

	t.Run("Known currency", func(t *testing.T) {
		update, err := svc.UpdateGraph(ctx, "jpy")
		require.NoError(t, err)

		assert.Equal(t, "JPY", update.Currency)
		assert.Equal(t, 140.0, update.Rate)
		assert.Equal(t, "2023-01-07", update.RateDate)
		assert.Equal(t, "1 USD = 140.0000 JPY", update.LatestRate)

		require.Len(t, update.Figure.Data, 1)
		assert.Equal(t, "lines", update.Figure.Data[0].Mode)
		assert.Len(t, update.Figure.Data[0].X, table.Len())
		assert.Equal(t, "USD to JPY Exchange Rate", update.Figure.Layout.Title.Text)
	})

	t.Run("Figure is memoized", func(t *testing.T) {
		_, err := svc.UpdateGraph(ctx, "JPY")
		require.NoError(t, err)
		hits, _ := figures.Stats()
		assert.GreaterOrEqual(t, hits, int64(1))
	})

	t.Run("Unknown currency", func(t *testing.T) {
		_, err := svc.UpdateGraph(ctx, "XYZ")
		assert.ErrorIs(t, err, entity.ErrUnknownCurrency)
	})
}

func TestUpdateConversion(t *testing.T) {
	table := buildTable(t)
	svc, _ := newTestDashboard(t, table)
	ctx := context.Background()

	cases := []struct {
		currency string
		amount   float64
	}{
		{"EUR", 100},
		{"EUR", 12.34},
		{"JPY", 3.5},
		{"JPY", 0},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s %v", tc.currency, tc.amount), func(t *testing.T) {
			amount := fmt.Sprintf("%v", tc.amount)
			result, err := svc.UpdateConversion(ctx, tc.currency, amount)
			require.NoError(t, err)

			rate := svc.Derived().Latest[tc.currency]
			assert.Equal(t, fmt.Sprintf("%.2f", tc.amount*rate), result.Converted)
			assert.Equal(t, fmt.Sprintf("%.2f USD = %s %s", tc.amount, result.Converted, tc.currency), result.Text)
		})
	}

	t.Run("Invalid amount", func(t *testing.T) {
		for _, amount := range []string{"", "abc", "1,000", "1e50000", "1e-50000", "1e15", "-2e15", "0.0000000000000000001"} {
			_, err := svc.UpdateConversion(ctx, "EUR", amount)
			assert.ErrorIs(t, err, entity.ErrInvalidAmount, "amount %q", amount)
		}
	})

	t.Run("Amount at the edge of the range", func(t *testing.T) {
		result, err := svc.UpdateConversion(ctx, "EUR", "999999999999999.99")
		require.NoError(t, err)
		assert.Equal(t, "999999999999999.99", result.Amount)

		result, err = svc.UpdateConversion(ctx, "EUR", "-12.5")
		require.NoError(t, err)
		assert.Equal(t, "-12.00", result.Converted)
	})

	t.Run("Unknown currency", func(t *testing.T) {
		_, err := svc.UpdateConversion(ctx, "XYZ", "10")
		assert.ErrorIs(t, err, entity.ErrUnknownCurrency)
	})
}

func TestMissingLatestRate(t *testing.T) {
	table := entity.NewRateTable(entity.DateColumn, "USD", []string{"EUR", "GBP"})
	require.NoError(t, table.AppendRow(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), []float64{0.9, 0.8}))
	require.NoError(t, table.AppendRow(time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), []float64{0.91, math.NaN()}))

	svc, _ := newTestDashboard(t, table)

	_, err := svc.UpdateConversion(context.Background(), "GBP", "10")
	assert.ErrorIs(t, err, entity.ErrMissingRate)

	// The NaN still renders as a gap in the static chart
	assert.Nil(t, svc.Layout().LatestRates.Data[0].Y[1])
}

func TestLatestRate(t *testing.T) {
	table := buildTable(t)
	svc, _ := newTestDashboard(t, table)

	latest, err := svc.LatestRate("JPY")
	require.NoError(t, err)
	assert.Equal(t, &entity.ExchangeRate{
		Base:     "USD",
		Currency: "JPY",
		Date:     time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC),
		Rate:     140,
	}, latest)

	_, err = svc.LatestRate("XYZ")
	assert.ErrorIs(t, err, entity.ErrUnknownCurrency)
}
