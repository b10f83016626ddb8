// internal/infrastructure/db/cached_rate_repository_test.go
package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-dashboard/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testQuery() entity.RateQuery {
	return entity.RateQuery{
		Start:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
		Base:       "USD",
		Currencies: []string{"EUR", "GBP"},
	}
}

func fetchedTable(t *testing.T) *entity.RateTable {
	t.Helper()
	table := entity.NewRateTable(entity.DateColumn, "USD", []string{"EUR", "GBP"})
	require.NoError(t, table.AppendRow(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), []float64{0.93, 0.82}))
	return table
}

func TestCachedRateRepository(t *testing.T) {
	log := logger.NewJSONLogger(nil, logger.ErrorLevel)
	ctx := context.Background()
	query := testQuery()

	t.Run("Cache present never calls the provider", func(t *testing.T) {
		provider := new(mocks.MockRateAPI)
		store := new(mocks.MockRateStore)
		repo := NewCachedRateRepository(provider, store, log)

		cached := entity.NewRateTable(entity.DateColumn, "", []string{"EUR"})
		store.On("Exists", ctx).Return(true, nil).Once()
		store.On("Load", ctx).Return(cached, nil).Once()

		table, err := repo.LoadRates(ctx, query)
		require.NoError(t, err)
		assert.Same(t, cached, table)
		assert.Equal(t, "USD", table.Base)

		provider.AssertNotCalled(t, "FetchRates", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("Cache absent fetches and writes once", func(t *testing.T) {
		provider := new(mocks.MockRateAPI)
		store := new(mocks.MockRateStore)
		repo := NewCachedRateRepository(provider, store, log)

		fetched := fetchedTable(t)
		store.On("Exists", ctx).Return(false, nil).Once()
		provider.On("FetchRates", ctx, query).Return(fetched, nil).Once()
		store.On("Save", ctx, fetched).Return(nil).Once()

		table, err := repo.LoadRates(ctx, query)
		require.NoError(t, err)
		assert.Same(t, fetched, table)

		provider.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("Provider error", func(t *testing.T) {
		provider := new(mocks.MockRateAPI)
		store := new(mocks.MockRateStore)
		repo := NewCachedRateRepository(provider, store, log)

		store.On("Exists", ctx).Return(false, nil).Once()
		provider.On("FetchRates", ctx, query).
			Return(nil, errors.New("failed to execute request: connection refused")).Once()

		table, err := repo.LoadRates(ctx, query)
		assert.Nil(t, table)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to retrieve exchange rates")
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Store errors", func(t *testing.T) {
		provider := new(mocks.MockRateAPI)
		store := new(mocks.MockRateStore)
		repo := NewCachedRateRepository(provider, store, log)

		store.On("Exists", ctx).Return(false, errors.New("permission denied")).Once()
		_, err := repo.LoadRates(ctx, query)
		assert.ErrorContains(t, err, "failed to check rate cache")

		store.On("Exists", ctx).Return(true, nil).Once()
		store.On("Load", ctx).Return(nil, errors.New("bad header")).Once()
		_, err = repo.LoadRates(ctx, query)
		assert.ErrorContains(t, err, "failed to load cached rates")
	})
}

func TestCachedRateRepositoryWithCSVFile(t *testing.T) {
	log := logger.NewJSONLogger(nil, logger.ErrorLevel)
	ctx := context.Background()
	query := testQuery()

	store := cache.NewCSVRateStore(filepath.Join(t.TempDir(), "rates.csv"))
	provider := new(mocks.MockRateAPI)
	provider.On("FetchRates", ctx, query).Return(fetchedTable(t), nil).Once()

	repo := NewCachedRateRepository(provider, store, log)

	first, err := repo.LoadRates(ctx, query)
	require.NoError(t, err)

	// Second load comes from the file written by the first
	second, err := repo.LoadRates(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, first.Dates, second.Dates)
	assert.Equal(t, first.Rates, second.Rates)
	provider.AssertNumberOfCalls(t, "FetchRates", 1)
}
