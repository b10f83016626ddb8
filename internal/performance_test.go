package internal

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/application/service"
	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/db"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-dashboard/internal/mocks"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// randomWalkTable builds a year of daily rates that drift around realistic starting values
func randomWalkTable(days int) *entity.RateTable {
	starts := map[string]float64{
		"CAD": 1.35,
		"EUR": 0.92,
		"GBP": 0.80,
		"JPY": 140.0,
	}
	currencies := []string{"CAD", "EUR", "GBP", "JPY"}

	rng := rand.New(rand.NewSource(42))
	table := entity.NewRateTable(entity.DateColumn, "USD", currencies)

	current := make([]float64, len(currencies))
	for i, c := range currencies {
		current[i] = starts[c]
	}

	first := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < days; d++ {
		row := make([]float64, len(currencies))
		for i := range current {
			current[i] *= 1 + (rng.Float64()-0.5)*0.01
			row[i] = current[i]
		}
		_ = table.AppendRow(first.AddDate(0, 0, d), row)
	}
	return table
}

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	log := logger.NewJSONLogger(nil, logger.ErrorLevel)
	ctx := context.Background()

	badgerOpts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	badgerDB, err := badger.Open(badgerOpts)
	require.NoError(t, err)
	defer badgerDB.Close()

	// First load goes through the provider, the second through Badger
	provider := new(mocks.MockRateAPI)
	provider.On("FetchRates", mock.Anything, mock.Anything).Return(randomWalkTable(365), nil).Once()

	repo := db.NewCachedRateRepository(provider, db.NewBadgerRateStore(badgerDB), log)
	query := entity.RateQuery{
		Start:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		Base:       "USD",
		Currencies: []string{"CAD", "EUR", "GBP", "JPY"},
	}

	startTime := time.Now()
	_, err = repo.LoadRates(ctx, query)
	require.NoError(t, err)
	table, err := repo.LoadRates(ctx, query)
	require.NoError(t, err)
	t.Logf("Fetch, store and reload of %d rows took %v", table.Len(), time.Since(startTime))
	provider.AssertNumberOfCalls(t, "FetchRates", 1)

	startTime = time.Now()
	dashboard, err := service.NewDashboardService(table, 30, cache.NewFigureCache(), log)
	require.NoError(t, err)
	t.Logf("Derived series and layout built in %v", time.Since(startTime))

	// Performance test configuration
	numCallbacks := 1000
	concurrency := 10
	perWorker := numCallbacks / concurrency

	var failures int64

	t.Run("Graph Callbacks", func(t *testing.T) {
		startTime := time.Now()

		wg := sync.WaitGroup{}
		wg.Add(concurrency)

		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()

				for j := 0; j < perWorker; j++ {
					currency := table.Currencies[(workerID+j)%len(table.Currencies)]
					if _, err := dashboard.UpdateGraph(ctx, currency); err != nil {
						atomic.AddInt64(&failures, 1)
					}
				}
			}(i)
		}

		wg.Wait()
		duration := time.Since(startTime)

		throughput := float64(numCallbacks) / duration.Seconds()
		t.Logf("Graph callbacks: %d in %v (%.2f/sec)", numCallbacks, duration, throughput)
	})

	t.Run("Conversion Callbacks", func(t *testing.T) {
		startTime := time.Now()

		wg := sync.WaitGroup{}
		wg.Add(concurrency)

		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()

				for j := 0; j < perWorker; j++ {
					currency := table.Currencies[j%len(table.Currencies)]
					amount := fmt.Sprintf("%d.%02d", 100+workerID, j%100)
					if _, err := dashboard.UpdateConversion(ctx, currency, amount); err != nil {
						atomic.AddInt64(&failures, 1)
					}
				}
			}(i)
		}

		wg.Wait()
		duration := time.Since(startTime)

		throughput := float64(numCallbacks) / duration.Seconds()
		t.Logf("Conversion callbacks: %d in %v (%.2f/sec)", numCallbacks, duration, throughput)
	})

	require.Zero(t, atomic.LoadInt64(&failures))
}
