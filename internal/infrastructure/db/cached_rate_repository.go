// Package db internal/infrastructure/db/cached_rate_repository.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/domain/repository"
	"github.com/damon-houk/fx-rate-dashboard/internal/domain/service"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
)

// CachedRateRepository implements the RateRepository interface on top of a provider and a local store.
// A store that already holds a table is trusted as is: no staleness check, no refetch.
type CachedRateRepository struct {
	provider service.RateAPI
	store    repository.RateStore
	logger   logger.Logger
}

// NewCachedRateRepository creates a new repository for exchange rates
func NewCachedRateRepository(provider service.RateAPI, store repository.RateStore, log logger.Logger) repository.RateRepository {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CachedRateRepository{
		provider: provider,
		store:    store,
		logger:   log,
	}
}

// LoadRates reads the cached table, or fetches it once and writes the cache
func (r *CachedRateRepository) LoadRates(ctx context.Context, query entity.RateQuery) (*entity.RateTable, error) {
	exists, err := r.store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate cache: %w", err)
	}

	if exists {
		r.logger.Info("Loading exchange rates from cache", nil)

		table, err := r.store.Load(ctx)
		if err != nil {
			r.logger.Error("Failed to load cached exchange rates", map[string]interface{}{
				"error": err.Error(),
			})
			return nil, fmt.Errorf("failed to load cached rates: %w", err)
		}

		if table.Base == "" {
			table.Base = query.Base
		}

		r.logger.Info("Exchange rates loaded from cache", map[string]interface{}{
			"rows":    table.Len(),
			"columns": table.Currencies,
		})
		return table, nil
	}

	r.logger.Info("Cache not found, fetching exchange rates", map[string]interface{}{
		"base":       query.Base,
		"currencies": query.Currencies,
		"start":      query.Start.Format(entity.DateLayout),
		"end":        query.End.Format(entity.DateLayout),
	})

	startTime := time.Now()
	table, err := r.provider.FetchRates(ctx, query)
	if err != nil {
		r.logger.Error("Failed to retrieve exchange rates", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to retrieve exchange rates: %w", err)
	}

	if err := r.store.Save(ctx, table); err != nil {
		r.logger.Error("Failed to write rate cache", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to store exchange rates: %w", err)
	}

	r.logger.Info("Exchange rates fetched and cached", map[string]interface{}{
		"rows":          table.Len(),
		"columns":       table.Currencies,
		"time_to_fetch": time.Since(startTime).String(),
	})

	return table, nil
}
