// Package repository internal/domain/repository/rate_repository.go
package repository

import (
	"context"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
)

// RateStore defines the interface for the local rate cache
type RateStore interface {
	// Exists reports whether the store already holds a table
	Exists(ctx context.Context) (bool, error)

	// Load reads the cached table
	Load(ctx context.Context) (*entity.RateTable, error)

	// Save writes the table once
	Save(ctx context.Context, table *entity.RateTable) error
}

// RateRepository defines the interface for obtaining the rate table
type RateRepository interface {
	// LoadRates returns the cached table, fetching and caching it when absent
	LoadRates(ctx context.Context, query entity.RateQuery) (*entity.RateTable, error)
}
