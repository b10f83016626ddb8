package service

import (
	"context"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
)

// RateAPI defines the interface for remote exchange rate providers
type RateAPI interface {
	// FetchRates retrieves daily rates for every currency in the query
	FetchRates(ctx context.Context, query entity.RateQuery) (*entity.RateTable, error)
}
