package entity

import "errors"

var (
	// ErrUnknownCurrency is returned when a currency is not a column of the rate table
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrInvalidAmount is returned when a conversion amount cannot be parsed
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrEmptyTable is returned when a rate table has no rows
	ErrEmptyTable = errors.New("rate table is empty")
)

// ErrMissingRate is returned when the latest row has no rate for a currency
var ErrMissingRate = errors.New("no latest rate")
