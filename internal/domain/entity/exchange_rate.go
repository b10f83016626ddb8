package entity

import (
	"time"
)

// ExchangeRate represents the value of one unit of the base currency in another currency on a date
type ExchangeRate struct {
	Base     string    `json:"base"`
	Currency string    `json:"currency"`
	Date     time.Time `json:"date"`
	Rate     float64   `json:"rate"`
}
