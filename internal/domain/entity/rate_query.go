package entity

import (
	"errors"
	"time"
)

// RateQuery describes the range and currency set requested from a rate provider
type RateQuery struct {
	Start      time.Time
	End        time.Time
	Base       string
	Currencies []string
}

// Validate ensures the query can be sent to a provider
func (q RateQuery) Validate() error {
	if len(q.Base) != 3 {
		return errors.New("base currency must be a 3 letter code")
	}

	if len(q.Currencies) == 0 {
		return errors.New("at least one target currency is required")
	}

	for _, c := range q.Currencies {
		if len(c) != 3 {
			return errors.New("target currencies must be 3 letter codes")
		}
	}

	if q.End.Before(q.Start) {
		return errors.New("end date must not be before start date")
	}

	return nil
}
