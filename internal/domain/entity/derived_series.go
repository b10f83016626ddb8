package entity

import "time"

// DerivedSeries holds the values computed from a RateTable at load time
type DerivedSeries struct {
	FirstDate     time.Time
	LatestDate    time.Time
	First         map[string]float64
	Latest        map[string]float64
	PercentChange map[string]float64
	// Volatility[currency][i] is NaN while fewer than Window rows precede row i
	Volatility map[string][]float64
	Window     int
}
