// Package service internal/application/service/dashboard_service.go
package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/chart"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/middleware"
)

// DefaultAmount pre-fills the amount input
const DefaultAmount = "1"

// Amounts have at most maxAmountScale decimal places and a magnitude below maxAmount
const (
	maxAmountExponent = 15
	maxAmountScale    = 18
)

var maxAmount = decimal.New(1, maxAmountExponent)

// Option is one entry of the currency dropdown
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Layout is the static part of the dashboard, built once at startup
type Layout struct {
	Title           string       `json:"title"`
	Base            string       `json:"base"`
	FirstDate       string       `json:"first_date"`
	LatestDate      string       `json:"latest_date"`
	Options         []Option     `json:"options"`
	DefaultCurrency string       `json:"default_currency"`
	DefaultAmount   string       `json:"default_amount"`
	LatestRates     chart.Figure `json:"latest_rates"`
	PercentChange   chart.Figure `json:"percent_change"`
	Volatility      chart.Figure `json:"volatility"`
}

// GraphUpdate is the output of the currency selection callback
type GraphUpdate struct {
	Currency   string       `json:"currency"`
	Figure     chart.Figure `json:"figure"`
	Rate       float64      `json:"rate"`
	RateDate   string       `json:"rate_date"`
	LatestRate string       `json:"latest_rate"`
}

// ConversionResult is the output of the amount conversion callback
type ConversionResult struct {
	Currency  string  `json:"currency"`
	Amount    string  `json:"amount"`
	Rate      float64 `json:"rate"`
	Converted string  `json:"converted"`
	Text      string  `json:"text"`
}

// DashboardService answers the dashboard callbacks from the read-only rate table
type DashboardService struct {
	table   *entity.RateTable
	derived *entity.DerivedSeries
	figures *cache.FigureCache
	layout  Layout
	logger  logger.Logger
}

// NewDashboardService derives the series and builds the static layout
func NewDashboardService(table *entity.RateTable, window int, figures *cache.FigureCache, log logger.Logger) (*DashboardService, error) {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if figures == nil {
		figures = cache.NewFigureCache()
	}

	derived, err := Derive(table, window)
	if err != nil {
		return nil, fmt.Errorf("failed to derive series: %w", err)
	}

	s := &DashboardService{
		table:   table,
		derived: derived,
		figures: figures,
		logger:  log,
	}
	s.layout = s.buildLayout()

	log.Info("Dashboard layout built", map[string]interface{}{
		"currencies":  table.Currencies,
		"rows":        table.Len(),
		"first_date":  s.layout.FirstDate,
		"latest_date": s.layout.LatestDate,
		"window":      window,
	})

	return s, nil
}

// Derived returns the series computed at load
func (s *DashboardService) Derived() *entity.DerivedSeries {
	return s.derived
}

// Rows returns the number of rows in the rate table
func (s *DashboardService) Rows() int {
	return s.table.Len()
}

// Layout returns the static layout
func (s *DashboardService) Layout() Layout {
	return s.layout
}

func (s *DashboardService) buildLayout() Layout {
	base := s.table.Base
	dateColumn := s.table.DateColumn
	first := s.derived.FirstDate.Format(entity.DateLayout)
	latest := s.derived.LatestDate.Format(entity.DateLayout)

	options := make([]Option, len(s.table.Currencies))
	for i, c := range s.table.Currencies {
		options[i] = Option{Label: CurrencyLabel(c), Value: c}
	}

	var defaultCurrency string
	if len(s.table.Currencies) > 0 {
		defaultCurrency = s.table.Currencies[0]
	}

	return Layout{
		Title:           fmt.Sprintf("%s Exchange Rate Dashboard", base),
		Base:            base,
		FirstDate:       first,
		LatestDate:      latest,
		Options:         options,
		DefaultCurrency: defaultCurrency,
		DefaultAmount:   DefaultAmount,
		LatestRates: chart.BarFigure(
			fmt.Sprintf("Latest Exchange Rates (%s)", latest),
			"Currency", fmt.Sprintf("Units per 1 %s", base),
			s.table.Currencies, s.derived.Latest),
		PercentChange: chart.BarFigure(
			fmt.Sprintf("Percentage Change Since %s", first),
			"Currency", "Change (%)",
			s.table.Currencies, s.derived.PercentChange),
		Volatility: chart.MultiLineFigure(
			fmt.Sprintf("Rolling Volatility (%d-row window)", s.derived.Window),
			dateColumn, "Standard deviation",
			s.table.Dates, s.table.Currencies, s.derived.Volatility),
	}
}

// LatestRate returns the latest rate of a known currency
func (s *DashboardService) LatestRate(currency string) (*entity.ExchangeRate, error) {
	if !s.table.HasCurrency(currency) {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownCurrency, currency)
	}

	rate := s.derived.Latest[currency]
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("%w for %s on %s", entity.ErrMissingRate, currency, s.derived.LatestDate.Format(entity.DateLayout))
	}

	return &entity.ExchangeRate{
		Base:     s.table.Base,
		Currency: currency,
		Date:     s.derived.LatestDate,
		Rate:     rate,
	}, nil
}

// UpdateGraph redraws the main line chart for a currency and its latest rate string
func (s *DashboardService) UpdateGraph(ctx context.Context, currency string) (*GraphUpdate, error) {
	requestID := middleware.GetRequestID(ctx)
	currency = strings.ToUpper(strings.TrimSpace(currency))

	s.logger.Debug("Updating rate graph", map[string]interface{}{
		"request_id": requestID,
		"currency":   currency,
	})

	latest, err := s.LatestRate(currency)
	if err != nil {
		s.logger.Warn("Cannot update rate graph", map[string]interface{}{
			"request_id": requestID,
			"currency":   currency,
			"error":      err.Error(),
		})
		return nil, err
	}

	fig, err := s.figures.GetOrBuild("line:"+currency, func() (chart.Figure, error) {
		values, err := s.table.Column(currency)
		if err != nil {
			return chart.Figure{}, err
		}
		return chart.LineFigure(
			fmt.Sprintf("%s to %s Exchange Rate", s.table.Base, currency),
			s.table.DateColumn, "Rate",
			currency, s.table.Dates, values), nil
	})
	if err != nil {
		return nil, err
	}

	return &GraphUpdate{
		Currency:   currency,
		Figure:     fig,
		Rate:       latest.Rate,
		RateDate:   latest.Date.Format(entity.DateLayout),
		LatestRate: fmt.Sprintf("1 %s = %s %s", latest.Base, decimal.NewFromFloat(latest.Rate).StringFixed(4), currency),
	}, nil
}

// UpdateConversion multiplies amount by the latest rate of currency, rounded to two decimals
func (s *DashboardService) UpdateConversion(ctx context.Context, currency, amount string) (*ConversionResult, error) {
	requestID := middleware.GetRequestID(ctx)
	currency = strings.ToUpper(strings.TrimSpace(currency))

	value, err := parseAmount(amount)
	if err != nil {
		s.logger.Warn("Invalid conversion amount", map[string]interface{}{
			"request_id": requestID,
			"amount":     amount,
		})
		return nil, err
	}

	latest, err := s.LatestRate(currency)
	if err != nil {
		s.logger.Warn("Cannot convert amount", map[string]interface{}{
			"request_id": requestID,
			"currency":   currency,
			"error":      err.Error(),
		})
		return nil, err
	}

	converted := value.Mul(decimal.NewFromFloat(latest.Rate)).StringFixed(2)

	s.logger.Debug("Amount converted", map[string]interface{}{
		"request_id": requestID,
		"currency":   currency,
		"amount":     value.String(),
		"rate":       latest.Rate,
		"converted":  converted,
	})

	return &ConversionResult{
		Currency:  currency,
		Amount:    value.StringFixed(2),
		Rate:      latest.Rate,
		Converted: converted,
		Text:      fmt.Sprintf("%s %s = %s %s", value.StringFixed(2), latest.Base, converted, currency),
	}, nil
}

// parseAmount reads a decimal amount, rejecting values too large or too precise to render
func parseAmount(amount string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", entity.ErrInvalidAmount, amount)
	}

	exp := value.Exponent()
	if exp > maxAmountExponent || exp < -maxAmountScale || value.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", entity.ErrInvalidAmount, amount)
	}

	return value, nil
}
