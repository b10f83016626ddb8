package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
)

const (
	frankfurterBaseURL = "https://api.frankfurter.app"
	defaultTimeout     = 30 * time.Second
)

// FrankfurterAPIClient fetches time series of exchange rates from the Frankfurter API
type FrankfurterAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewFrankfurterAPIClient creates a new Frankfurter API client
func NewFrankfurterAPIClient(baseURL string, httpClient *http.Client, log logger.Logger) *FrankfurterAPIClient {
	if baseURL == "" {
		baseURL = frankfurterBaseURL
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultTimeout,
		}
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &FrankfurterAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log.WithField("component", "frankfurter_api"),
	}
}

// TimeSeriesResponse represents the response structure of the time series endpoint
type TimeSeriesResponse struct {
	Amount    float64                       `json:"amount"`
	Base      string                        `json:"base"`
	StartDate string                        `json:"start_date"`
	EndDate   string                        `json:"end_date"`
	Rates     map[string]map[string]float64 `json:"rates"`
}

// requestURL builds GET {base}/{start}..{end}?from={base}&to={c1,c2}
func (c *FrankfurterAPIClient) requestURL(query entity.RateQuery) string {
	params := url.Values{}
	params.Set("from", query.Base)
	params.Set("to", strings.Join(query.Currencies, ","))

	return fmt.Sprintf("%s/%s..%s?%s",
		c.baseURL,
		query.Start.Format(entity.DateLayout),
		query.End.Format(entity.DateLayout),
		params.Encode())
}

// FetchRates retrieves daily rates for the query range; there is no retry
func (c *FrankfurterAPIClient) FetchRates(ctx context.Context, query entity.RateQuery) (*entity.RateTable, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate query: %w", err)
	}

	reqURL := c.requestURL(query)

	c.logger.Info("Requesting exchange rates", map[string]interface{}{
		"url":        reqURL,
		"base":       query.Base,
		"currencies": query.Currencies,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Exchange rate response received", map[string]interface{}{
		"status":      resp.StatusCode,
		"bytes":       len(bodyBytes),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned error status: %d, body: %s", resp.StatusCode, truncate(string(bodyBytes), 512))
	}

	var tsResp TimeSeriesResponse
	if err := json.Unmarshal(bodyBytes, &tsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	table, err := toRateTable(tsResp, query)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Exchange rates fetched", map[string]interface{}{
		"rows":    table.Len(),
		"columns": table.Currencies,
	})

	return table, nil
}

// toRateTable reshapes the date -> currency -> rate mapping into rows, one per date
func toRateTable(resp TimeSeriesResponse, query entity.RateQuery) (*entity.RateTable, error) {
	if resp.Rates == nil {
		return nil, fmt.Errorf("response has no rates field")
	}

	currencies := make([]string, len(query.Currencies))
	copy(currencies, query.Currencies)
	sort.Strings(currencies)

	base := resp.Base
	if base == "" {
		base = query.Base
	}

	table := entity.NewRateTable(entity.DateColumn, base, currencies)

	for dateStr, rates := range resp.Rates {
		date, err := time.Parse(entity.DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate date '%s': %w", dateStr, err)
		}

		row := make([]float64, len(currencies))
		for i, code := range currencies {
			rate, ok := rates[code]
			if !ok {
				rate = math.NaN()
			}
			row[i] = rate
		}

		if err := table.AppendRow(date, row); err != nil {
			return nil, err
		}
	}

	table.SortByDate()
	return table, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
