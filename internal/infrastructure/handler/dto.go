package handler

import (
	"github.com/damon-houk/fx-rate-dashboard/internal/application/service"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// HealthResponse represents the response for the health endpoint
type HealthResponse struct {
	Status     string   `json:"status"`
	Rows       int      `json:"rows"`
	Currencies []string `json:"currencies"`
	LatestDate string   `json:"latest_date"`
}

// CallbackRequest is a websocket frame sent by the page when an input changes
type CallbackRequest struct {
	ID       int64  `json:"id"`
	Callback string `json:"callback"`
	Currency string `json:"currency"`
	Amount   string `json:"amount,omitempty"`
}

// CallbackResponse is the websocket frame answering a CallbackRequest
type CallbackResponse struct {
	ID         int64                     `json:"id"`
	Callback   string                    `json:"callback"`
	Graph      *service.GraphUpdate      `json:"graph,omitempty"`
	Conversion *service.ConversionResult `json:"conversion,omitempty"`
	Error      *ErrorResponse            `json:"error,omitempty"`
}

const (
	// CallbackGraph redraws the main chart for the selected currency
	CallbackGraph = "graph"
	// CallbackConversion recomputes the converted amount
	CallbackConversion = "conversion"
)
