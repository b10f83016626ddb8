package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
)

// errorFor maps a callback error to the response sent to the page
func errorFor(err error, requestID string) ErrorResponse {
	switch {
	case errors.Is(err, entity.ErrInvalidAmount):
		return ErrorResponse{
			Error:       "Invalid amount",
			Status:      http.StatusBadRequest,
			Description: "Amount must be a number, e.g. 100 or 12.50",
			RequestID:   requestID,
		}
	case errors.Is(err, entity.ErrUnknownCurrency):
		return ErrorResponse{
			Error:       "Unknown currency",
			Status:      http.StatusNotFound,
			Description: "The selected currency is not part of the loaded rate table",
			RequestID:   requestID,
		}
	case errors.Is(err, entity.ErrMissingRate):
		return ErrorResponse{
			Error:       "No latest rate",
			Status:      http.StatusUnprocessableEntity,
			Description: "The latest row of the rate table has no value for this currency",
			RequestID:   requestID,
		}
	default:
		return ErrorResponse{
			Error:       "Internal server error",
			Status:      http.StatusInternalServerError,
			Description: "An unexpected error occurred. Please try again later.",
			RequestID:   requestID,
		}
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)

	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  resp.RequestID,
		"status_code": resp.Status,
		"message":     resp.Error,
	})

	json.NewEncoder(w).Encode(resp)
}

// sendJSON writes a 200 JSON response
func sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
