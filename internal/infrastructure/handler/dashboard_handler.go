// Package handler internal/infrastructure/handler/dashboard_handler.go
package handler

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/damon-houk/fx-rate-dashboard/internal/application/service"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// DashboardHandler serves the dashboard page and its HTTP callbacks
type DashboardHandler struct {
	service *service.DashboardService
	logger  logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *service.DashboardService, log logger.Logger) *DashboardHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &DashboardHandler{
		service: service,
		logger:  log,
	}
}

// Index renders the single page
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, h.service.Layout()); err != nil {
		h.logger.Error("Failed to render dashboard page", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}

// GetLayout returns the static layout: dropdown options, defaults and the three static charts
func (h *DashboardHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, h.service.Layout())
}

// UpdateGraph handles a currency selection change
func (h *DashboardHandler) UpdateGraph(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	currency := r.URL.Query().Get("currency")

	h.logger.Debug("Handling graph callback", map[string]interface{}{
		"request_id": requestID,
		"currency":   currency,
	})

	update, err := h.service.UpdateGraph(r.Context(), currency)
	if err != nil {
		sendErrorResponse(w, h.logger, errorFor(err, requestID))
		return
	}

	sendJSON(w, update)
}

// UpdateConversion handles a currency or amount change
func (h *DashboardHandler) UpdateConversion(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	currency := r.URL.Query().Get("currency")
	amount := r.URL.Query().Get("amount")

	h.logger.Debug("Handling conversion callback", map[string]interface{}{
		"request_id": requestID,
		"currency":   currency,
		"amount":     amount,
	})

	result, err := h.service.UpdateConversion(r.Context(), currency, amount)
	if err != nil {
		sendErrorResponse(w, h.logger, errorFor(err, requestID))
		return
	}

	sendJSON(w, result)
}

// Health reports that the table is loaded
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	layout := h.service.Layout()

	currencies := make([]string, len(layout.Options))
	for i, o := range layout.Options {
		currencies[i] = o.Value
	}

	sendJSON(w, HealthResponse{
		Status:     "ok",
		Rows:       h.service.Rows(),
		Currencies: currencies,
		LatestDate: layout.LatestDate,
	})
}

// RegisterRoutes registers the dashboard handler routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.HandleFunc("/api/layout", h.GetLayout).Methods("GET")
	router.HandleFunc("/api/graph", h.UpdateGraph).Methods("GET")
	router.HandleFunc("/api/conversion", h.UpdateConversion).Methods("GET")

	h.logger.Info("Dashboard routes registered", map[string]interface{}{
		"routes": []string{
			"GET /",
			"GET /healthz",
			"GET /api/layout",
			"GET /api/graph",
			"GET /api/conversion",
		},
	})
}
