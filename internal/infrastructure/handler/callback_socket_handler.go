package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/application/service"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// writeTimeout bounds each frame and ping write
	writeTimeout = 10 * time.Second
	// pongTimeout is how long the connection may stay silent before it is dropped
	pongTimeout = 60 * time.Second
	// pingInterval must stay below pongTimeout
	pingInterval = 30 * time.Second
	// maxMessageSize caps one inbound callback frame
	maxMessageSize = 4096
)

// CallbackSocketHandler runs the dashboard callbacks over a websocket, one frame per input change
type CallbackSocketHandler struct {
	service  *service.DashboardService
	limiter  *rate.Limiter
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewCallbackSocketHandler creates a new websocket callback handler. Every frame
// takes a token from limiter, the same bucket the HTTP callback routes use; a nil
// limiter disables the check.
func NewCallbackSocketHandler(service *service.DashboardService, limiter *rate.Limiter, log logger.Logger) *CallbackSocketHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CallbackSocketHandler{
		service: service,
		limiter: limiter,
		logger:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// socketWriter serializes writes from the reply loop and the ping loop
type socketWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (sw *socketWriter) writeJSON(v interface{}) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return sw.conn.WriteJSON(v)
}

func (sw *socketWriter) ping() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	return sw.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// Serve upgrades the connection and answers callback frames until the page goes away
func (h *CallbackSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	connID := middleware.GetRequestID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", map[string]interface{}{
			"request_id": connID,
			"error":      err.Error(),
		})
		return
	}
	defer conn.Close()

	h.logger.Info("Callback socket connected", map[string]interface{}{
		"request_id":  connID,
		"remote_addr": r.RemoteAddr,
	})

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	writer := &socketWriter{conn: conn}
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := writer.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		var req CallbackRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Callback socket closed unexpectedly", map[string]interface{}{
					"request_id": connID,
					"error":      err.Error(),
				})
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		var resp CallbackResponse
		if h.limiter != nil && !h.limiter.Allow() {
			resp = h.rejectFrame(connID, req)
		} else {
			resp = h.dispatch(r, connID, req)
		}
		if err := writer.writeJSON(resp); err != nil {
			h.logger.Warn("Failed to write callback response", map[string]interface{}{
				"request_id": connID,
				"error":      err.Error(),
			})
			break
		}
	}

	h.logger.Info("Callback socket disconnected", map[string]interface{}{
		"request_id": connID,
	})
}

// dispatch runs one callback; each frame gets its own request ID derived from the connection's
func (h *CallbackSocketHandler) dispatch(r *http.Request, connID string, req CallbackRequest) CallbackResponse {
	frameID := connID + "/" + uuid.NewString()[:8]
	ctx := middleware.WithRequestID(r.Context(), frameID)

	resp := CallbackResponse{ID: req.ID, Callback: req.Callback}

	switch req.Callback {
	case CallbackGraph:
		update, err := h.service.UpdateGraph(ctx, req.Currency)
		if err != nil {
			e := errorFor(err, frameID)
			resp.Error = &e
			return resp
		}
		resp.Graph = update
	case CallbackConversion:
		result, err := h.service.UpdateConversion(ctx, req.Currency, req.Amount)
		if err != nil {
			e := errorFor(err, frameID)
			resp.Error = &e
			return resp
		}
		resp.Conversion = result
	default:
		resp.Error = &ErrorResponse{
			Error:       "Unknown callback",
			Status:      http.StatusBadRequest,
			Description: `callback must be "graph" or "conversion"`,
			RequestID:   frameID,
		}
	}

	return resp
}

// rejectFrame answers a frame that arrived with the token bucket empty
func (h *CallbackSocketHandler) rejectFrame(connID string, req CallbackRequest) CallbackResponse {
	h.logger.Warn("Rate limit exceeded", map[string]interface{}{
		"request_id": connID,
		"callback":   req.Callback,
	})

	return CallbackResponse{
		ID:       req.ID,
		Callback: req.Callback,
		Error: &ErrorResponse{
			Error:       "Too many requests",
			Status:      http.StatusTooManyRequests,
			Description: "callback rate limit exceeded, retry shortly",
			RequestID:   connID,
		},
	}
}

// RegisterRoutes registers the websocket route
func (h *CallbackSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.Serve).Methods("GET")

	h.logger.Info("Callback socket route registered", map[string]interface{}{
		"routes": []string{
			"GET /ws",
		},
	})
}
