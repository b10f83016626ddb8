// internal/infrastructure/middleware/middleware_test.go
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-dashboard/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRequestIDMiddleware(t *testing.T) {
	// Setup
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get request ID from context
		requestID := r.Context().Value(requestIDKey)
		assert.NotNil(t, requestID)

		// Write it to the response for testing
		w.Write([]byte(requestID.(string)))
	})

	middleware := RequestIDMiddleware(nextHandler)

	// Create test request
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	// Test with no existing request ID
	middleware.ServeHTTP(w, req)

	// Verify response
	assert.Equal(t, http.StatusOK, w.Code)
	requestID := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, w.Body.String())

	// Test with existing request ID
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-id-123")
	w = httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	// Verify existing ID was preserved
	assert.Equal(t, "test-id-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "test-id-123", w.Body.String())
}

func TestGetRequestID(t *testing.T) {
	// Test with valid request ID
	ctx := context.WithValue(context.Background(), requestIDKey, "test-id-123")
	assert.Equal(t, "test-id-123", GetRequestID(ctx))

	// Test with no request ID
	assert.Equal(t, "unknown", GetRequestID(context.Background()))
}

func TestMiddlewareChain(t *testing.T) {
	// This test verifies that the middleware chain correctly preserves the request ID
	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, logger.InfoLevel)

	// Create a chain of middleware with a handler that returns the request ID
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestID(r.Context())
		w.Write([]byte(requestID))
	})

	// Apply RequestIDMiddleware then LoggingMiddleware
	chain := RequestIDMiddleware(LoggingMiddleware(log)(finalHandler))

	// Create a request with a known ID
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-id-123")
	w := httptest.NewRecorder()

	// Process the request
	chain.ServeHTTP(w, req)

	// Check that the final handler received the request ID
	assert.Equal(t, "test-id-123", w.Body.String())

	// Check that the request ID appears in logs
	logs := buf.String()
	assert.Contains(t, logs, "test-id-123", "Request ID should be in logs")
}

func TestRateLimitMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, logger.InfoLevel)

	// One token, refilled far slower than the test runs
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)

	handler := RequestIDMiddleware(RateLimitMiddleware(limiter, log)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}),
	))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/graph", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/graph", nil)
	req.Header.Set("X-Request-ID", "limited-1")
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "limited-1")
	assert.Contains(t, buf.String(), "Rate limit exceeded")
}

func TestRateLimitMiddlewareLogsRejection(t *testing.T) {
	log := new(mocks.MockLogger)
	log.On("Warn", "Rate limit exceeded", mock.MatchedBy(func(fields map[string]interface{}) bool {
		return fields["request_id"] == "limited-2" && fields["path"] == "/api/conversion"
	})).Once()

	// Empty bucket that never refills
	limiter := rate.NewLimiter(0, 0)

	called := false
	handler := RequestIDMiddleware(RateLimitMiddleware(limiter, log)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}),
	))

	req := httptest.NewRequest("GET", "/api/conversion?currency=EUR&amount=1", nil)
	req.Header.Set("X-Request-ID", "limited-2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	log.AssertExpectations(t)
}

func TestResponseWrapperHijack(t *testing.T) {
	// httptest.ResponseRecorder cannot be hijacked
	wrapper := newResponseWrapper(httptest.NewRecorder())
	_, _, err := wrapper.Hijack()
	assert.Error(t, err)

	var _ http.Hijacker = wrapper
}
