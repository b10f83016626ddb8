package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/application/service"
	"github.com/damon-houk/fx-rate-dashboard/internal/config"
	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
	"github.com/damon-houk/fx-rate-dashboard/internal/domain/repository"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/api"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/db"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/handler"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}

	log := logger.NewJSONLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting FX rate dashboard", map[string]interface{}{
		"base":          cfg.BaseCurrency,
		"currencies":    cfg.Currencies,
		"cache_backend": cfg.CacheBackend,
		"resample":      cfg.Resample,
	})

	// Setup the rate cache
	var store repository.RateStore
	switch cfg.CacheBackend {
	case config.CacheBackendBadger:
		if err := os.MkdirAll(cfg.BadgerDir, 0755); err != nil {
			log.Fatal("Failed to create database directory", map[string]interface{}{"error": err.Error()})
		}

		badgerDB, err := db.OpenBadger(cfg.BadgerDir)
		if err != nil {
			log.Fatal("Failed to open database", map[string]interface{}{"error": err.Error()})
		}

		closeDB := func() {
			if err := badgerDB.Close(); err != nil {
				log.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
			}
		}
		// Fatal skips deferred calls
		logger.RegisterExitHandler(closeDB)
		defer closeDB()

		store = db.NewBadgerRateStore(badgerDB)
	default:
		store = cache.NewCSVRateStore(cfg.CachePath)
	}

	// Load rates: cache first, otherwise one fetch
	rateAPI := api.NewFrankfurterAPIClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout()}, log)
	rateRepo := db.NewCachedRateRepository(rateAPI, store, log)

	table, err := rateRepo.LoadRates(context.Background(), cfg.Query())
	if err != nil {
		log.Fatal("Failed to load exchange rates", map[string]interface{}{"error": err.Error()})
	}

	if cfg.Resample == config.ResampleWeekly && table.DateColumn != entity.WeekStartColumn {
		table = service.ResampleWeekly(table)
		log.Info("Resampled rates to weekly rows", map[string]interface{}{"rows": table.Len()})
	}

	// Initialize services
	dashboardService, err := service.NewDashboardService(table, cfg.VolatilityWindow, cache.NewFigureCache(), log)
	if err != nil {
		log.Fatal("Failed to build dashboard", map[string]interface{}{"error": err.Error()})
	}

	// One token bucket for HTTP requests and websocket frames
	limiter := rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), cfg.APIRateLimitBurst)

	// Initialize handlers
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)
	socketHandler := handler.NewCallbackSocketHandler(dashboardService, limiter, log)

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.RateLimitMiddleware(limiter, log))

	dashboardHandler.RegisterRoutes(router)
	socketHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": cfg.HTTPAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
