package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novadent/booking-gateway/internal/api/router"
	"github.com/novadent/booking-gateway/internal/app/bootstrap"
	"github.com/novadent/booking-gateway/internal/booking"
	"github.com/novadent/booking-gateway/internal/clinicapi"
	appconfig "github.com/novadent/booking-gateway/internal/config"
	"github.com/novadent/booking-gateway/internal/directory"
	"github.com/novadent/booking-gateway/internal/http/handlers"
	"github.com/novadent/booking-gateway/internal/observability/metrics"
	"github.com/novadent/booking-gateway/internal/scheduling"
	"github.com/novadent/booking-gateway/pkg/logging"
)

func main() {
	// Load .env file if present; real deployments use environment variables.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-gateway API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Redis backs the booking handshake state and the doctor directory cache.
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for booking flow state", "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	// Upstream clinic API client and derived services.
	clinicClient := clinicapi.NewClient(cfg.ClinicAPIBaseURL, cfg.ClinicAPITimeout, logger)
	dir := directory.New(clinicClient, redisClient, cfg.DirectoryCacheTTL, logger)

	flowStore, err := booking.NewFlowStore(redisClient, cfg.HoldTTL, cfg.OTPSessionTTL)
	if err != nil {
		logger.Error("failed to initialize flow store", "error", err)
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown clinic timezone, using UTC", "timezone", cfg.Timezone)
		location = time.UTC
	}

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	window := scheduling.Window{
		Start: cfg.WorkDayStart,
		End:   cfg.WorkDayEnd,
		Step:  time.Duration(cfg.SlotStepMinutes) * time.Minute,
	}
	searchService := booking.NewSearchService(clinicClient, dir, window, bookingMetrics, logger)
	flow := booking.NewFlow(clinicClient, dir, flowStore, bookingMetrics, logger)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(handlers.Config{
		Search:           searchService,
		Flow:             flow,
		Directory:        dir,
		AllowedDurations: cfg.DurationsMinutes,
		Location:         location,
		Logger:           logger,
	})

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		Booking:            bookingHandler,
		SessionJWTSecret:   cfg.SessionJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     promhttp.Handler(),
		OTPSendRatePerSec:  float64(cfg.OTPSendRatePerSec),
		OTPSendBurst:       cfg.OTPSendBurst,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
