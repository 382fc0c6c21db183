// Package main is the entry point for the chat server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/internal/config"
	"github.com/byom-labs/byom-chat/internal/gateway"
	"github.com/byom-labs/byom-chat/internal/handler"
	"github.com/byom-labs/byom-chat/internal/middleware"
	natssink "github.com/byom-labs/byom-chat/internal/nats"
	"github.com/byom-labs/byom-chat/internal/provider"
	"github.com/byom-labs/byom-chat/internal/proxy"
	"github.com/byom-labs/byom-chat/internal/store"
	"github.com/byom-labs/byom-chat/pkg/logger"
	"github.com/byom-labs/byom-chat/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "byom-chat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Optional NATS mirror of the conversation log
	var sink gateway.Sink
	if cfg.NATSURL != "" {
		natsSink, err := natssink.Connect(ctx, natssink.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, mirroring disabled", zap.Error(err))
		} else {
			defer natsSink.Close()
			sink = natsSink
		}
	}

	// Conversation store and session gateway
	st := store.NewMemoryStore()
	gw := gateway.New(st, sink, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(time.Now())
	spaHandler := handler.NewSPAHandler(log, cfg.StaticDir, "apps/byom-chat/dist", "dist")

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoint (no auth required)
	r.Get("/healthz", healthHandler.Healthz)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Real-time session gateway
	r.Get("/ws", gw.Handler())

	// /api is either the embedded provider backend or a reverse proxy to
	// the hosted one.
	switch cfg.ProviderMode {
	case config.ProviderModeLocal:
		providerHandler := provider.NewHandler(provider.NewRegistry(), provider.DefaultClientFactory, log)
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			providerHandler.Routes(r)
		})
		log.Info("serving embedded provider backend")
	default:
		apiProxy, err := proxy.New(cfg.UpstreamAPI, log)
		if err != nil {
			log.Error("invalid upstream API origin", zap.String("origin", cfg.UpstreamAPI), zap.Error(err))
			os.Exit(1)
		}
		r.Handle("/api/*", http.StripPrefix("/api", apiProxy))
		log.Info("proxying /api", zap.String("origin", cfg.UpstreamAPI))
	}

	// Everything else falls through to the single-page client
	r.NotFound(spaHandler.ServeHTTP)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
