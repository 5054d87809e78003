package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/service"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/pkg/api"
)

// newMux wires every service onto one mux. Auth's Register and Login are
// public; everything else requires a bearer token.
func newMux(cfg config.Config, store *sqlite.SQLiteStore, reg *prometheus.Registry) (*http.ServeMux, error) {
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	publicOpts := []connect.HandlerOption{
		connect.WithInterceptors(m.Interceptor(), middleware.LoggingInterceptor()),
	}
	privateOpts := []connect.HandlerOption{
		connect.WithInterceptors(m.Interceptor(), middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor()),
	}

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, store, slog.Default()),
		publicOpts, privateOpts...,
	))
	mux.Handle(api.NewGroupServiceHandler(service.NewGroupService(store, m, cfg.Mode()), privateOpts...))
	mux.Handle(api.NewExpenseServiceHandler(service.NewExpenseService(store, m), privateOpts...))
	mux.Handle(api.NewSettlementServiceHandler(service.NewSettlementService(store, m), privateOpts...))
	mux.Handle(api.NewBalanceServiceHandler(service.NewBalanceService(store), privateOpts...))

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			slog.Error("Health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux, nil
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
