package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Level())

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux, err := newMux(cfg, store, reg)
	if err != nil {
		slog.Error("Failed to build routes", "error", err)
		os.Exit(1)
	}

	// h2c serves HTTP/2 without TLS, which Connect's gRPC protocol needs.
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Connect server starting", "address", addr, "mode", cfg.Mode())
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
