package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/goinforme"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	addr := flag.String("addr", "", "Listen address (default :5000, or :$PORT)")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := goinforme.DefaultConfig()
	if *configPath != "" {
		loaded, err := goinforme.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.LookupEnv)

	apiKey := os.Getenv("GOINFORME_API_KEY")
	corsOrigins := os.Getenv("GOINFORME_CORS_ORIGINS")

	listen := *addr
	if listen == "" {
		listen = ":5000"
		if port := os.Getenv("PORT"); port != "" {
			listen = ":" + port
		}
	}

	engine, err := goinforme.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:        listen,
		Handler:     newRouter(engine, cfg, apiKey, corsOrigins),
		ReadTimeout: 30 * time.Second,
		// The model call can take most of the request budget.
		WriteTimeout: time.Duration(cfg.RequestTimeoutSeconds+10) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// newRouter wires routes and middleware.
// Chain: recovery -> cors -> auth -> request id -> logging -> mux
func newRouter(engine goinforme.Engine, cfg goinforme.Config, apiKey, corsOrigins string) http.Handler {
	h := newHandler(engine, cfg)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /process-pdf", h.handleProcessPDF)
	mux.HandleFunc("GET /results", h.handleListResults)
	mux.HandleFunc("GET /results/{name}", h.handleGetResult)
	mux.HandleFunc("GET /export.xlsx", h.handleExport)
	mux.HandleFunc("GET /health", h.handleHealth)

	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}
