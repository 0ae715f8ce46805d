// Package server exposes a read-only HTTP view over the output directory:
// the run summary, output file listing and download, liveness and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbanpulse/traffic-collector/internal/sink"
)

type Config struct {
	Addr      string
	OutputDir string
}

// Run sets up http and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Router(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr, "dir", cfg.OutputDir)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Router builds the route table; split out for tests.
func Router(cfg Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(Recover())
	r.Use(Logging(logger))

	r.Get("/healthz", liveness)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/summary", handleSummary(cfg))
	r.Get("/outputs", handleList(cfg))
	r.Get("/outputs/{name}", handleFile(cfg))
	return r
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleSummary(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveOutput(w, r, cfg, sink.SummaryJSON)
	}
}

type fileEntry struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
}

func handleList(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		entries, err := os.ReadDir(cfg.OutputDir)
		if err != nil {
			http.Error(w, "output directory unavailable", http.StatusNotFound)
			return
		}
		files := []fileEntry{}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, fileEntry{Filename: e.Name(), SizeBytes: info.Size()})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(files)
	}
}

func handleFile(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveOutput(w, r, cfg, chi.URLParam(r, "name"))
	}
}

// serveOutput serves one file from the output directory, refusing any name
// that resolves outside it.
func serveOutput(w http.ResponseWriter, r *http.Request, cfg Config, name string) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	path := filepath.Join(cfg.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}
