// Command serve exposes the collected outputs over HTTP for inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urbanpulse/traffic-collector/internal/config"
	"github.com/urbanpulse/traffic-collector/internal/logger"
	"github.com/urbanpulse/traffic-collector/internal/observability"
	"github.com/urbanpulse/traffic-collector/internal/server"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "serve:", err)
		return 1
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "serve",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting results server",
		"addr", cfg.ServeAddr,
		"dir", cfg.OutputDir,
		"version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, server.Config{Addr: cfg.ServeAddr, OutputDir: cfg.OutputDir}, appLog); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
