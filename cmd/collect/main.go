// Command collect gathers traffic flow tiles and incident reports for the
// configured bounding box and writes the collection outputs plus a summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbanpulse/traffic-collector/internal/collector"
	"github.com/urbanpulse/traffic-collector/internal/config"
	"github.com/urbanpulse/traffic-collector/internal/httpclient"
	"github.com/urbanpulse/traffic-collector/internal/incidents"
	"github.com/urbanpulse/traffic-collector/internal/logger"
	"github.com/urbanpulse/traffic-collector/internal/observability"
	"github.com/urbanpulse/traffic-collector/internal/sink"
	"github.com/urbanpulse/traffic-collector/internal/tomtom"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "collect:", err)
		return 1
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintln(os.Stderr, "collect:", err)
		return 1
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "collect",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting collection",
		"version", Version,
		"bbox", cfg.BBox.String(),
		"zoom", cfg.Zoom,
		"output_dir", cfg.OutputDir)

	if cfg.Metrics.Enabled {
		startMetricsListener(cfg.Metrics)
	}

	out, err := sink.New(appLog, cfg.OutputDir)
	if err != nil {
		appLog.Error("output setup failed", "err", err)
		return 1
	}

	client := tomtom.New(appLog, httpclient.NewOutbound(cfg.RequestTimeout), tomtom.Config{
		APIKey:         cfg.APIKey,
		FlowTileURL:    cfg.FlowTileURL,
		IncidentsURL:   cfg.IncidentsURL,
		FlowSegmentURL: cfg.FlowSegmentURL,
		Language:       cfg.IncidentLanguage,
	})

	// the run completes or is killed externally; mid-run cancellation is
	// not supported
	ctx := context.Background()

	col := collector.New(appLog, client, collector.Config{
		BBox:  cfg.BBox,
		Zoom:  cfg.Zoom,
		Delay: cfg.TileDelay,
	})
	fc, results := col.Run(ctx)

	if err := out.WriteJSON(sink.FlowGeoJSON, fc); err != nil {
		appLog.Error("write flow geojson failed", "err", err)
		return 1
	}
	records := make([]any, 0, len(fc.Features))
	for _, f := range fc.Features {
		records = append(records, f.Properties)
	}
	if err := out.WriteNDJSON(sink.FlowRecordsNDJSON, records); err != nil {
		appLog.Error("write flow records failed", "err", err)
		return 1
	}

	var skippedTiles int
	for _, r := range results {
		if r.Skip != collector.SkipNone {
			skippedTiles++
		}
	}
	appLog.Info("saved street segments",
		"features", len(fc.Features),
		"tiles", len(results),
		"tiles_skipped", skippedTiles)

	inc := incidents.New(appLog, client, cfg.BBox)
	incFC, incRaw, err := inc.Run(ctx)
	if err != nil {
		// degraded to zero incidents; outputs are still written
		appLog.Warn("incident collection degraded", "err", err)
	}
	if incRaw != nil {
		if err := out.WriteRawJSON(sink.IncidentsRawJSON, incRaw); err != nil {
			appLog.Error("write raw incidents failed", "err", err)
			return 1
		}
	}
	if err := out.WriteJSON(sink.IncidentsGeoJSON, incFC); err != nil {
		appLog.Error("write incidents geojson failed", "err", err)
		return 1
	}
	incRecords := make([]any, 0, len(incFC.Features))
	for _, f := range incFC.Features {
		incRecords = append(incRecords, f.Properties)
	}
	if err := out.WriteNDJSON(sink.IncidentsNDJSON, incRecords); err != nil {
		appLog.Error("write incident records failed", "err", err)
		return 1
	}

	summary, err := out.WriteSummary(cfg.Location, cfg.BBox, time.Now())
	if err != nil {
		appLog.Error("write summary failed", "err", err)
		return 1
	}
	var totalBytes int64
	for _, f := range summary.FilesCollected {
		totalBytes += f.SizeBytes
	}
	appLog.Info("collection done",
		"files", len(summary.FilesCollected),
		"total_bytes", totalBytes,
		"incidents", len(incFC.Features))
	return 0
}

// startMetricsListener exposes /metrics for the duration of the run; useful
// when the tile delay stretches a collection over several minutes.
func startMetricsListener(cfg config.MetricsCfg) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("metrics: listening on %s%s", cfg.Addr, cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}
