// Command sample reads a previously collected street feature collection and
// queries the flow segment endpoint for each feature's midpoint, persisting
// the raw responses as a timestamped NDJSON/JSON pair plus run metadata.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urbanpulse/traffic-collector/internal/config"
	"github.com/urbanpulse/traffic-collector/internal/httpclient"
	"github.com/urbanpulse/traffic-collector/internal/logger"
	"github.com/urbanpulse/traffic-collector/internal/sampler"
	"github.com/urbanpulse/traffic-collector/internal/sink"
	"github.com/urbanpulse/traffic-collector/internal/tomtom"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	maxFlag := flag.Int("max", -1, "max features to sample (overrides MAX_SAMPLES; 0 = all)")
	inputFlag := flag.String("input", "", "input GeoJSON file name inside the output directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "sample:", err)
		return 1
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintln(os.Stderr, "sample:", err)
		return 1
	}
	if *maxFlag >= 0 {
		cfg.MaxSamples = *maxFlag
	}
	input := sink.FlowGeoJSON
	if *inputFlag != "" {
		input = *inputFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "sample",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	out, err := sink.New(appLog, cfg.OutputDir)
	if err != nil {
		appLog.Error("output setup failed", "err", err)
		return 1
	}

	fc, err := out.ReadFeatureCollection(input)
	if err != nil {
		appLog.Error("reading input collection failed", "file", input, "err", err)
		return 1
	}
	appLog.Info("input loaded", "file", input, "features", len(fc.Features))

	client := tomtom.New(appLog, httpclient.NewOutbound(cfg.RequestTimeout), tomtom.Config{
		APIKey:         cfg.APIKey,
		FlowSegmentURL: cfg.FlowSegmentURL,
	})

	s := sampler.New(appLog, client, sampler.Config{
		MaxSamples: cfg.MaxSamples,
		Delay:      cfg.SampleDelay,
	})
	records := s.Run(context.Background(), fc.Features)

	ts := time.Now()
	ndjsonName, jsonName, metadataName := sink.FlowDataNames(ts)

	asAny := make([]any, 0, len(records))
	for _, r := range records {
		asAny = append(asAny, r)
	}
	if err := out.WriteNDJSON(ndjsonName, asAny); err != nil {
		appLog.Error("write ndjson failed", "err", err)
		return 1
	}
	if err := out.WriteJSON(jsonName, records); err != nil {
		appLog.Error("write json failed", "err", err)
		return 1
	}
	if err := out.WriteJSON(metadataName, sink.NewRunMetadata(ts, len(records), input)); err != nil {
		appLog.Error("write metadata failed", "err", err)
		return 1
	}

	appLog.Info("sampling run done",
		"records", len(records),
		"ndjson", ndjsonName,
		"json", jsonName,
		"metadata", metadataName)
	return 0
}
