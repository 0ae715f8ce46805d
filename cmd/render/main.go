// Command render draws the collected street features onto a congestion-colored
// raster canvas and writes it as a PNG.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/urbanpulse/traffic-collector/internal/config"
	"github.com/urbanpulse/traffic-collector/internal/logger"
	"github.com/urbanpulse/traffic-collector/internal/render"
	"github.com/urbanpulse/traffic-collector/internal/sink"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	inputFlag := flag.String("input", "", "input GeoJSON file name inside the output directory")
	outputFlag := flag.String("output", "", "output PNG path (overrides RENDER_OUTPUT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		return 1
	}
	input := sink.FlowGeoJSON
	if *inputFlag != "" {
		input = *inputFlag
	}
	output := cfg.Render.Output
	if *outputFlag != "" {
		output = *outputFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "render",
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

	r := render.New(appLog, render.Config{
		BBox:      cfg.Render.BBox,
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		LineWidth: cfg.Render.LineWidth,
	})
	img, segments := r.Render(fc)
	if err := r.Save(img, output); err != nil {
		appLog.Error("saving image failed", "path", output, "err", err)
		return 1
	}

	appLog.Info("visualization saved", "path", output, "segments", segments)
	return 0
}
