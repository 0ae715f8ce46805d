// Package config loads collector configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/urbanpulse/traffic-collector/internal/model"
)

// ErrMissingAPIKey is the only fatal startup condition for the commands that
// talk to the provider: without a credential no collection can begin.
var ErrMissingAPIKey = errors.New("TOMTOM_API_KEY not set (environment or .env)")

type RenderCfg struct {
	BBox      model.BBox
	Width     int
	Height    int
	LineWidth float64
	Output    string
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	APIKey   string
	LogLevel string

	BBox     model.BBox
	Zoom     int
	Location string

	OutputDir string

	FlowTileURL    string
	IncidentsURL   string
	FlowSegmentURL string

	IncidentLanguage string

	RequestTimeout time.Duration
	TileDelay      time.Duration
	SampleDelay    time.Duration

	// MaxSamples bounds how many street features the sampler queries per run.
	// Zero means the whole input.
	MaxSamples int

	Render  RenderCfg
	Metrics MetricsCfg

	ServeAddr string
}

// Load reads configuration from the environment, consulting a .env file in
// the working directory when present. Defaults are applied for everything,
// including the API key: commands that call the provider must check
// RequireAPIKey before use.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIKey:   strings.TrimSpace(os.Getenv("TOMTOM_API_KEY")),
		LogLevel: getenv("LOG_LEVEL", "info"),

		BBox: model.BBox{
			MinLat: getfloat("BBOX_MIN_LAT", 47.10),
			MinLon: getfloat("BBOX_MIN_LON", 27.52),
			MaxLat: getfloat("BBOX_MAX_LAT", 47.22),
			MaxLon: getfloat("BBOX_MAX_LON", 27.66),
		},
		Zoom:     getint("ZOOM", 15),
		Location: getenv("LOCATION", "Iasi, Romania"),

		OutputDir: getenv("OUTPUT_DIR", "iasi_data_complete"),

		FlowTileURL:    getenv("FLOW_TILE_URL", "https://api.tomtom.com/traffic/map/4/tile/flow/relative"),
		IncidentsURL:   getenv("INCIDENTS_URL", "https://api.tomtom.com/traffic/services/5/incidentDetails"),
		FlowSegmentURL: getenv("FLOW_SEGMENT_URL", "https://api.tomtom.com/traffic/services/4/flowSegmentData/absolute/10/json"),

		IncidentLanguage: getenv("INCIDENT_LANGUAGE", "ro-RO"),

		RequestTimeout: getduration("REQUEST_TIMEOUT", 30*time.Second),
		TileDelay:      getduration("TILE_DELAY", 200*time.Millisecond),
		SampleDelay:    getduration("SAMPLE_DELAY", 200*time.Millisecond),

		MaxSamples: getint("MAX_SAMPLES", 0),

		Render: RenderCfg{
			BBox: model.BBox{
				MinLat: getfloat("RENDER_MIN_LAT", 47.0342),
				MinLon: getfloat("RENDER_MIN_LON", 27.5010),
				MaxLat: getfloat("RENDER_MAX_LAT", 47.2852),
				MaxLon: getfloat("RENDER_MAX_LON", 27.6943),
			},
			Width:     getint("RENDER_WIDTH", 5000),
			Height:    getint("RENDER_HEIGHT", 5000),
			LineWidth: getfloat("RENDER_LINE_WIDTH", 3),
			Output:    getenv("RENDER_OUTPUT", "traffic_visualization.png"),
		},

		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},

		ServeAddr: getenv("SERVE_ADDR", ":8090"),
	}
	return cfg, nil
}

// RequireAPIKey reports whether a provider credential was configured.
func (c Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
