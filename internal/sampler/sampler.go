// Package sampler queries point telemetry for previously collected street
// features, one representative point per feature.
package sampler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/urbanpulse/traffic-collector/internal/observability"
)

// PointSource queries the flow segment endpoint for one coordinate.
type PointSource interface {
	FlowSegment(ctx context.Context, lat, lon float64) ([]byte, error)
}

// SampleRecord pairs a query point with the provider's raw response. Records
// are independent; the query point is the only link back to the feature.
type SampleRecord struct {
	QueryTimestamp string          `json:"query_timestamp"`
	QueryLat       float64         `json:"query_lat"`
	QueryLon       float64         `json:"query_lon"`
	RawResponse    json.RawMessage `json:"tomtom_raw_response"`
}

type Config struct {
	// MaxSamples bounds the run to a prefix of the input features.
	// Zero samples everything.
	MaxSamples int

	// Delay is inserted after every queried feature regardless of outcome.
	Delay time.Duration
}

type Sampler struct {
	logger *slog.Logger
	source PointSource
	cfg    Config

	now   func() time.Time
	sleep func(time.Duration)
}

func New(logger *slog.Logger, source PointSource, cfg Config) *Sampler {
	return &Sampler{
		logger: logger,
		source: source,
		cfg:    cfg,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// MidpointOf picks the representative query point of a street geometry: the
// coordinate at floor(len/2) of a LineString (for a MultiLineString, of the
// first sub-line). Geometry storage is lon/lat; the returned order is lat/lon
// as the point endpoint expects.
func MidpointOf(g orb.Geometry) (lat, lon float64, ok bool) {
	switch geom := g.(type) {
	case orb.LineString:
		return midpoint(geom)
	case orb.MultiLineString:
		if len(geom) == 0 {
			return 0, 0, false
		}
		return midpoint(geom[0])
	case orb.Point:
		return geom[1], geom[0], true
	default:
		return 0, 0, false
	}
}

func midpoint(ls orb.LineString) (lat, lon float64, ok bool) {
	if len(ls) == 0 {
		return 0, 0, false
	}
	p := ls[len(ls)/2]
	return p[1], p[0], true
}

// Run samples each feature in order. Per-feature failures are independent:
// a failed query is logged and skipped, never aborting the batch.
func (s *Sampler) Run(ctx context.Context, features []*geojson.Feature) []SampleRecord {
	total := len(features)
	if s.cfg.MaxSamples > 0 && s.cfg.MaxSamples < total {
		features = features[:s.cfg.MaxSamples]
	}
	s.logger.Info("sampling street segments", "total", total, "sampling", len(features))

	records := make([]SampleRecord, 0, len(features))
	for i, f := range features {
		lat, lon, ok := MidpointOf(f.Geometry)
		if !ok {
			observability.ObserveSample("geometry_skip")
			continue
		}

		s.logger.Debug("querying segment", "index", i+1, "lat", lat, "lon", lon)
		raw, err := s.source.FlowSegment(ctx, lat, lon)
		if err != nil {
			observability.ObserveSample("error")
			s.logger.Warn("segment query failed", "lat", lat, "lon", lon, "err", err)
			s.sleep(s.cfg.Delay)
			continue
		}

		records = append(records, SampleRecord{
			QueryTimestamp: s.now().Format(time.RFC3339),
			QueryLat:       lat,
			QueryLon:       lon,
			RawResponse:    raw,
		})
		observability.ObserveSample("ok")
		s.sleep(s.cfg.Delay)
	}

	s.logger.Info("sampling done", "records", len(records))
	return records
}
