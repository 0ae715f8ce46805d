// Package incidents collects traffic incident reports (accidents, closures,
// roadwork) through a single bounding-box query.
package incidents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/urbanpulse/traffic-collector/internal/model"
	"github.com/urbanpulse/traffic-collector/internal/observability"
)

// Source runs the provider's incident query for a bounding box.
type Source interface {
	Incidents(ctx context.Context, bbox model.BBox) ([]byte, error)
}

type Collector struct {
	logger *slog.Logger
	source Source
	bbox   model.BBox

	now func() time.Time
}

func New(logger *slog.Logger, source Source, bbox model.BBox) *Collector {
	return &Collector{logger: logger, source: source, bbox: bbox, now: time.Now}
}

// document is the shape of the provider's incident response.
type document struct {
	Incidents []struct {
		Type       string            `json:"type"`
		Geometry   *geojson.Geometry `json:"geometry"`
		Properties map[string]any    `json:"properties"`
	} `json:"incidents"`
}

// Run fetches and reshapes incidents into the feature-collection convention.
// The source returns one atomic payload, so any failure degrades to zero
// incidents: the returned collection is never nil and err is advisory only.
// raw is the unmodified provider document for persistence.
func (c *Collector) Run(ctx context.Context) (fc *geojson.FeatureCollection, raw []byte, err error) {
	fc = geojson.NewFeatureCollection()

	raw, err = c.source.Incidents(ctx, c.bbox)
	if err != nil {
		c.logger.Warn("incident collection failed", "err", err)
		return fc, nil, fmt.Errorf("fetch incidents: %w", err)
	}

	var doc document
	if err = json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn("incident payload not parseable", "err", err)
		return fc, raw, fmt.Errorf("decode incidents: %w", err)
	}

	collected := c.now().Format(time.RFC3339)
	for _, inc := range doc.Incidents {
		if inc.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(inc.Geometry.Geometry())
		f.Properties = make(geojson.Properties, len(inc.Properties)+1)
		for k, v := range inc.Properties {
			f.Properties[k] = v
		}
		f.Properties["timestamp"] = collected
		fc.Append(f)
	}

	observability.AddIncidents(len(fc.Features))
	c.logger.Info("incidents collected", "count", len(fc.Features))
	return fc, raw, nil
}
