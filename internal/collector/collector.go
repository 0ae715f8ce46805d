// Package collector drives tile enumeration, fetches each tile's encoded
// vector payload, decodes it into layers, reprojects geometry to geographic
// coordinates and accumulates a feature collection.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"

	"github.com/urbanpulse/traffic-collector/internal/model"
	"github.com/urbanpulse/traffic-collector/internal/observability"
	"github.com/urbanpulse/traffic-collector/internal/reproject"
	"github.com/urbanpulse/traffic-collector/internal/tilemath"
)

// TileSource fetches one tile's encoded vector payload.
type TileSource interface {
	FlowTile(ctx context.Context, tile model.TileIndex) ([]byte, error)
}

// SkipReason classifies why a tile contributed no features.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipTransport SkipReason = "transport"
	SkipDecode    SkipReason = "decode"
)

// TileResult is the outcome of one unit of work. A tile either succeeded
// (Skip empty) or was skipped with a reason; either way the run continues.
type TileResult struct {
	Tile              model.TileIndex
	Features          int
	SkippedGeometries int
	Skip              SkipReason
	Err               error
}

type Config struct {
	BBox model.BBox
	Zoom int

	// Delay is inserted after every tile regardless of outcome. It bounds
	// the request rate; it is not adaptive.
	Delay time.Duration
}

type Collector struct {
	logger *slog.Logger
	source TileSource
	cfg    Config

	now   func() time.Time
	sleep func(time.Duration)
}

func New(logger *slog.Logger, source TileSource, cfg Config) *Collector {
	return &Collector{
		logger: logger,
		source: source,
		cfg:    cfg,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Run collects every tile covering the configured bounding box. A failing
// tile is recorded and skipped; the run itself never fails, and an empty
// feature collection is still a valid result.
func (c *Collector) Run(ctx context.Context) (*geojson.FeatureCollection, []TileResult) {
	tiles := tilemath.TilesCovering(c.cfg.BBox, c.cfg.Zoom)
	c.logger.Info("collecting traffic flow tiles",
		"tiles", len(tiles),
		"zoom", c.cfg.Zoom,
		"bbox", c.cfg.BBox.String())

	fc := geojson.NewFeatureCollection()
	results := make([]TileResult, 0, len(tiles))

	for _, tile := range tiles {
		res := c.collectTile(ctx, tile, fc)
		results = append(results, res)

		switch res.Skip {
		case SkipNone:
			observability.ObserveTile("ok")
			observability.AddFeatures(res.Features)
		default:
			observability.ObserveTile(string(res.Skip))
			c.logger.Warn("tile skipped",
				"tile", tile.String(),
				"reason", string(res.Skip),
				"err", res.Err)
		}

		c.sleep(c.cfg.Delay)
	}

	c.logger.Info("flow collection done", "features", len(fc.Features))
	return fc, results
}

func (c *Collector) collectTile(ctx context.Context, tile model.TileIndex, fc *geojson.FeatureCollection) TileResult {
	res := TileResult{Tile: tile}

	payload, err := c.source.FlowTile(ctx, tile)
	if err != nil {
		res.Skip, res.Err = SkipTransport, err
		return res
	}

	layers, err := mvt.Unmarshal(payload)
	if err != nil {
		res.Skip, res.Err = SkipDecode, err
		return res
	}

	collected := c.now().Format(time.RFC3339)
	for _, layer := range layers {
		extent := layer.Extent
		if extent == 0 {
			extent = 4096
		}
		for _, raw := range layer.Features {
			geom, ok := reproject.Geometry(raw.Geometry, tile, extent)
			if !ok {
				res.SkippedGeometries++
				continue
			}

			f := geojson.NewFeature(geom)
			f.Properties = make(geojson.Properties, len(raw.Properties)+5)
			for k, v := range raw.Properties {
				f.Properties[k] = v
			}
			f.Properties["layer"] = layer.Name
			f.Properties["tile_x"] = tile.X
			f.Properties["tile_y"] = tile.Y
			f.Properties["tile_z"] = tile.Zoom
			f.Properties["timestamp"] = collected

			fc.Append(f)
			res.Features++
		}
	}
	return res
}
