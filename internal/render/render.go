// Package render draws collected street segments onto a fixed-size canvas,
// colored by congestion level, and writes the result as a PNG.
//
// The canvas projection is a plain linear rescale of the bounding box, on
// purpose: it places already-geographic points onto an arbitrary canvas and
// is not meant to agree with the Web-Mercator tile projection.
package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/urbanpulse/traffic-collector/internal/model"
)

var (
	colorGreen  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorYellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	colorOrange = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	colorRed    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

type Config struct {
	BBox      model.BBox
	Width     int
	Height    int
	LineWidth float64
}

// GeoToPixel linearly rescales a geographic point to canvas pixels, latitude
// inverted so north is at the top. The result may lie outside the canvas.
func GeoToPixel(lat, lon float64, bbox model.BBox, width, height int) (x, y int) {
	normLon := (lon - bbox.MinLon) / (bbox.MaxLon - bbox.MinLon)
	normLat := (lat - bbox.MinLat) / (bbox.MaxLat - bbox.MinLat)
	x = int(normLon * float64(width))
	y = int((1 - normLat) * float64(height))
	return x, y
}

// ColorForLevel maps a congestion level to its bucket color. The level is
// clamped into [0,1]; boundary values belong to the higher bucket.
func ColorForLevel(level float64) color.RGBA {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	switch {
	case level >= 0.7:
		return colorGreen
	case level >= 0.5:
		return colorYellow
	case level >= 0.3:
		return colorOrange
	default:
		return colorRed
	}
}

// Segment is one drawable street polyline in canvas coordinates.
type Segment struct {
	Points []image.Point
	Color  color.RGBA
}

// LoadSegments converts street features to pixel segments. Points outside
// the canvas are dropped individually, which can shorten but not relocate a
// line; segments left with fewer than two points are discarded.
func LoadSegments(fc *geojson.FeatureCollection, cfg Config) []Segment {
	var segments []Segment
	for _, f := range fc.Features {
		level := 0.5
		if v, ok := f.Properties["traffic_level"].(float64); ok {
			level = v
		}
		col := ColorForLevel(level)

		var lines []orb.LineString
		switch geom := f.Geometry.(type) {
		case orb.LineString:
			lines = []orb.LineString{geom}
		case orb.MultiLineString:
			lines = geom
		default:
			continue
		}

		for _, line := range lines {
			points := make([]image.Point, 0, len(line))
			for _, p := range line {
				x, y := GeoToPixel(p[1], p[0], cfg.BBox, cfg.Width, cfg.Height)
				if x >= 0 && x < cfg.Width && y >= 0 && y < cfg.Height {
					points = append(points, image.Point{X: x, Y: y})
				}
			}
			if len(points) > 1 {
				segments = append(segments, Segment{Points: points, Color: col})
			}
		}
	}
	return segments
}

type Renderer struct {
	logger *slog.Logger
	cfg    Config
}

func New(logger *slog.Logger, cfg Config) *Renderer {
	return &Renderer{logger: logger, cfg: cfg}
}

// Render draws every segment plus the legend onto a black canvas and returns
// the image together with the number of drawn segments.
func (r *Renderer) Render(fc *geojson.FeatureCollection) (image.Image, int) {
	segments := LoadSegments(fc, r.cfg)
	r.logger.Info("rendering", "segments", len(segments))

	dc := gg.NewContext(r.cfg.Width, r.cfg.Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetLineWidth(r.cfg.LineWidth)
	lines := 0
	for _, seg := range segments {
		dc.SetColor(seg.Color)
		for i := 0; i+1 < len(seg.Points); i++ {
			a, b := seg.Points[i], seg.Points[i+1]
			dc.DrawLine(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y))
			dc.Stroke()
			lines++
		}
	}

	drawLegend(dc, len(segments))

	r.logger.Info("rendered", "lines", lines, "segments", len(segments))
	return dc.Image(), len(segments)
}

func drawLegend(dc *gg.Context, segmentCount int) {
	entries := []struct {
		text string
		col  color.RGBA
	}{
		{"RED: Heavy (0.0-0.3)", colorRed},
		{"ORANGE: Moderate (0.3-0.5)", colorOrange},
		{"YELLOW: Light (0.5-0.7)", colorYellow},
		{"GREEN: Free flow (0.7-1.0)", colorGreen},
		{fmt.Sprintf("Segments: %d", segmentCount), colorWhite},
	}
	y := 30.0
	for _, e := range entries {
		dc.SetColor(e.col)
		dc.DrawString(e.text, 20, y)
		y += 40
	}
}

// Save writes the rendered image as a PNG file.
func (r *Renderer) Save(img image.Image, path string) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	return nil
}
