// Package reproject rewrites tile-pixel geometry into geographic geometry.
package reproject

import (
	"github.com/paulmach/orb"

	"github.com/urbanpulse/traffic-collector/internal/model"
	"github.com/urbanpulse/traffic-collector/internal/tilemath"
)

// Geometry converts every coordinate pair of g from the tile's internal pixel
// grid to geographic coordinates, preserving nesting structure exactly.
// It reports ok=false for a nil or unsupported geometry; callers skip that
// feature rather than aborting the batch.
func Geometry(g orb.Geometry, tile model.TileIndex, extent uint32) (orb.Geometry, bool) {
	switch geom := g.(type) {
	case orb.Point:
		return point(geom, tile, extent), true
	case orb.LineString:
		return lineString(geom, tile, extent), true
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(geom))
		for i, ls := range geom {
			out[i] = lineString(ls, tile, extent)
		}
		return out, true
	case orb.Polygon:
		out := make(orb.Polygon, len(geom))
		for i, ring := range geom {
			out[i] = orb.Ring(lineString(orb.LineString(ring), tile, extent))
		}
		return out, true
	default:
		return nil, false
	}
}

func point(p orb.Point, tile model.TileIndex, extent uint32) orb.Point {
	lat, lon := tilemath.TilePixelToGeo(tile, p[0], p[1], extent)
	return orb.Point{lon, lat}
}

func lineString(ls orb.LineString, tile model.TileIndex, extent uint32) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = point(p, tile, extent)
	}
	return out
}
