// Package tilemath implements the Web-Mercator tiling transforms used to
// address provider vector tiles and to map tile-local pixel coordinates back
// to geographic coordinates.
package tilemath

import (
	"math"

	"github.com/urbanpulse/traffic-collector/internal/model"
)

// GeoToTile returns the tile containing the given point at the given zoom.
// Longitude scales linearly to [0, 2^zoom); latitude goes through the
// spherical Mercator transform ln(tan(lat) + sec(lat)). Indices truncate
// toward zero, which is floor for in-range coordinates.
func GeoToTile(lat, lon float64, zoom int) model.TileIndex {
	n := math.Exp2(float64(zoom))
	x := (lon + 180.0) / 360.0 * n
	latRad := lat * math.Pi / 180.0
	y := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	return model.TileIndex{Zoom: zoom, X: int(x), Y: int(y)}
}

// TilePixelToGeo maps a pixel position inside a tile's internal coordinate
// grid back to geographic coordinates. extent is the tile's declared
// resolution (commonly 4096 units per side, but read per tile).
func TilePixelToGeo(tile model.TileIndex, px, py float64, extent uint32) (lat, lon float64) {
	n := math.Exp2(float64(tile.Zoom))
	xNorm := (float64(tile.X) + px/float64(extent)) / n
	yNorm := (float64(tile.Y) + py/float64(extent)) / n
	lon = xNorm*360.0 - 180.0
	merc := math.Pi - 2.0*math.Pi*yNorm
	lat = math.Atan(math.Sinh(merc)) * 180.0 / math.Pi
	return lat, lon
}

// TilesCovering enumerates every tile intersecting the bounding box at the
// given zoom: the inclusive rectangular range between the two corner tiles.
// Increasing latitude maps to decreasing tile y, so the ranges reorder.
// A tile that only touches the box edge may be included; none intersecting
// the box is ever excluded.
func TilesCovering(bbox model.BBox, zoom int) []model.TileIndex {
	a := GeoToTile(bbox.MinLat, bbox.MinLon, zoom)
	b := GeoToTile(bbox.MaxLat, bbox.MaxLon, zoom)
	xMin, xMax := order(a.X, b.X)
	yMin, yMax := order(a.Y, b.Y)

	tiles := make([]model.TileIndex, 0, (xMax-xMin+1)*(yMax-yMin+1))
	for x := xMin; x <= xMax; x++ {
		for y := yMin; y <= yMax; y++ {
			tiles = append(tiles, model.TileIndex{Zoom: zoom, X: x, Y: y})
		}
	}
	return tiles
}

// TileBounds returns the geographic bounding box of a tile.
func TileBounds(tile model.TileIndex) model.BBox {
	const extent = 4096
	maxLat, minLon := TilePixelToGeo(tile, 0, 0, extent)
	minLat, maxLon := TilePixelToGeo(tile, extent, extent, extent)
	return model.BBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

func order(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
