package tilemath

import (
	"math"
	"testing"

	"github.com/urbanpulse/traffic-collector/internal/model"
)

func TestGeoToTile_KnownAnchors(t *testing.T) {
	cases := []struct {
		lat, lon float64
		zoom     int
		want     model.TileIndex
	}{
		{0, 0, 0, model.TileIndex{Zoom: 0, X: 0, Y: 0}},
		{0.1, 0.1, 1, model.TileIndex{Zoom: 1, X: 1, Y: 0}},
		{-0.1, -0.1, 1, model.TileIndex{Zoom: 1, X: 0, Y: 1}},
		{85, 179.9, 2, model.TileIndex{Zoom: 2, X: 3, Y: 0}},
		{-85, -179.9, 2, model.TileIndex{Zoom: 2, X: 0, Y: 3}},
	}
	for _, c := range cases {
		got := GeoToTile(c.lat, c.lon, c.zoom)
		if got != c.want {
			t.Fatalf("GeoToTile(%v,%v,%d) = %v, want %v", c.lat, c.lon, c.zoom, got, c.want)
		}
	}
}

func TestGeoToTile_TruncatesNotRounds(t *testing.T) {
	// A point just shy of a tile boundary must stay in the lower tile even
	// when the fractional part exceeds 0.5.
	zoom := 4
	n := math.Exp2(float64(zoom))
	lon := (14.9/n)*360.0 - 180.0
	got := GeoToTile(0, lon, zoom)
	if got.X != 14 {
		t.Fatalf("x = %d, want 14 (truncation, not rounding)", got.X)
	}
}

func TestRoundTrip_MidpointWithinOneTile(t *testing.T) {
	points := []struct{ lat, lon float64 }{
		{47.16, 27.58},
		{47.10, 27.52},
		{-33.87, 151.21},
		{59.33, 18.06},
	}
	for _, p := range points {
		for _, zoom := range []int{10, 15, 18} {
			tile := GeoToTile(p.lat, p.lon, zoom)
			lat2, lon2 := TilePixelToGeo(tile, 2048, 2048, 4096)

			// the recovered point must land in the same tile
			if got := GeoToTile(lat2, lon2, zoom); got != tile {
				t.Fatalf("round trip left tile: %v -> %v", tile, got)
			}
			tileWidth := 360.0 / math.Exp2(float64(zoom))
			if math.Abs(lon2-p.lon) > tileWidth {
				t.Fatalf("lon drift %v exceeds tile width %v", math.Abs(lon2-p.lon), tileWidth)
			}
			b := TileBounds(tile)
			if math.Abs(lat2-p.lat) > (b.MaxLat-b.MinLat)+1e-9 {
				t.Fatalf("lat drift %v exceeds tile height %v", math.Abs(lat2-p.lat), b.MaxLat-b.MinLat)
			}
		}
	}
}

func TestTilesCovering_PointBBoxIsSingleTile(t *testing.T) {
	bb := model.BBox{MinLat: 47.16, MinLon: 27.58, MaxLat: 47.16, MaxLon: 27.58}
	tiles := TilesCovering(bb, 15)
	if len(tiles) != 1 {
		t.Fatalf("tiles = %d, want 1", len(tiles))
	}
	if want := GeoToTile(47.16, 27.58, 15); tiles[0] != want {
		t.Fatalf("tile = %v, want %v", tiles[0], want)
	}
}

func TestTilesCovering_TwoAdjacentTilesInX(t *testing.T) {
	zoom := 15
	base := GeoToTile(47.16, 27.58, zoom)
	// centers of two horizontally adjacent tiles, same latitude row
	lat, lonA := TilePixelToGeo(base, 2048, 2048, 4096)
	_, lonB := TilePixelToGeo(model.TileIndex{Zoom: zoom, X: base.X + 1, Y: base.Y}, 2048, 2048, 4096)

	bb := model.BBox{MinLat: lat, MinLon: lonA, MaxLat: lat, MaxLon: lonB}
	tiles := TilesCovering(bb, zoom)
	if len(tiles) != 2 {
		t.Fatalf("tiles = %d, want exactly 2", len(tiles))
	}
	for _, tl := range tiles {
		if tl.Y != base.Y {
			t.Fatalf("unexpected row %d, want %d", tl.Y, base.Y)
		}
	}
}

func TestTilesCovering_CoversFullRectangle(t *testing.T) {
	// Iasi bounding box at zoom 15 must produce the full inclusive grid.
	bb := model.BBox{MinLat: 47.10, MinLon: 27.52, MaxLat: 47.22, MaxLon: 27.66}
	zoom := 15
	a := GeoToTile(bb.MinLat, bb.MinLon, zoom)
	b := GeoToTile(bb.MaxLat, bb.MaxLon, zoom)
	cols := abs(b.X-a.X) + 1
	rows := abs(b.Y-a.Y) + 1

	tiles := TilesCovering(bb, zoom)
	if len(tiles) != cols*rows {
		t.Fatalf("tiles = %d, want %d (%dx%d)", len(tiles), cols*rows, cols, rows)
	}
	seen := map[model.TileIndex]bool{}
	for _, tl := range tiles {
		if seen[tl] {
			t.Fatalf("duplicate tile %v", tl)
		}
		seen[tl] = true
	}
}

func TestTileBounds_ContainsCenter(t *testing.T) {
	tile := GeoToTile(47.16, 27.58, 15)
	b := TileBounds(tile)
	lat, lon := TilePixelToGeo(tile, 2048, 2048, 4096)
	if !b.Contains(lat, lon) {
		t.Fatalf("center (%v,%v) outside bounds %+v", lat, lon, b)
	}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		t.Fatalf("degenerate bounds %+v", b)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
