// Package model defines core domain types shared across the collector.
package model

import "fmt"

// BBox is a geographic bounding box in WGS84 degrees.
type BBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// String renders the provider query form: minLon,minLat,maxLon,maxLat.
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// TileIndex addresses a Web-Mercator map tile. X and Y are in [0, 2^Zoom).
type TileIndex struct {
	Zoom int
	X    int
	Y    int
}

func (t TileIndex) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}
