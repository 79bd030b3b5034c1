package geocode

import (
	"math"

	"github.com/twpayne/go-geom"
)

// tierRadiusMeters is the fallback uncertainty radius per tier for candidates
// without a bounding box. Country and unknown have no estimate.
var tierRadiusMeters = map[Granularity]float64{
	GranularityExact:         50,
	GranularityStreet:        200,
	GranularityNeighbourhood: 1000,
	GranularityCity:          5000,
	GranularityRegion:        50000,
}

// BoundingBox is a provider-reported extent, stored as XY (lon, lat) bounds.
type BoundingBox struct {
	bounds *geom.Bounds
}

// NewBoundingBox builds a box from its four edges. The bounds are grown from
// both corner points, so swapped edges still produce min <= max.
func NewBoundingBox(latMin, latMax, lonMin, lonMax float64) *BoundingBox {
	bounds := geom.NewBounds(geom.XY).
		Extend(geom.NewPointFlat(geom.XY, []float64{lonMin, latMin})).
		Extend(geom.NewPointFlat(geom.XY, []float64{lonMax, latMax}))
	return &BoundingBox{bounds: bounds}
}

// MinCorner returns the (latMin, lonMin) corner.
func (b *BoundingBox) MinCorner() Coordinate {
	return Coordinate{Latitude: b.bounds.Min(1), Longitude: b.bounds.Min(0)}
}

// MaxCorner returns the (latMax, lonMax) corner.
func (b *BoundingBox) MaxCorner() Coordinate {
	return Coordinate{Latitude: b.bounds.Max(1), Longitude: b.bounds.Max(0)}
}

// EstimateRadius returns the uncertainty radius for a candidate. A bounding box
// yields half its diagonal rounded to the nearest meter; without one the tier
// table applies. Nil means no estimate.
func EstimateRadius(bbox *BoundingBox, g Granularity) *float64 {
	if bbox != nil {
		r := math.Round(DistanceMeters(bbox.MinCorner(), bbox.MaxCorner()) / 2)
		return &r
	}
	if r, ok := tierRadiusMeters[g]; ok {
		return &r
	}
	return nil
}
