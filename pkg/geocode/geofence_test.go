package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithin(t *testing.T) {
	center := Coordinate{0, 0}
	assert.True(t, Within(center, 0, center))
	assert.True(t, Within(center, 112000, Coordinate{0, 1}))
	assert.False(t, Within(center, 110000, Coordinate{0, 1}))
}

func TestEvaluate_WidensByCandidateRadius(t *testing.T) {
	ref := Candidate{
		Coordinate:   Coordinate{Latitude: 0, Longitude: 0},
		Granularity:  GranularityNeighbourhood,
		RadiusMeters: meters(1000),
	}
	// ~1112m east of the reference.
	observed := Coordinate{Latitude: 0, Longitude: 0.01}

	f := Evaluate(ref, observed, 200)
	assert.InDelta(t, 1112, f.DistanceMeters, 1)
	assert.Equal(t, 1200.0, f.AllowedMeters)
	assert.True(t, f.Inside)

	f = Evaluate(ref, observed, 100)
	assert.False(t, f.Inside)
}

func TestEvaluate_UnknownRadiusUsesToleranceOnly(t *testing.T) {
	ref := Candidate{Coordinate: Coordinate{Latitude: 0, Longitude: 0}, Granularity: GranularityCountry}
	f := Evaluate(ref, Coordinate{Latitude: 0, Longitude: 0.01}, 500)
	assert.Equal(t, 500.0, f.AllowedMeters)
	assert.False(t, f.Inside)
	assert.Equal(t, ref.Coordinate, f.Reference)
}
