package geocode

import "encoding/json"

// RawCandidate is a provider's untouched JSON record for one match. Only the
// provider that produced it knows its shape.
type RawCandidate = json.RawMessage

// Candidate is one normalized geocoding match.
type Candidate struct {
	Coordinate  Coordinate  `json:"coordinate" yaml:"coordinate"`
	DisplayName string      `json:"display_name" yaml:"display_name"`
	Granularity Granularity `json:"granularity" yaml:"granularity"`
	// RadiusMeters is nil when the provider gave nothing to estimate from.
	RadiusMeters *float64     `json:"radius_meters,omitempty" yaml:"radius_meters,omitempty"`
	Importance   float64      `json:"importance" yaml:"importance"`
	Source       string       `json:"source" yaml:"source"`
	Raw          RawCandidate `json:"-" yaml:"-"`
}

// Radius returns the estimated uncertainty radius and whether one is known.
func (c Candidate) Radius() (float64, bool) {
	if c.RadiusMeters == nil {
		return 0, false
	}
	return *c.RadiusMeters, true
}
