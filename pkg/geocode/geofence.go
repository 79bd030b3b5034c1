package geocode

// Fence is the outcome of checking an observed position against a reference.
type Fence struct {
	Reference      Coordinate `json:"reference" yaml:"reference"`
	Observed       Coordinate `json:"observed" yaml:"observed"`
	DistanceMeters float64    `json:"distance_meters" yaml:"distance_meters"`
	AllowedMeters  float64    `json:"allowed_meters" yaml:"allowed_meters"`
	Inside         bool       `json:"inside" yaml:"inside"`
}

// Within reports whether point lies within radiusMeters of center.
func Within(center Coordinate, radiusMeters float64, point Coordinate) bool {
	return DistanceMeters(center, point) <= radiusMeters
}

// Evaluate checks observed against a resolved reference. The allowed distance
// is toleranceMeters widened by the reference's own uncertainty radius, when
// known. What an outside result means is up to the caller.
func Evaluate(reference Candidate, observed Coordinate, toleranceMeters float64) Fence {
	allowed := toleranceMeters
	if r, ok := reference.Radius(); ok {
		allowed += r
	}
	d := DistanceMeters(reference.Coordinate, observed)
	return Fence{
		Reference:      reference.Coordinate,
		Observed:       observed,
		DistanceMeters: d,
		AllowedMeters:  allowed,
		Inside:         d <= allowed,
	}
}
