package geocode

import "context"

// Provider is a single geocoding backend. Query fetches raw matches for a
// search text and Normalize turns them into candidates using the provider's
// own vocabulary.
type Provider interface {
	Name() string
	Query(ctx context.Context, text string) ([]RawCandidate, error)
	Normalize(raw []RawCandidate) []Candidate
}
