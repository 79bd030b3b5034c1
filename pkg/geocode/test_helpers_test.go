package geocode

import (
	"context"
	"sync/atomic"
)

// stubProvider implements Provider with canned candidates and counts queries.
type stubProvider struct {
	name       string
	candidates []Candidate
	err        error
	calls      atomic.Int32
	lastQuery  atomic.Value
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Query(ctx context.Context, text string) ([]RawCandidate, error) {
	s.calls.Add(1)
	s.lastQuery.Store(text)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	raw := make([]RawCandidate, len(s.candidates))
	for i := range s.candidates {
		raw[i] = RawCandidate(`{}`)
	}
	return raw, nil
}

func (s *stubProvider) Normalize(raw []RawCandidate) []Candidate {
	out := make([]Candidate, 0, len(raw))
	for i := range raw {
		c := s.candidates[i]
		c.Source = s.name
		out = append(out, c)
	}
	return out
}

func (s *stubProvider) query() string {
	q, _ := s.lastQuery.Load().(string)
	return q
}

func meters(v float64) *float64 { return &v }

func candidate(name string, g Granularity, radius *float64, importance float64) Candidate {
	return Candidate{
		DisplayName:  name,
		Granularity:  g,
		RadiusMeters: radius,
		Importance:   importance,
	}
}
