// Package geocode resolves location text and coordinates to a single best
// geocoding candidate across one or more providers.
package geocode

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 10

// Resolver queries providers, normalizes and ranks their matches. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	providers        []Provider
	timeout          time.Duration
	batchConcurrency int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTimeout bounds each Forward call. Zero leaves the caller's deadline alone.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBatchConcurrency sets the max parallel resolutions for BatchForward.
func WithBatchConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.batchConcurrency = n
		}
	}
}

// NewResolver creates a Resolver over providers, queried in the given order.
func NewResolver(providers []Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		providers:        providers,
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolution is the outcome of one forward lookup. Complete is false when a
// provider failed, timed out or was cancelled, so a nil Candidate does not
// prove the place is unknown.
type Resolution struct {
	Candidate *Candidate
	Complete  bool
}

// Forward geocodes text and returns the best candidate, or nil when the text
// is blank or no provider produced a usable match. Provider failures are
// logged and count as zero matches.
func (r *Resolver) Forward(ctx context.Context, text string) *Candidate {
	return r.Lookup(ctx, text).Candidate
}

// Lookup is Forward that also reports whether every provider answered.
// Blank text is complete with no candidate.
func (r *Resolver) Lookup(ctx context.Context, text string) Resolution {
	text = strings.TrimSpace(text)
	if text == "" {
		return Resolution{Complete: true}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	all, complete := r.candidates(ctx, text)
	best := PickBest(all)
	if best == nil {
		zap.L().Debug("geocode: no candidates", zap.String("query", text), zap.Bool("complete", complete))
	}
	return Resolution{Candidate: best, Complete: complete}
}

// Reverse describes coord by forward-geocoding its "lat,lon" text. When nothing
// matches it returns the coordinate formatted to six decimals.
func (r *Resolver) Reverse(ctx context.Context, coord Coordinate) string {
	if best := r.Forward(ctx, coord.Query()); best != nil && best.DisplayName != "" {
		return best.DisplayName
	}
	return coord.String()
}

// candidates collects normalized matches from every provider, in provider
// order, and reports whether all of them answered.
func (r *Resolver) candidates(ctx context.Context, text string) ([]Candidate, bool) {
	switch len(r.providers) {
	case 0:
		return nil, true
	case 1:
		return queryProvider(ctx, r.providers[0], text)
	}

	perProvider := make([][]Candidate, len(r.providers))
	answered := make([]bool, len(r.providers))
	var eg errgroup.Group
	for i, p := range r.providers {
		eg.Go(func() error {
			perProvider[i], answered[i] = queryProvider(ctx, p, text)
			return nil
		})
	}
	_ = eg.Wait()

	var all []Candidate
	complete := true
	for i, cs := range perProvider {
		all = append(all, cs...)
		complete = complete && answered[i]
	}
	return all, complete
}

func queryProvider(ctx context.Context, p Provider, text string) ([]Candidate, bool) {
	raw, err := p.Query(ctx, text)
	if err != nil {
		zap.L().Warn("geocode: provider unavailable",
			zap.String("provider", p.Name()),
			zap.String("query", text),
			zap.Error(err),
		)
		return nil, false
	}
	return p.Normalize(raw), true
}
