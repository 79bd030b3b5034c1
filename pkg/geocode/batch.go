package geocode

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchForward resolves texts in parallel, bounded by the batch concurrency.
// results[i] belongs to texts[i]; unresolved entries are nil.
func (r *Resolver) BatchForward(ctx context.Context, texts []string) []*Candidate {
	if len(texts) == 0 {
		return nil
	}
	results := make([]*Candidate, len(texts))
	for i, res := range r.BatchLookup(ctx, texts) {
		results[i] = res.Candidate
	}
	return results
}

// BatchLookup is BatchForward with per-text completeness. Texts skipped
// because ctx ended are incomplete.
func (r *Resolver) BatchLookup(ctx context.Context, texts []string) []Resolution {
	if len(texts) == 0 {
		return nil
	}

	results := make([]Resolution, len(texts))

	var eg errgroup.Group
	eg.SetLimit(r.batchConcurrency)
	for i, text := range texts {
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = r.Lookup(ctx, text)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}
