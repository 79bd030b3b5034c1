// Package geocache caches forward geocoding results, including misses, in a
// key-value store such as Redis.
package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sells-group/geofence/pkg/geocode"
)

const (
	defaultTTL         = 7 * 24 * time.Hour
	defaultNegativeTTL = time.Hour
)

// store is the subset of RedisStore the resolver needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// lookuper is the resolver being cached. Completeness tells a real miss
// apart from a provider outage.
type lookuper interface {
	Lookup(ctx context.Context, text string) geocode.Resolution
	BatchLookup(ctx context.Context, texts []string) []geocode.Resolution
}

// entry is the stored form of one lookup. A nil Candidate records a miss.
type entry struct {
	Candidate *geocode.Candidate `json:"candidate"`
}

// Resolver caches Forward results of an inner resolver.
type Resolver struct {
	inner       lookuper
	store       store
	ttl         time.Duration
	negativeTTL time.Duration
	cacheTotal  *prometheus.CounterVec
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL sets how long matches are kept.
func WithTTL(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithNegativeTTL sets how long misses are kept.
func WithNegativeTTL(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.negativeTTL = d
		}
	}
}

// WithCounter records hits and misses on a counter vec with a "result" label.
func WithCounter(c *prometheus.CounterVec) Option {
	return func(r *Resolver) { r.cacheTotal = c }
}

// New wraps inner with a cache backed by s.
func New(inner lookuper, s store, opts ...Option) *Resolver {
	r := &Resolver{
		inner:       inner,
		store:       s,
		ttl:         defaultTTL,
		negativeTTL: defaultNegativeTTL,
	}
	for _, o := range opts {
		o(r)
	}
	if r.negativeTTL > r.ttl {
		r.negativeTTL = r.ttl
	}
	return r
}

// Forward returns the cached best candidate for text, resolving it on a miss.
// Only complete lookups are stored, so an outage is never remembered as
// "no such place". Cache failures fall through to the inner resolver.
func (r *Resolver) Forward(ctx context.Context, text string) *geocode.Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	key := cacheKey(text)
	if c, ok := r.lookup(ctx, key); ok {
		return c
	}
	res := r.inner.Lookup(ctx, text)
	r.saveIfComplete(ctx, key, res)
	return res.Candidate
}

// Reverse describes coord using the cached forward lookup of its query form,
// falling back to the formatted coordinate.
func (r *Resolver) Reverse(ctx context.Context, coord geocode.Coordinate) string {
	if c := r.Forward(ctx, coord.Query()); c != nil && c.DisplayName != "" {
		return c.DisplayName
	}
	return coord.String()
}

// BatchForward serves what it can from the cache and resolves the rest in a
// single inner batch. Output order matches texts.
func (r *Resolver) BatchForward(ctx context.Context, texts []string) []*geocode.Candidate {
	out := make([]*geocode.Candidate, len(texts))
	keys := make([]string, len(texts))

	var pending []string
	var pendingIdx []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		keys[i] = cacheKey(text)
		if c, ok := r.lookup(ctx, keys[i]); ok {
			out[i] = c
			continue
		}
		pending = append(pending, text)
		pendingIdx = append(pendingIdx, i)
	}
	if len(pending) == 0 {
		return out
	}

	resolved := r.inner.BatchLookup(ctx, pending)
	for j, i := range pendingIdx {
		out[i] = resolved[j].Candidate
		r.saveIfComplete(ctx, keys[i], resolved[j])
	}
	return out
}

func (r *Resolver) lookup(ctx context.Context, key string) (*geocode.Candidate, bool) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			zap.L().Warn("geocache: get failed", zap.String("key", shortKey(key)), zap.Error(err))
		}
		r.count("miss")
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		zap.L().Warn("geocache: corrupt entry", zap.String("key", shortKey(key)), zap.Error(err))
		r.count("miss")
		return nil, false
	}

	r.count("hit")
	zap.L().Debug("geocache: hit", zap.String("key", shortKey(key)), zap.Bool("matched", e.Candidate != nil))
	return e.Candidate, true
}

func (r *Resolver) saveIfComplete(ctx context.Context, key string, res geocode.Resolution) {
	if !res.Complete || ctx.Err() != nil {
		zap.L().Debug("geocache: not storing incomplete lookup", zap.String("key", shortKey(key)))
		return
	}
	r.save(ctx, key, res.Candidate)
}

func (r *Resolver) save(ctx context.Context, key string, c *geocode.Candidate) {
	data, err := json.Marshal(entry{Candidate: c})
	if err != nil {
		zap.L().Warn("geocache: encode failed", zap.String("key", shortKey(key)), zap.Error(err))
		return
	}
	ttl := r.ttl
	if c == nil {
		ttl = r.negativeTTL
	}
	if err := r.store.Set(ctx, key, data, ttl); err != nil {
		zap.L().Warn("geocache: set failed", zap.String("key", shortKey(key)), zap.Error(err))
	}
}

func (r *Resolver) count(result string) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues(result).Inc()
	}
}

func shortKey(key string) string {
	key = strings.TrimPrefix(key, keyPrefix)
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
