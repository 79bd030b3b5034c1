// Package guard decorates geocoding providers with rate limiting, circuit
// breaking, retries and request metrics.
package guard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geofence/internal/metrics"
	"github.com/sells-group/geofence/internal/resilience"
	"github.com/sells-group/geofence/pkg/geocode"
)

// Settings controls a guarded provider. Zero values fall back to the
// resilience package defaults; a zero RatePerSecond disables rate limiting.
type Settings struct {
	RatePerSecond    float64
	Burst            int
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Provider wraps a geocode.Provider. Normalize is passed through untouched.
type Provider struct {
	inner   geocode.Provider
	limiter *AdaptiveLimiter
	breaker *resilience.Breaker
	backoff resilience.Backoff
}

var _ geocode.Provider = (*Provider)(nil)

// Wrap decorates p according to s.
func Wrap(p geocode.Provider, s Settings) *Provider {
	name := p.Name()
	g := &Provider{inner: p}

	if s.RatePerSecond > 0 {
		g.limiter = NewAdaptiveLimiter(s.RatePerSecond, s.Burst)
	}

	g.breaker = resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: s.FailureThreshold,
		ResetTimeout:     s.ResetTimeout,
		Counts:           countsAsFailure,
		OnStateChange: func(from, to resilience.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			zap.L().Warn("guard: circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	logRetry := resilience.LogRetry(name)
	g.backoff = resilience.Backoff{
		MaxAttempts: s.MaxAttempts,
		Initial:     s.InitialBackoff,
		Max:         s.MaxBackoff,
		Jitter:      0.2,
		Retryable:   Retryable,
		OnRetry: func(attempt int, err error) {
			metrics.ProviderRetriesTotal.WithLabelValues(name).Inc()
			logRetry(attempt, err)
		},
	}
	return g
}

// Name returns the wrapped provider's name.
func (g *Provider) Name() string { return g.inner.Name() }

// Normalize delegates to the wrapped provider.
func (g *Provider) Normalize(raw []geocode.RawCandidate) []geocode.Candidate {
	return g.inner.Normalize(raw)
}

// Breaker exposes the circuit breaker for health reporting.
func (g *Provider) Breaker() *resilience.Breaker { return g.breaker }

// Query runs the wrapped Query through the breaker and retry loop, waiting on
// the rate limiter before every attempt.
func (g *Provider) Query(ctx context.Context, text string) ([]geocode.RawCandidate, error) {
	name := g.inner.Name()
	start := time.Now()

	raw, err := resilience.Call(ctx, g.breaker, func(ctx context.Context) ([]geocode.RawCandidate, error) {
		return resilience.Retry(ctx, g.backoff, func(ctx context.Context) ([]geocode.RawCandidate, error) {
			return g.attempt(ctx, text)
		})
	})

	metrics.ProviderRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, resilience.ErrOpen):
		metrics.ProviderRequestsTotal.WithLabelValues(name, "rejected").Inc()
		return nil, eris.Wrapf(err, "guard: %s", name)
	case err != nil:
		metrics.ProviderRequestsTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	metrics.ProviderRequestsTotal.WithLabelValues(name, "ok").Inc()
	return raw, nil
}

func (g *Provider) attempt(ctx context.Context, text string) ([]geocode.RawCandidate, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	raw, err := g.inner.Query(ctx, text)
	if g.limiter != nil {
		var se *geocode.StatusError
		switch {
		case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
			g.limiter.OnThrottled(g.inner.Name())
		case err == nil:
			g.limiter.OnSuccess()
		}
	}
	return raw, err
}

// Retryable reports whether a provider error is worth another attempt: a
// transient status code or a transient network condition.
func Retryable(err error) bool {
	var se *geocode.StatusError
	if errors.As(err, &se) {
		return resilience.IsTransientStatus(se.StatusCode)
	}
	return resilience.IsTransient(err)
}

// countsAsFailure keeps client-side problems such as 4xx answers and caller
// cancellation from opening the circuit.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *geocode.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}
