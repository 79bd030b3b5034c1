package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geofence/internal/api"
	"github.com/sells-group/geofence/internal/config"
	"github.com/sells-group/geofence/internal/geocache"
	"github.com/sells-group/geofence/internal/guard"
	"github.com/sells-group/geofence/internal/metrics"
	"github.com/sells-group/geofence/pkg/geocode"
)

// geoEnv holds the assembled resolution chain and what it owns.
type geoEnv struct {
	Geocoder  api.Geocoder
	Providers []geocode.Provider
	Cache     *geocache.RedisStore
}

// Close releases the cache connection.
func (e *geoEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// initGeocoder assembles providers -> guard -> resolver -> cache from cfg.
func initGeocoder(ctx context.Context, c *config.Config) (*geoEnv, error) {
	metrics.Register()

	providers := buildProviders(c)
	if len(providers) == 0 {
		return nil, eris.New("no geocoding provider enabled")
	}

	resolver := geocode.NewResolver(providers,
		geocode.WithTimeout(time.Duration(c.Resolver.TimeoutSecs)*time.Second),
		geocode.WithBatchConcurrency(c.Resolver.BatchConcurrency),
	)

	env := &geoEnv{Geocoder: resolver, Providers: providers}
	if !c.Cache.Enabled {
		return env, nil
	}

	store, err := geocache.NewRedisStore(ctx, geocache.RedisOptions{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.Password,
		DB:       c.Cache.DB,
	})
	if err != nil {
		zap.L().Warn("cache unavailable, resolving without it", zap.Error(err))
		return env, nil
	}
	env.Cache = store
	env.Geocoder = geocache.New(resolver, store,
		geocache.WithTTL(time.Duration(c.Cache.TTLHours)*time.Hour),
		geocache.WithCounter(metrics.CacheTotal),
	)
	return env, nil
}

// buildProviders creates the enabled providers in priority order, wrapped by
// the guard when enabled.
func buildProviders(c *config.Config) []geocode.Provider {
	var providers []geocode.Provider

	if c.Places.Enabled {
		opts := []geocode.PlacesOption{}
		if c.Places.Limit > 0 {
			opts = append(opts, geocode.WithPlacesLimit(c.Places.Limit))
		}
		providers = append(providers, geocode.NewPlacesProvider(c.Places.BaseURL, c.Places.Token, opts...))
	}

	if c.Nominatim.Enabled {
		opts := []geocode.NominatimOption{}
		if c.Nominatim.BaseURL != "" {
			opts = append(opts, geocode.WithNominatimBaseURL(c.Nominatim.BaseURL))
		}
		if c.Nominatim.APIKey != "" {
			opts = append(opts, geocode.WithNominatimAPIKey(c.Nominatim.APIKey))
		}
		if c.Nominatim.UserAgent != "" {
			opts = append(opts, geocode.WithNominatimUserAgent(c.Nominatim.UserAgent))
		}
		if c.Nominatim.Limit > 0 {
			opts = append(opts, geocode.WithNominatimLimit(c.Nominatim.Limit))
		}
		providers = append(providers, geocode.NewNominatimProvider(opts...))
	}

	if !c.Guard.Enabled {
		return providers
	}

	settings := guard.Settings{
		RatePerSecond:    c.Guard.RateLimit,
		Burst:            1,
		MaxAttempts:      c.Guard.MaxAttempts,
		InitialBackoff:   time.Duration(c.Guard.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:       time.Duration(c.Guard.MaxBackoffMs) * time.Millisecond,
		FailureThreshold: c.Guard.FailureThreshold,
		ResetTimeout:     time.Duration(c.Guard.ResetTimeoutSecs) * time.Second,
	}
	for i, p := range providers {
		providers[i] = guard.Wrap(p, settings)
	}
	return providers
}
