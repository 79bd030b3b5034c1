package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geofence/internal/api"
	"github.com/sells-group/geofence/internal/guard"
	"github.com/sells-group/geofence/internal/resilience"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the geocoding HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initGeocoder(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", resolvePort(servePort, cfg.Server.Port)),
			Handler:           api.Router(api.NewServer(env.Geocoder, healthChecks(env)...), cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// healthChecks reports the cache connection and every provider circuit.
func healthChecks(env *geoEnv) []api.Option {
	var opts []api.Option
	if env.Cache != nil {
		opts = append(opts, api.WithHealthCheck("cache", env.Cache.Ping))
	}
	for _, p := range env.Providers {
		g, ok := p.(*guard.Provider)
		if !ok {
			continue
		}
		breaker := g.Breaker()
		opts = append(opts, api.WithHealthCheck(g.Name(), func(context.Context) error {
			if breaker.State() == resilience.Open {
				return resilience.ErrOpen
			}
			return nil
		}))
	}
	return opts
}
