// Command melodiad serves the melody generator over HTTP.
//
// Configuration comes from MELODIA_* environment variables, optionally
// seeded from a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/katalvlaran/melodia/config"
	"github.com/katalvlaran/melodia/generator"
	"github.com/katalvlaran/melodia/server"
	"github.com/katalvlaran/melodia/store"
)

func main() {
	fx.New(options()).Run()
}

func options() fx.Option {
	return fx.Options(
		fx.Provide(
			func() (config.Config, error) { return config.Load() },
			func(cfg config.Config) (*zap.Logger, error) { return cfg.Logger() },
			NewGenerator,
			NewStore,
			NewServer,
			NewHTTPServer,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(func(*http.Server) {}),
	)
}

// NewGenerator builds the generator from the configuration.
func NewGenerator(cfg config.Config, log *zap.Logger) *generator.Generator {
	return generator.New(
		generator.WithVariants(cfg.Variants),
		generator.WithConcurrency(cfg.Concurrency),
		generator.WithLogger(log.Named("generator")),
	)
}

// NewStore opens the exercise cache and closes it on shutdown.
func NewStore(lc fx.Lifecycle, cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return st.Close() },
	})

	return st, nil
}

// NewServer builds the HTTP handler.
func NewServer(cfg config.Config, log *zap.Logger, gen *generator.Generator, st *store.Store) *server.Server {
	return server.New(log.Named("http"), gen, st, server.WithTempo(cfg.Tempo))
}

// NewHTTPServer binds the handler to the configured port.
func NewHTTPServer(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, h *server.Server) *http.Server {
	srv := &http.Server{Addr: cfg.Addr(), Handler: h}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting HTTP server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}
