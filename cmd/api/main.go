package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"efaktur-validator/internal/bootstrap"
	"efaktur-validator/internal/shared/config"
	"efaktur-validator/internal/shared/server"
	"efaktur-validator/internal/shared/telemetry"
)

// @title e-Faktur Validation API
// @version 1.0
// @description Validates Indonesian e-Faktur tax invoices against the DJP validation service.
// @BasePath /api/v1

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 20 * time.Second
)

func main() {
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: telemetry.Logger()}
		}),
		fx.Provide(
			config.Load,
			provideApp,
		),
		fx.Invoke(
			registerSentry,
			startAPIServer,
		),
	)
	app.Run()
}

func provideApp(lc fx.Lifecycle, cfg config.Config) (*bootstrap.App, error) {
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			app.Close()
			telemetry.Sync()
			return nil
		},
	})
	return app, nil
}

func registerSentry(lc fx.Lifecycle, cfg config.Config) error {
	flush, err := telemetry.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		telemetry.Warn("sentry.init_failed", map[string]any{"error": err.Error()})
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			flush()
			return nil
		},
	})
	return nil
}

func startAPIServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, app *bootstrap.App) {
	srv := &http.Server{
		Addr:              server.Addr(app.Config.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			telemetry.Info("server.start", map[string]any{"addr": srv.Addr})
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					telemetry.Error("server.failed", map[string]any{"error": err.Error()})
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			telemetry.Info("server.stop", nil)
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}
