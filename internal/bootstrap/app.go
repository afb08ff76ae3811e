package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"efaktur-validator/internal/djp"
	"efaktur-validator/internal/extract"
	"efaktur-validator/internal/services/health"
	"efaktur-validator/internal/shared/config"
	"efaktur-validator/internal/shared/server"
	"efaktur-validator/internal/shared/storage/object"
	localstore "efaktur-validator/internal/shared/storage/object/local"
	s3store "efaktur-validator/internal/shared/storage/object/s3"
	"efaktur-validator/internal/shared/telemetry"
	"efaktur-validator/internal/validation"
)

// App holds process-wide dependencies built once at startup.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DJP               *djp.Client
	Reader            *extract.Reader
	Objects           object.Source
	ValidationService *validation.Service
	ValidationHandler *validation.Handler
	Health            *health.Service
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	djpClient, err := djp.NewClient(djp.Options{
		Timeout:      cfg.DJPTimeout,
		RetryMax:     cfg.DJPRetryMax,
		BaseURL:      cfg.DJPBaseURL,
		AllowedHosts: cfg.DJPAllowedHosts,
	})
	if err != nil {
		return nil, fmt.Errorf("build djp client: %w", err)
	}

	objects, err := buildObjects(ctx, cfg)
	if err != nil {
		djpClient.Close()
		return nil, err
	}

	reader := extract.NewReader(nil, cfg.OCRLanguages)
	if reader.OCRName() == "" {
		telemetry.Warn("ocr.unavailable", map[string]any{
			"impact": "jpeg uploads cannot be read; build with -tags tesseract",
		})
	}
	svc := validation.NewService(reader, djpClient, cfg.MaxUploadBytes)

	app := &App{
		Config:            cfg,
		DJP:               djpClient,
		Reader:            reader,
		Objects:           objects,
		ValidationService: svc,
		ValidationHandler: validation.NewHandler(svc, objects),
		Health:            health.NewService(cfg.Release),
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Health:            app.Health,
		ValidationHandler: app.ValidationHandler,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"ocr_engine":   reader.OCRName(),
		"djp_base_url": cfg.DJPBaseURL,
	})
	return app, nil
}

// Close releases resources held by the App.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.DJP != nil {
		a.DJP.Close()
	}
}

func buildObjects(ctx context.Context, cfg config.Config) (object.Source, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("build s3 object source: %w", err)
		}
		return store, nil
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}
