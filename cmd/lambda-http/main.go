package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"efaktur-validator/internal/bootstrap"
	"efaktur-validator/internal/shared/config"
	"efaktur-validator/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	if _, err := telemetry.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release); err != nil {
		telemetry.Warn("sentry.init_failed", map[string]any{"error": err.Error()})
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	ginLambda = ginadapter.NewV2(app.Router)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"error": initErr.Error()})
		body, _ := json.Marshal(map[string]any{
			"error": map[string]string{"code": "internal_error", "message": "bootstrap failed"},
		})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: 500,
			Body:       string(body),
			Headers:    map[string]string{"Content-Type": "application/json"},
		}, initErr
	}
	if ginLambda == nil {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: 500,
			Body:       `{"error":{"code":"internal_error","message":"router not initialized"}}`,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}, nil
	}
	resp, err := ginLambda.ProxyWithContext(ctx, req)
	telemetry.Sync()
	return resp, err
}

func main() {
	lambda.Start(handler)
}
