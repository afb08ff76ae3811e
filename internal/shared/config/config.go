package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string `validate:"required"`
	Env             string `validate:"oneof=dev local staging production"`
	LogLevel        string
	CORSAllowOrigin []string

	MaxUploadBytes int64 `validate:"gt=0"`

	DJPTimeout      time.Duration `validate:"gt=0"`
	DJPRetryMax     int           `validate:"gte=0,lte=5"`
	DJPBaseURL      string        `validate:"omitempty,url"`
	DJPAllowedHosts []string      `validate:"min=1"`

	OCRLanguages []string

	ObjectStoreType string `validate:"oneof=none local s3"`
	LocalStoreDir   string `validate:"required_if=ObjectStoreType local"`
	AWSRegion       string
	S3Bucket        string `validate:"required_if=ObjectStoreType s3"`
	S3Prefix        string

	SentryDSN string
	Release   string

	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=0"`
}

const defaultMaxUploadBytes = 10 << 20 // 10MB

var defaults = map[string]any{
	"PORT":               "8080",
	"ENV":                "dev",
	"LOG_LEVEL":          "info",
	"CORS_ALLOW_ORIGINS": "http://localhost:5173",
	"MAX_UPLOAD_BYTES":   defaultMaxUploadBytes,
	"DJP_TIMEOUT":        "15s",
	"DJP_RETRY_MAX":      1,
	"DJP_BASE_URL":       "",
	"DJP_ALLOWED_HOSTS":  "efaktur.pajak.go.id,svc.efaktur.pajak.go.id",
	"OCR_LANGUAGES":      "ind",
	"OBJECT_STORE":       "none",
	"LOCAL_STORE_DIR":    "./data",
	"AWS_REGION":         "",
	"S3_BUCKET":          "",
	"S3_PREFIX":          "",
	"SENTRY_DSN":         "",
	"RELEASE":            "",
	"RATE_LIMIT_RPS":     2.0,
	"RATE_LIMIT_BURST":   10,
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	cfg := Config{
		Port:            v.GetString("PORT"),
		Env:             normalizeEnv(v.GetString("ENV")),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
		DJPTimeout:      v.GetDuration("DJP_TIMEOUT"),
		DJPRetryMax:     v.GetInt("DJP_RETRY_MAX"),
		DJPBaseURL:      strings.TrimRight(strings.TrimSpace(v.GetString("DJP_BASE_URL")), "/"),
		DJPAllowedHosts: splitAndTrim(strings.ToLower(v.GetString("DJP_ALLOWED_HOSTS"))),
		OCRLanguages:    splitAndTrim(v.GetString("OCR_LANGUAGES")),
		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SentryDSN:       v.GetString("SENTRY_DSN"),
		Release:         v.GetString("RELEASE"),
		RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints on cfg.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}
