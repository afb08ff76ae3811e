package telemetry

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled bool

// InitSentry configures error reporting. An empty DSN disables reporting and
// the returned flush func is a no-op.
func InitSentry(dsn, environment, release string) (func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return func() {}, err
	}
	sentryEnabled = true
	Info("sentry.initialized", map[string]any{"environment": environment})
	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}

// CaptureException reports err with the given tags when Sentry is enabled.
func CaptureException(err error, tags map[string]string) {
	if !sentryEnabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}
