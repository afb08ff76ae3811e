package telemetry

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	current atomic.Pointer[zap.Logger]
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	current.Store(newLogger(os.Stdout))
}

func newLogger(w io.Writer) *zap.Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// SetLevel changes the minimum level. Unknown values fall back to info.
func SetLevel(raw string) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(raw)))); err != nil {
		lvl = zapcore.InfoLevel
	}
	level.SetLevel(lvl)
}

// SetOutput redirects log output to w and returns a func restoring the previous logger.
func SetOutput(w io.Writer) func() {
	prev := current.Swap(newLogger(w))
	return func() {
		current.Store(prev)
	}
}

// Logger exposes the underlying zap logger for libraries that accept one.
func Logger() *zap.Logger {
	return current.Load()
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	current.Load().Debug(msg, toZap(fields)...)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	current.Load().Info(msg, toZap(fields)...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	current.Load().Warn(msg, toZap(fields)...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	current.Load().Error(msg, toZap(fields)...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = current.Load().Sync()
}

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
