package telemetry

// KeyValueLogger adapts the package logger to loggers that take alternating
// key/value pairs, such as the retryablehttp LeveledLogger.
type KeyValueLogger struct {
	Component string
}

func (l KeyValueLogger) Error(msg string, keysAndValues ...interface{}) {
	current.Load().Sugar().Errorw(msg, l.with(keysAndValues)...)
}

func (l KeyValueLogger) Warn(msg string, keysAndValues ...interface{}) {
	current.Load().Sugar().Warnw(msg, l.with(keysAndValues)...)
}

func (l KeyValueLogger) Info(msg string, keysAndValues ...interface{}) {
	current.Load().Sugar().Infow(msg, l.with(keysAndValues)...)
}

func (l KeyValueLogger) Debug(msg string, keysAndValues ...interface{}) {
	current.Load().Sugar().Debugw(msg, l.with(keysAndValues)...)
}

func (l KeyValueLogger) with(kv []interface{}) []interface{} {
	if l.Component == "" {
		return kv
	}
	return append([]interface{}{"component", l.Component}, kv...)
}
