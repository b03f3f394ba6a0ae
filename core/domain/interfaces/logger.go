package interfaces

// Logger defines the interface for logging operations
type Logger interface {
	// Errorf logs at ERROR level with formatting
	Errorf(format string, args ...any)
	// Warnf logs at WARN level with formatting
	Warnf(format string, args ...any)
	// Infof logs at INFO level with formatting
	Infof(format string, args ...any)
	// Debugf logs at DEBUG level with formatting
	Debugf(format string, args ...any)
	// Successf logs regardless of the configured level
	Successf(format string, args ...any)
	// With returns a child logger carrying an extra field
	With(key, value string) Logger
}
