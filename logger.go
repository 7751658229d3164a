package nenet

import "log/slog"

// Logger is the structured logging interface used by the connection
// workers. It is compatible with *slog.Logger from the standard
// library; hosts with their own logging facility provide an adapter via
// WithLogger. All messages carry key-value context, typically the
// connection tag ("ctag") of the attempt that produced them.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}
