package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger defines the common logging surface shared by the plain slog
// logger and the OTLP-backed logger.
type Logger interface {
	WithComponent(componentName string) *slog.Logger
	WithOperation(operationName string) *slog.Logger
	WithRequestID(requestID string) *slog.Logger
	WithFunction(functionName string) *slog.Logger
	WithSymbol(symbol string) *slog.Logger
	WithError(err error) *slog.Logger
	LogStartup(serviceName string, version string, port int)
	LogShutdown(serviceName string, reason string)
	LogAnalysisEvent(requestID string, functionName string, status string, durationMs int64, rows int)
	Logger() *slog.Logger
}

// StandardLogger provides a standardized logging interface.
type StandardLogger struct {
	logger Logger
}

// NewStandardLogger creates a new standardized logger based on configuration.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: getSlogLevel(logLevel)}
	if environment == "development" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return &StandardLogger{
		logger: &fallbackLogger{logger: slog.New(handler)},
	}
}

// NewStandardOTLPLogger creates a standardized logger with OTLP export.
// It falls back to plain stdout logging if the exporter cannot be built.
func NewStandardOTLPLogger(config OTLPConfig) *StandardLogger {
	otlpLogger, err := NewOTLPLogger(config)
	if err != nil {
		return NewStandardLogger(config.LogLevel, config.Environment)
	}
	return &StandardLogger{logger: &otlpWrapper{logger: otlpLogger}}
}

// SetLogger sets the underlying logger implementation.
func (l *StandardLogger) SetLogger(logger Logger) {
	l.logger = logger
}

// WithComponent creates a logger with component context.
func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.WithComponent(componentName)
}

// WithOperation creates a logger with operation context.
func (l *StandardLogger) WithOperation(operationName string) *slog.Logger {
	return l.logger.WithOperation(operationName)
}

// WithRequestID creates a logger with request ID context.
func (l *StandardLogger) WithRequestID(requestID string) *slog.Logger {
	return l.logger.WithRequestID(requestID)
}

// WithFunction creates a logger with analytical function context.
func (l *StandardLogger) WithFunction(functionName string) *slog.Logger {
	return l.logger.WithFunction(functionName)
}

// WithSymbol creates a logger with symbol context.
func (l *StandardLogger) WithSymbol(symbol string) *slog.Logger {
	return l.logger.WithSymbol(symbol)
}

// WithError creates a logger with error context.
func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.WithError(err)
}

// LogStartup logs application startup information.
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.LogStartup(serviceName, version, port)
}

// LogShutdown logs application shutdown information.
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.LogShutdown(serviceName, reason)
}

// LogAnalysisEvent logs a completed analysis request in a standardized format.
func (l *StandardLogger) LogAnalysisEvent(requestID string, functionName string, status string, durationMs int64, rows int) {
	l.logger.LogAnalysisEvent(requestID, functionName, status, durationMs, rows)
}

// Logger returns the underlying *slog.Logger.
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger.Logger()
}

// fallbackLogger implements Logger over a plain slog.Logger.
type fallbackLogger struct {
	logger *slog.Logger
}

func (f *fallbackLogger) WithComponent(componentName string) *slog.Logger {
	return f.logger.With("component", componentName)
}

func (f *fallbackLogger) WithOperation(operationName string) *slog.Logger {
	return f.logger.With("operation", operationName)
}

func (f *fallbackLogger) WithRequestID(requestID string) *slog.Logger {
	return f.logger.With("request_id", requestID)
}

func (f *fallbackLogger) WithFunction(functionName string) *slog.Logger {
	return f.logger.With("function", functionName)
}

func (f *fallbackLogger) WithSymbol(symbol string) *slog.Logger {
	return f.logger.With("symbol", symbol)
}

func (f *fallbackLogger) WithError(err error) *slog.Logger {
	return f.logger.With("error", err.Error())
}

func (f *fallbackLogger) LogStartup(serviceName string, version string, port int) {
	f.logger.Info("Service starting",
		"event", "startup",
		"service", serviceName,
		"version", version,
		"port", port,
	)
}

func (f *fallbackLogger) LogShutdown(serviceName string, reason string) {
	f.logger.Info("Service shutting down",
		"event", "shutdown",
		"service", serviceName,
		"reason", reason,
	)
}

func (f *fallbackLogger) LogAnalysisEvent(requestID string, functionName string, status string, durationMs int64, rows int) {
	f.logger.Info("Analysis request completed",
		"event", "analysis_request",
		"request_id", requestID,
		"function", functionName,
		"status", status,
		"duration_ms", durationMs,
		"rows", rows,
	)
}

func (f *fallbackLogger) Logger() *slog.Logger {
	return f.logger
}

// getSlogLevel converts a string level to slog.Level.
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
