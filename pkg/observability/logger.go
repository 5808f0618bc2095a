package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogFormat selects the logrus formatter
type LogFormat string

const (
	TextFormat LogFormat = "text"
	JSONFormat LogFormat = "json"
)

// NewLogger creates a logrus logger. Unknown levels fall back to info and unknown
// formats to text.
func NewLogger(level string, format LogFormat, output io.Writer) *logrus.Logger {
	if output == nil {
		output = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(output)

	switch LogFormat(strings.ToLower(string(format))) {
	case JSONFormat:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel parses a level name, falling back to info
func ParseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

// contextKey is the type for context keys
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the context logger, tagged with the request ID when present
func FromContext(ctx context.Context) logrus.FieldLogger {
	logger, ok := ctx.Value(LoggerKey).(logrus.FieldLogger)
	if !ok {
		logger = logrus.StandardLogger()
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.WithField("request_id", requestID)
	}
	return logger
}
