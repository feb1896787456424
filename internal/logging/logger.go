package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xReLogic/slowpoke/internal/config"
)

type contextKey string

const (
	loggerKey    contextKey = "slowpoke_logger"
	requestIDKey contextKey = "slowpoke_request_id"
)

type logFormat int

const (
	formatText logFormat = iota
	formatJSON
)

var (
	baseLogger   zerolog.Logger
	baseLoggerMu sync.RWMutex
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	setBaseLogger(newLogger(os.Stdout, zerolog.InfoLevel, formatText, false))
}

// Init configures the global logger based on configuration values.
func Init(cfg config.LoggingConfig) {
	setBaseLogger(newLogger(os.Stdout, parseLevel(cfg.Level), parseFormat(cfg.Format), cfg.IncludeCaller))
}

func parseLevel(value string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func parseFormat(value string) logFormat {
	if strings.EqualFold(strings.TrimSpace(value), "json") {
		return formatJSON
	}
	return formatText
}

func newLogger(writer io.Writer, level zerolog.Level, format logFormat, includeCaller bool) zerolog.Logger {
	output := writer
	if format == formatText {
		output = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}

	builder := zerolog.New(output).Level(level).With().Timestamp()
	if includeCaller {
		builder = builder.Caller()
	}
	return builder.Logger()
}

func setBaseLogger(logger zerolog.Logger) {
	baseLoggerMu.Lock()
	baseLogger = logger
	baseLoggerMu.Unlock()
}

// L returns the base logger.
func L() zerolog.Logger {
	baseLoggerMu.RLock()
	defer baseLoggerMu.RUnlock()
	return baseLogger
}

// WithContext returns the request scoped logger stored in ctx, or the base logger.
func WithContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return L()
	}
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		return L().With().Str("request_id", reqID).Logger()
	}
	return L()
}

// RequestIDFromContext extracts the request identifier from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	reqID, _ := ctx.Value(requestIDKey).(string)
	return reqID
}

// RequestHeaderName returns the configured request header name, falling back to default.
func RequestHeaderName(cfg config.LoggingConfig) string {
	if header := strings.TrimSpace(cfg.RequestID.Header); header != "" {
		return header
	}
	return "X-Request-ID"
}

// ContextWithLogger returns a copy of ctx carrying logger, which WithContext returns from then on.
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

func contextWithRequestID(ctx context.Context, logger zerolog.Logger, reqID string) context.Context {
	ctx = ContextWithLogger(ctx, logger)
	if reqID != "" {
		ctx = context.WithValue(ctx, requestIDKey, reqID)
	}
	return ctx
}
