package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel is one of the logrus level names
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogConfig controls where the client logs and how much.
type LogConfig struct {
	Level LogLevel
	// json or text
	Format string
	// stderr, stdout or a file path
	Output string
	// rotate a file Output with lumberjack
	Rotation   bool
	MaxSize    int // MB
	MaxBackups int
}

// DefaultLogConfig logs text at info level to stderr, so log lines never
// interleave with command output on stdout.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:      InfoLevel,
		Format:     "text",
		Output:     "stderr",
		MaxSize:    20,
		MaxBackups: 3,
	}
}

// LoadLogConfigFromEnv reads LOG_* variables on top of the defaults
func LoadLogConfigFromEnv() *LogConfig {
	config := DefaultLogConfig()
	config.Level = LogLevel(getEnv("LOG_LEVEL", string(config.Level)))
	config.Format = getEnv("LOG_FORMAT", config.Format)
	config.Output = getEnv("LOG_OUTPUT", config.Output)
	config.Rotation = getEnv("LOG_ROTATION", "false") == "true"
	if v, err := strconv.Atoi(getEnv("LOG_MAX_SIZE_MB", "")); err == nil && v > 0 {
		config.MaxSize = v
	}
	if v, err := strconv.Atoi(getEnv("LOG_MAX_BACKUPS", "")); err == nil && v >= 0 {
		config.MaxBackups = v
	}
	return config
}

// Logger is the process logger
type Logger struct {
	*logrus.Logger
}

// NewLogger builds a logger from config; nil means DefaultLogConfig.
func NewLogger(config *LogConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLogConfig()
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	output, err := openLogOutput(config)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(output)

	return &Logger{Logger: logger}, nil
}

func openLogOutput(config *LogConfig) (io.Writer, error) {
	switch config.Output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	if config.Rotation {
		return &lumberjack.Logger{
			Filename:   config.Output,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
		}, nil
	}
	file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// ContextualLogger is a log entry pre-filled with the correlation id, the
// signed-in user and the active span.
type ContextualLogger struct {
	*logrus.Entry
}

// WithContext returns an entry carrying the ids found in ctx
func (l *Logger) WithContext(ctx context.Context) *ContextualLogger {
	fields := logrus.Fields{}

	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		fields["correlation_id"] = correlationID
	}
	if userID := GetUserID(ctx); userID != "" {
		fields["user_id"] = userID
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}

	return &ContextualLogger{Entry: l.Logger.WithFields(fields)}
}

func (cl *ContextualLogger) WithFields(fields logrus.Fields) *ContextualLogger {
	return &ContextualLogger{Entry: cl.Entry.WithFields(fields)}
}

func (cl *ContextualLogger) WithField(key string, value interface{}) *ContextualLogger {
	return &ContextualLogger{Entry: cl.Entry.WithField(key, value)}
}

func (cl *ContextualLogger) WithError(err error) *ContextualLogger {
	return &ContextualLogger{Entry: cl.Entry.WithError(err)}
}

type correlationIDKey struct{}

type userIDKey struct{}

// WithCorrelationID tags ctx with correlationID, generating one when empty
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

func GetCorrelationID(ctx context.Context) string {
	correlationID, _ := ctx.Value(correlationIDKey{}).(string)
	return correlationID
}

func NewCorrelationID() string {
	return uuid.New().String()
}

// WithUserID tags the context with the signed-in user
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitGlobalLogger replaces the process logger
func InitGlobalLogger(config *LogConfig) error {
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
	return nil
}

// GetGlobalLogger returns the process logger, creating a default one on first use
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger, _ = NewLogger(DefaultLogConfig())
	}
	return globalLogger
}

// GetContextualLogger returns the process logger with the ids found in ctx
func GetContextualLogger(ctx context.Context) *ContextualLogger {
	return GetGlobalLogger().WithContext(ctx)
}
