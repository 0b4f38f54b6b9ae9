// Package logging provides the process-wide logger. Console output is human
// readable; the optional log file receives JSON lines and is rotated.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	logger  = zap.NewNop()
	rotator *lumberjack.Logger
	level   = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Init routes log output to stdout and, when logPath is set, to a rotating file.
// Calling Init again replaces the previous sinks.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		rotator = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			level,
		))
	}

	logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// SetDebug toggles debug-level output, which includes request payloads.
func SetDebug(enabled bool) {
	if enabled {
		level.SetLevel(zap.DebugLevel)
		return
	}
	level.SetLevel(zap.InfoLevel)
}

// Close flushes and releases the log file. Subsequent log calls are dropped
// until Init is called again.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	_ = logger.Sync()
	logger = zap.NewNop()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

func current() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// LogEvent records an informational message.
func LogEvent(format string, args ...any) {
	current().Info(fmt.Sprintf(format, args...))
}

// LogWarn records a message about a degraded but recoverable condition.
func LogWarn(format string, args ...any) {
	current().Warn(fmt.Sprintf(format, args...))
}

// LogError records a failure together with its error.
func LogError(err error, format string, args ...any) {
	current().Error(fmt.Sprintf(format, args...), zap.Error(err))
}

// LogRequest records a payload exchanged with a model host at debug level.
func LogRequest(direction, host, model, stage string, payload any) {
	l := current()
	if !l.Core().Enabled(zap.DebugLevel) {
		return
	}
	l.Debug(buildRequestMessage(direction, host, model, stage, payload),
		zap.String("direction", strings.ToLower(strings.TrimSpace(direction))),
		zap.String("host", host),
		zap.String("model", model),
		zap.String("stage", strings.TrimSpace(stage)),
	)
}

// LogStage records the outcome of one pipeline stage.
func LogStage(stage string, fields ...zap.Field) {
	current().Info("stage "+stage, append([]zap.Field{zap.String("stage", stage)}, fields...)...)
}

func buildRequestMessage(direction, host, model, stage string, payload any) string {
	dir := strings.TrimSpace(direction)
	if dir != "" {
		dir = strings.ToUpper(dir)
	}
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("host=%s", hostValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, fmt.Sprintf("stage=%s", stage))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
