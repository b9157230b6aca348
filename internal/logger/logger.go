package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It is a no-op logger until Initialize is called.
var Log = zap.NewNop()

// Sugar is the printf-style view of Log.
var Sugar = Log.Sugar()

// Initialize builds the global logger.
// level: "debug", "info", "warn", "error" (default "info").
// file: rotated JSON log file; empty means console only.
func Initialize(level string, file string) error {
	lvl := parseLevel(level)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		lvl,
	)
	cores := []zapcore.Core{consoleCore}

	if file != "" {
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(rotating), lvl))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Sugar = Log.Sugar()

	Log.Info("Logger initialized",
		zap.String("level", lvl.String()),
		zap.String("file", file),
	)
	return nil
}

// Close flushes buffered entries.
func Close() error {
	if Log == nil {
		return nil
	}
	err := Log.Sync()
	// stdout cannot be synced on most platforms
	if err != nil && strings.Contains(err.Error(), "sync /dev/stdout") {
		return nil
	}
	return err
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InfoWithFields logs an info message with structured fields
func InfoWithFields(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// DebugWithFields logs a debug message with structured fields
func DebugWithFields(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// WarnWithFields logs a warning together with the error that caused it
func WarnWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Warn(msg, fields...)
}

// ErrorWithFields logs an error with structured fields
func ErrorWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

// FatalWithFields logs and exits
func FatalWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Fatal(msg, fields...)
}

// Field helpers

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithRecipientID(userID string) zap.Field {
	return zap.String("recipient_id", userID)
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithMessageID(messageID string) zap.Field {
	return zap.String("message_id", messageID)
}

func WithNotificationID(id string) zap.Field {
	return zap.String("notification_id", id)
}

func WithEvent(eventType string) zap.Field {
	return zap.String("event", eventType)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

func WithDuration(d time.Duration) zap.Field {
	return zap.Duration("duration", d)
}
