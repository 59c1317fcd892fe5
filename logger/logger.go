package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Log is the global logger instance
	Log = zap.NewNop()
)

const (
	// RequestIDKey is the gin context key holding the request ID
	RequestIDKey = "request_id"
	// SessionIDKey is the gin context key holding the storefront session ID
	SessionIDKey = "session_id"
)

// Initialize sets up the logger with the specified environment
func Initialize(env string) *zap.Logger {
	return InitializeWithWriter(env, nil)
}

// InitializeWithWriter sets up the logger and, when extra is non-nil, tees
// JSON output to it (CloudWatch Logs in deployed environments).
func InitializeWithWriter(env string, extra io.Writer) *zap.Logger {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if extra == nil {
		l, err := config.Build()
		if err != nil {
			fmt.Printf("Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		Log = l
		return Log
	}

	level := zap.NewAtomicLevelAt(config.Level.Level())
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(config.EncoderConfig), zapcore.AddSync(os.Stdout), level)

	jsonConfig := config.EncoderConfig
	jsonConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	extraCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.AddSync(extra), level)

	Log = zap.New(zapcore.NewTee(consoleCore, extraCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return Log
}

// FromGin returns the global logger annotated with the request and session IDs
// stored on c by the middleware chain.
func FromGin(c *gin.Context) *zap.Logger {
	l := Log
	if rid := c.GetString(RequestIDKey); rid != "" {
		l = l.With(zap.String("request_id", rid))
	}
	if sid := c.GetString(SessionIDKey); sid != "" {
		l = l.With(zap.String("session_id", sid))
	}
	return l
}
