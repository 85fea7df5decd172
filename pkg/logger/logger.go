package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. Packages log structured events against it
// directly: logger.Log.Info("thread_saved", zap.String("thread", id)).
var Log *zap.Logger

func init() {
	// Safe default so packages can log before main configures anything.
	Log = zap.NewNop()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(level zapcore.Level, format string) *zap.Logger {
	var enc zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	ws := zapcore.Lock(os.Stdout)
	// THREADDB_LOG_SINK=file:/path/to/log redirects output, mainly for tests
	// and supervised deployments.
	if sink := os.Getenv("THREADDB_LOG_SINK"); strings.HasPrefix(sink, "file:") {
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			ws = zapcore.Lock(f)
		} else {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
		}
	}

	return zap.New(zapcore.NewCore(enc, ws, level))
}

// Init initializes the global logger at the level given by
// THREADDB_LOG_LEVEL (default info) with the console encoder.
func Init() {
	Log = build(parseLevel(os.Getenv("THREADDB_LOG_LEVEL")), "")
}

// InitWithLevel initializes the global logger honoring the provided level
// and format ("text" or "json"). Empty values fall back to the env-based
// behavior of Init.
func InitWithLevel(level, format string) {
	if level == "" {
		level = os.Getenv("THREADDB_LOG_LEVEL")
	}
	Log = build(parseLevel(level), format)
}

// Sync flushes buffered log entries; call on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
