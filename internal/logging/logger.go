// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger sinks.
type Config struct {
	// Dir is the directory for dated log files. Empty disables the file sink.
	Dir string
	// Development enables the colored console encoder at debug level.
	Development bool
}

// FileName returns the dated log file name for t,
// e.g. "crimes-grabber-2025-08-25.log".
func FileName(t time.Time) string {
	return fmt.Sprintf("crimes-grabber-%s.log", t.Format("2006-01-02"))
}

// New builds a zap.Logger that writes to stderr and, when cfg.Dir is set, to a
// dated JSON file underneath it. The returned func flushes and closes the file
// sink and should be deferred by the caller.
func New(cfg Config) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	consoleEnc := zapcore.NewJSONEncoder(encCfg)
	if cfg.Development {
		level = zapcore.DebugLevel
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.TimeKey = "ts"
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(devCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}
	closeFile := func() {}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		sink, closer, err := zap.Open(filepath.Join(cfg.Dir, FileName(time.Now())))
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "ts"
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), sink, level))
		closeFile = closer
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	cleanup := func() {
		_ = logger.Sync()
		closeFile()
	}
	return logger, cleanup, nil
}
