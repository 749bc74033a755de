// Package logger builds the process logger: zap, optionally teed into a
// rotated file.
package logger

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop().Sugar()
)

// Config holds the logger configuration
type Config struct {
	Level       string
	Encoding    string // "json" or "console"
	Development bool
	// File, when set, also writes JSON lines to a size-rotated file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func DefaultConfig() Config {
	return Config{Level: "info", Encoding: "console"}
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var enc zapcore.Encoder
	switch cfg.Encoding {
	case "", "console":
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, errors.Errorf("unknown log encoding %q", cfg.Encoding)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)}
	if cfg.File != "" {
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.TimeKey = "timestamp"
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(rotator), level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...).Sugar(), nil
}

// Initialize builds a logger from cfg and installs it as the global one.
func Initialize(cfg Config) (*zap.SugaredLogger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	global = l
	mu.Unlock()
	return l, nil
}

// L returns the global logger. It discards everything until Initialize runs.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Named creates a named child of the global logger.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name)
}

// Sync flushes any buffered log entries
func Sync() error {
	return L().Sync()
}
