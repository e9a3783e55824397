// Package zap builds the zap-backed implementation of the logger
// facade.
package zap

import (
	"fmt"
	"os"

	"ChordSim/internal/config"
	"ChordSim/internal/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New constructs a *zap.Logger from the logger configuration.
//
// Records go to stderr, or to a size-rotated file when a path is
// configured. Stdout is reserved for command output.
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Encoding {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.File.Path != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core), nil
}

// Adapter wraps a *zap.Logger behind the logger.Logger facade.
type Adapter struct {
	l *zap.Logger
}

// NewZapAdapter returns an adapter over the given zap logger.
func NewZapAdapter(l *zap.Logger) *Adapter {
	return &Adapter{l: l}
}

func (a *Adapter) Named(name string) logger.Logger {
	return &Adapter{l: a.l.Named(name)}
}

func (a *Adapter) Debug(msg string, fields ...logger.Field) {
	a.l.Debug(msg, toZap(fields)...)
}

func (a *Adapter) Info(msg string, fields ...logger.Field) {
	a.l.Info(msg, toZap(fields)...)
}

func (a *Adapter) Warn(msg string, fields ...logger.Field) {
	a.l.Warn(msg, toZap(fields)...)
}

func (a *Adapter) Error(msg string, fields ...logger.Field) {
	a.l.Error(msg, toZap(fields)...)
}

func toZap(fields []logger.Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
