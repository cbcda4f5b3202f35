// Package logger is the process-wide structured logger. Calls take a message
// followed by alternating key/value pairs.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop().Sugar()
)

// Init builds the logger for the given environment. "development" gets a
// console encoder at debug level, everything else JSON at info level.
func Init(env string) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "development" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err = cfg.Build(zap.AddCallerSkip(1))
	} else {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err = cfg.Build(zap.AddCallerSkip(1))
	}
	if err != nil {
		l = zap.NewExample()
	}
	set(l)
}

// SetForTest swaps the sink, typically with a zaptest/observer core, and
// returns a function restoring the previous logger.
func SetForTest(core zapcore.Core) func() {
	mu.Lock()
	prev := log
	log = zap.New(core).Sugar()
	mu.Unlock()
	return func() {
		mu.Lock()
		log = prev
		mu.Unlock()
	}
}

func set(l *zap.Logger) {
	mu.Lock()
	log = l.Sugar()
	mu.Unlock()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug(msg string, kv ...any) { current().Debugw(msg, kv...) }
func Info(msg string, kv ...any)  { current().Infow(msg, kv...) }
func Warn(msg string, kv ...any)  { current().Warnw(msg, kv...) }
func Error(msg string, kv ...any) { current().Errorw(msg, kv...) }
func Fatal(msg string, kv ...any) { current().Fatalw(msg, kv...) }

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}
