package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	log  = zap.NewNop()
	skip = log // log 跳过一层调用栈，供包级 Debug/Info/Warn/Error 使用
)

// Init 按级别与格式构建全局 logger
func Init(level, format string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set 替换全局 logger（测试中注入 observer）
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	log = l
	skip = l.WithOptions(zap.AddCallerSkip(1))
	mu.Unlock()
}

// L 返回当前全局 logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Named 返回带组件名的子 logger
func Named(name string) *zap.Logger { return L().Named(name) }

func wrapped() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return skip
}

func Debug(msg string, fields ...zap.Field) { wrapped().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { wrapped().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { wrapped().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { wrapped().Error(msg, fields...) }

// Sync 刷新缓冲，进程退出前调用
func Sync() error { return L().Sync() }
