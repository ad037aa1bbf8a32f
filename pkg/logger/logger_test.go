package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetAndWarn(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Warn("replicator queue full", zap.String("user", "u1"))
	Debug("hidden")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "replicator queue full", entry.Message)
	assert.Equal(t, "u1", entry.ContextMap()["user"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("loud", "json"))
	require.NoError(t, Init("debug", "console"))
	t.Cleanup(func() { Set(nil) })
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))
}

func TestCallerPointsAtCallSite(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core, zap.AddCaller()))
	t.Cleanup(func() { Set(nil) })

	Info("package helper")
	Named("live").Info("child logger")
	L().Info("global logger")

	require.Equal(t, 3, logs.Len())
	for _, e := range logs.All() {
		assert.True(t, e.Caller.Defined, e.Message)
		assert.Equal(t, "logger_test.go", filepath.Base(e.Caller.File), e.Message)
	}
}
