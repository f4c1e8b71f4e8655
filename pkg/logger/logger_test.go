package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, ParseLevel("ERROR"))
	require.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
	require.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestWithContext_OmitsEmptyFields(t *testing.T) {
	req := require.New(t)
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.WithContext("corr-1", "").Info("first")
	log.WithContext("", "u1").WithGroup("g1").Info("second", zap.Int("n", 1))

	entries := logs.AllUntimed()
	req.Len(entries, 2)
	req.Equal(map[string]interface{}{"correlation_id": "corr-1"}, entries[0].ContextMap())
	req.Equal(map[string]interface{}{"user_id": "u1", "group_id": "g1", "n": int64(1)}, entries[1].ContextMap())
}

func TestWithConnection(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewWithCore(core).WithConnection("c1").Debug("hidden")
	NewWithCore(core).WithConnection("c1").Info("shown")

	entries := logs.FilterField(zap.String("connection_id", "c1")).All()
	require.Len(t, entries, 1)
	require.Equal(t, "shown", entries[0].Message)
}

func TestNew_Levels(t *testing.T) {
	log, err := New("error")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.WarnLevel))
	require.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}
