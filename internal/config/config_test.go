package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ASSISTANT_ID", "")
	t.Setenv("CODEC_DECRYPT_POLICY", "")

	cfg := Load()

	require.Equal(t, "6000", cfg.ServerPort)
	require.Equal(t, "dnya", cfg.AssistantID)
	require.Equal(t, 20, cfg.HistoryLimit)
	require.Equal(t, 3, cfg.RetrievalTopK)
	require.Equal(t, "closed", cfg.CodecDecryptPolicy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ASSISTANT_HISTORY_LIMIT", "10")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load()

	require.Equal(t, "9090", cfg.ServerPort)
	require.Equal(t, 10, cfg.HistoryLimit)
	require.Equal(t, 5*time.Second, cfg.GenerationTimeout)
	require.True(t, cfg.TracingEnabled)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ASSISTANT_MEMORY_TURNS", "lots")
	t.Setenv("RETRIEVAL_TIMEOUT", "soon")

	cfg := Load()

	require.Equal(t, 50, cfg.MemoryTurns)
	require.Equal(t, 10*time.Second, cfg.RetrievalTimeout)
}
