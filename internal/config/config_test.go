package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:5173", cfg.ClientOrigin)
	assert.Equal(t, 30*time.Minute, cfg.LobbyTTL)
	assert.Equal(t, time.Minute, cfg.JanitorInterval)
	assert.False(t, cfg.RotateOnCorrect)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Empty(t, cfg.DatabaseURL)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("LOBBY_TTL", "5m")
	t.Setenv("ROTATE_ON_CORRECT", "true")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/kanji")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.LobbyTTL)
	assert.True(t, cfg.RotateOnCorrect)
	assert.False(t, cfg.UsesDefaultSecret())
	assert.Equal(t, "postgres://localhost/kanji", cfg.DatabaseURL)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad port", "PORT", "70000"},
		{"not a number", "PORT", "http"},
		{"negative ttl", "LOBBY_TTL", "-1m"},
		{"zero token ttl", "TOKEN_TTL", "0s"},
		{"bad duration", "JANITOR_INTERVAL", "soon"},
		{"negative burst", "RATE_LIMIT_BURST", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KANJI_FILE=/tmp/kanji.csv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("KANJI_FILE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/kanji.csv", cfg.KanjiFile)
}
