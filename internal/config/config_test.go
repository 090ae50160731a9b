package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDatabase, EnvActor, EnvLogLevel, EnvLogFormat} {
		t.Setenv(key, "")
	}
	t.Setenv("USER", "referee")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, "referee", cfg.Actor)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GAMEDAY_DB=/tmp/league.db\nLOG_LEVEL=debug\nLOG_FORMAT=JSON\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/league.db", cfg.Database)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ProcessEnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvActor, "scorekeeper")
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GAMEDAY_ACTOR=from-file\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scorekeeper", cfg.Actor)
}

func TestLoad_EmptyExportDoesNotMaskFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "   ")
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=warn\nGAMEDAY_ACTOR=from-file\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, "from-file", cfg.Actor)
	assert.Equal(t, "   ", os.Getenv(EnvLogLevel), "process environment is left alone")
}

func TestLoad_FirstFileWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("GAMEDAY_DB=first.db\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("GAMEDAY_DB=second.db\nLOG_FORMAT=json\n"), 0644))

	cfg, err := Load(first, filepath.Join(dir, "missing.env"), second)
	require.NoError(t, err)
	assert.Equal(t, "first.db", cfg.Database)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.env")
	require.NoError(t, os.WriteFile(path, []byte("GAMEDAY_DB=\"unterminated\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "LOUD")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")

	cfg := &Config{Database: "x", LogLevel: "INFO", LogFormat: "xml"}
	assert.ErrorContains(t, cfg.Validate(), "LOG_FORMAT")
}
