package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.HumanReadableOutput)
	assert.Equal(t, "requests", cfg.RequestDir)
	assert.Equal(t, 2, cfg.ProtocolVersion)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte("port: 9090\nlog_level: debug\ndatabase:\n  host: db.internal\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gentoostats.yaml"), yaml, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	// unset keys keep their defaults
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GENTOOSTATS_PORT", "7070")
	t.Setenv("GENTOOSTATS_DATABASE_HOST", "env.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "env.internal", cfg.Database.Host)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GENTOOSTATS_PORT", "99999")

	_, err := Load()
	assert.Error(t, err)
}
