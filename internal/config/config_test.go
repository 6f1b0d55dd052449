package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "grid9_index.gob", cfg.Index.File)
	assert.Equal(t, 5432, cfg.PostGIS.Port)
	assert.Equal(t, 25, cfg.PostGIS.MaxConnections)
	assert.Equal(t, 100.0, cfg.Nearby.DefaultRadiusM)
	assert.Equal(t, uint(50), cfg.Nearby.DefaultMaxResults)
	assert.Equal(t, 1000.0, cfg.Nearby.MaxRadiusM)
	assert.Equal(t, uint(1000), cfg.Nearby.MaxResults)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid9.yaml")
	content := `
log:
  level: debug
  pretty: true
server:
  addr: ":9090"
  allowed_origins: ["https://example.com"]
postgis:
  host: db
  database: codes
nearby:
  default_radius_m: 250
  max_radius_m: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "db", cfg.PostGIS.Host)
	assert.Equal(t, "codes", cfg.PostGIS.Database)
	assert.Equal(t, "postgres", cfg.PostGIS.User)
	assert.Equal(t, 250.0, cfg.Nearby.DefaultRadiusM)
	assert.Equal(t, 500.0, cfg.Nearby.MaxRadiusM)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GRID9_SERVER_ADDR", ":7070")
	t.Setenv("GRID9_POSTGIS_PORT", "6543")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 6543, cfg.PostGIS.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
