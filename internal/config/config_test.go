package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 50, cfg.Ingest.BatchSize)
}

func TestValidateRejectsBadStorage(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = "bolt"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.Type = "postgres"
	assert.Error(t, cfg.Validate(), "postgres without DSN")

	cfg.Storage.PostgresDSN = "postgres://localhost/vibeboard"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadMatcher(t *testing.T) {
	cfg := Default()
	cfg.Correlate.AuthorMatcher = "ldap"
	assert.Error(t, cfg.Validate())

	cfg.Correlate.AuthorMatcher = "email"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  type: sqlite
  local_path: /tmp/vb-test.db
projects:
  proj-1: /srv/repos/proj-1
ingest:
  batch_size: 25
correlate:
  confidence_threshold: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/vb-test.db", cfg.Storage.LocalPath)
	assert.Equal(t, 25, cfg.Ingest.BatchSize)
	assert.InDelta(t, 0.5, cfg.Correlate.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "/srv/repos/proj-1", cfg.Projects["proj-1"])

	// Unset sections keep defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(map[string]string{"proj-1": "/srv/repos/proj-1"})

	path, ok := registry.RepoPath("proj-1")
	assert.True(t, ok)
	assert.Equal(t, "/srv/repos/proj-1", path)

	_, ok = registry.RepoPath("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"proj-1"}, registry.ProjectIDs())
}
