package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "symfile.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Empty(t, cfg.SearchPaths)
	assert.Empty(t, cfg.Journal)
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
log:
  level: debug
  json: true
arch: arm64
search_paths:
  - /opt/symbols
  - /usr/lib/debug
journal: /tmp/journal.db
format: json
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "arm64", cfg.Arch)
	assert.Equal(t, []string{"/opt/symbols", "/usr/lib/debug"}, cfg.SearchPaths)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	p := writeConfig(t, "arch: arm64\nformat: json\n")
	t.Setenv("SYMFILE_ARCH", "amd64")
	t.Setenv("SYMFILE_SEARCH_PATHS", "/a:/b")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "amd64", cfg.Arch)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"/a", "/b"}, cfg.SearchPaths)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	t.Setenv("SYMFILE_FORMAT", "xml")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestUsageListsVariables(t *testing.T) {
	assert.Contains(t, Usage(), "SYMFILE_SEARCH_PATHS")
}
