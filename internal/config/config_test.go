package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/contribgit/internal/git"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := userConfigDir
	userConfigDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { userConfigDir = orig })
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, git.Author{Name: "contribgit", Email: "contribgit@localhost"}, cfg.Committer)
	assert.Empty(t, cfg.Repositories)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
sync:
  interval: 30s
repositories:
  - path: /srv/taxonomy
    url: https://example.com/taxonomy.git
  - name: docs
    path: /srv/knowledge-docs
    default_branch: trunk
`), 0o644))
	t.Setenv("CONTRIBGIT_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	require.Len(t, cfg.Repositories, 2)
	assert.Equal(t, Repository{
		Name:          "taxonomy",
		Path:          "/srv/taxonomy",
		URL:           "https://example.com/taxonomy.git",
		DefaultBranch: "main",
	}, cfg.Repositories[0])
	assert.Equal(t, "trunk", cfg.Repositories[1].DefaultBranch)

	r, err := cfg.Repository("docs")
	require.NoError(t, err)
	assert.Equal(t, "/srv/knowledge-docs", r.Path)
	_, err = cfg.Repository("")
	assert.Error(t, err)
	_, err = cfg.Repository("nope")
	assert.ErrorIs(t, err, git.ErrNotFound)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contribgit.yaml"), []byte("repositories:\n  - path: taxonomy\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	r, err := cfg.Repository("")
	require.NoError(t, err)
	assert.Equal(t, "taxonomy", r.Name)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("repositories:\n  - path: a/x\n  - path: b/x\n"), 0o644))
	_, err = Load(dup)
	assert.ErrorContains(t, err, "duplicate name")

	noPath := filepath.Join(dir, "nopath.yaml")
	require.NoError(t, os.WriteFile(noPath, []byte("repositories:\n  - name: x\n"), 0o644))
	_, err = Load(noPath)
	assert.ErrorContains(t, err, "path is required")
}
