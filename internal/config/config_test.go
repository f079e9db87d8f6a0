package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 50, cfg.Analysis.MaxIterations)
	assert.Equal(t, 3, cfg.Analysis.WideningThreshold)
	assert.Equal(t, 2, cfg.Analysis.NarrowingPasses)
	assert.True(t, cfg.Analysis.PathSensitivity)
	assert.True(t, cfg.Analysis.OverflowChecks)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, path, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	body := `{"severityThreshold":"high","analysis":{"maxIterations":10,"wideningThreshold":2,"narrowingPasses":1,"pathSensitivity":false}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".solrange-config.json"), []byte(body), 0o644))

	cfg, path, err := Load(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Equal(t, "high", cfg.SeverityThreshold)
	assert.Equal(t, 10, cfg.Analysis.MaxIterations)
	assert.False(t, cfg.Analysis.PathSensitivity)
}

func TestLoadSearchesUpwards(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "contracts", "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".solrange-config.json"), []byte(`{"severityThreshold":"critical"}`), 0o644))

	cfg, path, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".solrange-config.json"), path)
	assert.Equal(t, "critical", cfg.SeverityThreshold)
}

func TestNormalizeRejectsNonsense(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".solrange-config.json"), []byte(`{"analysis":{"maxIterations":-5}}`), 0o644))
	cfg, _, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Analysis.MaxIterations)
}
