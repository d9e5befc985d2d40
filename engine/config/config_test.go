package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photon.toml")
	content := `
name = "test render"
width = 640
height = 480
samples = 16
headless = true
output_path = "out.png"
debug = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test render", cfg.Name)
	assert.Equal(t, uint32(640), cfg.Width)
	assert.Equal(t, uint32(480), cfg.Height)
	assert.Equal(t, uint32(16), cfg.Samples)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "out.png", cfg.OutputPath)
	assert.False(t, cfg.Debug)
}

func TestLoadKeepsDefaultsForOmittedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photon.toml")
	require.NoError(t, os.WriteFile(path, []byte(`width = 320`+"\n"+`height = 200`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(320), cfg.Width)
	assert.Equal(t, uint32(200), cfg.Height)
	assert.Equal(t, Default().Samples, cfg.Samples)
	assert.Equal(t, Default().OutputPath, cfg.OutputPath)
}

func TestValidateRejectsDegenerateSettings(t *testing.T) {
	cfg := Default()
	cfg.Width = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Samples = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.OutputPath = ""
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}
