package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/photon/engine/core"
)

// ApplicationConfig drives the bootstrap: render dimensions, sample
// count, headless vs. windowed mode and where the readback PNG lands.
type ApplicationConfig struct {
	Name       string `toml:"name"`
	Width      uint32 `toml:"width"`
	Height     uint32 `toml:"height"`
	Samples    uint32 `toml:"samples"`
	Headless   bool   `toml:"headless"`
	OutputPath string `toml:"output_path"`
	Debug      bool   `toml:"debug"`
}

// Default returns the configuration used when no file is present.
func Default() *ApplicationConfig {
	return &ApplicationConfig{
		Name:       "Photon Raytracer",
		Width:      1200,
		Height:     800,
		Samples:    1,
		Headless:   false,
		OutputPath: "render.png",
		Debug:      true,
	}
}

// Load reads a TOML configuration file. A missing file is not an
// error; defaults are returned instead.
func Load(path string) (*ApplicationConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("no configuration file at '%s', using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects degenerate render settings before any GPU object is
// created with them.
func (c *ApplicationConfig) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("render target dimensions must be non-zero, got %dx%d", c.Width, c.Height)
	}
	if c.Samples == 0 {
		return fmt.Errorf("sample count must be at least 1")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path must not be empty")
	}
	return nil
}
