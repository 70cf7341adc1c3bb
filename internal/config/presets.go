package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preset is a named bundle of run parameters. Nil fields leave the
// corresponding option untouched, so presets compose with flag defaults and
// explicit flags still win.
type Preset struct {
	Frames     *int  `yaml:"frames"`
	Iterations *int  `yaml:"iterations"`
	Downscale  *int  `yaml:"downscale"`
	SaveEvery  *int  `yaml:"save_every"`
	Validation *bool `yaml:"validation"`
}

// PresetsFile returns the default preset file location (~/.splatforge/presets.yaml).
func PresetsFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".splatforge", "presets.yaml"), nil
}

// LoadPresets parses a YAML preset file mapping names to parameter bundles.
func LoadPresets(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	presets := make(map[string]Preset)
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	return presets, nil
}

// Apply overlays the preset's non-nil fields onto the config.
func (p Preset) Apply(c *RunConfig) {
	if p.Frames != nil {
		c.Frames = *p.Frames
	}
	if p.Iterations != nil {
		c.Iterations = *p.Iterations
	}
	if p.Downscale != nil {
		c.Downscale = *p.Downscale
	}
	if p.SaveEvery != nil {
		c.SaveEvery = *p.SaveEvery
	}
	if p.Validation != nil {
		c.Validation = *p.Validation
	}
}
