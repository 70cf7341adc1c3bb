package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() RunConfig {
	return RunConfig{
		VideoPath:  "clip.mp4",
		Frames:     DefaultFrames,
		Iterations: DefaultIterations,
		Downscale:  DefaultDownscale,
	}
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *RunConfig) {}, false},
		{"zero iterations", func(c *RunConfig) { c.Iterations = 0 }, true},
		{"negative iterations", func(c *RunConfig) { c.Iterations = -5 }, true},
		{"downscale 2", func(c *RunConfig) { c.Downscale = 2 }, false},
		{"downscale 4", func(c *RunConfig) { c.Downscale = 4 }, false},
		{"downscale 3", func(c *RunConfig) { c.Downscale = 3 }, true},
		{"zero frames in video mode", func(c *RunConfig) { c.Frames = 0 }, true},
		{"zero frames in image mode ignored", func(c *RunConfig) {
			c.VideoPath = ""
			c.ImagesPath = "shots/"
			c.Frames = 0
		}, false},
		{"checkpointing disabled is fine", func(c *RunConfig) { c.SaveEvery = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ce *ConfigurationError
				if !errors.As(err, &ce) {
					t.Errorf("Validate() error type = %T, want *ConfigurationError", err)
				}
			}
		})
	}
}

func TestLoadTools_EnvOverrides(t *testing.T) {
	t.Setenv("SPLATFORGE_COLMAP", "/opt/colmap/bin/colmap")
	t.Setenv("SPLATFORGE_DB", "/tmp/test-runs.db")

	tools, err := LoadTools()
	if err != nil {
		t.Fatalf("LoadTools() failed: %v", err)
	}
	if tools.Colmap != "/opt/colmap/bin/colmap" {
		t.Errorf("Colmap = %q, want override", tools.Colmap)
	}
	if tools.OpenSplat != "opensplat" {
		t.Errorf("OpenSplat = %q, want default", tools.OpenSplat)
	}
	if tools.Sampler != "frame-sampler" {
		t.Errorf("Sampler = %q, want default", tools.Sampler)
	}
	if tools.LedgerPath != "/tmp/test-runs.db" {
		t.Errorf("LedgerPath = %q, want override", tools.LedgerPath)
	}
}

func TestLoadPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	content := `
quality:
  frames: 400
  iterations: 30000
  downscale: 1
fast:
  iterations: 1000
  downscale: 4
  save_every: 500
  validation: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	presets, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets() failed: %v", err)
	}

	cfg := validConfig()
	presets["fast"].Apply(&cfg)
	if cfg.Iterations != 1000 || cfg.Downscale != 4 || cfg.SaveEvery != 500 || !cfg.Validation {
		t.Errorf("fast preset not applied: %+v", cfg)
	}
	// frames was not set by the preset and must keep its prior value
	if cfg.Frames != DefaultFrames {
		t.Errorf("Frames = %d, want untouched default %d", cfg.Frames, DefaultFrames)
	}

	cfg2 := validConfig()
	presets["quality"].Apply(&cfg2)
	if cfg2.Frames != 400 || cfg2.Iterations != 30000 {
		t.Errorf("quality preset not applied: %+v", cfg2)
	}
	// validation not mentioned by the preset stays off
	if cfg2.Validation {
		t.Error("quality preset should not enable validation")
	}
}

func TestLoadPresets_Missing(t *testing.T) {
	if _, err := LoadPresets(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadPresets() on missing file should error")
	}
}
