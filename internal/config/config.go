// Package config resolves the immutable parameter set for one pipeline run.
//
// Options come from three layers, strongest last: an optional named preset
// (presets.yaml), then command-line flags. External tool locations come from
// the environment (optionally seeded from a .env file) so installs with
// non-standard COLMAP/OpenSplat builds can point at them without flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Parameter defaults. The frame count matches the original extractor script;
// the iteration count is OpenSplat's own default.
const (
	DefaultFrames     = 200
	DefaultIterations = 2000
	DefaultDownscale  = 1
)

// ConfigurationError reports invalid, missing, or conflicting run options.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// Tools locates the external collaborators and the run ledger.
type Tools struct {
	// Colmap is the COLMAP binary (feature_extractor / exhaustive_matcher / mapper).
	Colmap string `env:"SPLATFORGE_COLMAP" envDefault:"colmap"`
	// OpenSplat is the splat trainer binary.
	OpenSplat string `env:"SPLATFORGE_OPENSPLAT" envDefault:"opensplat"`
	// Sampler extracts evenly spaced frames from a video.
	Sampler string `env:"SPLATFORGE_SAMPLER" envDefault:"frame-sampler"`
	// LedgerPath is the sqlite run-history database. Defaults to
	// ~/.splatforge/runs.db when unset.
	LedgerPath string `env:"SPLATFORGE_DB"`
}

// LoadTools reads tool locations from the environment, seeding it from an
// optional .env file in the working directory.
func LoadTools() (Tools, error) {
	_ = godotenv.Load() // missing .env is fine

	var t Tools
	if err := env.Parse(&t); err != nil {
		return Tools{}, fmt.Errorf("parse environment: %w", err)
	}
	if t.LedgerPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Tools{}, fmt.Errorf("resolve home directory for run ledger: %w", err)
		}
		t.LedgerPath = filepath.Join(home, ".splatforge", "runs.db")
	}
	return t, nil
}

// RunConfig is the resolved parameter set for one invocation. It is built
// once at startup and passed by value; nothing mutates it afterwards.
type RunConfig struct {
	VideoPath  string
	ImagesPath string
	OutputName string

	Frames     int
	Iterations int
	Downscale  int

	SaveEvery  int  // checkpoint interval in iterations; <=0 disables
	Validation bool // hold out one image and report convergence

	KeepWorkspace bool
	DryRun        bool
	NoLog         bool
}

// Validate checks option values that do not depend on the filesystem.
// Input-path existence and mode conflicts are the input resolver's job.
func (c RunConfig) Validate() error {
	if c.Iterations <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("--iters must be positive, got %d", c.Iterations)}
	}
	switch c.Downscale {
	case 1, 2, 4:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("--downscale must be 1, 2 or 4, got %d", c.Downscale)}
	}
	if c.VideoPath != "" && c.Frames <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("--frames must be positive, got %d", c.Frames)}
	}
	return nil
}
