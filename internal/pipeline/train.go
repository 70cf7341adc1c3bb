package pipeline

import (
	"strconv"

	"github.com/splatforge/splatforge/internal/config"
)

// trainingArgs translates the run options into the trainer's argument list.
// The checkpoint interval and validation flag are purely advisory: the
// trainer owns checkpoint files and the convergence metric; we only ask.
func trainingArgs(reconDir, artifactPath string, cfg config.RunConfig) []string {
	args := []string{
		reconDir,
		"-n", strconv.Itoa(cfg.Iterations),
		"--downscale-factor", strconv.Itoa(cfg.Downscale),
		"-o", artifactPath,
	}
	if cfg.SaveEvery > 0 {
		args = append(args, "--save-every", strconv.Itoa(cfg.SaveEvery))
	}
	if cfg.Validation {
		args = append(args, "--val")
	}
	return args
}
