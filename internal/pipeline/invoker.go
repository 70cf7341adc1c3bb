package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/splatforge/splatforge/internal/invoke"
	"github.com/splatforge/splatforge/internal/monitoring"
)

// Runner executes one external collaborator per stage: synchronous, no
// timeout, no retries. Any failure is fatal to the pipeline.
type Runner struct {
	Builder invoke.CommandBuilder
	DryRun  bool
	// Stream receives collaborator output for stages that pass it through
	// to the user (splat training). Nil discards it.
	Stream io.Writer
}

// Preflight resolves every required tool up front so a missing collaborator
// fails the run before any stage executes, not mid-pipeline.
func (r *Runner) Preflight(tools ...string) error {
	for _, tool := range tools {
		path, err := r.Builder.LookPath(tool)
		if err != nil {
			return &DependencyMissing{Tool: tool}
		}
		monitoring.Logf("preflight: %s -> %s", tool, path)
	}
	return nil
}

// run invokes one collaborator and blocks until it exits. A non-zero exit
// becomes a StageFailure carrying the tail of the combined output.
func (r *Runner) run(stage, bin string, args []string, stream bool) error {
	if r.DryRun {
		fmt.Printf("[DRY-RUN] Would execute: %s %s\n", bin, strings.Join(args, " "))
		return nil
	}

	monitoring.Logf("stage %s: %s %s", stage, bin, strings.Join(args, " "))

	cmd := r.Builder.BuildCommand(bin, args...)
	if stream && r.Stream != nil {
		cmd.SetOutput(r.Stream)
	}
	out, err := cmd.Run()
	if err != nil {
		return &StageFailure{
			Stage:    stage,
			ExitCode: invoke.ExitCode(err),
			Output:   tail(out),
			Err:      err,
		}
	}
	return nil
}
