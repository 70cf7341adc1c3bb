package pipeline

import (
	"fmt"
	"strings"
)

// DependencyMissing reports a required external tool that could not be
// resolved during preflight. Raised before any stage runs.
type DependencyMissing struct {
	Tool string
}

func (e *DependencyMissing) Error() string {
	return fmt.Sprintf("required tool not found: %s (install it or point the matching SPLATFORGE_* variable at it)", e.Tool)
}

// StageFailure reports a stage whose process exited non-zero or whose
// declared output was not produced. Any stage failure aborts the pipeline.
type StageFailure struct {
	Stage    string
	ExitCode int
	Output   string
	Err      error
}

func (e *StageFailure) Error() string {
	msg := fmt.Sprintf("stage %s failed (exit %d)", e.Stage, e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *StageFailure) Unwrap() error { return e.Err }

// ReconstructionFailed reports that COLMAP's mapper produced no model.
// This is the most common real-world failure, so the message tells the user
// what to actually do about it.
type ReconstructionFailed struct {
	SparseDir string
}

func (e *ReconstructionFailed) Error() string {
	return fmt.Sprintf("sparse reconstruction produced no model under %s; COLMAP could not register the images. Retry with a higher --frames count or capture footage with more overlap between views", e.SparseDir)
}

// tail returns the last few lines of collaborator output for diagnostics.
func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
