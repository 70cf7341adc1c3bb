// Package invoke provides the process-execution seam for pipeline stages.
// The interfaces mirror os/exec closely enough for production use while the
// mock implementations let the stage pipeline be tested without running a
// single external binary.
package invoke

import (
	"errors"
	"io"
	"os/exec"
)

// CommandExecutor runs one external process synchronously.
type CommandExecutor interface {
	// Run executes the command, blocks until it exits, and returns the
	// combined stdout+stderr.
	Run() ([]byte, error)

	// SetOutput tees the process output to w while it runs, in addition to
	// the capture Run returns. Used to pass trainer output through to the
	// user's terminal.
	SetOutput(w io.Writer)
}

// CommandBuilder constructs executors and resolves tool locations.
type CommandBuilder interface {
	// BuildCommand creates a CommandExecutor for the given binary and args.
	BuildCommand(name string, args ...string) CommandExecutor

	// LookPath resolves name against the execution search path.
	LookPath(name string) (string, error)
}

// ExitCode extracts the process exit status from a Run error. Returns 0 for
// nil and -1 when the error carries no exit status (startup failure, mock).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// RealCommandExecutor wraps exec.Cmd.
type RealCommandExecutor struct {
	cmd *exec.Cmd
	tee io.Writer
}

// Run executes the command and returns the combined output.
func (r *RealCommandExecutor) Run() ([]byte, error) {
	if r.tee == nil {
		return r.cmd.CombinedOutput()
	}
	var buf teeBuffer
	buf.w = r.tee
	r.cmd.Stdout = &buf
	r.cmd.Stderr = &buf
	err := r.cmd.Run()
	return buf.captured, err
}

// SetOutput tees process output to w.
func (r *RealCommandExecutor) SetOutput(w io.Writer) {
	r.tee = w
}

type teeBuffer struct {
	w        io.Writer
	captured []byte
}

func (b *teeBuffer) Write(p []byte) (int, error) {
	b.captured = append(b.captured, p...)
	return b.w.Write(p)
}

// RealCommandBuilder implements CommandBuilder using os/exec.
type RealCommandBuilder struct{}

// NewRealCommandBuilder creates a new RealCommandBuilder.
func NewRealCommandBuilder() *RealCommandBuilder {
	return &RealCommandBuilder{}
}

// BuildCommand creates an executor for the given binary and arguments.
func (b *RealCommandBuilder) BuildCommand(name string, args ...string) CommandExecutor {
	return &RealCommandExecutor{cmd: exec.Command(name, args...)}
}

// LookPath resolves name on the search path.
func (b *RealCommandBuilder) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
