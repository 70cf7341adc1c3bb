package invoke

import (
	"io"
	"os/exec"
)

// MockCommandExecutor implements CommandExecutor for testing.
type MockCommandExecutor struct {
	// Output is returned from Run.
	Output []byte
	// Err is returned from Run.
	Err error
	// Hook, when set, runs inside Run before returning; tests use it to
	// simulate the filesystem side effects of a collaborator.
	Hook func() error
	// RunCalled indicates whether Run was called.
	RunCalled bool

	tee io.Writer
}

// Run returns the configured output and error after running the hook.
func (m *MockCommandExecutor) Run() ([]byte, error) {
	m.RunCalled = true
	if m.Hook != nil {
		if err := m.Hook(); err != nil {
			return m.Output, err
		}
	}
	if m.tee != nil && len(m.Output) > 0 {
		m.tee.Write(m.Output)
	}
	return m.Output, m.Err
}

// SetOutput records the tee writer.
func (m *MockCommandExecutor) SetOutput(w io.Writer) {
	m.tee = w
}

// MockBuiltCommand records one command the pipeline asked for.
type MockBuiltCommand struct {
	Name string
	Args []string
}

// MockCommandBuilder implements CommandBuilder for testing.
type MockCommandBuilder struct {
	// Commands records every command built, in order.
	Commands []MockBuiltCommand
	// ExecutorFactory creates the executor for a command. Nil means a
	// default succeeding executor.
	ExecutorFactory func(name string, args []string) *MockCommandExecutor
	// MissingTools lists tool names LookPath should fail for.
	MissingTools map[string]bool
}

// NewMockCommandBuilder creates a new MockCommandBuilder.
func NewMockCommandBuilder() *MockCommandBuilder {
	return &MockCommandBuilder{}
}

// BuildCommand records the command and returns its executor.
func (b *MockCommandBuilder) BuildCommand(name string, args ...string) CommandExecutor {
	b.Commands = append(b.Commands, MockBuiltCommand{Name: name, Args: args})
	if b.ExecutorFactory != nil {
		return b.ExecutorFactory(name, args)
	}
	return &MockCommandExecutor{}
}

// LookPath succeeds for any tool not listed in MissingTools.
func (b *MockCommandBuilder) LookPath(name string) (string, error) {
	if b.MissingTools[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/local/bin/" + name, nil
}

// CommandsFor returns the recorded commands whose binary name matches.
func (b *MockCommandBuilder) CommandsFor(name string) []MockBuiltCommand {
	var out []MockBuiltCommand
	for _, c := range b.Commands {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
