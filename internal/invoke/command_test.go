package invoke

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestRealCommandExecutor_Run(t *testing.T) {
	b := NewRealCommandBuilder()

	out, err := b.BuildCommand("echo", "hello").Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !strings.Contains(string(out), "hello") {
		t.Errorf("output = %q, want it to contain %q", out, "hello")
	}
}

func TestRealCommandExecutor_SetOutputTees(t *testing.T) {
	b := NewRealCommandBuilder()

	var tee bytes.Buffer
	cmd := b.BuildCommand("echo", "streamed")
	cmd.SetOutput(&tee)

	out, err := cmd.Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !strings.Contains(tee.String(), "streamed") {
		t.Errorf("tee = %q, want streamed output", tee.String())
	}
	if !strings.Contains(string(out), "streamed") {
		t.Errorf("capture = %q, want streamed output", out)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
	if got := ExitCode(errors.New("mock failure")); got != -1 {
		t.Errorf("ExitCode(plain error) = %d, want -1", got)
	}

	// A real non-zero exit carries its status.
	_, err := NewRealCommandBuilder().BuildCommand("sh", "-c", "exit 3").Run()
	if err == nil {
		t.Fatal("expected non-zero exit")
	}
	if got := ExitCode(err); got != 3 {
		t.Errorf("ExitCode(exit 3) = %d, want 3", got)
	}
}

func TestRealCommandBuilder_LookPath(t *testing.T) {
	b := NewRealCommandBuilder()
	if _, err := b.LookPath("sh"); err != nil {
		t.Errorf("LookPath(sh) failed: %v", err)
	}
	if _, err := b.LookPath("definitely-not-a-real-tool-xyz"); err == nil {
		t.Error("LookPath should fail for a nonexistent tool")
	}
}

func TestMockCommandBuilder_RecordsCommands(t *testing.T) {
	b := NewMockCommandBuilder()

	b.BuildCommand("colmap", "feature_extractor", "--database_path", "db")
	b.BuildCommand("opensplat", "sparse/0")

	if len(b.Commands) != 2 {
		t.Fatalf("recorded %d commands, want 2", len(b.Commands))
	}
	if got := b.CommandsFor("colmap"); len(got) != 1 || got[0].Args[0] != "feature_extractor" {
		t.Errorf("CommandsFor(colmap) = %v", got)
	}
}

func TestMockCommandBuilder_LookPath(t *testing.T) {
	b := NewMockCommandBuilder()
	b.MissingTools = map[string]bool{"opensplat": true}

	if _, err := b.LookPath("colmap"); err != nil {
		t.Errorf("LookPath(colmap) failed: %v", err)
	}
	_, err := b.LookPath("opensplat")
	if err == nil {
		t.Fatal("LookPath(opensplat) should fail")
	}
	var ee *exec.Error
	if !errors.As(err, &ee) {
		t.Errorf("error type = %T, want *exec.Error", err)
	}
}

func TestMockCommandExecutor_Hook(t *testing.T) {
	hookRan := false
	m := &MockCommandExecutor{
		Output: []byte("ok"),
		Hook:   func() error { hookRan = true; return nil },
	}

	out, err := m.Run()
	if err != nil || string(out) != "ok" {
		t.Errorf("Run() = %q, %v", out, err)
	}
	if !hookRan {
		t.Error("hook should run")
	}
	if !m.RunCalled {
		t.Error("RunCalled should be set")
	}
}
