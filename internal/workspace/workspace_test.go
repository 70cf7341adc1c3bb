package workspace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/splatforge/splatforge/internal/fsutil"
)

func TestNew_LayoutDerivation(t *testing.T) {
	ws := New(fsutil.NewMemoryFileSystem(), ".", "IMG_2149")

	want := map[string]string{
		"project":  "IMG_2149",
		"images":   filepath.Join("IMG_2149", "images"),
		"sparse":   filepath.Join("IMG_2149", "sparse"),
		"database": filepath.Join("IMG_2149", "database.db"),
		"artifact": filepath.Join("IMG_2149", "IMG_2149.splat"),
	}
	got := map[string]string{
		"project":  ws.ProjectDir,
		"images":   ws.ImagesDir,
		"sparse":   ws.SparseDir,
		"database": ws.DatabasePath,
		"artifact": ws.ArtifactPath,
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %q, want %q", k, got[k], w)
		}
	}

	if rec := ws.ReconstructionDir(0); rec != filepath.Join("IMG_2149", "sparse", "0") {
		t.Errorf("ReconstructionDir(0) = %q", rec)
	}
}

func TestCreate_MakesDirectories(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	ws := New(m, "out", "scene")

	if err := ws.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	for _, dir := range []string{ws.ProjectDir, ws.ImagesDir, ws.SparseDir} {
		if !m.Exists(dir) {
			t.Errorf("%s should exist after Create()", dir)
		}
	}
	if !m.Exists(filepath.Join(ws.ProjectDir, LockFileName)) {
		t.Error("lock file should exist after Create()")
	}
}

func TestCreate_SecondRunIsRejected(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()

	first := New(m, ".", "scene")
	if err := first.Create(); err != nil {
		t.Fatalf("first Create() failed: %v", err)
	}

	second := New(m, ".", "scene")
	err := second.Create()
	if err == nil {
		t.Fatal("second Create() should fail while the lock is held")
	}
	var we *WorkspaceError
	if !errors.As(err, &we) {
		t.Errorf("error type = %T, want *WorkspaceError", err)
	}

	// After the first run releases the lock, the name is usable again.
	first.Unlock()
	if err := second.Create(); err != nil {
		t.Errorf("Create() after Unlock() failed: %v", err)
	}
}

func TestUnlock_Idempotent(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	ws := New(m, ".", "scene")
	if err := ws.Create(); err != nil {
		t.Fatal(err)
	}
	ws.Unlock()
	ws.Unlock() // must not panic or error

	// Unlock on a workspace that never locked is a no-op.
	New(m, ".", "other").Unlock()
}

func TestCleanup_RemovesIntermediatesOnly(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	ws := New(m, ".", "scene")
	if err := ws.Create(); err != nil {
		t.Fatal(err)
	}

	m.WriteFile(filepath.Join(ws.ImagesDir, "frame_0000.png"), []byte("png"), 0644)
	m.WriteFile(filepath.Join(ws.ReconstructionDir(0), "cameras.bin"), []byte("bin"), 0644)
	m.WriteFile(ws.DatabasePath, []byte("sqlite"), 0644)
	m.WriteFile(ws.ArtifactPath, []byte("splat"), 0644)
	m.WriteFile(filepath.Join(ws.ProjectDir, "scene_1000.splat"), []byte("ckpt"), 0644)

	if err := ws.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}

	for _, gone := range []string{ws.ImagesDir, ws.SparseDir, ws.DatabasePath} {
		if m.Exists(gone) {
			t.Errorf("%s should be removed by Cleanup()", gone)
		}
	}
	if !m.Exists(ws.ArtifactPath) {
		t.Error("final artifact must survive Cleanup()")
	}
	if !m.Exists(filepath.Join(ws.ProjectDir, "scene_1000.splat")) {
		t.Error("checkpoint artifacts must survive Cleanup()")
	}

	// Idempotent: a second pass over missing targets is not an error.
	if err := ws.Cleanup(); err != nil {
		t.Errorf("second Cleanup() should be nil, got %v", err)
	}
}
