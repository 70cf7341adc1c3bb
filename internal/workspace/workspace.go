// Package workspace derives and manages the on-disk layout owned by one
// pipeline run.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/splatforge/splatforge/internal/fsutil"
)

// WorkspaceError reports a failure to create, lock, or clean the run layout.
type WorkspaceError struct {
	Op  string
	Err error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s: %v", e.Op, e.Err)
}

func (e *WorkspaceError) Unwrap() error { return e.Err }

const (
	// LockFileName is the advisory lock guarding one run per output name.
	LockFileName = ".splatforge.lock"
	// DatabaseFileName is the COLMAP database inside the project directory.
	DatabaseFileName = "database.db"
)

// Workspace is the directory tree for one run. All paths derive
// deterministically from the output name and the root.
type Workspace struct {
	fsys fsutil.FileSystem

	ProjectDir   string
	ImagesDir    string
	SparseDir    string
	DatabasePath string
	ArtifactPath string

	lockPath string
	locked   bool
}

// New derives the layout for the given output name under root.
func New(fsys fsutil.FileSystem, root, name string) *Workspace {
	project := filepath.Join(root, name)
	return &Workspace{
		fsys:         fsys,
		ProjectDir:   project,
		ImagesDir:    filepath.Join(project, "images"),
		SparseDir:    filepath.Join(project, "sparse"),
		DatabasePath: filepath.Join(project, DatabaseFileName),
		ArtifactPath: filepath.Join(project, name+".splat"),
		lockPath:     filepath.Join(project, LockFileName),
	}
}

// ReconstructionDir returns the path of the indexed model directory the
// mapper writes under sparse/. COLMAP numbers models from 0.
func (w *Workspace) ReconstructionDir(index int) string {
	return filepath.Join(w.SparseDir, strconv.Itoa(index))
}

// Create makes the project, images and sparse directories and takes the
// advisory lock. A held lock means another run owns this output name.
func (w *Workspace) Create() error {
	for _, dir := range []string{w.ProjectDir, w.ImagesDir, w.SparseDir} {
		if err := w.fsys.MkdirAll(dir, 0755); err != nil {
			return &WorkspaceError{Op: "create " + dir, Err: err}
		}
	}

	pid := strconv.Itoa(os.Getpid()) + "\n"
	if err := w.fsys.CreateExclusive(w.lockPath, []byte(pid)); err != nil {
		return &WorkspaceError{
			Op:  "lock",
			Err: fmt.Errorf("another run may own %s; remove %s if it is stale: %w", w.ProjectDir, w.lockPath, err),
		}
	}
	w.locked = true
	return nil
}

// Unlock releases the advisory lock. Safe to call more than once, and on a
// workspace that never locked.
func (w *Workspace) Unlock() {
	if !w.locked {
		return
	}
	w.fsys.Remove(w.lockPath)
	w.locked = false
}

// Cleanup removes the intermediate artifacts (images directory, sparse
// directory, database file), leaving only the final .splat artifact(s).
// Missing targets are not errors, so Cleanup is idempotent. The pipeline
// calls this only after the terminal stage succeeds; a failed run keeps the
// whole workspace for diagnosis.
func (w *Workspace) Cleanup() error {
	for _, path := range []string{w.ImagesDir, w.SparseDir} {
		if err := w.fsys.RemoveAll(path); err != nil {
			return &WorkspaceError{Op: "cleanup " + path, Err: err}
		}
	}
	if w.fsys.Exists(w.DatabasePath) {
		if err := w.fsys.Remove(w.DatabasePath); err != nil {
			return &WorkspaceError{Op: "cleanup " + w.DatabasePath, Err: err}
		}
	}
	return nil
}
