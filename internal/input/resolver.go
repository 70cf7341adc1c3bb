// Package input resolves where the pipeline's initial image set comes from.
package input

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/splatforge/splatforge/internal/config"
	"github.com/splatforge/splatforge/internal/fsutil"
)

// Mode selects the source of the initial image set.
type Mode int

const (
	ModeVideo Mode = iota
	ModeImageFolder
)

func (m Mode) String() string {
	switch m {
	case ModeVideo:
		return "video"
	case ModeImageFolder:
		return "images"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// NotFoundError reports a supplied input path that does not exist or is the
// wrong kind of filesystem object.
type NotFoundError struct {
	Path string
	Kind string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Path)
}

// EmptyInputError reports an image folder without a single usable image.
type EmptyInputError struct {
	Dir string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no images (png/jpg/jpeg) found in %s", e.Dir)
}

// Resolved is the outcome of input resolution: the chosen mode, the input
// path, and the output name the workspace will be derived from.
type Resolved struct {
	Mode       Mode
	Path       string
	OutputName string
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsImage reports whether name carries an accepted image extension
// (case-insensitive).
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Resolve decides the input mode from the raw video/images options and
// derives the output name when none was given. It is pure apart from
// read-only filesystem probes; all directory creation belongs to the
// workspace manager.
func Resolve(fsys fsutil.FileSystem, videoPath, imagesPath, outputName string) (Resolved, error) {
	switch {
	case videoPath != "" && imagesPath != "":
		return Resolved{}, &config.ConfigurationError{Reason: "--video and --images are mutually exclusive"}
	case videoPath == "" && imagesPath == "":
		return Resolved{}, &config.ConfigurationError{Reason: "one of --video or --images is required"}
	}

	if videoPath != "" {
		info, err := fsys.Stat(videoPath)
		if err != nil || info.IsDir() {
			return Resolved{}, &NotFoundError{Path: videoPath, Kind: "video file"}
		}
		name := outputName
		if name == "" {
			base := filepath.Base(videoPath)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		return Resolved{Mode: ModeVideo, Path: videoPath, OutputName: name}, nil
	}

	info, err := fsys.Stat(imagesPath)
	if err != nil || !info.IsDir() {
		return Resolved{}, &NotFoundError{Path: imagesPath, Kind: "image directory"}
	}
	images, err := ListImages(fsys, imagesPath)
	if err != nil {
		return Resolved{}, err
	}
	if len(images) == 0 {
		return Resolved{}, &EmptyInputError{Dir: imagesPath}
	}
	name := outputName
	if name == "" {
		name = filepath.Base(filepath.Clean(imagesPath))
	}
	return Resolved{Mode: ModeImageFolder, Path: imagesPath, OutputName: name}, nil
}

// ListImages returns the accepted image filenames directly inside dir,
// sorted by name. Subdirectories are not descended into.
func ListImages(fsys fsutil.FileSystem, dir string) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
