package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/splatforge/splatforge/internal/input"
	"github.com/splatforge/splatforge/internal/monitoring"
)

// trainerImagesAlias is the relative path the trainer follows from the
// reconstruction directory to reach the source images.
const trainerImagesAlias = "../../images"

// stages returns the run's ordered stage list. Each entry is declarative:
// the state it represents, the command (or local action) to perform, and the
// post-condition that decides success beyond the exit status.
func (p *Pipeline) stages() []stage {
	ingest := stage{state: StateIngest}
	if p.Input.Mode == input.ModeVideo {
		ingest.command = func(p *Pipeline) (string, []string) {
			return p.Tools.Sampler, []string{
				p.Input.Path,
				"-n", strconv.Itoa(p.Config.Frames),
				"-o", p.WS.ImagesDir,
			}
		}
	} else {
		ingest.action = (*Pipeline).copyImages
		ingest.describe = fmt.Sprintf("copy images from %s into %s", p.Input.Path, p.WS.ImagesDir)
	}
	ingest.post = (*Pipeline).requireIngestedImages

	return []stage{
		ingest,
		{
			state: StateFeatureDetection,
			command: func(p *Pipeline) (string, []string) {
				return p.Tools.Colmap, []string{
					"feature_extractor",
					"--database_path", p.WS.DatabasePath,
					"--image_path", p.WS.ImagesDir,
					"--ImageReader.single_camera", "1",
					"--ImageReader.camera_model", "SIMPLE_PINHOLE",
				}
			},
			// The database is opaque to us; a zero exit is the contract.
		},
		{
			state: StateFeatureMatching,
			command: func(p *Pipeline) (string, []string) {
				// Exhaustive pairwise matching: every image pair is
				// considered. No approximate strategy is selectable.
				return p.Tools.Colmap, []string{
					"exhaustive_matcher",
					"--database_path", p.WS.DatabasePath,
				}
			},
		},
		{
			state: StateSparseReconstruction,
			command: func(p *Pipeline) (string, []string) {
				return p.Tools.Colmap, []string{
					"mapper",
					"--database_path", p.WS.DatabasePath,
					"--image_path", p.WS.ImagesDir,
					"--output_path", p.WS.SparseDir,
				}
			},
			post: (*Pipeline).requireReconstruction,
		},
		{
			state:   StateSplatting,
			prepare: (*Pipeline).linkImagesForTrainer,
			command: func(p *Pipeline) (string, []string) {
				return p.Tools.OpenSplat, trainingArgs(p.WS.ReconstructionDir(0), p.WS.ArtifactPath, p.Config)
			},
			post:   (*Pipeline).requireArtifact,
			stream: true,
		},
	}
}

// copyImages performs folder-mode ingest: every accepted image from the
// source folder is copied into the workspace images directory.
func (p *Pipeline) copyImages() error {
	names, err := input.ListImages(p.FS, p.Input.Path)
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := p.FS.ReadFile(filepath.Join(p.Input.Path, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := p.FS.WriteFile(filepath.Join(p.WS.ImagesDir, name), data, 0644); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}
	monitoring.Logf("ingest: copied %d images from %s", len(names), p.Input.Path)
	return nil
}

// requireIngestedImages is the ingest post-condition: at least one accepted
// image must be present in the images directory.
func (p *Pipeline) requireIngestedImages() error {
	names, err := input.ListImages(p.FS, p.WS.ImagesDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no images were produced in %s", p.WS.ImagesDir)
	}
	return nil
}

// requireReconstruction checks for the indexed model directory the mapper
// writes on success. Its absence means COLMAP registered too few images.
func (p *Pipeline) requireReconstruction() error {
	dir := p.WS.ReconstructionDir(0)
	info, err := p.FS.Stat(dir)
	if err != nil || !info.IsDir() {
		return &ReconstructionFailed{SparseDir: p.WS.SparseDir}
	}
	return nil
}

// linkImagesForTrainer creates the ephemeral alias the trainer expects:
// images reachable via a fixed relative link from the reconstruction
// directory. An alias left behind by a previous attempt is reused.
func (p *Pipeline) linkImagesForTrainer() error {
	alias := filepath.Join(p.WS.ReconstructionDir(0), "images")
	if p.FS.Exists(alias) {
		return nil
	}
	if err := p.FS.Symlink(trainerImagesAlias, alias); err != nil {
		return fmt.Errorf("link images for trainer: %w", err)
	}
	return nil
}

// requireArtifact is the splatting post-condition: the final artifact must
// exist as a non-empty file.
func (p *Pipeline) requireArtifact() error {
	info, err := p.FS.Stat(p.WS.ArtifactPath)
	if err != nil {
		return fmt.Errorf("trainer did not produce %s", p.WS.ArtifactPath)
	}
	if info.Size() == 0 {
		return fmt.Errorf("trainer produced an empty artifact at %s", p.WS.ArtifactPath)
	}
	return nil
}
