// Package pipeline drives a run through the fixed stage sequence that turns
// source footage into a Gaussian splat: ingest, COLMAP feature detection,
// exhaustive matching, sparse reconstruction, then OpenSplat training.
// Stages are strictly sequential, each consuming the full output of its
// predecessor, and any failure aborts the run immediately, leaving the
// workspace intact for inspection.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/splatforge/splatforge/internal/config"
	"github.com/splatforge/splatforge/internal/fsutil"
	"github.com/splatforge/splatforge/internal/input"
	"github.com/splatforge/splatforge/internal/workspace"
)

// State identifies a position in the pipeline's linear state machine.
type State int

const (
	StatePending State = iota
	StateIngest
	StateFeatureDetection
	StateFeatureMatching
	StateSparseReconstruction
	StateSplatting
	StateCleanup
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateIngest:
		return "ingest"
	case StateFeatureDetection:
		return "feature-detection"
	case StateFeatureMatching:
		return "feature-matching"
	case StateSparseReconstruction:
		return "sparse-reconstruction"
	case StateSplatting:
		return "splatting"
	case StateCleanup:
		return "cleanup"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// stage is one declarative entry in the ordered stage list: an optional
// local preparation step, either an external command or a local action, and
// a post-condition on the stage's declared output.
type stage struct {
	state   State
	prepare func(p *Pipeline) error
	command func(p *Pipeline) (string, []string)
	action  func(p *Pipeline) error
	// describe names a local action for the dry-run transcript, which
	// otherwise only shows external command lines.
	describe string
	post     func(p *Pipeline) error
	stream   bool
}

// StageResult records one executed stage for the run ledger.
type StageResult struct {
	Stage    string
	Status   string // "ok" or "failed"
	Duration time.Duration
	ExitCode int
}

// Pipeline holds everything one run needs. Construct it with all fields set
// and call Run once.
type Pipeline struct {
	Config config.RunConfig
	Input  input.Resolved
	WS     *workspace.Workspace
	FS     fsutil.FileSystem
	Runner *Runner
	Tools  config.Tools

	// OnStageStart and OnStageDone are optional UI hooks.
	OnStageStart func(name string)
	OnStageDone  func(res StageResult)

	state   State
	results []StageResult
}

// State returns the pipeline's current position.
func (p *Pipeline) State() State { return p.state }

// Results returns the per-stage records collected so far.
func (p *Pipeline) Results() []StageResult { return p.results }

// RequiredTools lists the external binaries this run will invoke, for the
// preflight check. The frame sampler is only needed in video mode.
func (p *Pipeline) RequiredTools() []string {
	tools := []string{p.Tools.Colmap, p.Tools.OpenSplat}
	if p.Input.Mode == input.ModeVideo {
		tools = append([]string{p.Tools.Sampler}, tools...)
	}
	return tools
}

// Run executes all stages in strict order. The first failure transitions to
// Aborted and returns: no retries, no rollback, and no cleanup, so every
// intermediate artifact stays on disk for diagnosis. Cleanup runs only after
// the terminal stage succeeds.
func (p *Pipeline) Run() error {
	for _, s := range p.stages() {
		p.state = s.state
		if p.OnStageStart != nil {
			p.OnStageStart(s.state.String())
		}

		start := time.Now()
		err := p.execute(s)
		res := StageResult{
			Stage:    s.state.String(),
			Status:   "ok",
			Duration: time.Since(start),
		}
		if err != nil {
			res.Status = "failed"
			var sf *StageFailure
			if errors.As(err, &sf) {
				res.ExitCode = sf.ExitCode
			}
		}
		p.results = append(p.results, res)
		if p.OnStageDone != nil {
			p.OnStageDone(res)
		}
		if err != nil {
			p.state = StateAborted
			return err
		}
	}

	p.state = StateCleanup
	if !p.Config.KeepWorkspace && !p.Config.DryRun {
		if err := p.WS.Cleanup(); err != nil {
			p.state = StateAborted
			return err
		}
	}
	p.state = StateDone
	return nil
}

// execute runs one stage. In dry-run mode only the command line is printed;
// preparation, local actions, and post-conditions are skipped because no
// collaborator output exists to check.
func (p *Pipeline) execute(s stage) error {
	if p.Config.DryRun {
		if s.command != nil {
			bin, args := s.command(p)
			return p.Runner.run(s.state.String(), bin, args, s.stream)
		}
		if s.describe != "" {
			fmt.Printf("[DRY-RUN] Would %s\n", s.describe)
		}
		return nil
	}

	if s.prepare != nil {
		if err := s.prepare(p); err != nil {
			return &StageFailure{Stage: s.state.String(), ExitCode: -1, Output: err.Error(), Err: err}
		}
	}

	if s.command != nil {
		bin, args := s.command(p)
		if err := p.Runner.run(s.state.String(), bin, args, s.stream); err != nil {
			return err
		}
	} else if s.action != nil {
		if err := s.action(p); err != nil {
			return &StageFailure{Stage: s.state.String(), ExitCode: -1, Output: err.Error(), Err: err}
		}
	}

	if s.post != nil {
		if err := s.post(p); err != nil {
			var rf *ReconstructionFailed
			var sf *StageFailure
			if errors.As(err, &rf) || errors.As(err, &sf) {
				return err
			}
			return &StageFailure{Stage: s.state.String(), Output: err.Error(), Err: err}
		}
	}
	return nil
}
