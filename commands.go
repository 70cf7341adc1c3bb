package main

import (
	"bytes"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/splatforge/splatforge/internal/config"
	"github.com/splatforge/splatforge/internal/fsutil"
	"github.com/splatforge/splatforge/internal/input"
	"github.com/splatforge/splatforge/internal/invoke"
	"github.com/splatforge/splatforge/internal/monitoring"
	"github.com/splatforge/splatforge/internal/pipeline"
	"github.com/splatforge/splatforge/internal/report"
	"github.com/splatforge/splatforge/internal/runlog"
	"github.com/splatforge/splatforge/internal/workspace"
)

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	video := fs.String("video", "", "Source video path")
	images := fs.String("images", "", "Pre-extracted image folder")
	frames := fs.Int("frames", config.DefaultFrames, "Frames to sample from the video")
	iters := fs.Int("iters", config.DefaultIterations, "Training iterations")
	downscale := fs.Int("downscale", config.DefaultDownscale, "Training downscale factor (1, 2 or 4)")
	output := fs.String("output", "", "Base name for workspace and artifact (derived from input when empty)")
	saveEvery := fs.Int("save-every", 0, "Checkpoint interval in iterations (<=0 disables)")
	val := fs.Bool("val", false, "Hold out one image and report convergence (off unless set)")
	preset := fs.String("preset", "", "Named parameter preset from presets.yaml")
	keep := fs.Bool("keep-workspace", false, "Keep intermediate files after success")
	dryRun := fs.Bool("dry-run", false, "Print stage commands without executing")
	noLog := fs.Bool("no-log", false, "Do not record this run in the run ledger")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if !*debug {
		monitoring.SetLogger(nil)
	}

	tools, err := config.LoadTools()
	if err != nil {
		fatal(err)
	}

	cfg := config.RunConfig{
		VideoPath:     *video,
		ImagesPath:    *images,
		OutputName:    *output,
		Frames:        *frames,
		Iterations:    *iters,
		Downscale:     *downscale,
		SaveEvery:     *saveEvery,
		Validation:    *val,
		KeepWorkspace: *keep,
		DryRun:        *dryRun,
		NoLog:         *noLog,
	}

	if *preset != "" {
		if err := overlayPreset(&cfg, *preset, explicitFlags(fs)); err != nil {
			fatal(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	osfs := fsutil.OSFileSystem{}
	res, err := input.Resolve(osfs, cfg.VideoPath, cfg.ImagesPath, cfg.OutputName)
	if err != nil {
		fatal(err)
	}

	runner := &pipeline.Runner{
		Builder: invoke.NewRealCommandBuilder(),
		DryRun:  cfg.DryRun,
		Stream:  os.Stdout,
	}
	p, err := buildRun(osfs, runner, tools, cfg, res, ".")
	if err != nil {
		fatal(err)
	}
	ws := p.WS
	defer ws.Unlock()

	fmt.Printf("Building splat %q from %s %s (%d iterations)\n",
		res.OutputName, res.Mode, res.Path, cfg.Iterations)

	var spinner *stageSpinner
	p.OnStageStart = func(name string) {
		if cfg.DryRun {
			return
		}
		fmt.Printf("Running %s...\n", name)
		// The trainer's output streams to the terminal; a spinner would
		// garble it.
		if name != pipeline.StateSplatting.String() {
			spinner = startSpinner(name)
		}
	}
	p.OnStageDone = func(res pipeline.StageResult) {
		if spinner != nil {
			spinner.stop()
			spinner = nil
		}
		if cfg.DryRun {
			return
		}
		if res.Status == "ok" {
			fmt.Printf("  ✓ %s (%s)\n", res.Stage, res.Duration.Round(100*time.Millisecond))
		}
	}

	started := time.Now()
	runErr := p.Run()

	if !cfg.NoLog && !cfg.DryRun {
		recordRun(tools.LedgerPath, cfg, res, ws.ArtifactPath, started, runErr, p.Results())
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "\nPipeline aborted: %v\n", runErr)
		fmt.Fprintf(os.Stderr, "Workspace left intact for inspection: %s\n", ws.ProjectDir)
		ws.Unlock()
		os.Exit(1)
	}

	if cfg.DryRun {
		fmt.Println("\nDry run complete; nothing was executed.")
		return
	}
	fmt.Printf("\n✓ Splat complete: %s (%s)\n", ws.ArtifactPath, time.Since(started).Round(time.Second))
}

func handleHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dbPath := fs.String("db", "", "Run ledger path (default: SPLATFORGE_DB or ~/.splatforge/runs.db)")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	fs.Parse(args)

	monitoring.SetLogger(nil)

	db, err := openLedger(*dbPath)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	runs, err := db.ListRuns(*limit)
	if err != nil {
		fatal(err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tINPUT\tOUTPUT\tSTATUS\tDURATION\tARTIFACT")
	for _, r := range runs {
		status := r.Status
		if r.Status == "failed" && r.FailedStage != "" {
			status = fmt.Sprintf("failed (%s)", r.FailedStage)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID[:8],
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Input,
			r.OutputName,
			status,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Artifact,
		)
	}
	w.Flush()
}

func handleReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", "", "Run ledger path (default: SPLATFORGE_DB or ~/.splatforge/runs.db)")
	runID := fs.String("run", "", "Run ID (default: latest run)")
	out := fs.String("out", "splatforge-report.html", "Output HTML file")
	fs.Parse(args)

	monitoring.SetLogger(nil)

	db, err := openLedger(*dbPath)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	var buf bytes.Buffer
	if err := buildRunReport(db, *runID, &buf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			fmt.Println("No runs recorded yet.")
			return
		}
		fatal(err)
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0644); err != nil {
		fatal(err)
	}
	fmt.Printf("Report written to %s\n", *out)
}

// buildRunReport renders the stage chart for one run (the latest when runID
// is empty) into w. An empty ledger surfaces as sql.ErrNoRows.
func buildRunReport(db *runlog.DB, runID string, w io.Writer) error {
	run, err := db.GetRun(runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	stages, err := db.StagesForRun(run.ID)
	if err != nil {
		return err
	}
	return report.WriteStageChart(w, run, stages)
}

// buildRun wires a pipeline for one invocation. The tool preflight runs
// before the workspace is created, so a missing collaborator never takes the
// advisory lock; the first thing on disk is the layout of a run that can
// actually start.
func buildRun(fsys fsutil.FileSystem, runner *pipeline.Runner, tools config.Tools, cfg config.RunConfig, res input.Resolved, root string) (*pipeline.Pipeline, error) {
	ws := workspace.New(fsys, root, res.OutputName)
	p := &pipeline.Pipeline{
		Config: cfg,
		Input:  res,
		WS:     ws,
		FS:     fsys,
		Runner: runner,
		Tools:  tools,
	}
	if err := runner.Preflight(p.RequiredTools()...); err != nil {
		return nil, err
	}
	if err := ws.Create(); err != nil {
		return nil, err
	}
	return p, nil
}

// openLedger opens the run ledger at an explicit path, falling back to the
// environment-configured location.
func openLedger(path string) (*runlog.DB, error) {
	if path == "" {
		tools, err := config.LoadTools()
		if err != nil {
			return nil, err
		}
		path = tools.LedgerPath
	}
	return runlog.Open(path)
}

// recordRun writes the run and its stage timings to the ledger.
// Best-effort: a ledger problem is a warning, never a pipeline failure.
func recordRun(ledgerPath string, cfg config.RunConfig, res input.Resolved, artifact string, started time.Time, runErr error, results []pipeline.StageResult) {
	db, err := runlog.Open(ledgerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run ledger unavailable: %v\n", err)
		return
	}
	defer db.Close()

	run := runlog.Run{
		StartedAt:  started,
		FinishedAt: time.Now(),
		Mode:       res.Mode.String(),
		Input:      res.Path,
		OutputName: res.OutputName,
		Frames:     cfg.Frames,
		Iterations: cfg.Iterations,
		Downscale:  cfg.Downscale,
		SaveEvery:  cfg.SaveEvery,
		Validation: cfg.Validation,
		Status:     "success",
		Artifact:   artifact,
	}
	if runErr != nil {
		run.Status = "failed"
		run.Artifact = ""
		for _, r := range results {
			if r.Status == "failed" {
				run.FailedStage = r.Stage
			}
		}
	}

	if err := db.InsertRun(&run); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record run: %v\n", err)
		return
	}
	var stages []runlog.StageRecord
	for _, r := range results {
		stages = append(stages, runlog.StageRecord{
			Stage:      r.Stage,
			Status:     r.Status,
			DurationMS: r.Duration.Milliseconds(),
			ExitCode:   r.ExitCode,
		})
	}
	if err := db.InsertStages(run.ID, stages); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record stage timings: %v\n", err)
	}
}

// explicitFlags returns the names of the flags the user set on the command
// line, so presets only fill in what was left at its default.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// overlayPreset loads the named preset and applies the fields the user did
// not override on the command line.
func overlayPreset(cfg *config.RunConfig, name string, set map[string]bool) error {
	path, err := config.PresetsFile()
	if err != nil {
		return err
	}
	presets, err := config.LoadPresets(path)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}
	p, ok := presets[name]
	if !ok {
		return &config.ConfigurationError{Reason: fmt.Sprintf("unknown preset %q in %s", name, path)}
	}
	maskPreset(&p, set)
	p.Apply(cfg)
	return nil
}

// maskPreset blanks the preset fields whose flags were set explicitly, so an
// explicit flag always beats the preset.
func maskPreset(p *config.Preset, set map[string]bool) {
	if set["frames"] {
		p.Frames = nil
	}
	if set["iters"] {
		p.Iterations = nil
	}
	if set["downscale"] {
		p.Downscale = nil
	}
	if set["save-every"] {
		p.SaveEvery = nil
	}
	if set["val"] {
		p.Validation = nil
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// stageSpinner shows activity while a stage's collaborator runs.
type stageSpinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
}

func startSpinner(name string) *stageSpinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("  "+name),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	s := &stageSpinner{bar: bar, done: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.bar.Add(1)
			}
		}
	}()
	return s
}

func (s *stageSpinner) stop() {
	close(s.done)
	s.bar.Finish()
}
