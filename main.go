// splatforge turns a video or a folder of images into a 3D Gaussian Splat by
// driving COLMAP and OpenSplat through a fixed, fail-fast stage pipeline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/splatforge/splatforge/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "run":
		handleRun(args)
	case "history":
		handleHistory(args)
	case "report":
		handleReport(args)
	case "version":
		fmt.Printf("splatforge version %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`splatforge - video / image-folder to 3D Gaussian Splat pipeline

Usage: splatforge <command> [options]

Commands:
  run        Run the full pipeline on a video or image folder
  history    List recent runs from the local run ledger
  report     Render an HTML chart of a run's per-stage timings
  version    Show splatforge version
  help       Show this help message

Run options:
  --video <path>      Source video (mutually exclusive with --images)
  --images <dir>      Pre-extracted image folder (mutually exclusive with --video)
  --frames <n>        Frames to sample from the video (default 200)
  --iters <n>         Training iterations (default 2000)
  --downscale <n>     Training downscale factor: 1, 2 or 4 (default 1)
  --output <name>     Base name for the workspace and artifact
                      (derived from the input name when omitted)
  --save-every <n>    Save a checkpoint every n iterations (<=0 disables)
  --val               Hold out one image and report convergence at the end
  --preset <name>     Apply a named parameter preset from presets.yaml
  --keep-workspace    Keep intermediate files after a successful run
  --dry-run           Print each stage's command line without executing
  --no-log            Do not record this run in the run ledger
  --debug             Enable debug logging

Environment:
  SPLATFORGE_COLMAP      COLMAP binary (default: colmap)
  SPLATFORGE_OPENSPLAT   OpenSplat binary (default: opensplat)
  SPLATFORGE_SAMPLER     Frame sampler binary (default: frame-sampler)
  SPLATFORGE_DB          Run ledger path (default: ~/.splatforge/runs.db)
  Values may also be placed in a .env file in the working directory.

Examples:
  # Full pipeline from a phone video
  splatforge run --video IMG_2149.MOV --frames 150 --iters 30000

  # Pre-extracted frames, with periodic checkpoints and validation
  splatforge run --images ./garden --save-every 1000 --val

  # Inspect what would run, without touching COLMAP
  splatforge run --video clip.mp4 --dry-run

  # Timing chart for the latest run
  splatforge report --out run.html`)
}
