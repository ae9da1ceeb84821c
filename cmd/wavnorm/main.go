// Command wavnorm converts every file in a directory to mono 8 kHz 16-bit
// PCM WAV, downloading ffmpeg first when it is not already present.
//
// It parses configuration (file, environment, flags), provisions the tools,
// and either runs diagnostics (--check) or the batch conversion.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/backmassage/wavnorm/internal/check"
	"github.com/backmassage/wavnorm/internal/config"
	"github.com/backmassage/wavnorm/internal/display"
	"github.com/backmassage/wavnorm/internal/logging"
	"github.com/backmassage/wavnorm/internal/pipeline"
	"github.com/backmassage/wavnorm/internal/provision"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg := config.DefaultConfig()
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "wavnorm: %v\n", err)
		return 1
	}
	if err := config.ParseFlags(&cfg, args, version); err != nil {
		switch {
		case errors.Is(err, config.ErrHelp):
			return 0
		case errors.Is(err, config.ErrUsage):
			// Usage text already printed.
		default:
			fmt.Fprintf(os.Stderr, "wavnorm: %v\n", err)
		}
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "wavnorm: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavnorm: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available. All output goes through log from here on.
	display.PrintBanner(os.Stdout)
	log.Info("=== wavnorm v%s (%s) ===", version, commit)

	// Input is validated before provisioning.
	if !cfg.CheckOnly {
		inputAbs, err := absPath(cfg.InputDir)
		if err != nil {
			log.Error("Input not found: %s", cfg.InputDir)
			return 1
		}
		if fi, err := os.Stat(inputAbs); err != nil || !fi.IsDir() {
			log.Error("Input is not a directory: %s", cfg.InputDir)
			return 1
		}
		cfg.InputDir = inputAbs
		log.Info("In:  %s", cfg.InputDir)
		log.Info("Out: %s", cfg.OutputDir())
	}

	// Phase 3: Signal handling. Cancelling the context kills running
	// ffmpeg processes and stops queued jobs from starting.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			log.Warn("Received interrupt, stopping running conversions…")
			cancel()
		}
	}()

	// Phase 4: Provision ffmpeg (and ffprobe unless --no-probe).
	toolDir, err := cfg.ResolveToolDir()
	if err != nil {
		log.Error("Cannot resolve tool directory: %v", err)
		return 1
	}
	tools, err := provision.New(&cfg, toolDir, log).Ensure(ctx)
	if err != nil {
		log.Error("Cannot provision ffmpeg: %v", err)
		return 1
	}
	log.Info("Using ffmpeg at: %s", tools.Transcoder)
	if tools.HasProber() {
		log.Debug(cfg.Verbose, "Using ffprobe at: %s", tools.Prober)
	}

	if cfg.CheckOnly {
		if err := check.RunCheck(ctx, &cfg, tools, log); err != nil {
			return 1
		}
		return 0
	}

	// Phase 5: Run the batch.
	stats, err := pipeline.Run(ctx, &cfg, tools, log)
	if err != nil {
		log.Error("%v", err)
	}
	return exitCode(stats, err)
}

// exitCode is 1 when the batch could not run or any job failed.
func exitCode(stats pipeline.RunStats, err error) int {
	if err != nil || !stats.OK() {
		return 1
	}
	return 0
}

// absPath returns the absolute, symlink-resolved path of the input directory.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
