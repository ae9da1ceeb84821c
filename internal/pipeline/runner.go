package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/wavnorm/internal/config"
	"github.com/backmassage/wavnorm/internal/display"
	"github.com/backmassage/wavnorm/internal/ffmpeg"
	"github.com/backmassage/wavnorm/internal/logging"
	"github.com/backmassage/wavnorm/internal/probe"
	"github.com/backmassage/wavnorm/internal/provision"
	"github.com/backmassage/wavnorm/internal/wavcheck"
)

// stderrTailLines bounds the ffmpeg output echoed for a failed job.
const stderrTailLines = 20

// outputFormat is what every converted file must decode as.
var outputFormat = wavcheck.Target{
	Channels:   ffmpeg.Channels,
	SampleRate: ffmpeg.SampleRate,
	BitDepth:   ffmpeg.BitDepth,
}

// Run is the top-level batch entry point. It resolves the input directory,
// creates the output directory, builds one job per regular file, runs all
// jobs concurrently and returns once every job has finished.
func Run(ctx context.Context, cfg *config.Config, tools provision.ToolPaths, log *logging.Logger) (RunStats, error) {
	stats := RunStats{RunID: uuid.New()}

	inputDir, err := filepath.Abs(cfg.InputDir)
	if err != nil {
		return stats, fmt.Errorf("resolve input directory: %w", err)
	}
	outputDir := filepath.Join(inputDir, config.OutputDirName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return stats, fmt.Errorf("create output directory: %w", err)
	}

	files, err := Discover(inputDir)
	if err != nil {
		return stats, fmt.Errorf("list input directory: %w", err)
	}

	jobs := BuildJobs(files, outputDir, caseInsensitiveFS(runtime.GOOS))
	stats.Total = len(jobs)

	logBatchHeader(cfg, log, &stats, inputDir, outputDir)
	if len(jobs) == 0 {
		log.Warn("No input files found")
		return stats, nil
	}

	start := time.Now()
	for _, r := range dispatch(ctx, cfg, tools, log, jobs) {
		stats.Add(r)
	}
	stats.Elapsed = time.Since(start)

	if ctx.Err() != nil {
		log.Warn("Interrupted")
	}
	logSummary(log, &stats)
	return stats, nil
}

// dispatch starts one goroutine per job and waits for all of them. With
// cfg.Jobs > 0 at most that many transcoder processes run at once. Each
// goroutine writes only its own slot of the returned slice.
func dispatch(ctx context.Context, cfg *config.Config, tools provision.ToolPaths, log *logging.Logger, jobs []*Job) []Result {
	results := make([]Result, len(jobs))

	var sem chan struct{}
	if cfg.Jobs > 0 {
		sem = make(chan struct{}, cfg.Jobs)
	}

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job *Job) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i] = skipJob(log, job, ctx.Err())
					return
				}
			}
			results[i] = runJob(ctx, cfg, tools, log, job)
		}(i, job)
	}
	wg.Wait()
	return results
}

// runJob converts one file: spawn the transcoder, then verify the output.
func runJob(ctx context.Context, cfg *config.Config, tools provision.ToolPaths, log *logging.Logger, job *Job) Result {
	res := Result{Job: job, ExitCode: -1}
	id := job.ShortID()

	if err := job.transition(StateRunning); err != nil {
		res.Err = err
		return finish(job, res, StateFailed)
	}
	log.Render("[%s] Processing File: %s", id, job.Name())

	jobCtx := ctx
	if cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, cfg.JobTimeout)
		defer cancel()
	}

	if fi, err := os.Stat(job.Source); err == nil {
		res.InputBytes = fi.Size()
	}
	if cfg.Verbose && tools.HasProber() {
		logProbe(jobCtx, log, tools.Prober, id, "Input", job.Source)
	}

	prior, _ := os.Stat(job.Destination)
	start := time.Now()
	out := ffmpeg.Execute(jobCtx, tools.Transcoder, job.Args)
	res.Duration = time.Since(start)
	res.Output = out.Output()
	res.Stderr = out.Stderr
	res.ExitCode = out.ExitCode

	if out.Failed() {
		res.Err = out.Err
		logFailure(log, job, tools.Transcoder, out)
		discardPartial(job.Destination, prior)
		return finish(job, res, StateFailed)
	}
	log.Debug(cfg.Verbose, "[%s] ffmpeg output:\n%s", id, strings.TrimRight(res.Output, "\n"))

	if !cfg.NoVerify {
		info, err := wavcheck.Verify(job.Destination, outputFormat)
		if err != nil {
			res.Err = err
			log.Error("[%s] Output check failed for %s: %v", id, job.Name(), err)
			return finish(job, res, StateFailed)
		}
		log.Debug(cfg.Verbose, "[%s] Verified %s: %s, %s of audio", id,
			filepath.Base(job.Destination), outputFormat, display.FormatElapsed(info.Duration))
	}

	if fi, err := os.Stat(job.Destination); err == nil {
		res.OutputBytes = fi.Size()
	}
	if cfg.Verbose && tools.HasProber() {
		logProbe(jobCtx, log, tools.Prober, id, "Output", job.Destination)
	}

	log.Success("[%s] %s -> %s (%s)", id, job.Name(), filepath.Base(job.Destination),
		display.FormatElapsed(res.Duration))
	return finish(job, res, StateSucceeded)
}

// skipJob fails a job that never got to run.
func skipJob(log *logging.Logger, job *Job, cause error) Result {
	log.Warn("[%s] Not started: %s (%v)", job.ShortID(), job.Name(), cause)
	return finish(job, Result{Job: job, ExitCode: -1, Err: cause}, StateFailed)
}

// discardPartial removes dest after a failed conversion unless it is still
// the file that was there before the attempt.
func discardPartial(dest string, prior os.FileInfo) {
	fi, err := os.Stat(dest)
	if err != nil {
		return
	}
	if prior != nil && fi.Size() == prior.Size() && fi.ModTime().Equal(prior.ModTime()) {
		return
	}
	_ = os.Remove(dest)
}

func finish(job *Job, res Result, state JobState) Result {
	if err := job.transition(state); err != nil {
		res.Err = errors.Join(res.Err, err)
		state = StateFailed
	}
	res.State = state
	return res
}

// caseInsensitiveFS reports whether goos defaults to a filesystem where
// names differing only in case refer to the same file.
func caseInsensitiveFS(goos string) bool {
	return goos == "windows" || goos == "darwin"
}

// --- Logging helpers ---

func logFailure(log *logging.Logger, job *Job, bin string, out ffmpeg.ExecResult) {
	id := job.ShortID()
	log.Error("[%s] Failed to execute ffmpeg command: %s", id, ffmpeg.CommandLine(bin, job.Args))
	log.Error("[%s]   %s", id, out.ExitStatus())
	if hint := ffmpeg.Classify(out.Stderr); hint != "" {
		log.Error("[%s]   hint: %s", id, hint)
	}
	tail := ffmpeg.Tail(out.Stderr, stderrTailLines)
	if tail == "" {
		return
	}
	log.Error("[%s] stderr:", id)
	for _, l := range strings.Split(tail, "\n") {
		log.Error("[%s]   %s", id, l)
	}
}

func logProbe(ctx context.Context, log *logging.Logger, prober, id, label, path string) {
	pr, err := probe.Probe(ctx, prober, path)
	if err != nil {
		log.Debug(true, "[%s] %s probe failed: %v", id, label, err)
		return
	}
	log.Debug(true, "[%s] %s: %s | %s", id, label, pr.Summary(),
		display.FormatBitrateLabel(pr.AudioBitRate()/1000))
}

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats, inputDir, outputDir string) {
	log.Info("Run %s: found %d files in %s", shortID(stats.RunID), stats.Total, inputDir)
	log.Info("Output: %s", outputDir)
	log.Info("Target: WAV, %s", outputFormat)
	if cfg.Jobs > 0 {
		log.Info("Concurrency: at most %d jobs", cfg.Jobs)
	} else {
		log.Debug(cfg.Verbose, "Concurrency: unbounded")
	}
	if cfg.JobTimeout > 0 {
		log.Info("Per-job timeout: %s", cfg.JobTimeout)
	}
	if cfg.NoVerify {
		log.Debug(cfg.Verbose, "Output verification disabled")
	}
}

func logSummary(log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d converted, %d failed", stats.Succeeded, stats.Failed)
	log.Info("Summary report:")
	log.Info("  Total files processed: %d", stats.Total)
	log.Info("  Input %s -> output %s",
		display.FormatBytes(stats.TotalInputBytes),
		display.FormatBytes(stats.TotalOutputBytes))
	log.Info("  Elapsed: %s", display.FormatElapsed(stats.Elapsed))

	if stats.OK() {
		log.Success("All files converted")
		return
	}
	for _, r := range stats.Results {
		if r.State == StateFailed {
			log.Warn("  Failed: %s", r.Job.Name())
		}
	}
}
