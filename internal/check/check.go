// Package check provides the --check diagnostics: tool presence and
// versions, the PCM encoder listing, and an end-to-end conversion smoke
// test through the same argument builder a batch uses.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/backmassage/wavnorm/internal/config"
	"github.com/backmassage/wavnorm/internal/ffmpeg"
	"github.com/backmassage/wavnorm/internal/provision"
	"github.com/backmassage/wavnorm/internal/wavcheck"
)

// Sentinel errors returned by the checks.
var (
	ErrToolMissing     = errors.New("tool executable not found")
	ErrToolNotRunnable = errors.New("tool executable is not runnable")
	ErrNoPCMEncoder    = errors.New("ffmpeg lacks the pcm_s16le encoder")
	ErrSmokeTestFailed = errors.New("test conversion failed")
)

// smokeTestSourceRate differs from the target rate so the conversion resamples.
const smokeTestSourceRate = 44100

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the --check flow against already provisioned tools. Every
// step is reported; the returned error joins all failures.
func RunCheck(ctx context.Context, cfg *config.Config, tools provision.ToolPaths, log Logger) error {
	log.Info("=== System Check ===")
	log.Info("Platform: %s/%s (manifest key %s)", runtime.GOOS, runtime.GOARCH,
		provision.PlatformKey(runtime.GOOS, runtime.GOARCH))
	log.Info("Tool directory: %s", tools.Dir)

	if err := CheckTools(tools); err != nil {
		log.Error("%v", err)
		return err
	}

	var errs []error
	errs = append(errs, checkVersion(ctx, log, "ffmpeg", tools.Transcoder))
	if tools.HasProber() {
		errs = append(errs, checkVersion(ctx, log, "ffprobe", tools.Prober))
	} else {
		log.Warn("ffprobe: not provisioned (--no-probe)")
	}

	if err := checkPCMEncoder(ctx, tools.Transcoder); err != nil {
		log.Error("%v", err)
		errs = append(errs, err)
	} else {
		log.Success("pcm_s16le encoder available")
	}

	log.Info("Testing conversion...")
	if err := SmokeTest(ctx, tools.Transcoder); err != nil {
		log.Error("%v", err)
		errs = append(errs, err)
	} else {
		log.Success("Conversion to WAV works")
	}
	log.Debug(cfg.Verbose, "Manifest: %s", cfg.ManifestURL)

	return errors.Join(errs...)
}

// CheckTools verifies that every tool in tools exists as a regular file.
func CheckTools(tools provision.ToolPaths) error {
	paths := []string{tools.Transcoder}
	if tools.HasProber() {
		paths = append(paths, tools.Prober)
	}
	for _, p := range paths {
		if p == "" {
			return fmt.Errorf("%w: empty path", ErrToolMissing)
		}
		fi, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrToolMissing, p)
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("%w: %s is not a regular file", ErrToolNotRunnable, p)
		}
		if runtime.GOOS != "windows" && fi.Mode().Perm()&0o111 == 0 {
			return fmt.Errorf("%w: %s has no execute permission", ErrToolNotRunnable, p)
		}
	}
	return nil
}

// SmokeTest converts a short generated stereo tone with the batch argument
// vector and verifies the result.
func SmokeTest(ctx context.Context, transcoder string) error {
	dir, err := os.MkdirTemp("", "wavnorm-check-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "tone.wav")
	dst := filepath.Join(dir, "tone-out.wav")
	if err := wavcheck.WriteSine(src, 2, smokeTestSourceRate, 250*time.Millisecond); err != nil {
		return fmt.Errorf("write test tone: %w", err)
	}

	res := ffmpeg.Execute(ctx, transcoder, ffmpeg.BuildWAVArgs(src, dst))
	if res.Failed() {
		return fmt.Errorf("%w: %s: %s", ErrSmokeTestFailed, res.ExitStatus(), ffmpeg.Tail(res.Stderr, 3))
	}
	target := wavcheck.Target{Channels: ffmpeg.Channels, SampleRate: ffmpeg.SampleRate, BitDepth: ffmpeg.BitDepth}
	if _, err := wavcheck.Verify(dst, target); err != nil {
		return fmt.Errorf("%w: %w", ErrSmokeTestFailed, err)
	}
	return nil
}

// checkVersion logs the first line of "<bin> -version".
func checkVersion(ctx context.Context, log Logger, name, bin string) error {
	v, err := ffmpeg.Version(ctx, bin)
	if err != nil {
		log.Error("%s found but -version failed: %v", name, err)
		return fmt.Errorf("%w: %v", ErrToolNotRunnable, err)
	}
	log.Success("%s: %s", name, v)
	return nil
}

// checkPCMEncoder looks for pcm_s16le in ffmpeg's encoder list.
func checkPCMEncoder(ctx context.Context, bin string) error {
	res := ffmpeg.Execute(ctx, bin, []string{"-hide_banner", "-encoders"})
	if res.Failed() {
		return fmt.Errorf("list encoders: %w", res.Err)
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "pcm_s16le" {
			return nil
		}
	}
	return ErrNoPCMEncoder
}
