package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/wavnorm/internal/config"
	"github.com/backmassage/wavnorm/internal/logging"
	"github.com/backmassage/wavnorm/internal/provision"
	"github.com/backmassage/wavnorm/internal/wavcheck"
)

// --- Discover tests ---

func TestDiscover_RegularFilesSorted(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.mp3")
	touch(t, dir, "a.flac")
	touch(t, dir, ".hidden")
	touch(t, dir, "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "output"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	touch(t, filepath.Join(dir, "sub"), "nested.mp3")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden", "a.flac", "b.mp3", "notes.txt"}, basenames(files))
}

func TestDiscover_FollowsFileSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	elsewhere := t.TempDir()
	touch(t, elsewhere, "real.mp3")
	require.NoError(t, os.Symlink(filepath.Join(elsewhere, "real.mp3"), filepath.Join(dir, "link.mp3")))
	require.NoError(t, os.Symlink(elsewhere, filepath.Join(dir, "dirlink")))

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"link.mp3"}, basenames(files))
}

func TestDiscover_EmptyDir(t *testing.T) {
	files, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// --- Job tests ---

func TestBuildJobs(t *testing.T) {
	out := filepath.Join("in", "output")
	files := []string{
		filepath.Join("in", ".hidden"),
		filepath.Join("in", "clip.MOV"),
		filepath.Join("in", "song.flac"),
		filepath.Join("in", "song.mp3"),
	}

	jobs := BuildJobs(files, out, false)
	require.Len(t, jobs, 4)

	want := []string{".hidden.wav", "clip.wav", "song.wav", "song - dup1.wav"}
	ids := map[string]bool{}
	for i, j := range jobs {
		assert.Equal(t, files[i], j.Source)
		assert.Equal(t, filepath.Join(out, want[i]), j.Destination)
		assert.Equal(t, StatePending, j.State)
		assert.Equal(t, []string{
			"-hide_banner", "-hwaccel", "auto", "-y",
			"-i", j.Source,
			"-ac", "1", "-ar", "8000", "-sample_fmt", "s16",
			j.Destination,
		}, j.Args)
		assert.False(t, ids[j.ID.String()], "duplicate job id")
		ids[j.ID.String()] = true
		assert.Len(t, j.ShortID(), 8)
	}
}

func TestJobTransitions(t *testing.T) {
	tests := []struct {
		from, to JobState
		ok       bool
	}{
		{StatePending, StateRunning, true},
		{StatePending, StateFailed, true},
		{StatePending, StateSucceeded, false},
		{StateRunning, StateSucceeded, true},
		{StateRunning, StateFailed, true},
		{StateRunning, StatePending, false},
		{StateSucceeded, StateFailed, false},
		{StateFailed, StateRunning, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			j := &Job{State: tt.from}
			err := j.transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, j.State)
			} else {
				assert.Error(t, err)
				assert.Equal(t, tt.from, j.State)
			}
		})
	}
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateRunning.Terminal())
}

func TestRunStats_Add(t *testing.T) {
	var s RunStats
	s.Add(Result{State: StateSucceeded, InputBytes: 100, OutputBytes: 40})
	s.Add(Result{State: StateFailed, InputBytes: 50, OutputBytes: 7})
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, int64(150), s.TotalInputBytes)
	assert.Equal(t, int64(40), s.TotalOutputBytes)
	assert.False(t, s.OK())
	assert.Len(t, s.Results, 2)
}

func TestCaseInsensitiveFS(t *testing.T) {
	assert.True(t, caseInsensitiveFS("windows"))
	assert.True(t, caseInsensitiveFS("darwin"))
	assert.False(t, caseInsensitiveFS("linux"))
}

// --- Run tests (fake transcoder) ---

func TestRun_ConvertsEveryFile(t *testing.T) {
	env := newRunEnv(t)
	env.input("b.mp3", "a.flac", ".hidden")

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.True(t, stats.OK())
	for _, name := range []string{"a.wav", "b.wav", ".hidden.wav"} {
		_, err := wavcheck.Verify(filepath.Join(env.dir, "output", name), outputFormat)
		assert.NoError(t, err, name)
	}
	assert.Contains(t, env.stdout.String(), "Processing File: a.flac")
	assert.Contains(t, env.stdout.String(), "All files converted")
	assert.Empty(t, env.stderr.String())
}

func TestRun_FailureDoesNotStopSiblings(t *testing.T) {
	env := newRunEnv(t)
	env.input("good1.mp3", "bad.mp3", "good2.mp3")

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.FileExists(t, filepath.Join(env.dir, "output", "good1.wav"))
	assert.FileExists(t, filepath.Join(env.dir, "output", "good2.wav"))
	assert.NoFileExists(t, filepath.Join(env.dir, "output", "bad.wav"))

	for _, r := range stats.Results {
		assert.True(t, r.State.Terminal())
		assert.Equal(t, r.State, r.Job.State)
		if r.Job.Name() == "bad.mp3" {
			assert.Equal(t, StateFailed, r.State)
			assert.Equal(t, 1, r.ExitCode)
			assert.Contains(t, r.Stderr, "Invalid data found")
		}
	}

	errOut := env.stderr.String()
	assert.Contains(t, errOut, "Failed to execute ffmpeg command:")
	assert.Contains(t, errOut, "exit status 1")
	assert.Contains(t, errOut, "hint: input is not a decodable media file")
	assert.Contains(t, errOut, "stderr:")
}

func TestRun_ZeroFiles(t *testing.T) {
	env := newRunEnv(t)

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.True(t, stats.OK())
	assert.DirExists(t, filepath.Join(env.dir, "output"))
	assert.Contains(t, env.stdout.String(), "No input files found")
}

func TestRun_RerunOverwrites(t *testing.T) {
	env := newRunEnv(t)
	env.input("a.mp3")

	_, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)

	// The output directory is skipped by discovery on the second run.
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
}

func TestRun_VerificationFailure(t *testing.T) {
	env := newRunEnv(t)
	env.input("garbage.mp3")
	env.tools.Transcoder = fakeTranscoder(t, "", "")

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, env.stderr.String(), "Output check failed")

	env.cfg.NoVerify = true
	stats, err = Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
}

func TestRun_JobsCap(t *testing.T) {
	env := newRunEnv(t)
	env.input("1.mp3", "2.mp3", "3.mp3", "4.mp3", "5.mp3", "6.mp3")
	env.cfg.Jobs = 2
	trace := t.TempDir()
	env.tools.Transcoder = fakeTranscoder(t, env.fixture, trace)

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Succeeded)

	b, err := os.ReadFile(filepath.Join(trace, "peaks"))
	require.NoError(t, err)
	peaks := strings.Fields(string(b))
	require.Len(t, peaks, 6)
	for _, p := range peaks {
		n, err := strconv.Atoi(p)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 2)
	}
}

func TestRun_Timeout(t *testing.T) {
	env := newRunEnv(t)
	env.input("slow.mp3")
	env.cfg.JobTimeout = 100 * time.Millisecond
	env.tools.Transcoder = writeScript(t, "exec sleep 5\n")

	start := time.Now()
	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRun_TimeoutCoversProbing(t *testing.T) {
	env := newRunEnv(t)
	env.input("a.mp3")
	env.cfg.Verbose = true
	env.cfg.JobTimeout = 100 * time.Millisecond
	env.tools.Prober = writeScript(t, "exec sleep 5\n")

	start := time.Now()
	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRun_FailedRerunKeepsPreviousOutput(t *testing.T) {
	env := newRunEnv(t)
	env.input("a.mp3")
	dest := filepath.Join(env.dir, "output", "a.wav")

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Succeeded)
	before, err := os.ReadFile(dest)
	require.NoError(t, err)

	// Fails before touching the output, like an unreadable input.
	env.tools.Transcoder = writeScript(t, "echo 'a.mp3: Permission denied' >&2\nexit 1\n")
	stats, err = Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	after, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_FailedConversionRemovesPartialOutput(t *testing.T) {
	env := newRunEnv(t)
	env.input("a.mp3")
	env.tools.Transcoder = writeScript(t, "for a in \"$@\"; do out=$a; done\necho partial > \"$out\"\nexit 1\n")

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.NoFileExists(t, filepath.Join(env.dir, "output", "a.wav"))
}

func TestRun_CancelFailsQueuedJobs(t *testing.T) {
	env := newRunEnv(t)
	env.input("1.mp3", "2.mp3", "3.mp3")
	env.cfg.Jobs = 1
	marker := filepath.Join(t.TempDir(), "started")
	env.tools.Transcoder = writeScript(t, "touch '"+marker+"'\nexec sleep 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(marker); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	start := time.Now()
	stats, err := Run(ctx, env.cfg, env.tools, env.log)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)

	assert.Equal(t, 3, stats.Failed)
	skipped := 0
	for _, r := range stats.Results {
		assert.Equal(t, StateFailed, r.State)
		assert.Equal(t, StateFailed, r.Job.State)
		if errors.Is(r.Err, context.Canceled) && r.ExitCode == -1 && r.Duration == 0 {
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)

	logs := env.stdout.String() + env.stderr.String()
	assert.Equal(t, 2, strings.Count(logs, "Not started:"))
	assert.Contains(t, logs, "Interrupted")
}

func TestRun_MissingInputDir(t *testing.T) {
	env := newRunEnv(t)
	env.cfg.InputDir = filepath.Join(env.dir, "nope", "deeper")
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "nope"), []byte("file"), 0o644))

	_, err := Run(context.Background(), env.cfg, env.tools, env.log)
	assert.Error(t, err)
}

// --- Real ffmpeg integration test ---

func TestRun_RealFFmpeg(t *testing.T) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not available")
	}

	env := newRunEnv(t)
	require.NoError(t, wavcheck.WriteSine(filepath.Join(env.dir, "tone.wav"), 2, 44100, 500*time.Millisecond))
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "readme.txt"), []byte("not audio"), 0o644))
	env.tools = provision.ToolPaths{Transcoder: bin}

	stats, err := Run(context.Background(), env.cfg, env.tools, env.log)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	info, err := wavcheck.Verify(filepath.Join(env.dir, "output", "tone.wav"), outputFormat)
	require.NoError(t, err)
	assert.InDelta(t, 500*time.Millisecond, info.Duration, float64(50*time.Millisecond))
}

// --- Helpers ---

type runEnv struct {
	dir     string
	fixture string
	cfg     *config.Config
	tools   provision.ToolPaths
	log     *logging.Logger
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newRunEnv(t *testing.T) *runEnv {
	t.Helper()
	env := &runEnv{
		dir:    t.TempDir(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}

	env.fixture = filepath.Join(t.TempDir(), "fixture.wav")
	require.NoError(t, wavcheck.WriteSine(env.fixture, 1, 8000, 200*time.Millisecond))

	cfg := config.DefaultConfig()
	cfg.InputDir = env.dir
	cfg.ColorMode = config.ColorNever
	env.cfg = &cfg

	log, err := logging.NewLogger(env.cfg)
	require.NoError(t, err)
	log.SetOutput(env.stdout, env.stderr)
	t.Cleanup(func() { log.Close() })
	env.log = log

	env.tools = provision.ToolPaths{Transcoder: fakeTranscoder(t, env.fixture, "")}
	return env
}

func (e *runEnv) input(names ...string) {
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(e.dir, n), []byte("src:"+n), 0o644); err != nil {
			panic(err)
		}
	}
}

// fakeTranscoder writes a script that mimics the ffmpeg CLI: it copies
// fixture to the last argument, or fails for inputs containing "bad". An
// empty fixture writes a non-WAV file instead. With trace set, each call
// records how many calls were running concurrently.
func fakeTranscoder(t *testing.T, fixture, trace string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("prev=''\nin=''\nout=''\n")
	b.WriteString("for a in \"$@\"; do\n  if [ \"$prev\" = \"-i\" ]; then in=$a; fi\n  prev=$a\n  out=$a\ndone\n")
	if trace != "" {
		b.WriteString("mkdir '" + trace + "'/running.$$\n")
		b.WriteString("ls -d '" + trace + "'/running.* | wc -l | tr -d ' ' >> '" + trace + "/peaks'\n")
		b.WriteString("sleep 0.2\n")
		b.WriteString("rmdir '" + trace + "'/running.$$\n")
	}
	b.WriteString("case \"$in\" in\n  *bad*) echo \"$in: Invalid data found when processing input\" >&2; exit 1;;\nesac\n")
	if fixture == "" {
		b.WriteString("echo 'not a wav' > \"$out\"\n")
	} else {
		b.WriteString("cp '" + fixture + "' \"$out\"\n")
	}
	b.WriteString("echo \"size=1kB time=00:00:00.20\" >&2\n")
	return writeScript(t, b.String())
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
