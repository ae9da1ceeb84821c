package provision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/backmassage/wavnorm/internal/config"
)

// Logger is the minimal logging interface needed by the provisioner.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Provisioner resolves or downloads the tool executables.
type Provisioner struct {
	Dir           string
	ManifestURL   string
	RequireProber bool
	Client        *http.Client
	GOOS          string
	GOARCH        string
	Verbose       bool
	Log           Logger
}

// New builds a Provisioner for the running platform from cfg. toolDir must
// already be resolved (see [config.Config.ResolveToolDir]).
func New(cfg *config.Config, toolDir string, log Logger) *Provisioner {
	return &Provisioner{
		Dir:           toolDir,
		ManifestURL:   cfg.ManifestURL,
		RequireProber: !cfg.NoProbe,
		Client:        &http.Client{Timeout: cfg.HTTPTimeout},
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
		Verbose:       cfg.Verbose,
		Log:           log,
	}
}

// Tools returns the required tool names, transcoder first.
func (p *Provisioner) Tools() []string {
	if p.RequireProber {
		return []string{ToolFFmpeg, ToolFFprobe}
	}
	return []string{ToolFFmpeg}
}

// Existing returns the tool paths when every required executable is already
// present in the tool directory, either at its top level or where a previous
// download recorded it. It never touches the network.
func (p *Provisioner) Existing() (ToolPaths, bool) {
	rec, hasRecord := readRecord(p.Dir)
	paths := make([]string, 0, 2)
	for _, tool := range p.Tools() {
		path := filepath.Join(p.Dir, ExecutableName(tool, p.GOOS))
		if !isRegularFile(path) {
			recorded, ok := rec.recordedPath(p.Dir, tool)
			if !hasRecord || !ok || !isRegularFile(recorded) {
				return ToolPaths{}, false
			}
			path = recorded
		}
		paths = append(paths, path)
	}
	return p.toolPaths(paths, ""), true
}

// Ensure returns usable tool paths, downloading the tools when any required
// executable is missing. Any error is fatal for the run.
func (p *Provisioner) Ensure(ctx context.Context) (ToolPaths, error) {
	if tools, ok := p.Existing(); ok {
		p.Log.Debug(p.Verbose, "Found existing tools in %s", p.Dir)
		return tools, nil
	}
	return p.download(ctx)
}

func (p *Provisioner) download(ctx context.Context) (ToolPaths, error) {
	p.Log.Info("Downloading ffmpeg for %s/%s", p.GOOS, p.GOARCH)
	p.Log.Info("Getting latest ffmpeg version")

	manifest, err := FetchManifest(ctx, p.client(), p.ManifestURL)
	if err != nil {
		return ToolPaths{}, err
	}

	bins, key, err := manifest.Select(PlatformKey(p.GOOS, p.GOARCH))
	if err != nil {
		return ToolPaths{}, err
	}
	p.Log.Debug(p.Verbose, "Using manifest entry %s", key)

	tools := p.Tools()
	urls := make([]string, len(tools))
	for i, tool := range tools {
		urls[i] = bins.URL(tool)
		if urls[i] == "" {
			return ToolPaths{}, fmt.Errorf("%w: %s/%s", ErrMissingURL, key, tool)
		}
	}

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return ToolPaths{}, fmt.Errorf("create tool directory: %w", err)
	}

	archives, err := p.fetchArchives(ctx, tools, urls)
	if err != nil {
		return ToolPaths{}, err
	}

	paths := make([]string, len(tools))
	rec := installRecord{Version: manifest.Version, Tools: make(map[string]string, len(tools))}
	for i, tool := range tools {
		p.Log.Info("Extracting %s to %s", archives[i], p.Dir)
		path, err := ExtractFirstMatch(archives[i], p.Dir, tool)
		if err != nil {
			removeAll(archives[i:])
			return ToolPaths{}, err
		}
		p.Log.Debug(p.Verbose, "extracting: %s", path)
		if err := os.Remove(archives[i]); err != nil {
			return ToolPaths{}, fmt.Errorf("remove archive: %w", err)
		}
		paths[i] = path
		if rel, err := filepath.Rel(p.Dir, path); err == nil {
			rec.Tools[tool] = filepath.ToSlash(rel)
		}
	}
	if err := writeRecord(p.Dir, rec); err != nil {
		p.Log.Warn("Could not record tool locations: %v", err)
	}

	p.Log.Success("Downloaded ffmpeg version %s", manifest.Version)
	return p.toolPaths(paths, manifest.Version), nil
}

// fetchArchives downloads one archive per tool concurrently and waits for
// all of them. On any failure every archive written so far is removed.
func (p *Provisioner) fetchArchives(ctx context.Context, tools, urls []string) ([]string, error) {
	archives := make([]string, len(tools))
	errs := make([]error, len(tools))

	var wg sync.WaitGroup
	for i, tool := range tools {
		archives[i] = filepath.Join(p.Dir, tool+".zip")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.Log.Info("Downloading %s to %s", urls[i], archives[i])
			if err := downloadFile(ctx, p.client(), urls[i], archives[i]); err != nil {
				errs[i] = fmt.Errorf("download %s archive: %w", tools[i], err)
			}
		}(i)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		removeAll(archives)
		return nil, err
	}
	return archives, nil
}

func (p *Provisioner) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *Provisioner) toolPaths(paths []string, version string) ToolPaths {
	t := ToolPaths{Transcoder: absOrSelf(paths[0]), Version: version, Dir: p.Dir}
	if len(paths) > 1 {
		t.Prober = absOrSelf(paths[1])
	}
	return t
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func removeAll(paths []string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}
