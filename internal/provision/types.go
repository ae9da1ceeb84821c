package provision

import "errors"

// Tool names, also used as the substring matched against archive entries.
const (
	ToolFFmpeg  = "ffmpeg"
	ToolFFprobe = "ffprobe"
)

// FallbackPlatform is used for unrecognized platforms and for keys the
// manifest does not list.
const FallbackPlatform = "linux-64"

// Sentinel errors for the failure modes callers may want to distinguish.
var (
	ErrUnsupportedPlatform = errors.New("no manifest entry for platform")
	ErrMissingURL          = errors.New("manifest entry has no download URL")
	ErrNoMatchingEntry     = errors.New("archive contains no matching executable")
	ErrUnsafeEntry         = errors.New("archive entry escapes target directory")
)

// ToolPaths are the resolved executables for one run. Prober is empty when
// ffprobe was not required. Version is the manifest version when the tools
// were downloaded during this run and empty when they were already present.
type ToolPaths struct {
	Transcoder string
	Prober     string
	Version    string
	Dir        string
}

// HasProber reports whether a prober executable is available.
func (t ToolPaths) HasProber() bool { return t.Prober != "" }

// PlatformBinaries holds the archive URLs for one manifest platform entry.
type PlatformBinaries struct {
	FFmpeg  string `json:"ffmpeg"`
	FFprobe string `json:"ffprobe"`
}

// URL returns the archive URL for tool, or "" when the entry has none.
func (b PlatformBinaries) URL(tool string) string {
	switch tool {
	case ToolFFmpeg:
		return b.FFmpeg
	case ToolFFprobe:
		return b.FFprobe
	default:
		return ""
	}
}

// Manifest is the version-index document:
//
//	{"version": "...", "permalink": "...", "bin": {"linux-64": {"ffmpeg": url, "ffprobe": url}, ...}}
type Manifest struct {
	Version   string                      `json:"version"`
	Permalink string                      `json:"permalink"`
	Bin       map[string]PlatformBinaries `json:"bin"`
}

// ExecutableName applies the OS executable naming convention to tool.
func ExecutableName(tool, goos string) string {
	if goos == "windows" {
		return tool + ".exe"
	}
	return tool
}
