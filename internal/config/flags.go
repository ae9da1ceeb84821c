package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into provisioning, dispatch, display, and utility.
// Negated flags (e.g. --no-verify) are applied after Parse so Config values hold unless set.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrUsage is returned when the positional arguments are wrong. The usage
// text has already been written to stderr when it is returned.
var ErrUsage = errors.New("usage error")

// ErrHelp is returned after --help or --version output has been printed.
var ErrHelp = errors.New("help requested")

// ParseFlags parses args (without the program name) into cfg. On --help or
// --version it prints and returns ErrHelp. A missing input directory prints
// the usage text and returns ErrUsage.
func ParseFlags(cfg *Config, args []string, version string) error {
	fs := flag.NewFlagSet("wavnorm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { printUsage(os.Stderr, version) }

	var negated negatedFlags

	defineProvisionFlags(fs, cfg, &negated)
	defineDispatchFlags(fs, cfg, &negated)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, cfg, &negated)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(os.Stderr, version)
			return ErrHelp
		}
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(os.Stderr, version)
		return ErrHelp
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "wavnorm v"+version)
		return ErrHelp
	}

	return parsePositionalArgs(fs, cfg, version)
}

// negatedFlags holds boolean flags that are applied after Parse.
type negatedFlags struct {
	noVerify    bool
	noProbe     bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineProvisionFlags registers -t/--tool-dir, --manifest-url, --no-probe, --http-timeout.
func defineProvisionFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.StringVar(&cfg.ToolDir, "tool-dir", cfg.ToolDir, "Directory holding ffmpeg/ffprobe")
	fs.StringVar(&cfg.ToolDir, "t", cfg.ToolDir, "Same as --tool-dir")
	fs.StringVar(&cfg.ManifestURL, "manifest-url", cfg.ManifestURL, "Version index URL")
	fs.BoolVar(&n.noProbe, "no-probe", false, "Do not require ffprobe")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "Provisioning HTTP timeout")
}

// defineDispatchFlags registers -j/--jobs, --timeout, --no-verify.
func defineDispatchFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.IntVar(&cfg.Jobs, "jobs", cfg.Jobs, "Maximum concurrent conversions (0 = unbounded)")
	fs.IntVar(&cfg.Jobs, "j", cfg.Jobs, "Same as --jobs")
	fs.DurationVar(&cfg.JobTimeout, "timeout", cfg.JobTimeout, "Per-file timeout (0 = none)")
	fs.BoolVar(&n.noVerify, "no-verify", false, "Skip WAV output verification")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run tool diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "Same as --log")
}

// defineUtilityFlags registers --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, _ *Config, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noVerify {
		cfg.NoVerify = true
	}
	if n.noProbe {
		cfg.NoProbe = true
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets InputDir from the single positional arg when not in CheckOnly mode.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config, version string) error {
	args := fs.Args()
	if cfg.CheckOnly {
		return nil
	}
	if len(args) != 1 {
		printUsage(os.Stderr, version)
		return ErrUsage
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	return nil
}

// printUsage writes the help text to w. Column-aligned for readability.
func printUsage(w io.Writer, version string) {
	const col1 = 28
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "wavnorm v" + version + " - batch convert a directory to mono 8kHz 16-bit WAV"},
		{"", ""},
		{"  wavnorm [OPTIONS] <input_dir>", ""},
		{"", ""},
		{"Provisioning", ""},
		{"  -t, --tool-dir <dir>", "ffmpeg/ffprobe directory (default: <exe dir>/ffmpeg)"},
		{"  --manifest-url <url>", "Version index (default: ffbinaries latest)"},
		{"  --no-probe", "Do not require or download ffprobe"},
		{"  --http-timeout <dur>", "Per-request download timeout (default: 30m)"},
		{"", ""},
		{"Conversion", ""},
		{"  -j, --jobs <n>", "Concurrent conversions, 0 = all at once (default: 0)"},
		{"  --timeout <dur>", "Per-file timeout, 0 = none (default: 0)"},
		{"  --no-verify", "Skip WAV header verification of outputs"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "Tool diagnostics (ffmpeg, ffprobe, WAV encode)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}

	if env := EnvDescription(); env != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, strings.TrimRight(env, "\n")+"\n")
	}
}
