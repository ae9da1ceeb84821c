// Package config holds runtime configuration: defaults, config file and
// environment loading, CLI flag parsing, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

const (
	// DefaultManifestURL is the ffbinaries version index for the latest release.
	DefaultManifestURL = "https://ffbinaries.com/api/v1/version/latest"

	// DefaultToolDirName is the directory, next to the executable, that holds
	// provisioned binaries when no tool directory is configured.
	DefaultToolDirName = "ffmpeg"

	// OutputDirName is the subdirectory of the input directory receiving WAVs.
	OutputDirName = "output"

	// ConfigFileEnv names an optional YAML/JSON/TOML config file.
	ConfigFileEnv = "WAVNORM_CONFIG"
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by [Load] (config file + environment), then by [ParseFlags], before
// being passed by pointer to the packages that need it.
type Config struct {
	// Paths.
	InputDir string `yaml:"-" json:"-" toml:"-"`
	ToolDir  string `yaml:"tool_dir" json:"tool_dir" toml:"tool_dir" env:"WAVNORM_TOOL_DIR" env-description:"Directory holding the ffmpeg/ffprobe executables"`

	// Provisioning.
	ManifestURL string        `yaml:"manifest_url" json:"manifest_url" toml:"manifest_url" env:"WAVNORM_MANIFEST_URL" env-description:"Version index used to download ffmpeg" validate:"required,url"`
	NoProbe     bool          `yaml:"no_probe" json:"no_probe" toml:"no_probe" env:"WAVNORM_NO_PROBE" env-description:"Do not require or download ffprobe"`
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout" toml:"http_timeout" env:"WAVNORM_HTTP_TIMEOUT" env-description:"Timeout for each provisioning HTTP request" validate:"gte=0"`

	// Dispatch.
	Jobs       int           `yaml:"jobs" json:"jobs" toml:"jobs" env:"WAVNORM_JOBS" env-description:"Maximum concurrent conversions (0 = unbounded)" validate:"gte=0"`
	JobTimeout time.Duration `yaml:"job_timeout" json:"job_timeout" toml:"job_timeout" env:"WAVNORM_JOB_TIMEOUT" env-description:"Per-file conversion timeout (0 = none)" validate:"gte=0"`
	NoVerify   bool          `yaml:"no_verify" json:"no_verify" toml:"no_verify" env:"WAVNORM_NO_VERIFY" env-description:"Skip the mono 8kHz 16-bit PCM check of every output"`

	// Display and logging.
	Verbose   bool      `yaml:"verbose" json:"verbose" toml:"verbose" env:"WAVNORM_VERBOSE" env-description:"Verbose output"`
	ColorMode ColorMode `yaml:"color" json:"color" toml:"color" env:"WAVNORM_COLOR" env-description:"Color mode: auto | always | never"`
	LogFile   string    `yaml:"log_file" json:"log_file" toml:"log_file" env:"WAVNORM_LOG_FILE" env-description:"Append logs to this file"`
	CheckOnly bool      `yaml:"-" json:"-" toml:"-"`
}

// DefaultConfig returns a Config with the built-in defaults. Used as the
// base before [Load] and [ParseFlags] apply overrides.
func DefaultConfig() Config {
	return Config{
		ManifestURL: DefaultManifestURL,
		NoProbe:     false,
		HTTPTimeout: 30 * time.Minute,
		Jobs:        0,
		JobTimeout:  0,
		NoVerify:    false,
		Verbose:     false,
		ColorMode:   ColorAuto,
		CheckOnly:   false,
	}
}

// Load applies the optional config file named by $WAVNORM_CONFIG and then
// the WAVNORM_* environment variables on top of cfg. Fields without a
// matching variable keep their current value.
func Load(cfg *Config) error {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return fmt.Errorf("expand %s: %w", ConfigFileEnv, err)
		}
		if err := cleanenv.ReadConfig(expanded, cfg); err != nil {
			return fmt.Errorf("read config %s: %w", expanded, err)
		}
		return nil
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

// EnvDescription renders the environment variable table shown in --help.
func EnvDescription() string {
	var cfg Config
	header := "Environment"
	text, err := cleanenv.GetDescription(&cfg, &header)
	if err != nil {
		return ""
	}
	return text
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

var validate = validator.New()

// Validate checks struct constraints and the color enum, expands "~" in
// path fields, and requires an input directory unless in CheckOnly mode.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check (got %v)", strings.ToLower(fe.Field()), fe.Tag(), fe.Value())
		}
		return err
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	var err error
	if c.ToolDir, err = expandPath(c.ToolDir); err != nil {
		return fmt.Errorf("tool dir: %w", err)
	}
	if c.LogFile, err = expandPath(c.LogFile); err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	if c.InputDir, err = expandPath(c.InputDir); err != nil {
		return fmt.Errorf("input dir: %w", err)
	}

	if c.CheckOnly {
		return nil
	}
	if c.InputDir == "" {
		return errors.New("need exactly one input_dir")
	}
	return nil
}

// ResolveToolDir returns the configured tool directory, or the default
// "ffmpeg" directory beside the running executable.
func (c *Config) ResolveToolDir() (string, error) {
	if c.ToolDir != "" {
		return filepath.Abs(c.ToolDir)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), DefaultToolDirName), nil
}

// OutputDir returns <InputDir>/output.
func (c *Config) OutputDir() string {
	return filepath.Join(c.InputDir, OutputDirName)
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return homedir.Expand(p)
}
