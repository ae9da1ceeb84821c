// Package term provides shared color state.
//
// Colors are package-level because several packages (logging, display)
// format with them. [Configure] sets them once during startup; when colors
// are disabled every [color.Color] prints its input unchanged.
package term

import (
	"github.com/fatih/color"

	"github.com/backmassage/wavnorm/internal/config"
)

// Level colors shared by the logger and the banner.
var (
	Red     = color.New(color.FgHiRed, color.Bold)
	Green   = color.New(color.FgHiGreen, color.Bold)
	Yellow  = color.New(color.FgHiYellow, color.Bold)
	Blue    = color.New(color.FgHiBlue, color.Bold)
	Cyan    = color.New(color.FgHiCyan, color.Bold)
	Magenta = color.New(color.FgHiMagenta, color.Bold)
)

// autoNoColor is fatih/color's own decision, made at its init from the
// stdout TTY state, NO_COLOR and TERM=dumb.
var autoNoColor = color.NoColor

// Configure applies the color mode to fatih/color globally. Auto keeps the
// library's detection; always and never override it.
// Call once during startup (from [logging.NewLogger]).
func Configure(mode config.ColorMode) {
	switch mode {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	default:
		color.NoColor = autoNoColor
	}
}

// Enabled reports whether colors are currently active.
func Enabled() bool { return !color.NoColor }
