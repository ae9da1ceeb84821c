package ffmpeg

import (
	"strconv"
	"strings"
)

// Target format for every converted file.
const (
	Channels     = 1
	SampleRate   = 8000
	SampleFormat = "s16"
	BitDepth     = 16
	OutputExt    = ".wav"
)

// BuildWAVArgs returns the argument vector (without the executable) that
// converts input to a mono 8 kHz signed 16-bit WAV at output, overwriting
// output if it exists.
func BuildWAVArgs(input, output string) []string {
	args := make([]string, 0, 16)

	// --- Preamble ---
	args = append(args, "-hide_banner", "-hwaccel", "auto", "-y")

	// --- Input ---
	args = append(args, "-i", input)

	// --- Audio format ---
	args = append(args,
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-sample_fmt", SampleFormat,
	)

	// --- Output ---
	return append(args, output)
}

// CommandLine renders bin and args as a single line for logs. Arguments
// that contain whitespace or quotes are double-quoted.
func CommandLine(bin string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(bin))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\n\"'") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
