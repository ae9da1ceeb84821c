package ffmpeg

import (
	"regexp"
	"strings"
)

// Pre-compiled regexes for classifying ffmpeg stderr output into a short
// hint shown next to a failed job. Checked in order by [Classify]; the
// first match wins.
var (
	reNoSuchFile = regexp.MustCompile(
		`No such file or directory`)

	rePermission = regexp.MustCompile(
		`(?i)Permission denied|Operation not permitted`)

	reInvalidData = regexp.MustCompile(
		`Invalid data found when processing input|` +
			`could not find codec parameters|` +
			`moov atom not found|` +
			`Format .* detected only with low score`)

	reNoAudio = regexp.MustCompile(
		`does not contain any stream|` +
			`Stream map .* matches no streams`)

	reEncoderIssue = regexp.MustCompile(
		`(?i)Error while opening encoder|` +
			`Error initializing output stream|` +
			`Conversion failed!`)
)

// Classify returns a short human-readable hint for a failed conversion's
// stderr, or "" when nothing recognizable was found.
func Classify(stderr string) string {
	switch {
	case reNoSuchFile.MatchString(stderr):
		return "input file not found"
	case rePermission.MatchString(stderr):
		return "permission denied"
	case reInvalidData.MatchString(stderr):
		return "input is not a decodable media file"
	case reNoAudio.MatchString(stderr):
		return "input has no audio stream"
	case reEncoderIssue.MatchString(stderr):
		return "encoder could not produce the output"
	default:
		return ""
	}
}

// Tail returns the last n non-empty lines of s.
func Tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		kept = append(kept, lines[i])
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}
