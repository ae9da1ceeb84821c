// Package probe inspects media files with a single ffprobe JSON call and
// returns typed results. A run uses it for per-file diagnostics: the
// source before conversion and the WAV after.
package probe
