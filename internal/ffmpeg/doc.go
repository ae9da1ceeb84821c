// Package ffmpeg builds and executes the transcoder commands used by a run.
//
// Commands are argument vectors, never shell strings: paths containing
// spaces or quotes reach ffmpeg unchanged. [CommandLine] renders a quoted
// form only for logs.
//
// Files:
//   - builder.go: [BuildWAVArgs] and the target format constants
//   - executor.go: [Execute] with captured stdout/stderr and exit status
//   - errors.go: stderr classification into short failure hints
package ffmpeg
