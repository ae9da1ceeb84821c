// Package pipeline runs a batch: discover the input files, build one
// conversion job per file, run every job concurrently, wait for all of
// them, then report a summary.
//
// A failing job never stops its siblings. [Run] returns an error only when
// the batch cannot start (output directory or listing failure).
//
// Files:
//   - discover.go: [Discover], regular files of one directory, sorted
//   - job.go: [Job], [BuildJobs]
//   - state.go: [JobState] and its transition rules
//   - runner.go: [Run], the fan-out and per-job execution
//   - stats.go: [Result], [RunStats]
package pipeline
