// Package provision makes sure a working ffmpeg (and, unless disabled,
// ffprobe) executable exists in the tool directory before any conversion
// starts.
//
// When both executables are already present no network access happens.
// Otherwise the ffbinaries version index is fetched, the entry for the
// running platform is selected, one ZIP archive per required tool is
// downloaded concurrently, and the first archive member whose name contains
// the tool name is extracted. Archives are deleted after extraction.
//
// Every failure is returned as an error; the caller treats it as fatal for
// the run.
package provision
