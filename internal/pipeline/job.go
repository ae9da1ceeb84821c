package pipeline

import (
	"path/filepath"

	"github.com/google/uuid"

	"github.com/backmassage/wavnorm/internal/ffmpeg"
	"github.com/backmassage/wavnorm/internal/naming"
)

// Job is one file's conversion. Each job is owned by the goroutine that
// runs it.
type Job struct {
	ID          uuid.UUID
	Source      string
	Destination string
	Args        []string
	State       JobState
}

// ShortID is the first block of the job ID, used to tag log lines.
func (j *Job) ShortID() string {
	return shortID(j.ID)
}

// Name is the source file's base name.
func (j *Job) Name() string {
	return filepath.Base(j.Source)
}

// BuildJobs creates one pending job per file, in the given order.
// Destinations are <outputDir>/<stem>.wav; later files sharing a stem get
// " - dupN" names. foldCase treats destinations differing only in case as
// the same file.
func BuildJobs(files []string, outputDir string, foldCase bool) []*Job {
	resolver := naming.NewCollisionResolver(foldCase)
	jobs := make([]*Job, 0, len(files))
	for _, src := range files {
		dst := resolver.Resolve(src, naming.OutputPath(outputDir, filepath.Base(src)))
		jobs = append(jobs, &Job{
			ID:          uuid.New(),
			Source:      src,
			Destination: dst,
			Args:        ffmpeg.BuildWAVArgs(src, dst),
			State:       StatePending,
		})
	}
	return jobs
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
