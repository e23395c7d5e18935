package recon

import (
	"time"

	"github.com/banshee-data/fsrecon/internal/freesurfer"
)

// Status is the outcome of one pipeline decision for one scan.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	// StatusPlanned marks a command printed by a dry run.
	StatusPlanned Status = "planned"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusSucceeded, StatusFailed, StatusSkipped, StatusPlanned}

// Job records what happened to one pipeline for one scan.
type Job struct {
	Subject  string
	Session  string
	Scan     string
	ScanName string
	Modality string

	// AgeMonths is only meaningful when AgeKnown is set.
	AgeMonths float64
	AgeKnown  bool

	Pipeline freesurfer.Name
	Status   Status
	Reason   string
	Command  string
	ExitCode int
	Started  time.Time
	Duration time.Duration
}

// Recorder persists jobs as they complete.
type Recorder interface {
	Record(job Job) error
}

// Summary aggregates the jobs of one run.
type Summary struct {
	Participant string
	Sessions    int
	Scans       int
	Jobs        []Job
	// Err collects every failed pipeline and unresolved age.
	Err error
}

// Count returns the number of jobs for pipeline with status.
func (s *Summary) Count(pipeline freesurfer.Name, status Status) int {
	n := 0
	for _, j := range s.Jobs {
		if j.Pipeline == pipeline && j.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the number of failed jobs across both pipelines.
func (s *Summary) Failed() int {
	return s.Count(freesurfer.Clinical, StatusFailed) + s.Count(freesurfer.ReconAll, StatusFailed)
}
