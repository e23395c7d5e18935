// Package recon walks one participant's sessions and dispatches the
// reconstruction pipelines for every anatomical scan.
package recon

import (
	"context"
	"fmt"
	"log"

	"github.com/banshee-data/fsrecon/internal/bids"
	"github.com/banshee-data/fsrecon/internal/freesurfer"
	"github.com/banshee-data/fsrecon/internal/participants"
	"github.com/banshee-data/fsrecon/internal/units"
	"github.com/hashicorp/go-multierror"
)

// Runner processes scans one at a time.
type Runner struct {
	Dataset    *bids.Dataset
	Table      *participants.Table
	Pipeline   *freesurfer.Pipeline
	AgeUnits   string
	Modalities []bids.Modality
	// Recorder is optional.
	Recorder Recorder
}

// Run processes every NIfTI scan in every session of label. The clinical
// pipeline runs for each scan; recon-all runs only for scans of a selected
// modality whose age is above the threshold. Pipeline failures do not stop
// the run; they are collected in Summary.Err. The returned error is only
// set when the participant cannot be enumerated or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, label string) (*Summary, error) {
	sessions, err := r.Dataset.Sessions(label)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Participant: label, Sessions: len(sessions)}
	var merr *multierror.Error

	for _, session := range sessions {
		scans, err := r.Dataset.AnatScans(label, session)
		if err != nil {
			merr = multierror.Append(merr, err)
			log.Printf("[recon] skipping session %s: %v", session, err)
			continue
		}

		for _, scan := range scans {
			if err := ctx.Err(); err != nil {
				summary.Err = merr.ErrorOrNil()
				return summary, err
			}
			summary.Scans++
			for _, job := range r.processScan(ctx, scan) {
				if job.Status == StatusFailed {
					merr = multierror.Append(merr, fmt.Errorf("%s on %s: %s", job.Pipeline, job.Scan, job.Reason))
				}
				summary.Jobs = append(summary.Jobs, job)
				r.record(job)
			}
		}
	}

	summary.Err = merr.ErrorOrNil()
	return summary, nil
}

func (r *Runner) processScan(ctx context.Context, scan bids.Scan) []Job {
	log.Printf("--------------------- Working on scan : %s ---------------------", scan.Filename)

	base := Job{
		Subject:  scan.Subject,
		Session:  scan.Session,
		Scan:     scan.Filename,
		ScanName: scan.Name(),
	}
	if m, ok := bids.DetectModality(scan.Filename); ok {
		base.Modality = string(m)
	}

	months, ageErr := r.ageMonths(scan.Subject, scan.Session)
	if ageErr != nil {
		log.Printf("[recon] age unavailable for %s: %v", scan.Filename, ageErr)
	} else {
		base.AgeMonths = months
		base.AgeKnown = true
	}

	clinical := fromResult(base, r.Pipeline.RunClinical(ctx, scan))

	reconAll := base
	reconAll.Pipeline = freesurfer.ReconAll
	_, selected := bids.MatchModality(scan.Filename, r.Modalities)
	switch {
	case !selected:
		reconAll.Status = StatusSkipped
		reconAll.Reason = "modality not selected"
	case ageErr != nil:
		reconAll.Status = StatusFailed
		reconAll.Reason = fmt.Sprintf("age unavailable: %v", ageErr)
		reconAll.ExitCode = -1
	case !units.OldEnoughForReconAll(months):
		reconAll.Status = StatusSkipped
		reconAll.Reason = fmt.Sprintf("age %.1f months is not above %.0f", months, units.AdultThresholdMonths)
	default:
		reconAll = fromResult(base, r.Pipeline.RunReconAll(ctx, scan))
	}
	if reconAll.Status == StatusSkipped {
		log.Printf("[recon] recon-all skipped for %s: %s", scan.Filename, reconAll.Reason)
	}

	return []Job{clinical, reconAll}
}

func (r *Runner) ageMonths(subject, session string) (float64, error) {
	age, err := r.Table.Age(subject, session)
	if err != nil {
		return 0, err
	}
	return units.ToMonths(age, r.AgeUnits)
}

func (r *Runner) record(job Job) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.Record(job); err != nil {
		log.Printf("[recon] failed to record %s job for %s: %v", job.Pipeline, job.Scan, err)
	}
}

func fromResult(base Job, res freesurfer.Result) Job {
	job := base
	job.Pipeline = res.Pipeline
	job.Command = res.Command.String()
	job.ExitCode = res.ExitCode
	job.Started = res.Started
	job.Duration = res.Duration

	switch {
	case res.Err != nil:
		job.Status = StatusFailed
		job.Reason = res.Err.Error()
	case res.DryRun:
		job.Status = StatusPlanned
	default:
		job.Status = StatusSucceeded
	}
	return job
}
