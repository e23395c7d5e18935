// Package ledger records reconstruction runs and their per-scan jobs in a
// sqlite database so repeated invocations on a dataset can be audited.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/fsrecon/internal/freesurfer"
	"github.com/banshee-data/fsrecon/internal/recon"
	"github.com/banshee-data/fsrecon/internal/timeutil"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB is the run ledger, a sqlite database of runs and their jobs.
type DB struct {
	*sql.DB
	Clock timeutil.Clock
}

// Open opens (creating if needed) the ledger at path and applies pending
// migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas and writes on the same handle.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	db := &DB{DB: sqlDB, Clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RunParams describes a run at the moment it starts.
type RunParams struct {
	Participant string
	InputDir    string
	OutputDir   string
	AgeUnits    string
	Modalities  []string
	DryRun      bool
	Version     string
}

// Run is a stored run.
type Run struct {
	RunID       string
	Participant string
	InputDir    string
	OutputDir   string
	AgeUnits    string
	Modalities  []string
	DryRun      bool
	Version     string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while the run is in progress
	Scans       int
	Failed      int
}

// StartRun inserts a new run and returns its id.
func (db *DB) StartRun(p RunParams) (string, error) {
	runID := uuid.New().String()

	_, err := db.Exec(`
		INSERT INTO runs (
			run_id, participant, input_dir, output_dir, age_units,
			modalities, dry_run, version, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, p.Participant, p.InputDir, p.OutputDir, p.AgeUnits,
		strings.Join(p.Modalities, ","), p.DryRun, p.Version, db.Clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the run with its completion time and totals.
func (db *DB) FinishRun(runID string, summary *recon.Summary) error {
	res, err := db.Exec(`
		UPDATE runs SET finished_at = ?, scans = ?, failed = ?
		WHERE run_id = ?`,
		db.Clock.Now().UnixNano(), summary.Scans, summary.Failed(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// RecordJob appends a job to a run.
func (db *DB) RecordJob(runID string, job recon.Job) error {
	var age, started interface{}
	if job.AgeKnown {
		age = job.AgeMonths
	}
	if !job.Started.IsZero() {
		started = job.Started.UnixNano()
	}

	_, err := db.Exec(`
		INSERT INTO jobs (
			run_id, session, scan, scan_name, modality, age_months, pipeline,
			status, reason, command, exit_code, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, job.Session, job.Scan, job.ScanName, job.Modality, age, string(job.Pipeline),
		string(job.Status), job.Reason, job.Command, job.ExitCode, started, job.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	rows, err := db.Query(`
		SELECT run_id, participant, input_dir, output_dir, age_units, modalities,
		       dry_run, version, started_at, finished_at, scans, failed
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			modalities string
			started    int64
			finished   sql.NullInt64
		)
		if err := rows.Scan(
			&r.RunID, &r.Participant, &r.InputDir, &r.OutputDir, &r.AgeUnits, &modalities,
			&r.DryRun, &r.Version, &started, &finished, &r.Scans, &r.Failed,
		); err != nil {
			return nil, err
		}
		if modalities != "" {
			r.Modalities = strings.Split(modalities, ",")
		}
		r.StartedAt = time.Unix(0, started)
		if finished.Valid {
			r.FinishedAt = time.Unix(0, finished.Int64)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Jobs returns the jobs of a run in the order they were recorded.
func (db *DB) Jobs(runID string) ([]recon.Job, error) {
	rows, err := db.Query(`
		SELECT r.participant, j.session, j.scan, j.scan_name, j.modality, j.age_months,
		       j.pipeline, j.status, j.reason, j.command, j.exit_code, j.started_at, j.duration_ms
		FROM jobs j JOIN runs r ON r.run_id = j.run_id
		WHERE j.run_id = ?
		ORDER BY j.job_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []recon.Job
	for rows.Next() {
		var (
			j                         recon.Job
			modality, reason, command sql.NullString
			age                       sql.NullFloat64
			started                   sql.NullInt64
			pipeline, status          string
			durationMS                int64
		)
		if err := rows.Scan(
			&j.Subject, &j.Session, &j.Scan, &j.ScanName, &modality, &age,
			&pipeline, &status, &reason, &command, &j.ExitCode, &started, &durationMS,
		); err != nil {
			return nil, err
		}
		j.Modality = modality.String
		j.Reason = reason.String
		j.Command = command.String
		j.Pipeline = freesurfer.Name(pipeline)
		j.Status = recon.Status(status)
		if age.Valid {
			j.AgeMonths = age.Float64
			j.AgeKnown = true
		}
		if started.Valid {
			j.Started = time.Unix(0, started.Int64)
		}
		j.Duration = time.Duration(durationMS) * time.Millisecond
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// RunRecorder records jobs against one run.
type RunRecorder struct {
	DB    *DB
	RunID string
}

var _ recon.Recorder = (*RunRecorder)(nil)

// Record stores job under the recorder's run.
func (r *RunRecorder) Record(job recon.Job) error {
	return r.DB.RecordJob(r.RunID, job)
}
