// Package freesurfer builds and dispatches the FreeSurfer reconstruction
// commands for a single scan.
package freesurfer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/banshee-data/fsrecon/internal/bids"
	"github.com/banshee-data/fsrecon/internal/fsutil"
	"github.com/banshee-data/fsrecon/internal/timeutil"
)

// Executables invoked on PATH.
const (
	ClinicalBin = "recon-all-clinical.sh"
	ReconAllBin = "recon-all"
)

// clinicalThreads is the thread count passed to recon-all-clinical.
const clinicalThreads = "1"

// Name identifies a pipeline in logs, the ledger and the report.
type Name string

const (
	Clinical Name = "recon-all-clinical"
	ReconAll Name = "recon-all"
)

// FSAverage returns the recon-all -target template under a FreeSurfer
// installation.
func FSAverage(freesurferHome string) string {
	return filepath.Join(freesurferHome, "subjects", "fsaverage")
}

// Result describes one pipeline invocation.
type Result struct {
	Pipeline    Name
	Command     Command
	SubjectsDir string
	ExitCode    int
	Started     time.Time
	Duration    time.Duration
	DryRun      bool
	Err         error
}

// OK reports whether the pipeline exited cleanly.
func (r Result) OK() bool {
	return r.Err == nil
}

// Pipeline dispatches both reconstruction pipelines.
type Pipeline struct {
	Runner CommandRunner
	FS     fsutil.FileSystem
	Layout Layout
	// Target is the recon-all -target template directory.
	Target string
	Clock  timeutil.Clock
	// DryRun skips output directory creation; pair it with a dry-run runner.
	DryRun bool
}

// ClinicalCommand builds the recon-all-clinical invocation for scan.
func (p *Pipeline) ClinicalCommand(scan bids.Scan) Command {
	return Command{
		Name: ClinicalBin,
		Args: []string{scan.Path, scan.Subject, clinicalThreads, p.Layout.ClinicalSubjectsDir(scan.Name())},
	}
}

// ReconAllCommand builds the recon-all invocation for scan.
func (p *Pipeline) ReconAllCommand(scan bids.Scan) Command {
	return Command{
		Name: ReconAllBin,
		Args: []string{
			"-sd", p.Layout.ReconAllSubjectsDir(scan.Name()),
			"-i", scan.Path,
			"-s", scan.Subject,
			"-all",
			"-target", p.Target,
		},
	}
}

// RunClinical runs recon-all-clinical on scan.
func (p *Pipeline) RunClinical(ctx context.Context, scan bids.Scan) Result {
	return p.run(ctx, Clinical, scan.Name(), p.Layout.ClinicalSubjectsDir(scan.Name()), p.ClinicalCommand(scan))
}

// RunReconAll runs recon-all on scan.
func (p *Pipeline) RunReconAll(ctx context.Context, scan bids.Scan) Result {
	return p.run(ctx, ReconAll, scan.Name(), p.Layout.ReconAllSubjectsDir(scan.Name()), p.ReconAllCommand(scan))
}

func (p *Pipeline) run(ctx context.Context, name Name, scanName, subjectsDir string, cmd Command) Result {
	log.Println("============================")
	log.Printf("Running %s on %s", name, scanName)

	res := Result{
		Pipeline:    name,
		Command:     cmd,
		SubjectsDir: subjectsDir,
		DryRun:      p.DryRun,
	}

	if !p.DryRun {
		if err := p.FS.MkdirAll(subjectsDir, 0755); err != nil {
			res.ExitCode = -1
			res.Err = fmt.Errorf("failed to create %s: %w", subjectsDir, err)
			log.Printf("%s did not run for scan %s: %v", name, scanName, res.Err)
			log.Println("============================")
			return res
		}
	}

	res.Started = p.Clock.Now()
	res.ExitCode, res.Err = p.Runner.Run(ctx, cmd)
	res.Duration = p.Clock.Since(res.Started)

	log.Print(cmd.String())
	if res.Err != nil {
		log.Printf("%s did not run for scan %s: %v", name, scanName, res.Err)
	} else {
		log.Printf("Done! (%s)", res.Duration.Round(time.Second))
	}
	log.Println("============================")

	return res
}
