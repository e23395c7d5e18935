package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/fsrecon/internal/bids"
	"github.com/banshee-data/fsrecon/internal/config"
	"github.com/banshee-data/fsrecon/internal/freesurfer"
	"github.com/banshee-data/fsrecon/internal/fsutil"
	"github.com/banshee-data/fsrecon/internal/ledger"
	"github.com/banshee-data/fsrecon/internal/participants"
	"github.com/banshee-data/fsrecon/internal/recon"
	"github.com/banshee-data/fsrecon/internal/report"
	"github.com/banshee-data/fsrecon/internal/timeutil"
	"github.com/banshee-data/fsrecon/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "history" {
		if err := runHistory(os.Args[2:], os.Stdout, os.Stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				os.Exit(0)
			}
			log.Fatalf("history: %v", err)
		}
		return
	}

	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, errVersion):
		fmt.Printf("fsrecon %s\n", version.String())
		return
	case err != nil:
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := cfg.Environment(os.Environ())
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := &app{
		cfg:    cfg,
		fs:     fsutil.OSFileSystem{},
		runner: freesurfer.NewExecutor(env, cfg.DryRun),
		env:    env,
		clock:  timeutil.RealClock{},
		out:    os.Stdout,
	}
	if err := app.run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

// app holds the collaborators of a single participant run.
type app struct {
	cfg    *config.Config
	fs     fsutil.FileSystem
	runner freesurfer.CommandRunner
	env    []string
	clock  timeutil.Clock
	out    io.Writer
}

// run processes the configured participant. Pipeline failures are reported
// in the summary and do not produce an error.
func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	label := cfg.Participant()
	ds := bids.NewDataset(a.fs, cfg.InputDir)

	if !a.fs.Exists(ds.ParticipantsFile()) {
		return fmt.Errorf("%s not found in %s", participants.FileName, cfg.InputDir)
	}
	table, err := participants.Load(a.fs, ds.ParticipantsFile())
	if err != nil {
		return err
	}
	if !fsutil.IsDir(a.fs, ds.SubjectDir(label)) {
		return fmt.Errorf("participant directory %s not found", ds.SubjectDir(label))
	}
	if !a.fs.Exists(cfg.LicensePath) {
		log.Printf("Warning: license file %s does not exist", cfg.LicensePath)
	}

	target, err := config.FSAverage(a.env)
	if err != nil {
		if !cfg.DryRun {
			return err
		}
		target = freesurfer.FSAverage("$" + config.EnvFreeSurferHome)
	}

	layout := freesurfer.Layout{OutputDir: cfg.OutputDir}
	if !cfg.DryRun {
		if err := layout.Prepare(a.fs); err != nil {
			return err
		}
	}

	runner := &recon.Runner{
		Dataset: ds,
		Table:   table,
		Pipeline: &freesurfer.Pipeline{
			Runner: a.runner,
			FS:     a.fs,
			Layout: layout,
			Target: target,
			Clock:  a.clock,
			DryRun: cfg.DryRun,
		},
		AgeUnits:   cfg.AgeUnits,
		Modalities: cfg.Modalities,
	}

	db, runID, err := a.openLedger(label)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		runner.Recorder = &ledger.RunRecorder{DB: db, RunID: runID}
	}

	log.Printf("Processing %s from %s into %s", label, cfg.InputDir, cfg.OutputDir)
	summary, runErr := runner.Run(ctx, label)
	if summary == nil {
		return runErr
	}

	if db != nil {
		if err := db.FinishRun(runID, summary); err != nil {
			log.Printf("[ledger] failed to finish run %s: %v", runID, err)
		}
	}
	if cfg.Report && !cfg.DryRun {
		if err := report.WriteFile(a.fs, cfg.ReportFile(), summary); err != nil {
			log.Printf("Warning: failed to write report: %v", err)
		} else {
			log.Printf("Report written to %s", cfg.ReportFile())
		}
	}

	printSummary(a.out, summary)
	if summary.Err != nil {
		log.Printf("Completed with failures:\n%v", summary.Err)
	}
	return runErr
}

// openLedger opens the ledger and starts a run. A dry run only records to
// a ledger named by --ledger or the config file, never to the default.
func (a *app) openLedger(label string) (*ledger.DB, string, error) {
	path, ok := a.cfg.LedgerFile()
	if !ok || (a.cfg.DryRun && a.cfg.LedgerPath == "") {
		return nil, "", nil
	}
	if err := a.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := ledger.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	db.Clock = a.clock

	modalities := make([]string, len(a.cfg.Modalities))
	for i, m := range a.cfg.Modalities {
		modalities[i] = string(m)
	}
	runID, err := db.StartRun(ledger.RunParams{
		Participant: label,
		InputDir:    a.cfg.InputDir,
		OutputDir:   a.cfg.OutputDir,
		AgeUnits:    a.cfg.AgeUnits,
		Modalities:  modalities,
		DryRun:      a.cfg.DryRun,
		Version:     version.Version,
	})
	if err != nil {
		db.Close()
		return nil, "", err
	}
	log.Printf("[ledger] run %s recorded in %s", runID, path)
	return db, runID, nil
}

func printSummary(w io.Writer, s *recon.Summary) {
	fmt.Fprintf(w, "\nParticipant %s: %d session(s), %d scan(s)\n", s.Participant, s.Sessions, s.Scans)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PIPELINE\tSUCCEEDED\tFAILED\tSKIPPED\tPLANNED")
	for _, p := range []freesurfer.Name{freesurfer.Clinical, freesurfer.ReconAll} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", p,
			s.Count(p, recon.StatusSucceeded),
			s.Count(p, recon.StatusFailed),
			s.Count(p, recon.StatusSkipped),
			s.Count(p, recon.StatusPlanned))
	}
	tw.Flush()
}

// runHistory lists recent runs stored in a ledger.
func runHistory(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("n", 10, "number of runs to list")
	showJobs := fs.Bool("jobs", false, "list the jobs of each run")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: fsrecon history <ledger.db> [-n count] [-jobs]")
	}

	path := positional[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("ledger %s: %w", path, err)
	}
	db, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs(*limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPARTICIPANT\tSTARTED\tSCANS\tFAILED\tMODALITIES\tDRY-RUN")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%v\n",
			r.RunID, r.Participant, r.StartedAt.Format(time.RFC3339),
			r.Scans, r.Failed, strings.Join(r.Modalities, ","), r.DryRun)
	}
	tw.Flush()

	if !*showJobs {
		return nil
	}
	for _, r := range runs {
		jobs, err := db.Jobs(r.RunID)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\n%s\n", r.RunID)
		tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		for _, j := range jobs {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", j.Pipeline, j.ScanName, j.Status, j.Reason)
		}
		tw.Flush()
	}
	return nil
}
