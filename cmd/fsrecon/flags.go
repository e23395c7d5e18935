package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/fsrecon/internal/bids"
	"github.com/banshee-data/fsrecon/internal/config"
)

var errVersion = errors.New("version requested")

func printUsage(w io.Writer) {
	fmt.Fprint(w, `fsrecon - FreeSurfer reconstruction for one BIDS participant

Usage: fsrecon [options] <input_dir> <output_dir> participant
       fsrecon history <ledger.db> [-n count] [-jobs]

Runs recon-all-clinical on every anatomical NIfTI scan of the participant
and recon-all on scans of the selected modalities whose age at scan is
above 24 months. Ages are read from <input_dir>/participants.tsv
(columns subject_id, session_id, age_at_scan).

Options:
  --participant_label, --participant-label <label>
                         Participant to process, with or without "sub-" (required)
  --t1w, --t2w, --flair, --mprage
                         Modalities processed by recon-all (at least one required)
  -u, --age-units <m|d|y>
                         Units of age_at_scan (required)
  -l, --license <path>   FreeSurfer license file, exported as FS_LICENSE (required)
  --config <file.json>   Site defaults; command-line values win
  --env-file <path>      dotenv file merged into the pipeline environment
  --freesurfer-home <dir>
                         Override FREESURFER_HOME
  --ledger <path|none>   Run ledger (default <output_dir>/fsrecon.db)
  --report               Write <output_dir>/fsrecon_report.html (default true)
  --dry-run              Print commands without running them
  --version              Print version and exit

Examples:
  fsrecon /data/bids /data/derivatives participant --participant_label 01 --t1w -u d -l /opt/license.txt
  fsrecon /data/bids /data/derivatives participant --participant-label sub-01 --t1w --flair -u y -l license.txt --dry-run
`)
}

// parseInterleaved parses flags that may be mixed with positional
// arguments and returns the positionals in order. Everything after a "--"
// terminator is positional.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// parseArgs parses the command line into a validated Config. Flags may
// appear before, between or after the positional arguments.
func parseArgs(args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("fsrecon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	cfg := &config.Config{}
	var (
		t1w, t2w, flair, mprage bool
		configFile              string
		showVersion             bool
	)

	fs.StringVar(&cfg.ParticipantLabel, "participant_label", "", "participant label")
	fs.StringVar(&cfg.ParticipantLabel, "participant-label", "", "participant label")
	fs.BoolVar(&t1w, "t1w", false, "process T1w scans with recon-all")
	fs.BoolVar(&t2w, "t2w", false, "process T2w scans with recon-all")
	fs.BoolVar(&flair, "flair", false, "process FLAIR scans with recon-all")
	fs.BoolVar(&mprage, "mprage", false, "process MPRAGE scans with recon-all")
	fs.StringVar(&cfg.AgeUnits, "u", "", "age units (m, d, y)")
	fs.StringVar(&cfg.AgeUnits, "age-units", "", "age units (m, d, y)")
	fs.StringVar(&cfg.LicensePath, "l", "", "FreeSurfer license path")
	fs.StringVar(&cfg.LicensePath, "license", "", "FreeSurfer license path")
	fs.StringVar(&configFile, "config", "", "JSON file with site defaults")
	fs.StringVar(&cfg.EnvFile, "env-file", "", "dotenv file for the pipeline environment")
	fs.StringVar(&cfg.FreeSurferHome, "freesurfer-home", "", "override FREESURFER_HOME")
	fs.StringVar(&cfg.LedgerPath, "ledger", "", "run ledger path, or none")
	fs.BoolVar(&cfg.Report, "report", true, "write an HTML report")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "print commands without running them")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return nil, err
	}

	if showVersion {
		return nil, errVersion
	}

	if len(positional) != 3 {
		return nil, fmt.Errorf("expected 3 positional arguments (input_dir output_dir analysis_level), got %d", len(positional))
	}
	cfg.InputDir, cfg.OutputDir, cfg.AnalysisLevel = positional[0], positional[1], positional[2]

	toggles := []struct {
		on bool
		m  bids.Modality
	}{{t1w, bids.T1w}, {t2w, bids.T2w}, {flair, bids.FLAIR}, {mprage, bids.MPRAGE}}
	for _, tg := range toggles {
		if tg.on {
			cfg.Modalities = append(cfg.Modalities, tg.m)
		}
	}

	if configFile != "" {
		fc, err := config.LoadFileConfig(configFile)
		if err != nil {
			return nil, err
		}
		reportSet := false
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "report" {
				reportSet = true
			}
		})
		cfg.ApplyDefaults(fc, reportSet)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
