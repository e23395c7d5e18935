// Package config gathers and validates the settings of a reconstruction run.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/fsrecon/internal/bids"
	"github.com/banshee-data/fsrecon/internal/security"
	"github.com/banshee-data/fsrecon/internal/units"
	"github.com/hashicorp/go-multierror"
)

// AnalysisParticipant is the only supported analysis level.
const AnalysisParticipant = "participant"

// LedgerDisabled turns off the run ledger when passed as the ledger path.
const LedgerDisabled = "none"

// DefaultLedgerName is the ledger file created in the output directory.
const DefaultLedgerName = "fsrecon.db"

// ReportName is the HTML summary written to the output directory.
const ReportName = "fsrecon_report.html"

// ErrNoModality is reported when no modality toggle is set.
var ErrNoModality = errors.New("please specify the type of scans you would like to process (--t1w, --t2w, --flair or --mprage) and try again")

// Config holds the settings of one run.
type Config struct {
	InputDir         string
	OutputDir        string
	AnalysisLevel    string
	ParticipantLabel string
	Modalities       []bids.Modality
	AgeUnits         string
	LicensePath      string
	EnvFile          string
	FreeSurferHome   string
	LedgerPath       string
	Report           bool
	DryRun           bool
}

// Participant returns the participant label with its "sub-" prefix.
func (c *Config) Participant() string {
	return bids.NormalizeLabel(c.ParticipantLabel)
}

// LedgerFile returns the ledger path and whether the ledger is enabled.
func (c *Config) LedgerFile() (string, bool) {
	switch c.LedgerPath {
	case LedgerDisabled:
		return "", false
	case "":
		return filepath.Join(c.OutputDir, DefaultLedgerName), true
	default:
		return c.LedgerPath, true
	}
}

// ReportFile is the path of the HTML summary.
func (c *Config) ReportFile() string {
	return filepath.Join(c.OutputDir, ReportName)
}

// Validate checks every setting and reports all problems together.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if c.InputDir == "" {
		merr = multierror.Append(merr, errors.New("input_dir is required"))
	}
	if c.OutputDir == "" {
		merr = multierror.Append(merr, errors.New("output_dir is required"))
	}
	if c.AnalysisLevel != AnalysisParticipant {
		merr = multierror.Append(merr, fmt.Errorf("analysis_level must be %q, got %q", AnalysisParticipant, c.AnalysisLevel))
	}
	if strings.TrimSpace(c.ParticipantLabel) == "" || c.ParticipantLabel == "sub-" {
		merr = multierror.Append(merr, errors.New("--participant_label is required"))
	} else if err := security.ValidateLabel(c.InputDir, c.Participant()); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("--participant_label: %w", err))
	}
	if !units.IsValid(c.AgeUnits) {
		merr = multierror.Append(merr, fmt.Errorf("--age-units must be one of %s, got %q", units.GetValidUnitsString(), c.AgeUnits))
	}
	if c.LicensePath == "" {
		merr = multierror.Append(merr, errors.New("--license is required"))
	}
	if len(c.Modalities) == 0 {
		merr = multierror.Append(merr, ErrNoModality)
	}

	return merr.ErrorOrNil()
}
