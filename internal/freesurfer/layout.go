package freesurfer

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/fsrecon/internal/fsutil"
)

// Output roots under the output directory, named for the FreeSurfer
// release the pipelines were validated against.
const (
	ReconAllDir = "fs7.4.1_recon_all"
	ClinicalDir = "fs7.4.1_recon_all_clinical"
)

// Layout maps scans to their output locations.
type Layout struct {
	OutputDir string
}

// ReconAllRoot holds one recon-all subjects directory per scan.
func (l Layout) ReconAllRoot() string {
	return filepath.Join(l.OutputDir, ReconAllDir)
}

// ClinicalRoot holds one recon-all-clinical subjects directory per scan.
func (l Layout) ClinicalRoot() string {
	return filepath.Join(l.OutputDir, ClinicalDir)
}

// ReconAllSubjectsDir is the -sd directory for a scan.
func (l Layout) ReconAllSubjectsDir(scanName string) string {
	return filepath.Join(l.ReconAllRoot(), scanName)
}

// ClinicalSubjectsDir is the output directory for a scan's clinical run.
func (l Layout) ClinicalSubjectsDir(scanName string) string {
	return filepath.Join(l.ClinicalRoot(), scanName)
}

// Prepare creates the output directory and both pipeline roots.
func (l Layout) Prepare(fsys fsutil.FileSystem) error {
	for _, dir := range []string{l.OutputDir, l.ReconAllRoot(), l.ClinicalRoot()} {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
