package bids

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/fsrecon/internal/fsutil"
	"github.com/banshee-data/fsrecon/internal/participants"
)

const (
	subjectPrefix = "sub-"
	anatDir       = "anat"
)

// NormalizeLabel returns the participant label with the "sub-" prefix,
// adding it when absent.
func NormalizeLabel(label string) string {
	if strings.HasPrefix(label, subjectPrefix) {
		return label
	}
	return subjectPrefix + label
}

// IsNIfTI reports whether filename names a NIfTI image.
func IsNIfTI(filename string) bool {
	return strings.HasSuffix(filename, ".nii") || strings.HasSuffix(filename, ".nii.gz")
}

// ScanName strips a trailing .nii or .nii.gz from filename.
func ScanName(filename string) string {
	if s, ok := strings.CutSuffix(filename, ".nii.gz"); ok {
		return s
	}
	if s, ok := strings.CutSuffix(filename, ".nii"); ok {
		return s
	}
	return filename
}

// Scan is one anatomical image of a session.
type Scan struct {
	Subject  string
	Session  string
	Filename string
	Path     string
}

// Name is the filename without its NIfTI extension. It names the per-scan
// output directories.
func (s Scan) Name() string {
	return ScanName(s.Filename)
}

// Dataset reads a BIDS tree through a FileSystem.
type Dataset struct {
	FS   fsutil.FileSystem
	Root string
}

// NewDataset returns a Dataset rooted at root.
func NewDataset(fsys fsutil.FileSystem, root string) *Dataset {
	return &Dataset{FS: fsys, Root: root}
}

// ParticipantsFile is the path of participants.tsv.
func (d *Dataset) ParticipantsFile() string {
	return filepath.Join(d.Root, participants.FileName)
}

// SubjectDir is the directory of a normalized participant label.
func (d *Dataset) SubjectDir(label string) string {
	return filepath.Join(d.Root, label)
}

// Sessions lists the session directories of a participant in lexical order.
func (d *Dataset) Sessions(label string) ([]string, error) {
	dir := d.SubjectDir(label)
	entries, err := d.FS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant directory %s: %w", dir, err)
	}

	var sessions []string
	for _, e := range entries {
		if e.IsDir() {
			sessions = append(sessions, e.Name())
		}
	}
	return sessions, nil
}

// AnatScans lists the NIfTI images in a session's anat directory. A
// session without anat returns no scans and no error.
func (d *Dataset) AnatScans(label, session string) ([]Scan, error) {
	dir := filepath.Join(d.SubjectDir(label), session, anatDir)
	if !fsutil.IsDir(d.FS, dir) {
		return nil, nil
	}

	entries, err := d.FS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var scans []Scan
	for _, e := range entries {
		if e.IsDir() || !IsNIfTI(e.Name()) {
			continue
		}
		scans = append(scans, Scan{
			Subject:  label,
			Session:  session,
			Filename: e.Name(),
			Path:     filepath.Join(dir, e.Name()),
		})
	}
	return scans, nil
}
