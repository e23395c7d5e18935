// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the BIDS fixtures used by the recon, ledger and
// report tests.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/fsrecon/internal/fsutil"
)

// DatasetRoot is where fixture datasets are created.
const DatasetRoot = "/bids"

// ParticipantsHeader is the header of a conforming participants.tsv.
const ParticipantsHeader = "participant_id\tsubject_id\tsession_id\tage_at_scan"

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AgeRow is one participants.tsv row.
type AgeRow struct {
	Subject string
	Session string
	Age     string
}

// ParticipantsTSV renders rows below ParticipantsHeader.
func ParticipantsTSV(rows ...AgeRow) string {
	var b strings.Builder
	b.WriteString(ParticipantsHeader)
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strings.Join([]string{r.Subject, r.Subject, r.Session, r.Age}, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// NewDataset writes participants.tsv and empty files at the given paths,
// relative to DatasetRoot, into a fresh in-memory filesystem.
func NewDataset(t *testing.T, tsv string, files ...string) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	if err := mfs.WriteFile(filepath.Join(DatasetRoot, "participants.tsv"), []byte(tsv), 0644); err != nil {
		t.Fatalf("failed to write participants.tsv: %v", err)
	}
	for _, f := range files {
		if err := mfs.WriteFile(filepath.Join(DatasetRoot, f), nil, 0644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}
	return mfs
}
