package freesurfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/fsrecon/internal/bids"
	"github.com/banshee-data/fsrecon/internal/fsutil"
	"github.com/banshee-data/fsrecon/internal/timeutil"
	"github.com/google/go-cmp/cmp"
)

var testScan = bids.Scan{
	Subject:  "sub-01",
	Session:  "ses-1",
	Filename: "sub-01_ses-1_T1w.nii.gz",
	Path:     "/ds/sub-01/ses-1/anat/sub-01_ses-1_T1w.nii.gz",
}

func newTestPipeline(runner CommandRunner) (*Pipeline, *fsutil.MemoryFileSystem, *timeutil.MockClock) {
	mfs := fsutil.NewMemoryFileSystem()
	clock := timeutil.NewMockClock(time.Date(2025, time.May, 4, 10, 0, 0, 0, time.UTC))
	return &Pipeline{
		Runner: runner,
		FS:     mfs,
		Layout: Layout{OutputDir: "/out"},
		Target: FSAverage("/opt/freesurfer"),
		Clock:  clock,
	}, mfs, clock
}

func TestFSAverage(t *testing.T) {
	if got := FSAverage("/usr/local/freesurfer"); got != "/usr/local/freesurfer/subjects/fsaverage" {
		t.Errorf("FSAverage() = %q", got)
	}
}

func TestLayout(t *testing.T) {
	l := Layout{OutputDir: "/out"}
	if got := l.ReconAllSubjectsDir("scan"); got != "/out/fs7.4.1_recon_all/scan" {
		t.Errorf("ReconAllSubjectsDir() = %q", got)
	}
	if got := l.ClinicalSubjectsDir("scan"); got != "/out/fs7.4.1_recon_all_clinical/scan" {
		t.Errorf("ClinicalSubjectsDir() = %q", got)
	}

	mfs := fsutil.NewMemoryFileSystem()
	if err := l.Prepare(mfs); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	for _, dir := range []string{"/out", l.ReconAllRoot(), l.ClinicalRoot()} {
		if !fsutil.IsDir(mfs, dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}
}

func TestPipeline_Commands(t *testing.T) {
	p, _, _ := newTestPipeline(&FakeCommandRunner{})

	wantClinical := Command{
		Name: "recon-all-clinical.sh",
		Args: []string{testScan.Path, "sub-01", "1", "/out/fs7.4.1_recon_all_clinical/sub-01_ses-1_T1w"},
	}
	if diff := cmp.Diff(wantClinical, p.ClinicalCommand(testScan)); diff != "" {
		t.Errorf("ClinicalCommand mismatch (-want +got):\n%s", diff)
	}

	wantReconAll := Command{
		Name: "recon-all",
		Args: []string{
			"-sd", "/out/fs7.4.1_recon_all/sub-01_ses-1_T1w",
			"-i", testScan.Path,
			"-s", "sub-01",
			"-all",
			"-target", "/opt/freesurfer/subjects/fsaverage",
		},
	}
	if diff := cmp.Diff(wantReconAll, p.ReconAllCommand(testScan)); diff != "" {
		t.Errorf("ReconAllCommand mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_RunClinical(t *testing.T) {
	runner := &FakeCommandRunner{}
	p, mfs, clock := newTestPipeline(runner)
	clock.SetStep(5 * time.Minute)

	res := p.RunClinical(context.Background(), testScan)
	if !res.OK() {
		t.Fatalf("RunClinical failed: %v", res.Err)
	}
	if res.Pipeline != Clinical {
		t.Errorf("Pipeline = %q", res.Pipeline)
	}
	if res.Duration != 5*time.Minute {
		t.Errorf("Duration = %v, want 5m", res.Duration)
	}
	if !fsutil.IsDir(mfs, "/out/fs7.4.1_recon_all_clinical/sub-01_ses-1_T1w") {
		t.Error("expected clinical subjects directory to be created")
	}
	if diff := cmp.Diff([]string{ClinicalBin}, runner.Names()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_RunReconAllFailure(t *testing.T) {
	runner := &FakeCommandRunner{ExitCodes: map[string]int{ReconAllBin: 2}}
	p, mfs, _ := newTestPipeline(runner)

	res := p.RunReconAll(context.Background(), testScan)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", res.ExitCode)
	}
	if !fsutil.IsDir(mfs, res.SubjectsDir) {
		t.Error("subjects directory should be created before running")
	}
}

func TestPipeline_DryRunSkipsDirectories(t *testing.T) {
	runner := &FakeCommandRunner{}
	p, mfs, _ := newTestPipeline(runner)
	p.DryRun = true

	res := p.RunReconAll(context.Background(), testScan)
	if !res.OK() || !res.DryRun {
		t.Fatalf("unexpected result: %+v", res)
	}
	if mfs.Exists(res.SubjectsDir) {
		t.Error("dry run should not create directories")
	}
}

func TestPipeline_MkdirFailure(t *testing.T) {
	runner := &FakeCommandRunner{}
	p, mfs, _ := newTestPipeline(runner)
	if err := mfs.WriteFile("/out/fs7.4.1_recon_all_clinical/sub-01_ses-1_T1w", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	res := p.RunClinical(context.Background(), testScan)
	if res.OK() {
		t.Fatal("expected failure when subjects directory cannot be created")
	}
	if len(runner.Commands) != 0 {
		t.Error("command should not run when its directory cannot be created")
	}
}

func TestPipeline_StartError(t *testing.T) {
	startErr := errors.New("exec: not found")
	p, _, _ := newTestPipeline(&FakeCommandRunner{StartErr: startErr})

	res := p.RunClinical(context.Background(), testScan)
	if !errors.Is(res.Err, startErr) {
		t.Errorf("Err = %v, want %v", res.Err, startErr)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}
