package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/banshee-data/fsrecon/internal/freesurfer"
	"github.com/banshee-data/fsrecon/internal/fsutil"
	"github.com/banshee-data/fsrecon/internal/recon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() *recon.Summary {
	job := func(session, scan string, age float64, known bool, p freesurfer.Name, s recon.Status) recon.Job {
		return recon.Job{
			Subject: "sub-01", Session: session, Scan: scan + ".nii.gz", ScanName: scan,
			AgeMonths: age, AgeKnown: known, Pipeline: p, Status: s,
		}
	}
	return &recon.Summary{
		Participant: "sub-01",
		Sessions:    3,
		Scans:       4,
		Jobs: []recon.Job{
			job("ses-1", "sub-01_ses-1_T1w", 12, true, freesurfer.Clinical, recon.StatusSucceeded),
			job("ses-1", "sub-01_ses-1_T1w", 12, true, freesurfer.ReconAll, recon.StatusSkipped),
			job("ses-1", "sub-01_ses-1_T2w", 12, true, freesurfer.Clinical, recon.StatusSucceeded),
			job("ses-1", "sub-01_ses-1_T2w", 12, true, freesurfer.ReconAll, recon.StatusSkipped),
			job("ses-2", "sub-01_ses-2_T1w", 36, true, freesurfer.Clinical, recon.StatusFailed),
			job("ses-2", "sub-01_ses-2_T1w", 36, true, freesurfer.ReconAll, recon.StatusSucceeded),
			job("ses-3", "sub-01_ses-3_T1w", 0, false, freesurfer.Clinical, recon.StatusSucceeded),
			job("ses-3", "sub-01_ses-3_T1w", 0, false, freesurfer.ReconAll, recon.StatusFailed),
		},
	}
}

func TestComputeAgeStats(t *testing.T) {
	st := ComputeAgeStats(sampleSummary().Jobs)

	assert.Equal(t, 2, st.N)
	assert.InDelta(t, 24, st.Mean, 1e-9)
	assert.InDelta(t, 12, st.Min, 1e-9)
	assert.InDelta(t, 36, st.Max, 1e-9)
}

func TestComputeAgeStats_SkipsNonFinite(t *testing.T) {
	jobs := []recon.Job{
		{Session: "ses-1", AgeMonths: math.NaN(), AgeKnown: true, Pipeline: freesurfer.Clinical},
		{Session: "ses-2", AgeMonths: math.Inf(1), AgeKnown: true, Pipeline: freesurfer.Clinical},
		{Session: "ses-3", AgeMonths: 30, AgeKnown: true, Pipeline: freesurfer.Clinical},
	}

	assert.Equal(t, AgeStats{N: 1, Mean: 30, Min: 30, Max: 30}, ComputeAgeStats(jobs))
}

func TestRender_NonFiniteAge(t *testing.T) {
	summary := &recon.Summary{
		Participant: "sub-01",
		Jobs: []recon.Job{{
			Session: "ses-1", ScanName: "sub-01_ses-1_T1w", AgeMonths: math.NaN(), AgeKnown: true,
			Pipeline: freesurfer.Clinical, Status: recon.StatusSucceeded,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, summary))
	assert.NotContains(t, buf.String(), "922337203685477")
	assert.Contains(t, buf.String(), "no ages available")
}

func TestComputeAgeStats_Empty(t *testing.T) {
	assert.Equal(t, AgeStats{}, ComputeAgeStats(nil))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSummary()))

	html := buf.String()
	for _, want := range []string{
		"fsrecon sub-01",
		"Age at scan (months)",
		"sub-01_ses-2_T1w",
		"recon-all threshold",
		"Pipeline outcomes",
		"succeeded",
		"skipped",
		"failed",
	} {
		assert.True(t, strings.Contains(html, want), "report does not contain %q", want)
	}
	assert.NotContains(t, html, "planned")
}

func TestWriteFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteFile(mfs, "/out/fsrecon_report.html", sampleSummary()))

	data, err := mfs.ReadFile("/out/fsrecon_report.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 23.9, round1(23.9836-0.05))
	assert.Equal(t, 24.0, round1(23.9836))
	assert.Equal(t, -1.3, round1(-1.26))
	assert.Equal(t, 0.0, round1(0.04))
}
