// Package report renders an HTML summary of a reconstruction run.
package report

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/fsrecon/internal/freesurfer"
	"github.com/banshee-data/fsrecon/internal/fsutil"
	"github.com/banshee-data/fsrecon/internal/recon"
	"github.com/banshee-data/fsrecon/internal/units"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AgeStats summarises the known ages of the scanned sessions, in months.
type AgeStats struct {
	N    int
	Mean float64
	Min  float64
	Max  float64
}

// ComputeAgeStats uses one age per session; scans of the same session
// share it.
func ComputeAgeStats(jobs []recon.Job) AgeStats {
	seen := make(map[string]bool)
	var ages []float64
	for _, j := range jobs {
		if !hasAge(j) || seen[j.Session] {
			continue
		}
		seen[j.Session] = true
		ages = append(ages, j.AgeMonths)
	}
	if len(ages) == 0 {
		return AgeStats{}
	}
	return AgeStats{
		N:    len(ages),
		Mean: stat.Mean(ages, nil),
		Min:  floats.Min(ages),
		Max:  floats.Max(ages),
	}
}

// Render writes the report page for summary to w.
func Render(w io.Writer, summary *recon.Summary) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("fsrecon %s", summary.Participant)
	page.AddCharts(ageChart(summary), outcomeChart(summary))
	return page.Render(w)
}

// WriteFile renders the report into path.
func WriteFile(fsys fsutil.FileSystem, path string, summary *recon.Summary) error {
	var buf bytes.Buffer
	if err := Render(&buf, summary); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// ageChart plots age at scan per scan, with the recon-all threshold marked.
func ageChart(summary *recon.Summary) *charts.Bar {
	var (
		names []string
		data  []opts.BarData
	)
	for _, j := range summary.Jobs {
		if j.Pipeline != freesurfer.Clinical {
			continue
		}
		names = append(names, j.ScanName)
		if hasAge(j) {
			data = append(data, opts.BarData{Value: round1(j.AgeMonths)})
		} else {
			data = append(data, opts.BarData{Value: "-"})
		}
	}

	st := ComputeAgeStats(summary.Jobs)
	subtitle := "no ages available"
	if st.N > 0 {
		subtitle = fmt.Sprintf("sessions=%d mean=%.1f min=%.1f max=%.1f months", st.N, st.Mean, st.Min, st.Max)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Age at scan", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Age at scan (months)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "scan", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "months"}),
	)
	bar.SetXAxis(names).AddSeries("age", data,
		charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  "recon-all threshold",
			YAxis: units.AdultThresholdMonths,
		}),
	)
	return bar
}

// outcomeChart stacks job statuses per pipeline.
func outcomeChart(summary *recon.Summary) *charts.Bar {
	pipelines := []freesurfer.Name{freesurfer.Clinical, freesurfer.ReconAll}
	xs := make([]string, len(pipelines))
	for i, p := range pipelines {
		xs[i] = string(p)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pipeline outcomes", Width: "700px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Pipeline outcomes", Subtitle: fmt.Sprintf("participant=%s scans=%d", summary.Participant, summary.Scans)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xs)

	for _, status := range presentStatuses(summary) {
		data := make([]opts.BarData, len(pipelines))
		for i, p := range pipelines {
			data[i] = opts.BarData{Value: summary.Count(p, status)}
		}
		bar.AddSeries(string(status), data, charts.WithBarChartOpts(opts.BarChart{Stack: "jobs"}))
	}
	return bar
}

func presentStatuses(summary *recon.Summary) []recon.Status {
	present := make(map[recon.Status]bool)
	for _, j := range summary.Jobs {
		present[j.Status] = true
	}
	var out []recon.Status
	for _, s := range recon.Statuses {
		if present[s] {
			out = append(out, s)
		}
	}
	return out
}

// hasAge reports whether j carries a plottable age.
func hasAge(j recon.Job) bool {
	return j.AgeKnown && !math.IsNaN(j.AgeMonths) && !math.IsInf(j.AgeMonths, 0)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
