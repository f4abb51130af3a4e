package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/episim/internal/casedata"
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/sim"
)

// renderCurves plots the infected compartment of every trajectory on one
// axis. Nil trajectories are skipped.
func renderCurves(caption string, width, height int, trajs []*sim.Trajectory, legends []string) string {
	var (
		data   [][]float64
		labels []string
	)
	for i, tr := range trajs {
		if tr == nil || tr.Len() == 0 {
			continue
		}
		data = append(data, tr.Series(dynamo.I))
		labels = append(labels, legends[i])
	}
	if len(data) == 0 {
		return ""
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
		asciigraph.SeriesLegends(labels...),
		asciigraph.Caption(caption),
	)
}

// RenderCompartments draws S, I and R of one trajectory for the plot command.
func RenderCompartments(tr *sim.Trajectory, width, height int) string {
	return asciigraph.PlotMany(
		[][]float64{tr.Series(dynamo.S), tr.Series(dynamo.I), tr.Series(dynamo.R)},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red, asciigraph.Green),
		asciigraph.SeriesLegends("S", "I", "R"),
		asciigraph.Caption("population by compartment"),
	)
}

// RenderComparison draws the infected curve before and after vaccination.
func RenderComparison(before, after *sim.Trajectory, width, height int) string {
	return renderCurves("infected: before vs after vaccination", width, height,
		[]*sim.Trajectory{before, after}, []string{"before", "after"})
}

// RenderCases draws the national confirmed-case curve. Empty series render as
// an empty string.
func RenderCases(ts *casedata.TimeSeries, width, height int) string {
	if ts == nil || ts.Len() == 0 {
		return ""
	}
	pts := ts.Points()
	caption := fmt.Sprintf("confirmed cases, %s to %s",
		pts[0].Date.Format("2006-01-02"), pts[len(pts)-1].Date.Format("2006-01-02"))
	return asciigraph.Plot(ts.Confirmed(),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Red),
		asciigraph.Caption(caption),
	)
}
