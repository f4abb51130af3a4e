package export

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/san-kum/episim/internal/dynamo"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// LineChart builds an interactive chart with one line per compartment and
// series. It is rendered by WriteHTML and served by the API.
func LineChart(title string, series ...Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "560px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (days)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Population"}),
	)
	if len(series) == 0 {
		return line
	}

	steps := make([]string, series[0].Trajectory.Len())
	for i := range steps {
		steps[i] = strconv.Itoa(series[0].Trajectory.At(i).Step)
	}
	line.SetXAxis(steps)

	for _, s := range series {
		for _, c := range compartments(s) {
			vals := s.Trajectory.Series(c)
			data := make([]opts.LineData, len(vals))
			for i, v := range vals {
				data[i] = opts.LineData{Value: v}
			}
			line.AddSeries(seriesName(s.Label, c), data,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		}
	}
	return line
}

func WriteHTML(w io.Writer, title string, series ...Series) error {
	return LineChart(title, series...).Render(w)
}

func compartments(s Series) []int {
	cs := []int{dynamo.S, dynamo.I, dynamo.R}
	if s.Trajectory.HasVaccinated() {
		cs = append(cs, dynamo.V)
	}
	return cs
}

func seriesName(label string, c int) string {
	name := dynamo.CompartmentName(c)
	if label == "" {
		return name
	}
	return name + " (" + label + ")"
}
