package export

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot builds a static chart of the series on a shared time axis.
func Plot(title string, series ...Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (days)"
	p.Y.Label.Text = "Population"
	p.Legend.Top = true

	n := 0
	for si, s := range series {
		times := s.Trajectory.Times()
		for _, c := range compartments(s) {
			vals := s.Trajectory.Series(c)
			pts := make(plotter.XYs, len(vals))
			for i, v := range vals {
				pts[i] = plotter.XY{X: times[i], Y: v}
			}
			l, err := plotter.NewLine(pts)
			if err != nil {
				return nil, err
			}
			l.Color = plotutil.Color(n)
			l.Dashes = plotutil.Dashes(si)
			l.Width = vg.Points(1.5)
			p.Add(l)
			p.Legend.Add(seriesName(s.Label, c), l)
			n++
		}
	}
	return p, nil
}

// WritePNG renders the chart at 10x5 inches.
func WritePNG(w io.Writer, title string, series ...Series) error {
	p, err := Plot(title, series...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
