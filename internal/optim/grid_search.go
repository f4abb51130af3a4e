// Package optim sweeps scenario parameters over a grid and ranks the results,
// e.g. to find the coverage that keeps the infection peak under a limit.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/metrics"
)

// Parameter names a grid axis may vary.
var Parameters = []string{"beta", "gamma", "proportion", "efficacy"}

// maxGridPoints bounds a single sweep.
const maxGridPoints = 10000

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d parameters, %d ranges", dynamo.ErrInvalidParameter, len(params), len(ranges))
	}
	total := 1
	for i, name := range params {
		if field(&experiment.Params{}, name) == nil {
			return nil, fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidParameter, name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("%w: empty range for %q", dynamo.ErrInvalidParameter, name)
		}
		total *= len(ranges[i])
		if total > maxGridPoints {
			return nil, fmt.Errorf("%w: grid exceeds %d points", dynamo.ErrInvalidParameter, maxGridPoints)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Point is one evaluated grid cell.
type Point struct {
	Params  experiment.Params
	Summary metrics.Summary
	Value   float64
}

// Objective scores a run; lower is better.
type Objective func(metrics.Summary) float64

func PeakInfected(s metrics.Summary) float64  { return s.PeakInfected }
func TotalInfected(s metrics.Summary) float64 { return s.TotalInfected }
func AttackRate(s metrics.Summary) float64    { return s.AttackRate }

// Objectives maps CLI names onto objectives.
var Objectives = map[string]Objective{
	"peak_infected":  PeakInfected,
	"total_infected": TotalInfected,
	"attack_rate":    AttackRate,
}

// Search runs the vaccinated scenario for every grid cell, starting from
// base. Points come back in grid order together with the best one.
func (g *GridSearch) Search(ctx context.Context, exp *experiment.Experiment, base experiment.Params, obj Objective) (Point, []Point, error) {
	best := Point{Value: math.Inf(1)}
	var all []Point
	err := g.searchRecursive(ctx, 0, base, func(p experiment.Params) error {
		res, err := exp.Simulate(ctx, p)
		if err != nil {
			return fmt.Errorf("%s: %w", describe(g.paramNames, p), err)
		}
		s := metrics.Summarize(res.Aggregate)
		pt := Point{Params: p, Summary: s, Value: obj(s)}
		all = append(all, pt)
		if pt.Value < best.Value {
			best = pt
		}
		return nil
	})
	if err != nil {
		return Point{}, nil, err
	}
	return best, all, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current experiment.Params, visit func(experiment.Params) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		return visit(current)
	}
	for _, val := range g.ranges[depth] {
		next := current
		*field(&next, g.paramNames[depth]) = val
		if err := g.searchRecursive(ctx, depth+1, next, visit); err != nil {
			return err
		}
	}
	return nil
}

// MinimumProportion returns the smallest candidate coverage whose vaccinated
// peak stays at or below limit. ok is false when none does.
func MinimumProportion(ctx context.Context, exp *experiment.Experiment, base experiment.Params, limit float64, candidates []float64) (p float64, ok bool, err error) {
	sorted := append([]float64(nil), candidates...)
	sort.Float64s(sorted)
	for _, c := range sorted {
		base.Proportion = c
		res, err := exp.Simulate(ctx, base)
		if err != nil {
			return 0, false, err
		}
		if metrics.Summarize(res.Aggregate).PeakInfected <= limit {
			return c, true, nil
		}
	}
	return 0, false, nil
}

// ParseRange reads either a comma separated list ("0.2,0.4") or an inclusive
// start:stop:step range ("0:1:0.25").
func ParseRange(s string) ([]float64, error) {
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		var bounds [3]float64
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: range %q: %v", dynamo.ErrInvalidParameter, s, err)
			}
			bounds[i] = v
		}
		start, stop, step := bounds[0], bounds[1], bounds[2]
		if !(step > 0) || stop < start {
			return nil, fmt.Errorf("%w: range %q", dynamo.ErrInvalidParameter, s)
		}
		n := int(math.Floor((stop-start)/step+1e-9)) + 1
		if n > maxGridPoints {
			return nil, fmt.Errorf("%w: range %q has too many points", dynamo.ErrInvalidParameter, s)
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Round((start+float64(i)*step)*1e9) / 1e9
		}
		return out, nil
	}

	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q: %v", dynamo.ErrInvalidParameter, part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func field(p *experiment.Params, name string) *float64 {
	switch name {
	case "beta":
		return &p.Beta
	case "gamma":
		return &p.Gamma
	case "proportion":
		return &p.Proportion
	case "efficacy":
		return &p.Efficacy
	}
	return nil
}

func describe(names []string, p experiment.Params) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%g", n, *field(&p, n))
	}
	return strings.Join(parts, " ")
}
