// Package experiment wires a validated config, the optional case table and
// the simulation engine together, and runs before/after comparisons.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/episim/internal/casedata"
	"github.com/san-kum/episim/internal/config"
	"github.com/san-kum/episim/internal/epi"
	"github.com/san-kum/episim/internal/export"
	"github.com/san-kum/episim/internal/metrics"
	"github.com/san-kum/episim/internal/models"
	"github.com/san-kum/episim/internal/sim"
)

// AllSegment labels the single population used when there is no case table
// and no segment was named.
const AllSegment epi.SegmentID = "all"

// Params are the four rates the dashboard exposes, plus the segment filter.
type Params struct {
	Beta       float64         `json:"beta"`
	Gamma      float64         `json:"gamma"`
	Proportion float64         `json:"vaccinated_proportion"`
	Efficacy   float64         `json:"vaccine_efficacy"`
	Segments   []epi.SegmentID `json:"segments,omitempty"`
}

// BasicReproduction is beta/gamma, the reproduction number before any
// immunity.
func (p Params) BasicReproduction() float64 {
	m := models.SIR{Beta: p.Beta, Gamma: p.Gamma, Population: 1}
	return m.BasicReproduction()
}

// EffectiveReproduction scales R0 by the share left susceptible after
// vaccination.
func (p Params) EffectiveReproduction() float64 {
	r0 := p.BasicReproduction()
	if r0 == 0 {
		return 0
	}
	return r0 * (1 - p.Proportion*p.Efficacy)
}

type Comparison struct {
	Params   Params
	Segments []epi.SegmentID
	Before   *sim.Trajectory
	After    *sim.Trajectory
}

type Experiment struct {
	cfg    *config.Config
	table  *casedata.Table
	cases  *casedata.TimeSeries
	lookup epi.PopulationLookup
	engine *epi.Engine
}

// New loads the case table named by the config, if any, and builds the
// engine.
func New(ctx context.Context, cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var table *casedata.Table
	if cfg.DataFile != "" {
		t, err := casedata.Load(ctx, cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("load case data: %w", err)
		}
		table = t
	}
	exp, err := NewWithTable(cfg, table)
	if err != nil {
		return nil, err
	}
	if cfg.CasesFile != "" {
		ts, err := casedata.LoadTimeSeries(ctx, cfg.CasesFile)
		if err != nil {
			return nil, fmt.Errorf("load case series: %w", err)
		}
		exp.cases = ts
	}
	return exp, nil
}

// NewWithTable builds an experiment over an already loaded table. table may be
// nil in reference mode.
func NewWithTable(cfg *config.Config, table *casedata.Table) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lookup, err := populationLookup(cfg, table)
	if err != nil {
		return nil, err
	}
	engine, err := epi.NewEngine(lookup, cfg.EngineOptions())
	if err != nil {
		return nil, err
	}
	return &Experiment{cfg: cfg, table: table, lookup: lookup, engine: engine}, nil
}

func populationLookup(cfg *config.Config, table *casedata.Table) (epi.PopulationLookup, error) {
	switch {
	case cfg.PopulationMode == config.PopulationTable:
		if table == nil {
			return nil, fmt.Errorf("population mode %q needs a case table", cfg.PopulationMode)
		}
		return table.TableLookup()
	case table != nil:
		return table.ReferenceLookup(cfg.ReferencePopulation), nil
	}
	ids := cfg.SegmentIDs()
	if len(ids) == 0 {
		ids = []epi.SegmentID{AllSegment}
	}
	return epi.ReferencePopulation(cfg.ReferencePopulation, ids...), nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Table returns the case table, or nil when none was loaded.
func (e *Experiment) Table() *casedata.Table { return e.table }

// Cases is the national confirmed-case series, nil when none was loaded.
func (e *Experiment) Cases() *casedata.TimeSeries { return e.cases }

// WithCases attaches a case series loaded elsewhere.
func (e *Experiment) WithCases(ts *casedata.TimeSeries) *Experiment {
	e.cases = ts
	return e
}

// Params returns the configured rates and segments.
func (e *Experiment) Params() Params {
	return Params{
		Beta:       e.cfg.Beta,
		Gamma:      e.cfg.Gamma,
		Proportion: e.cfg.VaccinatedProportion,
		Efficacy:   e.cfg.VaccineEfficacy,
		Segments:   e.cfg.SegmentIDs(),
	}
}

// Segments resolves an empty selection to every known segment.
func (e *Experiment) Segments(selected []epi.SegmentID) []epi.SegmentID {
	if len(selected) > 0 {
		return selected
	}
	if ids := e.cfg.SegmentIDs(); len(ids) > 0 {
		return ids
	}
	if e.table != nil {
		return e.table.Clusters()
	}
	if sp, ok := e.lookup.(epi.StaticPopulation); ok {
		return sp.Segments()
	}
	return []epi.SegmentID{AllSegment}
}

// Compare runs the same rates before and after vaccination.
func (e *Experiment) Compare(ctx context.Context, p Params) (*Comparison, error) {
	segs := e.Segments(p.Segments)
	before, err := e.engine.SimulateWithoutVaccine(ctx, p.Beta, p.Gamma, p.Efficacy, segs)
	if err != nil {
		return nil, fmt.Errorf("before vaccine: %w", err)
	}
	after, err := e.engine.SimulateWithVaccine(ctx, p.Beta, p.Gamma, p.Proportion, p.Efficacy, segs)
	if err != nil {
		return nil, fmt.Errorf("after vaccine: %w", err)
	}
	return &Comparison{Params: p, Segments: segs, Before: before, After: after}, nil
}

// Simulate runs a single scenario and keeps the per-segment trajectories.
func (e *Experiment) Simulate(ctx context.Context, p Params) (*epi.Result, error) {
	return e.engine.Run(ctx, epi.Scenario{
		Beta:        p.Beta,
		Gamma:       p.Gamma,
		Vaccination: epi.Vaccination{Proportion: p.Proportion, Efficacy: p.Efficacy},
		Segments:    e.Segments(p.Segments),
	})
}

func (c *Comparison) Series() []export.Series {
	return []export.Series{
		{Label: "before", Trajectory: c.Before},
		{Label: "after", Trajectory: c.After},
	}
}

func (c *Comparison) Summaries() (before, after metrics.Summary) {
	return metrics.Summarize(c.Before), metrics.Summarize(c.After)
}

func (c *Comparison) Scenario(integrator string) export.Scenario {
	segs := make([]string, len(c.Segments))
	for i, s := range c.Segments {
		segs[i] = string(s)
	}
	return export.Scenario{
		Beta:       c.Params.Beta,
		Gamma:      c.Params.Gamma,
		Proportion: c.Params.Proportion,
		Efficacy:   c.Params.Efficacy,
		Integrator: integrator,
		Segments:   segs,
	}
}
