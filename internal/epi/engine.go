package epi

import (
	"context"
	"fmt"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/models"
	"github.com/san-kum/episim/internal/sim"
)

const (
	DefaultSeedInfected = 1.0

	// MaxSegments bounds the fan-out of a single request.
	MaxSegments = 4096
)

// Options configures an Engine. Every run of one engine shares the time axis
// and the integration method.
type Options struct {
	Sim             sim.Config
	Integrator      string
	SeedInfected    float64
	TrackVaccinated bool
	Parallel        bool
	Workers         int
}

func DefaultOptions() Options {
	return Options{
		Sim:          sim.DefaultConfig(),
		Integrator:   "rk4",
		SeedInfected: DefaultSeedInfected,
		Parallel:     true,
	}
}

// Scenario is one simulation request.
type Scenario struct {
	Beta        float64
	Gamma       float64
	Vaccination Vaccination
	Segments    []SegmentID
}

// Result holds the per-segment trajectories and their sum.
type Result struct {
	Segments   []SegmentID
	PerSegment []*sim.Trajectory
	Aggregate  *sim.Trajectory
}

type Engine struct {
	lookup        PopulationLookup
	opts          Options
	newIntegrator integrators.Factory
}

func NewEngine(lookup PopulationLookup, opts Options) (*Engine, error) {
	if lookup == nil {
		return nil, fmt.Errorf("epi: population lookup is required")
	}
	factory, err := integrators.Lookup(opts.Integrator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	if !(opts.SeedInfected >= 0) {
		return nil, dynamo.InvalidParameter("seed_infected", opts.SeedInfected, ">= 0")
	}
	return &Engine{lookup: lookup, opts: opts, newIntegrator: factory}, nil
}

func (e *Engine) Options() Options { return e.opts }

// SimulateWithoutVaccine runs the segments with nobody vaccinated. The
// efficacy is validated but has no effect when the proportion is zero.
func (e *Engine) SimulateWithoutVaccine(ctx context.Context, beta, gamma, efficacy float64, segments []SegmentID) (*sim.Trajectory, error) {
	res, err := e.Run(ctx, Scenario{
		Beta:        beta,
		Gamma:       gamma,
		Vaccination: Vaccination{Proportion: 0, Efficacy: efficacy},
		Segments:    segments,
	})
	if err != nil {
		return nil, err
	}
	return res.Aggregate, nil
}

// SimulateWithVaccine runs the segments after immunizing proportion*efficacy
// of every segment's population.
func (e *Engine) SimulateWithVaccine(ctx context.Context, beta, gamma, proportion, efficacy float64, segments []SegmentID) (*sim.Trajectory, error) {
	res, err := e.Run(ctx, Scenario{
		Beta:        beta,
		Gamma:       gamma,
		Vaccination: Vaccination{Proportion: proportion, Efficacy: efficacy},
		Segments:    segments,
	})
	if err != nil {
		return nil, err
	}
	return res.Aggregate, nil
}

// Run simulates every segment of the scenario and aggregates the result.
func (e *Engine) Run(ctx context.Context, sc Scenario) (*Result, error) {
	jobs, err := e.jobs(sc)
	if err != nil {
		return nil, err
	}

	ens := sim.NewEnsemble(e.opts.Sim, e.opts.Parallel, e.opts.Workers)
	trajs, err := ens.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	agg, err := sim.Aggregate(trajs...)
	if err != nil {
		return nil, err
	}

	segs := make([]SegmentID, len(sc.Segments))
	copy(segs, sc.Segments)
	return &Result{Segments: segs, PerSegment: trajs, Aggregate: agg}, nil
}

func (e *Engine) jobs(sc Scenario) ([]sim.Job, error) {
	if len(sc.Segments) == 0 {
		return nil, fmt.Errorf("%w: at least one segment is required", dynamo.ErrInvalidParameter)
	}
	if len(sc.Segments) > MaxSegments {
		return nil, fmt.Errorf("%w: %d segments, at most %d", dynamo.ErrInvalidParameter, len(sc.Segments), MaxSegments)
	}
	if !(sc.Beta >= 0) {
		return nil, dynamo.InvalidParameter("beta", sc.Beta, ">= 0")
	}
	if !(sc.Gamma >= 0) {
		return nil, dynamo.InvalidParameter("gamma", sc.Gamma, ">= 0")
	}
	if err := sc.Vaccination.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[SegmentID]bool, len(sc.Segments))
	jobs := make([]sim.Job, 0, len(sc.Segments))
	for _, id := range sc.Segments {
		if seen[id] {
			return nil, fmt.Errorf("%w: segment %q requested twice", dynamo.ErrInvalidParameter, id)
		}
		seen[id] = true

		n, err := e.lookup.Population(id)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", id, err)
		}

		model, err := models.NewSIR(sc.Beta, sc.Gamma, n)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", id, err)
		}

		x0, err := InitialConditions(n, e.opts.SeedInfected, sc.Vaccination, e.opts.TrackVaccinated)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", id, err)
		}

		jobs = append(jobs, sim.Job{System: model, X0: x0, NewIntegrator: e.newIntegrator})
	}
	return jobs, nil
}
