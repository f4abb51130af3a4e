package sim

import (
	"context"

	"github.com/san-kum/episim/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Job is one independent run of an ensemble.
type Job struct {
	System        dynamo.System
	X0            dynamo.State
	NewIntegrator func() dynamo.Integrator
}

// Ensemble runs independent jobs on a shared time axis. Each job gets its own
// simulator and integrator, so results do not depend on scheduling.
type Ensemble struct {
	cfg      Config
	parallel bool
	limit    int
}

func NewEnsemble(cfg Config, parallel bool, limit int) *Ensemble {
	return &Ensemble{cfg: cfg, parallel: parallel, limit: limit}
}

// Run returns one trajectory per job, in job order. The first failure cancels
// the remaining jobs and is returned.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Trajectory, error) {
	results := make([]*Trajectory, len(jobs))

	if !e.parallel || len(jobs) == 1 {
		for i, job := range jobs {
			tr, err := New(job.System, job.NewIntegrator()).Run(ctx, job.X0, e.cfg)
			if err != nil {
				return nil, err
			}
			results[i] = tr
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			tr, err := New(job.System, job.NewIntegrator()).Run(gctx, job.X0, e.cfg)
			if err != nil {
				return err
			}
			results[i] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
