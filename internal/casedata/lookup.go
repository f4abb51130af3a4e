package casedata

import (
	"fmt"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/epi"
)

// ReferenceLookup gives every cluster in the table the same population.
func (t *Table) ReferenceLookup(size float64) epi.StaticPopulation {
	return epi.ReferencePopulation(size, t.Clusters()...)
}

// TableLookup sums the Population column per cluster. Every cluster must end
// up with a positive total.
func (t *Table) TableLookup() (epi.StaticPopulation, error) {
	pop := make(epi.StaticPopulation)
	for _, r := range t.rows {
		pop[epi.SegmentID(r.Cluster)] += r.Population
	}
	for id, n := range pop {
		if !(n > 0) {
			return nil, fmt.Errorf("%w: cluster %q has population %g", dynamo.ErrInvalidParameter, id, n)
		}
	}
	return pop, nil
}
