package epi

import (
	"fmt"
	"sort"

	"github.com/san-kum/episim/internal/dynamo"
)

// SegmentID labels an independently simulated population, such as a cluster.
type SegmentID string

// PopulationLookup resolves a segment to its total population N > 0.
// Unknown segments must yield an error wrapping dynamo.ErrUnknownSegment.
type PopulationLookup interface {
	Population(id SegmentID) (float64, error)
}

// StaticPopulation is an in-memory PopulationLookup.
type StaticPopulation map[SegmentID]float64

func (p StaticPopulation) Population(id SegmentID) (float64, error) {
	n, ok := p[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", dynamo.ErrUnknownSegment, id)
	}
	return n, nil
}

// Segments returns the known ids in sorted order.
func (p StaticPopulation) Segments() []SegmentID {
	ids := make([]SegmentID, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ReferencePopulation gives every known segment the same size.
func ReferencePopulation(size float64, ids ...SegmentID) StaticPopulation {
	p := make(StaticPopulation, len(ids))
	for _, id := range ids {
		p[id] = size
	}
	return p
}
