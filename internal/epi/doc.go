// Package epi is the entry point of the epidemic simulator.
//
// An [Engine] turns (beta, gamma, vaccination, segments) into one aggregate
// trajectory:
//
//  1. each segment's population is resolved through a [PopulationLookup]
//  2. [InitialConditions] splits it into S0, I0, R0 (and V0)
//  3. every segment is integrated independently by [sim.Ensemble]
//  4. [sim.Aggregate] sums the segment trajectories step by step
//
// The engine holds no mutable state and may be shared between goroutines.
package epi
