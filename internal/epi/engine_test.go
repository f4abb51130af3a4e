package epi_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/epi"
	"github.com/san-kum/episim/internal/sim"
)

const reference = 1000.0

func peakI(tr *sim.Trajectory) (float64, int) {
	peak, at := -1.0, -1
	for i := 0; i < tr.Len(); i++ {
		if v := tr.At(i).I; v > peak {
			peak, at = v, i
		}
	}
	return peak, at
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		engine *epi.Engine
		one    []epi.SegmentID
		lookup epi.StaticPopulation
	)

	BeforeEach(func() {
		ctx = context.Background()
		lookup = epi.ReferencePopulation(reference, "0", "1", "2", "3", "4")
		lookup["big"] = 2500

		var err error
		engine, err = epi.NewEngine(lookup, epi.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		one = []epi.SegmentID{"0"}
	})

	Describe("mass conservation", func() {
		DescribeTable("keeps S+I+R equal to N at every step",
			func(beta, gamma, p, e float64) {
				tr, err := engine.SimulateWithVaccine(ctx, beta, gamma, p, e, one)
				Expect(err).NotTo(HaveOccurred())
				Expect(tr.Len()).To(Equal(sim.DefaultSteps))
				for _, pt := range tr.Points() {
					Expect(pt.Total()).To(BeNumerically("~", reference, reference*1e-6))
					Expect(pt.S).To(BeNumerically(">=", 0))
					Expect(pt.I).To(BeNumerically(">=", 0))
					Expect(pt.R).To(BeNumerically(">=", 0))
				}
			},
			Entry("dashboard defaults", 0.5, 0.5, 0.0001, 0.6),
			Entry("fast outbreak", 0.9, 0.1, 0.0, 0.0),
			Entry("heavy vaccination", 0.8, 0.2, 0.7, 0.95),
			Entry("transmission above one", 2.0, 0.5, 0.3, 0.5),
			Entry("no transmission", 0.0, 0.4, 0.5, 0.5),
			Entry("no recovery", 0.6, 0.0, 0.1, 0.9),
		)
	})

	Describe("no-vaccine equivalence", func() {
		DescribeTable("zero proportion matches the before-vaccine run for any efficacy",
			func(efficacy float64) {
				before, err := engine.SimulateWithoutVaccine(ctx, 0.5, 0.1, efficacy, one)
				Expect(err).NotTo(HaveOccurred())
				after, err := engine.SimulateWithVaccine(ctx, 0.5, 0.1, 0, efficacy, one)
				Expect(err).NotTo(HaveOccurred())
				Expect(after.Points()).To(Equal(before.Points()))
			},
			Entry("no efficacy", 0.0),
			Entry("partial efficacy", 0.6),
			Entry("full efficacy", 1.0),
		)
	})

	Describe("immunization effect", func() {
		It("raises R0 and lowers the peak as the vaccinated proportion grows", func() {
			prevR0, prevPeak := -1.0, 1e18
			for _, p := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
				tr, err := engine.SimulateWithVaccine(ctx, 0.5, 0.1, p, 0.6, one)
				Expect(err).NotTo(HaveOccurred())

				r0 := tr.At(0).R
				peak, _ := peakI(tr)
				Expect(r0).To(BeNumerically(">", prevR0), "proportion %g", p)
				Expect(peak).To(BeNumerically("<", prevPeak), "proportion %g", p)
				prevR0, prevPeak = r0, peak
			}
		})
	})

	Describe("boundaries", func() {
		It("keeps S constant and I non-increasing without transmission", func() {
			tr, err := engine.SimulateWithVaccine(ctx, 0, 0.3, 0.5, 0.6, one)
			Expect(err).NotTo(HaveOccurred())
			s0 := tr.At(0).S
			for i := 1; i < tr.Len(); i++ {
				Expect(tr.At(i).S).To(BeNumerically("~", s0, 1e-9))
				Expect(tr.At(i).I).To(BeNumerically("<=", tr.At(i-1).I))
			}
		})

		It("keeps R at its initial value without recovery", func() {
			tr, err := engine.SimulateWithVaccine(ctx, 0.5, 0, 0.3, 0.6, one)
			Expect(err).NotTo(HaveOccurred())
			r0 := tr.At(0).R
			Expect(r0).To(BeNumerically("~", reference*0.3*0.6, 1e-9))
			for _, pt := range tr.Points() {
				Expect(pt.R).To(BeNumerically("~", r0, 1e-9))
			}
		})

		It("stays flat without a seed infection", func() {
			opts := epi.DefaultOptions()
			opts.SeedInfected = 0
			flat, err := epi.NewEngine(lookup, opts)
			Expect(err).NotTo(HaveOccurred())

			tr, err := flat.SimulateWithVaccine(ctx, 0.9, 0.1, 0.5, 0.5, one)
			Expect(err).NotTo(HaveOccurred())
			for _, pt := range tr.Points() {
				Expect(pt.S).To(Equal(750.0))
				Expect(pt.I).To(BeZero())
				Expect(pt.R).To(Equal(250.0))
			}
		})
	})

	Describe("aggregation", func() {
		It("sums segment populations at every step", func() {
			tr, err := engine.SimulateWithoutVaccine(ctx, 0.7, 0.2, 0.6, []epi.SegmentID{"1", "big"})
			Expect(err).NotTo(HaveOccurred())
			for _, pt := range tr.Points() {
				Expect(pt.Total()).To(BeNumerically("~", reference+2500, 3500*1e-6))
			}
		})

		It("equals the sum of the per-segment runs", func() {
			res, err := engine.Run(ctx, epi.Scenario{
				Beta: 0.6, Gamma: 0.2,
				Vaccination: epi.Vaccination{Proportion: 0.1, Efficacy: 0.9},
				Segments:    []epi.SegmentID{"2", "big", "3"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.PerSegment).To(HaveLen(3))

			want, err := sim.Aggregate(res.PerSegment...)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Aggregate.Points()).To(Equal(want.Points()))
		})

		It("is the identity for a single segment", func() {
			res, err := engine.Run(ctx, epi.Scenario{Beta: 0.5, Gamma: 0.1, Segments: one})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Aggregate.Points()).To(Equal(res.PerSegment[0].Points()))
		})

		It("gives the same answer sequentially and in parallel", func() {
			segs := []epi.SegmentID{"0", "1", "2", "3", "4", "big"}
			opts := epi.DefaultOptions()
			opts.Parallel = false
			seq, err := epi.NewEngine(lookup, opts)
			Expect(err).NotTo(HaveOccurred())

			a, err := seq.SimulateWithVaccine(ctx, 0.8, 0.3, 0.2, 0.7, segs)
			Expect(err).NotTo(HaveOccurred())
			b, err := engine.SimulateWithVaccine(ctx, 0.8, 0.3, 0.2, 0.7, segs)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Points()).To(Equal(a.Points()))
		})
	})

	Describe("scenarios", func() {
		It("with beta equal to gamma the seed only decays", func() {
			tr, err := engine.SimulateWithoutVaccine(ctx, 0.5, 0.5, 0.6, one)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.At(0).S).To(Equal(999.0))
			Expect(tr.At(0).I).To(Equal(1.0))

			peak, at := peakI(tr)
			Expect(at).To(Equal(0))
			Expect(peak).To(Equal(1.0))
			Expect(tr.At(tr.Len() - 1).I).To(BeNumerically("<", 0.2))
		})

		It("a supercritical outbreak rises to one interior peak and dies out", func() {
			tr, err := engine.SimulateWithoutVaccine(ctx, 0.5, 0.1, 0.6, one)
			Expect(err).NotTo(HaveOccurred())

			peak, at := peakI(tr)
			Expect(at).To(BeNumerically(">", 0))
			Expect(at).To(BeNumerically("<", tr.Len()-1))
			Expect(peak).To(BeNumerically(">", 1))
			for i := 1; i <= at; i++ {
				Expect(tr.At(i).I).To(BeNumerically(">", tr.At(i-1).I))
			}
			for i := at + 1; i < tr.Len(); i++ {
				Expect(tr.At(i).I).To(BeNumerically("<", tr.At(i-1).I))
			}
			Expect(tr.At(tr.Len() - 1).I).To(BeNumerically("<", 0.01))
		})

		It("near-total vaccination suppresses the outbreak", func() {
			before, err := engine.SimulateWithoutVaccine(ctx, 0.5, 0.5, 0.6, one)
			Expect(err).NotTo(HaveOccurred())
			after, err := engine.SimulateWithVaccine(ctx, 0.5, 0.5, 0.9999, 0.6, one)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < after.Len(); i++ {
				Expect(after.At(i).I).To(BeNumerically("<=", before.At(i).I))
			}

			before, err = engine.SimulateWithoutVaccine(ctx, 0.5, 0.25, 0.6, one)
			Expect(err).NotTo(HaveOccurred())
			after, err = engine.SimulateWithVaccine(ctx, 0.5, 0.25, 0.9999, 0.6, one)
			Expect(err).NotTo(HaveOccurred())
			peakBefore, _ := peakI(before)
			peakAfter, _ := peakI(after)
			Expect(peakAfter * 10).To(BeNumerically("<", peakBefore))
		})
	})

	Describe("errors", func() {
		DescribeTable("rejects parameters outside their domain",
			func(beta, gamma, p, e float64) {
				_, err := engine.SimulateWithVaccine(ctx, beta, gamma, p, e, one)
				Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			},
			Entry("negative beta", -0.1, 0.5, 0.1, 0.5),
			Entry("negative gamma", 0.5, -0.1, 0.1, 0.5),
			Entry("proportion above one", 0.5, 0.5, 1.1, 0.5),
			Entry("negative proportion", 0.5, 0.5, -0.1, 0.5),
			Entry("efficacy above one", 0.5, 0.5, 0.1, 1.5),
			Entry("negative efficacy", 0.5, 0.5, 0.1, -0.5),
			Entry("immunized leave no room for the seed", 0.5, 0.5, 1.0, 1.0),
		)

		It("rejects bad efficacy in the before-vaccine mode too", func() {
			_, err := engine.SimulateWithoutVaccine(ctx, 0.5, 0.5, 2, one)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("rejects empty and duplicated segment lists", func() {
			_, err := engine.SimulateWithoutVaccine(ctx, 0.5, 0.5, 0.5, nil)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			_, err = engine.SimulateWithoutVaccine(ctx, 0.5, 0.5, 0.5, []epi.SegmentID{"1", "1"})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("refuses requests above the segment limit", func() {
			many := make([]epi.SegmentID, epi.MaxSegments+1)
			for i := range many {
				many[i] = epi.SegmentID(fmt.Sprint(i))
			}
			_, err := engine.SimulateWithVaccine(ctx, 0.5, 0.5, 0.1, 0.5, many)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(err.Error()).To(ContainSubstring("at most 4096"))
		})

		It("reports unknown segments without falling back", func() {
			_, err := engine.SimulateWithoutVaccine(ctx, 0.5, 0.5, 0.5, []epi.SegmentID{"1", "99"})
			Expect(err).To(MatchError(dynamo.ErrUnknownSegment))
			Expect(err.Error()).To(ContainSubstring(`"99"`))
		})

		It("reports numerical instability instead of clamping", func() {
			opts := epi.DefaultOptions()
			opts.Integrator = "euler"
			euler, err := epi.NewEngine(lookup, opts)
			Expect(err).NotTo(HaveOccurred())

			_, err = euler.SimulateWithoutVaccine(ctx, 0.5, 2.5, 0, one)
			Expect(err).To(MatchError(dynamo.ErrNumericalInstability))
		})

		It("refuses unknown integrators at construction", func() {
			opts := epi.DefaultOptions()
			opts.Integrator = "midpoint"
			_, err := epi.NewEngine(lookup, opts)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})

	Describe("vaccinated compartment", func() {
		It("tracks immunized people in V when asked", func() {
			opts := epi.DefaultOptions()
			opts.TrackVaccinated = true
			tracked, err := epi.NewEngine(lookup, opts)
			Expect(err).NotTo(HaveOccurred())

			withV, err := tracked.SimulateWithVaccine(ctx, 0.5, 0.1, 0.5, 0.8, one)
			Expect(err).NotTo(HaveOccurred())
			folded, err := engine.SimulateWithVaccine(ctx, 0.5, 0.1, 0.5, 0.8, one)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < withV.Len(); i++ {
				v, f := withV.At(i), folded.At(i)
				Expect(v.V).To(BeNumerically("~", 400, 1e-6))
				Expect(v.S).To(BeNumerically("~", f.S, 1e-6))
				Expect(v.I).To(BeNumerically("~", f.I, 1e-6))
				Expect(v.R + v.V).To(BeNumerically("~", f.R, 1e-6))
			}
		})
	})
})
