package sim

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/episim/internal/dynamo"
)

func sample(n int, scale float64) *Trajectory {
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{Step: i, S: scale * float64(100-i), I: scale * float64(i), R: 0}
	}
	return NewTrajectory(1, points)
}

func TestAggregateSums(t *testing.T) {
	a := sample(5, 1)
	b := sample(5, 2)

	sum, err := Aggregate(a, b)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < sum.Len(); i++ {
		p := sum.At(i)
		if p.S != a.At(i).S+b.At(i).S || p.I != a.At(i).I+b.At(i).I {
			t.Errorf("step %d: got %+v", i, p)
		}
		if p.Total() != 300 {
			t.Errorf("step %d: total %f, want 300", i, p.Total())
		}
	}
}

func TestAggregateSingleIsIdentity(t *testing.T) {
	a := sample(7, 3)
	agg, err := Aggregate(a)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Points(), agg.Points()); diff != "" {
		t.Errorf("aggregate of one trajectory differs (-want +got):\n%s", diff)
	}
	if agg == a {
		t.Error("aggregate returned the input instead of a copy")
	}
}

func TestAggregateErrors(t *testing.T) {
	if _, err := Aggregate(sample(5, 1), sample(6, 1)); !errors.Is(err, dynamo.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := Aggregate(); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for no input, got %v", err)
	}
	other := NewTrajectory(0.5, sample(5, 1).Points())
	if _, err := Aggregate(sample(5, 1), other); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for dt mismatch, got %v", err)
	}
}

func TestTrajectoryIsImmutable(t *testing.T) {
	points := []Point{{Step: 0, S: 10}}
	tr := NewTrajectory(1, points)
	points[0].S = 99

	got := tr.Points()
	got[0].S = 42
	if tr.At(0).S != 10 {
		t.Errorf("trajectory was mutated through a caller slice: %+v", tr.At(0))
	}
}

func TestTrajectoryLong(t *testing.T) {
	tr := NewTrajectory(1, []Point{{Step: 0, S: 9, I: 1}, {Step: 1, S: 8, I: 1, R: 1}})
	long := tr.Long()
	want := []Record{
		{0, "S", 9}, {0, "I", 1}, {0, "R", 0},
		{1, "S", 8}, {1, "I", 1}, {1, "R", 1},
	}
	if diff := cmp.Diff(want, long); diff != "" {
		t.Errorf("Long() mismatch (-want +got):\n%s", diff)
	}

	withV := NewTrajectory(1, []Point{{Step: 0, S: 5, I: 1, V: 4}})
	if n := len(withV.Long()); n != 4 {
		t.Errorf("expected V records when populated, got %d records", n)
	}
}

func TestTrajectorySeriesAndTimes(t *testing.T) {
	tr := NewTrajectory(0.5, []Point{{Step: 0, I: 1}, {Step: 1, I: 3}, {Step: 2, I: 2}})
	if diff := cmp.Diff([]float64{1, 3, 2}, tr.Series(dynamo.I)); diff != "" {
		t.Errorf("Series mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, 0.5, 1}, tr.Times()); diff != "" {
		t.Errorf("Times mismatch:\n%s", diff)
	}
}

func TestTrajectoryRows(t *testing.T) {
	tr := NewTrajectory(1, []Point{
		{Step: 0, S: 90, I: 1, R: 0, V: 9},
		{Step: 1, S: 88, I: 2, R: 1, V: 9},
	})

	want := [][4]float64{
		{0, 90, 1, 9},
		{1, 88, 2, 10},
	}
	if diff := cmp.Diff(want, tr.Rows()); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
}
