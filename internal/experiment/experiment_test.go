package experiment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/episim/internal/casedata"
	"github.com/san-kum/episim/internal/config"
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/epi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table() *casedata.Table {
	return casedata.NewTable([]casedata.Row{
		{County: "A", Cluster: "0", Population: 600},
		{County: "B", Cluster: "0", Population: 400},
		{County: "C", Cluster: "1", Population: 2000},
	})
}

func TestReferenceModeWithoutTable(t *testing.T) {
	exp, err := NewWithTable(config.GetPreset("outbreak"), nil)
	require.NoError(t, err)

	assert.Equal(t, []epi.SegmentID{AllSegment}, exp.Segments(nil))

	cmp, err := exp.Compare(context.Background(), exp.Params())
	require.NoError(t, err)
	assert.Equal(t, 160, cmp.Before.Len())
	assert.InDelta(t, 1000, cmp.Before.At(159).Total(), 1e-6)

	before, after := cmp.Summaries()
	assert.Equal(t, before, after, "zero proportion leaves the curve unchanged")
	assert.InDelta(t, 478.16, before.PeakInfected, 0.05)
}

func TestCompareSuppressesPeak(t *testing.T) {
	exp, err := NewWithTable(config.GetPreset("herd"), nil)
	require.NoError(t, err)

	cmp, err := exp.Compare(context.Background(), exp.Params())
	require.NoError(t, err)

	before, after := cmp.Summaries()
	assert.Greater(t, before.PeakInfected, 10*after.PeakInfected)
	assert.InDelta(t, 599.94, after.Immunized, 1e-9)
}

func TestTableModeSumsPopulations(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PopulationMode = config.PopulationTable
	cfg.DataFile = "unused.csv"

	exp, err := NewWithTable(cfg, table())
	require.NoError(t, err)
	assert.Equal(t, []epi.SegmentID{"0", "1"}, exp.Segments(nil))

	res, err := exp.Simulate(context.Background(), exp.Params())
	require.NoError(t, err)
	require.Len(t, res.PerSegment, 2)
	assert.InDelta(t, 1000, res.PerSegment[0].At(0).Total(), 1e-9)
	assert.InDelta(t, 2000, res.PerSegment[1].At(0).Total(), 1e-9)
	assert.InDelta(t, 3000, res.Aggregate.At(100).Total(), 1e-6)
}

func TestReferenceModeWithTable(t *testing.T) {
	exp, err := NewWithTable(config.DefaultConfig(), table())
	require.NoError(t, err)

	p := exp.Params()
	p.Segments = []epi.SegmentID{"1"}
	cmp, err := exp.Compare(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 1000, cmp.After.At(0).Total(), 1e-9)

	p.Segments = []epi.SegmentID{"9"}
	_, err = exp.Compare(context.Background(), p)
	assert.ErrorIs(t, err, dynamo.ErrUnknownSegment)
}

func TestCompareRejectsBadRates(t *testing.T) {
	exp, err := NewWithTable(config.DefaultConfig(), nil)
	require.NoError(t, err)

	p := exp.Params()
	p.Efficacy = 1.5
	_, err = exp.Compare(context.Background(), p)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}

func TestNewLoadsDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")
	data := "County,Cluster_labels,Population\nA,3,500\nB,4,700\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg := config.DefaultConfig()
	cfg.DataFile = path
	exp, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, exp.Table())
	assert.Equal(t, []epi.SegmentID{"3", "4"}, exp.Segments(nil))

	cfg.DataFile = filepath.Join(t.TempDir(), "missing.csv")
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLoadsCasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "us_time_series.csv")
	data := "Date,Confirmed\n10/1/20,100\n10/2/20,130\n10/3/20,150\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg := config.DefaultConfig()
	cfg.CasesFile = path
	exp, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, exp.Cases())
	assert.Equal(t, []float64{30, 20}, exp.Cases().NewCases())

	cfg.CasesFile = filepath.Join(t.TempDir(), "missing.csv")
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestComparisonScenario(t *testing.T) {
	exp, err := NewWithTable(config.DefaultConfig(), nil)
	require.NoError(t, err)
	cmp, err := exp.Compare(context.Background(), exp.Params())
	require.NoError(t, err)

	sc := cmp.Scenario("rk4")
	assert.Equal(t, []string{"all"}, sc.Segments)
	assert.Equal(t, 0.6, sc.Efficacy)
	assert.Len(t, cmp.Series(), 2)
}

func TestReproductionNumbers(t *testing.T) {
	p := Params{Beta: 0.5, Gamma: 0.1, Proportion: 0.5, Efficacy: 0.6}
	assert.InDelta(t, 5, p.BasicReproduction(), 1e-12)
	assert.InDelta(t, 3.5, p.EffectiveReproduction(), 1e-12)

	assert.Zero(t, Params{Gamma: 0.1}.EffectiveReproduction())
}
