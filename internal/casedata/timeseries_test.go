package casedata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSeries = `Date,Confirmed,Deaths
10/3/20,220,4
10/1/20,100,1
10/2/20,150,2
10/4/20,300,6
2020-10-05,360,7
10/6/20,400,9
`

func day(d int) time.Time { return time.Date(2020, 10, d, 0, 0, 0, 0, time.UTC) }

func series(t *testing.T, confirmed ...float64) *TimeSeries {
	t.Helper()
	points := make([]CasePoint, len(confirmed))
	for i, v := range confirmed {
		points[i] = CasePoint{Date: day(i + 1), Confirmed: v}
	}
	ts, err := NewTimeSeries(points)
	require.NoError(t, err)
	return ts
}

func TestReadSeriesCSV(t *testing.T) {
	ts, err := ReadSeriesCSV(strings.NewReader(sampleSeries))
	require.NoError(t, err)
	require.Equal(t, 6, ts.Len())

	assert.Equal(t, day(1), ts.Points()[0].Date, "points are sorted by date")
	assert.Equal(t, []float64{100, 150, 220, 300, 360, 400}, ts.Confirmed())
	assert.Equal(t, []float64{50, 70, 80, 60, 40}, ts.NewCases())
}

func TestReadSeriesCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing confirmed", "Date,Deaths\n10/1/20,1\n"},
		{"missing date column", "Confirmed\n10\n"},
		{"blank date", "Date,Confirmed\n,10\n"},
		{"bad number", "Date,Confirmed\n10/1/20,many\n"},
		{"same day twice", "Date,Confirmed\n10/1/20,10\n2020-10-01,12\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSeriesCSV(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDeclining(t *testing.T) {
	tests := []struct {
		name      string
		confirmed []float64
		window    int
		want      bool
		wantErr   bool
	}{
		{"slowing growth", []float64{100, 150, 220, 300, 360, 400}, 2, true, false},
		{"last day only", []float64{100, 150, 220, 300, 360, 400}, 1, true, false},
		{"accelerating", []float64{100, 110, 130, 160, 200, 250}, 2, false, false},
		{"flat", []float64{100, 100, 100, 100, 100}, 2, false, false},
		{"too short", []float64{100, 150, 220}, 2, false, true},
		{"zero window", []float64{100, 150, 220}, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := series(t, tt.confirmed...).Declining(tt.window)
			if tt.wantErr {
				assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCasesShortSeries(t *testing.T) {
	assert.Nil(t, series(t, 5).NewCases())
	assert.Nil(t, series(t).NewCases())
}

func TestSeriesSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts, err := ReadSeriesCSV(strings.NewReader(sampleSeries))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "series.sqlite")

	require.NoError(t, SaveSeriesSQLite(ctx, path, ts))

	loaded, err := LoadTimeSeries(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ts.Points(), loaded.Points())
}

func TestLoadTimeSeriesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "us_time_series.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleSeries), 0644))

	ts, err := LoadTimeSeries(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 6, ts.Len())

	_, err = LoadTimeSeries(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}
