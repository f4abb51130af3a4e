// Package casedata loads the per-county case table that backs the cluster
// selector: cluster labels, case counts and optional population.
package casedata

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/epi"
)

// Row is one county record.
type Row struct {
	County     string    `json:"county"`
	FIPS       string    `json:"fips"`
	Cluster    string    `json:"cluster"`
	Confirmed  float64   `json:"confirmed"`
	Active     float64   `json:"active"`
	Deaths     float64   `json:"deaths"`
	Recovered  float64   `json:"recovered"`
	Average    float64   `json:"average"`
	Population float64   `json:"population"`
	Date       time.Time `json:"date"`
}

// Summary holds the headline totals for one cluster, or for the whole table
// when Cluster is empty.
type Summary struct {
	Cluster         string  `json:"cluster,omitempty"`
	Counties        int     `json:"counties"`
	Confirmed       float64 `json:"confirmed"`
	Active          float64 `json:"active"`
	Deaths          float64 `json:"deaths"`
	Recovered       float64 `json:"recovered"`
	BiWeeklyAverage float64 `json:"biweekly_average"`
}

type CountyTotal struct {
	County    string  `json:"county"`
	Confirmed float64 `json:"confirmed"`
}

type Table struct {
	rows []Row
}

func NewTable(rows []Row) *Table {
	cp := make([]Row, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Rows() []Row {
	cp := make([]Row, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Clusters returns the distinct cluster labels in sorted order.
func (t *Table) Clusters() []epi.SegmentID {
	seen := make(map[string]struct{})
	for _, r := range t.rows {
		seen[r.Cluster] = struct{}{}
	}
	out := make([]epi.SegmentID, 0, len(seen))
	for c := range seen {
		out = append(out, epi.SegmentID(c))
	}
	sort.Slice(out, func(i, j int) bool { return lessLabel(string(out[i]), string(out[j])) })
	return out
}

// Summary totals the rows of a cluster. An empty id selects every row.
func (t *Table) Summary(id epi.SegmentID) (Summary, error) {
	s := Summary{Cluster: string(id)}
	for _, r := range t.filter(id) {
		s.Counties++
		s.Confirmed += r.Confirmed
		s.Active += r.Active
		s.Deaths += r.Deaths
		s.Recovered += r.Recovered
		s.BiWeeklyAverage += r.Average
	}
	if id != "" && s.Counties == 0 {
		return Summary{}, fmt.Errorf("%w: cluster %q", dynamo.ErrUnknownSegment, id)
	}
	return s, nil
}

// TopCounties returns up to n counties with the most confirmed cases,
// largest first. Rows for the same county are summed.
func (t *Table) TopCounties(id epi.SegmentID, n int) ([]CountyTotal, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n=%d", dynamo.ErrInvalidParameter, n)
	}
	rows := t.filter(id)
	if id != "" && len(rows) == 0 {
		return nil, fmt.Errorf("%w: cluster %q", dynamo.ErrUnknownSegment, id)
	}

	totals := make(map[string]float64)
	for _, r := range rows {
		totals[r.County] += r.Confirmed
	}
	out := make([]CountyTotal, 0, len(totals))
	for c, v := range totals {
		out = append(out, CountyTotal{County: c, Confirmed: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confirmed != out[j].Confirmed {
			return out[i].Confirmed > out[j].Confirmed
		}
		return out[i].County < out[j].County
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// LatestDate returns the most recent report date. ok is false when no row
// carries a date.
func (t *Table) LatestDate() (latest time.Time, ok bool) {
	for _, r := range t.rows {
		if r.Date.IsZero() {
			continue
		}
		if !ok || r.Date.After(latest) {
			latest, ok = r.Date, true
		}
	}
	return latest, ok
}

func (t *Table) filter(id epi.SegmentID) []Row {
	if id == "" {
		return t.rows
	}
	var out []Row
	for _, r := range t.rows {
		if r.Cluster == string(id) {
			out = append(out, r)
		}
	}
	return out
}

// lessLabel puts numeric labels first, ordered numerically, then everything
// else lexically.
func lessLabel(a, b string) bool {
	da, db := isDigits(a), isDigits(b)
	switch {
	case da && db:
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	case da != db:
		return da
	}
	return a < b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Load opens a case table from path: SQLite for .db, .sqlite and .sqlite3
// files, CSV otherwise.
func Load(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(ctx, path)
	default:
		return LoadCSV(path)
	}
}
