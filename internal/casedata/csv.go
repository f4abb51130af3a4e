package casedata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Accepted date layouts, tried in order.
var dateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

// Column names. Matching is case-insensitive.
const (
	colCounty     = "county"
	colFIPS       = "fips"
	colCluster    = "cluster_labels"
	colConfirmed  = "confirmed"
	colActive     = "active"
	colDeaths     = "deaths"
	colRecovered  = "recovered"
	colAverage    = "average"
	colPopulation = "population"
	colDate       = "date"
)

var requiredColumns = []string{colCounty, colCluster}

func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses a header-led county table. Unknown columns are ignored and
// empty numeric cells read as zero.
func ReadCSV(r io.Reader) (*Table, error) {
	cr, idx, err := readHeader(r, requiredColumns...)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := parseRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return &Table{rows: rows}, nil
}

// readHeader consumes the header line and maps lower-cased column names to
// their index.
func readHeader(r io.Reader, required ...string) (*csv.Reader, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty file")
		}
		return nil, nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", c)
		}
	}
	return cr, idx, nil
}

func cellOf(rec []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseRecord(rec []string, idx map[string]int) (Row, error) {
	cell := func(col string) string { return cellOf(rec, idx, col) }

	row := Row{
		County:  cell(colCounty),
		FIPS:    normalizeFIPS(cell(colFIPS)),
		Cluster: normalizeLabel(cell(colCluster)),
	}
	if row.Cluster == "" {
		return Row{}, fmt.Errorf("county %q has no cluster label", row.County)
	}

	nums := []struct {
		col string
		dst *float64
	}{
		{colConfirmed, &row.Confirmed},
		{colActive, &row.Active},
		{colDeaths, &row.Deaths},
		{colRecovered, &row.Recovered},
		{colAverage, &row.Average},
		{colPopulation, &row.Population},
	}
	for _, n := range nums {
		v, err := parseNumber(cell(n.col))
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", n.col, err)
		}
		*n.dst = v
	}

	if s := cell(colDate); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return Row{}, err
		}
		row.Date = d
	}
	return row, nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// normalizeFIPS drops a float suffix and left-pads to five digits.
func normalizeFIPS(s string) string {
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return s
	}
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}

// normalizeLabel maps "3.0" to "3" so labels written by float-typed exports
// match integer ones.
func normalizeLabel(s string) string {
	return strings.TrimSuffix(s, ".0")
}
