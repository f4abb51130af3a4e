package casedata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/episim/internal/dynamo"
)

// DefaultSeriesTable holds the national series in a SQLite file.
const DefaultSeriesTable = "time_series"

const seriesSchema = `CREATE TABLE IF NOT EXISTS %s (
	date      TEXT NOT NULL,
	confirmed REAL DEFAULT 0
)`

// CasePoint is the cumulative confirmed count on one day.
type CasePoint struct {
	Date      time.Time `json:"date"`
	Confirmed float64   `json:"confirmed"`
}

// TimeSeries is the national confirmed-case curve, one point per day in date
// order.
type TimeSeries struct {
	points []CasePoint
}

// NewTimeSeries sorts a copy of points by date. Two points on the same day are
// rejected.
func NewTimeSeries(points []CasePoint) (*TimeSeries, error) {
	cp := make([]CasePoint, len(points))
	copy(cp, points)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })
	for i, p := range cp {
		if p.Date.IsZero() {
			return nil, fmt.Errorf("%w: point %d has no date", dynamo.ErrInvalidParameter, i)
		}
		if i > 0 && p.Date.Equal(cp[i-1].Date) {
			return nil, fmt.Errorf("%w: two points on %s", dynamo.ErrInvalidParameter, p.Date.Format(dateColumnLayout))
		}
	}
	return &TimeSeries{points: cp}, nil
}

func (ts *TimeSeries) Len() int { return len(ts.points) }

func (ts *TimeSeries) Points() []CasePoint {
	cp := make([]CasePoint, len(ts.points))
	copy(cp, ts.points)
	return cp
}

func (ts *TimeSeries) Confirmed() []float64 {
	out := make([]float64, len(ts.points))
	for i, p := range ts.points {
		out[i] = p.Confirmed
	}
	return out
}

// NewCases returns the day-over-day increase; element i is the change from
// point i to point i+1.
func (ts *TimeSeries) NewCases() []float64 {
	if len(ts.points) < 2 {
		return nil
	}
	out := make([]float64, len(ts.points)-1)
	for i := 1; i < len(ts.points); i++ {
		out[i-1] = ts.points[i].Confirmed - ts.points[i-1].Confirmed
	}
	return out
}

// Declining reports whether the new cases of the last window days sum to
// less than those of the window before it.
func (ts *TimeSeries) Declining(window int) (bool, error) {
	if window < 1 {
		return false, dynamo.InvalidParameter("window", float64(window), ">= 1")
	}
	daily := ts.NewCases()
	if len(daily) < 2*window {
		return false, fmt.Errorf("%w: %d days of new cases, need %d", dynamo.ErrInvalidParameter, len(daily), 2*window)
	}
	var recent, prior float64
	for _, v := range daily[len(daily)-window:] {
		recent += v
	}
	for _, v := range daily[len(daily)-2*window : len(daily)-window] {
		prior += v
	}
	return recent < prior, nil
}

// LoadTimeSeries opens a series from path: SQLite for .db, .sqlite and
// .sqlite3 files, CSV otherwise.
func LoadTimeSeries(ctx context.Context, path string) (*TimeSeries, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		db, err := openReadOnly(ctx, path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return ReadSeriesDB(ctx, db, DefaultSeriesTable)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		ts, err := ReadSeriesCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return ts, nil
	}
}

// ReadSeriesCSV parses a Date,Confirmed file. Other columns are ignored.
func ReadSeriesCSV(r io.Reader) (*TimeSeries, error) {
	cr, idx, err := readHeader(r, colDate, colConfirmed)
	if err != nil {
		return nil, err
	}

	var points []CasePoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		d, err := parseDate(cellOf(rec, idx, colDate))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := parseNumber(cellOf(rec, idx, colConfirmed))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, colConfirmed, err)
		}
		points = append(points, CasePoint{Date: d, Confirmed: v})
	}
	return NewTimeSeries(points)
}

func ReadSeriesDB(ctx context.Context, db *sql.DB, table string) (*TimeSeries, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT date, COALESCE(confirmed, 0) FROM %s ORDER BY rowid`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []CasePoint
	for rows.Next() {
		var (
			date string
			p    CasePoint
		)
		if err := rows.Scan(&date, &p.Confirmed); err != nil {
			return nil, err
		}
		if p.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewTimeSeries(points)
}

// SaveSeriesSQLite writes ts into a SQLite file, replacing any existing
// series rows.
func SaveSeriesSQLite(ctx context.Context, path string, ts *TimeSeries) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(seriesSchema, DefaultSeriesTable)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+DefaultSeriesTable); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+DefaultSeriesTable+` (date, confirmed) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range ts.points {
		if _, err := stmt.ExecContext(ctx, formatDate(p.Date), p.Confirmed); err != nil {
			return err
		}
	}
	return tx.Commit()
}
