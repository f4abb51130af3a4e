// Package export writes trajectories out as CSV, JSON, HTML charts or PNG
// plots.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/metrics"
	"github.com/san-kum/episim/internal/sim"
)

// Series is a labelled trajectory, e.g. "before" and "after" vaccination.
type Series struct {
	Label      string
	Trajectory *sim.Trajectory
}

// Scenario records the inputs that produced the exported series.
type Scenario struct {
	Beta       float64  `json:"beta"`
	Gamma      float64  `json:"gamma"`
	Proportion float64  `json:"vaccinated_proportion"`
	Efficacy   float64  `json:"vaccine_efficacy"`
	Integrator string   `json:"integrator,omitempty"`
	Segments   []string `json:"segments,omitempty"`
}

type Document struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Scenario  Scenario         `json:"scenario"`
	Series    []SeriesDocument `json:"series"`
}

type SeriesDocument struct {
	Label   string          `json:"label"`
	Dt      float64         `json:"dt"`
	Summary metrics.Summary `json:"summary"`
	Points  []sim.Point     `json:"points"`
}

func NewDocument(sc Scenario, series ...Series) Document {
	doc := Document{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Scenario:  sc,
		Series:    make([]SeriesDocument, 0, len(series)),
	}
	for _, s := range series {
		doc.Series = append(doc.Series, SeriesDocument{
			Label:   s.Label,
			Dt:      s.Trajectory.Dt(),
			Summary: metrics.Summarize(s.Trajectory),
			Points:  s.Trajectory.Points(),
		})
	}
	return doc
}

func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteCSV writes every series in long form: series, step, compartment, value.
func WriteCSV(w io.Writer, series ...Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"series", "step", "compartment", "value"}); err != nil {
		return err
	}
	for _, s := range series {
		for _, rec := range s.Trajectory.Long() {
			row := []string{
				s.Label,
				strconv.Itoa(rec.Step),
				rec.Compartment,
				strconv.FormatFloat(rec.Value, 'f', 6, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Formats understood by ToFile.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatHTML = "html"
	FormatPNG  = "png"
)

func Formats() []string { return []string{FormatCSV, FormatJSON, FormatHTML, FormatPNG} }

// FormatOf maps a file extension onto an export format.
func FormatOf(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case FormatCSV, FormatJSON, FormatHTML, FormatPNG:
		return ext, nil
	case "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: unsupported export extension %q", dynamo.ErrInvalidParameter, filepath.Ext(path))
}

// ToFile writes the series to path in the format implied by its extension.
func ToFile(path, title string, sc Scenario, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("%w: nothing to export", dynamo.ErrInvalidParameter)
	}
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		err = WriteCSV(f, series...)
	case FormatJSON:
		err = WriteJSON(f, NewDocument(sc, series...))
	case FormatHTML:
		err = WriteHTML(f, title, series...)
	case FormatPNG:
		err = WritePNG(f, title, series...)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
