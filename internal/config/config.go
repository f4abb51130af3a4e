package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/epi"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBeta                 = 0.5
	DefaultGamma                = 0.5
	DefaultVaccinatedProportion = 0.0001
	DefaultVaccineEfficacy      = 0.6
	DefaultReferencePopulation  = 1000.0
	DefaultIntegrator           = "rk4"
)

// Population modes.
const (
	PopulationReference = "reference"
	PopulationTable     = "table"
)

type Config struct {
	Beta                 float64  `yaml:"beta" toml:"beta"`
	Gamma                float64  `yaml:"gamma" toml:"gamma"`
	VaccinatedProportion float64  `yaml:"vaccinated_proportion" toml:"vaccinated_proportion"`
	VaccineEfficacy      float64  `yaml:"vaccine_efficacy" toml:"vaccine_efficacy"`
	Steps                int      `yaml:"steps" toml:"steps"`
	Dt                   float64  `yaml:"dt" toml:"dt"`
	Tolerance            float64  `yaml:"tolerance" toml:"tolerance"`
	Integrator           string   `yaml:"integrator" toml:"integrator"`
	ReferencePopulation  float64  `yaml:"reference_population" toml:"reference_population"`
	SeedInfected         float64  `yaml:"seed_infected" toml:"seed_infected"`
	TrackVaccinated      bool     `yaml:"track_vaccinated" toml:"track_vaccinated"`
	PopulationMode       string   `yaml:"population_mode" toml:"population_mode"`
	DataFile             string   `yaml:"data_file" toml:"data_file"`
	CasesFile            string   `yaml:"cases_file" toml:"cases_file"`
	Segments             []string `yaml:"segments" toml:"segments"`
	Sequential           bool     `yaml:"sequential" toml:"sequential"`
	Workers              int      `yaml:"workers" toml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Beta:                 DefaultBeta,
		Gamma:                DefaultGamma,
		VaccinatedProportion: DefaultVaccinatedProportion,
		VaccineEfficacy:      DefaultVaccineEfficacy,
		Steps:                sim.DefaultSteps,
		Dt:                   sim.DefaultDt,
		Tolerance:            sim.DefaultTolerance,
		Integrator:           DefaultIntegrator,
		ReferencePopulation:  DefaultReferencePopulation,
		SeedInfected:         epi.DefaultSeedInfected,
		PopulationMode:       PopulationReference,
	}
}

// Load reads a YAML or TOML file (chosen by extension) over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate checks every field against its domain. Nothing is clamped.
func (c *Config) Validate() error {
	if !(c.Beta >= 0) {
		return dynamo.InvalidParameter("beta", c.Beta, ">= 0")
	}
	if !(c.Gamma >= 0) {
		return dynamo.InvalidParameter("gamma", c.Gamma, ">= 0")
	}
	if err := c.Vaccination().Validate(); err != nil {
		return err
	}
	if c.Steps < 1 || c.Steps > sim.MaxSteps {
		return fmt.Errorf("%w: steps=%d, want 1..%d", dynamo.ErrInvalidParameter, c.Steps, sim.MaxSteps)
	}
	if !(c.Dt > 0) {
		return dynamo.InvalidParameter("dt", c.Dt, "> 0")
	}
	if !(c.Tolerance > 0) {
		return dynamo.InvalidParameter("tolerance", c.Tolerance, "> 0")
	}
	if _, err := integrators.Lookup(c.Integrator); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	if !(c.ReferencePopulation > 0) {
		return dynamo.InvalidParameter("reference_population", c.ReferencePopulation, "> 0")
	}
	if !(c.SeedInfected >= 0) {
		return dynamo.InvalidParameter("seed_infected", c.SeedInfected, ">= 0")
	}
	switch c.PopulationMode {
	case PopulationReference:
	case PopulationTable:
		if c.DataFile == "" {
			return fmt.Errorf("%w: population_mode %q needs data_file", dynamo.ErrInvalidParameter, c.PopulationMode)
		}
	default:
		return fmt.Errorf("%w: population_mode %q, want %q or %q",
			dynamo.ErrInvalidParameter, c.PopulationMode, PopulationReference, PopulationTable)
	}
	if len(c.Segments) > epi.MaxSegments {
		return fmt.Errorf("%w: %d segments, at most %d", dynamo.ErrInvalidParameter, len(c.Segments), epi.MaxSegments)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers=%d", dynamo.ErrInvalidParameter, c.Workers)
	}
	return nil
}

func (c *Config) Vaccination() epi.Vaccination {
	return epi.Vaccination{Proportion: c.VaccinatedProportion, Efficacy: c.VaccineEfficacy}
}

// EngineOptions maps the file settings onto engine options.
func (c *Config) EngineOptions() epi.Options {
	return epi.Options{
		Sim: sim.Config{
			Dt:        c.Dt,
			Steps:     c.Steps,
			Tolerance: c.Tolerance,
		},
		Integrator:      c.Integrator,
		SeedInfected:    c.SeedInfected,
		TrackVaccinated: c.TrackVaccinated,
		Parallel:        !c.Sequential,
		Workers:         c.Workers,
	}
}

// SegmentIDs converts the configured labels.
func (c *Config) SegmentIDs() []epi.SegmentID {
	ids := make([]epi.SegmentID, len(c.Segments))
	for i, s := range c.Segments {
		ids[i] = epi.SegmentID(s)
	}
	return ids
}
