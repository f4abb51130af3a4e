package config

import "sort"

// Presets are named parameter sets. "dashboard" reproduces the sliders'
// starting position.
var Presets = map[string]*Config{
	"dashboard": {
		Beta: 0.5, Gamma: 0.5, VaccinatedProportion: 0.0001, VaccineEfficacy: 0.6,
	},
	"outbreak": {
		Beta: 0.5, Gamma: 0.1, VaccinatedProportion: 0, VaccineEfficacy: 0.6,
	},
	"herd": {
		Beta: 0.5, Gamma: 0.25, VaccinatedProportion: 0.9999, VaccineEfficacy: 0.6,
	},
	"no-transmission": {
		Beta: 0, Gamma: 0.3, VaccinatedProportion: 0.2, VaccineEfficacy: 0.6,
	},
	"no-recovery": {
		Beta: 0.4, Gamma: 0, VaccinatedProportion: 0.2, VaccineEfficacy: 0.6,
	},
}

// GetPreset returns a full config with the preset's rates applied over the
// defaults, or nil when the preset does not exist.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Beta = p.Beta
	cfg.Gamma = p.Gamma
	cfg.VaccinatedProportion = p.VaccinatedProportion
	cfg.VaccineEfficacy = p.VaccineEfficacy
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
