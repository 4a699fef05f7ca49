package config

import (
	"sort"

	"github.com/san-kum/foamrun/internal/residual"
)

var Presets = map[string]map[string]*Config{
	"twoLiquidMixingFoam": {
		"parallel": {Solver: "twoLiquidMixingFoam", Processors: 6},
		"serial":   {Solver: "twoLiquidMixingFoam", Processors: 1},
	},
	"interFoam": {
		"parallel": {Solver: "interFoam", Processors: 4},
		"serial":   {Solver: "interFoam", Processors: 1},
	},
	"simpleFoam": {
		"serial":   {Solver: "simpleFoam", Processors: 1},
		"parallel": {Solver: "simpleFoam", Processors: 8},
	},
	"pimpleFoam": {
		"parallel": {Solver: "pimpleFoam", Processors: 4},
		// one point per time step: the first outer corrector's residual
		"first-corrector": {
			Solver: "pimpleFoam", Processors: 4,
			Residuals: ResidualsConfig{Duplicates: residual.KeepFirst},
		},
	},
	"buoyantPimpleFoam": {
		"parallel": {Solver: "buoyantPimpleFoam", Processors: 6},
	},
}

func GetPreset(solver, preset string) *Config {
	solverPresets, ok := Presets[solver]
	if !ok {
		return nil
	}
	cfg, ok := solverPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(solver string) []string {
	solverPresets, ok := Presets[solver]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(solverPresets))
	for name := range solverPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Solvers lists the solvers that have presets.
func Solvers() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
