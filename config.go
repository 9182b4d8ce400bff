package celmech

import (
	"os"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	config    = _celmechconfig{maxOrder: 4, dtFraction: 0.01}
)

// _celmechconfig is a "hidden" struct, just use `celmechConfig`
type _celmechconfig struct {
	maxOrder   int
	dtFraction float64
	outputDir  string
}

// celmechConfig returns the engine configuration. Tunables are read from
// conf.toml in the directory named by the CELMECH_CONFIG environment
// variable; without the variable, or without the file, the defaults stand.
func celmechConfig() _celmechconfig {
	if cfgLoaded {
		return config
	}
	confPath := os.Getenv("CELMECH_CONFIG")
	if confPath != "" {
		viper.SetConfigName("conf")
		viper.AddConfigPath(confPath)
		if err := viper.ReadInConfig(); err == nil {
			if viper.IsSet("expansion.max_order") {
				config.maxOrder = viper.GetInt("expansion.max_order")
			}
			if viper.IsSet("integration.dt_fraction") {
				config.dtFraction = viper.GetFloat64("integration.dt_fraction")
			}
			config.outputDir = viper.GetString("general.output_path")
		}
	}
	cfgLoaded = true
	return config
}

// EngineConfig holds the loaded engine tunables.
type EngineConfig struct {
	MaxOrder   int
	DtFraction float64
	OutputDir  string
}

// LoadEngineConfig exposes the engine tunables to callers outside the
// package.
func LoadEngineConfig() EngineConfig {
	c := celmechConfig()
	return EngineConfig{MaxOrder: c.maxOrder, DtFraction: c.dtFraction, OutputDir: c.outputDir}
}

// DefaultSimulationConfig sizes the timestep from the configured fraction
// of the shortest secular period.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{DtFraction: celmechConfig().dtFraction}
}
