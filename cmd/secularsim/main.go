package main

import (
	"flag"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"

	"github.com/Ethadhani/celmech"
)

// daysPerUnit converts code time (G=1, solar masses, AU) to days.
const daysPerUnit = 365.25 / (2 * 3.14159265358979323846)

func fatal(logger kitlog.Logger, err error) {
	logger.Log("error", err)
	os.Exit(1)
}

func main() {
	var scenario, path string
	flag.StringVar(&scenario, "scenario", "scenario", "name of the scenario file, without extension")
	flag.StringVar(&path, "path", ".", "directory holding the scenario file")
	flag.Parse()

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "cmd", "secularsim")

	v := viper.New()
	v.SetConfigName(scenario)
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		fatal(logger, err)
	}

	st := celmech.ExternalState{
		G:           v.GetFloat64("system.G"),
		CentralMass: v.GetFloat64("system.central_mass"),
	}
	if st.G == 0 {
		st.G = 1
	}
	if st.CentralMass == 0 {
		st.CentralMass = 1
	}
	if err := v.UnmarshalKey("planets", &st.Bodies); err != nil {
		fatal(logger, err)
	}
	sys, err := celmech.PoincareFromState(st, celmech.CanonicalHeliocentric)
	if err != nil {
		fatal(logger, err)
	}

	epochJD := julian.TimeToJD(time.Now().UTC())
	if s := v.GetString("time.epoch"); s != "" {
		epoch, err := time.Parse("2006-01-02", s)
		if err != nil {
			fatal(logger, err)
		}
		epochJD = julian.TimeToJD(epoch)
	}

	simCfg := celmech.DefaultSimulationConfig()
	if f := v.GetFloat64("integration.dt_fraction"); f != 0 {
		simCfg = celmech.SimulationConfig{DtFraction: f}
	}
	if dt := v.GetFloat64("integration.dt"); dt != 0 {
		simCfg = celmech.SimulationConfig{Dt: dt}
	}
	simCfg.Logger = logger

	var ops []celmech.EvolutionOperator
	var ham *celmech.PoincareHamiltonian
	if j := v.GetInt("resonance.j"); j != 0 {
		indexIn, indexOut := v.GetInt("resonance.index_in"), v.GetInt("resonance.index_out")
		if indexIn == 0 {
			indexIn, indexOut = 1, 2
		}
		op, err := celmech.NewFirstOrderEccentricityResonanceOperator(sys, 1, j, indexIn, indexOut, nil, celmech.LaplaceSource{})
		if err != nil {
			fatal(logger, err)
		}
		ops = append(ops, op)
		// Full disturbing function of the pair, truncated at the configured
		// expansion order, as an energy diagnostic for the linearized run.
		ham = celmech.NewPoincareHamiltonian(sys, celmech.LaplaceSource{})
		if err := ham.AddAllMMRAndSecularTerms(j, 1, celmech.LoadEngineConfig().MaxOrder, indexIn, indexOut, 1); err != nil {
			fatal(logger, err)
		}
		ham.Finalize()
	}

	sim, err := celmech.NewSecularSimulation(sys, simCfg, celmech.LaplaceSource{}, ops...)
	if err != nil {
		fatal(logger, err)
	}

	duration := v.GetFloat64("time.duration")
	if duration == 0 {
		duration = 2 * sim.Tsec()
	}
	samples := v.GetInt("output.samples")
	if samples == 0 {
		samples = 100
	}
	head := []interface{}{"epoch_jd", epochJD, "Tsec", sim.Tsec(), "dt", sim.Dt(), "duration", duration, "samples", samples}
	if ham != nil {
		value, err := ham.Value()
		if err != nil {
			fatal(logger, err)
		}
		head = append(head, "hamiltonian", value)
	}
	logger.Log(head...)

	for i := 1; i <= samples; i++ {
		// Integrate rounds the step count up, so a sample may already be
		// behind the reached time.
		if target := duration * float64(i) / float64(samples); target > sim.T() {
			if err := sim.Integrate(target); err != nil {
				fatal(logger, err)
			}
		}
		out, err := sys.State()
		if err != nil {
			fatal(logger, err)
		}
		for pi, b := range out.Bodies {
			logger.Log("t", sim.T(), "jd", epochJD+sim.T()*daysPerUnit, "planet", pi+1,
				"a", b.A, "e", b.E, "inc", b.Inc, "pomega", b.Pomega, "Omega", b.Omega)
		}
	}
	energy, err := sim.LinearEnergy()
	if err != nil {
		fatal(logger, err)
	}
	row := []interface{}{"t", sim.T(), "AMD", sim.AMD(), "linear_energy", energy}
	if ham != nil {
		value, err := ham.Value()
		if err != nil {
			fatal(logger, err)
		}
		row = append(row, "hamiltonian", value)
	}
	logger.Log(row...)
}
