package celmech

import (
	"math"
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// SimulationConfig selects the timestep of a SecularSimulation. Exactly one
// of Dt and DtFraction must be set; DtFraction sizes the step as a fraction
// of the shortest secular eigenperiod.
type SimulationConfig struct {
	Dt         float64
	DtFraction float64
	Logger     kitlog.Logger
}

// SecularSimulation integrates the secular equations of motion with a
// symplectic splitting. The Laplace-Lagrange part is solved exactly by a
// linear operator A; all remaining operators B are applied once per step in
// a Strang sandwich, a half step of A forward at the start and a half step
// backward at the end.
type SecularSimulation struct {
	state *Poincare
	dt    float64
	t     float64
	tsec  float64

	linear       *LinearSecularEvolutionOperator
	halfForward  *LinearSecularEvolutionOperator
	halfBackward *LinearSecularEvolutionOperator
	ops          []EvolutionOperator

	logger kitlog.Logger
}

func NewSecularSimulation(state *Poincare, cfg SimulationConfig, coeffs DFCoefficientSource, ops ...EvolutionOperator) (*SecularSimulation, error) {
	if (cfg.Dt == 0) == (cfg.DtFraction == 0) {
		return nil, cfgErrorf("exactly one of Dt and DtFraction must be set")
	}
	ll, err := NewLaplaceLagrangeSystem(state, coeffs)
	if err != nil {
		return nil, err
	}
	tsec, err := ll.Tsec()
	if err != nil {
		return nil, err
	}
	dt := cfg.Dt
	if dt == 0 {
		dt = cfg.DtFraction * tsec
	}
	linear, err := NewLinearSecularEvolutionOperatorFromSystem(ll, dt)
	if err != nil {
		return nil, err
	}
	halfF, err := NewLinearSecularEvolutionOperatorFromSystem(ll, dt/2)
	if err != nil {
		return nil, err
	}
	halfB, err := NewLinearSecularEvolutionOperatorFromSystem(ll, -dt/2)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	}
	for _, op := range ops {
		op.SetDt(dt)
	}
	return &SecularSimulation{
		state:        state,
		dt:           dt,
		tsec:         tsec,
		linear:       linear,
		halfForward:  halfF,
		halfBackward: halfB,
		ops:          ops,
		logger:       kitlog.With(logger, "simulation", "secular"),
	}, nil
}

func (s *SecularSimulation) State() *Poincare { return s.state }

func (s *SecularSimulation) T() float64  { return s.t }
func (s *SecularSimulation) Dt() float64 { return s.dt }

// Tsec is the shortest period of the linear secular eigenmodes, the
// natural unit for choosing the timestep.
func (s *SecularSimulation) Tsec() float64 { return s.tsec }

// SetDt changes the timestep and rebuilds every step-dependent table.
func (s *SecularSimulation) SetDt(dt float64) {
	s.dt = dt
	s.linear.SetDt(dt)
	s.halfForward.SetDt(dt / 2)
	s.halfBackward.SetDt(-dt / 2)
	for _, op := range s.ops {
		op.SetDt(dt)
	}
}

// Integrate advances the system to the given time, rounding the number of
// steps up so the reached time is never short of the target. Backward
// integration is not supported.
func (s *SecularSimulation) Integrate(time float64) error {
	if time < s.t {
		return cfgErrorf("backward integration is not supported: target %g is before t=%g", time, s.t)
	}
	steps := int(math.Ceil((time - s.t) / s.dt))
	s.logger.Log("event", "integrate", "t", s.t, "target", time, "steps", steps, "dt", s.dt)
	vec := s.state.StateVector()
	vec, err := s.halfForward.ApplyToVector(vec)
	if err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		for _, op := range s.ops {
			if vec, err = op.ApplyToVector(vec); err != nil {
				return err
			}
		}
		if vec, err = s.linear.ApplyToVector(vec); err != nil {
			return err
		}
	}
	vec, err = s.halfBackward.ApplyToVector(vec)
	if err != nil {
		return err
	}
	if err := s.state.SetStateVector(vec); err != nil {
		return err
	}
	s.t += float64(steps) * s.dt
	s.state.SetT(s.t)
	return nil
}

// AMD is the angular momentum deficit, the sum of Gamma and Q over the
// planets. It is conserved by the secular flow.
func (s *SecularSimulation) AMD() float64 {
	var amd float64
	for _, p := range s.state.Planets() {
		amd += p.Gamma() + p.Q()
	}
	return amd
}

// LinearEnergy is the value of the Laplace-Lagrange Hamiltonian at the
// current state.
func (s *SecularSimulation) LinearEnergy() (float64, error) {
	return s.linear.Hamiltonian(s.state.StateVector())
}
