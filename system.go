package celmech

import (
	"math"
)

// Poincare is a hierarchical system of planets around a common central body,
// expressed in Poincare canonical variables.
type Poincare struct {
	g           float64
	t           float64
	coordinates CoordinateSystem
	planets     []*PoincareParticle
}

// NewPoincare assembles a system from its planets, which must share the
// same gravitational constant, coordinate system and central body.
func NewPoincare(g float64, planets []*PoincareParticle) (*Poincare, error) {
	if len(planets) == 0 {
		return nil, cfgErrorf("a system needs at least one planet")
	}
	coords := planets[0].Coordinates()
	mStar := planets[0].CentralMass()
	for i, p := range planets {
		if p.G() != g {
			return nil, cfgErrorf("planet %d has G=%g, system has G=%g", i+1, p.G(), g)
		}
		if p.Coordinates() != coords {
			return nil, cfgErrorf("planet %d uses %s coordinates, system uses %s", i+1, p.Coordinates(), coords)
		}
		if math.Abs(p.CentralMass()-mStar) > 1e-12*mStar {
			return nil, cfgErrorf("planet %d orbits a central mass of %g, system central mass is %g", i+1, p.CentralMass(), mStar)
		}
	}
	return &Poincare{g: g, coordinates: coords, planets: planets}, nil
}

// G returns the gravitational constant of the system.
func (s *Poincare) G() float64 { return s.g }

// Coordinates returns the coordinate system shared by all planets.
func (s *Poincare) Coordinates() CoordinateSystem { return s.coordinates }

// CentralMass returns the physical mass of the central body.
func (s *Poincare) CentralMass() float64 { return s.planets[0].CentralMass() }

// T returns the current epoch of the system.
func (s *Poincare) T() float64 { return s.t }

// SetT replaces the current epoch.
func (s *Poincare) SetT(t float64) { s.t = t }

// N returns the number of bodies including the central one.
func (s *Poincare) N() int { return len(s.planets) + 1 }

// Particle returns the i-th body. Planets are numbered from 1; negative
// indices count from the last planet, as in Particle(-1) for the outermost.
// Index 0 is the central body, which carries no Poincare variables.
func (s *Poincare) Particle(i int) (*PoincareParticle, error) {
	if i == 0 {
		return nil, cfgErrorf("the central body has no Poincare variables")
	}
	if i < 0 {
		i += s.N()
	}
	if i < 1 || i >= s.N() {
		return nil, cfgErrorf("particle index %d out of range for %d bodies", i, s.N())
	}
	return s.planets[i-1], nil
}

// Planets returns the planets in order, without the central body.
func (s *Poincare) Planets() []*PoincareParticle { return s.planets }

// Copy returns a deep copy of the system.
func (s *Poincare) Copy() *Poincare {
	dup := &Poincare{g: s.g, t: s.t, coordinates: s.coordinates}
	dup.planets = make([]*PoincareParticle, len(s.planets))
	for i, p := range s.planets {
		c := *p
		dup.planets[i] = &c
	}
	return dup
}

// Values returns the canonical variables as a flat vector of six contiguous
// blocks, one value per planet in each block, ordered as the coordinate
// blocks l, eta, rho followed by the momentum blocks Lambda, kappa, sigma.
func (s *Poincare) Values() []float64 {
	n := len(s.planets)
	v := make([]float64, 6*n)
	for i, p := range s.planets {
		v[i] = p.L()
		v[n+i] = p.Eta()
		v[2*n+i] = p.Rho()
		v[3*n+i] = p.Lambda()
		v[4*n+i] = p.Kappa()
		v[5*n+i] = p.Sigma()
	}
	return v
}

// SetValues replaces the canonical variables from a flat vector laid out as
// Values returns them.
func (s *Poincare) SetValues(v []float64) error {
	n := len(s.planets)
	if len(v) != 6*n {
		return cfgErrorf("expected %d values, got %d", 6*n, len(v))
	}
	for i, p := range s.planets {
		sqμ := math.Sqrt(p.μ)
		p.l = v[i]
		p.sη = v[n+i] / sqμ
		p.sρ = v[2*n+i] / sqμ
		p.sΛ = v[3*n+i] / p.μ
		p.sκ = v[4*n+i] / sqμ
		p.sσ = v[5*n+i] / sqμ
	}
	return nil
}

// StateVector returns the canonical variables grouped per planet in the
// order kappa, eta, Lambda, l, sigma, rho, the layout the evolution
// operators advance.
func (s *Poincare) StateVector() []float64 {
	v := make([]float64, 0, 6*len(s.planets))
	for _, p := range s.planets {
		v = append(v, p.Kappa(), p.Eta(), p.Lambda(), p.L(), p.Sigma(), p.Rho())
	}
	return v
}

// SetStateVector replaces the canonical variables from a vector laid out as
// StateVector returns them.
func (s *Poincare) SetStateVector(v []float64) error {
	if len(v) != 6*len(s.planets) {
		return cfgErrorf("expected %d values, got %d", 6*len(s.planets), len(v))
	}
	for i, p := range s.planets {
		sqμ := math.Sqrt(p.μ)
		p.sκ = v[6*i] / sqμ
		p.sη = v[6*i+1] / sqμ
		p.sΛ = v[6*i+2] / p.μ
		p.l = v[6*i+3]
		p.sσ = v[6*i+4] / sqμ
		p.sρ = v[6*i+5] / sqμ
	}
	return nil
}

// BodyElements is the osculating orbit of one planet in an ExternalState.
type BodyElements struct {
	Mass   float64
	A      float64
	E      float64
	Inc    float64
	L      float64
	Pomega float64
	Omega  float64
}

// ExternalState is a system described by masses and orbital elements, the
// interchange format with N-body integrations and scenario files.
type ExternalState struct {
	G           float64
	T           float64
	CentralMass float64
	Bodies      []BodyElements
}

// PoincareFromState builds a system from masses and orbital elements.
func PoincareFromState(st ExternalState, coords CoordinateSystem) (*Poincare, error) {
	if len(st.Bodies) == 0 {
		return nil, cfgErrorf("a system needs at least one planet")
	}
	planets := make([]*PoincareParticle, len(st.Bodies))
	for i, b := range st.Bodies {
		p, err := NewParticle(ParticleConfig{
			G: st.G, Coordinates: coords,
			Mass: Float(b.Mass), CentralMass: Float(st.CentralMass),
			A: Float(b.A), E: Float(b.E), Inc: Float(b.Inc),
			L: Float(b.L), Pomega: Float(b.Pomega), Omega: Float(b.Omega),
		})
		if err != nil {
			return nil, err
		}
		planets[i] = p
	}
	sys, err := NewPoincare(st.G, planets)
	if err != nil {
		return nil, err
	}
	sys.t = st.T
	return sys, nil
}

// State exports the system as masses and osculating elements. It fails with
// a PhysicalStateError when a planet's actions no longer describe a bound
// orbit.
func (s *Poincare) State() (ExternalState, error) {
	st := ExternalState{G: s.g, T: s.t, CentralMass: s.CentralMass()}
	st.Bodies = make([]BodyElements, len(s.planets))
	for i, p := range s.planets {
		e, err := p.E()
		if err != nil {
			return ExternalState{}, err
		}
		inc, err := p.Inc()
		if err != nil {
			return ExternalState{}, err
		}
		st.Bodies[i] = BodyElements{
			Mass: p.Mass(), A: p.A(), E: e, Inc: inc,
			L: p.L(), Pomega: p.Pomega(), Omega: p.Omega(),
		}
	}
	return st, nil
}
