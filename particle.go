package celmech

import (
	"math"
)

// CoordinateSystem selects the splitting of the N-body problem used to
// define the canonical masses of each particle.
type CoordinateSystem uint8

const (
	// CanonicalHeliocentric uses reduced masses: mu = m*Mstar/(Mstar+m)
	// and M = Mstar + m. The physical mass of a particle is then fixed
	// by its canonical masses and cannot be changed independently.
	CanonicalHeliocentric CoordinateSystem = iota
	// DemocraticHeliocentric uses mu = m and M = Mstar.
	DemocraticHeliocentric
)

func (c CoordinateSystem) String() string {
	switch c {
	case CanonicalHeliocentric:
		return "canonical heliocentric"
	case DemocraticHeliocentric:
		return "democratic heliocentric"
	}
	return "unknown"
}

// Float returns a pointer to v, for use in optional ParticleConfig fields.
func Float(v float64) *float64 {
	return &v
}

// ParticleConfig collects the initialization parameters of a PoincareParticle.
// Optional fields are pointers so that zero can be given explicitly.
//
// Masses are set either physically (Mass and CentralMass) or canonically
// (Mu and M), never both. The dynamical state is set in one of three ways:
// all six stored variables (SLambda, L, SKappa, SEta, SSigma, SRho), all six
// canonical variables (Lambda, L, Kappa, Eta, Sigma, Rho), or orbital
// elements, where exactly one of SLambda, Lambda or A is required and at
// most one of each remaining group may appear.
type ParticleConfig struct {
	G           float64 // gravitational constant, defaults to 1
	Coordinates CoordinateSystem

	Mass        *float64
	CentralMass *float64
	Mu          *float64
	M           *float64

	SLambda *float64
	Lambda  *float64
	A       *float64

	L *float64

	SGamma *float64
	Gamma  *float64
	E      *float64
	Pomega *float64

	SQ  *float64
	Q   *float64
	Inc *float64
	Omega *float64

	SKappa *float64
	SEta   *float64
	SSigma *float64
	SRho   *float64

	Kappa *float64
	Eta   *float64
	Sigma *float64
	Rho   *float64
}

// PoincareParticle is one planet of a hierarchical system expressed in
// Poincare canonical variables. The stored state is the six specific
// (per unit canonical mass) variables; everything else is derived.
type PoincareParticle struct {
	coordinates CoordinateSystem
	g           float64
	mass        float64 // physical mass
	mStar       float64 // physical central mass
	μ           float64 // canonical mass factor
	cM          float64 // canonical gravitational mass M

	sΛ float64
	l  float64
	sκ float64
	sη float64
	sσ float64
	sρ float64
}

// NewParticle builds a particle from a configuration, validating the
// combination of parameters given.
func NewParticle(cfg ParticleConfig) (*PoincareParticle, error) {
	p := &PoincareParticle{coordinates: cfg.Coordinates, g: cfg.G}
	if p.g == 0 {
		p.g = 1
	}
	if err := p.resolveMasses(cfg); err != nil {
		return nil, err
	}
	return p, p.resolveState(cfg)
}

func (p *PoincareParticle) resolveMasses(cfg ParticleConfig) error {
	physical := cfg.Mass != nil || cfg.CentralMass != nil
	canonical := cfg.Mu != nil || cfg.M != nil
	switch {
	case physical && canonical:
		return cfgErrorf("cannot mix physical masses (Mass, CentralMass) with canonical masses (Mu, M)")
	case physical:
		if cfg.Mass == nil || cfg.CentralMass == nil {
			return cfgErrorf("Mass and CentralMass must be given together")
		}
		p.mass, p.mStar = *cfg.Mass, *cfg.CentralMass
		switch p.coordinates {
		case CanonicalHeliocentric:
			p.cM = p.mStar + p.mass
			p.μ = p.mass * p.mStar / p.cM
		case DemocraticHeliocentric:
			p.cM = p.mStar
			p.μ = p.mass
		}
	case canonical:
		if cfg.Mu == nil || cfg.M == nil {
			return cfgErrorf("Mu and M must be given together")
		}
		p.μ, p.cM = *cfg.Mu, *cfg.M
		switch p.coordinates {
		case CanonicalHeliocentric:
			disc := p.cM*p.cM - 4*p.μ*p.cM
			if disc < 0 {
				return cfgErrorf("no physical masses reproduce Mu=%g, M=%g in canonical heliocentric coordinates", p.μ, p.cM)
			}
			p.mStar = (p.cM + math.Sqrt(disc)) / 2
			p.mass = p.μ * p.cM / p.mStar
		case DemocraticHeliocentric:
			p.mass = p.μ
			p.mStar = p.cM
		}
	default:
		return cfgErrorf("masses are required: give Mass+CentralMass or Mu+M")
	}
	if p.mass <= 0 || p.mStar <= 0 {
		return cfgErrorf("masses must be positive (m=%g, Mstar=%g)", p.mass, p.mStar)
	}
	return nil
}

func countSet(vs ...*float64) int {
	n := 0
	for _, v := range vs {
		if v != nil {
			n++
		}
	}
	return n
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (p *PoincareParticle) resolveState(cfg ParticleConfig) error {
	storedN := countSet(cfg.SKappa, cfg.SEta, cfg.SSigma, cfg.SRho)
	canonN := countSet(cfg.Kappa, cfg.Eta, cfg.Sigma, cfg.Rho)
	if storedN > 0 && storedN < 4 || canonN > 0 && canonN < 4 {
		return cfgErrorf("kappa, eta, sigma and rho must be given all together")
	}
	if storedN == 4 && canonN == 4 {
		return cfgErrorf("cannot mix stored and canonical kappa/eta/sigma/rho")
	}
	p.l = orZero(cfg.L)
	switch {
	case storedN == 4:
		if cfg.SLambda == nil {
			return cfgErrorf("SLambda is required with stored variables")
		}
		if countSet(cfg.Lambda, cfg.A, cfg.SGamma, cfg.Gamma, cfg.E, cfg.SQ, cfg.Q, cfg.Inc, cfg.Pomega, cfg.Omega) > 0 {
			return cfgErrorf("stored variables cannot be mixed with other state parameters")
		}
		p.sΛ = *cfg.SLambda
		p.sκ, p.sη = *cfg.SKappa, *cfg.SEta
		p.sσ, p.sρ = *cfg.SSigma, *cfg.SRho
	case canonN == 4:
		if cfg.Lambda == nil {
			return cfgErrorf("Lambda is required with canonical variables")
		}
		if countSet(cfg.SLambda, cfg.A, cfg.SGamma, cfg.Gamma, cfg.E, cfg.SQ, cfg.Q, cfg.Inc, cfg.Pomega, cfg.Omega) > 0 {
			return cfgErrorf("canonical variables cannot be mixed with other state parameters")
		}
		sqμ := math.Sqrt(p.μ)
		p.sΛ = *cfg.Lambda / p.μ
		p.sκ, p.sη = *cfg.Kappa/sqμ, *cfg.Eta/sqμ
		p.sσ, p.sρ = *cfg.Sigma/sqμ, *cfg.Rho/sqμ
	default:
		if err := p.resolveElements(cfg); err != nil {
			return err
		}
	}
	if p.sΛ <= 0 {
		return PhysicalStateError{"Lambda must be positive for a bound orbit"}
	}
	if p.sGamma() > p.sΛ {
		return PhysicalStateError{"Gamma exceeds Lambda"}
	}
	return nil
}

func (p *PoincareParticle) resolveElements(cfg ParticleConfig) error {
	switch countSet(cfg.SLambda, cfg.Lambda, cfg.A) {
	case 0:
		return cfgErrorf("one of SLambda, Lambda or A is required")
	case 1:
	default:
		return cfgErrorf("SLambda, Lambda and A are mutually exclusive")
	}
	switch {
	case cfg.SLambda != nil:
		p.sΛ = *cfg.SLambda
	case cfg.Lambda != nil:
		p.sΛ = *cfg.Lambda / p.μ
	case cfg.A != nil:
		if *cfg.A <= 0 {
			return OrbitGeometryError{"semimajor axis must be positive"}
		}
		p.sΛ = math.Sqrt(p.g * p.cM * *cfg.A)
	}

	var sΓ float64
	switch countSet(cfg.SGamma, cfg.Gamma, cfg.E) {
	case 0:
	case 1:
		switch {
		case cfg.SGamma != nil:
			sΓ = *cfg.SGamma
		case cfg.Gamma != nil:
			sΓ = *cfg.Gamma / p.μ
		case cfg.E != nil:
			e := *cfg.E
			if e < 0 || e >= 1 {
				return PhysicalStateError{"eccentricity must be in [0, 1)"}
			}
			sΓ = p.sΛ * (1 - math.Sqrt(1-e*e))
		}
	default:
		return cfgErrorf("SGamma, Gamma and E are mutually exclusive")
	}
	if sΓ < 0 {
		return PhysicalStateError{"Gamma must be non-negative"}
	}

	var sQ float64
	switch countSet(cfg.SQ, cfg.Q, cfg.Inc) {
	case 0:
	case 1:
		switch {
		case cfg.SQ != nil:
			sQ = *cfg.SQ
		case cfg.Q != nil:
			sQ = *cfg.Q / p.μ
		case cfg.Inc != nil:
			inc := *cfg.Inc
			if inc < 0 || inc > math.Pi {
				return OrbitGeometryError{"inclination must be in [0, pi]"}
			}
			sQ = (p.sΛ - sΓ) * (1 - math.Cos(inc))
		}
	default:
		return cfgErrorf("SQ, Q and Inc are mutually exclusive")
	}
	if sQ < 0 {
		return PhysicalStateError{"Q must be non-negative"}
	}

	pomega := orZero(cfg.Pomega)
	omega := orZero(cfg.Omega)
	sinP, cosP := math.Sincos(pomega)
	sinO, cosO := math.Sincos(omega)
	p.sκ = math.Sqrt(2*sΓ) * cosP
	p.sη = -math.Sqrt(2*sΓ) * sinP
	p.sσ = math.Sqrt(2*sQ) * cosO
	p.sρ = -math.Sqrt(2*sQ) * sinO
	return nil
}

// G returns the gravitational constant of the particle.
func (p PoincareParticle) G() float64 { return p.g }

// Coordinates returns the coordinate system the canonical masses assume.
func (p PoincareParticle) Coordinates() CoordinateSystem { return p.coordinates }

// Mass returns the physical mass of the particle.
func (p PoincareParticle) Mass() float64 { return p.mass }

// CentralMass returns the physical mass of the central body.
func (p PoincareParticle) CentralMass() float64 { return p.mStar }

// Mu returns the canonical mass factor of the particle.
func (p PoincareParticle) Mu() float64 { return p.μ }

// M returns the canonical gravitational mass of the particle.
func (p PoincareParticle) M() float64 { return p.cM }

// Stored specific variables.
func (p PoincareParticle) SLambda() float64 { return p.sΛ }
func (p PoincareParticle) L() float64       { return p.l }
func (p PoincareParticle) SKappa() float64  { return p.sκ }
func (p PoincareParticle) SEta() float64    { return p.sη }
func (p PoincareParticle) SSigma() float64  { return p.sσ }
func (p PoincareParticle) SRho() float64    { return p.sρ }

func (p PoincareParticle) sGamma() float64 { return (p.sκ*p.sκ + p.sη*p.sη) / 2 }
func (p PoincareParticle) sQ() float64     { return (p.sσ*p.sσ + p.sρ*p.sρ) / 2 }

// Canonical variables, scaled by the canonical mass factor.
func (p PoincareParticle) Lambda() float64 { return p.μ * p.sΛ }
func (p PoincareParticle) Kappa() float64  { return math.Sqrt(p.μ) * p.sκ }
func (p PoincareParticle) Eta() float64    { return math.Sqrt(p.μ) * p.sη }
func (p PoincareParticle) Sigma() float64  { return math.Sqrt(p.μ) * p.sσ }
func (p PoincareParticle) Rho() float64    { return math.Sqrt(p.μ) * p.sρ }

// Gamma returns the eccentricity action conjugate to -pomega.
func (p PoincareParticle) Gamma() float64 { return p.μ * p.sGamma() }

// Q returns the inclination action conjugate to -Omega.
func (p PoincareParticle) Q() float64 { return p.μ * p.sQ() }

// A returns the semimajor axis.
func (p PoincareParticle) A() float64 { return p.sΛ * p.sΛ / (p.g * p.cM) }

// N returns the mean motion.
func (p PoincareParticle) N() float64 {
	gm := p.g * p.cM
	return gm * gm / (p.sΛ * p.sΛ * p.sΛ)
}

// E returns the eccentricity, or a PhysicalStateError when the actions no
// longer describe a bound ellipse.
func (p PoincareParticle) E() (float64, error) {
	gByL := p.sGamma() / p.sΛ
	if gByL > 1 {
		return 0, PhysicalStateError{"Gamma exceeds Lambda, eccentricity undefined"}
	}
	return math.Sqrt(1 - (1-gByL)*(1-gByL)), nil
}

// Inc returns the inclination, or a PhysicalStateError when the actions
// place cos(inc) outside [-1, 1].
func (p PoincareParticle) Inc() (float64, error) {
	denom := p.sΛ - p.sGamma()
	if denom <= 0 {
		return 0, PhysicalStateError{"Lambda - Gamma must be positive to define an inclination"}
	}
	cosi := 1 - p.sQ()/denom
	if cosi < -1-4*machineEps || cosi > 1+4*machineEps {
		return 0, PhysicalStateError{"cos(inc) outside [-1, 1]"}
	}
	// Clamp rounding noise at the prograde and retrograde boundaries.
	cosi = math.Max(-1, math.Min(1, cosi))
	return math.Acos(cosi), nil
}

// Pomega returns the longitude of pericenter.
func (p PoincareParticle) Pomega() float64 { return -math.Atan2(p.sη, p.sκ) }

// Omega returns the longitude of ascending node.
func (p PoincareParticle) Omega() float64 { return -math.Atan2(p.sρ, p.sσ) }

// X returns the canonical eccentricity variable (kappa - i eta)/sqrt(2).
func (p PoincareParticle) X() complex128 {
	return complex(p.Kappa(), -p.Eta()) / complex(math.Sqrt2, 0)
}

// Y returns the canonical inclination variable (sigma - i rho)/sqrt(2).
func (p PoincareParticle) Y() complex128 {
	return complex(p.Sigma(), -p.Rho()) / complex(math.Sqrt2, 0)
}

// XScaled returns X scaled by sqrt(2/Lambda); its magnitude approaches the
// eccentricity for nearly circular, nearly planar orbits.
func (p PoincareParticle) XScaled() complex128 {
	return p.X() * complex(math.Sqrt(2/p.Lambda()), 0)
}

// YScaled returns Y scaled by sqrt(1/(2 Lambda)); its magnitude approaches
// sin(inc/2) for nearly circular, nearly planar orbits.
func (p PoincareParticle) YScaled() complex128 {
	return p.Y() * complex(math.Sqrt(0.5/p.Lambda()), 0)
}

// SetSLambda replaces the specific Lambda action.
func (p *PoincareParticle) SetSLambda(v float64) { p.sΛ = v }

// SetLambda replaces the canonical Lambda action.
func (p *PoincareParticle) SetLambda(v float64) { p.sΛ = v / p.μ }

// SetL replaces the mean longitude.
func (p *PoincareParticle) SetL(v float64) { p.l = v }

// SetSKappa and companions replace individual stored variables.
func (p *PoincareParticle) SetSKappa(v float64) { p.sκ = v }
func (p *PoincareParticle) SetSEta(v float64)   { p.sη = v }
func (p *PoincareParticle) SetSSigma(v float64) { p.sσ = v }
func (p *PoincareParticle) SetSRho(v float64)   { p.sρ = v }

// SetKappa and companions replace individual canonical variables.
func (p *PoincareParticle) SetKappa(v float64) { p.sκ = v / math.Sqrt(p.μ) }
func (p *PoincareParticle) SetEta(v float64)   { p.sη = v / math.Sqrt(p.μ) }
func (p *PoincareParticle) SetSigma(v float64) { p.sσ = v / math.Sqrt(p.μ) }
func (p *PoincareParticle) SetRho(v float64)   { p.sρ = v / math.Sqrt(p.μ) }

// SetGamma rescales kappa and eta to the given eccentricity action while
// holding the pericenter longitude fixed.
func (p *PoincareParticle) SetGamma(v float64) error {
	return p.SetSGamma(v / p.μ)
}

// SetSGamma rescales kappa and eta to the given specific action while
// holding the pericenter longitude fixed.
func (p *PoincareParticle) SetSGamma(v float64) error {
	if v < 0 {
		return PhysicalStateError{"Gamma must be non-negative"}
	}
	cur := p.sGamma()
	if cur == 0 {
		p.sκ = math.Sqrt(2 * v)
		p.sη = 0
		return nil
	}
	scale := math.Sqrt(v / cur)
	p.sκ *= scale
	p.sη *= scale
	return nil
}

// SetQ rescales sigma and rho to the given inclination action while holding
// the node longitude fixed.
func (p *PoincareParticle) SetQ(v float64) error {
	return p.SetSQ(v / p.μ)
}

// SetSQ rescales sigma and rho to the given specific action while holding
// the node longitude fixed.
func (p *PoincareParticle) SetSQ(v float64) error {
	if v < 0 {
		return PhysicalStateError{"Q must be non-negative"}
	}
	cur := p.sQ()
	if cur == 0 {
		p.sσ = math.Sqrt(2 * v)
		p.sρ = 0
		return nil
	}
	scale := math.Sqrt(v / cur)
	p.sσ *= scale
	p.sρ *= scale
	return nil
}

// SetMass replaces the physical mass. In canonical heliocentric coordinates
// the physical mass is fixed by the canonical masses, so this is only
// permitted in democratic heliocentric coordinates.
func (p *PoincareParticle) SetMass(m float64) error {
	if p.coordinates != DemocraticHeliocentric {
		return cfgErrorf("physical mass is immutable in %s coordinates", p.coordinates)
	}
	if m <= 0 {
		return cfgErrorf("mass must be positive")
	}
	p.mass = m
	p.μ = m
	return nil
}
