package celmech

import (
	"math"
	"math/cmplx"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/Ethadhani/celmech/symexpr"
)

func TestReImComponents(t *testing.T) {
	xv, yv := 0.37, -0.61
	env := map[string]float64{"x": xv, "y": yv}
	for _, k := range []int{-3, -1, 0, 1, 2, 4} {
		re, im := reImComponents(symexpr.Symbol("x"), symexpr.Symbol("y"), k)
		gotRe, err := re.Eval(env)
		if err != nil {
			t.Fatal(err)
		}
		gotIm, err := im.Eval(env)
		if err != nil {
			t.Fatal(err)
		}
		sgn := 1.0
		if k < 0 {
			sgn = -1
		}
		want := cmplx.Pow(complex(xv, sgn*yv), complex(float64(abs(k)), 0))
		if !scalar.EqualWithinAbs(gotRe, real(want), 1e-13) || !scalar.EqualWithinAbs(gotIm, imag(want), 1e-13) {
			t.Errorf("k=%d: got (%g, %g), want (%g, %g)", k, gotRe, gotIm, real(want), imag(want))
		}
	}
}

func TestKeplerianHamiltonian(t *testing.T) {
	sys := twoPlanetSystem(t)
	ph := NewPoincareHamiltonian(sys, LaplaceSource{})
	ph.Finalize()
	got, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}
	want := 0.0
	for i := 1; i < sys.N(); i++ {
		p, _ := sys.Particle(i)
		want -= sys.G() * p.M() * p.Mu() / (2 * p.A())
	}
	if !scalar.EqualWithinAbs(got, want, 1e-12*math.Abs(want)) {
		t.Errorf("H = %g, want %g", got, want)
	}

	// The Keplerian flow is each planet's mean motion on its mean
	// longitude and nothing else.
	flow, err := ph.Flow()
	if err != nil {
		t.Fatal(err)
	}
	n := sys.N() - 1
	for i := 1; i <= n; i++ {
		p, _ := sys.Particle(i)
		if !scalar.EqualWithinAbs(flow[i-1], p.N(), 1e-12) {
			t.Errorf("dlambda%d/dt = %g, want mean motion %g", i, flow[i-1], p.N())
		}
	}
	for j := n; j < 6*n; j++ {
		if flow[j] != 0 {
			t.Errorf("flow[%d] = %g, want 0", j, flow[j])
		}
	}
}

func TestFinalizeRequired(t *testing.T) {
	ph := NewPoincareHamiltonian(twoPlanetSystem(t), LaplaceSource{})
	if _, err := ph.Value(); err == nil {
		t.Error("expected error evaluating before Finalize")
	}
	if _, err := ph.Flow(); err == nil {
		t.Error("expected error for flow before Finalize")
	}
	if _, _, err := ph.LaplaceLagrangeMatrices(); err == nil {
		t.Error("expected error for secular matrices before Finalize")
	}
}

func TestMonomialTermValue(t *testing.T) {
	sys := twoPlanetSystem(t)
	ph := NewPoincareHamiltonian(sys, LaplaceSource{})
	ph.Finalize()
	kepler, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}

	k := [6]int{3, -2, -1, 0, 0, 0}
	if err := ph.AddMonomialTerm(k, [4]int{}, 1, 2, 0); err != nil {
		t.Fatal(err)
	}
	ph.Finalize()
	got, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}

	p1, _ := sys.Particle(1)
	p2, _ := sys.Particle(2)
	c, err := LaplaceSource{}.Coefficient(k, [4]int{}, p1.A()/p2.A())
	if err != nil {
		t.Fatal(err)
	}
	θ := 3*p2.L() - 2*p1.L()
	want := -sys.G() * p1.Mass() * p2.Mass() / p2.A() * c *
		(p1.Kappa()*math.Cos(θ) - p1.Eta()*math.Sin(θ)) / math.Sqrt(p1.Lambda())
	if !scalar.EqualWithinAbs(got-kepler, want, 1e-14) {
		t.Errorf("monomial term value %g, want %g", got-kepler, want)
	}
}

func TestDuplicateMonomialTermIsNoOp(t *testing.T) {
	sys := twoPlanetSystem(t)
	ph := NewPoincareHamiltonian(sys, LaplaceSource{})
	k := [6]int{2, -1, -1, 0, 0, 0}
	if err := ph.AddMonomialTerm(k, [4]int{}, 1, 2, 0); err != nil {
		t.Fatal(err)
	}
	ph.Finalize()
	before, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}
	if err := ph.AddMonomialTerm(k, [4]int{}, 1, 2, 0); err != nil {
		t.Fatal(err)
	}
	if ph.NumTerms() != 1 {
		t.Errorf("NumTerms = %d after duplicate add, want 1", ph.NumTerms())
	}
	ph.Finalize()
	after, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("duplicate term changed H: %g != %g", before, after)
	}
}

func TestEccentricityMMRTermEnumeration(t *testing.T) {
	sys := twoPlanetSystem(t)
	ph := NewPoincareHamiltonian(sys, LaplaceSource{})
	if err := ph.AddEccentricityMMRTerms(2, 1, 2, 1, 2, 0); err != nil {
		t.Fatal(err)
	}
	want := map[termKey]struct{}{
		{1, 2, [6]int{2, -1, -1, 0, 0, 0}, [4]int{}}: {},
		{1, 2, [6]int{2, -1, 0, -1, 0, 0}, [4]int{}}: {},
		{1, 2, [6]int{4, -2, -2, 0, 0, 0}, [4]int{}}: {},
		{1, 2, [6]int{4, -2, -1, -1, 0, 0}, [4]int{}}: {},
		{1, 2, [6]int{4, -2, 0, -2, 0, 0}, [4]int{}}: {},
	}
	if len(ph.terms) != len(want) {
		t.Fatalf("got %d terms, want %d", len(ph.terms), len(want))
	}
	for key := range want {
		if _, ok := ph.terms[key]; !ok {
			t.Errorf("missing term %+v", key)
		}
	}
}

func TestTwoToOneResonanceScenario(t *testing.T) {
	st := ExternalState{
		G: 1, CentralMass: 1,
		Bodies: []BodyElements{
			{Mass: 1e-5, A: 1, E: 0.01, L: 0.4, Pomega: 0.9},
			{Mass: 1e-5, A: 1.587, E: 0.01, L: 1.7, Pomega: -1.3},
		},
	}
	sys, err := PoincareFromState(st, CanonicalHeliocentric)
	if err != nil {
		t.Fatal(err)
	}
	ph := NewPoincareHamiltonian(sys, LaplaceSource{})
	ph.Finalize()
	kepler, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}

	if err := ph.AddEccentricityMMRTerms(2, 1, 2, 1, 2, 0); err != nil {
		t.Fatal(err)
	}
	ph.Finalize()
	got, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}
	if ph.NumTerms() != 5 {
		t.Fatalf("NumTerms = %d, want 5", ph.NumTerms())
	}

	// Independent disturbing function sum over the expected harmonics.
	p1, _ := sys.Particle(1)
	p2, _ := sys.Particle(2)
	alpha := p1.A() / p2.A()
	pre := -sys.G() * p1.Mass() * p2.Mass() / p2.A()
	z1 := complex(p1.Kappa(), p1.Eta()) / complex(math.Sqrt(p1.Lambda()), 0)
	z2 := complex(p2.Kappa(), p2.Eta()) / complex(math.Sqrt(p2.Lambda()), 0)
	var want float64
	for _, k := range [][6]int{
		{2, -1, -1, 0, 0, 0},
		{2, -1, 0, -1, 0, 0},
		{4, -2, -2, 0, 0, 0},
		{4, -2, -1, -1, 0, 0},
		{4, -2, 0, -2, 0, 0},
	} {
		c, err := LaplaceSource{}.Coefficient(k, [4]int{}, alpha)
		if err != nil {
			t.Fatal(err)
		}
		prod := complex(c, 0) *
			cmplx.Pow(z1, complex(float64(-k[2]), 0)) *
			cmplx.Pow(z2, complex(float64(-k[3]), 0))
		θ := float64(k[0])*p2.L() + float64(k[1])*p1.L()
		want += pre * (real(prod)*math.Cos(θ) - imag(prod)*math.Sin(θ))
	}
	if !scalar.EqualWithinRel(got, kepler+want, 1e-12) {
		t.Errorf("H = %g, want %g", got, kepler+want)
	}
}

func TestMMRArgumentValidation(t *testing.T) {
	ph := NewPoincareHamiltonian(twoPlanetSystem(t), LaplaceSource{})
	if err := ph.AddEccentricityMMRTerms(2, 1, -1, 1, 2, 0); err == nil {
		t.Error("expected error for negative max order")
	}
	if err := ph.AddAllMMRAndSecularTerms(2, 0, 2, 1, 2, 0); err == nil {
		t.Error("expected error for q=0")
	}
	if err := ph.AddMonomialTerm([6]int{2, -1, -1, 0, 0, 0}, [4]int{}, 2, 1, 0); err == nil {
		t.Error("expected error for indexIn >= indexOut")
	}
}

func TestSecularMatrixSymmetry(t *testing.T) {
	sys := twoPlanetSystem(t)
	ph := NewPoincareHamiltonian(sys, LaplaceSource{})
	// Secular terms only: zero wavevector on lambda, second order in e and inc.
	for _, k := range [][6]int{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 1, -1, 0, 0},
		{0, 0, 0, 0, 1, -1},
	} {
		if err := ph.AddCosTermToMaxOrder(k, 2, 1, 2, 0); err != nil {
			t.Fatal(err)
		}
	}
	ph.Finalize()
	ecc, inc, err := ph.LaplaceLagrangeMatrices()
	if err != nil {
		t.Fatal(err)
	}
	n := sys.N() - 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !scalar.EqualWithinAbs(ecc.At(i, j), ecc.At(j, i), 1e-12) {
				t.Errorf("ecc matrix not symmetric: %g != %g", ecc.At(i, j), ecc.At(j, i))
			}
			if !scalar.EqualWithinAbs(inc.At(i, j), inc.At(j, i), 1e-12) {
				t.Errorf("inc matrix not symmetric: %g != %g", inc.At(i, j), inc.At(j, i))
			}
		}
	}
	if ecc.At(0, 0) == 0 || inc.At(0, 0) == 0 {
		t.Error("secular matrices should have nonzero diagonals")
	}
}

func TestJ2AndGRTermsCircular(t *testing.T) {
	// For circular coplanar orbits both perturbations have closed values.
	st := ExternalState{
		G: 1, CentralMass: 1,
		Bodies: []BodyElements{{Mass: 1e-5, A: 1}, {Mass: 2e-5, A: 2}},
	}
	sys, err := PoincareFromState(st, CanonicalHeliocentric)
	if err != nil {
		t.Fatal(err)
	}
	ph := NewPoincareHamiltonian(sys, LaplaceSource{})
	ph.Finalize()
	kepler, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}

	const j2, radius = 1e-4, 0.005
	if err := ph.AddOrbitAverageJ2Terms(j2, radius, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	ph.Finalize()
	withJ2, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}
	want := 0.0
	for i := 1; i < sys.N(); i++ {
		p, _ := sys.Particle(i)
		want -= 0.5 * sys.G() * j2 * radius * radius * p.M() * p.Mu() / math.Pow(p.A(), 3)
	}
	if !scalar.EqualWithinAbs(withJ2-kepler, want, 1e-15) {
		t.Errorf("J2 contribution %g, want %g", withJ2-kepler, want)
	}

	const c = 1e4
	if err := ph.AddGRPotentialTerms(c, 0, nil); err != nil {
		t.Fatal(err)
	}
	ph.Finalize()
	withGR, err := ph.Value()
	if err != nil {
		t.Fatal(err)
	}
	want = 0.0
	for i := 1; i < sys.N(); i++ {
		p, _ := sys.Particle(i)
		want -= 3 * p.M() * p.M() * p.Mu() * sys.G() * sys.G() / (c * c * p.A() * p.A())
	}
	if !scalar.EqualWithinAbs(withGR-withJ2, want, 1e-15) {
		t.Errorf("GR contribution %g, want %g", withGR-withJ2, want)
	}

	if err := ph.AddGRPotentialTerms(-1, 0, nil); err == nil {
		t.Error("expected error for negative speed of light")
	}
}
