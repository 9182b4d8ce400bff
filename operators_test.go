package celmech

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func nearResonancePair(t *testing.T, periodRatio float64) *Poincare {
	t.Helper()
	st := ExternalState{
		G: 1, CentralMass: 1,
		Bodies: []BodyElements{
			{Mass: 1e-5, A: 1, E: 0.04, Inc: 0.01, L: 0.7, Pomega: 0.3, Omega: 1.2},
			{Mass: 2e-5, A: math.Pow(periodRatio, 2.0/3), E: 0.06, Inc: 0.02, L: -1.1, Pomega: 2.0, Omega: -0.4},
		},
	}
	sys, err := PoincareFromState(st, CanonicalHeliocentric)
	if err != nil {
		t.Fatalf("PoincareFromState: %v", err)
	}
	return sys
}

func TestKeplerianOperatorAdvancesLongitudes(t *testing.T) {
	sys := twoPlanetSystem(t)
	dt := 0.25
	want := make([]float64, 0, 2)
	for _, p := range sys.Planets() {
		want = append(want, p.L()+dt*p.N())
	}
	op := NewKeplerianEvolutionOperator(sys, dt)
	if err := op.Apply(); err != nil {
		t.Fatal(err)
	}
	for i, p := range sys.Planets() {
		if !scalar.EqualWithinAbs(p.L(), want[i], 1e-14) {
			t.Errorf("planet %d: l = %g, want %g", i+1, p.L(), want[i])
		}
	}
	op.SetDt(-dt)
	if err := op.Apply(); err != nil {
		t.Fatal(err)
	}
	ref := twoPlanetSystem(t)
	for i, p := range sys.Planets() {
		if !scalar.EqualWithinAbs(p.L(), ref.Planets()[i].L(), 1e-13) {
			t.Errorf("planet %d: backward step did not restore l", i+1)
		}
	}
}

func TestKeplerianOperatorVectorAgreesWithApply(t *testing.T) {
	sys := twoPlanetSystem(t)
	op := NewKeplerianEvolutionOperator(sys, 0.8)
	vec, err := op.ApplyToVector(sys.StateVector())
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Apply(); err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(vec, sys.StateVector(), 1e-14) {
		t.Errorf("vector map disagrees with in-place map:\n%v\n%v", vec, sys.StateVector())
	}
	if _, err := op.ApplyToVector(make([]float64, 5)); err == nil {
		t.Error("expected error for a wrong-sized vector")
	}
}

func secularActionSums(sys *Poincare) (gamma, q float64) {
	for _, p := range sys.Planets() {
		gamma += p.Gamma()
		q += p.Q()
	}
	return gamma, q
}

func TestLinearSecularOperatorConservesActions(t *testing.T) {
	sys := twoPlanetSystem(t)
	gamma0, q0 := secularActionSums(sys)
	op, err := NewLinearSecularEvolutionOperator(sys, 2e4, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := op.Apply(); err != nil {
			t.Fatal(err)
		}
	}
	gamma1, q1 := secularActionSums(sys)
	if !scalar.EqualWithinRel(gamma1, gamma0, 1e-12) {
		t.Errorf("sum of Gammas drifted: %g -> %g", gamma0, gamma1)
	}
	if !scalar.EqualWithinRel(q1, q0, 1e-12) {
		t.Errorf("sum of Qs drifted: %g -> %g", q0, q1)
	}
}

func TestLinearSecularOperatorComposition(t *testing.T) {
	sys := twoPlanetSystem(t)
	dt := 1.5e4
	op, err := NewLinearSecularEvolutionOperator(sys, dt, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	v := sys.StateVector()
	twice, err := op.ApplyToVector(v)
	if err != nil {
		t.Fatal(err)
	}
	twice, err = op.ApplyToVector(twice)
	if err != nil {
		t.Fatal(err)
	}
	op.SetDt(2 * dt)
	once, err := op.ApplyToVector(v)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(twice, once, 1e-12) {
		t.Errorf("two half steps disagree with one full step:\n%v\n%v", twice, once)
	}
}

func TestLinearSecularOperatorApplyMatchesVector(t *testing.T) {
	sys := twoPlanetSystem(t)
	op, err := NewLinearSecularEvolutionOperator(sys, 3e4, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := op.ApplyToVector(sys.StateVector())
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Apply(); err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(vec, sys.StateVector(), 1e-12) {
		t.Errorf("vector map disagrees with in-place map")
	}
}

func resonanceInvariants(sys *Poincare, lamVec [2]float64, inclination bool) (c1, c2 float64) {
	pIn := sys.Planets()[0]
	pOut := sys.Planets()[1]
	c1 = lamVec[0]*pIn.Lambda() + lamVec[1]*pOut.Lambda()
	c2 = pIn.Lambda() + pOut.Lambda()
	if inclination {
		c2 -= pIn.Q() + pOut.Q()
	} else {
		c2 -= pIn.Gamma() + pOut.Gamma()
	}
	return c1, c2
}

func TestFirstOrderEccentricityResonanceOperator(t *testing.T) {
	sys := nearResonancePair(t, 2.02)
	j := 2
	lamVec := [2]float64{float64(-j), float64(1 - j)}
	c1, c2 := resonanceInvariants(sys, lamVec, false)
	dt := 50.0
	op, err := NewFirstOrderEccentricityResonanceOperator(sys, dt, j, 1, 2, nil, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	before := sys.StateVector()
	for i := 0; i < 3; i++ {
		if err := op.Apply(); err != nil {
			t.Fatal(err)
		}
	}
	c1a, c2a := resonanceInvariants(sys, lamVec, false)
	if !scalar.EqualWithinRel(c1a, c1, 1e-11) {
		t.Errorf("C1 drifted: %g -> %g", c1, c1a)
	}
	if !scalar.EqualWithinRel(c2a, c2, 1e-11) {
		t.Errorf("C2 drifted: %g -> %g", c2, c2a)
	}

	// The frozen-angle map is reversible.
	op.SetDt(-dt)
	for i := 0; i < 3; i++ {
		if err := op.Apply(); err != nil {
			t.Fatal(err)
		}
	}
	if !floats.EqualApprox(before, sys.StateVector(), 1e-9) {
		t.Errorf("backward steps did not restore the state")
	}
}

func TestFirstOrderResonanceOperatorVectorAgreesWithApply(t *testing.T) {
	sys := nearResonancePair(t, 2.02)
	op, err := NewFirstOrderEccentricityResonanceOperator(sys, 40, 2, 1, 2, nil, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := op.ApplyToVector(sys.StateVector())
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Apply(); err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(vec, sys.StateVector(), 1e-12) {
		t.Errorf("vector map disagrees with in-place map:\n%v\n%v", vec, sys.StateVector())
	}
}

func TestSecondOrderInclinationResonanceOperator(t *testing.T) {
	sys := nearResonancePair(t, 3.01/1)
	j := 3
	lamVec := [2]float64{-float64(j) / 2, float64(2-j) / 2}
	c1, c2 := resonanceInvariants(sys, lamVec, true)
	op, err := NewSecondOrderInclinationResonanceOperator(sys, 75, j, 1, 2, nil, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := op.ApplyToVector(sys.StateVector())
	if err != nil {
		t.Fatal(err)
	}
	if err := op.Apply(); err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(vec, sys.StateVector(), 1e-12) {
		t.Errorf("vector map disagrees with in-place map")
	}
	c1a, c2a := resonanceInvariants(sys, lamVec, true)
	if !scalar.EqualWithinRel(c1a, c1, 1e-11) {
		t.Errorf("C1 drifted: %g -> %g", c1, c1a)
	}
	if !scalar.EqualWithinRel(c2a, c2, 1e-11) {
		t.Errorf("C2 drifted: %g -> %g", c2, c2a)
	}
}

func TestResonantChainReferenceLambdas(t *testing.T) {
	// A pair exactly at the 2:1 period ratio reproduces its own Lambdas.
	sys := nearResonancePair(t, 2)
	lam0, err := ResonantChainReferenceLambdas(sys, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range sys.Planets() {
		if !scalar.EqualWithinRel(lam0[i+1], p.Lambda(), 1e-12) {
			t.Errorf("planet %d: Lambda0 = %g, want %g", i+1, lam0[i+1], p.Lambda())
		}
	}
	if _, err := ResonantChainReferenceLambdas(sys, []float64{1, 2}); err == nil {
		t.Error("expected error for a wrong-sized ratio list")
	}
	if _, err := ResonantChainReferenceLambdas(sys, []float64{-1}); err == nil {
		t.Error("expected error for a non-positive ratio parameter")
	}
}

func TestResonanceOperatorArgumentChecks(t *testing.T) {
	sys := nearResonancePair(t, 2.02)
	if _, err := NewFirstOrderEccentricityResonanceOperator(sys, 10, 2, 2, 1, nil, LaplaceSource{}); err == nil {
		t.Error("expected error for reversed pair indices")
	}
	if _, err := NewFirstOrderEccentricityResonanceOperator(sys, 10, 2, 1, 2, []float64{1}, LaplaceSource{}); err == nil {
		t.Error("expected error for a wrong-sized Lambda0 table")
	}
}
