package celmech

import (
	"math"
	"testing"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestSimulationTimestepSelection(t *testing.T) {
	sys := twoPlanetSystem(t)
	sim, err := NewSecularSimulation(sys, SimulationConfig{DtFraction: 0.01, Logger: kitlog.NewNopLogger()}, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinRel(sim.Dt(), 0.01*sim.Tsec(), 1e-14) {
		t.Errorf("dt = %g, want %g", sim.Dt(), 0.01*sim.Tsec())
	}
	if _, err := NewSecularSimulation(sys, SimulationConfig{}, LaplaceSource{}); err == nil {
		t.Error("expected error when neither Dt nor DtFraction is set")
	}
	if _, err := NewSecularSimulation(sys, SimulationConfig{Dt: 1, DtFraction: 0.1}, LaplaceSource{}); err == nil {
		t.Error("expected error when both Dt and DtFraction are set")
	}
}

func TestSimulationMatchesSecularSolution(t *testing.T) {
	// With no extra operators the splitting reduces to the exact
	// Laplace-Lagrange flow, whatever the step size.
	sys := twoPlanetSystem(t)
	ll, err := NewLaplaceLagrangeSystem(twoPlanetSystem(t), LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	tsec, err := ll.Tsec()
	if err != nil {
		t.Fatal(err)
	}
	target := 0.37 * tsec
	sim, err := NewSecularSimulation(sys, SimulationConfig{DtFraction: 0.05, Logger: kitlog.NewNopLogger()}, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Integrate(target); err != nil {
		t.Fatal(err)
	}
	sol, err := ll.Solution([]float64{sim.T()}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range sim.State().Planets() {
		if !scalar.EqualWithinAbs(p.Eta(), sol.Eta[0][i], 1e-12) ||
			!scalar.EqualWithinAbs(p.Kappa(), sol.Kappa[0][i], 1e-12) ||
			!scalar.EqualWithinAbs(p.Rho(), sol.Rho[0][i], 1e-12) ||
			!scalar.EqualWithinAbs(p.Sigma(), sol.Sigma[0][i], 1e-12) {
			t.Errorf("planet %d diverged from the mode solution", i+1)
		}
	}
}

func TestSimulationConservesDiagnostics(t *testing.T) {
	sys := twoPlanetSystem(t)
	sim, err := NewSecularSimulation(sys, SimulationConfig{DtFraction: 0.02, Logger: kitlog.NewNopLogger()}, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	amd0 := sim.AMD()
	e0, err := sim.LinearEnergy()
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Integrate(2 * sim.Tsec()); err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinRel(sim.AMD(), amd0, 1e-11) {
		t.Errorf("AMD drifted: %g -> %g", amd0, sim.AMD())
	}
	e1, err := sim.LinearEnergy()
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinRel(e1, e0, 1e-10) {
		t.Errorf("linear energy drifted: %g -> %g", e0, e1)
	}
	if err := sim.Integrate(sim.T() - sim.Dt()); err == nil {
		t.Error("expected error for backward integration")
	}
}

func TestSimulationWithResonanceOperator(t *testing.T) {
	sys := nearResonancePair(t, 2.02)
	op, err := NewFirstOrderEccentricityResonanceOperator(sys, 1, 2, 1, 2, nil, LaplaceSource{})
	if err != nil {
		t.Fatal(err)
	}
	sim, err := NewSecularSimulation(sys, SimulationConfig{DtFraction: 0.01, Logger: kitlog.NewNopLogger()}, LaplaceSource{}, op)
	if err != nil {
		t.Fatal(err)
	}
	if op.Dt() != sim.Dt() {
		t.Fatalf("operator step not synchronized: %g != %g", op.Dt(), sim.Dt())
	}
	before := sim.State().Copy()
	if err := sim.Integrate(0.1 * sim.Tsec()); err != nil {
		t.Fatal(err)
	}
	if sim.T() < 0.1*sim.Tsec() {
		t.Errorf("integration stopped short: t=%g", sim.T())
	}
	moved := false
	for i, p := range sim.State().Planets() {
		if math.Abs(p.Eta()-before.Planets()[i].Eta()) > 0 {
			moved = true
		}
	}
	if !moved {
		t.Error("state did not evolve")
	}
}
