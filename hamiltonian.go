package celmech

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/mat"

	"github.com/Ethadhani/celmech/symexpr"
)

// Symbol names of the canonical variables and numerical parameters of
// planet i. Parameters are frozen at Hamiltonian construction.
func lambdaSym(i int) string  { return fmt.Sprintf("lambda%d", i) }
func bigLamSym(i int) string  { return fmt.Sprintf("Lambda%d", i) }
func kappaSym(i int) string   { return fmt.Sprintf("kappa%d", i) }
func etaSym(i int) string     { return fmt.Sprintf("eta%d", i) }
func sigmaSym(i int) string   { return fmt.Sprintf("sigma%d", i) }
func rhoSym(i int) string     { return fmt.Sprintf("rho%d", i) }
func massSym(i int) string    { return fmt.Sprintf("m%d", i) }
func muSym(i int) string      { return fmt.Sprintf("mu%d", i) }
func bigMSym(i int) string    { return fmt.Sprintf("M%d", i) }
func lambda0Sym(i int) string { return fmt.Sprintf("Lambda0_%d", i) }
func a0Sym(i int) string      { return fmt.Sprintf("a0_%d", i) }
func alphaSym(i, j int) string {
	return fmt.Sprintf("alpha_%d_%d", i, j)
}
func coeffSym(k [6]int, nu [4]int, l1, l2, indexIn, indexOut int) string {
	return fmt.Sprintf("C_%d_%d_%d_%d_%d_%d__%d_%d_%d_%d__%d_%d__%d_%d",
		k[0], k[1], k[2], k[3], k[4], k[5], nu[0], nu[1], nu[2], nu[3], l1, l2, indexIn, indexOut)
}

type termKey struct {
	indexIn, indexOut int
	k                 [6]int
	nu                [4]int
}

// PoincareHamiltonian assembles a symbolic Hamiltonian for a Poincare
// system term by term. Numerical parameters, among them the reference
// actions Lambda0 and semimajor axis ratios alpha, are frozen from the
// system state at construction; the canonical variables remain symbolic.
//
// Building is explicit: terms accumulate through the Add methods and the
// equations of motion only exist after Finalize.
type PoincareHamiltonian struct {
	state  *Poincare
	coeffs DFCoefficientSource
	logger kitlog.Logger

	H      symexpr.Expr
	params map[string]float64
	terms  map[termKey]struct{}

	derivs    map[string]symexpr.Expr
	finalized bool
}

// NewPoincareHamiltonian seeds the Hamiltonian with the Keplerian term of
// every planet and freezes the reference parameters from the current state.
func NewPoincareHamiltonian(state *Poincare, coeffs DFCoefficientSource) *PoincareHamiltonian {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	ph := &PoincareHamiltonian{
		state:  state,
		coeffs: coeffs,
		logger: kitlog.With(logger, "hamiltonian", "poincare"),
		params: map[string]float64{"G": state.G()},
		terms:  make(map[termKey]struct{}),
	}
	terms := make([]symexpr.Expr, 0, state.N()-1)
	for i := 1; i < state.N(); i++ {
		p, _ := state.Particle(i)
		ph.params[muSym(i)] = p.Mu()
		ph.params[massSym(i)] = p.Mass()
		ph.params[bigMSym(i)] = p.M()
		ph.params[lambda0Sym(i)] = p.Lambda()
		ph.params[a0Sym(i)] = p.A()
		for j := i + 1; j < state.N(); j++ {
			q, _ := state.Particle(j)
			ph.params[alphaSym(i, j)] = p.A() / q.A()
		}
		terms = append(terms, keplerTerm(i))
	}
	ph.H = symexpr.Sum(terms...)
	return ph
}

// keplerTerm is -G^2 M^2 mu^3 / (2 Lambda^2) for planet i.
func keplerTerm(i int) symexpr.Expr {
	return symexpr.Mul(
		symexpr.Number(-0.5),
		symexpr.Pow(symexpr.Symbol("G"), 2),
		symexpr.Pow(symexpr.Symbol(bigMSym(i)), 2),
		symexpr.Pow(symexpr.Symbol(muSym(i)), 3),
		symexpr.Pow(symexpr.Symbol(bigLamSym(i)), -2),
	)
}

// State returns the system the Hamiltonian was built around.
func (ph *PoincareHamiltonian) State() *Poincare { return ph.state }

// NumTerms returns the number of distinct disturbing function terms added.
func (ph *PoincareHamiltonian) NumTerms() int { return len(ph.terms) }

// Expr returns the accumulated symbolic Hamiltonian.
func (ph *PoincareHamiltonian) Expr() symexpr.Expr { return ph.H }

// Params returns a copy of the frozen numeric parameters, keyed by symbol
// name. This is the only channel through which numbers reach the symbolic
// expressions.
func (ph *PoincareHamiltonian) Params() map[string]float64 {
	out := make(map[string]float64, len(ph.params))
	for k, v := range ph.params {
		out[k] = v
	}
	return out
}

// reImComponents returns the real and imaginary parts of
// (x + sgn(k) i y)^|k| as symbolic expressions.
func reImComponents(x, y symexpr.Expr, k int) (symexpr.Expr, symexpr.Expr) {
	if k == 0 {
		return symexpr.Number(1), symexpr.Number(0)
	}
	if k < 0 {
		y = symexpr.Neg(y)
		k = -k
	}
	re, im := x, y
	for i := 1; i < k; i++ {
		nre := symexpr.Sum(symexpr.Mul(re, x), symexpr.Neg(symexpr.Mul(im, y)))
		nim := symexpr.Sum(symexpr.Mul(re, y), symexpr.Mul(im, x))
		re, im = nre, nim
	}
	return re, im
}

// cMul multiplies two symbolic complex numbers given as (re, im) pairs.
func cMul(aRe, aIm, bRe, bIm symexpr.Expr) (symexpr.Expr, symexpr.Expr) {
	re := symexpr.Sum(symexpr.Mul(aRe, bRe), symexpr.Neg(symexpr.Mul(aIm, bIm)))
	im := symexpr.Sum(symexpr.Mul(aRe, bIm), symexpr.Mul(aIm, bRe))
	return re, im
}

// AddMonomialTerm adds one disturbing function term for the planet pair
// (indexIn, indexOut). The wavevector k fixes the cosine argument, nu the
// extra powers of the eccentricity and inclination actions, and lMax the
// degree of the coefficient's expansion in the fractional Lambda offsets.
// Adding a term twice leaves the Hamiltonian unchanged, with a warning.
func (ph *PoincareHamiltonian) AddMonomialTerm(k [6]int, nu [4]int, indexIn, indexOut, lMax int) error {
	if _, err := ph.state.Particle(indexIn); err != nil {
		return err
	}
	if _, err := ph.state.Particle(indexOut); err != nil {
		return err
	}
	if indexIn >= indexOut {
		return cfgErrorf("indexIn=%d must precede indexOut=%d", indexIn, indexOut)
	}
	key := termKey{indexIn, indexOut, k, nu}
	if _, dup := ph.terms[key]; dup {
		ph.logger.Log("warning", "monomial term already included, no new term added", "k", fmt.Sprint(k), "nu", fmt.Sprint(nu))
		return nil
	}

	alphaVal := ph.params[alphaSym(indexIn, indexOut)]
	expansion, err := ph.coeffs.DeltaExpansion(k, nu, lMax, alphaVal)
	if err != nil {
		return err
	}

	lam0In := symexpr.Symbol(lambda0Sym(indexIn))
	lam0Out := symexpr.Symbol(lambda0Sym(indexOut))
	deltaIn := symexpr.Mul(
		symexpr.Sum(symexpr.Symbol(bigLamSym(indexIn)), symexpr.Neg(lam0In)),
		symexpr.Pow(lam0In, -1))
	deltaOut := symexpr.Mul(
		symexpr.Sum(symexpr.Symbol(bigLamSym(indexOut)), symexpr.Neg(lam0Out)),
		symexpr.Pow(lam0Out, -1))

	cTerms := make([]symexpr.Expr, 0, len(expansion))
	for l, cVal := range expansion {
		cName := coeffSym(k, nu, l[0], l[1], indexIn, indexOut)
		ph.params[cName] = cVal
		cTerms = append(cTerms, symexpr.Mul(
			symexpr.Symbol(cName),
			symexpr.Pow(deltaIn, float64(l[0])),
			symexpr.Pow(deltaOut, float64(l[1]))))
	}
	cTot := symexpr.Sum(cTerms...)

	rtLIn := symexpr.Pow(lam0In, -0.5)
	rtLOut := symexpr.Pow(lam0Out, -0.5)
	xin, yin := reImComponents(
		symexpr.Mul(symexpr.Symbol(kappaSym(indexIn)), rtLIn),
		symexpr.Neg(symexpr.Mul(symexpr.Symbol(etaSym(indexIn)), rtLIn)), k[2])
	xout, yout := reImComponents(
		symexpr.Mul(symexpr.Symbol(kappaSym(indexOut)), rtLOut),
		symexpr.Neg(symexpr.Mul(symexpr.Symbol(etaSym(indexOut)), rtLOut)), k[3])
	uin, vin := reImComponents(
		symexpr.Mul(symexpr.Number(0.5), symexpr.Symbol(sigmaSym(indexIn)), rtLIn),
		symexpr.Neg(symexpr.Mul(symexpr.Number(0.5), symexpr.Symbol(rhoSym(indexIn)), rtLIn)), k[4])
	uout, vout := reImComponents(
		symexpr.Mul(symexpr.Number(0.5), symexpr.Symbol(sigmaSym(indexOut)), rtLOut),
		symexpr.Neg(symexpr.Mul(symexpr.Number(0.5), symexpr.Symbol(rhoSym(indexOut)), rtLOut)), k[5])

	re, im := cMul(xin, yin, xout, yout)
	re, im = cMul(re, im, uin, vin)
	re, im = cMul(re, im, uout, vout)

	gammaIn := halfSumSquares(kappaSym(indexIn), etaSym(indexIn))
	gammaOut := halfSumSquares(kappaSym(indexOut), etaSym(indexOut))
	qIn := halfSumSquares(sigmaSym(indexIn), rhoSym(indexIn))
	qOut := halfSumSquares(sigmaSym(indexOut), rhoSym(indexOut))
	extra := symexpr.Mul(
		symexpr.Pow(symexpr.Mul(symexpr.Number(0.5), qIn, symexpr.Pow(lam0In, -1)), float64(nu[0])),
		symexpr.Pow(symexpr.Mul(symexpr.Number(0.5), qOut, symexpr.Pow(lam0Out, -1)), float64(nu[1])),
		symexpr.Pow(symexpr.Mul(symexpr.Number(2), gammaIn, symexpr.Pow(lam0In, -1)), float64(nu[2])),
		symexpr.Pow(symexpr.Mul(symexpr.Number(2), gammaOut, symexpr.Pow(lam0Out, -1)), float64(nu[3])))

	arg := symexpr.Sum(
		symexpr.Mul(symexpr.Number(float64(k[0])), symexpr.Symbol(lambdaSym(indexOut))),
		symexpr.Mul(symexpr.Number(float64(k[1])), symexpr.Symbol(lambdaSym(indexIn))))
	trig := symexpr.Sum(
		symexpr.Mul(re, symexpr.Cos(arg)),
		symexpr.Neg(symexpr.Mul(im, symexpr.Sin(arg))))

	prefactor := symexpr.Mul(
		symexpr.Number(-1),
		symexpr.Symbol("G"),
		symexpr.Symbol(massSym(indexIn)),
		symexpr.Symbol(massSym(indexOut)),
		symexpr.Pow(symexpr.Symbol(a0Sym(indexOut)), -1))

	ph.terms[key] = struct{}{}
	ph.H = symexpr.Sum(ph.H, symexpr.Mul(prefactor, cTot, extra, trig))
	ph.finalized = false
	return nil
}

func halfSumSquares(a, b string) symexpr.Expr {
	return symexpr.Mul(symexpr.Number(0.5), symexpr.Sum(
		symexpr.Pow(symexpr.Symbol(a), 2),
		symexpr.Pow(symexpr.Symbol(b), 2)))
}

// AddCosTermToMaxOrder adds the cosine term with wavevector k together with
// every allowed extra power of the eccentricity and inclination actions up
// to the given total order.
func (ph *PoincareHamiltonian) AddCosTermToMaxOrder(k [6]int, maxOrder, indexIn, indexOut, lMax int) error {
	order := maxOrder
	for _, v := range k[2:] {
		order -= abs(v)
	}
	if order < 0 {
		return nil
	}
	n := order/2 + 1
	for z1 := 0; z1 < n; z1++ {
		for z2 := 0; z2 < n-z1; z2++ {
			for z3 := 0; z3 < n-z1-z2; z3++ {
				for z4 := 0; z4 < n-z1-z2-z3; z4++ {
					if err := ph.AddMonomialTerm(k, [4]int{z1, z2, z3, z4}, indexIn, indexOut, lMax); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// checkMMRArgs validates a p:p-q resonance request, warning for argument
// combinations that silently omit terms and rejecting a negative order.
func (ph *PoincareHamiltonian) checkMMRArgs(p, q, maxOrder int) error {
	if maxOrder < 0 {
		return cfgErrorf("max order %d must be non-negative", maxOrder)
	}
	if q == 0 {
		return cfgErrorf("resonance order q must be nonzero")
	}
	if p < q || q < 0 {
		ph.logger.Log("warning", "resonances with p<q or q<0 are not supported; add such terms individually with AddMonomialTerm")
	}
	if maxOrder < q {
		ph.logger.Log("warning", "maximum order is lower than the order of the resonance")
	}
	if abs(p)%q == 0 && q != 1 {
		ph.logger.Log("warning", "p and q share a common divisor, some important terms may be omitted")
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// AddEccentricityMMRTerms adds all eccentricity-type terms of the p:p-q
// mean motion resonance of the planet pair, up to maxOrder.
func (ph *PoincareHamiltonian) AddEccentricityMMRTerms(p, q, maxOrder, indexIn, indexOut, lMax int) error {
	if err := ph.checkMMRArgs(p, q, maxOrder); err != nil {
		return err
	}
	for n := 1; n <= maxOrder/q; n++ {
		k1 := n * p
		k2 := n * (q - p)
		for l := 0; l <= n*q; l++ {
			k := [6]int{k1, k2, -l, l - n*q, 0, 0}
			if err := ph.AddCosTermToMaxOrder(k, maxOrder, indexIn, indexOut, lMax); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddAllMMRAndSecularTerms adds every disturbing function term of the p:p-q
// mean motion resonance of the planet pair, including the inclination-type
// arguments, along with all secular terms up to maxOrder.
func (ph *PoincareHamiltonian) AddAllMMRAndSecularTerms(p, q, maxOrder, indexIn, indexOut, lMax int) error {
	if err := ph.checkMMRArgs(p, q, maxOrder); err != nil {
		return err
	}
	mo2 := maxOrder / 2
	for h := 0; h <= mo2; h++ {
		kLo := -2 * mo2
		if h == 0 {
			kLo = 0
		}
		for k := kLo; k <= 2*mo2; k++ {
			sHi := maxOrder - abs(h+k) - abs(h-k)
			sLo := -sHi
			if h == 0 && k == 0 {
				sLo = 0
			}
			for s := sLo; s <= sHi; s++ {
				s1Hi := sHi - abs(s)
				s1Lo := -s1Hi
				if h == 0 && k == 0 && s == 0 {
					s1Lo = 0
				}
				for s1 := s1Lo; s1 <= s1Hi; s1++ {
					k3, k4 := -s, -s1
					k5, k6 := -h-k, k-h
					tot := k3 + k4 + k5 + k6
					if (-p*tot)%q != 0 {
						continue
					}
					k1 := -p * tot / q
					k2 := (p - q) * tot / q
					kvec := [6]int{k1, k2, k3, k4, k5, k6}
					if k1 < 0 {
						for i := range kvec {
							kvec[i] = -kvec[i]
						}
					}
					if err := ph.AddCosTermToMaxOrder(kvec, maxOrder, indexIn, indexOut, lMax); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// AddOrbitAverageJ2Terms adds the orbit-averaged potential of the central
// body's J2 gravitational harmonic for the listed planets (all planets when
// the list is nil). maxEIOrder truncates the expansion in eccentricity and
// inclination, maxDeltaOrder the expansion in the fractional Lambda offset;
// zero keeps the respective dependence exact.
func (ph *PoincareHamiltonian) AddOrbitAverageJ2Terms(j2, radius float64, maxEIOrder, maxDeltaOrder int, particles []int) error {
	ph.params["J2"] = j2
	ph.params["R"] = radius

	// Build the potential in dummy variables, expand, then substitute per
	// planet.
	lam0 := symexpr.Symbol("Lambda0_d")
	delta := symexpr.Symbol("delta_d")
	lam := symexpr.Mul(lam0, symexpr.Sum(symexpr.Number(1), delta))
	gamma := halfSumSquares("kappa_d", "eta_d")
	angMom := symexpr.Sum(lam, symexpr.Neg(gamma))
	q := halfSumSquares("sigma_d", "rho_d")
	// ssq = (1 - cosI)/2 with cosI = 1 - Q/(Lambda - Gamma).
	ssq := symexpr.Mul(symexpr.Number(0.5), q, symexpr.Pow(angMom, -1))
	num := symexpr.Sum(
		symexpr.Mul(symexpr.Number(3), symexpr.Sum(symexpr.Pow(ssq, 2), symexpr.Neg(ssq))),
		symexpr.Number(0.5))
	// 1/sqrt(1-e^2)^3 = (Lambda/(Lambda-Gamma))^3
	denomInv := symexpr.Pow(symexpr.Mul(angMom, symexpr.Pow(lam, -1)), -3)
	a := symexpr.Mul(symexpr.Symbol("a0_d"), symexpr.Pow(symexpr.Sum(symexpr.Number(1), delta), 2))
	expr := symexpr.Mul(num, denomInv, symexpr.Pow(a, -3))

	if maxEIOrder > 0 {
		expr = expandInEpsilon(expr, []string{"kappa_d", "eta_d", "sigma_d", "rho_d"}, maxEIOrder)
	}
	if maxDeltaOrder > 0 {
		expr = symexpr.Taylor(expr, "delta_d", maxDeltaOrder)
	}
	pert := symexpr.Mul(
		symexpr.Number(-1),
		symexpr.Symbol("G"), symexpr.Symbol("J2"),
		symexpr.Pow(symexpr.Symbol("R"), 2),
		expr)

	for _, pid := range ph.particleList(particles) {
		if _, err := ph.state.Particle(pid); err != nil {
			return err
		}
		term := substituteDummies(pert, pid)
		ph.H = symexpr.Sum(ph.H, symexpr.Mul(
			symexpr.Symbol(bigMSym(pid)), symexpr.Symbol(muSym(pid)), term))
	}
	ph.finalized = false
	return nil
}

// AddGRPotentialTerms adds the lowest order general relativistic precession
// potential for the listed planets (all planets when the list is nil),
// given the speed of light in simulation units. maxEOrder truncates the
// eccentricity expansion; zero keeps it exact.
func (ph *PoincareHamiltonian) AddGRPotentialTerms(c float64, maxEOrder int, particles []int) error {
	if c <= 0 {
		return cfgErrorf("speed of light must be positive")
	}
	ph.params["c"] = c

	lam0 := symexpr.Symbol("Lambda0_d")
	gamma := halfSumSquares("kappa_d", "eta_d")
	// sqrt(1-e^2) = (Lambda0 - Gamma)/Lambda0 at the reference action.
	rtOmesq := symexpr.Mul(symexpr.Sum(lam0, symexpr.Neg(gamma)), symexpr.Pow(lam0, -1))
	gByC := symexpr.Mul(symexpr.Symbol("G"), symexpr.Pow(symexpr.Symbol("c"), -1))
	expr := symexpr.Mul(
		symexpr.Number(-3),
		symexpr.Pow(gByC, 2),
		symexpr.Pow(symexpr.Symbol("a0_d"), -2),
		symexpr.Pow(rtOmesq, -1))
	if maxEOrder > 0 {
		expr = expandInEpsilon(expr, []string{"kappa_d", "eta_d"}, maxEOrder)
	}
	for _, pid := range ph.particleList(particles) {
		if _, err := ph.state.Particle(pid); err != nil {
			return err
		}
		term := substituteDummies(expr, pid)
		ph.H = symexpr.Sum(ph.H, symexpr.Mul(
			symexpr.Pow(symexpr.Symbol(bigMSym(pid)), 2), symexpr.Symbol(muSym(pid)), term))
	}
	ph.finalized = false
	return nil
}

func (ph *PoincareHamiltonian) particleList(particles []int) []int {
	if particles != nil {
		return particles
	}
	all := make([]int, 0, ph.state.N()-1)
	for i := 1; i < ph.state.N(); i++ {
		all = append(all, i)
	}
	return all
}

// expandInEpsilon Taylor expands expr in a common scale of the listed
// symbols, used to truncate in powers of eccentricity and inclination.
func expandInEpsilon(expr symexpr.Expr, names []string, order int) symexpr.Expr {
	for _, name := range names {
		expr = expr.Sub(name, symexpr.Mul(symexpr.Symbol("epsilon_d"), symexpr.Symbol(name)))
	}
	expr = symexpr.Taylor(expr, "epsilon_d", order)
	return expr.Sub("epsilon_d", symexpr.Number(1))
}

// substituteDummies rewrites a dummy-variable perturbation for planet pid.
func substituteDummies(expr symexpr.Expr, pid int) symexpr.Expr {
	lam0 := symexpr.Symbol(lambda0Sym(pid))
	delta := symexpr.Mul(
		symexpr.Sum(symexpr.Symbol(bigLamSym(pid)), symexpr.Neg(lam0)),
		symexpr.Pow(lam0, -1))
	expr = expr.Sub("delta_d", delta)
	expr = expr.Sub("Lambda0_d", lam0)
	expr = expr.Sub("a0_d", symexpr.Symbol(a0Sym(pid)))
	expr = expr.Sub("kappa_d", symexpr.Symbol(kappaSym(pid)))
	expr = expr.Sub("eta_d", symexpr.Symbol(etaSym(pid)))
	expr = expr.Sub("sigma_d", symexpr.Symbol(sigmaSym(pid)))
	expr = expr.Sub("rho_d", symexpr.Symbol(rhoSym(pid)))
	return expr
}

// Finalize derives the equations of motion from the accumulated terms.
// It must be called again after further terms are added.
func (ph *PoincareHamiltonian) Finalize() {
	ph.derivs = make(map[string]symexpr.Expr, 6*(ph.state.N()-1))
	for i := 1; i < ph.state.N(); i++ {
		ph.derivs[lambdaSym(i)] = ph.H.Diff(bigLamSym(i))
		ph.derivs[bigLamSym(i)] = symexpr.Neg(ph.H.Diff(lambdaSym(i)))
		ph.derivs[etaSym(i)] = ph.H.Diff(kappaSym(i))
		ph.derivs[kappaSym(i)] = symexpr.Neg(ph.H.Diff(etaSym(i)))
		ph.derivs[rhoSym(i)] = ph.H.Diff(sigmaSym(i))
		ph.derivs[sigmaSym(i)] = symexpr.Neg(ph.H.Diff(rhoSym(i)))
	}
	ph.finalized = true
}

// env binds the parameters and the current canonical variables.
func (ph *PoincareHamiltonian) env() map[string]float64 {
	env := make(map[string]float64, len(ph.params)+6*(ph.state.N()-1))
	for k, v := range ph.params {
		env[k] = v
	}
	for i := 1; i < ph.state.N(); i++ {
		p, _ := ph.state.Particle(i)
		env[bigLamSym(i)] = p.Lambda()
		env[lambdaSym(i)] = p.L()
		env[kappaSym(i)] = p.Kappa()
		env[etaSym(i)] = p.Eta()
		env[sigmaSym(i)] = p.Sigma()
		env[rhoSym(i)] = p.Rho()
	}
	return env
}

// Value evaluates the Hamiltonian at the current system state.
func (ph *PoincareHamiltonian) Value() (float64, error) {
	if !ph.finalized {
		return 0, cfgErrorf("Finalize must be called before evaluating the Hamiltonian")
	}
	return ph.H.Eval(ph.env())
}

// Flow evaluates the time derivative of every canonical variable at the
// current system state, laid out as the blocks of Poincare.Values.
func (ph *PoincareHamiltonian) Flow() ([]float64, error) {
	if !ph.finalized {
		return nil, cfgErrorf("Finalize must be called before evaluating the flow")
	}
	env := ph.env()
	n := ph.state.N() - 1
	flow := make([]float64, 6*n)
	for i := 1; i <= n; i++ {
		for block, name := range []string{lambdaSym(i), etaSym(i), rhoSym(i), bigLamSym(i), kappaSym(i), sigmaSym(i)} {
			v, err := ph.derivs[name].Eval(env)
			if err != nil {
				return nil, err
			}
			flow[block*n+i-1] = v
		}
	}
	return flow, nil
}

// LaplaceLagrangeMatrices extracts the linearized secular system from the
// equations of motion: the matrices M with d(eta)/dt = M_ecc kappa and
// d(rho)/dt = M_inc sigma, evaluated at zero eccentricity and inclination.
func (ph *PoincareHamiltonian) LaplaceLagrangeMatrices() (ecc, inc *mat.Dense, err error) {
	if !ph.finalized {
		return nil, nil, cfgErrorf("Finalize must be called before extracting secular matrices")
	}
	env := ph.env()
	n := ph.state.N() - 1
	zeroEI := func(e symexpr.Expr) symexpr.Expr {
		for i := 1; i <= n; i++ {
			for _, name := range []string{etaSym(i), kappaSym(i), rhoSym(i), sigmaSym(i)} {
				e = e.Sub(name, symexpr.Number(0))
			}
		}
		return e
	}
	ecc = mat.NewDense(n, n, nil)
	inc = mat.NewDense(n, n, nil)
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			v, err := zeroEI(ph.derivs[etaSym(i)].Diff(kappaSym(j))).Eval(env)
			if err != nil {
				return nil, nil, err
			}
			ecc.Set(i-1, j-1, v)
			v, err = zeroEI(ph.derivs[rhoSym(i)].Diff(sigmaSym(j))).Eval(env)
			if err != nil {
				return nil, nil, err
			}
			inc.Set(i-1, j-1, v)
		}
	}
	return ecc, inc, nil
}
