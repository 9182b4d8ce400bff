package celmech

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LaplaceLagrangeSystem holds the classical secular equations of motion of
// a Poincare system, linearized in the eccentricity and inclination
// variables:
//
//	d/dt (eta + i kappa) = i A (eta + i kappa)
//	d/dt (rho + i sigma) = i B (rho + i sigma)
//
// The symmetric matrices A and B are assembled from closed form disturbing
// function coefficients at the system's current semimajor axis ratios.
type LaplaceLagrangeSystem struct {
	state  *Poincare
	coeffs DFCoefficientSource
	ecc    *mat.SymDense
	inc    *mat.SymDense
	tol    float64
}

// NewLaplaceLagrangeSystem builds the secular matrices for a system whose
// planets are ordered by increasing semimajor axis.
func NewLaplaceLagrangeSystem(state *Poincare, coeffs DFCoefficientSource) (*LaplaceLagrangeSystem, error) {
	n := state.N() - 1
	ll := &LaplaceLagrangeSystem{
		state:  state,
		coeffs: coeffs,
		ecc:    mat.NewSymDense(n, nil),
		inc:    mat.NewSymDense(n, nil),
		tol:    math.Inf(1),
	}
	g := state.G()
	eccDiagK, eccDiagNu := [6]int{}, [4]int{0, 0, 1, 0}
	incDiagK, incDiagNu := [6]int{}, [4]int{1, 0, 0, 0}
	eccOffK := [6]int{0, 0, 1, -1, 0, 0}
	incOffK := [6]int{0, 0, 0, 0, 1, -1}

	for i := 1; i <= n; i++ {
		pi, _ := state.Particle(i)
		if pi.Mass()*machineEps < ll.tol {
			ll.tol = pi.Mass() * machineEps
		}
		for j := 1; j <= n; j++ {
			if j == i {
				continue
			}
			indexIn, indexOut := i, j
			if j < i {
				indexIn, indexOut = j, i
			}
			pIn, _ := state.Particle(indexIn)
			pOut, _ := state.Particle(indexOut)
			alpha := pIn.A() / pOut.A()
			if alpha >= 1 {
				return nil, cfgErrorf("planets must be ordered by increasing semimajor axis (a%d=%g >= a%d=%g)",
					indexIn, pIn.A(), indexOut, pOut.A())
			}
			pre := llPrefactor(g, pIn, pOut)

			cEccDiag, err := coeffs.Coefficient(eccDiagK, eccDiagNu, alpha)
			if err != nil {
				return nil, err
			}
			cIncDiag, err := coeffs.Coefficient(incDiagK, incDiagNu, alpha)
			if err != nil {
				return nil, err
			}
			ll.ecc.SetSym(i-1, i-1, ll.ecc.At(i-1, i-1)+2*pre*cEccDiag/pi.Lambda())
			ll.inc.SetSym(i-1, i-1, ll.inc.At(i-1, i-1)+2*pre*cIncDiag/pi.Lambda()/4)

			if i > j {
				cEccOff, err := coeffs.Coefficient(eccOffK, [4]int{}, alpha)
				if err != nil {
					return nil, err
				}
				cIncOff, err := coeffs.Coefficient(incOffK, [4]int{}, alpha)
				if err != nil {
					return nil, err
				}
				rt := math.Sqrt(pIn.Lambda() * pOut.Lambda())
				ll.ecc.SetSym(indexOut-1, indexIn-1, pre*cEccOff/rt)
				ll.inc.SetSym(indexOut-1, indexIn-1, pre*cIncOff/rt/4)
			}
		}
	}
	return ll, nil
}

const machineEps = 2.220446049250313e-16

// llPrefactor is -G^2 MOut^2 mOut^3 (mIn/MIn) / LambdaOut^2.
func llPrefactor(g float64, pIn, pOut *PoincareParticle) float64 {
	mOut3 := pOut.Mu() * pOut.Mu() * pOut.Mu()
	return -g * g * pOut.M() * pOut.M() * mOut3 * (pIn.Mu() / pIn.M()) / (pOut.Lambda() * pOut.Lambda())
}

// State returns the system the secular matrices were built from.
func (ll *LaplaceLagrangeSystem) State() *Poincare { return ll.state }

// EccentricityMatrix returns the secular matrix of the eccentricity
// variables.
func (ll *LaplaceLagrangeSystem) EccentricityMatrix() *mat.SymDense { return ll.ecc }

// InclinationMatrix returns the secular matrix of the inclination
// variables.
func (ll *LaplaceLagrangeSystem) InclinationMatrix() *mat.SymDense { return ll.inc }

// AddFirstOrderResonanceTerm corrects the eccentricity matrix for the slow
// forced oscillation induced by a nearby kres : kres-1 mean motion
// resonance of the planet pair.
func (ll *LaplaceLagrangeSystem) AddFirstOrderResonanceTerm(indexIn, indexOut, kres int) error {
	if indexIn >= indexOut {
		return cfgErrorf("indexIn=%d must precede indexOut=%d", indexIn, indexOut)
	}
	pIn, err := ll.state.Particle(indexIn)
	if err != nil {
		return err
	}
	pOut, err := ll.state.Particle(indexOut)
	if err != nil {
		return err
	}
	alpha := pIn.A() / pOut.A()
	cIn, err := ll.coeffs.Coefficient([6]int{kres, 1 - kres, -1, 0, 0, 0}, [4]int{}, alpha)
	if err != nil {
		return err
	}
	cOut, err := ll.coeffs.Coefficient([6]int{kres, 1 - kres, 0, -1, 0, 0}, [4]int{}, alpha)
	if err != nil {
		return err
	}
	g := ll.state.G()
	eps := llPrefactor(g, pIn, pOut)
	omegaIn := keplerFrequency(g, pIn)
	omegaOut := keplerFrequency(g, pOut)
	domegaIn := -3 * omegaIn / pIn.Lambda()
	domegaOut := -3 * omegaOut / pOut.Lambda()
	kIn := float64(1 - kres)
	kOut := float64(kres)
	kDomegaK := kIn*kIn*domegaIn + kOut*kOut*domegaOut
	denom := kIn*omegaIn + kOut*omegaOut
	prefactor := kDomegaK / (denom * denom)
	xToXIn := math.Sqrt(2 / pIn.Lambda())
	xToXOut := math.Sqrt(2 / pOut.Lambda())

	inIn := eps * eps * prefactor * cIn * cIn * xToXIn * xToXIn / 4
	inOut := eps * eps * prefactor * cOut * cIn * xToXOut * xToXIn / 4
	outOut := eps * eps * prefactor * cOut * cOut * xToXOut * xToXOut / 4

	ll.ecc.SetSym(indexIn-1, indexIn-1, ll.ecc.At(indexIn-1, indexIn-1)+inIn)
	ll.ecc.SetSym(indexOut-1, indexIn-1, ll.ecc.At(indexOut-1, indexIn-1)+inOut)
	ll.ecc.SetSym(indexOut-1, indexOut-1, ll.ecc.At(indexOut-1, indexOut-1)+outOut)
	return nil
}

// keplerFrequency is G^2 M^2 mu^3 / Lambda^3, the mean motion expressed in
// canonical variables.
func keplerFrequency(g float64, p *PoincareParticle) float64 {
	gm := g * p.M() * p.Mu()
	lam := p.Lambda()
	return gm * gm * p.Mu() / (lam * lam * lam)
}

// eigh returns the eigenvalues and orthonormal eigenvectors of a symmetric
// matrix.
func eigh(a *mat.SymDense) ([]float64, *mat.Dense, error) {
	var es mat.EigenSym
	if !es.Factorize(a, true) {
		return nil, nil, cfgErrorf("secular matrix eigendecomposition failed")
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	return vals, &vecs, nil
}

// chop zeroes eigenvalues below the numerical noise floor set by the
// smallest planet mass.
func (ll *LaplaceLagrangeSystem) chop(vals []float64) []float64 {
	for i, v := range vals {
		if math.Abs(v) < ll.tol {
			vals[i] = 0
		}
	}
	return vals
}

// EccentricityEigenvalues returns the secular eccentricity frequencies.
func (ll *LaplaceLagrangeSystem) EccentricityEigenvalues() ([]float64, error) {
	vals, _, err := eigh(ll.ecc)
	return vals, err
}

// InclinationEigenvalues returns the secular inclination frequencies. The
// exact zero mode of a rigid rotation of the system plane is chopped to
// zero.
func (ll *LaplaceLagrangeSystem) InclinationEigenvalues() ([]float64, error) {
	vals, _, err := eigh(ll.inc)
	if err != nil {
		return nil, err
	}
	return ll.chop(vals), nil
}

// Tsec returns the shortest secular period, 2 pi over the fastest secular
// frequency.
func (ll *LaplaceLagrangeSystem) Tsec() (float64, error) {
	eVals, err := ll.EccentricityEigenvalues()
	if err != nil {
		return 0, err
	}
	iVals, err := ll.InclinationEigenvalues()
	if err != nil {
		return 0, err
	}
	fastest := 0.0
	for _, v := range append(eVals, iVals...) {
		if math.Abs(v) > fastest {
			fastest = math.Abs(v)
		}
	}
	if fastest == 0 {
		return 0, PhysicalStateError{"all secular frequencies vanish"}
	}
	return 2 * math.Pi / fastest, nil
}

// SecularSolution is the Laplace-Lagrange solution sampled at requested
// times. Slices are indexed [time][planet].
type SecularSolution struct {
	Time   []float64
	Eta    [][]float64
	Kappa  [][]float64
	Rho    [][]float64
	Sigma  [][]float64
	E      [][]float64
	Pomega [][]float64
	Inc    [][]float64
	Omega  [][]float64
}

// Solution evaluates the closed form secular evolution at the given times,
// measured from the given epoch.
func (ll *LaplaceLagrangeSystem) Solution(times []float64, epoch float64) (*SecularSolution, error) {
	n := ll.state.N() - 1
	eccVals, eccVecs, err := eigh(ll.ecc)
	if err != nil {
		return nil, err
	}
	incVals, incVecs, err := eigh(ll.inc)
	if err != nil {
		return nil, err
	}
	ll.chop(incVals)

	eta0 := make([]float64, n)
	kappa0 := make([]float64, n)
	rho0 := make([]float64, n)
	sigma0 := make([]float64, n)
	lam := make([]float64, n)
	for i := 1; i <= n; i++ {
		p, _ := ll.state.Particle(i)
		eta0[i-1] = p.Eta()
		kappa0[i-1] = p.Kappa()
		rho0[i-1] = p.Rho()
		sigma0[i-1] = p.Sigma()
		lam[i-1] = p.Lambda()
	}
	// Mode amplitudes from the initial conditions.
	h0 := matTVec(eccVecs, eta0)
	k0 := matTVec(eccVecs, kappa0)
	r0 := matTVec(incVecs, rho0)
	s0 := matTVec(incVecs, sigma0)

	sol := &SecularSolution{Time: times}
	for _, t := range times {
		t1 := t - epoch
		k := make([]float64, n)
		h := make([]float64, n)
		s := make([]float64, n)
		r := make([]float64, n)
		for m := 0; m < n; m++ {
			sin, cos := math.Sincos(eccVals[m] * t1)
			k[m] = k0[m]*cos - h0[m]*sin
			h[m] = k0[m]*sin + h0[m]*cos
			sin, cos = math.Sincos(incVals[m] * t1)
			s[m] = s0[m]*cos - r0[m]*sin
			r[m] = s0[m]*sin + r0[m]*cos
		}
		eta := matVec(eccVecs, h)
		kappa := matVec(eccVecs, k)
		rho := matVec(incVecs, r)
		sigma := matVec(incVecs, s)

		e := make([]float64, n)
		pomega := make([]float64, n)
		inc := make([]float64, n)
		node := make([]float64, n)
		for i := 0; i < n; i++ {
			rtLam := math.Sqrt(lam[i])
			xRe := kappa[i] / rtLam
			xIm := -eta[i] / rtLam
			xToZ := math.Sqrt(1 - 0.25*(xRe*xRe+xIm*xIm))
			zRe, zIm := xRe*xToZ, xIm*xToZ
			e[i] = math.Hypot(zRe, zIm)
			pomega[i] = math.Atan2(zIm, zRe)

			yRe := 0.5 * sigma[i] / rtLam
			yIm := -0.5 * rho[i] / rtLam
			yToZeta := 1 / math.Sqrt(1-0.5*(xRe*xRe+xIm*xIm))
			zetaRe, zetaIm := yRe*yToZeta, yIm*yToZeta
			inc[i] = 2 * math.Asin(math.Hypot(zetaRe, zetaIm))
			node[i] = math.Atan2(zetaIm, zetaRe)
		}
		sol.Eta = append(sol.Eta, eta)
		sol.Kappa = append(sol.Kappa, kappa)
		sol.Rho = append(sol.Rho, rho)
		sol.Sigma = append(sol.Sigma, sigma)
		sol.E = append(sol.E, e)
		sol.Pomega = append(sol.Pomega, pomega)
		sol.Inc = append(sol.Inc, inc)
		sol.Omega = append(sol.Omega, node)
	}
	return sol, nil
}

// matVec returns a*v.
func matVec(a *mat.Dense, v []float64) []float64 {
	n := len(v)
	out := mat.NewVecDense(n, nil)
	out.MulVec(a, mat.NewVecDense(n, v))
	return out.RawVector().Data
}

// matTVec returns a^T v.
func matTVec(a *mat.Dense, v []float64) []float64 {
	n := len(v)
	out := mat.NewVecDense(n, nil)
	out.MulVec(a.T(), mat.NewVecDense(n, v))
	return out.RawVector().Data
}
