package celmech

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// EvolutionOperator advances canonical variables by a fixed time step. Apply
// mutates the operator's underlying system in place; ApplyToVector maps a
// detached state vector laid out as Poincare.StateVector without touching
// the system. Operators with precomputed step-dependent tables rebuild them
// in SetDt.
type EvolutionOperator interface {
	Apply() error
	ApplyToVector(v []float64) ([]float64, error)
	Dt() float64
	SetDt(dt float64)
}

// KeplerianEvolutionOperator advances the mean longitudes under the
// integrable part of the Hamiltonian, lambda += dt (G M mu)^2 mu / Lambda^3.
type KeplerianEvolutionOperator struct {
	state *Poincare
	dt    float64
	gm2m3 []float64
}

func NewKeplerianEvolutionOperator(state *Poincare, dt float64) *KeplerianEvolutionOperator {
	op := &KeplerianEvolutionOperator{state: state, dt: dt}
	for _, p := range state.Planets() {
		gm := state.G() * p.M() * p.Mu()
		op.gm2m3 = append(op.gm2m3, gm*gm*p.Mu())
	}
	return op
}

func (op *KeplerianEvolutionOperator) Dt() float64      { return op.dt }
func (op *KeplerianEvolutionOperator) SetDt(dt float64) { op.dt = dt }

func (op *KeplerianEvolutionOperator) Apply() error {
	for _, p := range op.state.Planets() {
		p.SetL(p.L() + op.dt*keplerFrequency(op.state.G(), p))
	}
	return nil
}

func (op *KeplerianEvolutionOperator) ApplyToVector(v []float64) ([]float64, error) {
	if len(v) != 6*len(op.gm2m3) {
		return nil, cfgErrorf("expected %d values, got %d", 6*len(op.gm2m3), len(v))
	}
	out := append([]float64(nil), v...)
	for i, g3 := range op.gm2m3 {
		lam := out[6*i+2]
		out[6*i+3] += op.dt * g3 / (lam * lam * lam)
	}
	return out, nil
}

// LinearSecularEvolutionOperator applies the exact flow of the
// Laplace-Lagrange Hamiltonian over one step: the complex eccentricity and
// inclination mode vectors are rotated by exp(-i dt S) where S is the
// corresponding secular matrix.
type LinearSecularEvolutionOperator struct {
	state   *Poincare
	dt      float64
	eccVals []float64
	eccVecs *mat.Dense
	incVals []float64
	incVecs *mat.Dense

	eccRe, eccIm *mat.Dense
	incRe, incIm *mat.Dense
}

func NewLinearSecularEvolutionOperator(state *Poincare, dt float64, coeffs DFCoefficientSource) (*LinearSecularEvolutionOperator, error) {
	ll, err := NewLaplaceLagrangeSystem(state, coeffs)
	if err != nil {
		return nil, err
	}
	return NewLinearSecularEvolutionOperatorFromSystem(ll, dt)
}

// NewLinearSecularEvolutionOperatorFromSystem builds the operator from an
// already assembled Laplace-Lagrange system, reusing its matrices.
func NewLinearSecularEvolutionOperatorFromSystem(ll *LaplaceLagrangeSystem, dt float64) (*LinearSecularEvolutionOperator, error) {
	state := ll.State()
	eccVals, eccVecs, err := eigh(ll.EccentricityMatrix())
	if err != nil {
		return nil, err
	}
	incVals, incVecs, err := eigh(ll.InclinationMatrix())
	if err != nil {
		return nil, err
	}
	op := &LinearSecularEvolutionOperator{
		state:   state,
		dt:      dt,
		eccVals: eccVals,
		eccVecs: eccVecs,
		incVals: incVals,
		incVecs: incVecs,
	}
	op.refresh()
	return op, nil
}

func (op *LinearSecularEvolutionOperator) Dt() float64 { return op.dt }

func (op *LinearSecularEvolutionOperator) SetDt(dt float64) {
	op.dt = dt
	op.refresh()
}

func (op *LinearSecularEvolutionOperator) refresh() {
	op.eccRe, op.eccIm = rotationMatrices(op.eccVals, op.eccVecs, op.dt)
	op.incRe, op.incIm = rotationMatrices(op.incVals, op.incVecs, op.dt)
}

// rotationMatrices returns the real and imaginary parts of exp(-i dt S)
// from the eigendecomposition S = V diag(vals) V^T.
func rotationMatrices(vals []float64, vecs *mat.Dense, dt float64) (re, im *mat.Dense) {
	n := len(vals)
	cosD := mat.NewDense(n, n, nil)
	sinD := mat.NewDense(n, n, nil)
	for i, v := range vals {
		cosD.Set(i, i, math.Cos(dt*v))
		sinD.Set(i, i, -math.Sin(dt*v))
	}
	var tmp mat.Dense
	re = mat.NewDense(n, n, nil)
	tmp.Mul(vecs, cosD)
	re.Mul(&tmp, vecs.T())
	im = mat.NewDense(n, n, nil)
	tmp.Reset()
	tmp.Mul(vecs, sinD)
	im.Mul(&tmp, vecs.T())
	return re, im
}

// complexRotate multiplies (re + i im) against the vector vr + i vi.
func complexRotate(re, im *mat.Dense, vr, vi []float64) ([]float64, []float64) {
	rr := matVec(re, vr)
	ri := matVec(re, vi)
	ir := matVec(im, vr)
	ii := matVec(im, vi)
	for k := range rr {
		rr[k] -= ii[k]
		ri[k] += ir[k]
	}
	return rr, ri
}

func (op *LinearSecularEvolutionOperator) Apply() error {
	planets := op.state.Planets()
	n := len(planets)
	xr := make([]float64, n)
	xi := make([]float64, n)
	yr := make([]float64, n)
	yi := make([]float64, n)
	for i, p := range planets {
		xr[i] = p.Kappa() / math.Sqrt2
		xi[i] = -p.Eta() / math.Sqrt2
		yr[i] = p.Sigma() / math.Sqrt2
		yi[i] = -p.Rho() / math.Sqrt2
	}
	xr, xi = complexRotate(op.eccRe, op.eccIm, xr, xi)
	yr, yi = complexRotate(op.incRe, op.incIm, yr, yi)
	for i, p := range planets {
		p.SetKappa(math.Sqrt2 * xr[i])
		p.SetEta(-math.Sqrt2 * xi[i])
		p.SetSigma(math.Sqrt2 * yr[i])
		p.SetRho(-math.Sqrt2 * yi[i])
	}
	return nil
}

func (op *LinearSecularEvolutionOperator) ApplyToVector(v []float64) ([]float64, error) {
	n := len(op.eccVals)
	if len(v) != 6*n {
		return nil, cfgErrorf("expected %d values, got %d", 6*n, len(v))
	}
	out := append([]float64(nil), v...)
	xr := make([]float64, n)
	xi := make([]float64, n)
	yr := make([]float64, n)
	yi := make([]float64, n)
	for i := 0; i < n; i++ {
		xr[i] = out[6*i] / math.Sqrt2
		xi[i] = -out[6*i+1] / math.Sqrt2
		yr[i] = out[6*i+4] / math.Sqrt2
		yi[i] = -out[6*i+5] / math.Sqrt2
	}
	xr, xi = complexRotate(op.eccRe, op.eccIm, xr, xi)
	yr, yi = complexRotate(op.incRe, op.incIm, yr, yi)
	for i := 0; i < n; i++ {
		out[6*i] = math.Sqrt2 * xr[i]
		out[6*i+1] = -math.Sqrt2 * xi[i]
		out[6*i+4] = math.Sqrt2 * yr[i]
		out[6*i+5] = -math.Sqrt2 * yi[i]
	}
	return out, nil
}

// Hamiltonian evaluates the Laplace-Lagrange energy x* S_e x + y* S_i y of
// a state vector, using the stored eigendecompositions.
func (op *LinearSecularEvolutionOperator) Hamiltonian(v []float64) (float64, error) {
	n := len(op.eccVals)
	if len(v) != 6*n {
		return 0, cfgErrorf("expected %d values, got %d", 6*n, len(v))
	}
	xr := make([]float64, n)
	xi := make([]float64, n)
	yr := make([]float64, n)
	yi := make([]float64, n)
	for i := 0; i < n; i++ {
		xr[i] = v[6*i] / math.Sqrt2
		xi[i] = -v[6*i+1] / math.Sqrt2
		yr[i] = v[6*i+4] / math.Sqrt2
		yi[i] = -v[6*i+5] / math.Sqrt2
	}
	var h float64
	for _, m := range []struct {
		vals   []float64
		vecs   *mat.Dense
		re, im []float64
	}{
		{op.eccVals, op.eccVecs, xr, xi},
		{op.incVals, op.incVecs, yr, yi},
	} {
		mr := matTVec(m.vecs, m.re)
		mi := matTVec(m.vecs, m.im)
		for i, val := range m.vals {
			h += val * (mr[i]*mr[i] + mi[i]*mi[i])
		}
	}
	return h, nil
}

// linearResonanceCore holds the machinery shared by the linearized
// mean motion resonance operators: the eigendecomposition of the 2x2
// interaction matrix A, the hyperbolic step tables, and the Lambda
// reconstruction from the two conserved combinations
// C1 = lamVec . Lambdas and C2 = sum(Lambdas) - sum(actions).
type linearResonanceCore struct {
	state    *Poincare
	pIn      *PoincareParticle
	pOut     *PoincareParticle
	indexIn  int
	indexOut int
	dt       float64

	resVec  [2]float64
	lamVec  [2]float64
	lamMtrx [2][2]float64

	t    *mat.Dense
	eigs []float64
	cosh [2]float64
	sinh [2]float64
}

func newLinearResonanceCore(state *Poincare, indexIn, indexOut int, resVec [2]float64, a *mat.SymDense, dt float64) (*linearResonanceCore, error) {
	if indexIn >= indexOut {
		return nil, cfgErrorf("indexIn=%d must precede indexOut=%d", indexIn, indexOut)
	}
	pIn, err := state.Particle(indexIn)
	if err != nil {
		return nil, err
	}
	pOut, err := state.Particle(indexOut)
	if err != nil {
		return nil, err
	}
	eigs, t, err := eigh(a)
	if err != nil {
		return nil, err
	}
	c := &linearResonanceCore{
		state:    state,
		pIn:      pIn,
		pOut:     pOut,
		indexIn:  indexIn,
		indexOut: indexOut,
		dt:       dt,
		resVec:   resVec,
		lamVec:   [2]float64{-resVec[1], resVec[0]},
		t:        t,
		eigs:     eigs,
	}
	det := c.lamVec[0] - c.lamVec[1]
	if det == 0 {
		return nil, cfgErrorf("resonance vector %v does not determine the Lambdas", resVec)
	}
	c.lamMtrx = [2][2]float64{
		{1 / det, -c.lamVec[1] / det},
		{-1 / det, c.lamVec[0] / det},
	}
	c.refresh()
	return c, nil
}

func (c *linearResonanceCore) Dt() float64 { return c.dt }

func (c *linearResonanceCore) SetDt(dt float64) {
	c.dt = dt
	c.refresh()
}

func (c *linearResonanceCore) refresh() {
	for i, e := range c.eigs {
		c.cosh[i] = math.Cosh(c.dt * e)
		c.sinh[i] = math.Sinh(c.dt * e)
	}
}

func (c *linearResonanceCore) toModes(v [2]float64) [2]float64 {
	return [2]float64{
		c.t.At(0, 0)*v[0] + c.t.At(1, 0)*v[1],
		c.t.At(0, 1)*v[0] + c.t.At(1, 1)*v[1],
	}
}

func (c *linearResonanceCore) fromModes(v [2]float64) [2]float64 {
	return [2]float64{
		c.t.At(0, 0)*v[0] + c.t.At(0, 1)*v[1],
		c.t.At(1, 0)*v[0] + c.t.At(1, 1)*v[1],
	}
}

// hyperbolicMap advances the mode pairs (H, K) through one step at frozen
// resonance angle theta, with s = sin theta and cth = cos theta.
func (c *linearResonanceCore) hyperbolicMap(h, k [2]float64, s, cth float64) (h1, k1 [2]float64) {
	s2 := 2 * s * cth
	c2 := cth*cth - s*s
	for i := 0; i < 2; i++ {
		k1[i] = c.cosh[i]*k[i] + c.sinh[i]*(s2*k[i]+c2*h[i])
		h1[i] = c.cosh[i]*h[i] + c.sinh[i]*(c2*k[i]-s2*h[i])
	}
	return h1, k1
}

func (c *linearResonanceCore) theta(lIn, lOut float64) float64 {
	return c.resVec[0]*lIn + c.resVec[1]*lOut
}

func (c *linearResonanceCore) rebuildLambdas(c1, rhs float64) [2]float64 {
	return [2]float64{
		c.lamMtrx[0][0]*c1 + c.lamMtrx[0][1]*rhs,
		c.lamMtrx[1][0]*c1 + c.lamMtrx[1][1]*rhs,
	}
}

// LinearEccentricityResonanceOperator evolves the eccentricity variables of
// a planet pair under dx/dt = -i e^{2 i theta} A x* - (i/2) e^{i theta} b,
// the linearization of a first or second order mean motion resonance, with
// the resonance angle frozen during the step. The Lambdas are moved along
// the resonance direction to preserve the step's two conserved quantities.
type LinearEccentricityResonanceOperator struct {
	*linearResonanceCore
	ainvDotB [2]float64
}

func NewLinearEccentricityResonanceOperator(state *Poincare, indexIn, indexOut int, resVec [2]float64, a *mat.SymDense, b [2]float64, dt float64) (*LinearEccentricityResonanceOperator, error) {
	core, err := newLinearResonanceCore(state, indexIn, indexOut, resVec, a, dt)
	if err != nil {
		return nil, err
	}
	det := a.At(0, 0)*a.At(1, 1) - a.At(0, 1)*a.At(1, 0)
	if det == 0 {
		return nil, cfgErrorf("singular resonance matrix")
	}
	op := &LinearEccentricityResonanceOperator{linearResonanceCore: core}
	op.ainvDotB = [2]float64{
		(a.At(1, 1)*b[0] - a.At(0, 1)*b[1]) / det,
		(a.At(0, 0)*b[1] - a.At(1, 0)*b[0]) / det,
	}
	return op, nil
}

// step maps (kappa, eta) for the pair through one frozen-angle step.
func (op *LinearEccentricityResonanceOperator) step(kappa, eta [2]float64, s, cth float64) (kappa1, eta1 [2]float64) {
	var hIn, kIn [2]float64
	for i := 0; i < 2; i++ {
		hIn[i] = eta[i] - 0.5*math.Sqrt2*op.ainvDotB[i]*s
		kIn[i] = kappa[i] + 0.5*math.Sqrt2*op.ainvDotB[i]*cth
	}
	h := op.toModes(hIn)
	k := op.toModes(kIn)
	h, k = op.hyperbolicMap(h, k, s, cth)
	hOut := op.fromModes(h)
	kOut := op.fromModes(k)
	for i := 0; i < 2; i++ {
		eta1[i] = hOut[i] + 0.5*math.Sqrt2*op.ainvDotB[i]*s
		kappa1[i] = kOut[i] - 0.5*math.Sqrt2*op.ainvDotB[i]*cth
	}
	return kappa1, eta1
}

func (op *LinearEccentricityResonanceOperator) Apply() error {
	lams := [2]float64{op.pIn.Lambda(), op.pOut.Lambda()}
	gams := [2]float64{op.pIn.Gamma(), op.pOut.Gamma()}
	c1 := op.lamVec[0]*lams[0] + op.lamVec[1]*lams[1]
	c2 := lams[0] + lams[1] - gams[0] - gams[1]
	theta := op.theta(op.pIn.L(), op.pOut.L())
	s, cth := math.Sin(theta), math.Cos(theta)
	kappa, eta := op.step([2]float64{op.pIn.Kappa(), op.pOut.Kappa()}, [2]float64{op.pIn.Eta(), op.pOut.Eta()}, s, cth)
	op.pIn.SetKappa(kappa[0])
	op.pIn.SetEta(eta[0])
	op.pOut.SetKappa(kappa[1])
	op.pOut.SetEta(eta[1])
	gamSum := op.pIn.Gamma() + op.pOut.Gamma()
	lams1 := op.rebuildLambdas(c1, c2+gamSum)
	op.pIn.SetLambda(lams1[0])
	op.pOut.SetLambda(lams1[1])
	return nil
}

func (op *LinearEccentricityResonanceOperator) ApplyToVector(v []float64) ([]float64, error) {
	n := op.state.N() - 1
	if len(v) != 6*n {
		return nil, cfgErrorf("expected %d values, got %d", 6*n, len(v))
	}
	out := append([]float64(nil), v...)
	in := 6 * (op.indexIn - 1)
	ou := 6 * (op.indexOut - 1)
	kappa := [2]float64{out[in], out[ou]}
	eta := [2]float64{out[in+1], out[ou+1]}
	lams := [2]float64{out[in+2], out[ou+2]}
	gams := [2]float64{
		0.5 * (kappa[0]*kappa[0] + eta[0]*eta[0]),
		0.5 * (kappa[1]*kappa[1] + eta[1]*eta[1]),
	}
	c1 := op.lamVec[0]*lams[0] + op.lamVec[1]*lams[1]
	c2 := lams[0] + lams[1] - gams[0] - gams[1]
	theta := op.theta(out[in+3], out[ou+3])
	s, cth := math.Sin(theta), math.Cos(theta)
	kappa, eta = op.step(kappa, eta, s, cth)
	gamSum := 0.5 * (kappa[0]*kappa[0] + eta[0]*eta[0] + kappa[1]*kappa[1] + eta[1]*eta[1])
	lams1 := op.rebuildLambdas(c1, c2+gamSum)
	out[in], out[ou] = kappa[0], kappa[1]
	out[in+1], out[ou+1] = eta[0], eta[1]
	out[in+2], out[ou+2] = lams1[0], lams1[1]
	return out, nil
}

// LinearInclinationResonanceOperator is the inclination counterpart of
// LinearEccentricityResonanceOperator, for dy/dt = -i e^{2 i theta} A y*.
// Second order resonances have no linear forcing, so there is no b vector.
type LinearInclinationResonanceOperator struct {
	*linearResonanceCore
}

func NewLinearInclinationResonanceOperator(state *Poincare, indexIn, indexOut int, resVec [2]float64, a *mat.SymDense, dt float64) (*LinearInclinationResonanceOperator, error) {
	core, err := newLinearResonanceCore(state, indexIn, indexOut, resVec, a, dt)
	if err != nil {
		return nil, err
	}
	return &LinearInclinationResonanceOperator{linearResonanceCore: core}, nil
}

func (op *LinearInclinationResonanceOperator) step(sigma, rho [2]float64, s, cth float64) (sigma1, rho1 [2]float64) {
	r := op.toModes(rho)
	sg := op.toModes(sigma)
	r, sg = op.hyperbolicMap(r, sg, s, cth)
	return op.fromModes(sg), op.fromModes(r)
}

func (op *LinearInclinationResonanceOperator) Apply() error {
	lams := [2]float64{op.pIn.Lambda(), op.pOut.Lambda()}
	qs := [2]float64{op.pIn.Q(), op.pOut.Q()}
	c1 := op.lamVec[0]*lams[0] + op.lamVec[1]*lams[1]
	c2 := lams[0] + lams[1] - qs[0] - qs[1]
	theta := op.theta(op.pIn.L(), op.pOut.L())
	s, cth := math.Sin(theta), math.Cos(theta)
	sigma, rho := op.step([2]float64{op.pIn.Sigma(), op.pOut.Sigma()}, [2]float64{op.pIn.Rho(), op.pOut.Rho()}, s, cth)
	op.pIn.SetSigma(sigma[0])
	op.pIn.SetRho(rho[0])
	op.pOut.SetSigma(sigma[1])
	op.pOut.SetRho(rho[1])
	qSum := op.pIn.Q() + op.pOut.Q()
	lams1 := op.rebuildLambdas(c1, c2+qSum)
	op.pIn.SetLambda(lams1[0])
	op.pOut.SetLambda(lams1[1])
	return nil
}

func (op *LinearInclinationResonanceOperator) ApplyToVector(v []float64) ([]float64, error) {
	n := op.state.N() - 1
	if len(v) != 6*n {
		return nil, cfgErrorf("expected %d values, got %d", 6*n, len(v))
	}
	out := append([]float64(nil), v...)
	in := 6 * (op.indexIn - 1)
	ou := 6 * (op.indexOut - 1)
	sigma := [2]float64{out[in+4], out[ou+4]}
	rho := [2]float64{out[in+5], out[ou+5]}
	lams := [2]float64{out[in+2], out[ou+2]}
	qs := [2]float64{
		0.5 * (sigma[0]*sigma[0] + rho[0]*rho[0]),
		0.5 * (sigma[1]*sigma[1] + rho[1]*rho[1]),
	}
	c1 := op.lamVec[0]*lams[0] + op.lamVec[1]*lams[1]
	c2 := lams[0] + lams[1] - qs[0] - qs[1]
	theta := op.theta(out[in+3], out[ou+3])
	s, cth := math.Sin(theta), math.Cos(theta)
	sigma, rho = op.step(sigma, rho, s, cth)
	qSum := 0.5 * (sigma[0]*sigma[0] + rho[0]*rho[0] + sigma[1]*sigma[1] + rho[1]*rho[1])
	lams1 := op.rebuildLambdas(c1, c2+qSum)
	out[in+4], out[ou+4] = sigma[0], sigma[1]
	out[in+5], out[ou+5] = rho[0], rho[1]
	out[in+2], out[ou+2] = lams1[0], lams1[1]
	return out, nil
}

// NewFirstOrderEccentricityResonanceOperator linearizes the j : j-1 mean
// motion resonance between the given planet pair about the reference
// Lambdas. Pass lambda0 indexed like the system's particles, or nil to
// derive reference values from the pair's resonant chain.
func NewFirstOrderEccentricityResonanceOperator(state *Poincare, dt float64, j, indexIn, indexOut int, lambda0 []float64, coeffs DFCoefficientSource) (*LinearEccentricityResonanceOperator, error) {
	resVec := [2]float64{float64(1 - j), float64(j)}
	lam0In, lam0Out, err := resonanceReferenceLambdas(state, indexIn, indexOut, lambda0, float64(j-1))
	if err != nil {
		return nil, err
	}
	pIn, err := state.Particle(indexIn)
	if err != nil {
		return nil, err
	}
	pOut, err := state.Particle(indexOut)
	if err != nil {
		return nil, err
	}
	a, b, err := firstOrderEccentricityResonanceMatrixAndVector(j, state.G(), pIn.Mu(), pOut.Mu(), pIn.M(), pOut.M(), lam0In, lam0Out, coeffs)
	if err != nil {
		return nil, err
	}
	return NewLinearEccentricityResonanceOperator(state, indexIn, indexOut, resVec, a, b, dt)
}

// NewSecondOrderEccentricityResonanceOperator linearizes the eccentricity
// part of the j : j-2 mean motion resonance.
func NewSecondOrderEccentricityResonanceOperator(state *Poincare, dt float64, j, indexIn, indexOut int, lambda0 []float64, coeffs DFCoefficientSource) (*LinearEccentricityResonanceOperator, error) {
	resVec := [2]float64{float64(2-j) / 2, float64(j) / 2}
	lam0In, lam0Out, err := resonanceReferenceLambdas(state, indexIn, indexOut, lambda0, float64(j-2)/2)
	if err != nil {
		return nil, err
	}
	pIn, err := state.Particle(indexIn)
	if err != nil {
		return nil, err
	}
	pOut, err := state.Particle(indexOut)
	if err != nil {
		return nil, err
	}
	a, err := secondOrderEccentricityResonanceMatrix(j, state.G(), pIn.Mu(), pOut.Mu(), pIn.M(), pOut.M(), lam0In, lam0Out, coeffs)
	if err != nil {
		return nil, err
	}
	return NewLinearEccentricityResonanceOperator(state, indexIn, indexOut, resVec, a, [2]float64{}, dt)
}

// NewSecondOrderInclinationResonanceOperator linearizes the inclination
// part of the j : j-2 mean motion resonance.
func NewSecondOrderInclinationResonanceOperator(state *Poincare, dt float64, j, indexIn, indexOut int, lambda0 []float64, coeffs DFCoefficientSource) (*LinearInclinationResonanceOperator, error) {
	resVec := [2]float64{float64(2-j) / 2, float64(j) / 2}
	lam0In, lam0Out, err := resonanceReferenceLambdas(state, indexIn, indexOut, lambda0, float64(j-2)/2)
	if err != nil {
		return nil, err
	}
	pIn, err := state.Particle(indexIn)
	if err != nil {
		return nil, err
	}
	pOut, err := state.Particle(indexOut)
	if err != nil {
		return nil, err
	}
	a, err := secondOrderInclinationResonanceMatrix(j, state.G(), pIn.Mu(), pOut.Mu(), pIn.M(), pOut.M(), lam0In, lam0Out, coeffs)
	if err != nil {
		return nil, err
	}
	return NewLinearInclinationResonanceOperator(state, indexIn, indexOut, resVec, a, dt)
}

// resonanceReferenceLambdas picks the pair's reference Lambdas either from a
// caller-supplied table indexed like the system's particles or, when the
// table is nil, from a two planet resonant chain with period ratio
// (1+s) : s.
func resonanceReferenceLambdas(state *Poincare, indexIn, indexOut int, lambda0 []float64, s float64) (lam0In, lam0Out float64, err error) {
	if indexIn >= indexOut {
		return 0, 0, cfgErrorf("indexIn=%d must precede indexOut=%d", indexIn, indexOut)
	}
	if lambda0 != nil {
		if len(lambda0) != state.N() {
			return 0, 0, cfgErrorf("expected %d reference Lambdas, got %d", state.N(), len(lambda0))
		}
		return lambda0[indexIn], lambda0[indexOut], nil
	}
	pIn, err := state.Particle(indexIn)
	if err != nil {
		return 0, 0, err
	}
	pOut, err := state.Particle(indexOut)
	if err != nil {
		return 0, 0, err
	}
	pair, err := NewPoincare(state.G(), []*PoincareParticle{pIn, pOut})
	if err != nil {
		return 0, 0, err
	}
	ref, err := ResonantChainReferenceLambdas(pair, []float64{s})
	if err != nil {
		return 0, 0, err
	}
	return ref[1], ref[2], nil
}

// ResonantChainReferenceLambdas distributes the system's total weighted
// angular momentum over a chain of resonances with consecutive period
// ratios (1+s_i) : s_i, returning Lambda values of the exact chain closest
// to the current state, indexed like the system's particles with entry 0
// unused.
func ResonantChainReferenceLambdas(state *Poincare, slist []float64) ([]float64, error) {
	planets := state.Planets()
	n := len(planets)
	if len(slist) != n-1 {
		return nil, cfgErrorf("chain of %d planets needs %d period ratios, got %d", n, n-1, len(slist))
	}
	for _, s := range slist {
		if s <= 0 {
			return nil, cfgErrorf("period ratio parameter must be positive, got %g", s)
		}
	}
	g := state.G()
	coeffs := make([]float64, n)
	alphaInv := make([]float64, n)
	coeffs[0] = 1 + slist[0]
	alphaInv[0] = 1
	tot := coeffs[0] * planets[0].Mu() * math.Sqrt(g*planets[0].M())
	for i := 1; i < n; i++ {
		s := slist[i-1]
		coeffs[i] = coeffs[i-1] * s / (1 + s)
		alphaInv[i] = alphaInv[i-1] * math.Pow((1+s)/s, 2.0/3)
		tot += coeffs[i] * planets[i].Mu() * math.Sqrt(g*planets[i].M()*alphaInv[i])
	}
	var c float64
	for i, p := range planets {
		c += coeffs[i] * p.Lambda()
	}
	a10 := (c / tot) * (c / tot)
	lam0 := make([]float64, n+1)
	for i, p := range planets {
		lam0[i+1] = p.Mu() * math.Sqrt(g*p.M()*a10*alphaInv[i])
	}
	return lam0, nil
}

func resonanceAlpha0(mIn, bigMIn, lam0In, mOut, bigMOut, lam0Out float64) float64 {
	aIn := lam0In / mIn * lam0In / mIn / bigMIn
	aOut := lam0Out / mOut * lam0Out / mOut / bigMOut
	return aIn / aOut
}

func resonancePrefactor(g, mIn, bigMIn, mOut, bigMOut, lam0Out float64) float64 {
	return -g * g * bigMOut * bigMOut * mOut * mOut * mOut * (mIn / bigMIn) / (lam0Out * lam0Out)
}

func firstOrderEccentricityResonanceMatrixAndVector(j int, g, mIn, mOut, bigMIn, bigMOut, lam0In, lam0Out float64, coeffs DFCoefficientSource) (*mat.SymDense, [2]float64, error) {
	a, err := secondOrderEccentricityResonanceMatrix(2*j, g, mIn, mOut, bigMIn, bigMOut, lam0In, lam0Out, coeffs)
	if err != nil {
		return nil, [2]float64{}, err
	}
	alpha0 := resonanceAlpha0(mIn, bigMIn, lam0In, mOut, bigMOut, lam0Out)
	bIn, err := coeffs.Coefficient([6]int{j, 1 - j, -1, 0, 0, 0}, [4]int{}, alpha0)
	if err != nil {
		return nil, [2]float64{}, err
	}
	bOut, err := coeffs.Coefficient([6]int{j, 1 - j, 0, -1, 0, 0}, [4]int{}, alpha0)
	if err != nil {
		return nil, [2]float64{}, err
	}
	pre := resonancePrefactor(g, mIn, bigMIn, mOut, bigMOut, lam0Out)
	b := [2]float64{
		pre * bIn * math.Sqrt(2/lam0In),
		pre * bOut * math.Sqrt(2/lam0Out),
	}
	return a, b, nil
}

// pairResonanceMatrix builds the scaled 2x2 interaction matrix with entries
// from the three second order cosine coefficients of the pair.
func pairResonanceMatrix(kIn, kOut [6]int, kMix [6]int, alpha0, scaleIn, scaleOut, pre float64, coeffs DFCoefficientSource) (*mat.SymDense, error) {
	cIn, err := coeffs.Coefficient(kIn, [4]int{}, alpha0)
	if err != nil {
		return nil, err
	}
	cOut, err := coeffs.Coefficient(kOut, [4]int{}, alpha0)
	if err != nil {
		return nil, err
	}
	cMix, err := coeffs.Coefficient(kMix, [4]int{}, alpha0)
	if err != nil {
		return nil, err
	}
	a := mat.NewSymDense(2, nil)
	a.SetSym(0, 0, pre*cIn*scaleIn*scaleIn)
	a.SetSym(1, 1, pre*cOut*scaleOut*scaleOut)
	a.SetSym(0, 1, pre*cMix/2*scaleIn*scaleOut)
	return a, nil
}

func secondOrderEccentricityResonanceMatrix(j int, g, mIn, mOut, bigMIn, bigMOut, lam0In, lam0Out float64, coeffs DFCoefficientSource) (*mat.SymDense, error) {
	alpha0 := resonanceAlpha0(mIn, bigMIn, lam0In, mOut, bigMOut, lam0Out)
	pre := resonancePrefactor(g, mIn, bigMIn, mOut, bigMOut, lam0Out)
	return pairResonanceMatrix(
		[6]int{j, 2 - j, -2, 0, 0, 0},
		[6]int{j, 2 - j, 0, -2, 0, 0},
		[6]int{j, 2 - j, -1, -1, 0, 0},
		alpha0, math.Sqrt(2/lam0In), math.Sqrt(2/lam0Out), pre, coeffs)
}

func secondOrderInclinationResonanceMatrix(j int, g, mIn, mOut, bigMIn, bigMOut, lam0In, lam0Out float64, coeffs DFCoefficientSource) (*mat.SymDense, error) {
	alpha0 := resonanceAlpha0(mIn, bigMIn, lam0In, mOut, bigMOut, lam0Out)
	pre := resonancePrefactor(g, mIn, bigMIn, mOut, bigMOut, lam0Out)
	return pairResonanceMatrix(
		[6]int{j, 2 - j, 0, 0, -2, 0},
		[6]int{j, 2 - j, 0, 0, 0, -2},
		[6]int{j, 2 - j, 0, 0, -1, -1},
		alpha0, math.Sqrt(0.5/lam0In), math.Sqrt(0.5/lam0Out), pre, coeffs)
}
