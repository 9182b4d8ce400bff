package celmech

// DFCoefficientSource supplies numerical coefficients of individual cosine
// terms of the planetary disturbing function. The wavevector k collects the
// integer multiples of (lambdaOut, lambdaIn, pomegaIn, pomegaOut, OmegaIn,
// OmegaOut) in the cosine argument; nu collects the extra powers of the
// inclination actions (in, out) and eccentricity actions (in, out) beyond
// the minimum set by k.
type DFCoefficientSource interface {
	// Coefficient returns the dimensionless coefficient of the term at
	// semimajor axis ratio alpha.
	Coefficient(k [6]int, nu [4]int, alpha float64) (float64, error)
	// DeltaExpansion returns the Taylor coefficients of the term in the
	// fractional Lambda offsets of the inner and outer planet, up to
	// total degree lmax, keyed by the (inner, outer) powers.
	DeltaExpansion(k [6]int, nu [4]int, lmax int, alpha float64) (map[[2]int]float64, error)
}

// LaplaceSource evaluates disturbing function coefficients from classical
// Laplace coefficient expressions. It covers the secular terms to second
// order in eccentricities and inclinations and the first and second order
// mean motion resonance terms.
type LaplaceSource struct{}

// canonicalKVec flips the sign of k when its first nonzero entry is
// negative; cosine symmetry makes the two wavevectors equivalent.
func canonicalKVec(k [6]int) [6]int {
	for _, v := range k {
		if v > 0 {
			return k
		}
		if v < 0 {
			for i := range k {
				k[i] = -k[i]
			}
			return k
		}
	}
	return k
}

func isZeroNu(nu [4]int) bool {
	return nu[0] == 0 && nu[1] == 0 && nu[2] == 0 && nu[3] == 0
}

// Coefficient implements DFCoefficientSource. Wavevectors outside the
// covered families yield a ConfigurationError.
func (LaplaceSource) Coefficient(k [6]int, nu [4]int, alpha float64) (float64, error) {
	sum := 0
	for _, v := range k {
		sum += v
	}
	if sum != 0 {
		return 0, cfgErrorf("wavevector %v violates rotational invariance", k)
	}
	k = canonicalKVec(k)

	if k == [6]int{} {
		// Secular terms without an angle.
		switch nu {
		case [4]int{0, 0, 0, 0}:
			return 0.5 * LaplaceB(0.5, 0, 0, alpha), nil
		case [4]int{0, 0, 1, 0}, [4]int{0, 0, 0, 1}:
			// e^2 secular coefficient.
			return (2*alpha*LaplaceB(0.5, 0, 1, alpha) + alpha*alpha*LaplaceB(0.5, 0, 2, alpha)) / 8, nil
		case [4]int{1, 0, 0, 0}, [4]int{0, 1, 0, 0}:
			// s^2 secular coefficient.
			return -0.5 * alpha * LaplaceB(1.5, 1, 0, alpha), nil
		}
		return 0, cfgErrorf("unsupported secular powers nu=%v", nu)
	}
	if !isZeroNu(nu) {
		return 0, cfgErrorf("extra action powers nu=%v are only supported for secular terms", nu)
	}

	switch {
	case k[0] == 0 && k[1] == 0:
		// Secular terms with a pericenter or node angle.
		switch {
		case k[2] == 1 && k[3] == -1 && k[4] == 0 && k[5] == 0:
			b0 := LaplaceB(0.5, 1, 0, alpha)
			b1 := LaplaceB(0.5, 1, 1, alpha)
			b2 := LaplaceB(0.5, 1, 2, alpha)
			return (2*b0 - 2*alpha*b1 - alpha*alpha*b2) / 4, nil
		case k[2] == 0 && k[3] == 0 && k[4] == 1 && k[5] == -1:
			return alpha * LaplaceB(1.5, 1, 0, alpha), nil
		}
	case k[0] >= 1 && k[1] == 1-k[0]:
		// First order resonance j : j-1.
		j := k[0]
		switch {
		case k[2] == -1 && k[3] == 0 && k[4] == 0 && k[5] == 0:
			c := (float64(-2*j)*LaplaceB(0.5, j, 0, alpha) - alpha*LaplaceB(0.5, j, 1, alpha)) / 2
			return c, nil
		case k[2] == 0 && k[3] == -1 && k[4] == 0 && k[5] == 0:
			c := (float64(2*j-1)*LaplaceB(0.5, j-1, 0, alpha) + alpha*LaplaceB(0.5, j-1, 1, alpha)) / 2
			if j == 2 {
				c -= 2 * alpha // indirect contribution of the 2:1
			}
			return c, nil
		}
	case k[0] >= 1 && k[1] == 2-k[0]:
		// Second order resonance j : j-2.
		j := k[0]
		fj := float64(j)
		switch {
		case k[2] == -2 && k[3] == 0 && k[4] == 0 && k[5] == 0:
			b0 := LaplaceB(0.5, j-2, 0, alpha)
			b1 := LaplaceB(0.5, j-2, 1, alpha)
			b2 := LaplaceB(0.5, j-2, 2, alpha)
			return ((4*fj*fj-5*fj)*b0 + (4*fj-2)*alpha*b1 + alpha*alpha*b2) / 8, nil
		case k[2] == -1 && k[3] == -1 && k[4] == 0 && k[5] == 0:
			b0 := LaplaceB(0.5, j-1, 0, alpha)
			b1 := LaplaceB(0.5, j-1, 1, alpha)
			b2 := LaplaceB(0.5, j-1, 2, alpha)
			return ((-2+6*fj-4*fj*fj)*b0 + (2-4*fj)*alpha*b1 - alpha*alpha*b2) / 4, nil
		case k[2] == 0 && k[3] == -2 && k[4] == 0 && k[5] == 0:
			b0 := LaplaceB(0.5, j, 0, alpha)
			b1 := LaplaceB(0.5, j, 1, alpha)
			b2 := LaplaceB(0.5, j, 2, alpha)
			return ((2-7*fj+4*fj*fj)*b0 + (4*fj-2)*alpha*b1 + alpha*alpha*b2) / 8, nil
		case k[2] == 0 && k[3] == 0 && (k[4] == -2 && k[5] == 0 || k[4] == 0 && k[5] == -2):
			return 0.5 * alpha * LaplaceB(1.5, j-1, 0, alpha), nil
		case k[2] == 0 && k[3] == 0 && k[4] == -1 && k[5] == -1:
			return -alpha * LaplaceB(1.5, j-1, 0, alpha), nil
		}
	}
	return 0, cfgErrorf("unsupported disturbing function term k=%v nu=%v", k, nu)
}

// DeltaExpansion implements DFCoefficientSource. Only total degree zero and
// one are available; the ratio alpha scales as (1+deltaIn)^2/(1+deltaOut)^2,
// so the first order coefficients follow from the alpha derivative, taken
// here by central difference.
func (l LaplaceSource) DeltaExpansion(k [6]int, nu [4]int, lmax int, alpha float64) (map[[2]int]float64, error) {
	if lmax < 0 {
		return nil, cfgErrorf("negative expansion degree %d", lmax)
	}
	if lmax > 1 {
		return nil, cfgErrorf("Lambda expansion beyond first order is not available from closed forms")
	}
	c0, err := l.Coefficient(k, nu, alpha)
	if err != nil {
		return nil, err
	}
	out := map[[2]int]float64{{0, 0}: c0}
	if lmax == 0 {
		return out, nil
	}
	const h = 1e-6
	lo, err := l.Coefficient(k, nu, alpha-h)
	if err != nil {
		return nil, err
	}
	hi, err := l.Coefficient(k, nu, alpha+h)
	if err != nil {
		return nil, err
	}
	dCdAlpha := (hi - lo) / (2 * h)
	out[[2]int{1, 0}] = 2 * alpha * dCdAlpha
	out[[2]int{0, 1}] = -2 * alpha * dCdAlpha
	return out, nil
}
