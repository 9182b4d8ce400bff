package celmech

// Perturbations selects the corrections added to a Hamiltonian on top of
// the disturbing function expansion.
type Perturbations struct {
	J2            float64 // second zonal harmonic of the central body
	Radius        float64 // central body radius, required with J2
	C             float64 // speed of light, enables the leading general relativity correction
	MaxEIOrder    int     // eccentricity and inclination truncation, defaults to 2
	MaxDeltaOrder int     // semimajor axis deviation truncation for J2, defaults to 1
	Particles     []int   // planet indices, nil means all
}

func (p Perturbations) isEmpty() bool {
	return p.J2 == 0 && p.C == 0
}

// Perturb adds the selected correction terms to the Hamiltonian. Call it
// before Finalize.
func (p Perturbations) Perturb(ph *PoincareHamiltonian) error {
	if p.isEmpty() {
		return nil
	}
	eiOrder := p.MaxEIOrder
	if eiOrder == 0 {
		eiOrder = 2
	}
	if p.J2 != 0 {
		deltaOrder := p.MaxDeltaOrder
		if deltaOrder == 0 {
			deltaOrder = 1
		}
		if err := ph.AddOrbitAverageJ2Terms(p.J2, p.Radius, eiOrder, deltaOrder, p.Particles); err != nil {
			return err
		}
	}
	if p.C != 0 {
		if err := ph.AddGRPotentialTerms(p.C, eiOrder, p.Particles); err != nil {
			return err
		}
	}
	return nil
}
