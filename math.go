package celmech

import "math"

const (
	deg2rad = math.Pi / 180
)

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// binomial returns the binomial coefficient C(n, k) as a float.
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	c := 1.0
	for i := 0; i < k; i++ {
		c = c * float64(n-i) / float64(i+1)
	}
	return c
}

// LaplaceB returns the d-th derivative in alpha of the Laplace coefficient
// b_s^(j)(alpha), evaluated by its power series in alpha. The series
// converges for 0 <= alpha < 1; callers are expected to stay well inside
// that range (alpha is a ratio of semimajor axes).
func LaplaceB(s float64, j, d int, alpha float64) float64 {
	if j < 0 {
		j = -j // b_s^(-j) = b_s^(j)
	}
	total := 0.0
	// Leading coefficient 2 * prod_{i<j} (s+i)/(i+1).
	c := 2.0
	for i := 0; i < j; i++ {
		c *= (s + float64(i)) / float64(i+1)
	}
	for n := 0; ; n++ {
		e := j + 2*n
		term := c
		for r := 0; r < d; r++ {
			term *= float64(e - r)
		}
		if term != 0 && e-d >= 0 {
			term *= math.Pow(alpha, float64(e-d))
			total += term
			if math.Abs(term) < 1e-16*math.Abs(total)+1e-300 {
				return total
			}
		}
		if n > 300 {
			return total
		}
		c *= (s + float64(n)) * (s + float64(j+n)) / (float64(n+1) * float64(j+n+1))
	}
}
