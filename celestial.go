package celmech

import "strings"

// CelestialObject defines a planet of the solar system by its mass in solar
// masses and its mean heliocentric orbit, semimajor axis in astronomical
// units and angles in radians. Mean longitudes and apse angles are left at
// zero; set them on the BodyElements when a scenario needs phases.
type CelestialObject struct {
	Name string
	Mass float64
	A    float64
	E    float64
	Inc  float64
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return "Body " + c.Name
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Mass == b.Mass
}

// Elements returns the body's mean orbit as scenario elements.
func (c CelestialObject) Elements() BodyElements {
	return BodyElements{Mass: c.Mass, A: c.A, E: c.E, Inc: c.Inc}
}

// Mean orbits from Murray & Dermott, table A.2, masses from the DE ephemeris
// mass ratios.
var (
	Mercury = CelestialObject{"Mercury", 1.6601e-7, 0.3871, 0.2056, Deg2rad(7.005)}
	Venus   = CelestialObject{"Venus", 2.4478e-6, 0.7233, 0.0068, Deg2rad(3.395)}
	Earth   = CelestialObject{"Earth", 3.0035e-6, 1.0000, 0.0167, Deg2rad(0.0)}
	Mars    = CelestialObject{"Mars", 3.2272e-7, 1.5237, 0.0934, Deg2rad(1.850)}
	Jupiter = CelestialObject{"Jupiter", 9.5458e-4, 5.2026, 0.0484, Deg2rad(1.303)}
	Saturn  = CelestialObject{"Saturn", 2.8581e-4, 9.5549, 0.0542, Deg2rad(2.485)}
	Uranus  = CelestialObject{"Uranus", 4.3662e-5, 19.2184, 0.0472, Deg2rad(0.772)}
	Neptune = CelestialObject{"Neptune", 5.1514e-5, 30.1104, 0.0086, Deg2rad(1.769)}
)

// CelestialObjectFromString returns the object from its name.
func CelestialObjectFromString(name string) (CelestialObject, error) {
	for _, c := range []CelestialObject{Mercury, Venus, Earth, Mars, Jupiter, Saturn, Uranus, Neptune} {
		if strings.EqualFold(name, c.Name) {
			return c, nil
		}
	}
	return CelestialObject{}, cfgErrorf("unknown celestial object %q", name)
}

// SolarSystemState assembles a scenario with the Sun as the central body,
// G=1 and the given planets on their mean orbits. The planets must be
// listed from the innermost out.
func SolarSystemState(bodies ...CelestialObject) ExternalState {
	st := ExternalState{G: 1, CentralMass: 1}
	for _, b := range bodies {
		st.Bodies = append(st.Bodies, b.Elements())
	}
	return st
}
