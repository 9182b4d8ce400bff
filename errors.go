package celmech

import "fmt"

// ConfigurationError signals an invalid request to a constructor or builder,
// such as contradictory initialization parameters or an unsupported term.
type ConfigurationError struct {
	What string
}

func (e ConfigurationError) Error() string {
	return "celmech: invalid configuration: " + e.What
}

// cfgErrorf builds a ConfigurationError from a format string.
func cfgErrorf(format string, args ...interface{}) ConfigurationError {
	return ConfigurationError{fmt.Sprintf(format, args...)}
}

// PhysicalStateError signals canonical variables which do not correspond to
// a physical bound orbit, such as an eccentricity at or above unity.
type PhysicalStateError struct {
	What string
}

func (e PhysicalStateError) Error() string {
	return "celmech: unphysical state: " + e.What
}

// OrbitGeometryError signals orbital elements outside the range the Poincare
// construction supports.
type OrbitGeometryError struct {
	What string
}

func (e OrbitGeometryError) Error() string {
	return "celmech: unsupported orbit geometry: " + e.What
}
