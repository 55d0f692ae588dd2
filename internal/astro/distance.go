// Package astro holds the photometric calculations used when requests are completed.
package astro

import "math"

// AbsoluteMagnitude is the assumed absolute magnitude of a galaxy (Type Ia supernova peak).
const AbsoluteMagnitude = -19.3

const parsecsPerMegaparsec = 1e6

// DistanceMpc converts an apparent magnitude into a distance in megaparsecs
// using the distance modulus m - M = 5 log10(d) - 5.
func DistanceMpc(apparentMagnitude float64) float64 {
	parsecs := math.Pow(10, (apparentMagnitude-AbsoluteMagnitude+5)/5)
	return parsecs / parsecsPerMegaparsec
}
