package orbit

import "math"

// SolveKepler returns the eccentric anomaly E for mean anomaly M.
// Elliptic orbits solve M = E - e sin E, hyperbolic ones M = e sinh E - E.
func SolveKepler(M, ecc float64) float64 {
	const (
		tolerance     = 1e-14
		maxIterations = 64
	)

	if ecc < 1 {
		M = math.Remainder(M, twoPi)
		E := M
		if ecc > 0.8 {
			E = math.Copysign(math.Pi, M)
		}
		for i := 0; i < maxIterations; i++ {
			f := E - ecc*math.Sin(E) - M
			dE := f / (1 - ecc*math.Cos(E))
			E -= dE
			if math.Abs(dE) < tolerance {
				break
			}
		}
		return E
	}

	E := math.Asinh(M / ecc)
	for i := 0; i < maxIterations; i++ {
		f := ecc*math.Sinh(E) - E - M
		dE := f / (ecc*math.Cosh(E) - 1)
		E -= dE
		if math.Abs(dE) < tolerance*math.Max(1, math.Abs(E)) {
			break
		}
	}
	return E
}

// AtMeanAnomaly returns a copy of e placed at mean anomaly M.
func (e Elements) AtMeanAnomaly(M float64) Elements {
	e.Ecca = SolveKepler(M, e.Ecc)
	e.TPeri = M / twoPi * e.Period
	return e
}
