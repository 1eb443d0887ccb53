package particle

import "gonum.org/v1/gonum/spatial/r3"

// Mass returns the total mass of ps.
func Mass(ps []Particle) float64 {
	m := 0.0
	for i := range ps {
		m += ps[i].Mass
	}
	return m
}

// CenterOfMass returns the mass, position and velocity of the c.m. of ps.
// A massless group returns the zero state.
func CenterOfMass(ps []Particle) (float64, r3.Vec, r3.Vec) {
	var pos, vel r3.Vec
	m := 0.0
	for i := range ps {
		m += ps[i].Mass
		pos = r3.Add(pos, r3.Scale(ps[i].Mass, ps[i].Pos))
		vel = r3.Add(vel, r3.Scale(ps[i].Mass, ps[i].Vel))
	}
	if m == 0 {
		return 0, r3.Vec{}, r3.Vec{}
	}
	return m, r3.Scale(1/m, pos), r3.Scale(1/m, vel)
}

// ShiftToCenterOfMass moves ps into their c.m. frame and returns the c.m.
// position and velocity that were removed.
func ShiftToCenterOfMass(ps []Particle) (r3.Vec, r3.Vec) {
	_, pos, vel := CenterOfMass(ps)
	Shift(ps, r3.Scale(-1, pos), r3.Scale(-1, vel))
	return pos, vel
}

// Shift adds dpos and dvel to every particle.
func Shift(ps []Particle, dpos, dvel r3.Vec) {
	for i := range ps {
		ps[i].Pos = r3.Add(ps[i].Pos, dpos)
		ps[i].Vel = r3.Add(ps[i].Vel, dvel)
	}
}

// KineticEnergy returns sum m v^2 / 2.
func KineticEnergy(ps []Particle) float64 {
	ekin := 0.0
	for i := range ps {
		ekin += 0.5 * ps[i].Mass * r3.Norm2(ps[i].Vel)
	}
	return ekin
}

// AngularMomentum returns sum m (x cross v).
func AngularMomentum(ps []Particle) r3.Vec {
	var l r3.Vec
	for i := range ps {
		l = r3.Add(l, r3.Scale(ps[i].Mass, r3.Cross(ps[i].Pos, ps[i].Vel)))
	}
	return l
}
