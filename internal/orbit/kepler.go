// Package orbit converts between the relative state of two bodies and
// their Kepler elements.
//
// Angles follow the usual convention: Incline is measured from the z
// axis of the frame, RotHorizon is the longitude of the ascending node and
// RotSelf the argument of pericenter. Unbound pairs carry a negative
// semi-major axis; their Period stores the hyperbolic time unit 2π/n so
// that time-of-flight formulas stay uniform.
package orbit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const twoPi = 2 * math.Pi

// Elements are the two-body orbital parameters of a pair.
type Elements struct {
	Semi       float64
	Ecc        float64
	Incline    float64
	RotHorizon float64
	RotSelf    float64
	Ecca       float64 // eccentric anomaly
	TPeri      float64 // time since pericenter, negative while approaching
	Period     float64
	R          float64 // current separation
}

// Bound reports whether the pair is on an elliptic orbit.
func (e Elements) Bound() bool { return e.Semi > 0 }

func (e Elements) Pericenter() float64 { return e.Semi * (1 - e.Ecc) }

func (e Elements) Apocenter() float64 { return e.Semi * (1 + e.Ecc) }

// MeanMotion returns n = sqrt(G m / |a|^3).
func MeanMotion(semi, gm float64) float64 {
	a := math.Abs(semi)
	return math.Sqrt(gm / (a * a * a))
}

// FromRelative computes the elements of two bodies with masses m1, m2,
// separation dr = x2 - x1 and relative velocity dv = v2 - v1.
func FromRelative(m1, m2 float64, dr, dv r3.Vec, G float64) Elements {
	var el Elements
	gm := G * (m1 + m2)
	r := r3.Norm(dr)
	v2 := r3.Norm2(dv)
	drdv := r3.Dot(dr, dv)

	el.R = r
	el.Semi = 1.0 / (2.0/r - v2/gm)

	h := r3.Cross(dr, dv)
	eccVec := r3.Sub(r3.Scale(1/gm, r3.Cross(dv, h)), r3.Scale(1/r, dr))
	el.Ecc = r3.Norm(eccVec)

	hxy := math.Hypot(h.X, h.Y)
	el.Incline = math.Atan2(hxy, h.Z)

	if hxy > 0 {
		el.RotHorizon = math.Atan2(h.X, -h.Y)
		node := r3.Vec{X: math.Cos(el.RotHorizon), Y: math.Sin(el.RotHorizon)}
		hunit := r3.Unit(h)
		el.RotSelf = math.Atan2(r3.Dot(eccVec, r3.Cross(hunit, node)), r3.Dot(eccVec, node))
	} else {
		el.RotHorizon = 0
		el.RotSelf = math.Atan2(eccVec.Y, eccVec.X)
		if h.Z < 0 {
			el.RotSelf = -el.RotSelf
		}
	}

	n := MeanMotion(el.Semi, gm)
	el.Period = twoPi / n
	if el.Bound() {
		sq := math.Sqrt(gm * el.Semi)
		el.Ecca = math.Atan2(drdv/sq, 1-r/el.Semi)
	} else {
		sq := math.Sqrt(-gm * el.Semi)
		if el.Ecc > 0 {
			el.Ecca = math.Asinh(drdv / sq / el.Ecc)
		}
	}
	el.TPeri = el.MeanAnomaly(el.Ecca) / n
	return el
}

// MeanAnomaly returns the mean anomaly for eccentric anomaly E.
func (e Elements) MeanAnomaly(E float64) float64 {
	if e.Bound() {
		return E - e.Ecc*math.Sin(E)
	}
	return e.Ecc*math.Sinh(E) - E
}

// EccAnomalyFromR returns the non-negative eccentric anomaly at separation
// r. It uses the half-angle forms
//
//	tan(E/2)  = sqrt((r - peri) / (apo - r))   bound
//	tanh(E/2) = sqrt((r - peri) / (r - apo))   hyperbolic, apo = a(1+e) < 0
//
// which stay accurate close to both pericenter and apocenter.
func (e Elements) EccAnomalyFromR(r float64) float64 {
	if e.Ecc == 0 {
		return 0
	}
	peri, apo := e.Pericenter(), e.Apocenter()
	num := math.Sqrt(math.Max(0, r-peri))
	if e.Bound() {
		return 2 * math.Atan2(num, math.Sqrt(math.Max(0, apo-r)))
	}
	return 2 * math.Atanh(math.Min(num/math.Sqrt(r-apo), 1-1e-16))
}

// TimeToPericenter returns |M|/n for the pair at separation r, the time
// needed to reach pericenter when the pair is approaching.
func (e Elements) TimeToPericenter(r float64) float64 {
	E := e.EccAnomalyFromR(r)
	return math.Abs(e.MeanAnomaly(E) / twoPi * e.Period)
}

// ToRelative returns dr = x2 - x1 and dv = v2 - v1 for the elements. Ecca
// selects the orbital phase.
func (e Elements) ToRelative(m1, m2, G float64) (r3.Vec, r3.Vec) {
	gm := G * (m1 + m2)
	var x, y, vx, vy float64
	if e.Bound() {
		a := e.Semi
		sinE, cosE := math.Sincos(e.Ecca)
		b := math.Sqrt(1 - e.Ecc*e.Ecc)
		r := a * (1 - e.Ecc*cosE)
		x = a * (cosE - e.Ecc)
		y = a * b * sinE
		sq := math.Sqrt(gm * a)
		vx = -sq * sinE / r
		vy = sq * b * cosE / r
	} else {
		a := -e.Semi
		sh, ch := math.Sinh(e.Ecca), math.Cosh(e.Ecca)
		b := math.Sqrt(e.Ecc*e.Ecc - 1)
		r := a * (e.Ecc*ch - 1)
		x = a * (e.Ecc - ch)
		y = a * b * sh
		sq := math.Sqrt(gm * a)
		vx = -sq * sh / r
		vy = sq * b * ch / r
	}
	return e.rotate(x, y), e.rotate(vx, vy)
}

// rotate maps an orbital-plane vector into the frame: Rz(Ω) Rx(i) Rz(ω).
func (e Elements) rotate(x, y float64) r3.Vec {
	sw, cw := math.Sincos(e.RotSelf)
	si, ci := math.Sincos(e.Incline)
	so, co := math.Sincos(e.RotHorizon)

	a := x*cw - y*sw
	b := x*sw + y*cw
	c := b * ci
	d := b * si
	return r3.Vec{X: a*co - c*so, Y: a*so + c*co, Z: d}
}
