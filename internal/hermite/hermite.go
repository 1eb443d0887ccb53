// Package hermite provides the softened pair force of the outer Hermite
// driver: acceleration, jerk and potential between bodies that are not
// part of the same regularized group. It is used to prepare perturber
// states for prediction.
package hermite

import (
	"math"

	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/perturber"
	"gonum.org/v1/gonum/spatial/r3"
)

type Body struct {
	Mass float64
	Pos  r3.Vec
	Vel  r3.Vec
}

// ForceH4 accumulates acceleration, jerk and potential per unit mass.
type ForceH4 struct {
	Acc0 r3.Vec
	Acc1 r3.Vec
	Pot  float64
}

type Pair struct {
	G     float64
	EpsSq float64
}

func NewPair(G, epsSq float64) (Pair, error) {
	if !(G > 0) {
		return Pair{}, dynamo.Bounds("G", G)
	}
	if !(epsSq >= 0) {
		return Pair{}, dynamo.Bounds("eps_sq", epsSq)
	}
	return Pair{G: G, EpsSq: epsSq}, nil
}

// AccJerk adds the force of bj on bi to fi and returns the unsoftened
// squared separation.
func (p Pair) AccJerk(fi *ForceH4, bi, bj Body) float64 {
	dr := r3.Sub(bj.Pos, bi.Pos)
	dv := r3.Sub(bj.Vel, bi.Vel)
	dr2 := r3.Norm2(dr)
	drdv := r3.Dot(dr, dv)

	rinv := 1 / math.Sqrt(dr2+p.EpsSq)
	rinv2 := rinv * rinv
	mor3 := p.G * bj.Mass * rinv2 * rinv

	acc0 := r3.Scale(mor3, dr)
	acc1 := r3.Sub(r3.Scale(mor3, dv), r3.Scale(3*drdv*rinv2, acc0))

	fi.Acc0 = r3.Add(fi.Acc0, acc0)
	fi.Acc1 = r3.Add(fi.Acc1, acc1)
	fi.Pot -= p.G * bj.Mass * rinv
	return dr2
}

// AccJerkMembers adds the force of every member of a resolved group and
// returns the smallest squared separation.
func (p Pair) AccJerkMembers(fi *ForceH4, bi Body, members []Body) float64 {
	r2min := math.MaxFloat64
	for _, bj := range members {
		r2min = math.Min(r2min, p.AccJerk(fi, bi, bj))
	}
	return r2min
}

// Evaluate computes the mutual forces of all bodies.
func (p Pair) Evaluate(bodies []Body) []ForceH4 {
	forces := make([]ForceH4, len(bodies))
	for i := range bodies {
		for j := range bodies {
			if i != j {
				p.AccJerk(&forces[i], bodies[i], bodies[j])
			}
		}
	}
	return forces
}

// Perturber packs a body and its force at time t for prediction.
func Perturber(kind perturber.Kind, b Body, f ForceH4, t float64) perturber.Perturber {
	return perturber.Perturber{
		Kind: kind,
		Mass: b.Mass,
		Time: t,
		Pos:  b.Pos,
		Vel:  b.Vel,
		Acc0: f.Acc0,
		Acc1: f.Acc1,
	}
}
