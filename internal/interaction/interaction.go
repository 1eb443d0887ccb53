// Package interaction implements the force kernel of a regularized
// few-body group: inner accelerations, potential and the kick time
// transformation factor, the tidal acceleration and slowdown
// perturbation from external bodies, and the merger detector.
//
// Every variant of the kernel is chosen through Options when the
// Interaction is created, so several variants can run side by side. An
// Interaction holds no per-group state and may be shared between
// goroutines integrating different groups.
package interaction

import (
	"fmt"
	"math"

	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/particle"
	"gonum.org/v1/gonum/spatial/r3"
)

type Interaction struct {
	G     float64
	EpsSq float64
	Opts  Options
}

// New validates the physical constants and options. A misconfigured
// constant invalidates everything downstream so nothing is clamped.
func New(G, epsSq float64, opts Options) (*Interaction, error) {
	if !(G > 0) || math.IsInf(G, 0) {
		return nil, dynamo.Bounds("G", G)
	}
	if !(epsSq >= 0) || math.IsInf(epsSq, 0) {
		return nil, dynamo.Bounds("eps_sq", epsSq)
	}
	if epsSq > 0 && !opts.Softened {
		return nil, fmt.Errorf("%w: eps_sq = %g needs the softened kernel", dynamo.ErrParameterBounds, epsSq)
	}
	if opts.Softened && epsSq == 0 {
		return nil, fmt.Errorf("%w: softened kernel needs eps_sq > 0", dynamo.ErrParameterBounds)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Interaction{G: G, EpsSq: epsSq, Opts: opts}, nil
}

// kick converts the transformation value |U| into the configured form.
func (in *Interaction) kick(kickInv float64) float64 {
	if in.Opts.KickForm == KickDirect {
		return 1 / kickInv
	}
	return kickInv
}

// CalcInnerAccPotTwo is the closed form for a pair. It overwrites AccIn
// and GTGrad of both forces and returns the potential energy and the
// kick factor.
func (in *Interaction) CalcInnerAccPotTwo(f1, f2 *particle.Force, p1, p2 *particle.Particle) (float64, float64) {
	m1, m2 := p1.Mass, p2.Mass
	dr := r3.Sub(p2.Pos, p1.Pos)
	r2 := r3.Norm2(dr) + in.EpsSq
	invR := 1 / math.Sqrt(r2)
	invR3 := invR * invR * invR

	f1.AccIn = r3.Scale(in.G*m2*invR3, dr)
	f2.AccIn = r3.Scale(-in.G*m1*invR3, dr)

	gm1m2 := in.G * m1 * m2
	epot := -gm1m2 * invR

	var kickInv float64
	if in.Opts.Accumulation == Product {
		kickInv = math.Sqrt(m1*m2) * invR
	} else {
		kickInv = gm1m2 * invR
	}

	if in.Opts.Formulation == TTL {
		var g float64
		if in.Opts.Accumulation == Product {
			g = kickInv * invR * invR
		} else {
			g = gm1m2 * invR3
		}
		f1.GTGrad = r3.Scale(g, dr)
		f2.GTGrad = r3.Scale(-g, dr)
	} else {
		f1.GTGrad = r3.Vec{}
		f2.GTGrad = r3.Vec{}
	}

	return epot, in.kick(kickInv)
}

// CalcInnerAccPot sums over all ordered pairs of ps. Each pair enters the
// potential twice, which the final halving removes.
func (in *Interaction) CalcInnerAccPot(forces []particle.Force, ps []particle.Particle) (float64, float64) {
	product := in.Opts.Accumulation == Product
	ttl := in.Opts.Formulation == TTL

	epot := 0.0
	kickInv := 0.0
	if product {
		kickInv = 1
	}

	for i := range ps {
		mi := ps[i].Mass
		fi := &forces[i]
		fi.AccIn = r3.Vec{}
		fi.GTGrad = r3.Vec{}

		poti := 0.0
		gtki := 0.0
		if product {
			gtki = 1
		}

		for j := range ps {
			if i == j {
				continue
			}
			mj := ps[j].Mass
			dr := r3.Sub(ps[j].Pos, ps[i].Pos)
			r2 := r3.Norm2(dr) + in.EpsSq
			invR := 1 / math.Sqrt(r2)
			invR3 := invR * invR * invR

			gmor3 := in.G * mj * invR3
			fi.AccIn = r3.Add(fi.AccIn, r3.Scale(gmor3, dr))

			if ttl {
				if product {
					fi.GTGrad = r3.Add(fi.GTGrad, r3.Scale(invR*invR, dr))
				} else {
					fi.GTGrad = r3.Add(fi.GTGrad, r3.Scale(mi*gmor3, dr))
				}
			}

			gmor := in.G * mj * invR
			poti -= gmor
			if product {
				gtki *= invR
			} else {
				gtki += gmor
			}
		}

		epot += poti * mi
		if product {
			kickInv *= gtki * mi
		} else {
			kickInv += gtki * mi
		}
	}
	epot *= 0.5

	if product {
		kickInv = math.Sqrt(kickInv)
		if ttl {
			for i := range ps {
				forces[i].GTGrad = r3.Scale(kickInv, forces[i].GTGrad)
			}
		}
	} else {
		kickInv *= 0.5
	}

	return epot, in.kick(kickInv)
}

// CalcInnerAcc dispatches to the pair fast path for two bodies.
func (in *Interaction) CalcInnerAcc(forces []particle.Force, ps []particle.Particle) (float64, float64, error) {
	n := len(ps)
	if n < 2 {
		return 0, 0, fmt.Errorf("%w: %d particles", dynamo.ErrDegenerate, n)
	}
	if len(forces) < n {
		return 0, 0, fmt.Errorf("%w: %d forces for %d particles", dynamo.ErrParameterBounds, len(forces), n)
	}
	if n == 2 {
		epot, kick := in.CalcInnerAccPotTwo(&forces[0], &forces[1], &ps[0], &ps[1])
		return epot, kick, nil
	}
	epot, kick := in.CalcInnerAccPot(forces[:n], ps)
	return epot, kick, nil
}

// KickStep converts a fictitious step into the physical time of a kick.
func (in *Interaction) KickStep(ds, kick float64) float64 {
	if in.Opts.KickForm == KickDirect {
		return ds * kick
	}
	return ds / kick
}

// DriftStep converts a fictitious step into the physical time of a drift
// for the LogH formulation.
func (in *Interaction) DriftStep(ds, ekinMinusEtot float64) float64 {
	return ds / ekinMinusEtot
}

// CalcH returns the LogH Hamiltonian log(T + B) - log(-U), which stays
// zero along an exact trajectory.
func (in *Interaction) CalcH(ekinMinusEtot, epot float64) float64 {
	return math.Log(ekinMinusEtot) - math.Log(-epot)
}
