package interaction

import (
	"fmt"
	"math"

	"github.com/san-kum/fewbody/internal/bintree"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/perturber"
	"github.com/san-kum/fewbody/internal/slowdown"
	"gonum.org/v1/gonum/spatial/r3"
)

// CalcAccPotAndKick fills AccIn, GTGrad and AccPert for a group whose
// members are stored relative to cm, and returns the inner potential and
// the kick factor.
func (in *Interaction) CalcAccPotAndKick(forces []particle.Force, ps []particle.Particle, cm *perturber.Perturber, list *perturber.List, time float64) (float64, float64, error) {
	epot, kick, err := in.CalcInnerAcc(forces, ps)
	if err != nil {
		return 0, 0, err
	}
	if err := in.CalcAccPert(forces, ps, cm, list, time); err != nil {
		return 0, 0, err
	}
	return epot, kick, nil
}

// groupFrame returns the c.m. state and mass of the group at time.
func groupFrame(cm *perturber.Perturber, ps []particle.Particle, time float64) (r3.Vec, r3.Vec, float64, error) {
	if cm == nil {
		return r3.Vec{}, r3.Vec{}, particle.Mass(ps), nil
	}
	pos, vel, err := cm.Predict(time)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, 0, fmt.Errorf("group c.m.: %w", err)
	}
	return pos, vel, cm.Mass, nil
}

// accFrom returns the acceleration at x from the predicted perturbers.
func (in *Interaction) accFrom(x r3.Vec, preds []perturber.Predicted) r3.Vec {
	var acc r3.Vec
	for j := range preds {
		dr := r3.Sub(preds[j].Pos, x)
		r2 := r3.Norm2(dr) + in.EpsSq
		r := math.Sqrt(r2)
		acc = r3.Add(acc, r3.Scale(in.G*preds[j].Mass/(r*r2), dr))
	}
	return acc
}

// CalcAccPert resets AccPert and fills it with the tidal acceleration of
// the perturbers: the acceleration of each member minus that of the whole
// group. With NeedResolve the group acceleration is the mass-weighted
// mean over members, otherwise it is evaluated at the c.m.
func (in *Interaction) CalcAccPert(forces []particle.Force, ps []particle.Particle, cm *perturber.Perturber, list *perturber.List, time float64) error {
	for i := range ps {
		forces[i].AccPert = r3.Vec{}
	}
	if list == nil || list.Len() == 0 {
		return nil
	}

	preds, err := list.PredictAll(nil, time)
	if err != nil {
		return err
	}
	xcm, _, mcm, err := groupFrame(cm, ps, time)
	if err != nil {
		return err
	}

	var accCM r3.Vec
	if list.NeedResolve {
		for i := range ps {
			acc := in.accFrom(r3.Add(ps[i].Pos, xcm), preds)
			forces[i].AccPert = acc
			accCM = r3.Add(accCM, r3.Scale(ps[i].Mass, acc))
		}
		if mcm > 0 {
			accCM = r3.Scale(1/mcm, accCM)
		}
	} else {
		accCM = in.accFrom(xcm, preds)
		for i := range ps {
			forces[i].AccPert = in.accFrom(r3.Add(ps[i].Pos, xcm), preds)
		}
	}

	for i := range ps {
		forces[i].AccPert = r3.Sub(forces[i].AccPert, accCM)
	}
	return nil
}

// CalcPertFromBinary returns m1 m2 / apo^p for a node.
func (in *Interaction) CalcPertFromBinary(nd *bintree.Node) float64 {
	apo := nd.Apocenter()
	return nd.M1 * nd.M2 / in.pow(apo)
}

// CalcPertFromMR returns mp mpert / r^p.
func (in *Interaction) CalcPertFromMR(r, mp, mpert float64) float64 {
	return mp * mpert / in.pow(r)
}

func (in *Interaction) pow(r float64) float64 {
	r2 := r * r
	if in.Opts.PertExponent == Quartic {
		return r2 * r2
	}
	return r2 * r
}

// boundPeriod is the period a slowdown may scale; unbound pairs have none.
func boundPeriod(nd *bintree.Node) float64 {
	if nd.Bound() {
		return nd.Period
	}
	return 0
}

// forceTime2 is the square of sqrt(r^3 (m + M) / (G m M)).
func (in *Interaction) forceTime2(r, m, mcm float64) float64 {
	return (m + mcm) * r * r * r / (in.G * m * mcm)
}

// CalcSlowDownPert updates sd for the group described by root against
// its perturbers and recomputes the factor. ps are the group members
// relative to cm; they are only used when the list asks for member
// resolved perturbation.
func (in *Interaction) CalcSlowDownPert(sd *slowdown.SlowDown, cm *perturber.Perturber, root *bintree.Node, ps []particle.Particle, list *perturber.List, time float64) error {
	if in.Opts.Scope == Suppressed {
		sd.PertIn = 0
		sd.PertOut = 0
		sd.Timescale = sd.TimescaleMax
		sd.CalcFactor()
		return nil
	}

	sd.PertIn = in.CalcPertFromBinary(root)
	sd.Period = boundPeriod(root)

	if list == nil || list.Len() == 0 {
		sd.PertOut = 0
		sd.Timescale = sd.TimescaleMax
		sd.CalcFactor()
		return nil
	}

	preds, err := list.PredictAll(nil, time)
	if err != nil {
		return err
	}
	xcm, vcm, mcm, err := groupFrame(cm, ps, time)
	if err != nil {
		return err
	}

	pertOut := 0.0
	t2min := math.Inf(1)
	for j := range preds {
		mj := preds[j].Mass
		if mj <= 0 {
			continue
		}
		dr := r3.Sub(preds[j].Pos, xcm)
		dv := r3.Sub(preds[j].Vel, vcm)
		r2 := r3.Norm2(dr) + in.EpsSq
		r := math.Sqrt(r2)

		if list.NeedResolve {
			for i := range ps {
				ri := math.Sqrt(r3.Norm2(r3.Sub(preds[j].Pos, r3.Add(ps[i].Pos, xcm))) + in.EpsSq)
				pertOut += in.CalcPertFromMR(ri, ps[i].Mass, mj)
			}
		} else {
			pertOut += in.CalcPertFromMR(r, mcm, mj)
		}

		t2 := in.forceTime2(r, mj, mcm)
		if in.Opts.Timescale == Combined {
			drdv := r3.Dot(dr, dv)
			v2 := r3.Norm2(dv)
			// approach time r/|v_r|, bounded by r/v for tangential motion
			tv2 := r2 * r2 / (drdv*drdv + 1e-4*v2*r2)
			t2 = math.Min(t2, tv2)
		}
		t2min = math.Min(t2min, t2)
	}

	sd.PertOut = pertOut
	sd.Timescale = in.Opts.SafetyFactor * math.Min(sd.TimescaleMax, math.Sqrt(t2min))
	sd.CalcFactor()
	return nil
}

// CalcSlowDownInnerBinary updates sd for the binary at node idx of tree
// against the remaining members of the group, adding the external
// perturbation already measured for the whole group in sdCM.
func (in *Interaction) CalcSlowDownInnerBinary(sd, sdCM *slowdown.SlowDown, tree *bintree.Tree, idx int, ps []particle.Particle) {
	nd := &tree.Nodes[idx]
	sd.PertIn = in.CalcPertFromBinary(nd)
	sd.Period = boundPeriod(nd)

	inner := tree.Below(idx)

	pert := 0.0
	t2min := math.Inf(1)
	var mvor r3.Vec
	mtot := 0.0
	for i := range ps {
		mj := ps[i].Mass
		if inner[i] || mj <= 0 {
			continue
		}
		dr := r3.Sub(ps[i].Pos, nd.Pos)
		r := r3.Norm(dr)
		pert += in.CalcPertFromMR(r, nd.Mass, mj)

		// m_tot / |sum m_j v_j / r_j|
		dv := r3.Sub(ps[i].Vel, nd.Vel)
		mvor = r3.Add(mvor, r3.Scale(mj/r, dv))
		mtot += mj

		t2min = math.Min(t2min, in.forceTime2(r, mj, nd.Mass))
	}
	sd.PertOut = pert + sdCM.PertOut

	if mtot == 0 {
		sd.Timescale = sd.TimescaleMax
	} else {
		t := math.Sqrt(t2min)
		if in.Opts.Timescale == Combined {
			if v := r3.Norm(mvor); v > 0 {
				t = math.Min(t, mtot/v)
			}
		}
		sd.Timescale = in.Opts.SafetyFactor * math.Min(sd.TimescaleMax, t)
	}
	sd.CalcFactor()
}
