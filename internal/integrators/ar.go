// Package integrators advances a regularized few-body group with the
// time-transformed leapfrog. The step is taken in a fictitious time s;
// the physical time of each drift and kick follows from the kick factor
// of the interaction, so close encounters get short physical steps
// without changing ds.
package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/perturber"
	"gonum.org/v1/gonum/spatial/r3"
)

const defaultMaxSteps = 1 << 24

// AR is a drift-kick-drift leapfrog in the fictitious time of the
// configured formulation. It keeps scratch buffers between steps, so one
// AR must not be shared between goroutines.
type AR struct {
	in *interaction.Interaction
	Ds float64

	// CM and Perturbers are optional; with them every kick also applies
	// the tidal acceleration and tracks its work on the group.
	CM         *perturber.Perturber
	Perturbers *perturber.List

	Observer dynamo.Observer
	MaxSteps int

	forces  []particle.Force
	backup  []particle.Particle
	velPrev []r3.Vec

	time  float64
	etot  float64
	w     float64
	epot  float64
	steps int
}

// Result summarizes an IntegrateToTime call.
type Result struct {
	Steps       int
	Time        float64
	Energy      float64
	EnergyError float64
}

func NewAR(in *interaction.Interaction, ds float64) (*AR, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil interaction", dynamo.ErrParameterBounds)
	}
	if !(ds > 0) || math.IsInf(ds, 0) {
		return nil, dynamo.Bounds("ds", ds)
	}
	if in.Opts.Formulation == interaction.LogH && in.Opts.Accumulation == interaction.Product {
		return nil, fmt.Errorf("%w: logh needs the sum accumulation", dynamo.ErrParameterBounds)
	}
	return &AR{in: in, Ds: ds, MaxSteps: defaultMaxSteps}, nil
}

func (a *AR) ensureScratch(n int) {
	if len(a.forces) != n {
		a.forces = make([]particle.Force, n)
		a.backup = make([]particle.Particle, n)
		a.velPrev = make([]r3.Vec, n)
	}
}

// Init moves ps into their c.m. frame, evaluates the forces and fixes
// the reference energy and time transformation value.
func (a *AR) Init(ps []particle.Particle, time float64) error {
	a.ensureScratch(len(ps))
	particle.ShiftToCenterOfMass(ps)

	epot, kick, err := a.in.CalcAccPotAndKick(a.forces, ps, a.CM, a.Perturbers, time)
	if err != nil {
		return err
	}
	a.time = time
	a.epot = epot
	a.etot = particle.KineticEnergy(ps) + epot
	a.w = a.omega(kick)
	a.steps = 0
	if !dynamo.Finite(a.etot, a.w) || a.w <= 0 {
		return fmt.Errorf("%w: initial energy %g, transformation %g", dynamo.ErrInvalidState, a.etot, a.w)
	}
	return nil
}

// omega returns the transformation function value behind a kick factor.
func (a *AR) omega(kick float64) float64 {
	if a.in.Opts.KickForm == interaction.KickDirect {
		return 1 / kick
	}
	return kick
}

func (a *AR) Time() float64 { return a.time }

func (a *AR) Steps() int { return a.steps }

// IntegratedEnergy returns the total energy carried by the integrator,
// which only changes through the work of the perturbers.
func (a *AR) IntegratedEnergy() float64 { return a.etot }

func (a *AR) driftTime(ps []particle.Particle, ds float64) float64 {
	if a.in.Opts.Formulation == interaction.LogH {
		return a.in.DriftStep(ds, particle.KineticEnergy(ps)-a.etot)
	}
	return ds / a.w
}

func (a *AR) drift(ps []particle.Particle, ds float64) {
	dt := a.driftTime(ps, ds)
	for i := range ps {
		ps[i].Pos = r3.Add(ps[i].Pos, r3.Scale(dt, ps[i].Vel))
	}
	a.time += dt
}

func (a *AR) kick(ps []particle.Particle, ds float64) error {
	epot, kick, err := a.in.CalcAccPotAndKick(a.forces, ps, a.CM, a.Perturbers, a.time)
	if err != nil {
		return err
	}
	a.epot = epot
	dt := a.in.KickStep(ds, kick)

	for i := range ps {
		f := &a.forces[i]
		a.velPrev[i] = ps[i].Vel
		acc := r3.Add(f.AccIn, f.AccPert)
		ps[i].Vel = r3.Add(ps[i].Vel, r3.Scale(dt, acc))
	}

	ttl := a.in.Opts.Formulation == interaction.TTL
	de, dw := 0.0, 0.0
	for i := range ps {
		vavg := r3.Scale(0.5, r3.Add(a.velPrev[i], ps[i].Vel))
		de += ps[i].Mass * r3.Dot(vavg, a.forces[i].AccPert)
		if ttl {
			dw += r3.Dot(vavg, a.forces[i].GTGrad)
		}
	}
	a.etot += de * dt
	a.w += dw * dt
	return nil
}

// Step advances ps by one drift-kick-drift step of fictitious length ds.
func (a *AR) Step(ps []particle.Particle, ds float64) error {
	a.ensureScratch(len(ps))

	a.drift(ps, 0.5*ds)
	if err := a.kick(ps, ds); err != nil {
		return err
	}
	a.drift(ps, 0.5*ds)
	a.steps++

	if !dynamo.Finite(a.time, a.etot, a.w) {
		return fmt.Errorf("%w: step %d at t = %g", dynamo.ErrInvalidState, a.steps, a.time)
	}
	return nil
}

type arState struct {
	time, etot, w, epot float64
}

func (a *AR) save(ps []particle.Particle) arState {
	copy(a.backup, ps)
	return arState{a.time, a.etot, a.w, a.epot}
}

func (a *AR) restore(ps []particle.Particle, s arState) {
	copy(ps, a.backup)
	a.time, a.etot, a.w, a.epot = s.time, s.etot, s.w, s.epot
}

// Energy evaluates the current total energy of ps from scratch.
func (a *AR) Energy(ps []particle.Particle) (float64, error) {
	a.ensureScratch(len(ps))
	epot, _, err := a.in.CalcInnerAcc(a.forces, ps)
	if err != nil {
		return 0, err
	}
	return particle.KineticEnergy(ps) + epot, nil
}

// IntegrateToTime steps until the physical time reaches tEnd. A step
// that would pass tEnd is undone and retaken with ds scaled to the
// remaining time, until the end time is met within rounding. ctx is
// checked between steps only.
func (a *AR) IntegrateToTime(ctx context.Context, ps []particle.Particle, tEnd float64) (Result, error) {
	a.ensureScratch(len(ps))
	if tEnd < a.time {
		return Result{}, fmt.Errorf("%w: end time %g before current time %g", dynamo.ErrInvalidState, tEnd, a.time)
	}

	e0, err := a.Energy(ps)
	if err != nil {
		return Result{}, err
	}
	if a.Observer != nil {
		a.Observer.OnStep(a.time, e0)
	}

	tol := 1e-12 * math.Max(1, math.Abs(tEnd))
	start := a.steps
	ds := a.Ds

	for tEnd-a.time > tol {
		if err := ctx.Err(); err != nil {
			return a.result(ps, start, e0), err
		}
		if a.steps-start >= a.MaxSteps {
			return a.result(ps, start, e0), fmt.Errorf("%w: %d steps without reaching t = %g", dynamo.ErrInvalidState, a.MaxSteps, tEnd)
		}

		saved := a.save(ps)
		if err := a.Step(ps, ds); err != nil {
			return a.result(ps, start, e0), err
		}

		if a.time-tEnd > tol {
			dt := a.time - saved.time
			a.restore(ps, saved)
			a.steps--
			ds *= (tEnd - saved.time) / dt
			continue
		}

		if a.Observer != nil {
			e, err := a.Energy(ps)
			if err != nil {
				return a.result(ps, start, e0), err
			}
			a.Observer.OnStep(a.time, e)
		}
	}

	return a.result(ps, start, e0), nil
}

func (a *AR) result(ps []particle.Particle, start int, e0 float64) Result {
	r := Result{Steps: a.steps - start, Time: a.time}
	e, err := a.Energy(ps)
	if err != nil {
		return r
	}
	r.Energy = e
	if e0 != 0 {
		r.EnergyError = (e - e0) / math.Abs(e0)
	}
	return r
}
