package particle

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Status is the merge state of a particle.
type Status int32

const (
	Single Status = iota
	Premerge
	Merger
	Unused
)

func (s Status) String() string {
	switch s {
	case Single:
		return "single"
	case Premerge:
		return "premerge"
	case Merger:
		return "merger"
	case Unused:
		return "unused"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// transitions lists the allowed status changes. Unused is terminal.
var transitions = map[Status][]Status{
	Single:   {Premerge, Unused},
	Premerge: {Single, Merger, Unused},
	Merger:   {Single, Unused},
}

// CanTransition reports whether a particle in state s may move to next.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Live reports whether the particle still takes part in the dynamics.
func (s Status) Live() bool {
	return s == Single || s == Premerge
}

// Particle is one body of a few-body group. Positions and velocities are
// relative to the group's center of mass while the group is integrated.
type Particle struct {
	ID        int
	Mass      float64
	Radius    float64
	TimeCheck float64
	Pos       r3.Vec
	Vel       r3.Vec
	Status    Status
}

// SetStatus moves the particle to next if the transition is allowed.
func (p *Particle) SetStatus(next Status) error {
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("particle %d: status %s -> %s not allowed", p.ID, p.Status, next)
	}
	p.Status = next
	return nil
}

// Force collects the accelerations acting on one particle during a kick.
type Force struct {
	AccIn   r3.Vec // from members of the group
	AccPert r3.Vec // tidal acceleration from perturbers
	GTGrad  r3.Vec // gradient of the time transformation function
}

func (f *Force) Reset() {
	*f = Force{}
}
