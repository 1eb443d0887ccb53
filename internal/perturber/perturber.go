// Package perturber describes bodies outside a few-body group whose
// gravity still acts on it. The outer driver owns the list; the core only
// predicts perturber motion forward from the last driver update.
package perturber

import (
	"fmt"

	"github.com/san-kum/fewbody/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type Kind int

const (
	Single Kind = iota
	GroupCM
)

func (k Kind) String() string {
	if k == GroupCM {
		return "group"
	}
	return "single"
}

// Perturber is the last known state of an external body together with
// its acceleration and jerk at Time.
type Perturber struct {
	Kind Kind
	Mass float64
	Time float64
	Pos  r3.Vec
	Vel  r3.Vec
	Acc0 r3.Vec
	Acc1 r3.Vec
}

// Predict extrapolates the state to time t with a third-order Taylor
// series. Extrapolation runs forward only.
func (p *Perturber) Predict(t float64) (r3.Vec, r3.Vec, error) {
	dt := t - p.Time
	if dt < 0 {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("%w: predict at %g before update %g", dynamo.ErrInvalidState, t, p.Time)
	}
	return p.predict(dt), p.predictVel(dt), nil
}

func (p *Perturber) predict(dt float64) r3.Vec {
	// x + dt (v + dt/2 (a + dt/3 j))
	a := r3.Add(p.Acc0, r3.Scale(dt/3, p.Acc1))
	v := r3.Add(p.Vel, r3.Scale(0.5*dt, a))
	return r3.Add(p.Pos, r3.Scale(dt, v))
}

func (p *Perturber) predictVel(dt float64) r3.Vec {
	a := r3.Add(p.Acc0, r3.Scale(0.5*dt, p.Acc1))
	return r3.Add(p.Vel, r3.Scale(dt, a))
}

// List is the perturber neighbourhood of one group. NeedResolve asks for
// perturbation to be evaluated on each member instead of the c.m.
type List struct {
	Items       []Perturber
	NeedResolve bool
}

func (l *List) Len() int { return len(l.Items) }

// Predicted is a perturber state at the evaluation time.
type Predicted struct {
	Mass float64
	Pos  r3.Vec
	Vel  r3.Vec
}

// PredictAll fills dst with every perturber predicted to t and returns it.
// dst is reused when it has enough capacity.
func (l *List) PredictAll(dst []Predicted, t float64) ([]Predicted, error) {
	dst = dst[:0]
	for i := range l.Items {
		pos, vel, err := l.Items[i].Predict(t)
		if err != nil {
			return dst, fmt.Errorf("perturber %d: %w", i, err)
		}
		dst = append(dst, Predicted{Mass: l.Items[i].Mass, Pos: pos, Vel: vel})
	}
	return dst, nil
}
