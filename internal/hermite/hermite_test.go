package hermite

import (
	"math"
	"testing"

	"github.com/san-kum/fewbody/internal/perturber"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewPairRejectsBadParameters(t *testing.T) {
	if _, err := NewPair(0, 0); err == nil {
		t.Error("expected error for G = 0")
	}
	if _, err := NewPair(1, -1); err == nil {
		t.Error("expected error for negative softening")
	}
}

func TestAccJerkNewtonThirdLaw(t *testing.T) {
	p, _ := NewPair(1, 1e-4)
	a := Body{Mass: 2, Pos: r3.Vec{X: 1, Y: 0.2}, Vel: r3.Vec{Y: 0.3}}
	b := Body{Mass: 0.5, Pos: r3.Vec{X: -1, Z: 0.4}, Vel: r3.Vec{X: 0.1}}

	var fa, fb ForceH4
	p.AccJerk(&fa, a, b)
	p.AccJerk(&fb, b, a)

	net := r3.Add(r3.Scale(a.Mass, fa.Acc0), r3.Scale(b.Mass, fb.Acc0))
	if r3.Norm(net) > 1e-15 {
		t.Errorf("expected zero net force, got %v", net)
	}
	netJerk := r3.Add(r3.Scale(a.Mass, fa.Acc1), r3.Scale(b.Mass, fb.Acc1))
	if r3.Norm(netJerk) > 1e-15 {
		t.Errorf("expected zero net jerk, got %v", netJerk)
	}
	pot := -a.Mass * b.Mass / math.Sqrt(r3.Norm2(r3.Sub(a.Pos, b.Pos))+1e-4)
	if math.Abs(a.Mass*fa.Pot-pot) > 1e-15 {
		t.Errorf("expected pot %g, got %g", pot, a.Mass*fa.Pot)
	}
}

func TestJerkMatchesFiniteDifference(t *testing.T) {
	p, _ := NewPair(1, 0)
	a := Body{Mass: 1, Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 0.7}}
	b := Body{Mass: 3, Pos: r3.Vec{X: -2, Y: 0.5}, Vel: r3.Vec{X: 0.2, Z: -0.1}}

	var f ForceH4
	p.AccJerk(&f, a, b)

	const h = 1e-6
	step := func(s float64) r3.Vec {
		ai := Body{Mass: a.Mass, Pos: r3.Add(a.Pos, r3.Scale(s, a.Vel))}
		bj := Body{Mass: b.Mass, Pos: r3.Add(b.Pos, r3.Scale(s, b.Vel))}
		var g ForceH4
		p.AccJerk(&g, ai, bj)
		return g.Acc0
	}
	fd := r3.Scale(1/(2*h), r3.Sub(step(h), step(-h)))
	if r3.Norm(r3.Sub(fd, f.Acc1)) > 1e-8 {
		t.Errorf("expected jerk %v, got %v", fd, f.Acc1)
	}
}

func TestEvaluateToPerturber(t *testing.T) {
	p, _ := NewPair(1, 0)
	bodies := []Body{
		{Mass: 1, Pos: r3.Vec{X: -1}},
		{Mass: 1, Pos: r3.Vec{X: 1}},
		{Mass: 1, Pos: r3.Vec{Y: 5}, Vel: r3.Vec{X: 0.1}},
	}
	forces := p.Evaluate(bodies)
	if len(forces) != 3 {
		t.Fatalf("expected 3 forces, got %d", len(forces))
	}

	pert := Perturber(perturber.Single, bodies[2], forces[2], 1)
	pos, _, err := pert.Predict(1)
	if err != nil {
		t.Fatal(err)
	}
	if pos != bodies[2].Pos {
		t.Errorf("expected %v, got %v", bodies[2].Pos, pos)
	}
	if forces[2].Acc0.Y >= 0 {
		t.Errorf("expected attraction toward the pair, got %v", forces[2].Acc0)
	}
}

func TestAccJerkMembersReturnsClosest(t *testing.T) {
	p, _ := NewPair(1, 0)
	var f ForceH4
	r2 := p.AccJerkMembers(&f, Body{Mass: 1}, []Body{
		{Mass: 1, Pos: r3.Vec{X: 3}},
		{Mass: 1, Pos: r3.Vec{X: 2}},
	})
	if r2 != 4 {
		t.Errorf("expected 4, got %g", r2)
	}
}
