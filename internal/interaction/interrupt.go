package interaction

import (
	"fmt"

	"github.com/san-kum/fewbody/internal/bintree"
	"github.com/san-kum/fewbody/internal/particle"
	"gonum.org/v1/gonum/spatial/r3"
)

type InterruptStatus int32

const (
	None InterruptStatus = iota
	Change
	Merge
)

func (s InterruptStatus) String() string {
	switch s {
	case None:
		return "none"
	case Change:
		return "change"
	case Merge:
		return "merge"
	}
	return fmt.Sprintf("interrupt(%d)", int32(s))
}

// BinaryInterrupt is exchanged with the driver on every check. Node is
// the arena index of the binary that triggered the interrupt, -1 when
// nothing happened.
type BinaryInterrupt struct {
	Node    int
	TimeNow float64
	TimeEnd float64
	Status  InterruptStatus
}

func NewBinaryInterrupt(now, end float64) BinaryInterrupt {
	return BinaryInterrupt{Node: -1, TimeNow: now, TimeEnd: end}
}

// Clear resets the interrupt for the next check.
func (bi *BinaryInterrupt) Clear() {
	bi.Node = -1
	bi.Status = None
}

// ModifyAndInterrupt checks every two-body binary of tree for a physical
// collision and merges at most one pair. When no pair merges but a pair
// was scheduled for a pericenter check the status is Change and Node is
// the last scheduled binary. Positions of ps must be those the tree was
// built from.
func (in *Interaction) ModifyAndInterrupt(bi *BinaryInterrupt, tree *bintree.Tree, ps []particle.Particle) error {
	var err error
	changed := -1
	tree.ProcessTreeIter(func(idx int, nd *bintree.Node) bool {
		if bi.Status != None || err != nil {
			return false
		}
		if nd.MemberN == 2 {
			var scheduled bool
			scheduled, err = in.checkPair(bi, idx, nd, ps)
			if scheduled {
				changed = idx
			}
		}
		return true
	})
	if err == nil && bi.Status == None && changed >= 0 {
		bi.Node = changed
		bi.Status = Change
	}
	return err
}

// checkPair reports whether it flagged the pair for a later check.
func (in *Interaction) checkPair(bi *BinaryInterrupt, idx int, nd *bintree.Node, ps []particle.Particle) (bool, error) {
	p1 := &ps[nd.Members[0].Index]
	p2 := &ps[nd.Members[1].Index]
	if p1.Status == particle.Unused || p2.Status == particle.Unused {
		return false, nil
	}

	if p1.Status == particle.Premerge && p2.Status == particle.Premerge {
		if p1.TimeCheck < bi.TimeEnd && p2.TimeCheck < bi.TimeEnd {
			return false, in.merge(bi, idx, p1, p2)
		}
		return false, nil
	}
	if p1.Status == particle.Premerge || p2.Status == particle.Premerge {
		return false, nil
	}

	if nd.Pericenter() >= p1.Radius+p2.Radius {
		return false, nil
	}
	dr := r3.Sub(p1.Pos, p2.Pos)
	dv := r3.Sub(p1.Vel, p2.Vel)
	if r3.Dot(dr, dv) >= 0 {
		return false, nil
	}

	tPeri := nd.TimeToPericenter(r3.Norm(dr))
	if tPeri < bi.TimeEnd-bi.TimeNow {
		return false, in.merge(bi, idx, p1, p2)
	}

	if err := p1.SetStatus(particle.Premerge); err != nil {
		return false, err
	}
	if err := p2.SetStatus(particle.Premerge); err != nil {
		return false, err
	}
	p1.TimeCheck = bi.TimeNow + tPeri
	p2.TimeCheck = p1.TimeCheck
	return true, nil
}

// merge moves the combined body into p1 and retires p2.
func (in *Interaction) merge(bi *BinaryInterrupt, idx int, p1, p2 *particle.Particle) error {
	if err := p1.SetStatus(particle.Single); err != nil {
		return err
	}
	if err := p2.SetStatus(particle.Unused); err != nil {
		return err
	}

	mcm := p1.Mass + p2.Mass
	p1.Pos = r3.Scale(1/mcm, r3.Add(r3.Scale(p1.Mass, p1.Pos), r3.Scale(p2.Mass, p2.Pos)))
	p1.Vel = r3.Scale(1/mcm, r3.Add(r3.Scale(p1.Mass, p1.Vel), r3.Scale(p2.Mass, p2.Vel)))
	p1.Mass = mcm
	p2.Mass = 0

	bi.Node = idx
	bi.Status = Merge
	return nil
}
