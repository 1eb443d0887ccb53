// Package info keeps the integration-level state of one group: the
// initial regularized step, the fix-step policy and the binary tree.
package info

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/fewbody/internal/bintree"
	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/report"
)

// FixStepOption tells the integrator whether the step may adapt.
type FixStepOption int32

const (
	// Always keeps the supplied step.
	Always FixStepOption = iota
	// Later adapts the first steps then freezes the step.
	Later
	// None keeps adapting.
	None
)

var fixStepNames = []string{"always", "later", "none"}

func (o FixStepOption) String() string {
	if o >= 0 && int(o) < len(fixStepNames) {
		return fixStepNames[o]
	}
	return fmt.Sprintf("fixstep(%d)", int32(o))
}

func ParseFixStep(s string) (FixStepOption, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range fixStepNames {
		if n == s {
			return FixStepOption(i), nil
		}
	}
	return None, dynamo.Bounds("fix_step", s)
}

// Information is owned by one group and reused between steps.
type Information struct {
	DS      float64
	FixStep FixStepOption
	Tree    *bintree.Tree
}

func New(n int) *Information {
	return &Information{FixStep: None, Tree: bintree.NewTree(n)}
}

// ReserveMem grows the tree arena to hold n particles.
func (info *Information) ReserveMem(n int) {
	if info.Tree == nil {
		info.Tree = bintree.NewTree(n)
		return
	}
	info.Tree.Reserve(n)
}

func (info *Information) Clear() {
	info.DS = 0
	info.FixStep = None
	if info.Tree != nil {
		info.Tree.Clear()
	}
}

// GenerateBinaryTree rebuilds the hierarchy of ps.
func (info *Information) GenerateBinaryTree(ps []particle.Particle, G float64) error {
	info.ReserveMem(len(ps))
	return info.Tree.Build(ps, G)
}

// Root returns the binary tree root, nil before the tree is generated.
func (info *Information) Root() *bintree.Node {
	if info.Tree == nil {
		return nil
	}
	return info.Tree.Root()
}

// CalcDsKepler estimates the fictitious step covering 1/32 of a bound
// orbit or 1/256 of the time unit of an unbound one.
func CalcDsKepler(nd *bintree.Node, G float64) float64 {
	m12 := nd.M1 + nd.M2
	if nd.Semi > 0 {
		return 0.19634954084 * math.Sqrt(G*nd.Semi/m12) * nd.M1 * nd.M2
	}
	return 0.0245436926 * math.Sqrt(-nd.Semi/m12) * nd.M1 * nd.M2
}

// calcDsProduct is the estimate matching the product form of the kick
// factor, where the step scales with the product of the semi-major axes.
func calcDsProduct(tr *bintree.Tree, G float64) float64 {
	type acc struct{ tov, r float64 }
	res := bintree.ProcessRootIter(tr, acc{math.Inf(1), 1}, func(a acc, _ int, nd *bintree.Node) acc {
		if nd.M1 <= 0 || nd.M2 <= 0 {
			return a
		}
		semi := math.Abs(nd.Semi)
		tov := 0.03855314219 * semi * semi * semi / (G * (nd.M1 + nd.M2))
		return acc{tov: math.Min(a.tov, tov), r: 2 * a.r * semi}
	})
	return math.Sqrt(res.tov) / res.r
}

// CalcDsAndStepOption sets DS from the binaries of the tree and picks the
// fix-step policy. Massless nodes do not constrain the step.
func (info *Information) CalcDsAndStepOption(order int, G float64, accumulation interaction.Accumulation) error {
	root := info.Root()
	if root == nil {
		return fmt.Errorf("%w: binary tree not generated", dynamo.ErrDegenerate)
	}
	if order <= 0 {
		return dynamo.Bounds("order", order)
	}

	if accumulation == interaction.Product {
		info.DS = calcDsProduct(info.Tree, G)
	} else {
		info.DS = bintree.ProcessRootIter(info.Tree, math.MaxFloat64, func(ds float64, _ int, nd *bintree.Node) float64 {
			if nd.M1 <= 0 || nd.M2 <= 0 {
				return ds
			}
			return math.Min(ds, CalcDsKepler(nd, G))
		})
	}

	info.FixStep = None
	switch {
	case root.MemberN == 2:
		info.FixStep = Later
	case root.MemberN > 2 && info.separated(root):
		info.FixStep = Later
	}
	return nil
}

// separated reports whether the outer pericenter is well outside every
// inner apocenter of the root's sub-binaries.
func (info *Information) separated(root *bintree.Node) bool {
	apoIn := 0.0
	for _, m := range root.Members {
		if !m.IsLeaf() {
			apoIn = math.Max(apoIn, info.Tree.Nodes[m.Index].Apocenter())
		}
	}
	return root.Pericenter() > 3*apoIn
}

// AdjustDs shrinks DS for a group that was slowed down by a factor sdOrg
// below one in the outer integration.
func (info *Information) AdjustDs(sdOrg float64, order int) {
	if sdOrg < 1 && sdOrg > 0 {
		info.DS *= 0.125 * math.Pow(sdOrg, 1/float64(order))
	}
}

// SetFixStep overrides the policy chosen by CalcDsAndStepOption.
func (info *Information) SetFixStep(opt FixStepOption) {
	info.FixStep = opt
}

// InitialSlowDownReference applies the slowdown reference to the root
// and its direct sub-binaries.
func (info *Information) InitialSlowDownReference(ratioRef, timescaleMax float64) {
	root := info.Root()
	if root == nil {
		return
	}
	root.SlowDown.InitialReference(ratioRef, timescaleMax)
	for _, m := range root.Members {
		if !m.IsLeaf() {
			info.Tree.Nodes[m.Index].SlowDown.InitialReference(ratioRef, timescaleMax)
		}
	}
}

type record struct {
	DS      float64
	FixStep int32
}

// WriteBinary writes DS and the fix-step policy. The tree is rebuilt from
// particles and is not part of the record.
func (info *Information) WriteBinary(w io.Writer) error {
	return dynamo.WriteRecord(w, record{DS: info.DS, FixStep: int32(info.FixStep)})
}

func (info *Information) ReadBinary(r io.Reader) error {
	var rec record
	if err := dynamo.ReadRecord(r, "information", &rec); err != nil {
		return err
	}
	info.DS = rec.DS
	info.FixStep = FixStepOption(rec.FixStep)
	return nil
}

var Fields = []report.Field[*Information]{
	{Title: "ds", Value: func(i *Information) float64 { return i.DS }},
	{Title: "fix_step", Value: func(i *Information) float64 { return float64(i.FixStep) }},
}

func (info *Information) WriteColumnTitle(w io.Writer, width int) error {
	return report.WriteTitle(w, width, Fields, "")
}

func (info *Information) WriteColumn(w io.Writer, width int) error {
	return report.WriteRow(w, width, Fields, info)
}
