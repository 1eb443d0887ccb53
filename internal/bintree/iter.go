package bintree

import (
	"io"

	"github.com/san-kum/fewbody/internal/report"
	"github.com/san-kum/fewbody/internal/slowdown"
)

// ProcessRootIter reduces over every node below and including the root,
// children before parents.
func ProcessRootIter[T any](t *Tree, acc T, fn func(acc T, idx int, nd *Node) T) T {
	if t.Len() == 0 {
		return acc
	}
	return reduce(t, t.RootIndex(), acc, fn)
}

func reduce[T any](t *Tree, idx int, acc T, fn func(T, int, *Node) T) T {
	nd := &t.Nodes[idx]
	for _, m := range nd.Members {
		if !m.IsLeaf() {
			acc = reduce(t, m.Index, acc, fn)
		}
	}
	return fn(acc, idx, nd)
}

// ProcessTreeIter visits nodes from the root down. Returning false from
// fn skips the sub-tree of that node.
func (t *Tree) ProcessTreeIter(fn func(idx int, nd *Node) bool) {
	if t.Len() == 0 {
		return
	}
	t.visit(t.RootIndex(), fn)
}

func (t *Tree) visit(idx int, fn func(int, *Node) bool) {
	nd := &t.Nodes[idx]
	if !fn(idx, nd) {
		return
	}
	for _, m := range nd.Members {
		if !m.IsLeaf() {
			t.visit(m.Index, fn)
		}
	}
}

// ProcessLeafIter calls fn with every particle index, left to right.
func (t *Tree) ProcessLeafIter(fn func(leaf int)) {
	if t.Len() == 0 {
		return
	}
	t.leavesOf(NodeRef(t.RootIndex()), fn)
}

func (t *Tree) leavesOf(r Ref, fn func(int)) {
	if r.IsLeaf() {
		fn(r.Index)
		return
	}
	for _, m := range t.Nodes[r.Index].Members {
		t.leavesOf(m, fn)
	}
}

// LeafIndices returns the particle indices below node idx.
func (t *Tree) LeafIndices(idx int) []int {
	out := make([]int, 0, t.Nodes[idx].MemberN)
	t.leavesOf(NodeRef(idx), func(i int) { out = append(out, i) })
	return out
}

// Below marks the particles under node idx in a mask indexed like the
// particle slice of the last Build. The mask is owned by the tree and is
// overwritten by the next call.
func (t *Tree) Below(idx int) []bool {
	if cap(t.mask) < t.leaves {
		t.mask = make([]bool, t.leaves)
	}
	t.mask = t.mask[:t.leaves]
	clear(t.mask)
	t.mark(NodeRef(idx))
	return t.mask
}

func (t *Tree) mark(r Ref) {
	if r.IsLeaf() {
		t.mask[r.Index] = true
		return
	}
	for _, m := range t.Nodes[r.Index].Members {
		t.mark(m)
	}
}

// Depth returns the number of nested levels below and including the root.
func (t *Tree) Depth() int {
	if t.Len() == 0 {
		return 0
	}
	return t.depthOf(t.RootIndex())
}

func (t *Tree) depthOf(idx int) int {
	d := 1
	for _, m := range t.Nodes[idx].Members {
		if !m.IsLeaf() {
			d = max(d, 1+t.depthOf(m.Index))
		}
	}
	return d
}

// NodeFields is the column layout of one binary in the tree report.
var NodeFields = []report.Field[*Node]{
	{Title: "mass", Value: func(n *Node) float64 { return n.Mass }},
	{Title: "m1", Value: func(n *Node) float64 { return n.M1 }},
	{Title: "m2", Value: func(n *Node) float64 { return n.M2 }},
	{Title: "semi", Value: func(n *Node) float64 { return n.Semi }},
	{Title: "ecc", Value: func(n *Node) float64 { return n.Ecc }},
	{Title: "period", Value: func(n *Node) float64 { return n.Period }},
	{Title: "r", Value: func(n *Node) float64 { return n.R }},
	{Title: "t_peri", Value: func(n *Node) float64 { return n.TPeri }},
	{Title: "incline", Value: func(n *Node) float64 { return n.Incline }},
	{Title: "rot_horizon", Value: func(n *Node) float64 { return n.RotHorizon }},
	{Title: "rot_self", Value: func(n *Node) float64 { return n.RotSelf }},
}

// WriteColumnTitle writes the titles of a node row followed by those of
// its slowdown.
func WriteColumnTitle(w io.Writer, width int) error {
	if err := report.WriteTitle(w, width, NodeFields, ""); err != nil {
		return err
	}
	return report.WriteTitle(w, width, slowdown.Fields, "")
}

func (n *Node) WriteColumn(w io.Writer, width int) error {
	if err := report.WriteRow(w, width, NodeFields, n); err != nil {
		return err
	}
	return n.SlowDown.WriteColumn(w, width)
}

// Innermost returns the index of the bound two-body binary with the
// shortest period, or -1 when the tree has none.
func (t *Tree) Innermost() int {
	best := -1
	for i := range t.Nodes {
		nd := &t.Nodes[i]
		if nd.MemberN != 2 || !nd.Bound() {
			continue
		}
		if best < 0 || nd.Period < t.Nodes[best].Period {
			best = i
		}
	}
	return best
}
