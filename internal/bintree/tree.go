// Package bintree builds the hierarchical binary decomposition of a
// few-body group.
//
// Nodes live in a fixed arena owned by the Tree and refer to their
// members through Ref values, either a leaf (an index into the particle
// slice the tree was built from) or another node of the same arena. A
// group of n particles always produces n-1 nodes and the last node built
// is the root. Rebuilding reuses the arena.
package bintree

import (
	"cmp"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/orbit"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/slowdown"
	"gonum.org/v1/gonum/spatial/r3"
)

type Kind uint8

const (
	Leaf Kind = iota
	Branch
)

// Ref points at a tree member: a particle index or a node index.
type Ref struct {
	Kind  Kind
	Index int
}

func LeafRef(i int) Ref { return Ref{Kind: Leaf, Index: i} }
func NodeRef(i int) Ref { return Ref{Kind: Branch, Index: i} }

func (r Ref) IsLeaf() bool { return r.Kind == Leaf }

func (r Ref) String() string {
	if r.IsLeaf() {
		return fmt.Sprintf("p%d", r.Index)
	}
	return fmt.Sprintf("b%d", r.Index)
}

// Node is a binary of two members with the Kepler elements of their
// relative motion.
type Node struct {
	Members [2]Ref
	M1, M2  float64
	Mass    float64
	Pos     r3.Vec // c.m. position
	Vel     r3.Vec // c.m. velocity
	MemberN int    // leaves below this node

	orbit.Elements
	SlowDown slowdown.SlowDown
}

// Tree is the arena of binary nodes of one group.
type Tree struct {
	Nodes []Node
	G     float64

	leaves int
	work   []item
	real   []int
	unused []int
	mask   []bool
}

type item struct {
	ref  Ref
	key  key
	n    int
	mass float64
	pos  r3.Vec
	vel  r3.Vec
}

// key orders items by the smallest particle below them: ID first, then
// mass, position and velocity. None of it depends on the input order.
type key struct {
	id       int
	mass     float64
	pos, vel r3.Vec
}

func (k key) compare(o key) int {
	return cmpOr(
		cmp.Compare(k.id, o.id),
		cmp.Compare(k.mass, o.mass),
		compareVec(k.pos, o.pos),
		compareVec(k.vel, o.vel),
	)
}

func (k key) less(o key) bool { return k.compare(o) < 0 }

func compareVec(a, b r3.Vec) int {
	return cmpOr(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y), cmp.Compare(a.Z, b.Z))
}

func minKey(a, b key) key {
	if b.less(a) {
		return b
	}
	return a
}

// NewTree creates a tree able to hold groups of up to n particles without
// allocating.
func NewTree(n int) *Tree {
	t := &Tree{}
	t.Reserve(n)
	return t
}

// Reserve grows the arena to hold a group of n particles.
func (t *Tree) Reserve(n int) {
	if n < 2 {
		n = 2
	}
	if cap(t.Nodes) < n-1 {
		t.Nodes = make([]Node, 0, n-1)
	}
	if cap(t.work) < n {
		t.work = make([]item, 0, n)
	}
	if cap(t.real) < n {
		t.real = make([]int, 0, n)
		t.unused = make([]int, 0, n)
		t.mask = make([]bool, 0, n)
	}
}

// Clear drops every node but keeps the storage.
func (t *Tree) Clear() {
	t.Nodes = t.Nodes[:0]
	t.leaves = 0
}

func (t *Tree) Len() int { return len(t.Nodes) }

// Leaves returns the number of particles the tree was built from.
func (t *Tree) Leaves() int { return t.leaves }

// Root returns the root node or nil for an empty tree.
func (t *Tree) Root() *Node {
	if len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[len(t.Nodes)-1]
}

// RootIndex returns the arena index of the root.
func (t *Tree) RootIndex() int { return len(t.Nodes) - 1 }

// Build rebuilds the hierarchy for ps. Particles with mass are paired
// first by minimum separation; massless ones are attached one by one on
// the outside of the result, in key order.
func (t *Tree) Build(ps []particle.Particle, G float64) error {
	n := len(ps)
	if n < 2 {
		return fmt.Errorf("%w: tree needs at least 2 particles, got %d", dynamo.ErrDegenerate, n)
	}
	if G <= 0 {
		return dynamo.Bounds("G", G)
	}

	t.Reserve(n)
	t.Clear()
	t.G = G
	t.leaves = n

	real, unused := t.real[:0], t.unused[:0]
	for i := range ps {
		if ps[i].Mass > 0 {
			real = append(real, i)
		} else {
			unused = insertByKey(ps, unused, i)
		}
	}
	t.real, t.unused = real, unused

	switch len(real) {
	case 0:
		t.chain(ps, t.leaf(ps, unused[0]), unused[1:])
	case 1:
		t.chain(ps, t.leaf(ps, real[0]), unused)
	default:
		root := t.pair(ps, real)
		t.chain(ps, root, unused)
	}
	return nil
}

func (t *Tree) leaf(ps []particle.Particle, i int) item {
	p := &ps[i]
	return item{ref: LeafRef(i), key: leafKey(p), n: 1, mass: p.Mass, pos: p.Pos, vel: p.Vel}
}

func leafKey(p *particle.Particle) key {
	return key{id: p.ID, mass: p.Mass, pos: p.Pos, vel: p.Vel}
}

// insertByKey inserts particle index i into the key-sorted idx.
func insertByKey(ps []particle.Particle, idx []int, i int) []int {
	k := leafKey(&ps[i])
	idx = append(idx, i)
	j := len(idx) - 1
	for ; j > 0 && k.less(leafKey(&ps[idx[j-1]])); j-- {
		idx[j] = idx[j-1]
	}
	idx[j] = i
	return idx
}

// chain attaches each leaf in rest as the second member of a new node
// whose first member is the previous result.
func (t *Tree) chain(ps []particle.Particle, first item, rest []int) {
	cur := first
	for _, i := range rest {
		cur = t.join(cur, t.leaf(ps, i))
	}
}

// pair merges the closest two active items until one is left.
func (t *Tree) pair(ps []particle.Particle, idx []int) item {
	active := t.work[:0]
	for _, i := range idx {
		active = append(active, t.leaf(ps, i))
	}

	for len(active) > 1 {
		bi, bj := 0, 1
		best := math.Inf(1)
		var bestKey [2]key
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				d := r3.Norm2(r3.Sub(active[i].pos, active[j].pos))
				k := orderedKeys(active[i].key, active[j].key)
				if d < best || (d == best && keysLess(k, bestKey)) {
					best, bi, bj, bestKey = d, i, j, k
				}
			}
		}

		a, b := active[bi], active[bj]
		if b.key.less(a.key) {
			a, b = b, a
		}
		active[bi] = t.join(a, b)
		active = append(active[:bj], active[bj+1:]...)
	}

	t.work = active[:0]
	return active[0]
}

func orderedKeys(a, b key) [2]key {
	if b.less(a) {
		return [2]key{b, a}
	}
	return [2]key{a, b}
}

func keysLess(a, b [2]key) bool {
	return cmpOr(a[0].compare(b[0]), a[1].compare(b[1])) < 0
}

// join appends the node of a and b to the arena.
func (t *Tree) join(a, b item) item {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{})
	nd := &t.Nodes[idx]

	nd.Members = [2]Ref{a.ref, b.ref}
	nd.M1, nd.M2 = a.mass, b.mass
	nd.Mass = a.mass + b.mass
	nd.MemberN = a.n + b.n
	nd.SlowDown = slowdown.New()

	if nd.Mass > 0 {
		nd.Pos = r3.Scale(1/nd.Mass, r3.Add(r3.Scale(a.mass, a.pos), r3.Scale(b.mass, b.pos)))
		nd.Vel = r3.Scale(1/nd.Mass, r3.Add(r3.Scale(a.mass, a.vel), r3.Scale(b.mass, b.vel)))
	} else {
		nd.Pos, nd.Vel = a.pos, a.vel
	}

	dr := r3.Sub(b.pos, a.pos)
	dv := r3.Sub(b.vel, a.vel)
	if nd.Mass > 0 && r3.Norm2(dr) > 0 {
		nd.Elements = orbit.FromRelative(nd.M1, nd.M2, dr, dv, t.G)
	} else {
		nd.Elements = orbit.Elements{R: r3.Norm(dr)}
	}

	return item{ref: NodeRef(idx), key: minKey(a.key, b.key), n: nd.MemberN, mass: nd.Mass, pos: nd.Pos, vel: nd.Vel}
}

// Shape renders the hierarchy with particle IDs, e.g. ((0,1),2).
func (t *Tree) Shape(ps []particle.Particle) string {
	if t.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	t.shape(&sb, ps, NodeRef(t.RootIndex()))
	return sb.String()
}

func (t *Tree) shape(sb *strings.Builder, ps []particle.Particle, r Ref) {
	if r.IsLeaf() {
		fmt.Fprintf(sb, "%d", ps[r.Index].ID)
		return
	}
	nd := &t.Nodes[r.Index]
	sb.WriteByte('(')
	t.shape(sb, ps, nd.Members[0])
	sb.WriteByte(',')
	t.shape(sb, ps, nd.Members[1])
	sb.WriteByte(')')
}

// cmpOr returns the first of its arguments that is not zero, like cmp.Or
// from Go 1.22.
func cmpOr(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
