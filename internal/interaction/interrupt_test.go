package interaction_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
)

// collidingPair returns two bodies falling toward each other on a nearly
// radial orbit whose pericenter is inside their radii.
func collidingPair(offset float64, firstID int) []particle.Particle {
	return []particle.Particle{
		{ID: firstID, Mass: 1, Radius: 0.05, Pos: r3.Vec{X: offset - 0.5}, Vel: r3.Vec{X: 0.3, Y: 0.05}},
		{ID: firstID + 1, Mass: 1, Radius: 0.05, Pos: r3.Vec{X: offset + 0.5}, Vel: r3.Vec{X: -0.3, Y: -0.05}},
	}
}

var _ = Describe("ModifyAndInterrupt", func() {
	var in *interaction.Interaction

	BeforeEach(func() {
		in = mustNew(1, 0, interaction.DefaultOptions())
	})

	It("merges a colliding pair inside the window", func() {
		ps := collidingPair(0, 0)
		ps[1].Mass = 0.5
		ps[1].Vel.X = -0.6
		tr := buildTree(ps)
		Expect(tr.Root().Pericenter()).To(BeNumerically("<", 0.1))

		var momentum r3.Vec
		for _, p := range ps {
			momentum = r3.Add(momentum, r3.Scale(p.Mass, p.Vel))
		}
		_, com, _ := particle.CenterOfMass(ps)

		bi := interaction.NewBinaryInterrupt(0, 10)
		Expect(in.ModifyAndInterrupt(&bi, tr, ps)).To(Succeed())

		Expect(bi.Status).To(Equal(interaction.Merge))
		Expect(bi.Node).To(Equal(tr.RootIndex()))
		Expect(ps[0].Mass).To(Equal(1.5))
		Expect(ps[0].Status).To(Equal(particle.Single))
		expectVec(ps[0].Pos, com, 1e-15)
		expectVec(r3.Scale(ps[0].Mass, ps[0].Vel), momentum, 1e-15)
		Expect(ps[1].Mass).To(BeZero())
		Expect(ps[1].Status).To(Equal(particle.Unused))
	})

	It("schedules a check when pericenter is beyond the window", func() {
		ps := collidingPair(0, 0)
		tr := buildTree(ps)
		tPeri := tr.Root().TimeToPericenter(1)

		bi := interaction.NewBinaryInterrupt(2, 2+0.5*tPeri)
		Expect(in.ModifyAndInterrupt(&bi, tr, ps)).To(Succeed())

		Expect(bi.Status).To(Equal(interaction.Change))
		Expect(bi.Node).To(Equal(tr.RootIndex()))
		Expect(bi.Status.String()).To(Equal("change"))
		Expect(ps[0].Status).To(Equal(particle.Premerge))
		Expect(ps[1].Status).To(Equal(particle.Premerge))
		Expect(ps[0].TimeCheck).To(BeNumerically("~", 2+tPeri, 1e-12))
		Expect(ps[1].TimeCheck).To(Equal(ps[0].TimeCheck))
		Expect(ps[1].Mass).To(Equal(1.0))

		By("merging once the check time falls inside the window")
		next := interaction.NewBinaryInterrupt(2+0.5*tPeri, 2+2*tPeri)
		Expect(in.ModifyAndInterrupt(&next, tr, ps)).To(Succeed())
		Expect(next.Status).To(Equal(interaction.Merge))
		Expect(ps[0].Mass).To(Equal(2.0))
		Expect(ps[1].Status).To(Equal(particle.Unused))
	})

	It("leaves receding pairs alone", func() {
		ps := collidingPair(0, 0)
		ps[0].Vel = r3.Scale(-1, ps[0].Vel)
		ps[1].Vel = r3.Scale(-1, ps[1].Vel)
		tr := buildTree(ps)

		bi := interaction.NewBinaryInterrupt(0, 10)
		Expect(in.ModifyAndInterrupt(&bi, tr, ps)).To(Succeed())
		Expect(bi.Status).To(Equal(interaction.None))
		Expect(ps[0].Status).To(Equal(particle.Single))
	})

	It("leaves wide pericenters alone", func() {
		ps := collidingPair(0, 0)
		ps[0].Radius, ps[1].Radius = 1e-4, 1e-4
		tr := buildTree(ps)

		bi := interaction.NewBinaryInterrupt(0, 10)
		Expect(in.ModifyAndInterrupt(&bi, tr, ps)).To(Succeed())
		Expect(bi.Status).To(Equal(interaction.None))
		Expect(ps[0].Status).To(Equal(particle.Single))
	})

	It("skips a pair with an unused member", func() {
		ps := collidingPair(0, 0)
		ps[1].Status = particle.Unused
		tr := buildTree(ps)

		bi := interaction.NewBinaryInterrupt(0, 10)
		Expect(in.ModifyAndInterrupt(&bi, tr, ps)).To(Succeed())
		Expect(bi.Status).To(Equal(interaction.None))
	})

	It("merges one pair per call", func() {
		ps := append(collidingPair(0, 0), collidingPair(100, 2)...)
		tr := buildTree(ps)
		Expect(tr.Len()).To(Equal(3))

		bi := interaction.NewBinaryInterrupt(0, 10)
		Expect(in.ModifyAndInterrupt(&bi, tr, ps)).To(Succeed())
		Expect(bi.Status).To(Equal(interaction.Merge))
		Expect(ps[1].Status).To(Equal(particle.Unused))
		Expect(ps[3].Status).To(Equal(particle.Single))
		first := bi.Node

		bi.Clear()
		Expect(in.ModifyAndInterrupt(&bi, tr, ps)).To(Succeed())
		Expect(bi.Status).To(Equal(interaction.Merge))
		Expect(bi.Node).NotTo(Equal(first))
		Expect(ps[3].Status).To(Equal(particle.Unused))
		Expect(ps[2].Mass).To(Equal(2.0))
	})
})
