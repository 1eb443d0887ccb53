package interaction_test

import (
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fewbody/internal/bintree"
	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/perturber"
	"github.com/san-kum/fewbody/internal/slowdown"
)

// binary returns a bound equal-mass pair in its c.m. frame.
func binary() []particle.Particle {
	return []particle.Particle{
		{ID: 0, Mass: 1, Pos: r3.Vec{X: -0.5}, Vel: r3.Vec{Y: -0.6}},
		{ID: 1, Mass: 1, Pos: r3.Vec{X: 0.5}, Vel: r3.Vec{Y: 0.6}},
	}
}

func buildTree(ps []particle.Particle) *bintree.Tree {
	tr := bintree.NewTree(len(ps))
	Expect(tr.Build(ps, 1)).To(Succeed())
	return tr
}

var _ = Describe("Perturbation", func() {
	var (
		in   *interaction.Interaction
		ps   []particle.Particle
		cm   *perturber.Perturber
		list *perturber.List
	)

	BeforeEach(func() {
		in = mustNew(1, 0, interaction.DefaultOptions())
		ps = binary()
		cm = &perturber.Perturber{Mass: 2}
		list = &perturber.List{Items: []perturber.Perturber{{Mass: 0.5, Pos: r3.Vec{X: 40}}}}
	})

	Describe("CalcAccPert", func() {
		It("resets the tidal acceleration without perturbers", func() {
			f := []particle.Force{{AccPert: r3.Vec{X: 1}}, {AccPert: r3.Vec{Y: 1}}}
			Expect(in.CalcAccPert(f, ps, cm, &perturber.List{}, 0)).To(Succeed())
			Expect(f[0].AccPert).To(Equal(r3.Vec{}))
			Expect(f[1].AccPert).To(Equal(r3.Vec{}))
		})

		It("removes the c.m. acceleration", func() {
			f := make([]particle.Force, 2)
			Expect(in.CalcAccPert(f, ps, cm, list, 0)).To(Succeed())

			// leading order tidal stretch along the perturber direction
			want := 2 * 0.5 * 0.5 / math.Pow(40, 3)
			Expect(f[1].AccPert.X).To(BeNumerically("~", want, 0.05*want))
			Expect(f[0].AccPert.X).To(BeNumerically("~", -want, 0.05*want))
		})

		It("balances the resolved tidal acceleration", func() {
			list.NeedResolve = true
			f := make([]particle.Force, 2)
			Expect(in.CalcAccPert(f, ps, cm, list, 0)).To(Succeed())

			net := r3.Add(r3.Scale(ps[0].Mass, f[0].AccPert), r3.Scale(ps[1].Mass, f[1].AccPert))
			Expect(r3.Norm(net)).To(BeNumerically("<", 1e-18))
		})

		It("fails on a perturber from the future", func() {
			list.Items[0].Time = 2
			f := make([]particle.Force, 2)
			Expect(in.CalcAccPert(f, ps, cm, list, 1)).To(MatchError(dynamo.ErrInvalidState))
		})

		It("is part of the full evaluation", func() {
			f := make([]particle.Force, 2)
			epot, kick, err := in.CalcAccPotAndKick(f, ps, cm, list, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(kick).To(BeNumerically("~", -epot, 1e-15))
			Expect(f[1].AccPert.X).To(BeNumerically(">", 0))
		})
	})

	Describe("perturbation strengths", func() {
		It("uses the configured exponent", func() {
			tr := buildTree(ps)
			root := tr.Root()
			apo := root.Apocenter()
			Expect(in.CalcPertFromBinary(root)).To(BeNumerically("~", 1/(apo*apo*apo), 1e-12))
			Expect(in.CalcPertFromMR(2, 3, 4)).To(BeNumerically("~", 12.0/8, 1e-15))

			opts := interaction.DefaultOptions()
			opts.PertExponent = interaction.Quartic
			q := mustNew(1, 0, opts)
			Expect(q.CalcPertFromBinary(root)).To(BeNumerically("~", 1/math.Pow(apo, 4), 1e-12))
			Expect(q.CalcPertFromMR(2, 3, 4)).To(BeNumerically("~", 12.0/16, 1e-15))
		})
	})

	Describe("CalcSlowDownPert", func() {
		var sd slowdown.SlowDown

		BeforeEach(func() {
			sd = slowdown.New()
			sd.InitialReference(1, 1e6)
		})

		It("measures the whole group against its perturbers", func() {
			tr := buildTree(ps)
			root := tr.Root()
			Expect(in.CalcSlowDownPert(&sd, cm, root, ps, list, 0)).To(Succeed())

			Expect(sd.PertIn).To(BeNumerically("~", in.CalcPertFromBinary(root), 1e-15))
			Expect(sd.Period).To(Equal(root.Period))
			Expect(sd.PertOut).To(BeNumerically("~", 2*0.5/math.Pow(40, 3), 1e-15))

			// perturber at rest: the force estimate sets the timescale
			tf := math.Sqrt(2.5 * math.Pow(40, 3) / (0.5 * 2))
			Expect(sd.Timescale).To(BeNumerically("~", 0.1*tf, 1e-9))
			Expect(sd.Factor()).To(BeNumerically(">", 1))
		})

		It("is limited by an approaching perturber", func() {
			list.Items[0].Vel = r3.Vec{X: -5}
			tr := buildTree(ps)
			Expect(in.CalcSlowDownPert(&sd, cm, tr.Root(), ps, list, 0)).To(Succeed())

			tv := 40.0 / 5.0
			Expect(sd.Timescale).To(BeNumerically("~", 0.1*tv, 1e-3))
		})

		It("ignores the velocity estimate with the force-only method", func() {
			opts := interaction.DefaultOptions()
			opts.Timescale = interaction.ForceOnly
			fo := mustNew(1, 0, opts)
			list.Items[0].Vel = r3.Vec{X: -5}
			tr := buildTree(ps)
			Expect(fo.CalcSlowDownPert(&sd, cm, tr.Root(), ps, list, 0)).To(Succeed())

			tf := math.Sqrt(2.5 * math.Pow(40, 3) / (0.5 * 2))
			Expect(sd.Timescale).To(BeNumerically("~", 0.1*tf, 1e-9))
		})

		It("resolves members on request", func() {
			list.NeedResolve = true
			tr := buildTree(ps)
			Expect(in.CalcSlowDownPert(&sd, cm, tr.Root(), ps, list, 0)).To(Succeed())

			want := 0.5/math.Pow(40.5, 3) + 0.5/math.Pow(39.5, 3)
			Expect(sd.PertOut).To(BeNumerically("~", want, 1e-15))
		})

		It("keeps the factor at 1 without perturbers", func() {
			tr := buildTree(ps)
			Expect(in.CalcSlowDownPert(&sd, cm, tr.Root(), ps, nil, 0)).To(Succeed())
			Expect(sd.PertOut).To(BeZero())
			Expect(sd.Timescale).To(Equal(sd.TimescaleMax))
			Expect(sd.Factor()).To(Equal(1.0))
		})

		It("slows down more for a more distant perturber", func() {
			tr := buildTree(ps)
			Expect(in.CalcSlowDownPert(&sd, cm, tr.Root(), ps, list, 0)).To(Succeed())
			near := sd.Factor()

			list.Items[0].Pos.X = 80
			Expect(in.CalcSlowDownPert(&sd, cm, tr.Root(), ps, list, 0)).To(Succeed())
			Expect(sd.Factor()).To(BeNumerically(">", near))
		})

		It("suppresses the inner strength", func() {
			opts := interaction.DefaultOptions()
			opts.Scope = interaction.Suppressed
			sup := mustNew(1, 0, opts)
			tr := buildTree(ps)
			Expect(sup.CalcSlowDownPert(&sd, cm, tr.Root(), ps, list, 0)).To(Succeed())
			Expect(sd.PertIn).To(BeZero())
			Expect(sd.PertOut).To(BeZero())
			Expect(sd.Factor()).To(Equal(1.0))
		})
	})

	Describe("CalcSlowDownInnerBinary", func() {
		It("adds the group's external perturbation", func() {
			ps := append(binary(), particle.Particle{ID: 2, Mass: 0.3, Pos: r3.Vec{X: 20}, Vel: r3.Vec{Y: 0.2}})
			tr := buildTree(ps)
			idx := tr.Innermost()
			Expect(idx).To(Equal(0))

			sdCM := slowdown.New()
			sdCM.PertOut = 1e-9
			sd := slowdown.New()
			sd.InitialReference(1, 1e6)
			in.CalcSlowDownInnerBinary(&sd, &sdCM, tr, idx, ps)

			nd := &tr.Nodes[idx]
			r := r3.Norm(r3.Sub(ps[2].Pos, nd.Pos))
			Expect(sd.PertOut).To(BeNumerically("~", 2*0.3/(r*r*r)+1e-9, 1e-15))

			// velocity estimate m/|m v / r| = r/v
			tv := r / 0.2
			tf := math.Sqrt(2.3 * r * r * r / (0.3 * 2))
			Expect(sd.Timescale).To(BeNumerically("~", 0.1*math.Min(tv, tf), 1e-9))
			Expect(sd.Factor()).To(BeNumerically(">=", 1))
		})

		It("reuses tree storage across updates", func() {
			ps := append(binary(), particle.Particle{ID: 2, Mass: 0.3, Pos: r3.Vec{X: 20}, Vel: r3.Vec{Y: 0.2}})
			tr := buildTree(ps)
			sdCM := slowdown.New()
			sd := slowdown.New()
			allocs := testing.AllocsPerRun(10, func() {
				in.CalcSlowDownInnerBinary(&sd, &sdCM, tr, 0, ps)
			})
			Expect(allocs).To(BeZero())
		})
	})
})
