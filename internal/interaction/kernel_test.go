package interaction_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
)

func pair() []particle.Particle {
	return []particle.Particle{
		{ID: 0, Mass: 1.0, Pos: r3.Vec{X: -0.3, Y: 0.1, Z: 0.05}, Vel: r3.Vec{Y: -0.4}},
		{ID: 1, Mass: 0.6, Pos: r3.Vec{X: 0.5, Y: -0.2, Z: -0.1}, Vel: r3.Vec{Y: 0.7}},
	}
}

func mustNew(G, epsSq float64, opts interaction.Options) *interaction.Interaction {
	in, err := interaction.New(G, epsSq, opts)
	Expect(err).NotTo(HaveOccurred())
	return in
}

func expectVec(got, want r3.Vec, tol float64) {
	ExpectWithOffset(1, r3.Norm(r3.Sub(got, want))).To(BeNumerically("<=", tol*math.Max(1, r3.Norm(want))))
}

var _ = Describe("New", func() {
	It("rejects a non-positive G", func() {
		_, err := interaction.New(0, 0, interaction.DefaultOptions())
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("rejects a negative softening", func() {
		opts := interaction.DefaultOptions()
		opts.Softened = true
		_, err := interaction.New(1, -1e-4, opts)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("rejects softening on the regularized kernel", func() {
		_, err := interaction.New(1, 1e-4, interaction.DefaultOptions())
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("rejects the softened kernel without softening", func() {
		opts := interaction.DefaultOptions()
		opts.Softened = true
		_, err := interaction.New(1, 0, opts)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))

		in, err := interaction.New(1, 1e-6, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.EpsSq).To(Equal(1e-6))
	})

	It("rejects out of range options", func() {
		opts := interaction.DefaultOptions()
		opts.Scope = interaction.SlowDownScope(7)
		_, err := interaction.New(1, 0, opts)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))

		opts = interaction.DefaultOptions()
		opts.SafetyFactor = 0
		_, err = interaction.New(1, 0, opts)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("parses option names", func() {
		f, err := interaction.ParseFormulation("TTL")
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(interaction.TTL))
		Expect(interaction.Quartic.String()).To(Equal("quartic"))

		_, err = interaction.ParseAccumulation("median")
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})
})

var _ = Describe("Pair kernel", func() {
	DescribeTable("agrees with the general path",
		func(opts interaction.Options, epsSq float64) {
			in := mustNew(2.0, epsSq, opts)
			ps := pair()

			fast := make([]particle.Force, 2)
			general := make([]particle.Force, 2)
			epot1, kick1 := in.CalcInnerAccPotTwo(&fast[0], &fast[1], &ps[0], &ps[1])
			epot2, kick2 := in.CalcInnerAccPot(general, ps)

			Expect(epot2).To(BeNumerically("~", epot1, 1e-14))
			Expect(kick2).To(BeNumerically("~", kick1, 1e-14))
			for i := range fast {
				expectVec(general[i].AccIn, fast[i].AccIn, 1e-14)
				expectVec(general[i].GTGrad, fast[i].GTGrad, 1e-14)
			}
		},
		Entry("logh sum", interaction.DefaultOptions(), 0.0),
		Entry("ttl sum", interaction.Options{Formulation: interaction.TTL, SafetyFactor: 0.1}, 0.0),
		Entry("ttl product", interaction.Options{Formulation: interaction.TTL, Accumulation: interaction.Product, SafetyFactor: 0.1}, 0.0),
		Entry("direct kick", interaction.Options{KickForm: interaction.KickDirect, SafetyFactor: 0.1}, 0.0),
		Entry("softened", interaction.Options{Softened: true, SafetyFactor: 0.1}, 1e-3),
	)

	DescribeTable("obeys Newton's third law",
		func(opts interaction.Options) {
			in := mustNew(1.0, 0, opts)
			ps := pair()
			f := make([]particle.Force, 2)
			in.CalcInnerAccPotTwo(&f[0], &f[1], &ps[0], &ps[1])

			p1 := r3.Scale(ps[0].Mass, f[0].AccIn)
			p2 := r3.Scale(ps[1].Mass, f[1].AccIn)
			expectVec(r3.Add(p1, p2), r3.Vec{}, 1e-14)
		},
		Entry("logh", interaction.DefaultOptions()),
		Entry("ttl", interaction.Options{Formulation: interaction.TTL, SafetyFactor: 0.1}),
	)

	It("returns |U| or its reciprocal", func() {
		ps := pair()
		f := make([]particle.Force, 2)
		r := r3.Norm(r3.Sub(ps[1].Pos, ps[0].Pos))

		inv := mustNew(1.5, 0, interaction.DefaultOptions())
		epot, kick := inv.CalcInnerAccPotTwo(&f[0], &f[1], &ps[0], &ps[1])
		Expect(epot).To(BeNumerically("~", -1.5*0.6/r, 1e-14))
		Expect(kick).To(BeNumerically("~", -epot, 1e-14))
		Expect(inv.KickStep(0.1, kick)).To(BeNumerically("~", 0.1/kick, 1e-15))

		opts := interaction.DefaultOptions()
		opts.KickForm = interaction.KickDirect
		direct := mustNew(1.5, 0, opts)
		_, kick2 := direct.CalcInnerAccPotTwo(&f[0], &f[1], &ps[0], &ps[1])
		Expect(kick2).To(BeNumerically("~", 1/kick, 1e-14))
		Expect(direct.KickStep(0.1, kick2)).To(BeNumerically("~", 0.1/kick, 1e-14))
	})

	It("never leaves a stale gradient", func() {
		in := mustNew(1, 0, interaction.DefaultOptions())
		ps := pair()
		f := []particle.Force{{GTGrad: r3.Vec{X: 9}}, {GTGrad: r3.Vec{Y: 9}}}
		in.CalcInnerAccPotTwo(&f[0], &f[1], &ps[0], &ps[1])
		Expect(f[0].GTGrad).To(Equal(r3.Vec{}))
		Expect(f[1].GTGrad).To(Equal(r3.Vec{}))
	})
})

var _ = Describe("General kernel", func() {
	var ps []particle.Particle

	BeforeEach(func() {
		ps = []particle.Particle{
			{Mass: 1.0, Pos: r3.Vec{X: 0.1}},
			{Mass: 0.5, Pos: r3.Vec{X: 1.2, Y: 0.3}},
			{Mass: 0.8, Pos: r3.Vec{X: -0.4, Y: 2.0, Z: 0.7}},
			{Mass: 0.2, Pos: r3.Vec{Z: -1.5}},
		}
	})

	It("conserves momentum and counts each pair once", func() {
		in := mustNew(1, 0, interaction.DefaultOptions())
		f := make([]particle.Force, len(ps))
		epot, kick := in.CalcInnerAccPot(f, ps)

		var total r3.Vec
		for i := range ps {
			total = r3.Add(total, r3.Scale(ps[i].Mass, f[i].AccIn))
		}
		expectVec(total, r3.Vec{}, 1e-14)

		want := 0.0
		for i := range ps {
			for j := i + 1; j < len(ps); j++ {
				want -= ps[i].Mass * ps[j].Mass / r3.Norm(r3.Sub(ps[i].Pos, ps[j].Pos))
			}
		}
		Expect(epot).To(BeNumerically("~", want, 1e-13))
		Expect(kick).To(BeNumerically("~", -want, 1e-13))
	})

	It("gives the gradient of the product transformation", func() {
		opts := interaction.Options{Formulation: interaction.TTL, Accumulation: interaction.Product, SafetyFactor: 0.1}
		in := mustNew(1, 0, opts)
		f := make([]particle.Force, len(ps))
		_, g0 := in.CalcInnerAccPot(f, ps)

		// finite difference of the kick value with respect to x of body 1
		const h = 1e-6
		shifted := append([]particle.Particle(nil), ps...)
		shifted[1].Pos.X += h
		_, gp := in.CalcInnerAccPot(make([]particle.Force, len(ps)), shifted)
		shifted[1].Pos.X -= 2 * h
		_, gm := in.CalcInnerAccPot(make([]particle.Force, len(ps)), shifted)

		Expect((gp - gm) / (2 * h)).To(BeNumerically("~", f[1].GTGrad.X, 1e-6*math.Max(1, g0)))
	})

	It("requires at least two bodies", func() {
		in := mustNew(1, 0, interaction.DefaultOptions())
		_, _, err := in.CalcInnerAcc(make([]particle.Force, 1), ps[:1])
		Expect(err).To(MatchError(dynamo.ErrDegenerate))
	})
})
