package integrators

import (
	"testing"

	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/orbit"
	"github.com/san-kum/fewbody/internal/particle"
	"gonum.org/v1/gonum/spatial/r3"
)

func benchAR(b *testing.B, ps []particle.Particle, opts interaction.Options) {
	in, err := interaction.New(1, 0, opts)
	if err != nil {
		b.Fatal(err)
	}
	ar, err := NewAR(in, 0.01)
	if err != nil {
		b.Fatal(err)
	}
	if err := ar.Init(ps, 0); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ar.Step(ps, ar.Ds); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkARBinaryLogH(b *testing.B) {
	benchAR(b, binary(1, 1, orbit.Elements{Semi: 1, Ecc: 0.5}), interaction.DefaultOptions())
}

func BenchmarkARBinaryTTL(b *testing.B) {
	opts := interaction.DefaultOptions()
	opts.Formulation = interaction.TTL
	benchAR(b, binary(1, 1, orbit.Elements{Semi: 1, Ecc: 0.5}), opts)
}

func BenchmarkARQuadruple(b *testing.B) {
	ps := append(binary(1, 1, orbit.Elements{Semi: 1, Ecc: 0.3}), binary(0.5, 0.5, orbit.Elements{Semi: 0.5, Ecc: 0.1})...)
	for i := 2; i < 4; i++ {
		ps[i].ID = i + 1
		ps[i].Pos = r3.Add(ps[i].Pos, r3.Vec{X: 10})
		ps[i].Vel = r3.Add(ps[i].Vel, r3.Vec{Y: 0.4})
	}
	benchAR(b, ps, interaction.DefaultOptions())
}
