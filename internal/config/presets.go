package config

import (
	"math"
	"sort"

	"github.com/san-kum/fewbody/internal/orbit"
)

// Presets are ready-made groups in units with G = 1.
var Presets = map[string]*Config{
	"binary":    binaryPreset(),
	"triple":    triplePreset(),
	"merger":    mergerPreset(),
	"perturbed": perturbedPreset(),
	"quadruple": quadruplePreset(),
}

func withParticles(name string, ps ...ParticleConfig) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Particles = ps
	for i := range cfg.Particles {
		cfg.Particles[i].ID = i
	}
	return cfg
}

// pair places two bodies on the orbit el around the point (cx, cy, 0)
// moving with (vx, vy, 0).
func pair(m1, m2 float64, el orbit.Elements, cx, cy, vx, vy float64) (ParticleConfig, ParticleConfig) {
	dr, dv := el.ToRelative(m1, m2, DefaultG)
	mt := m1 + m2
	f1, f2 := -m2/mt, m1/mt
	p1 := ParticleConfig{
		Mass: m1,
		Pos:  [3]float64{cx + f1*dr.X, cy + f1*dr.Y, f1 * dr.Z},
		Vel:  [3]float64{vx + f1*dv.X, vy + f1*dv.Y, f1 * dv.Z},
	}
	p2 := ParticleConfig{
		Mass: m2,
		Pos:  [3]float64{cx + f2*dr.X, cy + f2*dr.Y, f2 * dr.Z},
		Vel:  [3]float64{vx + f2*dv.X, vy + f2*dv.Y, f2 * dv.Z},
	}
	return p1, p2
}

func binaryPreset() *Config {
	p1, p2 := pair(1, 1, orbit.Elements{Semi: 1, Ecc: 0.5}, 0, 0, 0, 0)
	cfg := withParticles("binary", p1, p2)
	cfg.Integration.TimeEnd = 2 * math.Pi / orbit.MeanMotion(1, 2)
	return cfg
}

func triplePreset() *Config {
	p1, p2 := pair(1, 0.8, orbit.Elements{Semi: 1, Ecc: 0.3, Incline: 0.4}, 0, 0, 0, 0)
	vOut := math.Sqrt(DefaultG * 2.3 / 20)
	cfg := withParticles("triple", p1, p2, ParticleConfig{
		Mass: 0.5,
		Pos:  [3]float64{20, 0, 0},
		Vel:  [3]float64{0, vOut, 0},
	})
	cfg.Integration.TimeEnd = 50
	return cfg
}

func mergerPreset() *Config {
	cfg := withParticles("merger",
		ParticleConfig{Mass: 1, Radius: 0.05, Pos: [3]float64{-0.5, 0, 0}, Vel: [3]float64{0.3, 0.05, 0}},
		ParticleConfig{Mass: 0.5, Radius: 0.05, Pos: [3]float64{0.5, 0, 0}, Vel: [3]float64{-0.6, -0.05, 0}},
		ParticleConfig{Mass: 0.1, Pos: [3]float64{0, 15, 0}},
	)
	cfg.Integration.TimeEnd = 5
	return cfg
}

func perturbedPreset() *Config {
	p1, p2 := pair(1, 1, orbit.Elements{Semi: 1, Ecc: 0.1}, 0, 0, 0, 0)
	cfg := withParticles("perturbed", p1, p2)
	cfg.Perturbers.Bodies = []PerturberEntry{
		{Mass: 5, Pos: [3]float64{100, 0, 0}, Vel: [3]float64{0, 0.2, 0}},
		{Mass: 2, Pos: [3]float64{0, -60, 10}, Vel: [3]float64{0.1, 0, 0}},
	}
	cfg.Interaction.Scope = "tree"
	cfg.Integration.TimeEnd = 20
	return cfg
}

func quadruplePreset() *Config {
	mA, mB := 2.0, 1.5
	mt := mA + mB
	vRel := math.Sqrt(DefaultG * mt / 30)
	a1, a2 := pair(1, 1, orbit.Elements{Semi: 1, Ecc: 0.2}, -30*mB/mt, 0, 0, -vRel*mB/mt)
	// second binary a quarter period out of phase with the first
	inner := orbit.Elements{Semi: 0.7, Ecc: 0.4, Incline: 1}.AtMeanAnomaly(math.Pi / 2)
	b1, b2 := pair(1, 0.5, inner, 30*mA/mt, 0, 0, vRel*mA/mt)
	cfg := withParticles("quadruple", a1, a2, b1, b2)
	cfg.Integration.TimeEnd = 40
	return cfg
}

// GetPreset returns a copy of the named preset, nil if it does not exist.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	c.Particles = append([]ParticleConfig(nil), cfg.Particles...)
	c.Perturbers.Bodies = append([]PerturberEntry(nil), cfg.Perturbers.Bodies...)
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
