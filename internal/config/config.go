package config

import (
	"fmt"
	"math"
	"os"

	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/info"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/perturber"
	"github.com/san-kum/fewbody/internal/slowdown"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultG            = 1.0
	DefaultSafetyFactor = 0.1
	DefaultOrder        = 2
	DefaultTimeEnd      = 10.0
)

type Config struct {
	Name        string            `yaml:"name"`
	Interaction InteractionConfig `yaml:"interaction"`
	SlowDown    SlowDownConfig    `yaml:"slowdown"`
	Integration IntegrationConfig `yaml:"integration"`
	Particles   []ParticleConfig  `yaml:"particles"`
	Perturbers  PerturberConfig   `yaml:"perturbers"`
}

type InteractionConfig struct {
	G            float64 `yaml:"g"`
	EpsSq        float64 `yaml:"eps_sq"`
	Formulation  string  `yaml:"formulation"`
	KickForm     string  `yaml:"kick_form"`
	Accumulation string  `yaml:"accumulation"`
	PertExponent string  `yaml:"pert_exponent"`
	Scope        string  `yaml:"slowdown_scope"`
	Timescale    string  `yaml:"timescale"`
	Softened     bool    `yaml:"softened"`
	SafetyFactor float64 `yaml:"safety_factor"`
}

type SlowDownConfig struct {
	RatioRef float64 `yaml:"ratio_ref"`
	// TimescaleMax of 0 leaves the timescale uncapped.
	TimescaleMax float64 `yaml:"timescale_max"`
	FactorMax    float64 `yaml:"factor_max"`
}

type IntegrationConfig struct {
	Order   int     `yaml:"order"`
	Ds      float64 `yaml:"ds"` // 0 estimates ds from the tree
	TimeEnd float64 `yaml:"time_end"`
	FixStep string  `yaml:"fix_step"` // empty keeps the estimated option
}

type ParticleConfig struct {
	ID     int        `yaml:"id"`
	Mass   float64    `yaml:"mass"`
	Radius float64    `yaml:"radius"`
	Pos    [3]float64 `yaml:"pos"`
	Vel    [3]float64 `yaml:"vel"`
}

type PerturberConfig struct {
	NeedResolve bool             `yaml:"need_resolve"`
	Bodies      []PerturberEntry `yaml:"bodies"`
}

type PerturberEntry struct {
	Group bool       `yaml:"group"`
	Mass  float64    `yaml:"mass"`
	Time  float64    `yaml:"time"`
	Pos   [3]float64 `yaml:"pos"`
	Vel   [3]float64 `yaml:"vel"`
	Acc   [3]float64 `yaml:"acc"`
	Jerk  [3]float64 `yaml:"jerk"`
}

func DefaultConfig() *Config {
	opts := interaction.DefaultOptions()
	return &Config{
		Name: "custom",
		Interaction: InteractionConfig{
			G:            DefaultG,
			Formulation:  opts.Formulation.String(),
			KickForm:     opts.KickForm.String(),
			Accumulation: opts.Accumulation.String(),
			PertExponent: opts.PertExponent.String(),
			Scope:        opts.Scope.String(),
			Timescale:    opts.Timescale.String(),
			SafetyFactor: DefaultSafetyFactor,
		},
		SlowDown: SlowDownConfig{
			RatioRef:  slowdown.DefaultRatioRef,
			FactorMax: slowdown.DefaultFactorMax,
		},
		Integration: IntegrationConfig{
			Order:   DefaultOrder,
			TimeEnd: DefaultTimeEnd,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Options converts the option names into typed values.
func (c *Config) Options() (interaction.Options, error) {
	ic := c.Interaction
	var (
		opts interaction.Options
		err  error
	)
	if opts.Formulation, err = interaction.ParseFormulation(ic.Formulation); err != nil {
		return opts, err
	}
	if opts.KickForm, err = interaction.ParseKickForm(ic.KickForm); err != nil {
		return opts, err
	}
	if opts.Accumulation, err = interaction.ParseAccumulation(ic.Accumulation); err != nil {
		return opts, err
	}
	if opts.PertExponent, err = interaction.ParsePertExponent(ic.PertExponent); err != nil {
		return opts, err
	}
	if opts.Scope, err = interaction.ParseSlowDownScope(ic.Scope); err != nil {
		return opts, err
	}
	if opts.Timescale, err = interaction.ParseTimescaleMethod(ic.Timescale); err != nil {
		return opts, err
	}
	opts.Softened = ic.Softened
	opts.SafetyFactor = ic.SafetyFactor
	return opts, opts.Validate()
}

// NewInteraction builds the validated interaction the config describes.
func (c *Config) NewInteraction() (*interaction.Interaction, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return interaction.New(c.Interaction.G, c.Interaction.EpsSq, opts)
}

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// BuildParticles returns a fresh particle slice. Massless entries start
// out unused.
func (c *Config) BuildParticles() ([]particle.Particle, error) {
	ps := make([]particle.Particle, len(c.Particles))
	for i, pc := range c.Particles {
		if !(pc.Mass >= 0) || !(pc.Radius >= 0) {
			return nil, fmt.Errorf("%w: particle %d mass %g radius %g", dynamo.ErrParameterBounds, pc.ID, pc.Mass, pc.Radius)
		}
		ps[i] = particle.Particle{
			ID:     pc.ID,
			Mass:   pc.Mass,
			Radius: pc.Radius,
			Pos:    vec(pc.Pos),
			Vel:    vec(pc.Vel),
		}
		if pc.Mass == 0 {
			ps[i].Status = particle.Unused
		}
	}
	return ps, nil
}

// BuildPerturbers returns the perturber list, nil when there are none.
func (c *Config) BuildPerturbers() *perturber.List {
	if len(c.Perturbers.Bodies) == 0 {
		return nil
	}
	list := &perturber.List{NeedResolve: c.Perturbers.NeedResolve}
	for _, pe := range c.Perturbers.Bodies {
		kind := perturber.Single
		if pe.Group {
			kind = perturber.GroupCM
		}
		list.Items = append(list.Items, perturber.Perturber{
			Kind: kind,
			Mass: pe.Mass,
			Time: pe.Time,
			Pos:  vec(pe.Pos),
			Vel:  vec(pe.Vel),
			Acc0: vec(pe.Acc),
			Acc1: vec(pe.Jerk),
		})
	}
	return list
}

// TimescaleMax returns the configured cap, unbounded when unset.
func (c *Config) TimescaleMax() float64 {
	if c.SlowDown.TimescaleMax > 0 {
		return c.SlowDown.TimescaleMax
	}
	return math.MaxFloat64
}

// FixStep returns the configured override and whether one is set.
func (c *Config) FixStep() (info.FixStepOption, bool, error) {
	if c.Integration.FixStep == "" {
		return 0, false, nil
	}
	opt, err := info.ParseFixStep(c.Integration.FixStep)
	return opt, err == nil, err
}

// ApplySlowDown sets the slowdown reference of the root and its direct
// sub-binaries and the factor cap of every node.
func (c *Config) ApplySlowDown(inf *info.Information) {
	inf.InitialSlowDownReference(c.SlowDown.RatioRef, c.TimescaleMax())
	for i := range inf.Tree.Nodes {
		inf.Tree.Nodes[i].SlowDown.FactorMax = c.SlowDown.FactorMax
	}
}
