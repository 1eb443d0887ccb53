package main

import (
	"fmt"

	"github.com/san-kum/fewbody/internal/config"
	"github.com/san-kum/fewbody/internal/hermite"
	"github.com/san-kum/fewbody/internal/info"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/perturber"
	"github.com/san-kum/fewbody/internal/slowdown"
	"gonum.org/v1/gonum/spatial/r3"
)

// group is one regularized subsystem together with everything the core
// needs to evaluate it. Each group owns its state, so groups can be
// evaluated on different goroutines.
type group struct {
	name string
	cfg  *config.Config
	in   *interaction.Interaction
	ps   []particle.Particle
	inf  *info.Information
	list *perturber.List
	time float64
}

// resolveConfig picks the --config file if given, else the named preset.
func resolveConfig(args []string, fallback string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	name := fallback
	if len(args) > 0 {
		name = args[0]
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q (have %v)", name, config.ListPresets())
	}
	return cfg, nil
}

func newGroup(cfg *config.Config) (*group, error) {
	in, err := cfg.NewInteraction()
	if err != nil {
		return nil, err
	}
	ps, err := cfg.BuildParticles()
	if err != nil {
		return nil, err
	}
	particle.ShiftToCenterOfMass(ps)

	g := &group{name: cfg.Name, cfg: cfg, in: in, ps: ps, inf: info.New(len(ps))}
	g.list, err = preparePerturbers(cfg, in, ps)
	if err != nil {
		return nil, err
	}
	if err := g.rebuild(); err != nil {
		return nil, err
	}
	return g, nil
}

// rebuild regenerates the tree from the current particles and refreshes
// the step size and slowdown references.
func (g *group) rebuild() error {
	if err := g.inf.GenerateBinaryTree(g.ps, g.in.G); err != nil {
		return err
	}
	g.cfg.ApplySlowDown(g.inf)
	if err := g.inf.CalcDsAndStepOption(g.cfg.Integration.Order, g.in.G, g.in.Opts.Accumulation); err != nil {
		return err
	}
	if g.cfg.Integration.Ds > 0 {
		g.inf.DS = g.cfg.Integration.Ds
	}
	opt, ok, err := g.cfg.FixStep()
	if err != nil {
		return err
	}
	if ok {
		g.inf.SetFixStep(opt)
	}
	return nil
}

// preparePerturbers fills in acceleration and jerk of perturbers that
// were given without them, using the pair force between the perturbers
// and the group c.m.
func preparePerturbers(cfg *config.Config, in *interaction.Interaction, ps []particle.Particle) (*perturber.List, error) {
	list := cfg.BuildPerturbers()
	if list == nil {
		return nil, nil
	}
	pair, err := hermite.NewPair(in.G, in.EpsSq)
	if err != nil {
		return nil, err
	}

	bodies := make([]hermite.Body, 0, list.Len()+1)
	bodies = append(bodies, hermite.Body{Mass: particle.Mass(ps)})
	for _, p := range list.Items {
		bodies = append(bodies, hermite.Body{Mass: p.Mass, Pos: p.Pos, Vel: p.Vel})
	}
	forces := pair.Evaluate(bodies)

	for i := range list.Items {
		p := &list.Items[i]
		if p.Acc0 != (r3.Vec{}) || p.Acc1 != (r3.Vec{}) {
			continue
		}
		*p = hermite.Perturber(p.Kind, bodies[i+1], forces[i+1], p.Time)
	}
	return list, nil
}

// evaluateSlowDown measures the perturbation of the group at its current
// time and updates the slowdown of the root, and of the innermost binary
// when the scope asks for it.
func (g *group) evaluateSlowDown() error {
	root := g.inf.Root()
	if err := g.in.CalcSlowDownPert(&root.SlowDown, nil, root, g.ps, g.list, g.time); err != nil {
		return err
	}
	if g.in.Opts.Scope != interaction.InnerBinary {
		return nil
	}
	idx := g.inf.Tree.Innermost()
	if idx < 0 || idx == g.inf.Tree.RootIndex() {
		return nil
	}
	nd := &g.inf.Tree.Nodes[idx]
	g.in.CalcSlowDownInnerBinary(&nd.SlowDown, &root.SlowDown, g.inf.Tree, idx, g.ps)
	return nil
}

// slowest returns the node slowdown with the largest factor.
func (g *group) slowest() slowdown.SlowDown {
	best := g.inf.Root().SlowDown
	for i := range g.inf.Tree.Nodes {
		if sd := g.inf.Tree.Nodes[i].SlowDown; sd.Factor() > best.Factor() {
			best = sd
		}
	}
	return best
}
