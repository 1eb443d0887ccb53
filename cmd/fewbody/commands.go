package main

import (
	"fmt"
	"math"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fewbody/internal/bintree"
	"github.com/san-kum/fewbody/internal/config"
	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/info"
	"github.com/san-kum/fewbody/internal/integrators"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/metrics"
	"github.com/san-kum/fewbody/internal/orbit"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

func loadGroup(args []string, fallback string) (*group, error) {
	cfg, err := resolveConfig(args, fallback)
	if err != nil {
		return nil, err
	}
	g, err := newGroup(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	logger.Debug().Str("group", g.name).Int("particles", len(g.ps)).Int("nodes", g.inf.Tree.Len()).Msg("group ready")
	return g, nil
}

func printTree(g *group) error {
	title(fmt.Sprintf("%s %s", g.name, g.inf.Tree.Shape(g.ps)))
	metric("ds", "%.6g", g.inf.DS)
	metric("fix_step", "%s", g.inf.FixStep)
	metric("leaves", "%d", g.inf.Tree.Leaves())
	metric("depth", "%d", g.inf.Tree.Depth())

	w := os.Stdout
	fmt.Fprintf(w, "%6s", "node")
	if err := bintree.WriteColumnTitle(w, width); err != nil {
		return err
	}
	fmt.Fprintln(w)
	for i := range g.inf.Tree.Nodes {
		fmt.Fprintf(w, "%6d", i)
		if err := g.inf.Tree.Nodes[i].WriteColumn(w, width); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	g, err := loadGroup(args, "triple")
	if err != nil {
		return err
	}
	return printTree(g)
}

func runSlowDown(cmd *cobra.Command, args []string) error {
	g, err := loadGroup(args, "perturbed")
	if err != nil {
		return err
	}
	if err := g.evaluateSlowDown(); err != nil {
		return err
	}

	sd := g.slowest()
	title(fmt.Sprintf("%s slowdown (%s scope)", g.name, g.in.Opts.Scope))
	metric("pert_in", "%.6g", sd.PertIn)
	metric("pert_out", "%.6g", sd.PertOut)
	metric("period", "%.6g", sd.Period)
	metric("timescale", "%.6g", sd.Timescale)
	metric("factor", "%.6g", sd.Factor())
	if !sd.Enabled() {
		fmt.Println(subtle.Render("  group is not slowed down"))
	}
	fmt.Println()
	return printTree(g)
}

func runKepler(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.Interaction = loaded.Interaction
	}
	in, err := cfg.NewInteraction()
	if err != nil {
		return err
	}
	if !(semi > 0) || !(ecc >= 0 && ecc < 1) {
		return fmt.Errorf("%w: semi %g ecc %g does not describe an ellipse", dynamo.ErrParameterBounds, semi, ecc)
	}
	if !(mass1 > 0) || !(mass2 > 0) {
		return fmt.Errorf("%w: masses %g, %g", dynamo.ErrParameterBounds, mass1, mass2)
	}

	el := orbit.Elements{Semi: semi, Ecc: ecc}
	dr, dv := el.ToRelative(mass1, mass2, in.G)
	ps := []particle.Particle{
		{ID: 0, Mass: mass1},
		{ID: 1, Mass: mass2, Pos: dr, Vel: dv},
	}

	start := orbit.FromRelative(mass1, mass2, dr, dv, in.G)

	inf := info.New(len(ps))
	if err := inf.GenerateBinaryTree(ps, in.G); err != nil {
		return err
	}
	if err := inf.CalcDsAndStepOption(cfg.Integration.Order, in.G, in.Opts.Accumulation); err != nil {
		return err
	}

	ar, err := integrators.NewAR(in, inf.DS)
	if err != nil {
		return err
	}
	drift := metrics.NewEnergyDrift()
	ar.Observer = drift
	if err := ar.Init(ps, 0); err != nil {
		return err
	}

	began := time.Now()
	res, err := ar.IntegrateToTime(cmd.Context(), ps, start.Period)
	if err != nil {
		return err
	}
	logger.Info().Int("steps", res.Steps).Dur("elapsed", time.Since(began)).Msg("orbit integrated")

	end := orbit.FromRelative(mass1, mass2, r3.Sub(ps[1].Pos, ps[0].Pos), r3.Sub(ps[1].Vel, ps[0].Vel), in.G)
	title(fmt.Sprintf("kepler %s, one period", in.Opts.Formulation))
	metric("ds", "%.6g", inf.DS)
	metric("steps", "%d", res.Steps)
	metric("time", "%.12g", res.Time)
	metric("semi", "%.12g -> %.12g", start.Semi, end.Semi)
	metric("ecc", "%.12g -> %.12g", start.Ecc, end.Ecc)
	if in.Opts.Formulation == interaction.LogH {
		etot, err := ar.Energy(ps)
		if err != nil {
			return err
		}
		ekin := particle.KineticEnergy(ps)
		metric("H", "%.3e", in.CalcH(ekin-ar.IntegratedEnergy(), etot-ekin))
	}

	s := drift.Summary()
	metric("dE/E max", "%.3e", s.Max)
	metric("dE/E mean", "%.3e", s.Mean)
	metric("dE/E std", "%.3e", s.StdDev)

	if len(drift.Errors()) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(drift.Errors(),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("relative energy error"),
		))
	}
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	g, err := loadGroup(args, "merger")
	if err != nil {
		return err
	}
	if !(window > 0) {
		return dynamo.Bounds("window", window)
	}

	ar, err := integrators.NewAR(g.in, g.inf.DS)
	if err != nil {
		return err
	}
	if err := ar.Init(g.ps, 0); err != nil {
		return err
	}

	tEnd := g.cfg.Integration.TimeEnd
	merges := 0
	for ar.Time() < tEnd {
		if err := g.inf.GenerateBinaryTree(g.ps, g.in.G); err != nil {
			return err
		}
		now := ar.Time()
		bi := interaction.NewBinaryInterrupt(now, math.Min(now+window, tEnd))
		if err := g.in.ModifyAndInterrupt(&bi, g.inf.Tree, g.ps); err != nil {
			return err
		}

		if bi.Status == interaction.Change {
			logger.Debug().Float64("time", now).Int("node", bi.Node).Msg("pericenter check scheduled")
		}
		if bi.Status == interaction.Merge {
			merges++
			nd := &g.inf.Tree.Nodes[bi.Node]
			logger.Info().Float64("time", now).Int("node", bi.Node).Float64("mass", nd.Mass).Msg("pair merged")
			fmt.Println(warnStyle.Render(fmt.Sprintf("t=%.6g merged node %d (mass %.6g)", now, bi.Node, nd.Mass)))
			if live(g.ps) < 2 {
				break
			}
			if err := g.rebuild(); err != nil {
				return err
			}
			ar.Ds = g.inf.DS
			if err := ar.Init(g.ps, now); err != nil {
				return err
			}
			continue
		}

		if _, err := ar.IntegrateToTime(cmd.Context(), g.ps, bi.TimeEnd); err != nil {
			return err
		}
	}

	title(fmt.Sprintf("%s after t=%.6g", g.name, ar.Time()))
	metric("merges", "%d", merges)
	for _, p := range g.ps {
		metric(fmt.Sprintf("particle %d", p.ID), "%s mass %.6g", p.Status, p.Mass)
	}
	return nil
}

func live(ps []particle.Particle) int {
	n := 0
	for _, p := range ps {
		if p.Status.Live() {
			n++
		}
	}
	return n
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args, "perturbed")
	if err != nil {
		return err
	}
	if len(cfg.Perturbers.Bodies) == 0 {
		return fmt.Errorf("%w: %s has no perturbers", dynamo.ErrDegenerate, cfg.Name)
	}
	if sweepPoints < 2 || !(sweepMin > 0) || !(sweepMax > sweepMin) {
		return fmt.Errorf("%w: points %d range [%g, %g]", dynamo.ErrParameterBounds, sweepPoints, sweepMin, sweepMax)
	}

	factors := make([]float64, sweepPoints)
	var (
		mu       sync.Mutex
		firstErr error
	)
	exec := dynamo.NewExecutor(viper.GetInt("workers"), logger)
	err = exec.ParallelFor(cmd.Context(), sweepPoints, 4, func(start, end int) {
		for i := start; i < end; i++ {
			f, err := factorAt(cfg, i)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			factors[i] = math.Log10(f)
		}
	})
	if err != nil {
		return err
	}
	if firstErr != nil {
		return firstErr
	}

	title(fmt.Sprintf("%s: log10 slowdown factor, perturber at %g .. %g", cfg.Name, sweepMin, sweepMax))
	fmt.Println(asciigraph.Plot(factors,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("log10(factor) vs distance (log spaced)"),
	))
	return nil
}

// factorAt moves the first perturber to the i-th log-spaced distance and
// returns the resulting slowdown factor.
func factorAt(base *config.Config, i int) (float64, error) {
	cfg := *base
	cfg.Perturbers.Bodies = append([]config.PerturberEntry(nil), base.Perturbers.Bodies...)

	frac := float64(i) / float64(sweepPoints-1)
	d := sweepMin * math.Pow(sweepMax/sweepMin, frac)
	p := &cfg.Perturbers.Bodies[0]
	r := math.Sqrt(p.Pos[0]*p.Pos[0] + p.Pos[1]*p.Pos[1] + p.Pos[2]*p.Pos[2])
	if r == 0 {
		p.Pos = [3]float64{d, 0, 0}
	} else {
		for k := range p.Pos {
			p.Pos[k] *= d / r
		}
	}

	g, err := newGroup(&cfg)
	if err != nil {
		return 0, err
	}
	if err := g.evaluateSlowDown(); err != nil {
		return 0, err
	}
	return g.slowest().Factor(), nil
}

func openStore() (*storage.Store, error) {
	st := storage.New(viper.GetString("data"), logger)
	return st, st.Init()
}

func writeSnapshot(cmd *cobra.Command, args []string) error {
	g, err := loadGroup(args, "triple")
	if err != nil {
		return err
	}
	if err := g.evaluateSlowDown(); err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}

	runID, err := st.Save(&storage.Snapshot{
		Name:        g.name,
		Time:        g.time,
		Interaction: g.in,
		Info:        g.inf,
		Particles:   g.ps,
		Metrics:     map[string]float64{"slowdown_factor": g.slowest().Factor()},
	})
	if err != nil {
		return err
	}
	metric("run id", "%s", runID)
	return nil
}

func readSnapshot(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	snap, err := st.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	g := &group{
		name: snap.Name,
		in:   snap.Interaction,
		ps:   snap.Particles,
		inf:  snap.Info,
		time: snap.Time,
	}
	metric("time", "%.6g", snap.Time)
	for k, v := range snap.Metrics {
		metric(k, "%.6g", v)
	}
	return printTree(g)
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSAVED\tTIME\tPARTICLES\tNODES\tFORMULATION")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4g\t%d\t%d\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Time,
			run.Particles,
			run.Nodes,
			run.Options["formulation"],
		)
	}
	return w.Flush()
}

type batchRow struct {
	name   string
	shape  string
	ds     float64
	fix    string
	factor float64
}

func runBatch(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.ListPresets()
	}

	rows := make([]batchRow, len(names))
	tasks := make([]func() error, len(names))
	for i, name := range names {
		i, name := i, name
		tasks[i] = func() error {
			g, err := loadGroup([]string{name}, name)
			if err != nil {
				return err
			}
			if err := g.evaluateSlowDown(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			rows[i] = batchRow{
				name:   name,
				shape:  g.inf.Tree.Shape(g.ps),
				ds:     g.inf.DS,
				fix:    g.inf.FixStep.String(),
				factor: g.slowest().Factor(),
			}
			return nil
		}
	}

	exec := dynamo.NewExecutor(viper.GetInt("workers"), logger)
	if err := exec.Run(cmd.Context(), tasks); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tTREE\tDS\tFIX\tFACTOR")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%.4g\t%s\t%.4g\n", r.name, r.shape, r.ds, r.fix, r.factor)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	title("presets")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		metric(name, "%d particles, %d perturbers, t_end %.4g", len(cfg.Particles), len(cfg.Perturbers.Bodies), cfg.Integration.TimeEnd)
	}
	return nil
}
