// Package storage keeps snapshots of few-body groups on disk. Each run
// gets a directory holding metadata.json, the fixed-size binary records
// of the interaction, the group information and every tree node's
// slowdown, and the particles as CSV.
package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/info"
	"github.com/san-kum/fewbody/internal/interaction"
	"github.com/san-kum/fewbody/internal/particle"
	"github.com/san-kum/fewbody/internal/slowdown"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	metadataFile  = "metadata.json"
	recordsFile   = "records.bin"
	particlesFile = "particles.csv"
)

type Store struct {
	baseDir string
	log     zerolog.Logger
}

func New(baseDir string, log zerolog.Logger) *Store {
	return &Store{baseDir: baseDir, log: log}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Time      float64            `json:"time"`
	Particles int                `json:"particles"`
	Nodes     int                `json:"nodes"`
	Options   map[string]string  `json:"options"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Snapshot is everything needed to resume a group.
type Snapshot struct {
	Name        string
	Time        float64
	Interaction *interaction.Interaction
	Info        *info.Information
	Particles   []particle.Particle
	Metrics     map[string]float64
}

func optionNames(o interaction.Options) map[string]string {
	return map[string]string{
		"formulation":    o.Formulation.String(),
		"kick_form":      o.KickForm.String(),
		"accumulation":   o.Accumulation.String(),
		"pert_exponent":  o.PertExponent.String(),
		"slowdown_scope": o.Scope.String(),
		"timescale":      o.Timescale.String(),
		"softened":       strconv.FormatBool(o.Softened),
	}
}

func (s *Store) Save(snap *Snapshot) (string, error) {
	if snap.Interaction == nil || snap.Info == nil || snap.Info.Tree == nil {
		return "", fmt.Errorf("%w: snapshot without interaction or tree", dynamo.ErrDegenerate)
	}

	now := time.Now()
	runID := fmt.Sprintf("%s_%d", snap.Name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      snap.Name,
		Timestamp: now,
		Time:      snap.Time,
		Particles: len(snap.Particles),
		Nodes:     snap.Info.Tree.Len(),
		Options:   optionNames(snap.Interaction.Opts),
		Metrics:   snap.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, recordsFile), func(w io.Writer) error {
		return writeRecords(w, snap)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, particlesFile), func(w io.Writer) error {
		return writeParticles(w, snap.Particles)
	}); err != nil {
		return "", err
	}

	s.log.Info().Str("run", runID).Int("particles", meta.Particles).Int("nodes", meta.Nodes).Msg("snapshot saved")
	return runID, nil
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeRecords lays out the interaction, the information, the node
// count and one slowdown per node, in arena order.
func writeRecords(w io.Writer, snap *Snapshot) error {
	if err := snap.Interaction.WriteBinary(w); err != nil {
		return err
	}
	if err := snap.Info.WriteBinary(w); err != nil {
		return err
	}
	nodes := snap.Info.Tree.Nodes
	if err := dynamo.WriteRecord(w, int32(len(nodes))); err != nil {
		return err
	}
	for i := range nodes {
		if err := nodes[i].SlowDown.WriteBinary(w); err != nil {
			return err
		}
	}
	return nil
}

var particleHeader = []string{"id", "mass", "radius", "x", "y", "z", "vx", "vy", "vz", "status"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeParticles(w io.Writer, ps []particle.Particle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(particleHeader); err != nil {
		return err
	}
	for _, p := range ps {
		row := []string{
			strconv.Itoa(p.ID),
			formatFloat(p.Mass),
			formatFloat(p.Radius),
			formatFloat(p.Pos.X), formatFloat(p.Pos.Y), formatFloat(p.Pos.Z),
			formatFloat(p.Vel.X), formatFloat(p.Vel.Y), formatFloat(p.Vel.Z),
			strconv.Itoa(int(p.Status)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.Debug().Err(err).Str("dir", entry.Name()).Msg("skipping run")
			continue
		}
		runs = append(runs, *meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSnapshot restores a saved run. The binary tree is rebuilt from the
// particles and the stored slowdown states are put back on its nodes.
func (s *Store) LoadSnapshot(runID string) (*Snapshot, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	ps, err := s.loadParticles(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, recordsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	in := &interaction.Interaction{}
	if err := in.ReadBinary(r); err != nil {
		return nil, err
	}
	inf := info.New(len(ps))
	if err := inf.ReadBinary(r); err != nil {
		return nil, err
	}
	var count int32
	if err := dynamo.ReadRecord(r, "node count", &count); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: node count %d", dynamo.ErrInvalidState, count)
	}
	sds := make([]slowdown.SlowDown, count)
	for i := range sds {
		if err := sds[i].ReadBinary(r); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	ds, fix := inf.DS, inf.FixStep
	if err := inf.GenerateBinaryTree(ps, in.G); err != nil {
		return nil, err
	}
	if inf.Tree.Len() != len(sds) {
		return nil, fmt.Errorf("%w: %d slowdown records for %d nodes", dynamo.ErrInvalidState, len(sds), inf.Tree.Len())
	}
	for i := range sds {
		inf.Tree.Nodes[i].SlowDown = sds[i]
	}
	inf.DS, inf.FixStep = ds, fix

	return &Snapshot{
		Name:        meta.Name,
		Time:        meta.Time,
		Interaction: in,
		Info:        inf,
		Particles:   ps,
		Metrics:     meta.Metrics,
	}, nil
}

func (s *Store) loadParticles(runID string) ([]particle.Particle, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, particlesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%w: %s has no header", dynamo.ErrInvalidState, particlesFile)
	}

	ps := make([]particle.Particle, 0, len(records)-1)
	for i, rec := range records[1:] {
		p, err := parseParticle(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", particlesFile, i+2, err)
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func parseParticle(rec []string) (particle.Particle, error) {
	if len(rec) != len(particleHeader) {
		return particle.Particle{}, fmt.Errorf("%w: %d fields", dynamo.ErrInvalidState, len(rec))
	}
	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return particle.Particle{}, err
	}
	status, err := strconv.Atoi(rec[9])
	if err != nil {
		return particle.Particle{}, err
	}
	// mass, radius, x, y, z, vx, vy, vz
	var v [8]float64
	for j := range v {
		if v[j], err = strconv.ParseFloat(rec[j+1], 64); err != nil {
			return particle.Particle{}, err
		}
	}
	return particle.Particle{
		ID:     id,
		Mass:   v[0],
		Radius: v[1],
		Pos:    r3.Vec{X: v[2], Y: v[3], Z: v[4]},
		Vel:    r3.Vec{X: v[5], Y: v[6], Z: v[7]},
		Status: particle.Status(status),
	}, nil
}
