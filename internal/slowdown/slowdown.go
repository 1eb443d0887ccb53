// Package slowdown holds the slowdown state of one binary: the inner and
// external perturbation strengths, the inner period and the external
// timescale, and the factor derived from them.
package slowdown

import (
	"io"
	"math"

	"github.com/san-kum/fewbody/internal/dynamo"
	"github.com/san-kum/fewbody/internal/report"
)

const (
	DefaultRatioRef  = 1e-4
	DefaultFactorMax = 1e3
)

// SlowDown is owned by one tree node and recomputed once per slowdown
// update. The factor is always >= 1.
type SlowDown struct {
	PertIn       float64
	PertOut      float64
	Period       float64
	Timescale    float64
	RatioRef     float64
	TimescaleMax float64
	FactorMax    float64

	factor float64
}

func New() SlowDown {
	return SlowDown{
		RatioRef:     DefaultRatioRef,
		TimescaleMax: math.MaxFloat64,
		FactorMax:    DefaultFactorMax,
		factor:       1,
	}
}

// InitialReference sets the reference ratio and the timescale cap and
// resets the factor. Call it after the tree is built.
func (s *SlowDown) InitialReference(ratioRef, timescaleMax float64) {
	s.RatioRef = ratioRef
	s.TimescaleMax = timescaleMax
	s.Timescale = timescaleMax
	s.factor = 1
}

// CalcFactor derives the factor from the current perturbations and
// stores it. Without a measurable external perturbation or a bound inner
// orbit the factor is 1.
//
// The factor is discontinuous at PertOut = 0: there it is 1, while any
// small positive PertOut gives RatioRef*PertIn/PertOut, which is capped
// only by Timescale/Period and FactorMax. A group that loses its last
// perturber therefore drops from the capped factor straight back to 1.
func (s *SlowDown) CalcFactor() float64 {
	s.factor = s.evaluate()
	return s.factor
}

func (s *SlowDown) evaluate() float64 {
	if s.PertIn <= 0 || s.PertOut <= 0 || s.Period <= 0 {
		return 1
	}

	f := s.RatioRef * s.PertIn / s.PertOut
	f = math.Min(f, s.Timescale/s.Period)
	if s.FactorMax > 0 {
		f = math.Min(f, s.FactorMax)
	}
	if f < 1 || math.IsNaN(f) {
		return 1
	}
	return f
}

// Factor returns the last computed factor.
func (s SlowDown) Factor() float64 {
	if s.factor < 1 {
		return 1
	}
	return s.factor
}

// Enabled reports whether the factor slows the orbit down at all.
func (s SlowDown) Enabled() bool { return s.Factor() > 1 }

type record struct {
	PertIn, PertOut, Period, Timescale    float64
	RatioRef, TimescaleMax, FactorMax, Sd float64
}

func (s *SlowDown) WriteBinary(w io.Writer) error {
	return dynamo.WriteRecord(w, record{
		s.PertIn, s.PertOut, s.Period, s.Timescale,
		s.RatioRef, s.TimescaleMax, s.FactorMax, s.factor,
	})
}

// ReadBinary restores a record written by WriteBinary. s is left
// unchanged when the stream is short.
func (s *SlowDown) ReadBinary(r io.Reader) error {
	var rec record
	if err := dynamo.ReadRecord(r, "slowdown", &rec); err != nil {
		return err
	}
	*s = SlowDown{
		PertIn: rec.PertIn, PertOut: rec.PertOut, Period: rec.Period, Timescale: rec.Timescale,
		RatioRef: rec.RatioRef, TimescaleMax: rec.TimescaleMax, FactorMax: rec.FactorMax,
		factor: rec.Sd,
	}
	return nil
}

// Fields is the column layout of the slowdown report.
var Fields = []report.Field[*SlowDown]{
	{Title: "sd", Value: func(s *SlowDown) float64 { return s.Factor() }},
	{Title: "pert_in", Value: func(s *SlowDown) float64 { return s.PertIn }},
	{Title: "pert_out", Value: func(s *SlowDown) float64 { return s.PertOut }},
	{Title: "period", Value: func(s *SlowDown) float64 { return s.Period }},
	{Title: "timescale", Value: func(s *SlowDown) float64 { return s.Timescale }},
}

func (s *SlowDown) WriteColumnTitle(w io.Writer, width int) error {
	return report.WriteTitle(w, width, Fields, "")
}

func (s *SlowDown) WriteColumn(w io.Writer, width int) error {
	return report.WriteRow(w, width, Fields, s)
}
