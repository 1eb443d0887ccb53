package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EnergyDrift tracks the relative energy error of an integration.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	times         []float64
	errors        []float64
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) OnStep(t, energy float64) {
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.currentEnergy = energy
	e.samples++

	drift := 0.0
	if e.initialEnergy != 0 {
		drift = (energy - e.initialEnergy) / math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, math.Abs(drift))
	e.times = append(e.times, t)
	e.errors = append(e.errors, drift)
}

// Value returns the largest relative error seen.
func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Errors returns the signed relative error of every sample.
func (e *EnergyDrift) Errors() []float64 { return e.errors }

func (e *EnergyDrift) Times() []float64 { return e.times }

func (e *EnergyDrift) Samples() int { return e.samples }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
	e.times = e.times[:0]
	e.errors = e.errors[:0]
}

// Summary describes the distribution of the relative energy error.
type Summary struct {
	Samples int
	Mean    float64
	StdDev  float64
	Max     float64
	Final   float64
}

func (e *EnergyDrift) Summary() Summary {
	s := Summary{Samples: e.samples, Max: e.maxDrift}
	if e.samples == 0 {
		return s
	}
	s.Final = e.errors[len(e.errors)-1]
	if e.samples == 1 {
		s.Mean = s.Final
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(e.errors, nil)
	return s
}
