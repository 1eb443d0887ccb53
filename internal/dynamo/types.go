package dynamo

import "math"

// Observer receives the total energy of a group after every step.
type Observer interface {
	OnStep(t, energy float64)
}

// Metric is an Observer that reduces what it saw to one value.
type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}

// Finite reports whether every value is neither NaN nor infinite.
func Finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
