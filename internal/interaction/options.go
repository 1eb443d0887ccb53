package interaction

import (
	"fmt"
	"strings"

	"github.com/san-kum/fewbody/internal/dynamo"
)

// Formulation selects the time transformation of the regularized
// integrator.
type Formulation int32

const (
	// LogH uses the inverse potential as the kick transformation and
	// (T + B) for the drift.
	LogH Formulation = iota
	// TTL integrates the transformation function along the orbit and
	// needs its spatial gradient.
	TTL
)

// KickForm selects which of the two equivalent kick factors is returned.
type KickForm int32

const (
	KickInverse KickForm = iota // |U|
	KickDirect                  // 1/|U|
)

// Accumulation selects how pair contributions build the kick factor.
type Accumulation int32

const (
	Sum Accumulation = iota
	Product
)

// PertExponent is the power of distance in perturbation strengths.
type PertExponent int32

const (
	Cubic PertExponent = iota
	Quartic
)

// SlowDownScope selects which binary the slowdown factor is computed for.
type SlowDownScope int32

const (
	// Tree measures the whole group against its perturbers.
	Tree SlowDownScope = iota
	// InnerBinary measures the innermost binary against the rest of the
	// group plus the group's own external perturbation.
	InnerBinary
	// Suppressed ignores the inner strength, keeping the factor at 1.
	Suppressed
)

// TimescaleMethod selects the external timescale estimator.
type TimescaleMethod int32

const (
	Combined TimescaleMethod = iota
	ForceOnly
)

// Options is the set of kernel variants chosen at construction.
type Options struct {
	Formulation  Formulation
	KickForm     KickForm
	Accumulation Accumulation
	PertExponent PertExponent
	Scope        SlowDownScope
	Timescale    TimescaleMethod
	Softened     bool
	SafetyFactor float64
}

func DefaultOptions() Options {
	return Options{
		Formulation:  LogH,
		KickForm:     KickInverse,
		Accumulation: Sum,
		PertExponent: Cubic,
		Scope:        Tree,
		Timescale:    Combined,
		SafetyFactor: 0.1,
	}
}

var (
	formulationNames  = []string{"logh", "ttl"}
	kickFormNames     = []string{"inverse", "direct"}
	accumulationNames = []string{"sum", "product"}
	exponentNames     = []string{"cubic", "quartic"}
	scopeNames        = []string{"tree", "inner", "suppressed"}
	timescaleNames    = []string{"combined", "force"}
)

func name(names []string, v int32) string {
	if v >= 0 && int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("unknown(%d)", v)
}

func parse(kind string, names []string, s string) (int32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return int32(i), nil
		}
	}
	return 0, dynamo.Bounds(kind, s)
}

func (f Formulation) String() string     { return name(formulationNames, int32(f)) }
func (k KickForm) String() string        { return name(kickFormNames, int32(k)) }
func (a Accumulation) String() string    { return name(accumulationNames, int32(a)) }
func (p PertExponent) String() string    { return name(exponentNames, int32(p)) }
func (s SlowDownScope) String() string   { return name(scopeNames, int32(s)) }
func (t TimescaleMethod) String() string { return name(timescaleNames, int32(t)) }

func ParseFormulation(s string) (Formulation, error) {
	v, err := parse("formulation", formulationNames, s)
	return Formulation(v), err
}

func ParseKickForm(s string) (KickForm, error) {
	v, err := parse("kick_form", kickFormNames, s)
	return KickForm(v), err
}

func ParseAccumulation(s string) (Accumulation, error) {
	v, err := parse("accumulation", accumulationNames, s)
	return Accumulation(v), err
}

func ParsePertExponent(s string) (PertExponent, error) {
	v, err := parse("pert_exponent", exponentNames, s)
	return PertExponent(v), err
}

func ParseSlowDownScope(s string) (SlowDownScope, error) {
	v, err := parse("slowdown_scope", scopeNames, s)
	return SlowDownScope(v), err
}

func ParseTimescaleMethod(s string) (TimescaleMethod, error) {
	v, err := parse("timescale", timescaleNames, s)
	return TimescaleMethod(v), err
}

// Validate checks every enum is in range.
func (o Options) Validate() error {
	checks := []struct {
		name  string
		v     int32
		count int
	}{
		{"formulation", int32(o.Formulation), len(formulationNames)},
		{"kick_form", int32(o.KickForm), len(kickFormNames)},
		{"accumulation", int32(o.Accumulation), len(accumulationNames)},
		{"pert_exponent", int32(o.PertExponent), len(exponentNames)},
		{"slowdown_scope", int32(o.Scope), len(scopeNames)},
		{"timescale", int32(o.Timescale), len(timescaleNames)},
	}
	for _, c := range checks {
		if c.v < 0 || int(c.v) >= c.count {
			return dynamo.Bounds(c.name, c.v)
		}
	}
	if !(o.SafetyFactor > 0 && o.SafetyFactor <= 1) {
		return dynamo.Bounds("safety_factor", o.SafetyFactor)
	}
	return nil
}
