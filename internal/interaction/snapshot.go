package interaction

import (
	"io"

	"github.com/san-kum/fewbody/internal/dynamo"
)

type record struct {
	G, EpsSq, SafetyFactor float64
	Formulation            int32
	KickForm               int32
	Accumulation           int32
	PertExponent           int32
	Scope                  int32
	Timescale              int32
	Softened               int32
	_                      int32
}

func (in *Interaction) WriteBinary(w io.Writer) error {
	o := in.Opts
	rec := record{
		G: in.G, EpsSq: in.EpsSq, SafetyFactor: o.SafetyFactor,
		Formulation: int32(o.Formulation), KickForm: int32(o.KickForm),
		Accumulation: int32(o.Accumulation), PertExponent: int32(o.PertExponent),
		Scope: int32(o.Scope), Timescale: int32(o.Timescale),
	}
	if o.Softened {
		rec.Softened = 1
	}
	return dynamo.WriteRecord(w, rec)
}

// ReadBinary restores and revalidates parameters written by WriteBinary.
// in is left unchanged on failure.
func (in *Interaction) ReadBinary(r io.Reader) error {
	var rec record
	if err := dynamo.ReadRecord(r, "interaction", &rec); err != nil {
		return err
	}
	opts := Options{
		Formulation:  Formulation(rec.Formulation),
		KickForm:     KickForm(rec.KickForm),
		Accumulation: Accumulation(rec.Accumulation),
		PertExponent: PertExponent(rec.PertExponent),
		Scope:        SlowDownScope(rec.Scope),
		Timescale:    TimescaleMethod(rec.Timescale),
		Softened:     rec.Softened != 0,
		SafetyFactor: rec.SafetyFactor,
	}
	loaded, err := New(rec.G, rec.EpsSq, opts)
	if err != nil {
		return err
	}
	*in = *loaded
	return nil
}
