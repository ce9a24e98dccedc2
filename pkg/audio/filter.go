package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// FilterType names a biquad response.
type FilterType string

const (
	Lowpass   FilterType = "lowpass"
	Highpass  FilterType = "highpass"
	Bandpass  FilterType = "bandpass"
	Notch     FilterType = "notch"
	Allpass   FilterType = "allpass"
	Lowshelf  FilterType = "lowshelf"
	Highshelf FilterType = "highshelf"
	Peaking   FilterType = "peaking"
)

// Valid reports whether t is a known filter type.
func (t FilterType) Valid() bool {
	switch t {
	case Lowpass, Highpass, Bandpass, Notch, Allpass, Lowshelf, Highshelf, Peaking:
		return true
	}
	return false
}

// usesQ reports whether the response shape depends on Q.
func (t FilterType) usesQ() bool {
	return t != Lowshelf && t != Highshelf
}

// Rolloff is the filter slope in dB per octave.
type Rolloff int

const (
	Rolloff12 Rolloff = -12
	Rolloff24 Rolloff = -24
	Rolloff48 Rolloff = -48
	Rolloff96 Rolloff = -96
)

// Stages returns the number of cascaded biquads, or 0 for an invalid slope.
func (r Rolloff) Stages() int {
	switch r {
	case Rolloff12:
		return 1
	case Rolloff24:
		return 2
	case Rolloff48:
		return 4
	case Rolloff96:
		return 8
	}
	return 0
}

// FilterOptions configures a new Filter.
type FilterOptions struct {
	Type      FilterType
	Frequency float64
	Q         float64
	Gain      float64
	Rolloff   Rolloff
}

// Filter is a cascade of identical biquads. The rolloff is fixed at
// construction.
type Filter struct {
	*node
	Frequency *Param
	Q         *Param
	Gain      *Param

	typ     FilterType
	rolloff Rolloff
	bypass  bool
	coeffs  []biquad.Coefficients
	chains  [2]*biquad.Chain
	buf     []float64
}

// NewFilter creates a filter. An unknown type or rolloff is an error.
func NewFilter(ctx *Context, opts FilterOptions) (*Filter, error) {
	if opts.Type == "" {
		opts.Type = Lowpass
	}
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("audio: filter type %q: %w", opts.Type, ErrUnsupported)
	}
	if opts.Rolloff == 0 {
		opts.Rolloff = Rolloff12
	}
	stages := opts.Rolloff.Stages()
	if stages == 0 {
		return nil, fmt.Errorf("audio: filter rolloff %d: %w", opts.Rolloff, ErrUnsupported)
	}
	if opts.Frequency <= 0 {
		opts.Frequency = 350
	}
	if opts.Q <= 0 {
		opts.Q = 1
	}

	f := &Filter{
		node:    newNode(ctx, "Filter", 1),
		typ:     opts.Type,
		rolloff: opts.Rolloff,
		coeffs:  make([]biquad.Coefficients, stages),
		buf:     make([]float64, BlockSize),
	}
	for ch := range f.chains {
		f.chains[ch] = biquad.NewChain(f.coeffs)
	}
	f.Frequency = f.newParam("frequency", UnitsFrequency, opts.Frequency, 0, math.Max(20000, ctx.sampleRate/2))
	f.Q = f.newParam("Q", UnitsNumber, opts.Q, 0.0001, 100)
	f.Gain = f.newParam("gain", UnitsNumber, opts.Gain, -40, 40)
	f.process = f.render
	return f, nil
}

// Type returns the current response type.
func (f *Filter) Type() FilterType {
	return f.typ
}

// SetType changes the response type.
func (f *Filter) SetType(t FilterType) error {
	if !t.Valid() {
		return fmt.Errorf("audio: filter type %q: %w", t, ErrUnsupported)
	}
	f.typ = t
	return nil
}

// SetQ writes Q directly. Shelving responses have no Q.
func (f *Filter) SetQ(q float64) error {
	if !f.typ.usesQ() {
		return fmt.Errorf("audio: Q on %s filter: %w", f.typ, ErrUnsupported)
	}
	f.Q.SetValue(q)
	return nil
}

// Rolloff returns the construction-time slope.
func (f *Filter) Rolloff() Rolloff {
	return f.rolloff
}

// SetBypass passes the input through untouched while bypassed.
func (f *Filter) SetBypass(bypass bool) {
	if f.bypass && !bypass {
		for _, c := range f.chains {
			c.Reset()
		}
	}
	f.bypass = bypass
}

// Bypassed reports whether the filter is bypassed.
func (f *Filter) Bypassed() bool {
	return f.bypass
}

func (f *Filter) render(out block, n int) {
	in := f.input(0, n)
	freq := f.Frequency.fill(n)
	q := f.Q.fill(n)
	gain := f.Gain.fill(n)

	if f.bypass {
		copy(out[0], in[0])
		copy(out[1], in[1])
		return
	}

	c := designCoefficients(f.typ, f.ctx.sampleRate, float64(freq[0]), float64(q[0]), float64(gain[0]))
	for i := range f.coeffs {
		f.coeffs[i] = c
	}
	buf := f.buf[:n]
	for ch, chain := range f.chains {
		for i := range buf {
			buf[i] = float64(in[ch][i])
		}
		chain.UpdateCoefficients(f.coeffs, 1)
		chain.ProcessBlock(buf)
		for i, y := range buf {
			out[ch][i] = float32(y)
		}
	}
}

// designCoefficients returns RBJ cookbook coefficients with the cutoff kept
// inside (10 Hz, 0.49 fs). Bandpass is scaled to a 0 dB peak and shelves use
// slope 1.
func designCoefficients(t FilterType, sampleRate, freq, q, gainDB float64) biquad.Coefficients {
	freq = math.Min(math.Max(freq, 10), sampleRate*0.49)
	q = math.Max(q, 0.0001)
	switch t {
	case Highpass:
		return design.Highpass(freq, q, sampleRate)
	case Bandpass:
		c := design.Bandpass(freq, q, sampleRate)
		c.B0 /= q
		c.B2 /= q
		return c
	case Notch:
		return design.Notch(freq, q, sampleRate)
	case Allpass:
		return design.Allpass(freq, q, sampleRate)
	case Peaking:
		return design.Peak(freq, gainDB, q, sampleRate)
	case Lowshelf:
		return design.LowShelf(freq, gainDB, math.Sqrt2/2, sampleRate)
	case Highshelf:
		return design.HighShelf(freq, gainDB, math.Sqrt2/2, sampleRate)
	}
	return design.Lowpass(freq, q, sampleRate)
}
