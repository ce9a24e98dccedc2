package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// sweepRange returns a band starting at base and spanning octaves, kept
// below 0.45 of the sample rate. hi is always above lo.
func sweepRange(base, octaves, sampleRate float64) (lo, hi float64) {
	top := sampleRate * 0.45
	lo = math.Max(1, math.Min(base, top/2))
	hi = math.Min(lo*math.Exp2(math.Max(octaves, 0.01)), top)
	return lo, hi
}

// Phaser sweeps a cascade of first-order allpass stages, the right channel
// half a cycle behind the left.
type Phaser struct {
	*wetDry
	Frequency *Param
	Q         *Param

	octaves       float64
	baseFrequency float64
	rate          float64
	q             float64
	sweeps        [2]*modulation.Phaser
}

const (
	phaserStages      = 10
	phaserMaxFeedback = 0.9
)

// NewPhaser creates a phaser sweeping octaves up from baseFrequency at the
// given rate.
func NewPhaser(ctx *Context, frequency, octaves, baseFrequency float64) *Phaser {
	p := &Phaser{
		wetDry:        newWetDry(ctx, "Phaser", 1),
		octaves:       octaves,
		baseFrequency: baseFrequency,
		q:             math.NaN(),
	}
	p.Frequency = p.newParam("frequency", UnitsFrequency, frequency, 0, 20)
	p.Q = p.newParam("Q", UnitsNumber, 10, 0.0001, 100)
	for ch := range p.sweeps {
		ph, err := modulation.NewPhaser(ctx.sampleRate)
		must(err)
		must(ph.SetStages(phaserStages))
		must(ph.SetMix(1))
		p.sweeps[ch] = ph
	}
	p.applyRange()
	p.setRate(p.Frequency.Value())
	p.setQ(p.Q.Value())
	advanceLFO(p.sweeps[1].ProcessSample, 180, p.rate, ctx.sampleRate)
	p.fx = p.render
	return p
}

// SetOctaves sets the sweep range.
func (p *Phaser) SetOctaves(octaves float64) {
	p.octaves = octaves
	p.applyRange()
}

// Octaves returns the sweep range.
func (p *Phaser) Octaves() float64 {
	return p.octaves
}

// SetBaseFrequency sets the bottom of the sweep in Hz.
func (p *Phaser) SetBaseFrequency(hz float64) {
	p.baseFrequency = hz
	p.applyRange()
}

// BaseFrequency returns the bottom of the sweep in Hz.
func (p *Phaser) BaseFrequency() float64 {
	return p.baseFrequency
}

func (p *Phaser) applyRange() {
	lo, hi := sweepRange(p.baseFrequency, p.octaves, p.ctx.sampleRate)
	for _, ph := range p.sweeps {
		must(ph.SetFrequencyRangeHz(lo, hi))
	}
}

func (p *Phaser) setRate(hz float64) {
	hz = math.Max(hz, minModRate)
	if hz == p.rate {
		return
	}
	p.rate = hz
	for _, ph := range p.sweeps {
		must(ph.SetRateHz(hz))
	}
}

// setQ deepens the notches through the stage feedback.
func (p *Phaser) setQ(q float64) {
	if q == p.q {
		return
	}
	p.q = q
	for _, ph := range p.sweeps {
		must(ph.SetFeedback(phaserMaxFeedback * q / (q + 1)))
	}
}

func (p *Phaser) render(in, wet block, n int) {
	freq := p.Frequency.fill(n)
	q := p.Q.fill(n)
	p.setQ(float64(q[0]))
	for i := 0; i < n; i++ {
		p.setRate(float64(freq[i]))
		for ch, ph := range p.sweeps {
			wet[ch][i] = float32(ph.ProcessSample(float64(in[ch][i])))
		}
	}
}

// Tremolo modulates amplitude, with the two channels' LFOs offset by Spread
// degrees.
type Tremolo struct {
	*wetDry
	Frequency *Param
	Depth     *Param

	spread float64
	rate   float64
	depth  float64
	voices [2]*modulation.Tremolo
}

// NewTremolo creates a tremolo with rate in Hz and depth 0..1.
func NewTremolo(ctx *Context, frequency, depth float64) *Tremolo {
	t := &Tremolo{wetDry: newWetDry(ctx, "Tremolo", 1), spread: 180, depth: math.NaN()}
	t.Frequency = t.newParam("frequency", UnitsFrequency, frequency, 0, 40)
	t.Depth = t.newParam("depth", UnitsNormal, depth, 0, 1)
	for ch := range t.voices {
		v, err := modulation.NewTremolo(ctx.sampleRate)
		must(err)
		must(v.SetMix(1))
		t.voices[ch] = v
	}
	t.setRate(t.Frequency.Value())
	t.setDepth(t.Depth.Value())
	t.phaseVoices()
	t.fx = t.render
	return t
}

// SetSpread sets the LFO phase offset between channels in degrees.
func (t *Tremolo) SetSpread(deg float64) {
	t.spread = deg
	t.phaseVoices()
}

// Spread returns the channel phase offset.
func (t *Tremolo) Spread() float64 {
	return t.spread
}

func (t *Tremolo) phaseVoices() {
	for _, v := range t.voices {
		v.Reset()
	}
	advanceLFO(t.voices[1].ProcessSample, t.spread, t.rate, t.ctx.sampleRate)
}

func (t *Tremolo) setRate(hz float64) {
	hz = math.Max(hz, minModRate)
	if hz == t.rate {
		return
	}
	t.rate = hz
	for _, v := range t.voices {
		must(v.SetRateHz(hz))
	}
}

func (t *Tremolo) setDepth(depth float64) {
	if depth == t.depth {
		return
	}
	t.depth = depth
	for _, v := range t.voices {
		must(v.SetDepth(depth))
	}
}

func (t *Tremolo) render(in, wet block, n int) {
	freq := t.Frequency.fill(n)
	depth := t.Depth.fill(n)
	for i := 0; i < n; i++ {
		t.setRate(float64(freq[i]))
		t.setDepth(float64(depth[i]))
		for ch, v := range t.voices {
			wet[ch][i] = float32(v.ProcessSample(float64(in[ch][i])))
		}
	}
}

// AutoFilter sweeps a filter cutoff with an LFO.
type AutoFilter struct {
	*wetDry
	Frequency *Param
	Depth     *Param

	baseFrequency float64
	octaves       float64
	typ           FilterType
	q             float64
	sections      [2]biquad.Section
	lfo           oscPhase
}

// NewAutoFilter creates a lowpass auto filter.
func NewAutoFilter(ctx *Context, frequency, baseFrequency, octaves float64) *AutoFilter {
	a := &AutoFilter{
		wetDry:        newWetDry(ctx, "AutoFilter", 1),
		baseFrequency: baseFrequency,
		octaves:       octaves,
		typ:           Lowpass,
		q:             1,
	}
	a.Frequency = a.newParam("frequency", UnitsFrequency, frequency, 0, 40)
	a.Depth = a.newParam("depth", UnitsNormal, 1, 0, 1)
	a.fx = a.render
	return a
}

// SetBaseFrequency sets the bottom of the sweep in Hz.
func (a *AutoFilter) SetBaseFrequency(hz float64) {
	a.baseFrequency = hz
}

// BaseFrequency returns the bottom of the sweep.
func (a *AutoFilter) BaseFrequency() float64 {
	return a.baseFrequency
}

// SetOctaves sets the sweep range.
func (a *AutoFilter) SetOctaves(octaves float64) {
	a.octaves = octaves
}

// Octaves returns the sweep range.
func (a *AutoFilter) Octaves() float64 {
	return a.octaves
}

// SetFilterType changes the swept filter's response.
func (a *AutoFilter) SetFilterType(t FilterType) error {
	if !t.Valid() {
		return fmt.Errorf("audio: autofilter type %q: %w", t, ErrUnsupported)
	}
	a.typ = t
	return nil
}

// SetQ sets the swept filter's Q.
func (a *AutoFilter) SetQ(q float64) {
	a.q = math.Max(q, 0.0001)
}

func (a *AutoFilter) render(in, wet block, n int) {
	freq := a.Frequency.fill(n)
	depth := a.Depth.fill(n)
	sr := a.ctx.sampleRate
	for i := 0; i < n; i++ {
		ph := a.lfo.next(float64(freq[i]), sr)
		sweep := float64(depth[i]) * (0.5 + 0.5*sineAt(ph, 0))
		c := designCoefficients(a.typ, sr, a.baseFrequency*math.Exp2(a.octaves*sweep), a.q, 0)
		for ch := range wet {
			s := &a.sections[ch]
			s.Coefficients = c
			wet[ch][i] = float32(s.ProcessSample(float64(in[ch][i])))
		}
	}
}

// AutoPanner moves its input across the stereo field with an LFO.
type AutoPanner struct {
	*wetDry
	Frequency *Param
	Depth     *Param

	lfo oscPhase
}

// NewAutoPanner creates an auto panner with rate in Hz.
func NewAutoPanner(ctx *Context, frequency float64) *AutoPanner {
	a := &AutoPanner{wetDry: newWetDry(ctx, "AutoPanner", 1)}
	a.Frequency = a.newParam("frequency", UnitsFrequency, frequency, 0, 40)
	a.Depth = a.newParam("depth", UnitsNormal, 1, 0, 1)
	a.fx = a.render
	return a
}

func (a *AutoPanner) render(in, wet block, n int) {
	freq := a.Frequency.fill(n)
	depth := a.Depth.fill(n)
	sr := a.ctx.sampleRate
	for i := 0; i < n; i++ {
		ph := a.lfo.next(float64(freq[i]), sr)
		pan := float64(depth[i]) * sineAt(ph, 0)
		angle := (pan + 1) * math.Pi / 4
		wet[0][i] = in[0][i] * float32(math.Cos(angle)*math.Sqrt2)
		wet[1][i] = in[1][i] * float32(math.Sin(angle)*math.Sqrt2)
	}
}

// AutoWah drives a bandpass filter cutoff from the input level.
type AutoWah struct {
	*wetDry
	Q *Param

	baseFrequency float64
	octaves       float64
	sensitivity   float64
	q             float64
	wahs          stereoPair[*modulation.AutoWah]
}

// Detector times in milliseconds.
const (
	autoWahAttack  = 300
	autoWahRelease = 500
)

// NewAutoWah creates an auto wah sweeping octaves up from baseFrequency.
// sensitivity is the detector gain in dB.
func NewAutoWah(ctx *Context, baseFrequency, octaves, sensitivity float64) *AutoWah {
	a := &AutoWah{
		wetDry:        newWetDry(ctx, "AutoWah", 1),
		baseFrequency: baseFrequency,
		octaves:       octaves,
		q:             math.NaN(),
	}
	a.Q = a.newParam("Q", UnitsNumber, 2, 0.0001, 100)
	for ch := range a.wahs {
		w, err := modulation.NewAutoWah(ctx.sampleRate)
		must(err)
		must(w.SetAttackMs(autoWahAttack))
		must(w.SetReleaseMs(autoWahRelease))
		must(w.SetMix(1))
		a.wahs[ch] = w
	}
	a.applyRange()
	a.SetSensitivity(sensitivity)
	a.setQ(a.Q.Value())
	a.fx = a.render
	return a
}

// SetBaseFrequency sets the resting cutoff in Hz.
func (a *AutoWah) SetBaseFrequency(hz float64) {
	a.baseFrequency = hz
	a.applyRange()
}

// BaseFrequency returns the resting cutoff.
func (a *AutoWah) BaseFrequency() float64 {
	return a.baseFrequency
}

// SetOctaves sets the sweep range.
func (a *AutoWah) SetOctaves(octaves float64) {
	a.octaves = octaves
	a.applyRange()
}

// Octaves returns the sweep range.
func (a *AutoWah) Octaves() float64 {
	return a.octaves
}

// SetSensitivity sets the detector gain in dB, within ±60.
func (a *AutoWah) SetSensitivity(db float64) {
	a.sensitivity = math.Max(-60, math.Min(db, 60))
	for _, w := range a.wahs {
		must(w.SetSensitivity(DBToGain(a.sensitivity)))
	}
}

// Sensitivity returns the detector gain in dB.
func (a *AutoWah) Sensitivity() float64 {
	return a.sensitivity
}

func (a *AutoWah) applyRange() {
	lo, hi := sweepRange(a.baseFrequency, a.octaves, a.ctx.sampleRate)
	for _, w := range a.wahs {
		must(w.SetFrequencyRangeHz(lo, hi))
	}
}

func (a *AutoWah) setQ(q float64) {
	if q == a.q {
		return
	}
	a.q = q
	for _, w := range a.wahs {
		must(w.SetQ(q))
	}
}

func (a *AutoWah) render(in, wet block, n int) {
	q := a.Q.fill(n)
	a.setQ(float64(q[0]))
	a.wahs.render(in, wet, n)
}
