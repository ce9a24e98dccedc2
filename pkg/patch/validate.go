package patch

import (
	"errors"
	"fmt"
	"math"

	"github.com/justyntemme/polysynth/pkg/audio"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid patch")

// Ranges accepted at the validation boundary.
const (
	MinOctave       = -4
	MaxOctave       = 4
	MaxDetune       = 100.0
	MinCutoff       = 20.0
	MaxCutoff       = 20000.0
	MinResonance    = 0.1
	MaxResonance    = 30.0
	MinEnvelopeTime = 0.001
	MaxEnvelopeTime = 5.0
	MaxReleaseTime  = 10.0
	MaxEnvOctaves   = 8.0
	MaxGlide        = 5.0
)

type validator struct {
	errs []error
}

func (v *validator) failf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
}

func (v *validator) between(field string, value, lo, hi float64) {
	if math.IsNaN(value) || value < lo || value > hi {
		v.failf("%s %g outside [%g, %g]", field, value, lo, hi)
	}
}

// Validate checks every field of p and returns all violations joined, or nil.
func Validate(p *Patch) error {
	if p == nil {
		return fmt.Errorf("%w: nil patch", ErrInvalid)
	}
	v := &validator{}

	for i := range 2 {
		osc := p.Oscillator(i)
		name := fmt.Sprintf("osc%d", i+1)
		if !osc.Waveform.Valid() {
			v.failf("%s waveform %q", name, osc.Waveform)
		}
		if osc.Octave < MinOctave || osc.Octave > MaxOctave {
			v.failf("%s octave %d outside [%d, %d]", name, osc.Octave, MinOctave, MaxOctave)
		}
		v.between(name+" detune", osc.Detune, -MaxDetune, MaxDetune)
		v.between(name+" volume", osc.Volume, 0, 1)
		v.between(name+" pan", osc.Pan, -1, 1)
	}
	v.between("oscMix", p.OscMix, 0, 1)

	f := p.Filter
	if !f.Type.Valid() {
		v.failf("filter type %q", f.Type)
	}
	v.between("filter cutoff", f.Cutoff, MinCutoff, MaxCutoff)
	v.between("filter resonance", f.Resonance, MinResonance, MaxResonance)
	if f.Rolloff.Stages() == 0 {
		v.failf("filter rolloff %d not one of -12, -24, -48, -96", f.Rolloff)
	}
	v.between("filter envAmount", f.EnvAmount, -1, 1)
	v.between("filter keyTracking", f.KeyTracking, 0, 1)

	v.envelope("ampEnvelope", p.AmpEnvelope)
	v.envelope("filterEnvelope", p.FilterEnvelope.EnvelopeConfig)
	v.between("filterEnvelope octaves", p.FilterEnvelope.Octaves, 0, MaxEnvOctaves)

	m := p.ModMatrix
	for i := range 2 {
		lfo := m.LFO(i)
		name := fmt.Sprintf("lfo%d", i+1)
		if !lfo.Waveform.Valid() {
			v.failf("%s waveform %q", name, lfo.Waveform)
		}
		if math.IsNaN(lfo.Frequency) || lfo.Frequency <= 0 {
			v.failf("%s frequency %g must be positive", name, lfo.Frequency)
		}
		v.between(name+" amplitude", lfo.Amplitude, 0, 1)
		if lfo.SyncRate != "" {
			if _, err := audio.SubdivisionBeats(lfo.SyncRate); err != nil {
				v.failf("%s syncRate: %v", name, err)
			}
		}
		v.envelope(fmt.Sprintf("env%d", i+1), *m.Envelope(i))
	}

	ids := make(map[string]bool, len(m.Routings))
	for i, r := range m.Routings {
		name := fmt.Sprintf("routing %d", i)
		if r.ID != "" {
			if ids[r.ID] {
				v.failf("%s duplicate id %q", name, r.ID)
			}
			ids[r.ID] = true
		}
		if !r.Source.Known() {
			v.failf("%s source %q", name, r.Source)
		}
		if !r.Destination.Known() {
			v.failf("%s destination %q", name, r.Destination)
		}
		v.between(name+" amount", r.Amount, -1, 1)
	}

	for i, e := range p.Effects {
		name := fmt.Sprintf("effect %d", i)
		if !e.Type.Known() {
			v.failf("%s type %q", name, e.Type)
		}
		v.between(name+" wet", e.Wet, 0, 1)
		for k, val := range e.Params {
			switch val.(type) {
			case string, float64, float32, int, int64:
			default:
				v.failf("%s param %q has type %T", name, k, val)
			}
		}
	}

	v.between("masterVolume", p.MasterVolume, 0, 1)
	v.between("glide", p.Glide, 0, MaxGlide)

	return errors.Join(v.errs...)
}

func (v *validator) envelope(name string, e EnvelopeConfig) {
	v.between(name+" attack", e.Attack, MinEnvelopeTime, MaxEnvelopeTime)
	v.between(name+" decay", e.Decay, MinEnvelopeTime, MaxEnvelopeTime)
	v.between(name+" sustain", e.Sustain, 0, 1)
	v.between(name+" release", e.Release, MinEnvelopeTime, MaxReleaseTime)
	if !e.AttackCurve.Valid() {
		v.failf("%s attackCurve %q", name, e.AttackCurve)
	}
	if !e.ReleaseCurve.Valid() {
		v.failf("%s releaseCurve %q", name, e.ReleaseCurve)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// SnapRolloff returns the legal rolloff nearest to r.
func SnapRolloff(r audio.Rolloff) audio.Rolloff {
	best := audio.Rolloff12
	for _, c := range []audio.Rolloff{audio.Rolloff12, audio.Rolloff24, audio.Rolloff48, audio.Rolloff96} {
		if abs(int(r)-int(c)) < abs(int(r)-int(best)) {
			best = c
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Sanitize clamps every numeric field of p into its legal range and replaces
// unknown identifiers with defaults. Unknown routings and effects are kept;
// the engine skips them.
func Sanitize(p *Patch) {
	def := Default()
	for i := range 2 {
		osc := p.Oscillator(i)
		if !osc.Waveform.Valid() {
			osc.Waveform = def.Oscillator(i).Waveform
		}
		osc.Octave = max(MinOctave, min(MaxOctave, osc.Octave))
		osc.Detune = clamp(osc.Detune, -MaxDetune, MaxDetune)
		osc.Volume = clamp(osc.Volume, 0, 1)
		osc.Pan = clamp(osc.Pan, -1, 1)
	}
	p.OscMix = clamp(p.OscMix, 0, 1)

	f := &p.Filter
	if !f.Type.Valid() {
		f.Type = def.Filter.Type
	}
	f.Cutoff = clamp(f.Cutoff, MinCutoff, MaxCutoff)
	f.Resonance = clamp(f.Resonance, MinResonance, MaxResonance)
	f.Rolloff = SnapRolloff(f.Rolloff)
	f.EnvAmount = clamp(f.EnvAmount, -1, 1)
	f.KeyTracking = clamp(f.KeyTracking, 0, 1)

	sanitizeEnvelope(&p.AmpEnvelope)
	sanitizeEnvelope(&p.FilterEnvelope.EnvelopeConfig)
	p.FilterEnvelope.Octaves = clamp(p.FilterEnvelope.Octaves, 0, MaxEnvOctaves)

	for i := range 2 {
		lfo := p.ModMatrix.LFO(i)
		if !lfo.Waveform.Valid() {
			lfo.Waveform = def.ModMatrix.LFO(i).Waveform
		}
		if math.IsNaN(lfo.Frequency) || lfo.Frequency <= 0 {
			lfo.Frequency = def.ModMatrix.LFO(i).Frequency
		}
		lfo.Amplitude = clamp(lfo.Amplitude, 0, 1)
		if _, err := audio.SubdivisionBeats(lfo.SyncRate); lfo.SyncRate != "" && err != nil {
			lfo.SyncRate = ""
		}
		sanitizeEnvelope(p.ModMatrix.Envelope(i))
	}
	for i := range p.ModMatrix.Routings {
		r := &p.ModMatrix.Routings[i]
		r.Amount = clamp(r.Amount, -1, 1)
	}
	for i := range p.Effects {
		p.Effects[i].Wet = clamp(p.Effects[i].Wet, 0, 1)
	}
	p.MasterVolume = clamp(p.MasterVolume, 0, 1)
	p.Glide = clamp(p.Glide, 0, MaxGlide)
}

func sanitizeEnvelope(e *EnvelopeConfig) {
	e.Attack = clamp(e.Attack, MinEnvelopeTime, MaxEnvelopeTime)
	e.Decay = clamp(e.Decay, MinEnvelopeTime, MaxEnvelopeTime)
	e.Sustain = clamp(e.Sustain, 0, 1)
	e.Release = clamp(e.Release, MinEnvelopeTime, MaxReleaseTime)
	if !e.AttackCurve.Valid() {
		e.AttackCurve = audio.CurveLinear
	}
	if !e.ReleaseCurve.Valid() {
		e.ReleaseCurve = audio.CurveExponential
	}
}
