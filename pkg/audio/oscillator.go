package audio

import (
	"fmt"
	"math"
)

// Waveform names an oscillator or LFO shape.
type Waveform string

const (
	WaveSine     Waveform = "sine"
	WaveSquare   Waveform = "square"
	WaveSawtooth Waveform = "sawtooth"
	WaveTriangle Waveform = "triangle"
)

// Valid reports whether w is a known waveform.
func (w Waveform) Valid() bool {
	switch w {
	case WaveSine, WaveSquare, WaveSawtooth, WaveTriangle:
		return true
	}
	return false
}

// MidiToFrequency converts a MIDI note number to Hz (A4 = 69 = 440 Hz).
func MidiToFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// GainToDB converts linear gain to decibels.
func GainToDB(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(gain)
}

// DBToGain converts decibels to linear gain.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// polyBLEP smooths the discontinuity of a naive waveform at phase t.
func polyBLEP(t, dt float64) float64 {
	switch {
	case t < dt:
		t /= dt
		return t + t - t*t - 1
	case t > 1-dt:
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// Oscillator is a band-limited audio oscillator.
type Oscillator struct {
	*node
	Frequency *Param
	Detune    *Param
	Volume    *Param

	wave    Waveform
	phase   float64
	startAt float64
	stopAt  float64
}

// NewOscillator creates a stopped oscillator.
func NewOscillator(ctx *Context, frequency float64, wave Waveform) (*Oscillator, error) {
	if !wave.Valid() {
		return nil, fmt.Errorf("audio: oscillator type %q: %w", wave, ErrUnsupported)
	}
	o := &Oscillator{
		node:    newNode(ctx, "Oscillator", 0),
		wave:    wave,
		startAt: math.Inf(1),
		stopAt:  math.Inf(1),
	}
	nyquist := ctx.sampleRate / 2
	o.Frequency = o.newParam("frequency", UnitsFrequency, frequency, 0, nyquist)
	o.Detune = o.newParam("detune", UnitsCents, 0, -4800, 4800)
	o.Volume = o.newParam("volume", UnitsGain, 1, 0, 4)
	o.process = o.render
	return o, nil
}

// Type returns the current waveform.
func (o *Oscillator) Type() Waveform {
	return o.wave
}

// SetType switches the waveform without resetting phase.
func (o *Oscillator) SetType(w Waveform) error {
	if !w.Valid() {
		return fmt.Errorf("audio: oscillator type %q: %w", w, ErrUnsupported)
	}
	o.wave = w
	return nil
}

// Start begins output at time t.
func (o *Oscillator) Start(t float64) {
	o.startAt = t
	o.stopAt = math.Inf(1)
}

// Stop silences the oscillator at time t.
func (o *Oscillator) Stop(t float64) {
	o.stopAt = t
}

// Started reports whether the oscillator is running at the current time.
func (o *Oscillator) Started() bool {
	now := o.ctx.Now()
	return now >= o.startAt && now < o.stopAt
}

func (o *Oscillator) render(out block, n int) {
	freq := o.Frequency.fill(n)
	det := o.Detune.fill(n)
	vol := o.Volume.fill(n)
	sr := o.ctx.sampleRate
	t0 := o.ctx.Now()

	for i := 0; i < n; i++ {
		t := t0 + float64(i)/sr
		if t < o.startAt || t >= o.stopAt {
			out[0][i] = 0
			out[1][i] = 0
			continue
		}
		f := float64(freq[i]) * math.Pow(2, float64(det[i])/1200)
		dt := math.Min(math.Max(f/sr, 1e-9), 0.5)

		var s float64
		switch o.wave {
		case WaveSine:
			s = math.Sin(2 * math.Pi * o.phase)
		case WaveSawtooth:
			s = 2*o.phase - 1 - polyBLEP(o.phase, dt)
		case WaveSquare:
			if o.phase < 0.5 {
				s = 1
			} else {
				s = -1
			}
			s += polyBLEP(o.phase, dt)
			s -= polyBLEP(math.Mod(o.phase+0.5, 1), dt)
		case WaveTriangle:
			s = 4*math.Abs(o.phase-0.5) - 1
		}

		o.phase += dt
		if o.phase >= 1 {
			o.phase -= math.Floor(o.phase)
		}

		v := float32(s) * vol[i]
		out[0][i] = v
		out[1][i] = v
	}
}
