package audio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SubdivisionBeats converts a tempo subdivision label to a length in quarter
// note beats. Labels are a count followed by "m" (measures of 4/4), "n"
// (note value) or "t" (triplet note value); a trailing "." dots the value.
// "1m" = 4, "4n" = 1, "8n." = 0.75, "8t" = 1/3.
func SubdivisionBeats(label string) (float64, error) {
	s := strings.TrimSpace(label)
	dotted := strings.HasSuffix(s, ".")
	s = strings.TrimSuffix(s, ".")
	if len(s) < 2 {
		return 0, fmt.Errorf("audio: subdivision %q: %w", label, ErrUnsupported)
	}
	unit := s[len(s)-1]
	count, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("audio: subdivision %q: %w", label, ErrUnsupported)
	}

	var beats float64
	switch unit {
	case 'm':
		beats = 4 * float64(count)
	case 'n':
		beats = 4 / float64(count)
	case 't':
		beats = 4 / float64(count) * 2 / 3
	default:
		return 0, fmt.Errorf("audio: subdivision %q: %w", label, ErrUnsupported)
	}
	if dotted {
		beats *= 1.5
	}
	return beats, nil
}

// SubdivisionFrequency returns the rate in Hz of one cycle per subdivision at
// the given tempo.
func SubdivisionFrequency(label string, bpm float64) (float64, error) {
	beats, err := SubdivisionBeats(label)
	if err != nil {
		return 0, err
	}
	return bpm / (60 * beats), nil
}

// LFO is a low-frequency control oscillator. Its output swings between Min
// and Max, scaled around the midpoint by Amplitude. A stopped LFO outputs 0.
type LFO struct {
	*node
	Frequency *Param
	Amplitude *Param

	wave     Waveform
	min      float64
	max      float64
	phaseDeg float64
	phase    float64
	startAt  float64
	stopAt   float64

	synced bool
	rate   string
}

// LFOOptions configures a new LFO.
type LFOOptions struct {
	Type      Waveform
	Frequency float64
	Amplitude float64
	Min       float64
	Max       float64
	Phase     float64
}

// NewLFO creates a stopped LFO. Min and Max both zero mean the 0..1 range.
func NewLFO(ctx *Context, opts LFOOptions) (*LFO, error) {
	if opts.Type == "" {
		opts.Type = WaveSine
	}
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("audio: lfo type %q: %w", opts.Type, ErrUnsupported)
	}
	if opts.Min == 0 && opts.Max == 0 {
		opts.Max = 1
	}
	l := &LFO{
		node:     newNode(ctx, "LFO", 0),
		wave:     opts.Type,
		min:      opts.Min,
		max:      opts.Max,
		phaseDeg: opts.Phase,
		startAt:  math.Inf(1),
		stopAt:   math.Inf(1),
	}
	l.Frequency = l.newParam("frequency", UnitsFrequency, opts.Frequency, 0, ctx.sampleRate/2)
	l.Amplitude = l.newParam("amplitude", UnitsNormal, opts.Amplitude, 0, 1)
	l.phase = wrapPhase(opts.Phase / 360)
	l.process = l.render
	l.onDispose = append(l.onDispose, func() { delete(ctx.synced, l) })
	return l, nil
}

func wrapPhase(p float64) float64 {
	p -= math.Floor(p)
	return p
}

// Type returns the waveform.
func (l *LFO) Type() Waveform {
	return l.wave
}

// SetType changes the waveform.
func (l *LFO) SetType(w Waveform) error {
	if !w.Valid() {
		return fmt.Errorf("audio: lfo type %q: %w", w, ErrUnsupported)
	}
	l.wave = w
	return nil
}

// Min returns the output at the bottom of the swing.
func (l *LFO) Min() float64 {
	return l.min
}

// Max returns the output at the top of the swing.
func (l *LFO) Max() float64 {
	return l.max
}

// SetRange changes the output range.
func (l *LFO) SetRange(minValue, maxValue float64) {
	l.min, l.max = minValue, maxValue
}

// Phase returns the start phase in degrees.
func (l *LFO) Phase() float64 {
	return l.phaseDeg
}

// SetPhase sets the phase in degrees and jumps the waveform there.
func (l *LFO) SetPhase(deg float64) {
	l.phaseDeg = deg
	l.phase = wrapPhase(deg / 360)
}

// Start begins output at time t, restarting from the configured phase.
func (l *LFO) Start(t float64) {
	l.startAt = t
	l.stopAt = math.Inf(1)
	l.phase = wrapPhase(l.phaseDeg / 360)
}

// Stop silences the LFO at time t.
func (l *LFO) Stop(t float64) {
	l.stopAt = t
}

// Started reports whether the LFO is running at the current time.
func (l *LFO) Started() bool {
	now := l.ctx.Now()
	return now >= l.startAt && now < l.stopAt
}

// Sync ties the frequency to the context tempo through the rate label set by
// SetRate. Until a rate is set the frequency is left alone.
func (l *LFO) Sync() {
	l.synced = true
	l.ctx.synced[l] = struct{}{}
	l.applySyncRate()
}

// Unsync releases the frequency from the tempo. The last synced value stays.
func (l *LFO) Unsync() {
	l.synced = false
	delete(l.ctx.synced, l)
}

// Synced reports whether the LFO follows the tempo.
func (l *LFO) Synced() bool {
	return l.synced
}

// Rate returns the subdivision label last passed to SetRate.
func (l *LFO) Rate() string {
	return l.rate
}

// SetRate stores a subdivision label and, if synced, retunes the frequency.
func (l *LFO) SetRate(label string) error {
	if _, err := SubdivisionBeats(label); err != nil {
		return err
	}
	l.rate = label
	l.applySyncRate()
	return nil
}

func (l *LFO) applySyncRate() {
	if !l.synced || l.rate == "" {
		return
	}
	hz, err := SubdivisionFrequency(l.rate, l.ctx.bpm)
	if err != nil {
		return
	}
	l.Frequency.SetValue(hz)
}

func (l *LFO) sample(p float64) float64 {
	switch l.wave {
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*p - 1
	case WaveTriangle:
		return 1 - 4*math.Abs(p-0.5)
	}
	return math.Sin(2 * math.Pi * p)
}

func (l *LFO) render(out block, n int) {
	freq := l.Frequency.fill(n)
	amp := l.Amplitude.fill(n)
	sr := l.ctx.sampleRate
	t0 := l.ctx.Now()
	span := l.max - l.min
	for i := 0; i < n; i++ {
		t := t0 + float64(i)/sr
		if t < l.startAt || t >= l.stopAt {
			out[0][i] = 0
			out[1][i] = 0
			continue
		}
		w := l.sample(l.phase)
		v := float32(l.min + span*(0.5+0.5*float64(amp[i])*w))
		out[0][i] = v
		out[1][i] = v
		l.phase = wrapPhase(l.phase + float64(freq[i])/sr)
	}
}
