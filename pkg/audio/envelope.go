package audio

import (
	"math"
)

// Curve shapes the attack or release segment of an envelope.
type Curve string

const (
	CurveLinear      Curve = "linear"
	CurveExponential Curve = "exponential"
	CurveSine        Curve = "sine"
	CurveCosine      Curve = "cosine"
)

// Valid reports whether c is a known curve. The empty curve means linear.
func (c Curve) Valid() bool {
	switch c {
	case "", CurveLinear, CurveExponential, CurveSine, CurveCosine:
		return true
	}
	return false
}

// progress maps elapsed fraction p (0..1) to the fraction of the segment's
// distance covered.
func (c Curve) progress(p float64) float64 {
	switch c {
	case CurveExponential:
		return 1 - math.Pow(1-p, 3)
	case CurveSine:
		return math.Sin(p * math.Pi / 2)
	case CurveCosine:
		return 1 - math.Cos(p*math.Pi/2)
	}
	return p
}

// Stage is the current segment of an ADSR envelope.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	}
	return "idle"
}

// EnvelopeOptions configures an ADSR.
type EnvelopeOptions struct {
	Attack       float64
	Decay        float64
	Sustain      float64
	Release      float64
	AttackCurve  Curve
	ReleaseCurve Curve
}

type envelopeEventKind int

const (
	envAttack envelopeEventKind = iota
	envRelease
	envCancel
)

type envelopeEvent struct {
	kind     envelopeEventKind
	time     float64
	velocity float64
}

// decayShape is the exponential decay constant; e^-5 of the distance is
// left when the decay time elapses.
const decayShape = 5.0

// ADSR is the envelope state machine shared by Envelope,
// AmplitudeEnvelope and FrequencyEnvelope. Triggers at or before the current
// time apply immediately; later ones are queued for the render path.
type ADSR struct {
	ctx *Context

	Attack       float64
	Decay        float64
	Sustain      float64
	Release      float64
	AttackCurve  Curve
	ReleaseCurve Curve

	events   []envelopeEvent
	stage    Stage
	value    float64
	start    float64
	velocity float64
	elapsed  int64
	values   []float32
}

func newADSR(ctx *Context, opts EnvelopeOptions) *ADSR {
	e := &ADSR{ctx: ctx, values: make([]float32, BlockSize)}
	e.Set(opts)
	return e
}

// Set replaces every timing and curve setting without retriggering.
func (e *ADSR) Set(opts EnvelopeOptions) {
	e.Attack = opts.Attack
	e.Decay = opts.Decay
	e.Sustain = opts.Sustain
	e.Release = opts.Release
	e.AttackCurve = opts.AttackCurve
	e.ReleaseCurve = opts.ReleaseCurve
}

// Options returns the current settings.
func (e *ADSR) Options() EnvelopeOptions {
	return EnvelopeOptions{
		Attack:       e.Attack,
		Decay:        e.Decay,
		Sustain:      e.Sustain,
		Release:      e.Release,
		AttackCurve:  e.AttackCurve,
		ReleaseCurve: e.ReleaseCurve,
	}
}

// Stage returns the current segment.
func (e *ADSR) Stage() Stage {
	return e.stage
}

// Level returns the most recent envelope output.
func (e *ADSR) Level() float64 {
	return e.value
}

// Active reports whether the envelope is producing output.
func (e *ADSR) Active() bool {
	return e.stage != StageIdle
}

// TriggerAttack starts the attack at time t, peaking at velocity.
func (e *ADSR) TriggerAttack(t, velocity float64) {
	e.schedule(envelopeEvent{kind: envAttack, time: t, velocity: velocity})
}

// TriggerRelease starts the release at time t.
func (e *ADSR) TriggerRelease(t float64) {
	e.schedule(envelopeEvent{kind: envRelease, time: t})
}

// Cancel drops pending triggers after t and snaps the envelope to idle at t.
func (e *ADSR) Cancel(t float64) {
	kept := e.events[:0]
	for _, ev := range e.events {
		if ev.time < t {
			kept = append(kept, ev)
		}
	}
	e.events = kept
	e.schedule(envelopeEvent{kind: envCancel, time: t})
}

func (e *ADSR) schedule(ev envelopeEvent) {
	if ev.time <= e.ctx.Now() {
		e.apply(ev)
		return
	}
	i := len(e.events)
	for i > 0 && e.events[i-1].time > ev.time {
		i--
	}
	e.events = append(e.events, envelopeEvent{})
	copy(e.events[i+1:], e.events[i:])
	e.events[i] = ev
}

func (e *ADSR) apply(ev envelopeEvent) {
	switch ev.kind {
	case envAttack:
		e.velocity = math.Max(0, math.Min(1, ev.velocity))
		e.enter(StageAttack)
	case envRelease:
		if e.stage != StageIdle {
			e.enter(StageRelease)
		}
	case envCancel:
		e.events = e.events[:0]
		e.value = 0
		e.enter(StageIdle)
	}
}

func (e *ADSR) enter(s Stage) {
	e.stage = s
	e.start = e.value
	e.elapsed = 0
}

func segmentFrames(seconds, sampleRate float64) float64 {
	return math.Max(1, math.Max(seconds, 0.001)*sampleRate)
}

// step advances one sample and returns the new level.
func (e *ADSR) step() float64 {
	sr := e.ctx.sampleRate
	switch e.stage {
	case StageAttack:
		e.elapsed++
		p := float64(e.elapsed) / segmentFrames(e.Attack, sr)
		if p >= 1 {
			e.value = e.velocity
			e.enter(StageDecay)
			break
		}
		e.value = e.start + (e.velocity-e.start)*e.AttackCurve.progress(p)
	case StageDecay:
		e.elapsed++
		target := e.Sustain * e.velocity
		p := float64(e.elapsed) / segmentFrames(e.Decay, sr)
		if p >= 1 {
			e.value = target
			e.enter(StageSustain)
			break
		}
		e.value = target + (e.start-target)*math.Exp(-decayShape*p)
	case StageSustain:
		e.value = e.Sustain * e.velocity
	case StageRelease:
		e.elapsed++
		p := float64(e.elapsed) / segmentFrames(e.Release, sr)
		if p >= 1 {
			e.value = 0
			e.enter(StageIdle)
			break
		}
		e.value = e.start * (1 - e.ReleaseCurve.progress(p))
	default:
		e.value = 0
	}
	return e.value
}

// advance renders n envelope samples, applying queued triggers on time.
func (e *ADSR) advance(n int) []float32 {
	out := e.values[:n]
	t0 := e.ctx.Now()
	dt := 1 / e.ctx.sampleRate
	for i := range out {
		t := t0 + float64(i)*dt
		for len(e.events) > 0 && e.events[0].time <= t {
			ev := e.events[0]
			e.events = e.events[1:]
			e.apply(ev)
		}
		out[i] = float32(e.step())
	}
	return out
}

// Envelope outputs the ADSR level as a control signal.
type Envelope struct {
	*node
	*ADSR
}

// NewEnvelope creates a control-rate ADSR envelope.
func NewEnvelope(ctx *Context, opts EnvelopeOptions) *Envelope {
	e := &Envelope{node: newNode(ctx, "Envelope", 0), ADSR: newADSR(ctx, opts)}
	e.process = func(out block, n int) {
		v := e.advance(n)
		copy(out[0], v)
		copy(out[1], v)
	}
	return e
}

// AmplitudeEnvelope applies the ADSR level as gain to its input.
type AmplitudeEnvelope struct {
	*node
	*ADSR
}

// NewAmplitudeEnvelope creates an envelope-controlled gain stage.
func NewAmplitudeEnvelope(ctx *Context, opts EnvelopeOptions) *AmplitudeEnvelope {
	e := &AmplitudeEnvelope{node: newNode(ctx, "AmplitudeEnvelope", 1), ADSR: newADSR(ctx, opts)}
	e.process = func(out block, n int) {
		in := e.input(0, n)
		v := e.advance(n)
		for ch := range out {
			for i := 0; i < n; i++ {
				out[ch][i] = in[ch][i] * v[i]
			}
		}
	}
	return e
}

// FrequencyEnvelope outputs a frequency offset in Hz above (or, with
// negative octaves, below) a base frequency: base·(2^(octaves·level) − 1).
// Summed onto a cutoff param it sweeps the cutoff from base to
// base·2^octaves at full level.
type FrequencyEnvelope struct {
	*node
	*ADSR
	baseFrequency float64
	octaves       float64
}

// NewFrequencyEnvelope creates a frequency envelope.
func NewFrequencyEnvelope(ctx *Context, opts EnvelopeOptions, baseFrequency, octaves float64) *FrequencyEnvelope {
	e := &FrequencyEnvelope{
		node:          newNode(ctx, "FrequencyEnvelope", 0),
		ADSR:          newADSR(ctx, opts),
		baseFrequency: baseFrequency,
		octaves:       octaves,
	}
	e.process = func(out block, n int) {
		v := e.advance(n)
		for i := 0; i < n; i++ {
			hz := float32(e.baseFrequency * (math.Exp2(e.octaves*float64(v[i])) - 1))
			out[0][i] = hz
			out[1][i] = hz
		}
	}
	return e
}

// BaseFrequency returns the frequency the envelope swings from.
func (e *FrequencyEnvelope) BaseFrequency() float64 {
	return e.baseFrequency
}

// SetBaseFrequency retargets the swing without retriggering.
func (e *FrequencyEnvelope) SetBaseFrequency(hz float64) {
	e.baseFrequency = hz
}

// Octaves returns the swing range.
func (e *FrequencyEnvelope) Octaves() float64 {
	return e.octaves
}

// SetOctaves changes the swing range.
func (e *FrequencyEnvelope) SetOctaves(octaves float64) {
	e.octaves = octaves
}
