package audio

import (
	"math"
)

// Units describes what a Param's value measures. Frequency params ramp
// exponentially in RampTo.
type Units int

const (
	UnitsNumber Units = iota
	UnitsFrequency
	UnitsGain
	UnitsCents
	UnitsNormal
)

type automationKind int

const (
	setEvent automationKind = iota
	linearRampEvent
	exponentialRampEvent
)

type automationEvent struct {
	kind  automationKind
	time  float64
	value float64
}

// Param is an automatable control value. The value seen by the owning node
// at each sample is the automation value plus every signal connected to the
// param, clamped to the param's range.
type Param struct {
	owner    *node
	name     string
	units    Units
	minValue float64
	maxValue float64

	initial float64
	events  []automationEvent

	in      *bus
	values  []float32
	tick    int64
	current float64
}

func newParam(owner *node, name string, units Units, value, minValue, maxValue float64) *Param {
	p := &Param{
		owner:    owner,
		name:     name,
		units:    units,
		minValue: minValue,
		maxValue: maxValue,
		values:   make([]float32, BlockSize),
		tick:     -1,
	}
	p.in = newBus(owner)
	p.initial = p.clamp(value)
	p.current = p.initial
	return p
}

func (p *Param) inputBus() *bus {
	if p == nil {
		return nil
	}
	return p.in
}

// Name returns the parameter name.
func (p *Param) Name() string {
	return p.name
}

// Units returns the parameter units.
func (p *Param) Units() Units {
	return p.units
}

// Min returns the lowest effective value.
func (p *Param) Min() float64 {
	return p.minValue
}

// Max returns the highest effective value.
func (p *Param) Max() float64 {
	return p.maxValue
}

// Inputs returns the number of signals connected to the param.
func (p *Param) Inputs() int {
	return len(p.in.sources)
}

// Value returns the automation value at the current render time, excluding
// connected signals.
func (p *Param) Value() float64 {
	return p.valueAt(p.owner.ctx.Now())
}

// Current returns the effective value at the last rendered sample,
// including connected signals. Before the first render it is the automation value.
func (p *Param) Current() float64 {
	if p.tick < 0 {
		return p.clamp(p.Value())
	}
	return p.current
}

func (p *Param) clamp(v float64) float64 {
	return math.Max(p.minValue, math.Min(p.maxValue, v))
}

// SetValue cancels scheduled automation and sets the value immediately.
func (p *Param) SetValue(v float64) {
	now := p.owner.ctx.Now()
	p.events = p.events[:0]
	p.events = append(p.events, automationEvent{kind: setEvent, time: now, value: p.clamp(v)})
}

// SetValueAtTime schedules a step to v at time t.
func (p *Param) SetValueAtTime(v, t float64) {
	p.insert(automationEvent{kind: setEvent, time: t, value: p.clamp(v)})
}

// LinearRampTo ramps linearly from the current value to v over seconds.
func (p *Param) LinearRampTo(v, seconds float64) {
	p.rampTo(linearRampEvent, v, seconds)
}

// ExponentialRampTo ramps exponentially from the current value to v over
// seconds. Ramps that would cross or touch zero fall back to linear.
func (p *Param) ExponentialRampTo(v, seconds float64) {
	p.rampTo(exponentialRampEvent, v, seconds)
}

// RampTo ramps exponentially for frequency params and linearly otherwise.
func (p *Param) RampTo(v, seconds float64) {
	if p.units == UnitsFrequency {
		p.ExponentialRampTo(v, seconds)
		return
	}
	p.LinearRampTo(v, seconds)
}

// CancelScheduledValues drops every event at or after t.
func (p *Param) CancelScheduledValues(t float64) {
	kept := p.events[:0]
	for _, e := range p.events {
		if e.time < t {
			kept = append(kept, e)
		}
	}
	p.events = kept
}

func (p *Param) rampTo(kind automationKind, v, seconds float64) {
	if seconds <= 0 {
		p.SetValue(v)
		return
	}
	now := p.owner.ctx.Now()
	from := p.valueAt(now)
	p.CancelScheduledValues(now)
	p.events = append(p.events,
		automationEvent{kind: setEvent, time: now, value: from},
		automationEvent{kind: kind, time: now + seconds, value: p.clamp(v)},
	)
}

func (p *Param) insert(e automationEvent) {
	i := len(p.events)
	for i > 0 && p.events[i-1].time > e.time {
		i--
	}
	p.events = append(p.events, automationEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

// valueAt evaluates the automation timeline at time t.
func (p *Param) valueAt(t float64) float64 {
	prevTime := math.Inf(-1)
	prevValue := p.initial
	for _, e := range p.events {
		if e.time <= t {
			prevTime, prevValue = e.time, e.value
			continue
		}
		switch e.kind {
		case linearRampEvent:
			if math.IsInf(prevTime, -1) {
				return prevValue
			}
			frac := (t - prevTime) / (e.time - prevTime)
			return prevValue + (e.value-prevValue)*frac
		case exponentialRampEvent:
			if math.IsInf(prevTime, -1) {
				return prevValue
			}
			frac := (t - prevTime) / (e.time - prevTime)
			if prevValue*e.value <= 0 {
				return prevValue + (e.value-prevValue)*frac
			}
			return prevValue * math.Pow(e.value/prevValue, frac)
		}
		return prevValue
	}
	return prevValue
}

// prune drops events that can no longer influence values at or after now,
// keeping the last elapsed event as the anchor of any running ramp.
func (p *Param) prune(now float64) {
	last := -1
	for i, e := range p.events {
		if e.time > now {
			break
		}
		last = i
	}
	if last > 0 {
		p.events = append(p.events[:0], p.events[last:]...)
	}
	if last >= 0 && len(p.events) == 1 {
		p.initial = p.events[0].value
		p.events = p.events[:0]
	}
}

// fill computes the effective value of every sample in the current block.
func (p *Param) fill(frames int) []float32 {
	out := p.values[:frames]
	ctx := p.owner.ctx
	if p.tick == ctx.tick {
		return out
	}
	p.tick = ctx.tick

	now := ctx.Now()
	p.prune(now)
	if len(p.events) == 0 {
		v := float32(p.initial)
		for i := range out {
			out[i] = v
		}
	} else {
		dt := 1 / ctx.sampleRate
		for i := range out {
			out[i] = float32(p.valueAt(now + float64(i)*dt))
		}
	}

	if len(p.in.sources) > 0 {
		mod := p.in.sum(frames)
		for i := range out {
			out[i] += mod[0][i]
		}
	}

	lo, hi := float32(p.minValue), float32(p.maxValue)
	for i, v := range out {
		if v < lo {
			out[i] = lo
		} else if v > hi {
			out[i] = hi
		}
	}
	p.current = float64(out[frames-1])
	return out
}
