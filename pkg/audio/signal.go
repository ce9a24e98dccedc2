package audio

import "math"

// Signal outputs a constant control value. Signals connected into a Signal
// are added to its value, so it can act as a shared modulation offset.
type Signal struct {
	*node
	value *Param
}

// NewSignal creates a control signal with the given initial value.
func NewSignal(ctx *Context, value float64) *Signal {
	s := &Signal{node: newNode(ctx, "Signal", 0)}
	s.value = s.newParam("value", UnitsNumber, value, math.Inf(-1), math.Inf(1))
	s.process = func(out block, n int) {
		v := s.value.fill(n)
		for i := 0; i < n; i++ {
			out[0][i] = v[i]
			out[1][i] = v[i]
		}
	}
	return s
}

func (s *Signal) inputBus() *bus {
	if s == nil {
		return nil
	}
	return s.value.in
}

// Param exposes the signal's value for automation.
func (s *Signal) Param() *Param {
	return s.value
}

// Value returns the automation value at the current time.
func (s *Signal) Value() float64 {
	return s.value.Value()
}

// SetValue sets the signal immediately.
func (s *Signal) SetValue(v float64) {
	s.value.SetValue(v)
}

// RampTo ramps the signal linearly over seconds.
func (s *Signal) RampTo(v, seconds float64) {
	s.value.LinearRampTo(v, seconds)
}

// Gain scales its input by the Gain param.
type Gain struct {
	*node
	Gain *Param
}

// NewGain creates a gain node.
func NewGain(ctx *Context, gain float64) *Gain {
	g := &Gain{node: newNode(ctx, "Gain", 1)}
	g.Gain = g.newParam("gain", UnitsGain, gain, math.Inf(-1), math.Inf(1))
	g.process = func(out block, n int) {
		in := g.input(0, n)
		k := g.Gain.fill(n)
		for ch := range out {
			for i := 0; i < n; i++ {
				out[ch][i] = in[ch][i] * k[i]
			}
		}
	}
	return g
}

// Multiply scales its input by Factor. It is the scaling stage of
// modulation chains.
type Multiply struct {
	*node
	Factor *Param
}

// NewMultiply creates a multiply node.
func NewMultiply(ctx *Context, factor float64) *Multiply {
	m := &Multiply{node: newNode(ctx, "Multiply", 1)}
	m.Factor = m.newParam("factor", UnitsNumber, factor, math.Inf(-1), math.Inf(1))
	m.process = func(out block, n int) {
		in := m.input(0, n)
		k := m.Factor.fill(n)
		for ch := range out {
			for i := 0; i < n; i++ {
				out[ch][i] = in[ch][i] * k[i]
			}
		}
	}
	return m
}

// Add offsets its input by Addend.
type Add struct {
	*node
	Addend *Param
}

// NewAdd creates an add node.
func NewAdd(ctx *Context, addend float64) *Add {
	a := &Add{node: newNode(ctx, "Add", 1)}
	a.Addend = a.newParam("addend", UnitsNumber, addend, math.Inf(-1), math.Inf(1))
	a.process = func(out block, n int) {
		in := a.input(0, n)
		k := a.Addend.fill(n)
		for ch := range out {
			for i := 0; i < n; i++ {
				out[ch][i] = in[ch][i] + k[i]
			}
		}
	}
	return a
}

// WaveShaper maps every input sample through a function.
type WaveShaper struct {
	*node
	fn func(float64) float64
}

// NewWaveShaper creates a shaper. A nil function passes the input through.
func NewWaveShaper(ctx *Context, fn func(float64) float64) *WaveShaper {
	w := &WaveShaper{node: newNode(ctx, "WaveShaper", 1), fn: fn}
	w.process = func(out block, n int) {
		in := w.input(0, n)
		for ch := range out {
			for i := 0; i < n; i++ {
				if w.fn == nil {
					out[ch][i] = in[ch][i]
					continue
				}
				out[ch][i] = float32(w.fn(float64(in[ch][i])))
			}
		}
	}
	return w
}

// SetCurve replaces the shaping function.
func (w *WaveShaper) SetCurve(fn func(float64) float64) {
	w.fn = fn
}

// Panner places its input in the stereo field with an equal-power law.
type Panner struct {
	*node
	Pan *Param
}

// NewPanner creates a panner. pan ranges from -1 (left) to 1 (right).
func NewPanner(ctx *Context, pan float64) *Panner {
	p := &Panner{node: newNode(ctx, "Panner", 1)}
	p.Pan = p.newParam("pan", UnitsNormal, pan, -1, 1)
	p.process = func(out block, n int) {
		in := p.input(0, n)
		pan := p.Pan.fill(n)
		for i := 0; i < n; i++ {
			mono := (in[0][i] + in[1][i]) * 0.5
			angle := (float64(pan[i]) + 1) * math.Pi / 4
			out[0][i] = mono * float32(math.Cos(angle)) * math.Sqrt2
			out[1][i] = mono * float32(math.Sin(angle)) * math.Sqrt2
		}
	}
	return p
}

// CrossFade blends input A and input B with an equal-power curve.
// Fade 0 is all A, 1 is all B.
type CrossFade struct {
	*node
	Fade *Param
}

// crossFadeInput addresses one side of a CrossFade.
type crossFadeInput struct {
	b *bus
}

func (c crossFadeInput) inputBus() *bus {
	return c.b
}

// NewCrossFade creates a two-input crossfader.
func NewCrossFade(ctx *Context, fade float64) *CrossFade {
	c := &CrossFade{node: newNode(ctx, "CrossFade", 2)}
	c.Fade = c.newParam("fade", UnitsNormal, fade, 0, 1)
	c.process = func(out block, n int) {
		a := c.input(0, n)
		b := c.input(1, n)
		fade := c.Fade.fill(n)
		for i := 0; i < n; i++ {
			angle := float64(fade[i]) * math.Pi / 2
			ga := float32(math.Cos(angle))
			gb := float32(math.Sin(angle))
			out[0][i] = a[0][i]*ga + b[0][i]*gb
			out[1][i] = a[1][i]*ga + b[1][i]*gb
		}
	}
	return c
}

// A returns the input heard at fade 0.
func (c *CrossFade) A() Input {
	return crossFadeInput{b: c.ins[0]}
}

// B returns the input heard at fade 1.
func (c *CrossFade) B() Input {
	return crossFadeInput{b: c.ins[1]}
}
