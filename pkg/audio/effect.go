package audio

import (
	"fmt"
	"math"
)

// Effect is an audio effect node with a dry/wet mix control.
type Effect interface {
	Node
	SetWet(wet float64)
	WetValue() float64
}

// wetDry is the shared body of every effect: the effect renders its fully
// wet signal and the mix is blended linearly with the dry input.
type wetDry struct {
	*node
	Wet *Param

	wet block
	fx  func(in, wet block, n int)
}

func newWetDry(ctx *Context, name string, wet float64) *wetDry {
	w := &wetDry{node: newNode(ctx, name, 1), wet: newBlock()}
	w.Wet = w.newParam("wet", UnitsNormal, wet, 0, 1)
	w.process = func(out block, n int) {
		in := w.input(0, n)
		mix := w.Wet.fill(n)
		fx := w.wet.slice(n)
		w.fx(in, fx, n)
		for ch := range out {
			for i := 0; i < n; i++ {
				out[ch][i] = in[ch][i]*(1-mix[i]) + fx[ch][i]*mix[i]
			}
		}
	}
	return w
}

// SetWet sets the dry/wet balance, 0 fully dry and 1 fully wet.
func (w *wetDry) SetWet(wet float64) {
	w.Wet.SetValue(wet)
}

// WetValue returns the current dry/wet balance.
func (w *wetDry) WetValue() float64 {
	return w.Wet.Value()
}

// oscPhase is a free-running modulation oscillator shared by the LFO-driven
// effects.
type oscPhase struct {
	phase float64
}

func (o *oscPhase) next(freq, sampleRate float64) float64 {
	v := o.phase
	o.phase = wrapPhase(o.phase + freq/sampleRate)
	return v
}

func sineAt(phase, offsetDeg float64) float64 {
	return math.Sin(2 * math.Pi * (phase + offsetDeg/360))
}

// stereoPair runs one mono processor per channel.
type stereoPair[P interface{ ProcessSample(float64) float64 }] [2]P

func (p stereoPair[P]) render(in, wet block, n int) {
	for ch := range wet {
		for i := 0; i < n; i++ {
			wet[ch][i] = float32(p[ch].ProcessSample(float64(in[ch][i])))
		}
	}
}

// advanceLFO feeds silence to process until an LFO running at hz has moved
// deg degrees. The offset between two processors primed this way holds
// across later rate changes since both advance together.
func advanceLFO(process func(float64) float64, deg, hz, sampleRate float64) {
	if hz <= 0 {
		return
	}
	turns := math.Mod(math.Mod(deg, 360)+360, 360) / 360
	for range int(math.Round(turns * sampleRate / hz)) {
		process(0)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// must panics when a processor rejects a sample rate or a value the node
// already clamped into the processor's range.
func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("audio: %v", err))
	}
}
