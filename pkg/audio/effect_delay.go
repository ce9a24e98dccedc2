package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
)

// minModRate is the slowest LFO rate handed to a modulation processor.
const minModRate = 0.01

// Chorus thickens its input with one modulated delay voice per channel,
// the right voice's LFO offset by Spread degrees.
type Chorus struct {
	*wetDry
	Frequency *Param
	Feedback  *Param

	delayTime float64
	depth     float64
	spread    float64
	rate      float64
	voices    [2]*modulation.Chorus
	last      [2]float64
}

const (
	chorusMaxDelay  = 0.025
	chorusMinOffset = 0.001
)

func newChorusVoice(sampleRate float64) *modulation.Chorus {
	v, err := modulation.NewChorus()
	must(err)
	must(v.SetSampleRate(sampleRate))
	must(v.SetStages(1))
	must(v.SetMix(1))
	return v
}

// NewChorus creates a chorus. delayTime is in milliseconds, depth 0..1.
func NewChorus(ctx *Context, frequency, delayTime, depth float64) *Chorus {
	c := &Chorus{
		wetDry: newWetDry(ctx, "Chorus", 1),
		depth:  clamp01(depth),
		spread: 180,
	}
	c.Frequency = c.newParam("frequency", UnitsFrequency, frequency, 0, 20)
	c.Feedback = c.newParam("feedback", UnitsNormal, 0, 0, 0.95)
	for ch := range c.voices {
		c.voices[ch] = newChorusVoice(ctx.sampleRate)
	}
	c.SetDelayTime(delayTime)
	c.setRate(c.Frequency.Value())
	c.phaseVoices()
	c.fx = c.render
	return c
}

// SetDelayTime sets the center delay in milliseconds.
func (c *Chorus) SetDelayTime(ms float64) {
	c.delayTime = math.Max(0, math.Min(ms, chorusMaxDelay*1000))
	c.applySweep()
}

// DelayTime returns the center delay in milliseconds.
func (c *Chorus) DelayTime() float64 {
	return c.delayTime
}

// SetDepth sets the modulation depth, 0..1 of the delay time.
func (c *Chorus) SetDepth(depth float64) {
	c.depth = clamp01(depth)
	c.applySweep()
}

// Depth returns the modulation depth.
func (c *Chorus) Depth() float64 {
	return c.depth
}

// SetSpread sets the LFO phase offset between channels in degrees. The
// voices restart from silence.
func (c *Chorus) SetSpread(deg float64) {
	c.spread = deg
	c.phaseVoices()
}

// Spread returns the channel phase offset.
func (c *Chorus) Spread() float64 {
	return c.spread
}

// applySweep maps the center delay and depth onto a swept window of
// delayTime * (1 ± depth/2).
func (c *Chorus) applySweep() {
	center := c.delayTime / 1000
	low := math.Max(center*(1-c.depth/2), chorusMinOffset)
	for _, v := range c.voices {
		must(v.SetBaseDelay(low))
		must(v.SetDepth(center * c.depth))
	}
}

func (c *Chorus) setRate(hz float64) {
	hz = math.Max(hz, minModRate)
	if hz == c.rate {
		return
	}
	c.rate = hz
	for _, v := range c.voices {
		must(v.SetSpeedHz(hz))
	}
}

func (c *Chorus) phaseVoices() {
	for _, v := range c.voices {
		v.Reset()
	}
	c.last = [2]float64{}
	advanceLFO(c.voices[1].ProcessSample, c.spread, c.rate, c.ctx.sampleRate)
}

func (c *Chorus) render(in, wet block, n int) {
	freq := c.Frequency.fill(n)
	fb := c.Feedback.fill(n)
	for i := 0; i < n; i++ {
		c.setRate(float64(freq[i]))
		for ch, v := range c.voices {
			y := v.ProcessSample(float64(in[ch][i]) + c.last[ch]*float64(fb[i]))
			c.last[ch] = y
			wet[ch][i] = float32(y)
		}
	}
}

// Vibrato modulates pitch with a short swept delay.
type Vibrato struct {
	*wetDry
	Frequency *Param
	Depth     *Param

	rate   float64
	depth  float64
	voices [2]*modulation.Chorus
}

const vibratoMaxDelay = 0.005

// NewVibrato creates a vibrato with the given rate in Hz and depth 0..1.
func NewVibrato(ctx *Context, frequency, depth float64) *Vibrato {
	v := &Vibrato{wetDry: newWetDry(ctx, "Vibrato", 1), depth: math.NaN()}
	v.Frequency = v.newParam("frequency", UnitsFrequency, frequency, 0, 40)
	v.Depth = v.newParam("depth", UnitsNormal, depth, 0, 1)
	for ch := range v.voices {
		v.voices[ch] = newChorusVoice(ctx.sampleRate)
		must(v.voices[ch].SetBaseDelay(chorusMinOffset))
	}
	v.setRate(v.Frequency.Value())
	v.setDepth(v.Depth.Value())
	v.fx = v.render
	return v
}

func (v *Vibrato) setRate(hz float64) {
	hz = math.Max(hz, minModRate)
	if hz == v.rate {
		return
	}
	v.rate = hz
	for _, c := range v.voices {
		must(c.SetSpeedHz(hz))
	}
}

// setDepth resizes the voices' delay lines, so it runs once per block.
func (v *Vibrato) setDepth(depth float64) {
	if depth == v.depth {
		return
	}
	v.depth = depth
	for _, c := range v.voices {
		must(c.SetDepth(vibratoMaxDelay * depth))
	}
}

func (v *Vibrato) render(in, wet block, n int) {
	freq := v.Frequency.fill(n)
	depth := v.Depth.fill(n)
	v.setDepth(float64(depth[0]))
	for i := 0; i < n; i++ {
		v.setRate(float64(freq[i]))
		for ch, c := range v.voices {
			wet[ch][i] = float32(c.ProcessSample(float64(in[ch][i])))
		}
	}
}

// Delay time limits in seconds.
const (
	minDelayTime = 0.001
	maxDelayTime = 2.0
)

// delayTaps is a pair of echo lines that follow one time and feedback
// setting.
type delayTaps struct {
	time     float64
	feedback float64
	lines    stereoPair[*effects.Delay]
}

func newDelayTaps(sampleRate, feedback float64) *delayTaps {
	d := &delayTaps{time: math.NaN(), feedback: math.NaN()}
	for ch := range d.lines {
		l, err := effects.NewDelay(sampleRate)
		must(err)
		must(l.SetMix(1))
		d.lines[ch] = l
	}
	d.setFeedback(feedback)
	return d
}

func (d *delayTaps) setTime(seconds float64) {
	seconds = math.Max(seconds, minDelayTime)
	if seconds == d.time {
		return
	}
	d.time = seconds
	for _, l := range d.lines {
		must(l.SetTime(seconds))
	}
}

func (d *delayTaps) setFeedback(fb float64) {
	if fb == d.feedback {
		return
	}
	d.feedback = fb
	for _, l := range d.lines {
		must(l.SetFeedback(fb))
	}
}

// FeedbackDelay is a stereo delay with feedback.
type FeedbackDelay struct {
	*wetDry
	DelayTime *Param
	Feedback  *Param

	taps *delayTaps
}

// NewFeedbackDelay creates a delay. delayTime is in seconds, at most 2.
func NewFeedbackDelay(ctx *Context, delayTime, feedback float64) *FeedbackDelay {
	d := &FeedbackDelay{wetDry: newWetDry(ctx, "FeedbackDelay", 1)}
	d.DelayTime = d.newParam("delayTime", UnitsNumber, delayTime, 0, maxDelayTime)
	d.Feedback = d.newParam("feedback", UnitsNormal, feedback, 0, 0.99)
	d.taps = newDelayTaps(ctx.sampleRate, d.Feedback.Value())
	d.taps.setTime(d.DelayTime.Value())
	d.fx = d.render
	return d
}

func (d *FeedbackDelay) render(in, wet block, n int) {
	dt := d.DelayTime.fill(n)
	fb := d.Feedback.fill(n)
	for i := 0; i < n; i++ {
		d.taps.setTime(float64(dt[i]))
		d.taps.setFeedback(float64(fb[i]))
		for ch, l := range d.taps.lines {
			wet[ch][i] = float32(l.ProcessSample(float64(in[ch][i])))
		}
	}
}

// PingPongDelay bounces echoes between the left and right channels.
type PingPongDelay struct {
	*wetDry
	DelayTime *Param
	Feedback  *Param

	taps *delayTaps
	last [2]float64
}

// NewPingPongDelay creates a ping-pong delay. delayTime is in seconds, at
// most 2.
func NewPingPongDelay(ctx *Context, delayTime, feedback float64) *PingPongDelay {
	d := &PingPongDelay{wetDry: newWetDry(ctx, "PingPongDelay", 1)}
	d.DelayTime = d.newParam("delayTime", UnitsNumber, delayTime, 0, maxDelayTime)
	d.Feedback = d.newParam("feedback", UnitsNormal, feedback, 0, 0.99)
	// the lines are plain delays; feedback crosses channels here
	d.taps = newDelayTaps(ctx.sampleRate, 0)
	d.taps.setTime(d.DelayTime.Value())
	d.fx = d.render
	return d
}

func (d *PingPongDelay) render(in, wet block, n int) {
	dt := d.DelayTime.fill(n)
	fb := d.Feedback.fill(n)
	left, right := d.taps.lines[0], d.taps.lines[1]
	for i := 0; i < n; i++ {
		d.taps.setTime(float64(dt[i]))
		g := float64(fb[i])
		mono := float64(in[0][i]+in[1][i]) * 0.5
		// left feeds right and right feeds left
		l := left.ProcessSample(mono + d.last[1]*g)
		r := right.ProcessSample(d.last[0] * g)
		d.last = [2]float64{l, r}
		wet[0][i] = float32(l)
		wet[1][i] = float32(r)
	}
}

const (
	reverbDamping     = 0.2
	reverbMaxPreDelay = 1.0
)

// reverbModRates detunes the two tanks so the channels decorrelate.
var reverbModRates = [2]float64{0.1, 0.13}

// Reverb is a pair of feedback delay networks, one per channel, fed from
// the mono sum. Decay and pre-delay are fixed when the node is built.
type Reverb struct {
	*wetDry

	decay    float64
	preDelay float64
	tanks    [2]*reverb.FDNReverb
}

// NewReverb creates a reverb with decay (RT60, seconds) and pre-delay
// (seconds).
func NewReverb(ctx *Context, decay, preDelay float64) *Reverb {
	r := &Reverb{
		wetDry:   newWetDry(ctx, "Reverb", 1),
		decay:    math.Max(decay, 0.001),
		preDelay: math.Max(0, math.Min(preDelay, reverbMaxPreDelay)),
	}
	for ch := range r.tanks {
		t, err := reverb.NewFDNReverb(ctx.sampleRate)
		must(err)
		must(t.SetWet(1))
		must(t.SetDry(0))
		must(t.SetRT60(r.decay))
		must(t.SetPreDelay(r.preDelay))
		must(t.SetDamp(reverbDamping))
		must(t.SetModRate(reverbModRates[ch]))
		r.tanks[ch] = t
	}
	r.fx = r.render
	return r
}

// Decay returns the decay time in seconds.
func (r *Reverb) Decay() float64 {
	return r.decay
}

// PreDelay returns the pre-delay in seconds.
func (r *Reverb) PreDelay() float64 {
	return r.preDelay
}

// SetDecay always fails: the networks are tuned at construction.
func (r *Reverb) SetDecay(float64) error {
	return fmt.Errorf("audio: reverb decay: %w", ErrNotLiveEditable)
}

// SetPreDelay always fails: the pre-delay is fixed at construction.
func (r *Reverb) SetPreDelay(float64) error {
	return fmt.Errorf("audio: reverb pre-delay: %w", ErrNotLiveEditable)
}

func (r *Reverb) render(in, wet block, n int) {
	for i := 0; i < n; i++ {
		mono := float64(in[0][i]+in[1][i]) * 0.5
		for ch, t := range r.tanks {
			wet[ch][i] = float32(t.ProcessSample(mono))
		}
	}
}
