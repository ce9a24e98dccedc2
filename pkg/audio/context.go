// Package audio provides the real-time audio graph used by the synthesizer
// engine: a render clock, connectable nodes, automatable parameters and a
// catalog of oscillators, filters, envelopes, modulators and effects.
//
// The graph is pull-rendered in blocks of BlockSize frames. It is not safe
// for concurrent use: the host must serialize graph edits and rendering.
package audio

import (
	"math"
	"sort"
)

// BlockSize is the number of frames rendered per processing quantum.
const BlockSize = 128

// DefaultBPM is the tempo used by tempo-synced modulators until SetBPM is called.
const DefaultBPM = 120.0

type scheduledCall struct {
	at  float64
	seq int
	fn  func()
}

// Context owns the render clock and the destination node of a graph.
type Context struct {
	sampleRate float64
	frame      int64
	tick       int64
	bpm        float64

	dest      *Destination
	scheduled []scheduledCall
	seq       int

	// tempo followers
	synced map[*LFO]struct{}
}

// NewContext creates a graph context running at the given sample rate.
func NewContext(sampleRate float64) *Context {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	c := &Context{
		sampleRate: sampleRate,
		bpm:        DefaultBPM,
		synced:     make(map[*LFO]struct{}),
	}
	c.dest = newDestination(c)
	return c
}

// SampleRate returns the sample rate in Hz.
func (c *Context) SampleRate() float64 {
	return c.sampleRate
}

// Now returns the render clock in seconds.
func (c *Context) Now() float64 {
	return float64(c.frame) / c.sampleRate
}

// Frame returns the number of frames rendered so far.
func (c *Context) Frame() int64 {
	return c.frame
}

// Destination returns the node whose input is rendered by Render.
func (c *Context) Destination() *Destination {
	return c.dest
}

// BPM returns the tempo used by tempo-synced modulators.
func (c *Context) BPM() float64 {
	return c.bpm
}

// SetBPM changes the tempo and retunes every synced LFO.
func (c *Context) SetBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	c.bpm = bpm
	for lfo := range c.synced {
		lfo.applySyncRate()
	}
}

// Schedule runs fn on the render path once the clock reaches at.
// Calls due at the same time run in scheduling order.
func (c *Context) Schedule(at float64, fn func()) {
	if fn == nil {
		return
	}
	c.seq++
	c.scheduled = append(c.scheduled, scheduledCall{at: at, seq: c.seq, fn: fn})
	sort.SliceStable(c.scheduled, func(i, j int) bool {
		if c.scheduled[i].at == c.scheduled[j].at {
			return c.scheduled[i].seq < c.scheduled[j].seq
		}
		return c.scheduled[i].at < c.scheduled[j].at
	})
}

// Pending returns the number of scheduled calls that have not run yet.
func (c *Context) Pending() int {
	return len(c.scheduled)
}

func (c *Context) runDue() {
	now := c.Now()
	for len(c.scheduled) > 0 && c.scheduled[0].at <= now {
		call := c.scheduled[0]
		c.scheduled = c.scheduled[1:]
		call.fn()
	}
}

// Render renders len(left) frames into left and right.
// The shorter of the two buffers bounds the render.
func (c *Context) Render(left, right []float32) {
	frames := min(len(left), len(right))
	for done := 0; done < frames; {
		c.runDue()
		n := min(BlockSize, frames-done)
		c.tick++
		out := c.dest.pull(n)
		copy(left[done:done+n], out[0][:n])
		copy(right[done:done+n], out[1][:n])
		c.frame += int64(n)
		done += n
	}
	c.runDue()
}

// Advance renders and discards the given duration of audio.
func (c *Context) Advance(seconds float64) {
	frames := int(math.Ceil(seconds * c.sampleRate))
	if frames <= 0 {
		c.runDue()
		return
	}
	left := make([]float32, BlockSize)
	right := make([]float32, BlockSize)
	for frames > 0 {
		n := min(BlockSize, frames)
		c.Render(left[:n], right[:n])
		frames -= n
	}
}

// Destination is the graph sink. Everything connected to it is rendered.
type Destination struct {
	*node
	Volume *Param
}

func newDestination(ctx *Context) *Destination {
	d := &Destination{node: newNode(ctx, "Destination", 1)}
	d.Volume = d.newParam("volume", UnitsGain, 1, 0, 4)
	d.process = func(out block, n int) {
		in := d.input(0, n)
		vol := d.Volume.fill(n)
		for ch := range out {
			for i := 0; i < n; i++ {
				out[ch][i] = in[ch][i] * vol[i]
			}
		}
	}
	return d
}
