package debug

import (
	"fmt"
	"sync"
	"time"
)

// RenderProfiler times audio render callbacks and reports the load relative
// to the real-time budget of each callback.
type RenderProfiler struct {
	mu         sync.Mutex
	sampleRate float64

	count    uint64
	frames   uint64
	total    time.Duration
	minTime  time.Duration
	maxTime  time.Duration
	overruns uint64
}

// NewRenderProfiler creates a profiler for output at sampleRate.
func NewRenderProfiler(sampleRate float64) *RenderProfiler {
	return &RenderProfiler{sampleRate: sampleRate}
}

// Start begins timing a callback rendering frames frames. Call the returned
// function when the callback is done.
func (p *RenderProfiler) Start(frames int) func() {
	start := time.Now()
	return func() {
		p.Record(frames, time.Since(start))
	}
}

// Record stores one callback measurement.
func (p *RenderProfiler) Record(frames int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 || elapsed < p.minTime {
		p.minTime = elapsed
	}
	if elapsed > p.maxTime {
		p.maxTime = elapsed
	}
	p.count++
	p.frames += uint64(frames)
	p.total += elapsed
	if elapsed > p.budget(frames) {
		p.overruns++
	}
}

func (p *RenderProfiler) budget(frames int) time.Duration {
	return time.Duration(float64(frames) / p.sampleRate * float64(time.Second))
}

// Load returns total render time as a fraction of the audio duration rendered.
func (p *RenderProfiler) Load() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frames == 0 {
		return 0
	}
	return float64(p.total) / float64(p.budget(int(p.frames)))
}

// Overruns returns the number of callbacks that took longer than real time.
func (p *RenderProfiler) Overruns() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overruns
}

// Report formats the statistics.
func (p *RenderProfiler) Report() string {
	load := p.Load()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count == 0 {
		return "no render callbacks recorded"
	}
	avg := p.total / time.Duration(p.count)
	return fmt.Sprintf("callbacks=%d avg=%v min=%v max=%v load=%.1f%% overruns=%d",
		p.count, avg, p.minTime, p.maxTime, load*100, p.overruns)
}
