package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/midi"
	"github.com/justyntemme/polysynth/pkg/synth"
)

// host owns the engine on behalf of the audio callback. The engine is
// single-threaded, so every access from outside Read goes through Do.
type host struct {
	mu     sync.Mutex
	ctx    *audio.Context
	engine *synth.Engine
	queue  *midi.EventQueue
	prof   *debug.RenderProfiler

	left, right []float32
}

func newHost(ctx *audio.Context, e *synth.Engine) *host {
	return &host{
		ctx:    ctx,
		engine: e,
		queue:  midi.NewEventQueue(),
		prof:   debug.NewRenderProfiler(ctx.SampleRate()),
	}
}

// Do runs fn with the engine locked.
func (h *host) Do(fn func(ctx *audio.Context, e *synth.Engine)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.ctx, h.engine)
}

// Enqueue schedules events relative to the current context time.
func (h *host) Enqueue(events []midi.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := midi.NewEventQueue()
	q.AddMultiple(events)
	q.Shift(h.ctx.Now())
	h.queue.AddMultiple(q.GetAllEvents())
}

// Pending reports whether queued events remain.
func (h *host) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.queue.IsEmpty()
}

// Read renders interleaved float32 little-endian stereo for oto.
func (h *host) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}

	h.mu.Lock()
	done := h.prof.Start(frames)
	if cap(h.left) < frames {
		h.left = make([]float32, frames)
		h.right = make([]float32, frames)
	}
	left, right := h.left[:frames], h.right[:frames]
	for pos := 0; pos < frames; {
		h.queue.Dispatch(h.engine, h.ctx.Now())
		n := min(audio.BlockSize, frames-pos)
		if next, ok := h.queue.NextAt(); ok {
			until := int(math.Ceil((next - h.ctx.Now()) * h.ctx.SampleRate()))
			n = max(1, min(n, until))
		}
		h.ctx.Render(left[pos:pos+n], right[pos:pos+n])
		pos += n
	}
	done()
	h.mu.Unlock()

	for i := range frames {
		binary.LittleEndian.PutUint32(p[8*i:], math.Float32bits(left[i]))
		binary.LittleEndian.PutUint32(p[8*i+4:], math.Float32bits(right[i]))
	}
	return frames * 8, nil
}

// output is a started oto stream pulling from a host.
type output struct {
	ctx    *oto.Context
	player *oto.Player
}

// openOutput starts streaming h to the default audio device.
func openOutput(h *host, bufferSize time.Duration) (*output, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(h.ctx.SampleRate()),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := otoCtx.NewPlayer(h)
	player.Play()
	return &output{ctx: otoCtx, player: player}, nil
}

func (o *output) Close() error {
	return o.player.Close()
}
