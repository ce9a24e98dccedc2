// Package synth is the polyphonic synthesizer engine: it owns the master
// gain, the effects chain, the voice pool and the modulation manager, and
// keeps them in step with the current patch.
package synth

import (
	"errors"
	"fmt"
	"slices"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/framework/effects"
	"github.com/justyntemme/polysynth/pkg/framework/modulation"
	"github.com/justyntemme/polysynth/pkg/framework/param"
	"github.com/justyntemme/polysynth/pkg/framework/voice"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// ErrConstruction is returned when the engine cannot be built from a patch.
var ErrConstruction = errors.New("synth: construction failed")

// masterRampTime is the ramp applied to master volume edits.
const masterRampTime = 0.05

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Sub-components log under their own
// component prefix.
func WithLogger(l *debug.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithOutput routes the master gain into dst instead of the context
// destination.
func WithOutput(dst audio.Input) Option {
	return func(e *Engine) {
		if dst != nil {
			e.out = dst
		}
	}
}

// Engine is the single entry point for playing and editing a patch. All
// methods must be called from the goroutine that renders the context.
type Engine struct {
	ctx *audio.Context
	log *debug.Logger
	out audio.Input

	patch *patch.Patch

	master  *audio.Gain
	effects *effects.Chain
	pool    *voice.Pool
	mod     *modulation.Manager

	// filter_freq shapers scale by the base cutoff and follow it live.
	cutoffShapers []*audio.WaveShaper

	sustain   bool
	sustained map[int]struct{}
	disposed  bool
}

// New builds an engine for p. The engine keeps its own copy of p.
func New(ctx *audio.Context, p *patch.Patch, opts ...Option) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil patch", ErrConstruction)
	}
	e := &Engine{
		ctx:       ctx,
		log:       debug.Default().With("synth"),
		out:       ctx.Destination(),
		patch:     p.Clone(),
		sustained: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.build(); err != nil {
		return nil, err
	}
	return e, nil
}

// build constructs the graph for e.patch: master gain, effects chain, voice
// pool, chain into master, modulation manager, routings.
func (e *Engine) build() error {
	fail := func(step string, err error) error {
		e.teardown()
		return fmt.Errorf("%w: %s: %w", ErrConstruction, step, err)
	}

	e.master = audio.NewGain(e.ctx, e.patch.MasterVolume)
	if err := e.master.Connect(e.out); err != nil {
		return fail("master", err)
	}

	chain, err := effects.Build(e.ctx, e.patch.Effects, e.log.With("effects"))
	if err != nil {
		return fail("effects", err)
	}
	e.effects = chain

	dest := chain.Input()
	if dest == nil {
		dest = e.master
	}
	pool, err := voice.NewPool(e.ctx, e.patch, dest, e.log.With("voice"))
	if err != nil {
		return fail("voices", err)
	}
	e.pool = pool

	if err := chain.ConnectTo(e.master); err != nil {
		return fail("effects", err)
	}

	mod, err := modulation.New(e.ctx, e.patch.ModMatrix, e.log.With("modulation"))
	if err != nil {
		return fail("modulation", err)
	}
	e.mod = mod

	e.applyModulationRoutings()
	e.log.Debug("built engine for patch %q", e.patch.Name)
	return nil
}

// teardown disposes everything build created, in reverse order. Every step
// runs even when an earlier one fails.
func (e *Engine) teardown() {
	if e.pool != nil {
		e.pool.ReleaseAll()
	}
	clear(e.sustained)
	if e.master != nil {
		e.log.WarnIf(e.master.Disconnect(), "disconnect master")
	}
	if e.mod != nil {
		e.mod.Dispose()
		e.mod = nil
	}
	e.cutoffShapers = nil
	if e.pool != nil {
		e.pool.Dispose()
		e.pool = nil
	}
	if e.effects != nil {
		e.log.WarnIf(e.effects.Dispose(), "dispose effects")
		e.effects = nil
	}
	if e.master != nil {
		if !e.master.Disposed() {
			e.log.WarnIf(e.master.Dispose(), "dispose master")
		}
		e.master = nil
	}
}

// TriggerAttack starts note (0..127) at velocity (0..1). The voice starts
// first, then the velocity and key-track controllers, then the auxiliary
// envelopes.
func (e *Engine) TriggerAttack(note int, velocity float64) {
	if e.disposed {
		return
	}
	delete(e.sustained, note)
	e.pool.TriggerAttack(note, velocity)
	e.mod.SetVelocity(velocity * 127)
	e.mod.SetKeytrack(note)
	e.mod.TriggerAttack(e.ctx.Now())
}

// TriggerRelease releases note. Unknown notes are ignored. While the
// sustain pedal is down the release is deferred until the pedal lifts.
func (e *Engine) TriggerRelease(note int) {
	if e.disposed {
		return
	}
	if _, held := e.pool.VoiceForNote(note); !held {
		return
	}
	if e.sustain {
		e.sustained[note] = struct{}{}
		return
	}
	e.pool.TriggerRelease(note)
	if len(e.pool.Notes()) == 0 {
		e.mod.TriggerRelease(e.ctx.Now())
	}
}

// ReleaseAll releases every sounding voice, including sustained ones.
func (e *Engine) ReleaseAll() {
	if e.disposed {
		return
	}
	clear(e.sustained)
	e.pool.ReleaseAll()
	e.mod.TriggerRelease(e.ctx.Now())
}

// SetSustain sets the sustain pedal. Lifting it releases every note whose
// key went up while it was down.
func (e *Engine) SetSustain(down bool) {
	if e.disposed || e.sustain == down {
		return
	}
	e.sustain = down
	if down {
		return
	}
	notes := make([]int, 0, len(e.sustained))
	for n := range e.sustained {
		notes = append(notes, n)
	}
	clear(e.sustained)
	slices.Sort(notes)
	for _, n := range notes {
		e.TriggerRelease(n)
	}
}

// Sustain reports whether the sustain pedal is down.
func (e *Engine) Sustain() bool {
	return e.sustain
}

// SetModWheel writes a mod wheel position (0..127).
func (e *Engine) SetModWheel(raw float64) {
	if !e.disposed {
		e.mod.SetModWheel(raw)
	}
}

// SetAftertouch writes a channel pressure value (0..127).
func (e *Engine) SetAftertouch(raw float64) {
	if !e.disposed {
		e.mod.SetAftertouch(raw)
	}
}

// UpdateParameter is the string-keyed fast path, e.g. "oscMix" or
// "modMatrix.lfo1.frequency". Unknown paths are logged and ignored.
func (e *Engine) UpdateParameter(path string, value float64) {
	p, ok := param.ParsePath(path)
	if !ok {
		e.log.Debug("unknown parameter path %q", path)
		return
	}
	e.SetParameter(p, value)
}

// SetParameter writes one fast-path parameter, clamped to its range, and
// records it in the stored patch.
func (e *Engine) SetParameter(p param.Path, value float64) {
	if e.disposed {
		return
	}
	desc, ok := param.Describe(p)
	if !ok {
		e.log.Debug("unknown parameter %v", p)
		return
	}
	value = desc.Clamp(value)

	switch p.Kind {
	case param.KindOscMix:
		e.patch.OscMix = value
		e.pool.SetOscMix(value)
	case param.KindMasterVolume:
		e.patch.MasterVolume = value
		e.master.Gain.RampTo(value, masterRampTime)
	case param.KindLFO:
		cfg := e.patch.ModMatrix.LFO(p.LFO)
		switch p.Field {
		case param.LFOFrequency:
			cfg.Frequency = value
		case param.LFOAmplitude:
			cfg.Amplitude = value
		case param.LFOPhase:
			cfg.Phase = value
		}
		e.mod.SetLFOParam(p.LFO, p.Field, value)
	}
}

// Patch returns a copy of the current patch.
func (e *Engine) Patch() *patch.Patch {
	return e.patch.Clone()
}

// UpdatePatch rebuilds the whole graph for p. When p cannot be built the
// engine is rebuilt from the previous patch and the error is returned. If
// that also fails the engine is disposed.
func (e *Engine) UpdatePatch(p *patch.Patch) error {
	if e.disposed {
		return fmt.Errorf("synth: update patch: %w", audio.ErrDisposed)
	}
	if p == nil {
		return fmt.Errorf("%w: nil patch", ErrConstruction)
	}
	prev := e.patch
	e.teardown()
	e.patch = p.Clone()
	err := e.build()
	if err == nil {
		return nil
	}

	e.log.Warn("rebuild failed, restoring previous patch: %v", err)
	e.patch = prev
	if rerr := e.build(); rerr != nil {
		e.disposed = true
		return errors.Join(err, fmt.Errorf("restore previous patch: %w", rerr))
	}
	return err
}

// Dispose frees the whole graph. Further calls are no-ops.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	if e.pool != nil {
		e.pool.Dispose()
		e.pool = nil
	}
	if e.mod != nil {
		e.mod.Dispose()
		e.mod = nil
	}
	e.cutoffShapers = nil
	if e.effects != nil {
		e.log.WarnIf(e.effects.Dispose(), "dispose effects")
		e.effects = nil
	}
	if e.master != nil {
		e.log.WarnIf(e.master.Dispose(), "dispose master")
		e.master = nil
	}
}

// Disposed reports whether Dispose has been called.
func (e *Engine) Disposed() bool { return e.disposed }

// Context returns the audio context the engine renders into.
func (e *Engine) Context() *audio.Context { return e.ctx }

// Pool returns the voice pool.
func (e *Engine) Pool() *voice.Pool { return e.pool }

// Modulation returns the modulation manager.
func (e *Engine) Modulation() *modulation.Manager { return e.mod }

// Effects returns the effects chain.
func (e *Engine) Effects() *effects.Chain { return e.effects }

// Master returns the master gain.
func (e *Engine) Master() *audio.Gain { return e.master }
