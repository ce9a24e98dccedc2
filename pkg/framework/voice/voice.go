// Package voice provides the polyphonic voice and the fixed-size pool that
// allocates and steals voices per note.
package voice

import (
	"errors"
	"fmt"
	"math"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// NoNote is the note of a voice that has never sounded or was stolen.
const NoNote = -1

// Live-edit limits. The validation boundary allows a wider resonance range
// but the voice filter is only kept stable up to MaxResonance.
const (
	MinCutoff    = 20.0
	MaxCutoff    = 20000.0
	MinResonance = 0.1
	MaxResonance = 8.0

	cutoffRampTime = 0.05
	referenceNote  = 60
)

// Config holds everything a voice is built from.
type Config struct {
	Patch *patch.Patch

	// Shared offsets owned by the Pool. Either may be nil.
	FrequencyMod *audio.Signal
	ResonanceMod *audio.Signal

	Logger *debug.Logger
}

// Voice renders one note: two oscillators through a crossfade mixer, a
// filter swept by its own envelope, and an amplitude envelope.
type Voice struct {
	ctx *audio.Context
	log *debug.Logger

	osc       [2]*audio.Oscillator
	panner    [2]*audio.Panner
	mixer     *audio.CrossFade
	filter    *audio.Filter
	filterEnv *audio.FrequencyEnvelope
	ampEnv    *audio.AmplitudeEnvelope
	output    *audio.Gain

	freqMod *audio.Signal
	resMod  *audio.Signal

	oscCfg       [2]patch.OscillatorConfig
	mix          float64
	filterCfg    patch.FilterConfig
	filterEnvCfg patch.FilterEnvelopeConfig
	glide        float64

	note        int
	active      bool
	triggeredAt float64
	attackSeq   uint64 // set by Pool
}

// New builds a voice and starts its oscillators. The voice is silent until
// TriggerAttack opens the amplitude envelope.
func New(ctx *audio.Context, cfg Config) (*Voice, error) {
	p := cfg.Patch
	if p == nil {
		return nil, errors.New("voice: nil patch")
	}
	log := cfg.Logger
	if log == nil {
		log = debug.Discard()
	}

	v := &Voice{
		ctx:          ctx,
		log:          log,
		freqMod:      cfg.FrequencyMod,
		resMod:       cfg.ResonanceMod,
		oscCfg:       [2]patch.OscillatorConfig{p.Osc1, p.Osc2},
		mix:          p.OscMix,
		filterCfg:    p.Filter,
		filterEnvCfg: p.FilterEnvelope,
		glide:        p.Glide,
		note:         NoNote,
	}

	var err error
	for i, oc := range v.oscCfg {
		v.osc[i], err = audio.NewOscillator(ctx, oscFrequency(referenceNote, oc.Octave), oc.Waveform)
		if err != nil {
			return nil, fmt.Errorf("voice: osc%d: %w", i+1, err)
		}
		v.osc[i].Detune.SetValue(oc.Detune)
		v.osc[i].Volume.SetValue(oscVolume(oc))
		v.panner[i] = audio.NewPanner(ctx, oc.Pan)
	}
	v.mixer = audio.NewCrossFade(ctx, v.EffectiveMix())

	cutoff := clampCutoff(p.Filter.Cutoff)
	v.filter, err = audio.NewFilter(ctx, audio.FilterOptions{
		Type:      p.Filter.Type,
		Frequency: cutoff,
		Q:         clampResonance(p.Filter.Resonance),
		Rolloff:   p.Filter.Rolloff,
	})
	if err != nil {
		v.disposeOscillators()
		return nil, fmt.Errorf("voice: filter: %w", err)
	}
	v.filter.SetBypass(!p.Filter.Enabled)

	v.filterEnv = audio.NewFrequencyEnvelope(ctx, p.FilterEnvelope.Options(), cutoff, v.envOctaves())
	v.ampEnv = audio.NewAmplitudeEnvelope(ctx, p.AmpEnvelope.Options())
	v.output = audio.NewGain(ctx, 1)

	if err := v.wire(); err != nil {
		v.Dispose()
		return nil, fmt.Errorf("voice: %w", err)
	}
	v.syncFilterEnvelope()

	now := ctx.Now()
	v.osc[0].Start(now)
	v.osc[1].Start(now)
	return v, nil
}

func (v *Voice) wire() error {
	return errors.Join(
		v.osc[0].Connect(v.panner[0]),
		v.osc[1].Connect(v.panner[1]),
		v.panner[0].Connect(v.mixer.A()),
		v.panner[1].Connect(v.mixer.B()),
		v.mixer.Connect(v.filter),
		v.filter.Connect(v.ampEnv),
		v.ampEnv.Connect(v.output),
	)
}

func (v *Voice) disposeOscillators() {
	for _, o := range v.osc {
		if o != nil {
			_ = o.Dispose()
		}
	}
}

func oscFrequency(note, octave int) float64 {
	return audio.MidiToFrequency(note) * math.Exp2(float64(octave))
}

func oscVolume(cfg patch.OscillatorConfig) float64 {
	if !cfg.Enabled {
		return 0
	}
	return cfg.Volume
}

func clampCutoff(hz float64) float64 {
	return math.Max(MinCutoff, math.Min(MaxCutoff, hz))
}

func clampResonance(q float64) float64 {
	return math.Max(MinResonance, math.Min(MaxResonance, q))
}

func (v *Voice) at(t float64) float64 {
	return math.Max(t, v.ctx.Now())
}

// filterEnvActive reports whether the filter envelope should drive the
// cutoff: an envelope on a disabled filter would still offset its frequency.
func (v *Voice) filterEnvActive() bool {
	return v.filterCfg.Enabled && v.filterCfg.EnvAmount != 0
}

func (v *Voice) envOctaves() float64 {
	return v.filterEnvCfg.Octaves * v.filterCfg.EnvAmount
}

func (v *Voice) syncFilterEnvelope() {
	connected := v.filterEnv.IsConnectedTo(v.filter.Frequency)
	switch want := v.filterEnvActive(); {
	case want && !connected:
		v.log.WarnIf(v.filterEnv.Connect(v.filter.Frequency), "connect filter envelope")
	case !want && connected:
		v.log.WarnIf(v.filterEnv.Disconnect(v.filter.Frequency), "disconnect filter envelope")
	}
}

// trackedCutoff applies key tracking around middle C.
func (v *Voice) trackedCutoff(note int) float64 {
	cutoff := v.filterCfg.Cutoff
	if kt := v.filterCfg.KeyTracking; kt > 0 && note != NoNote {
		cutoff *= math.Exp2(float64(note-referenceNote) / 12 * kt)
	}
	return clampCutoff(cutoff)
}

// Connect routes the voice output into dst.
func (v *Voice) Connect(dst audio.Input) error {
	return v.output.Connect(dst)
}

// Disconnect removes the voice output from every destination.
func (v *Voice) Disconnect() error {
	return v.output.Disconnect()
}

// TriggerAttack starts note at time t (the current time if t is earlier).
// Velocity ranges 0..1.
func (v *Voice) TriggerAttack(note int, velocity, t float64) {
	t = v.at(t)
	v.triggeredAt = t

	for i, o := range v.osc {
		freq := oscFrequency(note, v.oscCfg[i].Octave)
		if v.glide > 0 {
			o.Frequency.RampTo(freq, v.glide)
		} else {
			o.Frequency.SetValue(freq)
		}
	}

	if v.filterCfg.KeyTracking > 0 {
		tracked := v.trackedCutoff(note)
		v.filter.Frequency.SetValue(tracked)
		v.filterEnv.SetBaseFrequency(tracked)
	}

	v.ampEnv.TriggerAttack(t, velocity)
	if v.filterEnvActive() {
		v.filterEnv.TriggerAttack(t, velocity)
	}

	v.note = note
	v.active = true
}

// TriggerRelease starts the release at time t. The note stays set while the
// tail sounds.
func (v *Voice) TriggerRelease(t float64) {
	t = v.at(t)
	v.ampEnv.TriggerRelease(t)
	if v.filterEnvActive() {
		v.filterEnv.TriggerRelease(t)
	}
	v.active = false
}

type canceler interface {
	Cancel(t float64)
}

type releaser interface {
	TriggerRelease(t float64)
}

// hardCancel resets an envelope at t, or releases it when it cannot be
// cancelled.
func hardCancel(env releaser, t float64) {
	if c, ok := env.(canceler); ok {
		c.Cancel(t)
		return
	}
	env.TriggerRelease(t)
}

// CancelEnvelopes resets both envelopes at time t so the voice can be
// retriggered for another note straight away. Used for stealing.
func (v *Voice) CancelEnvelopes(t float64) {
	t = v.at(t)
	hardCancel(v.ampEnv, t)
	hardCancel(v.filterEnv, t)
	v.note = NoNote
	v.active = false
}

// UpdateOscillator applies a live edit to oscillator i (0 or 1).
func (v *Voice) UpdateOscillator(i int, cfg patch.OscillatorConfig) {
	if i < 0 || i > 1 {
		return
	}
	o := v.osc[i]
	if cfg.Waveform != o.Type() {
		v.log.DebugIf(o.SetType(cfg.Waveform), "osc%d waveform", i+1)
	}
	o.Detune.SetValue(cfg.Detune)
	o.Volume.SetValue(oscVolume(cfg))
	v.panner[i].Pan.SetValue(cfg.Pan)
	if cfg.Octave != v.oscCfg[i].Octave && v.note != NoNote {
		o.Frequency.SetValue(oscFrequency(v.note, cfg.Octave))
	}
	v.oscCfg[i] = cfg
	v.SetOscMix(v.mix)
}

// EffectiveMix resolves the stored mix against which oscillators are
// enabled: a lone oscillator is always heard at full level.
func (v *Voice) EffectiveMix() float64 {
	on1, on2 := v.oscCfg[0].Enabled, v.oscCfg[1].Enabled
	switch {
	case on1 && on2:
		return v.mix
	case on2:
		return 1
	default:
		return 0
	}
}

// SetOscMix stores the crossfade ratio and applies the effective mix.
func (v *Voice) SetOscMix(mix float64) {
	v.mix = mix
	v.mixer.Fade.SetValue(v.EffectiveMix())
}

// UpdateFilter applies cutoff, resonance, type and envelope amount without
// retriggering. Cutoff ramps over 50ms; resonance is written directly.
// Writes the filter does not support are ignored.
func (v *Voice) UpdateFilter(cfg patch.FilterConfig) {
	cfg.Rolloff = v.filter.Rolloff()
	v.filterCfg = cfg

	if cfg.Type != v.filter.Type() {
		v.log.DebugIf(v.filter.SetType(cfg.Type), "filter type")
	}
	cutoff := v.trackedCutoff(v.note)
	v.filter.Frequency.RampTo(cutoff, cutoffRampTime)
	v.log.DebugIf(v.filter.SetQ(clampResonance(cfg.Resonance)), "filter resonance")
	v.filter.SetBypass(!cfg.Enabled)

	v.filterEnv.SetBaseFrequency(cutoff)
	v.filterEnv.SetOctaves(v.envOctaves())
	v.syncFilterEnvelope()
}

// UpdateAmpEnvelope applies new amplitude envelope settings.
func (v *Voice) UpdateAmpEnvelope(cfg patch.EnvelopeConfig) {
	v.ampEnv.Set(cfg.Options())
}

// UpdateFilterEnvelope applies new filter envelope settings and re-derives
// its base frequency from the current cutoff.
func (v *Voice) UpdateFilterEnvelope(cfg patch.FilterEnvelopeConfig) {
	v.filterEnvCfg = cfg
	v.filterEnv.Set(cfg.Options())
	v.filterEnv.SetOctaves(v.envOctaves())
	v.filterEnv.SetBaseFrequency(v.trackedCutoff(v.note))
}

// SetGlide sets the portamento time in seconds.
func (v *Voice) SetGlide(seconds float64) {
	v.glide = math.Max(0, seconds)
}

// ConnectFilterMod connects the shared offsets into this voice's filter.
func (v *Voice) ConnectFilterMod() error {
	var errs []error
	if v.freqMod != nil {
		errs = append(errs, v.freqMod.Connect(v.filter.Frequency))
	}
	if v.resMod != nil {
		errs = append(errs, v.resMod.Connect(v.filter.Q))
	}
	return errors.Join(errs...)
}

// DisconnectFilterMod removes the shared offsets from this voice's filter.
// It is a no-op when they are not connected.
func (v *Voice) DisconnectFilterMod() error {
	var errs []error
	if v.freqMod != nil && v.freqMod.IsConnectedTo(v.filter.Frequency) {
		errs = append(errs, v.freqMod.Disconnect(v.filter.Frequency))
	}
	if v.resMod != nil && v.resMod.IsConnectedTo(v.filter.Q) {
		errs = append(errs, v.resMod.Disconnect(v.filter.Q))
	}
	return errors.Join(errs...)
}

// FilterModConnected reports whether the shared frequency offset feeds this
// voice's filter.
func (v *Voice) FilterModConnected() bool {
	return v.freqMod != nil && v.freqMod.IsConnectedTo(v.filter.Frequency)
}

// Dispose stops the oscillators, then disconnects every node, then disposes
// every node. Each step runs even if an earlier one failed.
func (v *Voice) Dispose() error {
	now := v.ctx.Now()
	for _, o := range v.osc {
		o.Stop(now)
	}

	var errs []error
	errs = append(errs, v.DisconnectFilterMod())

	nodes := v.nodes()
	for _, n := range nodes {
		if n.Disposed() {
			continue
		}
		errs = append(errs, n.Disconnect())
	}
	for _, n := range nodes {
		if n.Disposed() {
			continue
		}
		errs = append(errs, n.Dispose())
	}
	return errors.Join(errs...)
}

func (v *Voice) nodes() []audio.Node {
	return []audio.Node{
		v.osc[0], v.osc[1],
		v.panner[0], v.panner[1],
		v.mixer, v.filter, v.filterEnv, v.ampEnv, v.output,
	}
}

// Note returns the sounding note, or NoNote.
func (v *Voice) Note() int { return v.note }

// Active reports whether the voice holds a note that has not been released.
func (v *Voice) Active() bool { return v.active }

// TriggeredAt returns the time of the most recent attack.
func (v *Voice) TriggeredAt() float64 { return v.triggeredAt }

// Oscillator returns oscillator i (0 or 1).
func (v *Voice) Oscillator(i int) *audio.Oscillator { return v.osc[i] }

// Mixer returns the oscillator crossfade.
func (v *Voice) Mixer() *audio.CrossFade { return v.mixer }

// Filter returns the voice filter.
func (v *Voice) Filter() *audio.Filter { return v.filter }

// FilterEnvelope returns the cutoff envelope.
func (v *Voice) FilterEnvelope() *audio.FrequencyEnvelope { return v.filterEnv }

// AmpEnvelope returns the amplitude envelope.
func (v *Voice) AmpEnvelope() *audio.AmplitudeEnvelope { return v.ampEnv }

// Output returns the voice output gain.
func (v *Voice) Output() *audio.Gain { return v.output }

// releaseTail returns how long this voice keeps sounding after release.
func (v *Voice) releaseTail() float64 {
	tail := v.ampEnv.Release
	if v.filterCfg.Enabled {
		tail = math.Max(tail, v.filterEnv.Release)
	}
	return tail
}
