// Package patch defines the declarative description of a synthesizer sound:
// oscillators, filter, envelopes, modulation matrix and effects chain.
//
// A Patch is a plain value. The engine never mutates the patch it is handed;
// edits are made on a Clone and passed back as a whole.
package patch

import (
	"maps"
	"math"
	"slices"

	"github.com/justyntemme/polysynth/pkg/audio"
)

// OscillatorConfig describes one oscillator.
type OscillatorConfig struct {
	Enabled  bool           `json:"enabled"`
	Waveform audio.Waveform `json:"waveform"`
	Octave   int            `json:"octave"`
	Detune   float64        `json:"detune"`
	Volume   float64        `json:"volume"`
	Pan      float64        `json:"pan"`
}

// FilterConfig describes the voice filter. Rolloff is fixed when voices are
// built; changing it needs a voice rebuild.
type FilterConfig struct {
	Enabled     bool             `json:"enabled"`
	Type        audio.FilterType `json:"type"`
	Cutoff      float64          `json:"cutoff"`
	Resonance   float64          `json:"resonance"`
	Rolloff     audio.Rolloff    `json:"rolloff"`
	EnvAmount   float64          `json:"envAmount"`
	KeyTracking float64          `json:"keyTracking"`
}

// EnvelopeConfig describes an ADSR envelope. Times are in seconds.
type EnvelopeConfig struct {
	Attack       float64     `json:"attack"`
	Decay        float64     `json:"decay"`
	Sustain      float64     `json:"sustain"`
	Release      float64     `json:"release"`
	AttackCurve  audio.Curve `json:"attackCurve,omitempty"`
	ReleaseCurve audio.Curve `json:"releaseCurve,omitempty"`
}

// Options converts the config to audio envelope options.
func (e EnvelopeConfig) Options() audio.EnvelopeOptions {
	return audio.EnvelopeOptions{
		Attack:       e.Attack,
		Decay:        e.Decay,
		Sustain:      e.Sustain,
		Release:      e.Release,
		AttackCurve:  e.AttackCurve,
		ReleaseCurve: e.ReleaseCurve,
	}
}

// FilterEnvelopeConfig is the filter envelope. Octaves is how far a full
// envelope at EnvAmount 1 sweeps the cutoff.
type FilterEnvelopeConfig struct {
	EnvelopeConfig
	Octaves float64 `json:"octaves"`
}

// LFOConfig describes one modulation LFO. When Sync is set the rate comes
// from SyncRate, or from Frequency mapped to the nearest subdivision when
// SyncRate is empty.
type LFOConfig struct {
	Enabled   bool           `json:"enabled"`
	Waveform  audio.Waveform `json:"waveform"`
	Frequency float64        `json:"frequency"`
	Amplitude float64        `json:"amplitude"`
	Phase     float64        `json:"phase"`
	Sync      bool           `json:"sync"`
	SyncRate  string         `json:"syncRate,omitempty"`
}

// Source names a modulation source.
type Source string

const (
	SourceLFO1       Source = "lfo1"
	SourceLFO2       Source = "lfo2"
	SourceEnv1       Source = "env1"
	SourceEnv2       Source = "env2"
	SourceVelocity   Source = "velocity"
	SourceKeytrack   Source = "keytrack"
	SourceModWheel   Source = "modwheel"
	SourceAftertouch Source = "aftertouch"
)

// Sources lists every modulation source.
var Sources = []Source{
	SourceLFO1, SourceLFO2, SourceEnv1, SourceEnv2,
	SourceVelocity, SourceKeytrack, SourceModWheel, SourceAftertouch,
}

// Known reports whether s is a modulation source.
func (s Source) Known() bool {
	return slices.Contains(Sources, s)
}

// LFOIndex returns 0 or 1 for the LFO sources.
func (s Source) LFOIndex() (int, bool) {
	switch s {
	case SourceLFO1:
		return 0, true
	case SourceLFO2:
		return 1, true
	}
	return -1, false
}

// Destination names a modulation target.
type Destination string

const (
	DestLFO1Rate   Destination = "lfo1_rate"
	DestLFO2Rate   Destination = "lfo2_rate"
	DestFilterFreq Destination = "filter_freq"
	DestFilterRes  Destination = "filter_res"
	DestAmpVolume  Destination = "amp_volume"

	DestOsc1Pitch  Destination = "osc1_pitch"
	DestOsc2Pitch  Destination = "osc2_pitch"
	DestOsc1Detune Destination = "osc1_detune"
	DestOsc2Detune Destination = "osc2_detune"
	DestOsc1Volume Destination = "osc1_volume"
	DestOsc2Volume Destination = "osc2_volume"
	DestOsc1Pan    Destination = "osc1_pan"
	DestOsc2Pan    Destination = "osc2_pan"
	DestFXMix      Destination = "fx_mix"
)

// Destinations lists the destinations routings are applied to.
var Destinations = []Destination{
	DestLFO1Rate, DestLFO2Rate, DestFilterFreq, DestFilterRes, DestAmpVolume,
}

// ReservedDestinations are accepted in patches but have no effect.
var ReservedDestinations = []Destination{
	DestOsc1Pitch, DestOsc2Pitch, DestOsc1Detune, DestOsc2Detune,
	DestOsc1Volume, DestOsc2Volume, DestOsc1Pan, DestOsc2Pan, DestFXMix,
}

// Known reports whether d is an implemented or reserved destination.
func (d Destination) Known() bool {
	return d.Implemented() || slices.Contains(ReservedDestinations, d)
}

// Implemented reports whether routings to d are applied.
func (d Destination) Implemented() bool {
	return slices.Contains(Destinations, d)
}

// ModRouting connects a source to a destination.
type ModRouting struct {
	ID          string      `json:"id"`
	Source      Source      `json:"source"`
	Destination Destination `json:"destination"`
	Amount      float64     `json:"amount"`
	Enabled     bool        `json:"enabled"`
}

// ModMatrix holds the routings and the modulation sources they draw from.
type ModMatrix struct {
	Routings []ModRouting   `json:"routings"`
	LFO1     LFOConfig      `json:"lfo1"`
	LFO2     LFOConfig      `json:"lfo2"`
	Env1     EnvelopeConfig `json:"env1"`
	Env2     EnvelopeConfig `json:"env2"`
}

// LFO returns the LFO config at index 0 or 1.
func (m *ModMatrix) LFO(i int) *LFOConfig {
	if i == 1 {
		return &m.LFO2
	}
	return &m.LFO1
}

// Envelope returns the modulation envelope config at index 0 or 1.
func (m *ModMatrix) Envelope(i int) *EnvelopeConfig {
	if i == 1 {
		return &m.Env2
	}
	return &m.Env1
}

// EffectType names an effect in the catalog.
type EffectType string

const (
	EffectChorus     EffectType = "chorus"
	EffectReverb     EffectType = "reverb"
	EffectDelay      EffectType = "delay"
	EffectPingPong   EffectType = "pingpong"
	EffectDistortion EffectType = "distortion"
	EffectBitCrusher EffectType = "bitcrusher"
	EffectCompressor EffectType = "compressor"
	EffectPhaser     EffectType = "phaser"
	EffectTremolo    EffectType = "tremolo"
	EffectVibrato    EffectType = "vibrato"
	EffectAutoFilter EffectType = "autofilter"
	EffectAutoPanner EffectType = "autopanner"
	EffectAutoWah    EffectType = "autowah"
)

// EffectTypes lists the effect catalog.
var EffectTypes = []EffectType{
	EffectChorus, EffectReverb, EffectDelay, EffectPingPong, EffectDistortion,
	EffectBitCrusher, EffectCompressor, EffectPhaser, EffectTremolo,
	EffectVibrato, EffectAutoFilter, EffectAutoPanner, EffectAutoWah,
}

// Known reports whether t is in the catalog.
func (t EffectType) Known() bool {
	return slices.Contains(EffectTypes, t)
}

// EffectConfig is one slot of the effects chain. Params holds numbers and
// strings specific to the effect type.
type EffectConfig struct {
	Type    EffectType     `json:"type"`
	Enabled bool           `json:"enabled"`
	Wet     float64        `json:"wet"`
	Params  map[string]any `json:"params,omitempty"`
}

// Float returns a numeric param, or def when it is missing or not a number.
func (e EffectConfig) Float(name string, def float64) float64 {
	switch v := e.Params[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// String returns a string param, or def when it is missing or not a string.
func (e EffectConfig) String(name, def string) string {
	if v, ok := e.Params[name].(string); ok {
		return v
	}
	return def
}

// Patch is a complete sound.
type Patch struct {
	Name           string               `json:"name"`
	Osc1           OscillatorConfig     `json:"osc1"`
	Osc2           OscillatorConfig     `json:"osc2"`
	OscMix         float64              `json:"oscMix"`
	Filter         FilterConfig         `json:"filter"`
	AmpEnvelope    EnvelopeConfig       `json:"ampEnvelope"`
	FilterEnvelope FilterEnvelopeConfig `json:"filterEnvelope"`
	ModMatrix      ModMatrix            `json:"modMatrix"`
	Effects        []EffectConfig       `json:"effects"`
	MasterVolume   float64              `json:"masterVolume"`
	Glide          float64              `json:"glide"`
}

// Oscillator returns the oscillator config at index 0 or 1.
func (p *Patch) Oscillator(i int) *OscillatorConfig {
	if i == 1 {
		return &p.Osc2
	}
	return &p.Osc1
}

// ReleaseTail returns how long a released note keeps sounding: the amp
// release, or the filter envelope release when the filter is enabled and
// longer.
func (p *Patch) ReleaseTail() float64 {
	tail := p.AmpEnvelope.Release
	if p.Filter.Enabled {
		tail = math.Max(tail, p.FilterEnvelope.Release)
	}
	return tail
}

// Default returns the init patch.
func Default() *Patch {
	return &Patch{
		Name: "Init",
		Osc1: OscillatorConfig{
			Enabled:  true,
			Waveform: audio.WaveSawtooth,
			Volume:   0.8,
		},
		Osc2: OscillatorConfig{
			Enabled:  false,
			Waveform: audio.WaveSquare,
			Octave:   -1,
			Detune:   7,
			Volume:   0.6,
		},
		OscMix: 0.5,
		Filter: FilterConfig{
			Enabled:   true,
			Type:      audio.Lowpass,
			Cutoff:    2000,
			Resonance: 1,
			Rolloff:   audio.Rolloff24,
			EnvAmount: 0.5,
		},
		AmpEnvelope: EnvelopeConfig{
			Attack:  0.01,
			Decay:   0.2,
			Sustain: 0.7,
			Release: 0.5,
		},
		FilterEnvelope: FilterEnvelopeConfig{
			EnvelopeConfig: EnvelopeConfig{
				Attack:  0.01,
				Decay:   0.3,
				Sustain: 0.3,
				Release: 0.5,
			},
			Octaves: 3,
		},
		ModMatrix: ModMatrix{
			Routings: []ModRouting{},
			LFO1: LFOConfig{
				Waveform:  audio.WaveSine,
				Frequency: 2,
				Amplitude: 0.5,
				SyncRate:  "4n",
			},
			LFO2: LFOConfig{
				Waveform:  audio.WaveTriangle,
				Frequency: 0.5,
				Amplitude: 0.5,
				SyncRate:  "1n",
			},
			Env1: EnvelopeConfig{Attack: 0.1, Decay: 0.3, Sustain: 0.5, Release: 0.5},
			Env2: EnvelopeConfig{Attack: 0.1, Decay: 0.3, Sustain: 0.5, Release: 0.5},
		},
		Effects: []EffectConfig{
			{Type: EffectChorus, Enabled: false, Wet: 0.3, Params: map[string]any{"frequency": 1.5, "delayTime": 3.5, "depth": 0.7}},
			{Type: EffectReverb, Enabled: true, Wet: 0.2, Params: map[string]any{"decay": 2.5, "preDelay": 0.01}},
		},
		MasterVolume: 0.7,
	}
}

// Clone returns a deep copy of p.
func (p *Patch) Clone() *Patch {
	if p == nil {
		return nil
	}
	c := *p
	if p.ModMatrix.Routings != nil {
		c.ModMatrix.Routings = slices.Clone(p.ModMatrix.Routings)
	}
	if p.Effects != nil {
		c.Effects = make([]EffectConfig, len(p.Effects))
		for i, e := range p.Effects {
			e.Params = maps.Clone(e.Params)
			c.Effects[i] = e
		}
	}
	return &c
}
