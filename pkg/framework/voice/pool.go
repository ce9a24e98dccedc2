package voice

import (
	"errors"
	"fmt"
	"slices"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// MaxVoices is the size of every pool.
const MaxVoices = 8

// disposeMargin is added to the release tail before old voices are freed.
const disposeMargin = 0.1

// Pool owns a fixed set of voices and the note→voice map.
//
// FilterFrequencyMod and FilterResonanceMod are shared offsets every voice
// can add to its filter. They start at 0 and are connected into the voices
// only once a routing targets the filter.
type Pool struct {
	ctx  *audio.Context
	log  *debug.Logger
	dest audio.Input

	voices        []*Voice
	noteToVoice   map[int]*Voice
	lastTriggered int
	attacks       uint64

	FilterFrequencyMod *audio.Signal
	FilterResonanceMod *audio.Signal
	filterModConnected bool
}

// NewPool builds MaxVoices voices from p and connects them to dest.
func NewPool(ctx *audio.Context, p *patch.Patch, dest audio.Input, log *debug.Logger) (*Pool, error) {
	if log == nil {
		log = debug.Discard()
	}
	pool := &Pool{
		ctx:         ctx,
		log:         log,
		dest:        dest,
		noteToVoice: make(map[int]*Voice),
	}
	voices, freq, res, err := pool.build(p)
	if err != nil {
		return nil, err
	}
	pool.voices = voices
	pool.FilterFrequencyMod = freq
	pool.FilterResonanceMod = res
	pool.lastTriggered = len(voices) - 1
	return pool, nil
}

func (p *Pool) build(pt *patch.Patch) ([]*Voice, *audio.Signal, *audio.Signal, error) {
	freq := audio.NewSignal(p.ctx, 0)
	res := audio.NewSignal(p.ctx, 0)
	voices := make([]*Voice, 0, MaxVoices)

	fail := func(err error) ([]*Voice, *audio.Signal, *audio.Signal, error) {
		p.disposeSet(voices, freq, res)
		return nil, nil, nil, err
	}
	for i := 0; i < MaxVoices; i++ {
		v, err := New(p.ctx, Config{
			Patch:        pt,
			FrequencyMod: freq,
			ResonanceMod: res,
			Logger:       p.log,
		})
		if err != nil {
			return fail(fmt.Errorf("voice %d: %w", i, err))
		}
		voices = append(voices, v)
		if p.dest != nil {
			if err := v.Connect(p.dest); err != nil {
				return fail(fmt.Errorf("voice %d: %w", i, err))
			}
		}
	}
	return voices, freq, res, nil
}

// TriggerAttack sounds note. A note that is already held re-attacks its
// voice; otherwise a free voice is used, or the oldest voice is stolen.
func (p *Pool) TriggerAttack(note int, velocity float64) *Voice {
	now := p.ctx.Now()
	p.attacks++
	if v, ok := p.noteToVoice[note]; ok {
		v.TriggerAttack(note, velocity, now)
		v.attackSeq = p.attacks
		return v
	}

	v := p.findFreeVoice()
	if v == nil {
		v = p.stealVoice(now)
	}
	v.TriggerAttack(note, velocity, now)
	v.attackSeq = p.attacks
	p.noteToVoice[note] = v
	return v
}

// findFreeVoice returns an inactive voice, rotating through the pool so
// recently released tails are reused last.
func (p *Pool) findFreeVoice() *Voice {
	n := len(p.voices)
	for i := 0; i < n; i++ {
		idx := (p.lastTriggered + i + 1) % n
		if !p.voices[idx].Active() {
			p.lastTriggered = idx
			return p.voices[idx]
		}
	}
	return nil
}

// stealVoice hard-cancels the voice with the oldest attack. Attacks at the
// same clock time are ordered by arrival.
func (p *Pool) stealVoice(now float64) *Voice {
	oldest := p.voices[0]
	for _, v := range p.voices[1:] {
		if v.TriggeredAt() < oldest.TriggeredAt() ||
			v.TriggeredAt() == oldest.TriggeredAt() && v.attackSeq < oldest.attackSeq {
			oldest = v
		}
	}
	if stolen := oldest.Note(); stolen != NoNote && p.noteToVoice[stolen] == oldest {
		delete(p.noteToVoice, stolen)
		p.log.Debug("stealing voice from note %d", stolen)
	}
	oldest.CancelEnvelopes(now)
	return oldest
}

// TriggerRelease releases note. Unknown notes are ignored.
func (p *Pool) TriggerRelease(note int) {
	v, ok := p.noteToVoice[note]
	if !ok {
		return
	}
	v.TriggerRelease(p.ctx.Now())
	delete(p.noteToVoice, note)
}

// ReleaseAll releases every active voice and clears the note map.
func (p *Pool) ReleaseAll() {
	now := p.ctx.Now()
	for _, v := range p.voices {
		if v.Active() {
			v.TriggerRelease(now)
		}
	}
	clear(p.noteToVoice)
}

// UpdateOscillator applies an oscillator edit to every voice.
func (p *Pool) UpdateOscillator(i int, cfg patch.OscillatorConfig) {
	for _, v := range p.voices {
		v.UpdateOscillator(i, cfg)
	}
}

// UpdateFilter applies a filter edit to every voice.
func (p *Pool) UpdateFilter(cfg patch.FilterConfig) {
	for _, v := range p.voices {
		v.UpdateFilter(cfg)
	}
}

// UpdateAmpEnvelope applies an amplitude envelope edit to every voice.
func (p *Pool) UpdateAmpEnvelope(cfg patch.EnvelopeConfig) {
	for _, v := range p.voices {
		v.UpdateAmpEnvelope(cfg)
	}
}

// UpdateFilterEnvelope applies a filter envelope edit to every voice.
func (p *Pool) UpdateFilterEnvelope(cfg patch.FilterEnvelopeConfig) {
	for _, v := range p.voices {
		v.UpdateFilterEnvelope(cfg)
	}
}

// SetOscMix sets the oscillator mix of every voice.
func (p *Pool) SetOscMix(mix float64) {
	for _, v := range p.voices {
		v.SetOscMix(mix)
	}
}

// SetGlide sets the glide time of every voice.
func (p *Pool) SetGlide(seconds float64) {
	for _, v := range p.voices {
		v.SetGlide(seconds)
	}
}

// ConnectFilterMod connects the shared filter offsets into every voice.
// Only the first call after construction or a reset does anything.
func (p *Pool) ConnectFilterMod() {
	if p.filterModConnected {
		return
	}
	for i, v := range p.voices {
		p.log.WarnIf(v.ConnectFilterMod(), "voice %d: connect filter mod", i)
	}
	p.filterModConnected = true
}

// ResetFilterModConnection disconnects the shared filter offsets from every
// voice and zeroes them so no stale offset survives.
func (p *Pool) ResetFilterModConnection() {
	for i, v := range p.voices {
		p.log.WarnIf(v.DisconnectFilterMod(), "voice %d: disconnect filter mod", i)
	}
	p.FilterFrequencyMod.SetValue(0)
	p.FilterResonanceMod.SetValue(0)
	p.filterModConnected = false
}

// FilterModConnected reports whether ConnectFilterMod is in effect.
func (p *Pool) FilterModConnected() bool {
	return p.filterModConnected
}

// ReleaseTail returns how long the current voices ring after release.
func (p *Pool) ReleaseTail() float64 {
	if len(p.voices) == 0 {
		return 0
	}
	return p.voices[0].releaseTail()
}

// Rebuild swaps in a voice set built from pt. Current voices are released
// and stay connected until their tail has rung out, then they and the old
// filter offsets are disposed. New notes use the new voices immediately.
// The new offsets start disconnected.
func (p *Pool) Rebuild(pt *patch.Patch) error {
	tail := p.ReleaseTail()
	voices, freq, res, err := p.build(pt)
	if err != nil {
		return err
	}
	p.ReleaseAll()

	oldVoices, oldFreq, oldRes := p.voices, p.FilterFrequencyMod, p.FilterResonanceMod
	p.voices = voices
	p.FilterFrequencyMod = freq
	p.FilterResonanceMod = res
	p.filterModConnected = false
	p.lastTriggered = len(voices) - 1

	p.ctx.Schedule(p.ctx.Now()+tail+disposeMargin, func() {
		p.disposeSet(oldVoices, oldFreq, oldRes)
	})
	return nil
}

func (p *Pool) disposeSet(voices []*Voice, freq, res *audio.Signal) {
	var errs []error
	for _, v := range voices {
		errs = append(errs, v.Dispose())
	}
	for _, s := range []*audio.Signal{freq, res} {
		if s != nil && !s.Disposed() {
			errs = append(errs, s.Disconnect(), s.Dispose())
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.log.Warn("dispose voices: %v", err)
	}
}

// Dispose frees every voice and the shared offsets.
func (p *Pool) Dispose() {
	clear(p.noteToVoice)
	p.disposeSet(p.voices, p.FilterFrequencyMod, p.FilterResonanceMod)
	p.voices = nil
}

// ActiveVoiceCount returns the number of voices holding a note.
func (p *Pool) ActiveVoiceCount() int {
	count := 0
	for _, v := range p.voices {
		if v.Active() {
			count++
		}
	}
	return count
}

// Notes returns the held notes in ascending order.
func (p *Pool) Notes() []int {
	notes := make([]int, 0, len(p.noteToVoice))
	for n := range p.noteToVoice {
		notes = append(notes, n)
	}
	slices.Sort(notes)
	return notes
}

// VoiceForNote returns the voice holding note.
func (p *Pool) VoiceForNote(note int) (*Voice, bool) {
	v, ok := p.noteToVoice[note]
	return v, ok
}

// Voices returns the current voice set.
func (p *Pool) Voices() []*Voice {
	return slices.Clone(p.voices)
}
