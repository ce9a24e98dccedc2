package synth

import (
	"fmt"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/effects"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// UpdatePatchLive applies p to the running graph without rebuilding it.
// It returns false, changing nothing, when p needs different nodes: a
// different effects structure or a different filter rolloff. Only the
// parameters that differ from the current patch are written.
func (e *Engine) UpdatePatchLive(p *patch.Patch) bool {
	if e.disposed || p == nil {
		return false
	}
	if !patch.EffectsStructureEqual(e.patch.Effects, p.Effects) {
		return false
	}
	if e.patch.Filter.Rolloff != p.Filter.Rolloff {
		return false
	}
	e.applyLive(p.Clone())
	return true
}

// applyLive diffs np against the current patch and writes the changes.
// np must be structurally compatible and owned by the engine.
func (e *Engine) applyLive(np *patch.Patch) {
	old := e.patch

	for i := range 2 {
		if *old.Oscillator(i) != *np.Oscillator(i) {
			e.pool.UpdateOscillator(i, *np.Oscillator(i))
		}
	}
	if old.OscMix != np.OscMix {
		e.pool.SetOscMix(np.OscMix)
	}

	cutoffChanged := old.Filter.Cutoff != np.Filter.Cutoff
	if old.Filter != np.Filter {
		e.pool.UpdateFilter(np.Filter)
	}
	if cutoffChanged {
		for _, s := range e.cutoffShapers {
			s.SetCurve(cutoffCurve(np.Filter.Cutoff))
		}
	}
	if old.AmpEnvelope != np.AmpEnvelope {
		e.pool.UpdateAmpEnvelope(np.AmpEnvelope)
	}
	if old.FilterEnvelope != np.FilterEnvelope || cutoffChanged {
		e.pool.UpdateFilterEnvelope(np.FilterEnvelope)
	}
	if old.Glide != np.Glide {
		e.pool.SetGlide(np.Glide)
	}
	if old.MasterVolume != np.MasterVolume {
		e.master.Gain.RampTo(np.MasterVolume, masterRampTime)
	}

	lfoToggled := false
	for i := range 2 {
		was, now := *old.ModMatrix.LFO(i), *np.ModMatrix.LFO(i)
		if was.Enabled != now.Enabled {
			lfoToggled = true
		}
		if was != now {
			e.mod.UpdateLFO(i, now)
		}
		if *old.ModMatrix.Envelope(i) != *np.ModMatrix.Envelope(i) {
			e.mod.UpdateEnvelope(i, *np.ModMatrix.Envelope(i))
		}
	}

	oldActive, newActive := effects.Active(old.Effects), effects.Active(np.Effects)
	for i, fx := range e.effects.Nodes() {
		if i >= len(oldActive) || i >= len(newActive) {
			break
		}
		if !patch.EffectEqual(oldActive[i], newActive[i]) {
			effects.ApplyParams(fx, newActive[i], e.log.With("effects"))
		}
	}

	routingsChanged := !patch.RoutingsEqual(old.ModMatrix.Routings, np.ModMatrix.Routings)
	e.patch = np
	if lfoToggled || routingsChanged {
		e.reapplyRoutings()
	}
}

// RebuildVoices applies p when it differs from the current patch only in
// ways the voices cannot follow live, such as the filter rolloff. The
// voice set is replaced, everything else is updated in place. Sounding
// notes ring out on the old voices together with the auxiliary envelopes.
// If the new voices cannot be built nothing changes.
func (e *Engine) RebuildVoices(p *patch.Patch) error {
	if e.disposed {
		return fmt.Errorf("synth: rebuild voices: %w", audio.ErrDisposed)
	}
	if p == nil || !patch.EffectsStructureEqual(e.patch.Effects, p.Effects) {
		return fmt.Errorf("synth: rebuild voices: %w", audio.ErrNotLiveEditable)
	}

	np := p.Clone()
	if err := e.pool.Rebuild(np); err != nil {
		return fmt.Errorf("synth: rebuild voices: %w", err)
	}
	clear(e.sustained)
	e.mod.TriggerRelease(e.ctx.Now())

	// the new voices already follow np; this brings the rest of the graph along
	staged := np.Clone()
	staged.Filter.Rolloff = e.patch.Filter.Rolloff
	e.applyLive(staged)

	e.patch = np
	e.reapplyRoutings()
	return nil
}

// ApplyPatch applies p in the cheapest way that reaches it: a live update,
// a voice rebuild when only the rolloff changed, or a full rebuild.
func (e *Engine) ApplyPatch(p *patch.Patch) error {
	if e.UpdatePatchLive(p) {
		return nil
	}
	if p != nil && patch.EffectsStructureEqual(e.patch.Effects, p.Effects) {
		return e.RebuildVoices(p)
	}
	return e.UpdatePatch(p)
}
