package synth

import (
	"fmt"
	"math"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// Routing scales. Sources are treated as centered on zero after the
// -0.5 offset, so a full-amount routing spans these ranges.
const (
	routingCenter        = -0.5
	filterFreqOctaveSpan = 4.0  // +/-2 octaves
	filterResonanceSpan  = 12.0 // +/-6 Q
	ampVolumeSpan        = 1.0  // +/-0.5 gain
)

// cutoffCurve maps an octave offset to a Hz offset from cutoff.
func cutoffCurve(cutoff float64) func(float64) float64 {
	return func(octaves float64) float64 {
		return cutoff * (math.Exp2(octaves) - 1)
	}
}

// routingKey names the registry entry for routing i.
func routingKey(r patch.ModRouting, i int) string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("%s->%s#%d", r.Source, r.Destination, i)
}

// applyModulationRoutings realizes every enabled routing of the current
// patch. Routings whose LFO source is disabled are skipped, as are reserved
// and unknown destinations. A routing that fails to connect is logged and
// its nodes are still registered for cleanup.
func (e *Engine) applyModulationRoutings() {
	for i, r := range e.patch.ModMatrix.Routings {
		if !r.Enabled || r.Amount == 0 {
			continue
		}
		if idx, ok := r.Source.LFOIndex(); ok && !e.patch.ModMatrix.LFO(idx).Enabled {
			e.log.Debug("routing %s: %s is disabled", routingKey(r, i), r.Source)
			continue
		}
		src, ok := e.mod.Source(r.Source)
		if !ok {
			continue
		}
		key := routingKey(r, i)
		nodes, err := e.connectRouting(src, r)
		if len(nodes) > 0 {
			e.mod.RegisterConnection(key, nodes...)
		}
		e.log.WarnIf(err, "routing %s", key)
	}
}

// connectRouting builds the scaling nodes between src and the routing's
// destination. It returns every node it created, even on error.
func (e *Engine) connectRouting(src audio.Node, r patch.ModRouting) ([]audio.Node, error) {
	switch r.Destination {
	case patch.DestFilterFreq:
		center := audio.NewAdd(e.ctx, routingCenter)
		octaves := audio.NewMultiply(e.ctx, filterFreqOctaveSpan*r.Amount)
		shaper := audio.NewWaveShaper(e.ctx, cutoffCurve(e.patch.Filter.Cutoff))
		nodes := []audio.Node{center, octaves, shaper}
		if err := chain(src, center, octaves, shaper); err != nil {
			return nodes, err
		}
		if err := shaper.Connect(e.pool.FilterFrequencyMod.Param()); err != nil {
			return nodes, err
		}
		e.cutoffShapers = append(e.cutoffShapers, shaper)
		e.pool.ConnectFilterMod()
		return nodes, nil

	case patch.DestFilterRes:
		center := audio.NewAdd(e.ctx, routingCenter)
		scale := audio.NewMultiply(e.ctx, filterResonanceSpan*r.Amount)
		nodes := []audio.Node{center, scale}
		if err := chain(src, center, scale); err != nil {
			return nodes, err
		}
		if err := scale.Connect(e.pool.FilterResonanceMod.Param()); err != nil {
			return nodes, err
		}
		e.pool.ConnectFilterMod()
		return nodes, nil

	case patch.DestAmpVolume:
		center := audio.NewAdd(e.ctx, routingCenter)
		scale := audio.NewMultiply(e.ctx, ampVolumeSpan*r.Amount)
		nodes := []audio.Node{center, scale}
		if err := chain(src, center, scale); err != nil {
			return nodes, err
		}
		return nodes, scale.Connect(e.master.Gain)
	}

	target, ok := e.mod.Target(r.Destination)
	if !ok {
		if r.Destination.Known() {
			e.log.Debug("routing to %s is reserved, skipped", r.Destination)
		} else {
			e.log.Warn("unknown routing destination %q", r.Destination)
		}
		return nil, nil
	}
	scale := audio.NewMultiply(e.ctx, r.Amount)
	nodes := []audio.Node{scale}
	if err := src.Connect(scale); err != nil {
		return nodes, err
	}
	return nodes, scale.Connect(target)
}

// chain connects src through nodes in series.
func chain(src audio.Node, nodes ...audio.Node) error {
	prev := src
	for _, n := range nodes {
		if err := prev.Connect(n); err != nil {
			return err
		}
		prev = n
	}
	return nil
}

// reapplyRoutings clears every routing and builds them again from the
// current patch. Filter offsets are reset first so no stale value remains.
func (e *Engine) reapplyRoutings() {
	e.pool.ResetFilterModConnection()
	e.mod.ClearConnections()
	e.cutoffShapers = nil
	e.applyModulationRoutings()
}
