// Package effects builds the master effects chain from patch effect slots
// and applies live parameter edits to it.
package effects

import (
	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// Effect is one slot of the chain. Upstream audio connects to Input and the
// slot's output is routed with Connect.
type Effect interface {
	Type() patch.EffectType
	Input() audio.Input
	Connect(dst audio.Input) error
	Disconnect(dsts ...audio.Input) error
	SetWet(wet float64)
	WetValue() float64
	Dispose() error
	Disposed() bool
}

// NodeEffect adapts a single audio effect node to Effect.
type NodeEffect struct {
	audio.Effect
	typ patch.EffectType
}

// NewNodeEffect wraps node as a slot of type typ.
func NewNodeEffect(typ patch.EffectType, node audio.Effect) *NodeEffect {
	return &NodeEffect{Effect: node, typ: typ}
}

// Type returns the slot type.
func (e *NodeEffect) Type() patch.EffectType { return e.typ }

// Input returns the node itself.
func (e *NodeEffect) Input() audio.Input { return e.Effect }

// Node returns the wrapped audio node.
func (e *NodeEffect) Node() audio.Effect { return e.Effect }
