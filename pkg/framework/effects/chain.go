package effects

import (
	"errors"
	"fmt"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// Chain is a serial effects chain. Slot i feeds slot i+1.
type Chain struct {
	name  string
	slots []Effect
}

// NewChain creates an empty chain.
func NewChain(name string) *Chain {
	return &Chain{name: name, slots: make([]Effect, 0)}
}

// Add appends e to the chain, connecting the previous slot into it.
func (c *Chain) Add(e Effect) error {
	if e == nil {
		return fmt.Errorf("effects: %s: nil effect", c.name)
	}
	if last := c.Last(); last != nil {
		if err := last.Connect(e.Input()); err != nil {
			return fmt.Errorf("effects: %s: connect %s to %s: %w", c.name, last.Type(), e.Type(), err)
		}
	}
	c.slots = append(c.slots, e)
	return nil
}

// Nodes returns the slots in signal order.
func (c *Chain) Nodes() []Effect {
	out := make([]Effect, len(c.slots))
	copy(out, c.slots)
	return out
}

// Len returns the number of slots.
func (c *Chain) Len() int {
	return len(c.slots)
}

// IsEmpty reports whether the chain has no slots.
func (c *Chain) IsEmpty() bool {
	return len(c.slots) == 0
}

// First returns the first slot, or nil for an empty chain.
func (c *Chain) First() Effect {
	if len(c.slots) == 0 {
		return nil
	}
	return c.slots[0]
}

// Last returns the last slot, or nil for an empty chain.
func (c *Chain) Last() Effect {
	if len(c.slots) == 0 {
		return nil
	}
	return c.slots[len(c.slots)-1]
}

// Input returns where upstream audio should connect, or nil when empty.
func (c *Chain) Input() audio.Input {
	if first := c.First(); first != nil {
		return first.Input()
	}
	return nil
}

// ConnectTo routes the last slot into dst. An empty chain does nothing.
func (c *Chain) ConnectTo(dst audio.Input) error {
	last := c.Last()
	if last == nil {
		return nil
	}
	return last.Connect(dst)
}

// Dispose disconnects every slot, then disposes them.
func (c *Chain) Dispose() error {
	var errs []error
	for _, e := range c.slots {
		if !e.Disposed() {
			errs = append(errs, e.Disconnect())
		}
	}
	for _, e := range c.slots {
		if !e.Disposed() {
			errs = append(errs, e.Dispose())
		}
	}
	c.slots = c.slots[:0]
	return errors.Join(errs...)
}

// Build creates the chain for cfgs. Disabled slots are skipped, unknown
// types are logged and skipped.
func Build(ctx *audio.Context, cfgs []patch.EffectConfig, log *debug.Logger) (*Chain, error) {
	if log == nil {
		log = debug.Discard()
	}
	chain := NewChain("master")
	for i, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		e, err := New(ctx, cfg, log)
		if err != nil {
			if errors.Is(err, audio.ErrUnsupported) {
				log.Warn("effect %d: %v", i, err)
				continue
			}
			_ = chain.Dispose()
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		if err := chain.Add(e); err != nil {
			_ = e.Dispose()
			_ = chain.Dispose()
			return nil, err
		}
	}
	log.Debug("built effects chain with %d slots", chain.Len())
	return chain, nil
}

// Active returns the entries Build materializes, in chain order: enabled
// entries of a known type.
func Active(cfgs []patch.EffectConfig) []patch.EffectConfig {
	out := make([]patch.EffectConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Enabled && cfg.Type.Known() {
			out = append(out, cfg)
		}
	}
	return out
}

// New creates one effect from cfg with its type-specific params applied.
func New(ctx *audio.Context, cfg patch.EffectConfig, log *debug.Logger) (Effect, error) {
	var e Effect
	switch cfg.Type {
	case patch.EffectChorus:
		e = NewNodeEffect(cfg.Type, audio.NewChorus(ctx,
			cfg.Float("frequency", 1.5), cfg.Float("delayTime", 3.5), cfg.Float("depth", 0.7)))
	case patch.EffectReverb:
		e = NewNodeEffect(cfg.Type, audio.NewReverb(ctx,
			cfg.Float("decay", 1.5), cfg.Float("preDelay", 0.01)))
	case patch.EffectDelay:
		e = NewNodeEffect(cfg.Type, audio.NewFeedbackDelay(ctx,
			cfg.Float("delayTime", 0.25), cfg.Float("feedback", 0.5)))
	case patch.EffectPingPong:
		e = NewNodeEffect(cfg.Type, audio.NewPingPongDelay(ctx,
			cfg.Float("delayTime", 0.25), cfg.Float("feedback", 0.5)))
	case patch.EffectDistortion:
		e = NewNodeEffect(cfg.Type, audio.NewDistortion(ctx, cfg.Float("distortion", 0.4)))
	case patch.EffectBitCrusher:
		e = NewNodeEffect(cfg.Type, audio.NewBitCrusher(ctx, cfg.Float("bits", 4)))
	case patch.EffectCompressor:
		c, err := NewCompressorFX(ctx, audio.CompressorOptions{
			Threshold: cfg.Float("threshold", -24),
			Ratio:     cfg.Float("ratio", 12),
			Attack:    cfg.Float("attack", 0.003),
			Release:   cfg.Float("release", 0.25),
			Knee:      cfg.Float("knee", 30),
		}, cfg.Wet)
		if err != nil {
			return nil, err
		}
		e = c
	case patch.EffectPhaser:
		e = NewNodeEffect(cfg.Type, audio.NewPhaser(ctx,
			cfg.Float("frequency", 0.5), cfg.Float("octaves", 3), cfg.Float("baseFrequency", 350)))
	case patch.EffectTremolo:
		e = NewNodeEffect(cfg.Type, audio.NewTremolo(ctx, cfg.Float("frequency", 10), cfg.Float("depth", 0.5)))
	case patch.EffectVibrato:
		e = NewNodeEffect(cfg.Type, audio.NewVibrato(ctx, cfg.Float("frequency", 5), cfg.Float("depth", 0.1)))
	case patch.EffectAutoFilter:
		e = NewNodeEffect(cfg.Type, audio.NewAutoFilter(ctx,
			cfg.Float("frequency", 1), cfg.Float("baseFrequency", 200), cfg.Float("octaves", 2.6)))
	case patch.EffectAutoPanner:
		e = NewNodeEffect(cfg.Type, audio.NewAutoPanner(ctx, cfg.Float("frequency", 1)))
	case patch.EffectAutoWah:
		e = NewNodeEffect(cfg.Type, audio.NewAutoWah(ctx,
			cfg.Float("baseFrequency", 100), cfg.Float("octaves", 6), cfg.Float("sensitivity", 0)))
	default:
		return nil, fmt.Errorf("effects: type %q: %w", cfg.Type, audio.ErrUnsupported)
	}
	ApplyParams(e, cfg, log)
	return e, nil
}
