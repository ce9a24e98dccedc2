package effects

import (
	"errors"
	"fmt"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// CompressorFX gives the compressor a dry/wet control. The input splits into
// a dry gain of (1-wet) and a compressor followed by a wet gain of wet; both
// sum into the output.
type CompressorFX struct {
	splitter   *audio.Gain
	dry        *audio.Gain
	Compressor *audio.Compressor
	wet        *audio.Gain
	output     *audio.Gain
}

// NewCompressorFX builds and wires the composite.
func NewCompressorFX(ctx *audio.Context, opts audio.CompressorOptions, wet float64) (*CompressorFX, error) {
	wet = max(0, min(1, wet))
	c := &CompressorFX{
		splitter:   audio.NewGain(ctx, 1),
		dry:        audio.NewGain(ctx, 1-wet),
		Compressor: audio.NewCompressor(ctx, opts),
		wet:        audio.NewGain(ctx, wet),
		output:     audio.NewGain(ctx, 1),
	}
	err := errors.Join(
		c.splitter.Connect(c.dry),
		c.dry.Connect(c.output),
		c.splitter.Connect(c.Compressor),
		c.Compressor.Connect(c.wet),
		c.wet.Connect(c.output),
	)
	if err != nil {
		_ = c.Dispose()
		return nil, fmt.Errorf("effects: compressor: %w", err)
	}
	return c, nil
}

// Type returns EffectCompressor.
func (c *CompressorFX) Type() patch.EffectType { return patch.EffectCompressor }

// Input returns the splitter.
func (c *CompressorFX) Input() audio.Input { return c.splitter }

// Connect routes the composite output into dst.
func (c *CompressorFX) Connect(dst audio.Input) error { return c.output.Connect(dst) }

// Disconnect disconnects the composite output.
func (c *CompressorFX) Disconnect(dsts ...audio.Input) error { return c.output.Disconnect(dsts...) }

// SetWet balances the compressed and dry paths.
func (c *CompressorFX) SetWet(wet float64) {
	wet = max(0, min(1, wet))
	c.dry.Gain.SetValue(1 - wet)
	c.wet.Gain.SetValue(wet)
}

// WetValue returns the wet gain.
func (c *CompressorFX) WetValue() float64 { return c.wet.Gain.Value() }

// DryValue returns the dry gain.
func (c *CompressorFX) DryValue() float64 { return c.dry.Gain.Value() }

// Disposed reports whether the composite has been torn down.
func (c *CompressorFX) Disposed() bool { return c.output.Disposed() }

// Dispose disconnects and frees every internal node.
func (c *CompressorFX) Dispose() error {
	if c.Disposed() {
		return fmt.Errorf("effects: compressor: %w", audio.ErrDisposed)
	}
	nodes := []audio.Node{c.splitter, c.dry, c.Compressor, c.wet, c.output}
	var errs []error
	for _, n := range nodes {
		errs = append(errs, n.Disconnect())
	}
	for _, n := range nodes {
		if !n.Disposed() {
			errs = append(errs, n.Dispose())
		}
	}
	return errors.Join(errs...)
}
