package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
)

// Oversample selects the distortion oversampling factor.
type Oversample string

const (
	OversampleNone Oversample = "none"
	Oversample2x   Oversample = "2x"
	Oversample4x   Oversample = "4x"
)

func (o Oversample) factor() int {
	switch o {
	case Oversample2x:
		return 2
	case Oversample4x:
		return 4
	case OversampleNone:
		return 1
	}
	return 0
}

// Distortion is a tanh overdrive.
type Distortion struct {
	*wetDry

	amount     float64
	oversample Oversample
	shapers    [2]*effects.Distortion
	prev       [2]float32
}

// distortionMaxDrive is the shaper drive at amount 1.
const distortionMaxDrive = 20

// NewDistortion creates a distortion with amount 0..1.
func NewDistortion(ctx *Context, amount float64) *Distortion {
	d := &Distortion{wetDry: newWetDry(ctx, "Distortion", 1), oversample: OversampleNone}
	for ch := range d.shapers {
		s, err := effects.NewDistortion(ctx.sampleRate)
		must(err)
		must(s.SetMode(effects.DistortionModeTanh))
		d.shapers[ch] = s
	}
	d.SetDistortion(amount)
	d.fx = d.render
	return d
}

// SetDistortion sets the drive amount, 0..1.
func (d *Distortion) SetDistortion(amount float64) {
	d.amount = clamp01(amount)
	for _, s := range d.shapers {
		must(s.SetDrive(1 + d.amount*(distortionMaxDrive-1)))
	}
}

// Distortion returns the drive amount.
func (d *Distortion) Distortion() float64 {
	return d.amount
}

// SetOversample sets the oversampling factor.
func (d *Distortion) SetOversample(o Oversample) error {
	if o.factor() == 0 {
		return fmt.Errorf("audio: distortion oversample %q: %w", o, ErrUnsupported)
	}
	d.oversample = o
	return nil
}

// Oversample returns the oversampling factor.
func (d *Distortion) Oversample() Oversample {
	return d.oversample
}

func (d *Distortion) render(in, wet block, n int) {
	factor := d.oversample.factor()
	for ch := range wet {
		shaper := d.shapers[ch]
		for i := 0; i < n; i++ {
			x := in[ch][i]
			if factor == 1 {
				wet[ch][i] = float32(shaper.ProcessSample(float64(x)))
				continue
			}
			// linear upsample, shape, average back down
			var acc float64
			for s := 1; s <= factor; s++ {
				t := float32(s) / float32(factor)
				acc += shaper.ProcessSample(float64(d.prev[ch] + (x-d.prev[ch])*t))
			}
			d.prev[ch] = x
			wet[ch][i] = float32(acc / float64(factor))
		}
	}
}

// BitCrusher reduces the bit depth of its input.
type BitCrusher struct {
	*wetDry
	Bits *Param

	bits     float64
	crushers stereoPair[*effects.BitCrusher]
}

// NewBitCrusher creates a bit crusher with 1..16 bits.
func NewBitCrusher(ctx *Context, bits float64) *BitCrusher {
	b := &BitCrusher{wetDry: newWetDry(ctx, "BitCrusher", 1)}
	b.Bits = b.newParam("bits", UnitsNumber, bits, 1, 16)
	for ch := range b.crushers {
		c, err := effects.NewBitCrusher(ctx.sampleRate)
		must(err)
		b.crushers[ch] = c
	}
	b.setBits(b.Bits.Value())
	b.fx = b.render
	return b
}

func (b *BitCrusher) setBits(bits float64) {
	if bits == b.bits {
		return
	}
	b.bits = bits
	for _, c := range b.crushers {
		must(c.SetBitDepth(bits))
	}
}

func (b *BitCrusher) render(in, wet block, n int) {
	bits := b.Bits.fill(n)
	for i := 0; i < n; i++ {
		b.setBits(float64(bits[i]))
		for ch, c := range b.crushers {
			wet[ch][i] = float32(c.ProcessSample(float64(in[ch][i])))
		}
	}
}

// Compressor limits.
const (
	compressorMaxKnee    = 24
	compressorMinAttack  = 0.0001
	compressorMaxAttack  = 1
	compressorMinRelease = 0.001
	compressorMaxRelease = 5
)

// Compressor is a feed-forward soft-knee compressor with linked stereo
// detection: the louder channel drives one detector and the resulting gain
// is applied to both. It has no dry/wet control.
type Compressor struct {
	*node
	Threshold *Param
	Ratio     *Param

	attack    float64
	release   float64
	knee      float64
	threshold float64
	ratio     float64
	detector  *dynamics.Compressor
	gr        float64
}

// CompressorOptions configures a Compressor.
type CompressorOptions struct {
	Threshold float64
	Ratio     float64
	Attack    float64
	Release   float64
	Knee      float64
}

// NewCompressor creates a compressor.
func NewCompressor(ctx *Context, opts CompressorOptions) *Compressor {
	if opts.Ratio < 1 {
		opts.Ratio = 12
	}
	if opts.Attack <= 0 {
		opts.Attack = 0.003
	}
	if opts.Release <= 0 {
		opts.Release = 0.25
	}
	det, err := dynamics.NewCompressor(ctx.sampleRate)
	must(err)
	must(det.SetMakeupGain(0))
	c := &Compressor{
		node:      newNode(ctx, "Compressor", 1),
		threshold: math.NaN(),
		ratio:     math.NaN(),
		detector:  det,
	}
	c.Threshold = c.newParam("threshold", UnitsNumber, opts.Threshold, -100, 0)
	c.Ratio = c.newParam("ratio", UnitsNumber, opts.Ratio, 1, 20)
	c.SetAttack(opts.Attack)
	c.SetRelease(opts.Release)
	c.SetKnee(opts.Knee)
	c.setCurve(c.Threshold.Value(), c.Ratio.Value())
	c.process = c.render
	return c
}

// SetAttack sets the attack time in seconds.
func (c *Compressor) SetAttack(seconds float64) {
	c.attack = math.Max(seconds, 0)
	ms := math.Min(math.Max(c.attack, compressorMinAttack), compressorMaxAttack) * 1000
	must(c.detector.SetAttack(ms))
}

// Attack returns the attack time in seconds.
func (c *Compressor) Attack() float64 {
	return c.attack
}

// SetRelease sets the release time in seconds.
func (c *Compressor) SetRelease(seconds float64) {
	c.release = math.Max(seconds, 0)
	ms := math.Min(math.Max(c.release, compressorMinRelease), compressorMaxRelease) * 1000
	must(c.detector.SetRelease(ms))
}

// Release returns the release time in seconds.
func (c *Compressor) Release() float64 {
	return c.release
}

// SetKnee sets the soft knee width in dB, at most 24.
func (c *Compressor) SetKnee(db float64) {
	c.knee = math.Max(0, math.Min(db, compressorMaxKnee))
	must(c.detector.SetKnee(c.knee))
}

// Knee returns the knee width in dB.
func (c *Compressor) Knee() float64 {
	return c.knee
}

// GainReduction returns the most recent gain reduction in dB.
func (c *Compressor) GainReduction() float64 {
	return c.gr
}

func (c *Compressor) setCurve(threshold, ratio float64) {
	if threshold != c.threshold {
		c.threshold = threshold
		must(c.detector.SetThreshold(threshold))
	}
	if ratio != c.ratio {
		c.ratio = ratio
		must(c.detector.SetRatio(ratio))
	}
}

// reduction returns the static gain reduction in dB for a detector level
// under the current curve.
func (c *Compressor) reduction(levelDB float64) float64 {
	return levelDB - GainToDB(c.detector.CalculateOutputLevel(DBToGain(levelDB)))
}

func (c *Compressor) render(out block, n int) {
	in := c.input(0, n)
	th := c.Threshold.fill(n)
	ratio := c.Ratio.fill(n)
	for i := 0; i < n; i++ {
		c.setCurve(float64(th[i]), float64(ratio[i]))
		peak := math.Max(math.Abs(float64(in[0][i])), math.Abs(float64(in[1][i])))
		y := c.detector.ProcessSample(peak)
		g := 1.0
		if peak > 0 {
			g = y / peak
		}
		c.gr = -GainToDB(g)
		out[0][i] = in[0][i] * float32(g)
		out[1][i] = in[1][i] * float32(g)
	}
}
