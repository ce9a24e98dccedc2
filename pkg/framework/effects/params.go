package effects

import (
	"math"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/patch"
)

func floatParam(cfg patch.EffectConfig, name string, set func(float64)) {
	if v := cfg.Float(name, math.NaN()); !math.IsNaN(v) {
		set(v)
	}
}

// ApplyParams writes wet and every type-specific param present in cfg to e.
// A write the effect rejects is logged and skipped. Reverb decay and
// pre-delay are construction-only and are not written.
func ApplyParams(e Effect, cfg patch.EffectConfig, log *debug.Logger) {
	if log == nil {
		log = debug.Discard()
	}
	e.SetWet(cfg.Wet)

	if c, ok := e.(*CompressorFX); ok {
		comp := c.Compressor
		floatParam(cfg, "threshold", comp.Threshold.SetValue)
		floatParam(cfg, "ratio", comp.Ratio.SetValue)
		floatParam(cfg, "attack", comp.SetAttack)
		floatParam(cfg, "release", comp.SetRelease)
		floatParam(cfg, "knee", comp.SetKnee)
		return
	}

	n, ok := e.(*NodeEffect)
	if !ok {
		log.Debug("effect %s: no param applier", e.Type())
		return
	}
	switch fx := n.Node().(type) {
	case *audio.Chorus:
		floatParam(cfg, "frequency", fx.Frequency.SetValue)
		floatParam(cfg, "delayTime", fx.SetDelayTime)
		floatParam(cfg, "depth", fx.SetDepth)
		floatParam(cfg, "feedback", fx.Feedback.SetValue)
		floatParam(cfg, "spread", fx.SetSpread)
	case *audio.Reverb:
	case *audio.FeedbackDelay:
		floatParam(cfg, "delayTime", fx.DelayTime.SetValue)
		floatParam(cfg, "feedback", fx.Feedback.SetValue)
	case *audio.PingPongDelay:
		floatParam(cfg, "delayTime", fx.DelayTime.SetValue)
		floatParam(cfg, "feedback", fx.Feedback.SetValue)
	case *audio.Distortion:
		floatParam(cfg, "distortion", fx.SetDistortion)
		if os := cfg.String("oversample", ""); os != "" {
			log.DebugIf(fx.SetOversample(audio.Oversample(os)), "distortion oversample")
		}
	case *audio.BitCrusher:
		floatParam(cfg, "bits", fx.Bits.SetValue)
	case *audio.Phaser:
		floatParam(cfg, "frequency", fx.Frequency.SetValue)
		floatParam(cfg, "octaves", fx.SetOctaves)
		floatParam(cfg, "baseFrequency", fx.SetBaseFrequency)
		floatParam(cfg, "Q", fx.Q.SetValue)
	case *audio.Tremolo:
		floatParam(cfg, "frequency", fx.Frequency.SetValue)
		floatParam(cfg, "depth", fx.Depth.SetValue)
		floatParam(cfg, "spread", fx.SetSpread)
	case *audio.Vibrato:
		floatParam(cfg, "frequency", fx.Frequency.SetValue)
		floatParam(cfg, "depth", fx.Depth.SetValue)
	case *audio.AutoFilter:
		floatParam(cfg, "frequency", fx.Frequency.SetValue)
		floatParam(cfg, "depth", fx.Depth.SetValue)
		floatParam(cfg, "baseFrequency", fx.SetBaseFrequency)
		floatParam(cfg, "octaves", fx.SetOctaves)
		floatParam(cfg, "Q", fx.SetQ)
		if ft := cfg.String("filterType", ""); ft != "" {
			log.DebugIf(fx.SetFilterType(audio.FilterType(ft)), "autofilter type")
		}
	case *audio.AutoPanner:
		floatParam(cfg, "frequency", fx.Frequency.SetValue)
		floatParam(cfg, "depth", fx.Depth.SetValue)
	case *audio.AutoWah:
		floatParam(cfg, "baseFrequency", fx.SetBaseFrequency)
		floatParam(cfg, "octaves", fx.SetOctaves)
		floatParam(cfg, "sensitivity", fx.SetSensitivity)
		floatParam(cfg, "Q", fx.Q.SetValue)
	default:
		log.Debug("effect %s: no param applier", e.Type())
	}
}
