package effects

import (
	"errors"
	"math"
	"testing"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/patch"
)

const testSampleRate = 48000

func TestBuildChain(t *testing.T) {
	t.Run("SkipsDisabled", func(t *testing.T) {
		ctx := audio.NewContext(testSampleRate)
		chain, err := Build(ctx, patch.Default().Effects, debug.Discard())
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if chain.Len() != 1 {
			t.Fatalf("Expected 1 slot, got %d", chain.Len())
		}
		if chain.First().Type() != patch.EffectReverb {
			t.Errorf("Expected reverb, got %s", chain.First().Type())
		}
		if chain.First() != chain.Last() {
			t.Error("Single slot chain should have First == Last")
		}
	})

	t.Run("SerialOrder", func(t *testing.T) {
		ctx := audio.NewContext(testSampleRate)
		cfgs := []patch.EffectConfig{
			{Type: patch.EffectChorus, Enabled: true, Wet: 0.3},
			{Type: patch.EffectReverb, Enabled: true, Wet: 0.2},
			{Type: patch.EffectCompressor, Enabled: true, Wet: 1},
		}
		chain, err := Build(ctx, cfgs, nil)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		nodes := chain.Nodes()
		if len(nodes) != 3 {
			t.Fatalf("Expected 3 slots, got %d", len(nodes))
		}
		chorus := nodes[0].(*NodeEffect).Node()
		reverb := nodes[1].(*NodeEffect).Node()
		if !chorus.IsConnectedTo(reverb) {
			t.Error("Chorus should feed reverb")
		}
		if !reverb.IsConnectedTo(nodes[2].Input()) {
			t.Error("Reverb should feed the compressor input")
		}
		if chain.Input() != nodes[0].Input() {
			t.Error("Chain input should be the first slot")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		ctx := audio.NewContext(testSampleRate)
		chain, err := Build(ctx, nil, nil)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if !chain.IsEmpty() || chain.First() != nil || chain.Last() != nil || chain.Input() != nil {
			t.Error("Empty chain should have no slots")
		}
		if err := chain.ConnectTo(ctx.Destination()); err != nil {
			t.Errorf("ConnectTo on empty chain should be a no-op, got %v", err)
		}
	})

	t.Run("UnknownTypeSkipped", func(t *testing.T) {
		ctx := audio.NewContext(testSampleRate)
		cfgs := []patch.EffectConfig{
			{Type: "flanger", Enabled: true},
			{Type: patch.EffectDelay, Enabled: true, Wet: 0.5},
		}
		chain, err := Build(ctx, cfgs, nil)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if chain.Len() != 1 || chain.First().Type() != patch.EffectDelay {
			t.Errorf("Expected only the delay slot, got %d slots", chain.Len())
		}
	})
}

func TestNewEveryType(t *testing.T) {
	for _, typ := range patch.EffectTypes {
		t.Run(string(typ), func(t *testing.T) {
			ctx := audio.NewContext(testSampleRate)
			e, err := New(ctx, patch.EffectConfig{Type: typ, Enabled: true, Wet: 0.4}, nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if e.Type() != typ {
				t.Errorf("Expected type %s, got %s", typ, e.Type())
			}
			if math.Abs(e.WetValue()-0.4) > 1e-9 {
				t.Errorf("Expected wet 0.4, got %f", e.WetValue())
			}
			if err := e.Dispose(); err != nil {
				t.Errorf("Dispose failed: %v", err)
			}
			if !e.Disposed() {
				t.Error("Effect should report disposed")
			}
		})
	}

	if _, err := New(audio.NewContext(testSampleRate), patch.EffectConfig{Type: "flanger"}, nil); !errors.Is(err, audio.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestCompressorFX(t *testing.T) {
	ctx := audio.NewContext(testSampleRate)
	c, err := NewCompressorFX(ctx, audio.CompressorOptions{Threshold: -20, Ratio: 4}, 0.25)
	if err != nil {
		t.Fatalf("NewCompressorFX failed: %v", err)
	}

	if c.WetValue() != 0.25 || c.DryValue() != 0.75 {
		t.Errorf("Expected wet 0.25 dry 0.75, got %f %f", c.WetValue(), c.DryValue())
	}
	c.SetWet(1.5)
	if c.WetValue() != 1 || c.DryValue() != 0 {
		t.Errorf("Wet should clamp to 1, got wet %f dry %f", c.WetValue(), c.DryValue())
	}

	if err := c.Connect(ctx.Destination()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if !c.Compressor.Disposed() || !c.Disposed() {
		t.Error("Every internal node should be disposed")
	}
	if !errors.Is(c.Dispose(), audio.ErrDisposed) {
		t.Error("Second dispose should report ErrDisposed")
	}
}

func TestCompressorFXDryPassThrough(t *testing.T) {
	ctx := audio.NewContext(testSampleRate)
	c, err := NewCompressorFX(ctx, audio.CompressorOptions{Threshold: -40, Ratio: 20}, 0)
	if err != nil {
		t.Fatal(err)
	}
	src := audio.NewSignal(ctx, 0.5)
	if err := src.Connect(c.Input()); err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(ctx.Destination()); err != nil {
		t.Fatal(err)
	}

	left := make([]float32, 256)
	right := make([]float32, 256)
	ctx.Render(left, right)
	if math.Abs(float64(left[255])-0.5) > 1e-6 {
		t.Errorf("Fully dry compressor should pass input unchanged, got %f", left[255])
	}
}

func TestApplyParams(t *testing.T) {
	ctx := audio.NewContext(testSampleRate)

	t.Run("Chorus", func(t *testing.T) {
		e, _ := New(ctx, patch.EffectConfig{Type: patch.EffectChorus, Wet: 0.3}, nil)
		ApplyParams(e, patch.EffectConfig{
			Type: patch.EffectChorus,
			Wet:  0.8,
			Params: map[string]any{
				"frequency": 3.0,
				"depth":     0.2,
				"delayTime": 10,
			},
		}, nil)
		chorus := e.(*NodeEffect).Node().(*audio.Chorus)
		if chorus.Frequency.Value() != 3 || chorus.Depth() != 0.2 || chorus.DelayTime() != 10 {
			t.Errorf("Chorus params not applied: %f %f %f", chorus.Frequency.Value(), chorus.Depth(), chorus.DelayTime())
		}
		if math.Abs(e.WetValue()-0.8) > 1e-9 {
			t.Errorf("Expected wet 0.8, got %f", e.WetValue())
		}
	})

	t.Run("ReverbConstructionOnly", func(t *testing.T) {
		e, _ := New(ctx, patch.EffectConfig{Type: patch.EffectReverb, Params: map[string]any{"decay": 2.5}}, nil)
		ApplyParams(e, patch.EffectConfig{Type: patch.EffectReverb, Wet: 0.5, Params: map[string]any{"decay": 9.0}}, nil)
		reverb := e.(*NodeEffect).Node().(*audio.Reverb)
		if reverb.Decay() != 2.5 {
			t.Errorf("Decay should stay at construction value, got %f", reverb.Decay())
		}
		if math.Abs(e.WetValue()-0.5) > 1e-9 {
			t.Errorf("Wet should still apply, got %f", e.WetValue())
		}
	})

	t.Run("RejectedValueIgnored", func(t *testing.T) {
		e, _ := New(ctx, patch.EffectConfig{Type: patch.EffectDistortion, Params: map[string]any{"oversample": "2x"}}, nil)
		ApplyParams(e, patch.EffectConfig{Type: patch.EffectDistortion, Params: map[string]any{"oversample": "16x", "distortion": 0.9}}, nil)
		dist := e.(*NodeEffect).Node().(*audio.Distortion)
		if dist.Oversample() != audio.Oversample2x {
			t.Errorf("Invalid oversample should be ignored, got %q", dist.Oversample())
		}
		if dist.Distortion() != 0.9 {
			t.Errorf("Other params should still apply, got %f", dist.Distortion())
		}
	})

	t.Run("Compressor", func(t *testing.T) {
		e, _ := New(ctx, patch.EffectConfig{Type: patch.EffectCompressor, Wet: 1}, nil)
		ApplyParams(e, patch.EffectConfig{Type: patch.EffectCompressor, Wet: 0.5, Params: map[string]any{"threshold": -30, "knee": 6}}, nil)
		c := e.(*CompressorFX)
		if c.Compressor.Threshold.Value() != -30 || c.Compressor.Knee() != 6 {
			t.Errorf("Compressor params not applied: %f %f", c.Compressor.Threshold.Value(), c.Compressor.Knee())
		}
		if c.WetValue() != 0.5 || c.DryValue() != 0.5 {
			t.Errorf("Expected wet/dry 0.5/0.5, got %f/%f", c.WetValue(), c.DryValue())
		}
	})
}

func TestChainDispose(t *testing.T) {
	ctx := audio.NewContext(testSampleRate)
	cfgs := []patch.EffectConfig{
		{Type: patch.EffectChorus, Enabled: true},
		{Type: patch.EffectCompressor, Enabled: true, Wet: 0.5},
	}
	chain, err := Build(ctx, cfgs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := chain.ConnectTo(ctx.Destination()); err != nil {
		t.Fatal(err)
	}
	nodes := chain.Nodes()
	if err := chain.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	for _, n := range nodes {
		if !n.Disposed() {
			t.Errorf("%s should be disposed", n.Type())
		}
	}
	if !chain.IsEmpty() {
		t.Error("Disposed chain should be empty")
	}
}

func TestActive(t *testing.T) {
	cfgs := []patch.EffectConfig{
		{Type: patch.EffectChorus, Enabled: false},
		{Type: "flanger", Enabled: true},
		{Type: patch.EffectReverb, Enabled: true},
		{Type: patch.EffectDelay, Enabled: true},
	}
	active := Active(cfgs)
	if len(active) != 2 || active[0].Type != patch.EffectReverb || active[1].Type != patch.EffectDelay {
		t.Errorf("Unexpected active slots %v", active)
	}

	chain, err := Build(audio.NewContext(testSampleRate), cfgs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if chain.Len() != len(active) {
		t.Errorf("Build should materialize exactly the active slots, got %d", chain.Len())
	}
}
