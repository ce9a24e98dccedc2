package audio

import "testing"

func TestParamClamp(t *testing.T) {
	ctx := NewContext(testSampleRate)
	pan := NewPanner(ctx, 0)

	pan.Pan.SetValue(5)
	if pan.Pan.Value() != 1 {
		t.Errorf("Expected value clamped to 1, got %f", pan.Pan.Value())
	}
	pan.Pan.SetValue(-5)
	if pan.Pan.Value() != -1 {
		t.Errorf("Expected value clamped to -1, got %f", pan.Pan.Value())
	}
}

func TestParamRamps(t *testing.T) {
	tests := []struct {
		name string
		ramp func(p *Param)
		want float64
	}{
		{"linear", func(p *Param) { p.LinearRampTo(300, 1) }, 200},
		{"exponential", func(p *Param) { p.ExponentialRampTo(400, 1) }, 200},
		{"frequency units ramp exponentially", func(p *Param) { p.RampTo(400, 1) }, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext(testSampleRate)
			osc, err := NewOscillator(ctx, 100, WaveSine)
			if err != nil {
				t.Fatal(err)
			}
			tt.ramp(osc.Frequency)
			ctx.Advance(0.5)
			if got := osc.Frequency.Value(); !near(got, tt.want, 1e-3) {
				t.Errorf("Expected %f halfway through the ramp, got %f", tt.want, got)
			}
			ctx.Advance(1)
			want := 300.0
			if tt.name != "linear" {
				want = 400
			}
			if got := osc.Frequency.Value(); !near(got, want, 1e-9) {
				t.Errorf("Expected ramp to end at %f, got %f", want, got)
			}
		})
	}
}

func TestParamRampNonFrequencyIsLinear(t *testing.T) {
	ctx := NewContext(testSampleRate)
	g := NewGain(ctx, 0)
	g.Gain.RampTo(1, 0.1)
	ctx.Advance(0.05)
	if got := g.Gain.Value(); !near(got, 0.5, 1e-3) {
		t.Errorf("Expected 0.5, got %f", got)
	}
}

func TestParamSetValueCancelsRamp(t *testing.T) {
	ctx := NewContext(testSampleRate)
	g := NewGain(ctx, 0)
	g.Gain.LinearRampTo(1, 1)
	ctx.Advance(0.1)
	g.Gain.SetValue(0.25)
	ctx.Advance(0.5)
	if got := g.Gain.Value(); got != 0.25 {
		t.Errorf("Expected SetValue to cancel the ramp, got %f", got)
	}
}

func TestParamScheduledValues(t *testing.T) {
	ctx := NewContext(testSampleRate)
	g := NewGain(ctx, 1)
	g.Gain.SetValueAtTime(0.5, 0.1)
	g.Gain.SetValueAtTime(0.25, 0.2)

	ctx.Advance(0.15)
	if got := g.Gain.Value(); got != 0.5 {
		t.Errorf("Expected 0.5 after first step, got %f", got)
	}

	g.Gain.CancelScheduledValues(ctx.Now())
	ctx.Advance(0.1)
	if got := g.Gain.Value(); got != 0.5 {
		t.Errorf("Expected cancelled step to be dropped, got %f", got)
	}
}

func TestParamSumsConnectedSignals(t *testing.T) {
	ctx := NewContext(testSampleRate)
	mod := NewSignal(ctx, 0.25)
	src := NewSignal(ctx, 1)
	g := NewGain(ctx, 1)
	_ = src.Connect(g)
	_ = g.Connect(ctx.Destination())
	_ = mod.Connect(g.Gain)

	if g.Gain.Inputs() != 1 {
		t.Fatalf("Expected 1 input, got %d", g.Gain.Inputs())
	}
	left, _ := render(ctx, 8)
	if !near(float64(left[0]), 1.25, 1e-6) {
		t.Errorf("Expected output 1.25, got %f", left[0])
	}
	if g.Gain.Value() != 1 {
		t.Errorf("Value must exclude connected signals, got %f", g.Gain.Value())
	}
	if !near(g.Gain.Current(), 1.25, 1e-6) {
		t.Errorf("Current must include connected signals, got %f", g.Gain.Current())
	}

	_ = mod.Disconnect(g.Gain)
	render(ctx, 8)
	if g.Gain.Current() != 1 {
		t.Errorf("Expected 1 after disconnect, got %f", g.Gain.Current())
	}
}
