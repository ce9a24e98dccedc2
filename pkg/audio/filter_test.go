package audio

import (
	"errors"
	"testing"
)

func TestNewFilterValidation(t *testing.T) {
	ctx := NewContext(testSampleRate)

	if _, err := NewFilter(ctx, FilterOptions{Type: Lowpass, Rolloff: -36}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for rolloff -36, got %v", err)
	}
	if _, err := NewFilter(ctx, FilterOptions{Type: "comb"}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for unknown type, got %v", err)
	}

	for _, r := range []Rolloff{Rolloff12, Rolloff24, Rolloff48, Rolloff96} {
		f, err := NewFilter(ctx, FilterOptions{Type: Lowpass, Rolloff: r})
		if err != nil {
			t.Errorf("rolloff %d: %v", r, err)
			continue
		}
		if f.Rolloff() != r {
			t.Errorf("Expected rolloff %d, got %d", r, f.Rolloff())
		}
	}
}

func TestFilterUnsupportedWrites(t *testing.T) {
	ctx := NewContext(testSampleRate)
	f, err := NewFilter(ctx, FilterOptions{Type: Lowshelf, Frequency: 500})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetQ(4); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported setting Q on a shelf, got %v", err)
	}
	if err := f.SetType("formant"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for unknown type, got %v", err)
	}
	if f.Type() != Lowshelf {
		t.Errorf("Failed SetType must keep the type, got %s", f.Type())
	}

	if err := f.SetType(Bandpass); err != nil {
		t.Fatal(err)
	}
	if err := f.SetQ(4); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if f.Q.Value() != 4 {
		t.Errorf("Expected Q 4, got %f", f.Q.Value())
	}
}

func dcThrough(t *testing.T, opts FilterOptions, bypass bool) float64 {
	t.Helper()
	ctx := NewContext(testSampleRate)
	sig := NewSignal(ctx, 0.5)
	f, err := NewFilter(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	f.SetBypass(bypass)
	_ = sig.Connect(f)
	_ = f.Connect(ctx.Destination())
	ctx.Advance(0.2)
	left, _ := render(ctx, 1)
	return float64(left[0])
}

func TestFilterResponse(t *testing.T) {
	t.Run("lowpass passes DC", func(t *testing.T) {
		if got := dcThrough(t, FilterOptions{Type: Lowpass, Frequency: 1000, Rolloff: Rolloff24}, false); !near(got, 0.5, 1e-3) {
			t.Errorf("Expected 0.5, got %f", got)
		}
	})
	t.Run("highpass blocks DC", func(t *testing.T) {
		if got := dcThrough(t, FilterOptions{Type: Highpass, Frequency: 1000}, false); !near(got, 0, 1e-3) {
			t.Errorf("Expected 0, got %f", got)
		}
	})
	t.Run("bypass", func(t *testing.T) {
		if got := dcThrough(t, FilterOptions{Type: Highpass, Frequency: 1000}, true); got != 0.5 {
			t.Errorf("Bypassed filter should pass input, got %f", got)
		}
	})
}

func TestOscillatorType(t *testing.T) {
	ctx := NewContext(testSampleRate)
	if _, err := NewOscillator(ctx, 440, "noise"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	osc, err := NewOscillator(ctx, 440, WaveSawtooth)
	if err != nil {
		t.Fatal(err)
	}
	if err := osc.SetType("pulse"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if err := osc.SetType(WaveSquare); err != nil || osc.Type() != WaveSquare {
		t.Errorf("Expected square, got %s (%v)", osc.Type(), err)
	}
}

func TestOscillatorStartStop(t *testing.T) {
	ctx := NewContext(testSampleRate)
	osc, _ := NewOscillator(ctx, 440, WaveSquare)
	_ = osc.Connect(ctx.Destination())

	left, _ := render(ctx, 32)
	if left[31] != 0 {
		t.Errorf("Unstarted oscillator should be silent, got %f", left[31])
	}

	osc.Start(ctx.Now())
	left, _ = render(ctx, 32)
	var peak float32
	for _, v := range left {
		if v > peak {
			peak = v
		}
	}
	if peak < 0.5 {
		t.Errorf("Started oscillator should sound, peak %f", peak)
	}

	osc.Stop(ctx.Now())
	left, _ = render(ctx, 32)
	if left[31] != 0 {
		t.Errorf("Stopped oscillator should be silent, got %f", left[31])
	}
}

func TestConversions(t *testing.T) {
	if got := MidiToFrequency(69); got != 440 {
		t.Errorf("MidiToFrequency(69) = %f, want 440", got)
	}
	if got := MidiToFrequency(81); !near(got, 880, 1e-9) {
		t.Errorf("MidiToFrequency(81) = %f, want 880", got)
	}
	if got := DBToGain(GainToDB(0.5)); !near(got, 0.5, 1e-12) {
		t.Errorf("dB round trip = %f, want 0.5", got)
	}
}
