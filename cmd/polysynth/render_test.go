package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/patch"
	"github.com/justyntemme/polysynth/pkg/score"
	"github.com/justyntemme/polysynth/pkg/synth"
)

const testSampleRate = 48000

func newTestEngine(t *testing.T) (*audio.Context, *synth.Engine) {
	t.Helper()
	ctx := audio.NewContext(testSampleRate)
	e, err := synth.New(ctx, patch.Default(), synth.WithLogger(debug.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Dispose)
	return ctx, e
}

func TestRenderScore(t *testing.T) {
	ctx, e := newTestEngine(t)
	sc, err := score.Run(`
		wait(0.5)
		note("A4", 1)
		param("masterVolume", 0.5)
	`, 120)
	if err != nil {
		t.Fatal(err)
	}

	left, right, levels := renderScore(ctx, e, sc, 1.5)
	if len(left) != int(1.5*testSampleRate) || len(right) != len(left) {
		t.Fatalf("Expected %d frames, got %d", int(1.5*testSampleRate), len(left))
	}

	onset := int(0.25 * testSampleRate)
	for i := range onset {
		if left[i] != 0 {
			t.Fatalf("Expected silence before the first note, got %f at frame %d", left[i], i)
		}
	}
	if levels.Silent || levels.Peak == 0 {
		t.Errorf("Expected sound, got %s", levels)
	}
	if levels.NaNCount != 0 {
		t.Errorf("Expected no NaNs, got %d", levels.NaNCount)
	}
	if e.Patch().MasterVolume != 0.5 {
		t.Errorf("Scheduled param should have run, got %f", e.Patch().MasterVolume)
	}
	if e.Pool().ActiveVoiceCount() != 0 {
		t.Error("Note should have been released")
	}
}

func TestDominantFrequency(t *testing.T) {
	ctx, e := newTestEngine(t)
	sc, err := score.Run(`note("A4", 2)`, 120)
	if err != nil {
		t.Fatal(err)
	}
	left, right, _ := renderScore(ctx, e, sc, 1)

	freq, err := dominantFrequency(left, right, testSampleRate)
	if err != nil {
		t.Fatalf("Analysis failed: %v", err)
	}
	if math.Abs(freq-440) > 3 {
		t.Errorf("Expected A4 near 440 Hz, got %.2f", freq)
	}

	if _, err := dominantFrequency(left[:100], right[:100], testSampleRate); !errors.Is(err, debug.ErrShortInput) {
		t.Errorf("Expected ErrShortInput, got %v", err)
	}
	silent := make([]float32, 2*analysisSize)
	if _, err := dominantFrequency(silent, silent, testSampleRate); err == nil {
		t.Error("Expected an error for silent output")
	}
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	left := []float32{0, 0.5, -0.5, 2}
	right := []float32{1, -1, 0, -2}
	if err := writeWAV(path, left, right, testSampleRate, 16); err != nil {
		t.Fatalf("writeWAV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != testSampleRate {
		t.Errorf("Unexpected format %+v", buf.Format)
	}
	want := []int{0, 32767, 16384, -32767, -16384, 0, 32767, -32767}
	if len(buf.Data) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(buf.Data))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, want[i], buf.Data[i])
		}
	}
}

func TestKeyboard(t *testing.T) {
	kb := newKeyboard()

	if a, n := kb.Press('a'); a != keyNote || n != 60 {
		t.Errorf("Expected C4 (60), got %v %d", a, n)
	}
	if _, n := kb.Press('w'); n != 61 {
		t.Errorf("Expected 61, got %d", n)
	}
	kb.Press('x')
	if _, n := kb.Press('k'); n != 84 {
		t.Errorf("Expected 84 an octave up, got %d", n)
	}
	for range 20 {
		kb.Press('z')
	}
	if kb.Octave() != -1 {
		t.Errorf("Octave should stop at -1, got %d", kb.Octave())
	}
	if a, _ := kb.Press('q'); a != keyQuit {
		t.Error("Expected quit")
	}
	if a, _ := kb.Press('!'); a != keyNone {
		t.Error("Expected unmapped key to do nothing")
	}
}
