package param

import (
	"math"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		input    string
		expected Path
		ok       bool
	}{
		{"oscMix", OscMix(), true},
		{"masterVolume", MasterVolume(), true},
		{"modMatrix.lfo1.frequency", LFO(0, LFOFrequency), true},
		{"modMatrix.lfo2.amplitude", LFO(1, LFOAmplitude), true},
		{"lfo2.phase", LFO(1, LFOPhase), true},
		{"modMatrix.lfo3.frequency", Path{}, false},
		{"modMatrix.lfo1.waveform", Path{}, false},
		{"filter.cutoff", Path{}, false},
		{"", Path{}, false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			p, ok := ParsePath(test.input)
			if ok != test.ok {
				t.Fatalf("ParsePath(%q) ok = %v, want %v", test.input, ok, test.ok)
			}
			if p != test.expected {
				t.Errorf("ParsePath(%q) = %+v, want %+v", test.input, p, test.expected)
			}
		})
	}
}

func TestPathRoundTrip(t *testing.T) {
	paths := Paths()
	if len(paths) != 8 {
		t.Fatalf("Expected 8 paths, got %d", len(paths))
	}
	for _, p := range paths {
		if !p.Valid() {
			t.Errorf("Path %v should be valid", p)
		}
		parsed, ok := ParsePath(p.String())
		if !ok || parsed != p {
			t.Errorf("Round trip of %q failed: %+v", p.String(), parsed)
		}
	}

	if (Path{}).Valid() {
		t.Error("Zero path should be invalid")
	}
	if LFO(2, LFOFrequency).Valid() {
		t.Error("LFO index 2 should be invalid")
	}
}

func TestDescribe(t *testing.T) {
	d, ok := Describe(LFO(1, LFOFrequency))
	if !ok {
		t.Fatal("Expected descriptor")
	}
	if d.Name != "LFO 2 Rate" {
		t.Errorf("Expected name 'LFO 2 Rate', got %q", d.Name)
	}
	if got := d.Clamp(100); got != d.Max {
		t.Errorf("Expected clamp to %f, got %f", d.Max, got)
	}
	if got := d.Format(2); got != "2.00 Hz" {
		t.Errorf("Expected '2.00 Hz', got %q", got)
	}
	if got, err := d.Parse("1.5 kHz"); err != nil || got != d.Max {
		t.Errorf("Expected parse clamped to max, got %f, %v", got, err)
	}

	mix, _ := Describe(OscMix())
	if got := mix.Format(0.25); got != "25%" {
		t.Errorf("Expected '25%%', got %q", got)
	}
	if got, err := mix.Parse("40%"); err != nil || math.Abs(got-0.4) > 1e-9 {
		t.Errorf("Expected 0.4, got %f, %v", got, err)
	}
	if got := mix.Normalize(0.5); got != 0.5 {
		t.Errorf("Expected 0.5, got %f", got)
	}

	vol, _ := Describe(MasterVolume())
	if got := vol.Format(1); got != "0.0 dB" {
		t.Errorf("Expected '0.0 dB', got %q", got)
	}
	if got := vol.Clamp(math.NaN()); got != vol.DefaultValue {
		t.Errorf("NaN should clamp to default, got %f", got)
	}

	if _, ok := Describe(Path{}); ok {
		t.Error("Invalid path should have no descriptor")
	}
}

func TestFormatters(t *testing.T) {
	t.Run("Frequency", func(t *testing.T) {
		tests := []struct {
			input    string
			expected float64
		}{
			{"440", 440},
			{"440 Hz", 440},
			{"2.5kHz", 2500},
			{"1 khz", 1000},
		}
		for _, test := range tests {
			got, err := FrequencyParser(test.input)
			if err != nil || got != test.expected {
				t.Errorf("FrequencyParser(%q) = %f, %v; want %f", test.input, got, err, test.expected)
			}
		}
		if got := FrequencyFormatter(2500); got != "2.50 kHz" {
			t.Errorf("Expected '2.50 kHz', got %q", got)
		}
	})

	t.Run("Notes", func(t *testing.T) {
		tests := []struct {
			input    string
			expected int
		}{
			{"C4", 60},
			{"A4", 69},
			{"c#3", 49},
			{"Eb2", 39},
			{"C-1", 0},
		}
		for _, test := range tests {
			got, err := NoteParser(test.input)
			if err != nil || got != test.expected {
				t.Errorf("NoteParser(%q) = %d, %v; want %d", test.input, got, err, test.expected)
			}
		}
		for _, bad := range []string{"H4", "C", "4", "G9x", "G10"} {
			if _, err := NoteParser(bad); err == nil {
				t.Errorf("NoteParser(%q) should fail", bad)
			}
		}
		if got := NoteFormatter(61); got != "C#4" {
			t.Errorf("Expected C#4, got %q", got)
		}
	})

	t.Run("Degrees", func(t *testing.T) {
		if got, err := DegreesParser("90°"); err != nil || got != 90 {
			t.Errorf("Expected 90, got %f, %v", got, err)
		}
		if got := DegreesFormatter(180); got != "180°" {
			t.Errorf("Expected 180°, got %q", got)
		}
	})
}
