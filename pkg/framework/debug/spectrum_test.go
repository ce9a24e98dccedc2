package debug

import (
	"errors"
	"math"
	"testing"
)

func sine(freq, sampleRate float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return out
}

func TestAnalyzeSpectrum(t *testing.T) {
	const sr = 48000

	t.Run("PeakFrequency", func(t *testing.T) {
		for _, freq := range []float64{110, 440, 1000, 5000} {
			s := sine(freq, sr, 8192)
			sp, err := AnalyzeSpectrum(s, s, sr, 8192)
			if err != nil {
				t.Fatal(err)
			}
			got, mag := sp.Peak()
			if math.Abs(got-freq) > 2 {
				t.Errorf("Expected peak near %.0f Hz, got %.2f", freq, got)
			}
			if mag <= 0 {
				t.Errorf("Expected positive peak magnitude, got %f", mag)
			}
		}
	})

	t.Run("BandEnergy", func(t *testing.T) {
		s := sine(440, sr, 4096)
		sp, err := AnalyzeSpectrum(s, s, sr, 4096)
		if err != nil {
			t.Fatal(err)
		}
		in := sp.BandEnergy(400, 480)
		out := sp.BandEnergy(2000, 20000)
		if in <= 1000*out {
			t.Errorf("Energy should sit around 440 Hz, got %g in band and %g above", in, out)
		}
	})

	t.Run("Silence", func(t *testing.T) {
		z := make([]float32, 1024)
		sp, err := AnalyzeSpectrum(z, z, sr, 1024)
		if err != nil {
			t.Fatal(err)
		}
		if _, mag := sp.Peak(); mag != 0 {
			t.Errorf("Expected zero magnitude, got %f", mag)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		s := make([]float32, 100)
		if _, err := AnalyzeSpectrum(s, s, sr, 100); err == nil {
			t.Error("Expected error for a size that is not a power of two")
		}
		if _, err := AnalyzeSpectrum(s, s, sr, 128); !errors.Is(err, ErrShortInput) {
			t.Errorf("Expected ErrShortInput, got %v", err)
		}
	})
}
