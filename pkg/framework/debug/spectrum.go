package debug

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// ErrShortInput is returned when fewer frames than the FFT size are given.
var ErrShortInput = errors.New("not enough frames for the analysis size")

// Spectrum is the Hann-windowed magnitude spectrum of a mono fold-down.
type Spectrum struct {
	SampleRate float64
	Size       int
	// Magnitudes holds bins 0 through Size/2.
	Magnitudes []float64
}

// AnalyzeSpectrum transforms the first size frames of a stereo buffer.
// size must be a power of two.
func AnalyzeSpectrum(left, right []float32, sampleRate float64, size int) (Spectrum, error) {
	if size < 2 || size&(size-1) != 0 {
		return Spectrum{}, fmt.Errorf("analysis size %d is not a power of two", size)
	}
	if len(left) < size || len(right) < size {
		return Spectrum{}, ErrShortInput
	}

	mono := make([]float64, size)
	for i := range mono {
		mono[i] = 0.5 * (float64(left[i]) + float64(right[i]))
	}
	vecmath.MulBlockInPlace(mono, hann(size))

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return Spectrum{}, fmt.Errorf("fft plan: %w", err)
	}
	in := make([]complex128, size)
	for i, s := range mono {
		in[i] = complex(s, 0)
	}
	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return Spectrum{}, fmt.Errorf("fft: %w", err)
	}

	bins := size/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := range bins {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}
	mags := make([]float64, bins)
	vecmath.Magnitude(mags, re, im)

	return Spectrum{SampleRate: sampleRate, Size: size, Magnitudes: mags}, nil
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// BinFrequency returns the center frequency of a bin in Hz.
func (s Spectrum) BinFrequency(bin int) float64 {
	return float64(bin) * s.SampleRate / float64(s.Size)
}

// Peak returns the frequency and magnitude of the strongest bin above DC,
// refined by parabolic interpolation between neighbours.
func (s Spectrum) Peak() (float64, float64) {
	best := 1
	for i := 2; i < len(s.Magnitudes); i++ {
		if s.Magnitudes[i] > s.Magnitudes[best] {
			best = i
		}
	}
	if best >= len(s.Magnitudes) {
		return 0, 0
	}
	mag := s.Magnitudes[best]
	if best == len(s.Magnitudes)-1 {
		return s.BinFrequency(best), mag
	}

	a, b, c := s.Magnitudes[best-1], mag, s.Magnitudes[best+1]
	offset := 0.0
	if denom := a - 2*b + c; denom != 0 {
		offset = 0.5 * (a - c) / denom
	}
	return (float64(best) + offset) * s.SampleRate / float64(s.Size), mag
}

// BandEnergy sums squared magnitudes between lo and hi Hz.
func (s Spectrum) BandEnergy(lo, hi float64) float64 {
	var sum float64
	for i, m := range s.Magnitudes {
		if f := s.BinFrequency(i); f >= lo && f <= hi {
			sum += m * m
		}
	}
	return sum
}
