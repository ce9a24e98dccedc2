package debug

import (
	"fmt"
	"math"
)

// Meter accumulates level statistics over rendered stereo output.
type Meter struct {
	clipThreshold    float32
	silenceThreshold float64

	frames     int
	peak       float32
	sumSquares float64
	clipped    int
	nan        int
}

// NewMeter creates a meter that counts samples at or above 0.99 as clipped.
func NewMeter() *Meter {
	return &Meter{clipThreshold: 0.99, silenceThreshold: 0.0001}
}

// Levels is a snapshot of a Meter.
type Levels struct {
	Frames         int
	Peak           float32
	RMS            float32
	ClippedSamples int
	NaNCount       int
	Silent         bool
}

// String formats the levels for a log line.
func (l Levels) String() string {
	peakDB := -math.MaxFloat64
	if l.Peak > 0 {
		peakDB = 20 * math.Log10(float64(l.Peak))
	}
	return fmt.Sprintf("frames=%d peak=%.3f (%.1f dBFS) rms=%.3f clipped=%d nan=%d",
		l.Frames, l.Peak, peakDB, l.RMS, l.ClippedSamples, l.NaNCount)
}

// Add folds one block of stereo output into the statistics.
func (m *Meter) Add(left, right []float32) {
	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		m.sample(left[i])
		m.sample(right[i])
	}
	m.frames += n
}

func (m *Meter) sample(s float32) {
	if math.IsNaN(float64(s)) {
		m.nan++
		return
	}
	abs := s
	if abs < 0 {
		abs = -abs
	}
	if abs > m.peak {
		m.peak = abs
	}
	if abs >= m.clipThreshold {
		m.clipped++
	}
	m.sumSquares += float64(s) * float64(s)
}

// Levels returns the statistics gathered so far.
func (m *Meter) Levels() Levels {
	l := Levels{
		Frames:         m.frames,
		Peak:           m.peak,
		ClippedSamples: m.clipped,
		NaNCount:       m.nan,
	}
	if m.frames > 0 {
		l.RMS = float32(math.Sqrt(m.sumSquares / float64(2*m.frames)))
	}
	l.Silent = float64(l.RMS) < m.silenceThreshold
	return l
}

// Reset clears the statistics.
func (m *Meter) Reset() {
	*m = Meter{clipThreshold: m.clipThreshold, silenceThreshold: m.silenceThreshold}
}

// Analyze meters one stereo buffer.
func Analyze(left, right []float32) Levels {
	m := NewMeter()
	m.Add(left, right)
	return m.Levels()
}
