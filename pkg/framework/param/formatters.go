package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FrequencyFormatter formats frequency values with Hz/kHz
func FrequencyFormatter(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.2f kHz", hz/1000)
	}
	return fmt.Sprintf("%.2f Hz", hz)
}

// FrequencyParser parses frequency strings
func FrequencyParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	lower := strings.ToLower(str)

	if strings.HasSuffix(lower, "khz") {
		val, err := strconv.ParseFloat(strings.TrimSpace(str[:len(str)-3]), 64)
		if err != nil {
			return 0, err
		}
		return val * 1000, nil
	}
	if strings.HasSuffix(lower, "hz") {
		str = str[:len(str)-2]
	}
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// PercentFormatter formats percentage values
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}

// fractionParser accepts "35%" or "0.35" and returns 0.35.
func fractionParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	if pct, ok := strings.CutSuffix(str, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		return v / 100, err
	}
	return strconv.ParseFloat(str, 64)
}

// GainFormatter formats a linear gain in dB
func GainFormatter(gain float64) string {
	if gain <= 0.001 {
		return "-∞ dB"
	}
	return fmt.Sprintf("%.1f dB", 20*math.Log10(gain))
}

// DegreesFormatter formats phase offsets
func DegreesFormatter(deg float64) string {
	return fmt.Sprintf("%.0f°", deg)
}

// DegreesParser parses phase strings
func DegreesParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	str = strings.TrimSuffix(strings.TrimSuffix(str, "°"), "deg")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteFormatter formats MIDI note numbers (60 = C4)
func NoteFormatter(note int) string {
	if note < 0 {
		return "-"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

var noteOffsets = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "DB": 1,
	"D": 2,
	"D#": 3, "EB": 3,
	"E": 4, "FB": 4,
	"F": 5, "E#": 5,
	"F#": 6, "GB": 6,
	"G": 7,
	"G#": 8, "AB": 8,
	"A": 9,
	"A#": 10, "BB": 10,
	"B": 11, "CB": 11,
}

// NoteParser parses note names such as "C4" or "Eb3" to MIDI numbers
func NoteParser(str string) (int, error) {
	str = strings.ToUpper(strings.TrimSpace(str))

	octaveStart := strings.IndexFunc(str, func(r rune) bool {
		return r >= '0' && r <= '9' || r == '-'
	})
	if octaveStart <= 0 {
		return 0, fmt.Errorf("no octave number found in note: %s", str)
	}

	offset, ok := noteOffsets[str[:octaveStart]]
	if !ok {
		return 0, fmt.Errorf("unknown note name: %s", str[:octaveStart])
	}
	octave, err := strconv.Atoi(str[octaveStart:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave number: %s", str[octaveStart:])
	}

	note := (octave+1)*12 + offset
	if note < 0 || note > 127 {
		return 0, fmt.Errorf("note %s out of MIDI range", str)
	}
	return note, nil
}
