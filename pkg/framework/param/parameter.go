package param

import (
	"fmt"
	"math"
	"strconv"
)

// Descriptor describes the range and display of a fast-path parameter.
type Descriptor struct {
	Path         Path
	Name         string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

var descriptors = map[Kind]Descriptor{
	KindOscMix: {
		Name: "Osc Mix", Unit: "%", Min: 0, Max: 1, DefaultValue: 0.5,
		formatFunc: func(v float64) string { return PercentFormatter(v * 100) },
		parseFunc:  fractionParser,
	},
	KindMasterVolume: {
		Name: "Master Volume", Unit: "dB", Min: 0, Max: 1, DefaultValue: 0.7,
		formatFunc: GainFormatter,
		parseFunc:  fractionParser,
	},
}

var lfoDescriptors = [...]Descriptor{
	LFOFrequency: {
		Name: "Rate", Unit: "Hz", Min: 0.01, Max: 50, DefaultValue: 2,
		formatFunc: FrequencyFormatter,
		parseFunc:  FrequencyParser,
	},
	LFOAmplitude: {
		Name: "Depth", Unit: "%", Min: 0, Max: 1, DefaultValue: 0.5,
		formatFunc: func(v float64) string { return PercentFormatter(v * 100) },
		parseFunc:  fractionParser,
	},
	LFOPhase: {
		Name: "Phase", Unit: "°", Min: 0, Max: 360, DefaultValue: 0,
		formatFunc: DegreesFormatter,
		parseFunc:  DegreesParser,
	},
}

// Describe returns the descriptor for p.
func Describe(p Path) (Descriptor, bool) {
	if !p.Valid() {
		return Descriptor{}, false
	}
	var d Descriptor
	if p.Kind == KindLFO {
		d = lfoDescriptors[p.Field]
		d.Name = fmt.Sprintf("LFO %d %s", p.LFO+1, d.Name)
	} else {
		d = descriptors[p.Kind]
	}
	d.Path = p
	return d, true
}

// Clamp limits a plain value to the descriptor's range.
func (d Descriptor) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return d.DefaultValue
	}
	return math.Max(d.Min, math.Min(d.Max, v))
}

// Normalize converts a plain value to 0..1.
func (d Descriptor) Normalize(plain float64) float64 {
	if d.Max <= d.Min {
		return 0
	}
	return (d.Clamp(plain) - d.Min) / (d.Max - d.Min)
}

// Denormalize converts 0..1 to a plain value.
func (d Descriptor) Denormalize(normalized float64) float64 {
	return d.Min + normalized*(d.Max-d.Min)
}

// Format renders a plain value for display.
func (d Descriptor) Format(plain float64) string {
	if d.formatFunc != nil {
		return d.formatFunc(plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// Parse reads a display string back into a clamped plain value.
func (d Descriptor) Parse(s string) (float64, error) {
	parse := d.parseFunc
	if parse == nil {
		parse = func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	}
	v, err := parse(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", d.Path, err)
	}
	return d.Clamp(v), nil
}
