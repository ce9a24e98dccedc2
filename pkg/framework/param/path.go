// Package param defines the closed set of continuously tweaked engine
// parameters that bypass the patch diff, with their ranges and display
// formatting.
package param

import (
	"fmt"
	"strings"
)

// Kind selects which parameter a Path addresses.
type Kind int

const (
	KindInvalid Kind = iota
	KindOscMix
	KindMasterVolume
	KindLFO
)

// LFOField is a sub-field of one of the two modulation LFOs.
type LFOField int

const (
	LFOFrequency LFOField = iota
	LFOAmplitude
	LFOPhase
)

var lfoFieldNames = [...]string{
	LFOFrequency: "frequency",
	LFOAmplitude: "amplitude",
	LFOPhase:     "phase",
}

func (f LFOField) String() string {
	if f < 0 || int(f) >= len(lfoFieldNames) {
		return fmt.Sprintf("LFOField(%d)", int(f))
	}
	return lfoFieldNames[f]
}

// Path addresses one fast-path parameter. The zero Path is invalid.
type Path struct {
	Kind  Kind
	LFO   int // 0 or 1, KindLFO only
	Field LFOField
}

// OscMix addresses the oscillator crossfade.
func OscMix() Path { return Path{Kind: KindOscMix} }

// MasterVolume addresses the master gain.
func MasterVolume() Path { return Path{Kind: KindMasterVolume} }

// LFO addresses a field of LFO index (0 or 1).
func LFO(index int, field LFOField) Path {
	return Path{Kind: KindLFO, LFO: index, Field: field}
}

// Valid reports whether p addresses an existing parameter.
func (p Path) Valid() bool {
	switch p.Kind {
	case KindOscMix, KindMasterVolume:
		return true
	case KindLFO:
		return (p.LFO == 0 || p.LFO == 1) && p.Field >= LFOFrequency && p.Field <= LFOPhase
	}
	return false
}

// String returns the dotted form accepted by ParsePath.
func (p Path) String() string {
	switch p.Kind {
	case KindOscMix:
		return "oscMix"
	case KindMasterVolume:
		return "masterVolume"
	case KindLFO:
		return fmt.Sprintf("modMatrix.lfo%d.%s", p.LFO+1, p.Field)
	}
	return "invalid"
}

// ParsePath converts a dotted key such as "masterVolume" or
// "modMatrix.lfo1.frequency" into a Path. The "modMatrix." prefix is
// optional for LFO fields.
func ParsePath(s string) (Path, bool) {
	switch s {
	case "oscMix":
		return OscMix(), true
	case "masterVolume":
		return MasterVolume(), true
	}

	parts := strings.Split(strings.TrimPrefix(s, "modMatrix."), ".")
	if len(parts) != 2 {
		return Path{}, false
	}
	var index int
	switch parts[0] {
	case "lfo1":
		index = 0
	case "lfo2":
		index = 1
	default:
		return Path{}, false
	}
	for f, name := range lfoFieldNames {
		if parts[1] == name {
			return LFO(index, LFOField(f)), true
		}
	}
	return Path{}, false
}

// Paths lists every valid path in display order.
func Paths() []Path {
	paths := []Path{OscMix(), MasterVolume()}
	for i := range 2 {
		for f := range lfoFieldNames {
			paths = append(paths, LFO(i, LFOField(f)))
		}
	}
	return paths
}
