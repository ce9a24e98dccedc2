package midi

import (
	"math"
	"testing"
)

func TestNoteOnEvent(t *testing.T) {
	event := NoteOnEvent{
		BaseEvent: BaseEvent{
			EventChannel: 0,
			Time:         1.5,
		},
		NoteNumber: 60, // Middle C
		Velocity:   64,
	}

	if event.Type() != EventTypeNoteOn {
		t.Errorf("Expected type %v, got %v", EventTypeNoteOn, event.Type())
	}

	if event.Channel() != 0 {
		t.Errorf("Expected channel 0, got %d", event.Channel())
	}

	if event.At() != 1.5 {
		t.Errorf("Expected time 1.5, got %f", event.At())
	}

	expected := "NoteOn{ch:0, note:60, vel:64, at:1.500}"
	if event.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, event.String())
	}
}

func TestNoteOffEvent(t *testing.T) {
	event := NoteOffEvent{
		BaseEvent: BaseEvent{
			EventChannel: 1,
			Time:         2,
		},
		NoteNumber: 72, // C5
		Velocity:   0,
	}

	if event.Type() != EventTypeNoteOff {
		t.Errorf("Expected type %v, got %v", EventTypeNoteOff, event.Type())
	}

	if event.Channel() != 1 {
		t.Errorf("Expected channel 1, got %d", event.Channel())
	}
}

func TestControlChangeEvent(t *testing.T) {
	event := ControlChangeEvent{
		BaseEvent: BaseEvent{
			EventChannel: 0,
			Time:         0.25,
		},
		Controller: CCModWheel,
		Value:      100,
	}

	if event.Type() != EventTypeControlChange {
		t.Errorf("Expected type %v, got %v", EventTypeControlChange, event.Type())
	}

	expected := "CC{ch:0, ctrl:1, val:100, at:0.250}"
	if event.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, event.String())
	}
}

func TestPitchBendEvent(t *testing.T) {
	tests := []struct {
		value      int16
		normalized float64
	}{
		{0, 0.0},
		{8191, 0.999878},
		{-8192, -1.0},
		{4096, 0.5},
		{-4096, -0.5},
	}

	for _, tt := range tests {
		event := PitchBendEvent{Value: tt.value}
		if diff := math.Abs(event.NormalizedValue() - tt.normalized); diff > 0.001 {
			t.Errorf("For value %d, expected normalized %f, got %f", tt.value, tt.normalized, event.NormalizedValue())
		}
	}
}

func TestWithTime(t *testing.T) {
	events := []Event{
		NoteOnEvent{NoteNumber: 60},
		NoteOffEvent{NoteNumber: 60},
		ControlChangeEvent{Controller: CCSustain},
		PitchBendEvent{Value: 10},
		ChannelPressureEvent{Pressure: 3},
		ProgramChangeEvent{Program: 4},
	}
	for _, e := range events {
		moved := WithTime(e, 3)
		if moved.At() != 3 {
			t.Errorf("%v: expected time 3, got %f", e.Type(), moved.At())
		}
		if moved.Type() != e.Type() {
			t.Errorf("Type changed from %v to %v", e.Type(), moved.Type())
		}
	}
}

func TestEventTypeString(t *testing.T) {
	if EventTypeChannelPressure.String() != "ChannelPressure" {
		t.Errorf("Unexpected name %q", EventTypeChannelPressure.String())
	}
	if EventType(99).String() != "EventType(99)" {
		t.Errorf("Unexpected name %q", EventType(99).String())
	}
}

func TestNoteToFrequency(t *testing.T) {
	tests := []struct {
		note uint8
		freq float64
	}{
		{69, 440.0},  // A4
		{60, 261.63}, // Middle C (C4)
		{57, 220.0},  // A3
		{81, 880.0},  // A5
	}

	for _, tt := range tests {
		freq := NoteToFrequency(tt.note, 0)
		if math.Abs(freq-tt.freq) > 0.01 {
			t.Errorf("Note %d: expected %f Hz, got %f Hz", tt.note, tt.freq, freq)
		}
	}

	if freq := NoteToFrequency(69, 442); freq != 442 {
		t.Errorf("Expected custom tuning 442, got %f", freq)
	}
}

func TestFrequencyToNote(t *testing.T) {
	tests := []struct {
		freq float64
		note uint8
	}{
		{440.0, 69},
		{261.63, 60},
		{220.0, 57},
		{445.0, 69},
		{0, 0},
		{100000, 127},
	}

	for _, tt := range tests {
		if note := FrequencyToNote(tt.freq, 0); note != tt.note {
			t.Errorf("Frequency %f: expected note %d, got %d", tt.freq, tt.note, note)
		}
	}
}

func TestNoteNumberToName(t *testing.T) {
	tests := []struct {
		note uint8
		name string
	}{
		{60, "C4"},
		{61, "C#4"},
		{69, "A4"},
		{0, "C-1"},
		{127, "G9"},
	}

	for _, tt := range tests {
		if name := NoteNumberToName(tt.note); name != tt.name {
			t.Errorf("Note %d: expected %s, got %s", tt.note, tt.name, name)
		}
	}
}
