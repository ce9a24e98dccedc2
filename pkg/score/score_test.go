package score

import (
	"math"
	"strings"
	"testing"

	"github.com/justyntemme/polysynth/pkg/midi"
)

func TestRun(t *testing.T) {
	s, err := Run(`
		note_on("C4", 90)
		wait(1)
		param("oscMix", 0.8)
		note_off(60)
		note("E4", 2)
		wait(0.5)
	`, 120)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(s.Events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(s.Events))
	}
	on := s.Events[0].(midi.NoteOnEvent)
	if on.NoteNumber != 60 || on.Velocity != 90 || on.At() != 0 {
		t.Errorf("Unexpected first event %v", on)
	}
	// note_off and the next note_on share a time; script order is kept.
	if s.Events[1].Type() != midi.EventTypeNoteOff || s.Events[2].Type() != midi.EventTypeNoteOn {
		t.Errorf("Expected NoteOff then NoteOn at 0.5s, got %v then %v", s.Events[1], s.Events[2])
	}
	if s.Events[2].(midi.NoteOnEvent).Velocity != DefaultVelocity {
		t.Errorf("Expected default velocity %d", DefaultVelocity)
	}
	if got := s.Events[3].At(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("Expected E4 off at 1.5s, got %f", got)
	}

	if len(s.Params) != 1 || s.Params[0].Path != "oscMix" || s.Params[0].At != 0.5 {
		t.Errorf("Unexpected params %v", s.Params)
	}
	if s.Length != 0.75 {
		t.Errorf("Expected length 0.75, got %f", s.Length)
	}
	if s.End() != 1.5 {
		t.Errorf("Expected end 1.5, got %f", s.End())
	}
}

func TestTempo(t *testing.T) {
	s, err := Run(`
		wait(1)
		bpm(60)
		wait(1)
		cc(1, 127)
		sustain(true)
	`, 120)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tempo) != 1 || s.Tempo[0].At != 0.5 || s.Tempo[0].BPM != 60 {
		t.Errorf("Unexpected tempo changes %v", s.Tempo)
	}
	if s.Length != 1.5 {
		t.Errorf("Expected 1.5s, got %f", s.Length)
	}
	cc := s.Events[1].(midi.ControlChangeEvent)
	if cc.Controller != midi.CCSustain || cc.Value != 127 {
		t.Errorf("Expected sustain down, got %v", cc)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"BadNoteName", `note_on("H4")`},
		{"NoteOutOfRange", `note_on(200)`},
		{"BadVelocity", `note_on(60, 300)`},
		{"UnknownParam", `param("filter.cutoff", 100)`},
		{"NegativeWait", `wait(-1)`},
		{"BadTempo", `bpm(0)`},
		{"Syntax", `note_on(`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(tt.src, 120); err == nil {
				t.Error("Expected error")
			}
		})
	}

	if _, err := Run("", 0); err == nil {
		t.Error("Expected error for zero tempo")
	}
}

func TestRunReader(t *testing.T) {
	s, err := RunReader(strings.NewReader(`channel(3) note_on(64) wait(4) L = now()`), 120)
	if err != nil {
		t.Fatal(err)
	}
	if s.Events[0].Channel() != 3 || s.Length != 2 {
		t.Errorf("Expected channel 3 and length 2, got %d and %f", s.Events[0].Channel(), s.Length)
	}
}
