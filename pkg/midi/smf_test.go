package midi

import (
	"bytes"
	"math"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestFromMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  gomidi.Message
		typ  EventType
	}{
		{"NoteOn", gomidi.NoteOn(2, 60, 100), EventTypeNoteOn},
		{"NoteOff", gomidi.NoteOff(2, 60), EventTypeNoteOff},
		{"NoteOnZeroVelocity", gomidi.NoteOn(2, 60, 0), EventTypeNoteOff},
		{"ControlChange", gomidi.ControlChange(2, CCModWheel, 64), EventTypeControlChange},
		{"AfterTouch", gomidi.AfterTouch(2, 90), EventTypeChannelPressure},
		{"PitchBend", gomidi.Pitchbend(2, -200), EventTypePitchBend},
		{"ProgramChange", gomidi.ProgramChange(2, 7), EventTypeProgramChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := FromMessage(tt.msg, 0.75)
			if !ok {
				t.Fatal("Expected message to convert")
			}
			if ev.Type() != tt.typ {
				t.Errorf("Expected %v, got %v", tt.typ, ev.Type())
			}
			if ev.Channel() != 2 || ev.At() != 0.75 {
				t.Errorf("Expected channel 2 at 0.75, got %d at %f", ev.Channel(), ev.At())
			}
		})
	}

	if _, ok := FromMessage(gomidi.TimingClock(), 0); ok {
		t.Error("Realtime messages should not convert")
	}

	ev, _ := FromMessage(gomidi.NoteOn(0, 64, 90), 0)
	on := ev.(NoteOnEvent)
	if on.NoteNumber != 64 || on.Velocity != 90 {
		t.Errorf("Unexpected note on %v", on)
	}
}

func TestSMFRoundTrip(t *testing.T) {
	events := []Event{
		NoteOnEvent{BaseEvent: BaseEvent{Time: 0}, NoteNumber: 60, Velocity: 100},
		ControlChangeEvent{BaseEvent: BaseEvent{Time: 0.25}, Controller: CCModWheel, Value: 127},
		NoteOffEvent{BaseEvent: BaseEvent{Time: 0.5}, NoteNumber: 60},
		NoteOnEvent{BaseEvent: BaseEvent{Time: 1}, NoteNumber: 67, Velocity: 80},
		NoteOffEvent{BaseEvent: BaseEvent{Time: 2}, NoteNumber: 67},
	}

	var buf bytes.Buffer
	if err := WriteSMF(&buf, events); err != nil {
		t.Fatalf("WriteSMF failed: %v", err)
	}
	got, err := ReadSMF(&buf)
	if err != nil {
		t.Fatalf("ReadSMF failed: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(got))
	}
	for i := range events {
		if got[i].Type() != events[i].Type() {
			t.Errorf("Event %d: expected %v, got %v", i, events[i].Type(), got[i].Type())
		}
		if math.Abs(got[i].At()-events[i].At()) > 1e-3 {
			t.Errorf("Event %d: expected time %f, got %f", i, events[i].At(), got[i].At())
		}
	}
}

func TestReadSMFInvalid(t *testing.T) {
	if _, err := ReadSMF(bytes.NewReader([]byte("not a midi file"))); err == nil {
		t.Error("Expected error for invalid data")
	}
}
