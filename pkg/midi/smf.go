package midi

import (
	"fmt"
	"io"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// FromMessage converts a wire message into an Event stamped at t. Messages
// that are not channel voice messages report false. A note on with velocity
// 0 is returned as a note off.
func FromMessage(msg gomidi.Message, t float64) (Event, bool) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16
	base := func() BaseEvent { return BaseEvent{EventChannel: ch, Time: t} }

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return NoteOnEvent{BaseEvent: base(), NoteNumber: key, Velocity: vel}, true
	case msg.GetNoteOff(&ch, &key, &vel):
		return NoteOffEvent{BaseEvent: base(), NoteNumber: key, Velocity: vel}, true
	case msg.GetNoteEnd(&ch, &key):
		return NoteOffEvent{BaseEvent: base(), NoteNumber: key}, true
	case msg.GetControlChange(&ch, &cc, &val):
		return ControlChangeEvent{BaseEvent: base(), Controller: cc, Value: val}, true
	case msg.GetAfterTouch(&ch, &val):
		return ChannelPressureEvent{BaseEvent: base(), Pressure: val}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return PitchBendEvent{BaseEvent: base(), Value: rel}, true
	case msg.GetProgramChange(&ch, &val):
		return ProgramChangeEvent{BaseEvent: base(), Program: val}, true
	}
	return nil, false
}

// ToMessage converts e back to a wire message.
func ToMessage(e Event) (gomidi.Message, error) {
	switch ev := e.(type) {
	case NoteOnEvent:
		return gomidi.NoteOn(ev.EventChannel, ev.NoteNumber, ev.Velocity), nil
	case NoteOffEvent:
		return gomidi.NoteOffVelocity(ev.EventChannel, ev.NoteNumber, ev.Velocity), nil
	case ControlChangeEvent:
		return gomidi.ControlChange(ev.EventChannel, ev.Controller, ev.Value), nil
	case ChannelPressureEvent:
		return gomidi.AfterTouch(ev.EventChannel, ev.Pressure), nil
	case PitchBendEvent:
		return gomidi.Pitchbend(ev.EventChannel, ev.Value), nil
	case ProgramChangeEvent:
		return gomidi.ProgramChange(ev.EventChannel, ev.Program), nil
	}
	return nil, fmt.Errorf("midi: cannot encode %v", e)
}

// ReadSMF reads every channel voice event of a Standard MIDI File, merged
// across tracks and stamped in seconds from the start of the file using the
// file's tempo map.
func ReadSMF(r io.Reader) ([]Event, error) {
	var events []Event
	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		if ev, ok := FromMessage(gomidi.Message(te.Message), float64(te.AbsMicroSeconds)/1e6); ok {
			events = append(events, ev)
		}
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("midi: read smf: %w", err)
	}
	return events, nil
}

// WriteSMF writes events as a single-track Standard MIDI File at 120 BPM.
func WriteSMF(w io.Writer, events []Event) error {
	const ticksPerQuarter = 960
	clock := smf.MetricTicks(ticksPerQuarter)
	s := smf.New()
	s.TimeFormat = clock

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	last := 0.0
	for _, e := range events {
		msg, err := ToMessage(e)
		if err != nil {
			return err
		}
		// 120 BPM: two quarters per second.
		delta := max(0, e.At()-last) * 2 * ticksPerQuarter
		tr.Add(uint32(delta+0.5), msg)
		last = max(last, e.At())
	}
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("midi: write smf: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("midi: write smf: %w", err)
	}
	return nil
}
