package synth

import (
	"github.com/justyntemme/polysynth/pkg/midi"
)

// HandleEvent applies one MIDI event. Events are applied immediately; their
// timestamps are the caller's concern.
func (e *Engine) HandleEvent(ev midi.Event) {
	if e.disposed {
		return
	}
	switch ev := ev.(type) {
	case midi.NoteOnEvent:
		if ev.Velocity == 0 {
			e.TriggerRelease(int(ev.NoteNumber))
			return
		}
		e.TriggerAttack(int(ev.NoteNumber), float64(ev.Velocity)/127)
	case midi.NoteOffEvent:
		e.TriggerRelease(int(ev.NoteNumber))
	case midi.ControlChangeEvent:
		e.handleControlChange(ev)
	case midi.ChannelPressureEvent:
		e.SetAftertouch(float64(ev.Pressure))
	default:
		e.log.Debug("ignored %s", ev)
	}
}

func (e *Engine) handleControlChange(ev midi.ControlChangeEvent) {
	switch ev.Controller {
	case midi.CCModWheel:
		e.SetModWheel(float64(ev.Value))
	case midi.CCSustain:
		e.SetSustain(ev.Value >= 64)
	case midi.CCVolume:
		e.UpdateParameter("masterVolume", float64(ev.Value)/127)
	case midi.CCAllNotesOff, midi.CCAllSoundOff:
		e.ReleaseAll()
	default:
		e.log.Debug("ignored %s", ev)
	}
}
