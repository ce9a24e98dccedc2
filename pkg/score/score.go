// Package score turns Lua scripts into timed performance data: MIDI events
// for the engine plus parameter and tempo changes.
//
// A script drives a cursor through time:
//
//	bpm(100)
//	note_on("C4", 100)
//	wait(1)              -- beats
//	param("oscMix", 0.8)
//	note_off("C4")
//	note("E4", 0.5, 90)  -- on now, off after half a beat
//	sustain(true)
//	cc(1, 64)
package score

import (
	"fmt"
	"io"
	"slices"

	lua "github.com/yuin/gopher-lua"

	"github.com/justyntemme/polysynth/pkg/framework/param"
	"github.com/justyntemme/polysynth/pkg/midi"
)

// DefaultVelocity is used when a script omits the velocity.
const DefaultVelocity = 100

// ParamChange is a parameter write at a point in time.
type ParamChange struct {
	At    float64
	Path  string
	Value float64
}

// TempoChange is a tempo change at a point in time.
type TempoChange struct {
	At  float64
	BPM float64
}

// Score is the result of running a script. Times are in seconds from the
// start of the score.
type Score struct {
	Events []midi.Event
	Params []ParamChange
	Tempo  []TempoChange
	Length float64
}

// End returns the time of the last scheduled item, or Length if later.
func (s *Score) End() float64 {
	end := s.Length
	for _, e := range s.Events {
		end = max(end, e.At())
	}
	for _, p := range s.Params {
		end = max(end, p.At)
	}
	return end
}

type builder struct {
	score   Score
	now     float64
	bpm     float64
	channel uint8
}

func (b *builder) beats(n float64) float64 {
	return n * 60 / b.bpm
}

func (b *builder) base() midi.BaseEvent {
	return midi.BaseEvent{EventChannel: b.channel, Time: b.now}
}

// Run executes src and returns its score. bpm is the starting tempo.
func Run(src string, bpm float64) (*Score, error) {
	return run(bpm, func(L *lua.LState) error { return L.DoString(src) })
}

// RunFile executes the script at path.
func RunFile(path string, bpm float64) (*Score, error) {
	return run(bpm, func(L *lua.LState) error { return L.DoFile(path) })
}

// RunReader executes the script read from r.
func RunReader(r io.Reader, bpm float64) (*Score, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("score: read: %w", err)
	}
	return Run(string(src), bpm)
}

func run(bpm float64, exec func(*lua.LState) error) (*Score, error) {
	if bpm <= 0 {
		return nil, fmt.Errorf("score: invalid tempo %g", bpm)
	}
	b := &builder{bpm: bpm}
	L := lua.NewState()
	defer L.Close()
	b.register(L)

	if err := exec(L); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	b.score.Length = b.now
	slices.SortStableFunc(b.score.Events, func(x, y midi.Event) int {
		switch {
		case x.At() < y.At():
			return -1
		case x.At() > y.At():
			return 1
		}
		return 0
	})
	slices.SortStableFunc(b.score.Params, func(x, y ParamChange) int {
		switch {
		case x.At < y.At:
			return -1
		case x.At > y.At:
			return 1
		}
		return 0
	})
	return &b.score, nil
}

func (b *builder) register(L *lua.LState) {
	fns := map[string]lua.LGFunction{
		"note_on":  b.noteOn,
		"note_off": b.noteOff,
		"note":     b.note,
		"wait":     b.wait,
		"param":    b.param,
		"bpm":      b.setBPM,
		"sustain":  b.sustain,
		"cc":       b.cc,
		"channel":  b.setChannel,
		"now":      b.currentTime,
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// checkNote accepts a MIDI number or a note name such as "C#4".
func checkNote(L *lua.LState, n int) uint8 {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		note := int(v)
		if note < 0 || note > 127 {
			L.ArgError(n, fmt.Sprintf("note %d out of range", note))
		}
		return uint8(note)
	case lua.LString:
		note, err := param.NoteParser(string(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return uint8(note)
	}
	L.ArgError(n, "note number or name expected")
	return 0
}

func checkByte(L *lua.LState, n int, def int) uint8 {
	v := L.OptInt(n, def)
	if v < 0 || v > 127 {
		L.ArgError(n, fmt.Sprintf("value %d out of range 0..127", v))
	}
	return uint8(v)
}

func (b *builder) noteOn(L *lua.LState) int {
	note := checkNote(L, 1)
	vel := checkByte(L, 2, DefaultVelocity)
	b.score.Events = append(b.score.Events, midi.NoteOnEvent{BaseEvent: b.base(), NoteNumber: note, Velocity: vel})
	return 0
}

func (b *builder) noteOff(L *lua.LState) int {
	note := checkNote(L, 1)
	b.score.Events = append(b.score.Events, midi.NoteOffEvent{BaseEvent: b.base(), NoteNumber: note})
	return 0
}

func (b *builder) note(L *lua.LState) int {
	note := checkNote(L, 1)
	length := float64(L.CheckNumber(2))
	if length < 0 {
		L.ArgError(2, "negative length")
	}
	vel := checkByte(L, 3, DefaultVelocity)

	on := b.base()
	off := on
	off.Time += b.beats(length)
	b.score.Events = append(b.score.Events,
		midi.NoteOnEvent{BaseEvent: on, NoteNumber: note, Velocity: vel},
		midi.NoteOffEvent{BaseEvent: off, NoteNumber: note},
	)
	return 0
}

func (b *builder) wait(L *lua.LState) int {
	n := float64(L.CheckNumber(1))
	if n < 0 {
		L.ArgError(1, "negative wait")
	}
	b.now += b.beats(n)
	return 0
}

func (b *builder) param(L *lua.LState) int {
	path := L.CheckString(1)
	if _, ok := param.ParsePath(path); !ok {
		L.ArgError(1, fmt.Sprintf("unknown parameter %q", path))
	}
	value := float64(L.CheckNumber(2))
	b.score.Params = append(b.score.Params, ParamChange{At: b.now, Path: path, Value: value})
	return 0
}

func (b *builder) setBPM(L *lua.LState) int {
	v := float64(L.CheckNumber(1))
	if v <= 0 {
		L.ArgError(1, "tempo must be positive")
	}
	b.bpm = v
	b.score.Tempo = append(b.score.Tempo, TempoChange{At: b.now, BPM: v})
	return 0
}

func (b *builder) sustain(L *lua.LState) int {
	var value uint8
	if L.ToBool(1) {
		value = 127
	}
	b.score.Events = append(b.score.Events, midi.ControlChangeEvent{BaseEvent: b.base(), Controller: midi.CCSustain, Value: value})
	return 0
}

func (b *builder) cc(L *lua.LState) int {
	ctrl := checkByte(L, 1, 0)
	value := checkByte(L, 2, 0)
	b.score.Events = append(b.score.Events, midi.ControlChangeEvent{BaseEvent: b.base(), Controller: ctrl, Value: value})
	return 0
}

func (b *builder) setChannel(L *lua.LState) int {
	ch := L.CheckInt(1)
	if ch < 0 || ch > 15 {
		L.ArgError(1, "channel must be 0..15")
	}
	b.channel = uint8(ch)
	return 0
}

func (b *builder) currentTime(L *lua.LState) int {
	L.Push(lua.LNumber(b.now))
	return 1
}
