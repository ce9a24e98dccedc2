package main

// Computer-keyboard piano: the home row plays white keys from C, the row
// above plays the black keys.
var keyOffsets = map[byte]int{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4, 'f': 5, 't': 6,
	'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11, 'k': 12, 'o': 13,
	'l': 14, 'p': 15, ';': 16,
}

type keyAction int

const (
	keyNone keyAction = iota
	keyNote
	keyOctaveDown
	keyOctaveUp
	keyPanic
	keySustain
	keyQuit
)

// keyboard maps key presses to notes around a movable octave.
type keyboard struct {
	octave int
}

func newKeyboard() *keyboard {
	return &keyboard{octave: 4}
}

// Press interprets one key. For keyNote the returned note is valid.
func (k *keyboard) Press(b byte) (keyAction, int) {
	if off, ok := keyOffsets[b]; ok {
		note := (k.octave+1)*12 + off
		if note > 127 {
			return keyNone, 0
		}
		return keyNote, note
	}
	switch b {
	case 'z':
		if k.octave > -1 {
			k.octave--
		}
		return keyOctaveDown, 0
	case 'x':
		if k.octave < 9 {
			k.octave++
		}
		return keyOctaveUp, 0
	case ' ':
		return keyPanic, 0
	case '\t':
		return keySustain, 0
	case 'q', 0x03, 0x1b:
		return keyQuit, 0
	}
	return keyNone, 0
}

// Octave returns the octave of the 'a' key.
func (k *keyboard) Octave() int {
	return k.octave
}
