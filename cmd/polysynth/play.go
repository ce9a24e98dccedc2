package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/midi"
	"github.com/justyntemme/polysynth/pkg/synth"
)

// Play flags.
var (
	playMIDI     string
	playGate     float64
	playVelocity int
	playBuffer   time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the synthesizer from the terminal keyboard",
	Long: `Play the synthesizer live through the default audio device.

Keys:
  a w s e d f t g y h u j k o l p ;   notes from C
  z / x                               octave down / up
  tab                                 toggle sustain
  space                               release all notes
  q, esc, ctrl-c                      quit

With --midi the file is played instead and the command exits when it ends.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVarP(&playMIDI, "midi", "m", "", "Standard MIDI File to play")
	playCmd.Flags().Float64Var(&playGate, "gate", 0.4, "Seconds a key press holds its note")
	playCmd.Flags().IntVar(&playVelocity, "velocity", 100, "Key press velocity (1-127)")
	playCmd.Flags().DurationVar(&playBuffer, "buffer", 20*time.Millisecond, "Audio buffer size")
}

func runPlay(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	if playVelocity < 1 || playVelocity > 127 {
		return fmt.Errorf("velocity %d out of range 1..127", playVelocity)
	}

	ctx, e, err := newEngine(log)
	if err != nil {
		return err
	}
	h := newHost(ctx, e)
	defer h.Do(func(_ *audio.Context, e *synth.Engine) { e.Dispose() })

	out, err := openOutput(h, playBuffer)
	if err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}
	defer func() { log.WarnIf(out.Close(), "close audio output") }()

	if playMIDI != "" {
		err = playFile(h, ctx)
	} else {
		err = playKeyboard(cmd.OutOrStdout(), h)
	}
	log.Info("render load %.1f%%, %d overruns", 100*h.prof.Load(), h.prof.Overruns())
	return err
}

// playFile streams --midi and waits for it and the release tail to end.
func playFile(h *host, ctx *audio.Context) error {
	f, err := os.Open(playMIDI)
	if err != nil {
		return err
	}
	events, err := midi.ReadSMF(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", playMIDI, err)
	}
	h.Enqueue(events)
	for h.Pending() {
		time.Sleep(50 * time.Millisecond)
	}
	var tail float64
	h.Do(func(_ *audio.Context, e *synth.Engine) { tail = e.Patch().ReleaseTail() })
	time.Sleep(time.Duration((tail + 0.2) * float64(time.Second)))
	return nil
}

// playKeyboard reads raw key presses until quit.
func playKeyboard(w io.Writer, h *host) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	kb := newKeyboard()
	// generation per note so a re-pressed key is not cut by the previous
	// press's release
	gen := make(map[int]int)
	velocity := float64(playVelocity) / 127

	fmt.Fprintf(w, "octave %d, q to quit\r\n", kb.Octave())
	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		action, note := kb.Press(buf[0])
		switch action {
		case keyNote:
			h.Do(func(ctx *audio.Context, e *synth.Engine) {
				gen[note]++
				g := gen[note]
				e.TriggerAttack(note, velocity)
				ctx.Schedule(ctx.Now()+playGate, func() {
					if gen[note] == g {
						e.TriggerRelease(note)
					}
				})
			})
		case keyOctaveDown, keyOctaveUp:
			fmt.Fprintf(w, "octave %d\r\n", kb.Octave())
		case keySustain:
			var down bool
			h.Do(func(_ *audio.Context, e *synth.Engine) {
				down = !e.Sustain()
				e.SetSustain(down)
			})
			fmt.Fprintf(w, "sustain %v\r\n", down)
		case keyPanic:
			h.Do(func(_ *audio.Context, e *synth.Engine) { e.ReleaseAll() })
		case keyQuit:
			h.Do(func(_ *audio.Context, e *synth.Engine) { e.ReleaseAll() })
			return nil
		}
	}
}
