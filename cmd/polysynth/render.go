package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/framework/param"
	"github.com/justyntemme/polysynth/pkg/midi"
	"github.com/justyntemme/polysynth/pkg/score"
	"github.com/justyntemme/polysynth/pkg/synth"
)

// Render flags.
var (
	renderMIDI   string
	renderScript string
	renderOutput string
	renderTail   float64
	renderBits   int
	renderPitch  bool
)

// analysisSize is the FFT length used by --analyze.
const analysisSize = 8192

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a MIDI file or Lua score to WAV",
	Long: `Render a Standard MIDI File or a Lua score through the synthesizer
and write the result as a stereo WAV file.

A Lua score drives a cursor through time with note_on, note_off, note,
wait (in beats), param, bpm, sustain, cc and channel.

Examples:
  polysynth render --midi song.mid -o song.wav
  polysynth render --script riff.lua --patch bass.json --tail 2`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderMIDI, "midi", "m", "", "Standard MIDI File to render")
	renderCmd.Flags().StringVarP(&renderScript, "script", "s", "", "Lua score to render")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output WAV file (default: input name with .wav)")
	renderCmd.Flags().Float64Var(&renderTail, "tail", -1, "Seconds rendered after the last event (default: patch release tail)")
	renderCmd.Flags().IntVar(&renderBits, "bits", 16, "WAV bit depth (16 or 24)")
	renderCmd.Flags().BoolVar(&renderPitch, "analyze", false, "Log the dominant frequency around the loudest frame")
	renderCmd.MarkFlagsMutuallyExclusive("midi", "script")
	renderCmd.MarkFlagsOneRequired("midi", "script")
}

func runRender(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	if renderBits != 16 && renderBits != 24 {
		return fmt.Errorf("unsupported bit depth %d", renderBits)
	}

	sc, input, err := loadScore()
	if err != nil {
		return err
	}
	output := renderOutput
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".wav"
	}

	ctx, e, err := newEngine(log)
	if err != nil {
		return err
	}
	defer e.Dispose()

	tail := renderTail
	if tail < 0 {
		tail = e.Patch().ReleaseTail() + 0.5
	}
	duration := sc.End() + tail

	left, right, levels := renderScore(ctx, e, sc, duration)
	log.Info("rendered %.2fs: %s", duration, levels)
	if levels.ClippedSamples > 0 {
		log.Warn("%d samples clipped", levels.ClippedSamples)
	}
	if renderPitch {
		freq, err := dominantFrequency(left, right, sampleRate)
		if err != nil {
			log.Warn("analysis skipped: %v", err)
		} else {
			note := int(math.Round(69 + 12*math.Log2(freq/440)))
			log.Info("dominant frequency %s (nearest %s)", param.FrequencyFormatter(freq), param.NoteFormatter(note))
		}
	}

	if err := writeWAV(output, left, right, sampleRate, renderBits); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
	return nil
}

// loadScore reads --midi or --script and returns the score and its path.
func loadScore() (*score.Score, string, error) {
	if renderMIDI != "" {
		f, err := os.Open(renderMIDI)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		events, err := midi.ReadSMF(f)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", renderMIDI, err)
		}
		return &score.Score{Events: events}, renderMIDI, nil
	}
	sc, err := score.RunFile(renderScript, bpm)
	if err != nil {
		return nil, "", err
	}
	return sc, renderScript, nil
}

// renderScore plays sc through e for duration seconds. Events land on the
// exact frame they are stamped with; parameter and tempo changes run from
// the context scheduler.
func renderScore(ctx *audio.Context, e *synth.Engine, sc *score.Score, duration float64) ([]float32, []float32, debug.Levels) {
	queue := midi.NewEventQueue()
	queue.AddMultiple(sc.Events)
	queue.Shift(ctx.Now())

	start := ctx.Now()
	for _, p := range sc.Params {
		ctx.Schedule(start+p.At, func() { e.UpdateParameter(p.Path, p.Value) })
	}
	for _, t := range sc.Tempo {
		ctx.Schedule(start+t.At, func() { ctx.SetBPM(t.BPM) })
	}

	total := int(math.Ceil(duration * ctx.SampleRate()))
	left := make([]float32, total)
	right := make([]float32, total)
	meter := debug.NewMeter()

	for pos := 0; pos < total; {
		queue.Dispatch(e, ctx.Now())
		n := min(audio.BlockSize, total-pos)
		if next, ok := queue.NextAt(); ok {
			until := int(math.Ceil((next - ctx.Now()) * ctx.SampleRate()))
			n = max(1, min(n, until))
		}
		ctx.Render(left[pos:pos+n], right[pos:pos+n])
		meter.Add(left[pos:pos+n], right[pos:pos+n])
		pos += n
	}
	return left, right, meter.Levels()
}

// dominantFrequency analyzes the window centred on the loudest frame.
func dominantFrequency(left, right []float32, rate int) (float64, error) {
	if len(left) < analysisSize {
		return 0, debug.ErrShortInput
	}
	loudest := 0
	var peak float32
	for i, s := range left {
		if a := max(s, -s, right[i], -right[i]); a > peak {
			peak, loudest = a, i
		}
	}
	if peak == 0 {
		return 0, fmt.Errorf("output is silent")
	}
	start := min(max(0, loudest-analysisSize/2), len(left)-analysisSize)
	sp, err := debug.AnalyzeSpectrum(left[start:], right[start:], float64(rate), analysisSize)
	if err != nil {
		return 0, err
	}
	freq, _ := sp.Peak()
	return freq, nil
}

// writeWAV writes interleaved stereo PCM at the given bit depth.
func writeWAV(path string, left, right []float32, rate, bits int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bits, 2, 1)
	full := float64(int(1)<<(bits-1) - 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: rate},
		Data:           make([]int, 2*len(left)),
		SourceBitDepth: bits,
	}
	for i := range left {
		buf.Data[2*i] = pcm(left[i], full)
		buf.Data[2*i+1] = pcm(right[i], full)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func pcm(s float32, full float64) int {
	v := math.Max(-1, math.Min(1, float64(s)))
	if math.IsNaN(v) {
		v = 0
	}
	return int(math.Round(v * full))
}
