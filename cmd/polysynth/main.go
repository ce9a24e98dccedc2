// Command polysynth renders and plays patches of the polyphonic synthesizer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/patch"
	"github.com/justyntemme/polysynth/pkg/synth"
)

var version = "0.1.0"

// Global flags.
var (
	sampleRate int
	bpm        float64
	logLevel   string
	patchPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "polysynth",
	Short: "Eight-voice subtractive synthesizer",
	Long: `polysynth plays patches of an eight-voice subtractive synthesizer:
two oscillators, a filter with its own envelope, two LFOs and two
modulation envelopes routed through a modulation matrix, and a serial
effects chain.

Patches are JSON documents; run "polysynth patch dump" for an example.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&sampleRate, "sample-rate", "r", 48000, "Output sample rate in Hz")
	rootCmd.PersistentFlags().Float64Var(&bpm, "bpm", 120, "Tempo for synced LFOs and scripts")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, off)")
	rootCmd.PersistentFlags().StringVarP(&patchPath, "patch", "p", "", "Patch file (default: init patch)")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(patchCmd)
}

// newLogger builds the command logger from --log-level.
func newLogger() (*debug.Logger, error) {
	level, err := debug.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	log := debug.New(os.Stderr, "polysynth", debug.DefaultFlags)
	log.SetLevel(level)
	return log, nil
}

// loadPatch reads --patch, or returns the init patch when it is empty.
// Loaded patches are validated; out-of-range values are an error.
func loadPatch() (*patch.Patch, error) {
	if patchPath == "" {
		return patch.Default(), nil
	}
	p, err := patch.LoadFile(patchPath)
	if err != nil {
		return nil, fmt.Errorf("load patch: %w", err)
	}
	if err := patch.Validate(p); err != nil {
		return nil, fmt.Errorf("patch %s: %w", patchPath, err)
	}
	return p, nil
}

// newEngine builds an audio context at the global sample rate and tempo
// and an engine for the global patch.
func newEngine(log *debug.Logger) (*audio.Context, *synth.Engine, error) {
	p, err := loadPatch()
	if err != nil {
		return nil, nil, err
	}
	ctx := audio.NewContext(float64(sampleRate))
	ctx.SetBPM(bpm)
	e, err := synth.New(ctx, p, synth.WithLogger(log.With("synth")))
	if err != nil {
		return nil, nil, err
	}
	log.Info("loaded patch %q at %d Hz", p.Name, sampleRate)
	return ctx, e, nil
}
