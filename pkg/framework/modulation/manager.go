// Package modulation owns the modulation sources of the engine: two LFOs,
// two auxiliary envelopes and the continuous-controller signals, plus the
// bookkeeping of the intermediate nodes that realise routings.
package modulation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/justyntemme/polysynth/pkg/audio"
	"github.com/justyntemme/polysynth/pkg/framework/debug"
	"github.com/justyntemme/polysynth/pkg/framework/param"
	"github.com/justyntemme/polysynth/pkg/patch"
)

// Initial controller values. Key tracking sits at middle C.
const (
	DefaultVelocity   = 0
	DefaultKeytrack   = 0.5
	DefaultModWheel   = 0
	DefaultAftertouch = 0
)

// FrequencyToSubdivision maps a free-running rate to the nearest musical
// subdivision label used when an LFO is tempo-synced without a stored rate.
func FrequencyToSubdivision(hz float64) string {
	switch {
	case hz <= 0.25:
		return "1m"
	case hz <= 0.5:
		return "1n"
	case hz <= 1:
		return "2n"
	case hz <= 2:
		return "4n"
	case hz <= 4:
		return "8n"
	case hz <= 8:
		return "16n"
	}
	return "32n"
}

// Manager owns every modulation source and the routing nodes built on them.
type Manager struct {
	ctx *audio.Context
	log *debug.Logger

	lfos   [2]*audio.LFO
	lfoCfg [2]patch.LFOConfig
	envs   [2]*audio.Envelope

	velocity   *audio.Signal
	keytrack   *audio.Signal
	modWheel   *audio.Signal
	aftertouch *audio.Signal

	connections map[string][]audio.Node
	keys        []string
}

// New builds the sources described by m. LFOs start only when enabled.
func New(ctx *audio.Context, m patch.ModMatrix, log *debug.Logger) (*Manager, error) {
	if log == nil {
		log = debug.Discard()
	}
	mgr := &Manager{
		ctx:         ctx,
		log:         log,
		connections: make(map[string][]audio.Node),
	}

	for i := range 2 {
		cfg := *m.LFO(i)
		lfo, err := audio.NewLFO(ctx, audio.LFOOptions{
			Type:      cfg.Waveform,
			Frequency: cfg.Frequency,
			Amplitude: cfg.Amplitude,
			Phase:     cfg.Phase,
		})
		if err != nil {
			mgr.Dispose()
			return nil, fmt.Errorf("modulation: lfo%d: %w", i+1, err)
		}
		mgr.lfos[i] = lfo
		mgr.lfoCfg[i] = cfg
		if cfg.Sync {
			mgr.sync(i, cfg)
		}
		if cfg.Enabled {
			lfo.Start(ctx.Now())
		}
		mgr.envs[i] = audio.NewEnvelope(ctx, m.Envelope(i).Options())
	}

	mgr.velocity = audio.NewSignal(ctx, DefaultVelocity)
	mgr.keytrack = audio.NewSignal(ctx, DefaultKeytrack)
	mgr.modWheel = audio.NewSignal(ctx, DefaultModWheel)
	mgr.aftertouch = audio.NewSignal(ctx, DefaultAftertouch)
	return mgr, nil
}

// syncLabel returns the stored rate label, or the subdivision nearest to the
// free-running frequency when no valid label is stored.
func syncLabel(cfg patch.LFOConfig) string {
	if cfg.SyncRate != "" {
		if _, err := audio.SubdivisionBeats(cfg.SyncRate); err == nil {
			return cfg.SyncRate
		}
	}
	return FrequencyToSubdivision(cfg.Frequency)
}

func (m *Manager) sync(i int, cfg patch.LFOConfig) {
	lfo := m.lfos[i]
	m.log.DebugIf(lfo.SetRate(syncLabel(cfg)), "lfo%d rate", i+1)
	lfo.Sync()
}

// Source resolves a source name. Unknown names report false and the
// routing should be skipped.
func (m *Manager) Source(name patch.Source) (audio.Node, bool) {
	switch name {
	case patch.SourceLFO1:
		return m.lfos[0], true
	case patch.SourceLFO2:
		return m.lfos[1], true
	case patch.SourceEnv1:
		return m.envs[0], true
	case patch.SourceEnv2:
		return m.envs[1], true
	case patch.SourceVelocity:
		return m.velocity, true
	case patch.SourceKeytrack:
		return m.keytrack, true
	case patch.SourceModWheel:
		return m.modWheel, true
	case patch.SourceAftertouch:
		return m.aftertouch, true
	}
	m.log.Debug("unknown modulation source %q", name)
	return nil, false
}

// Target resolves the destinations owned by the manager: the LFO rates.
func (m *Manager) Target(name patch.Destination) (audio.Input, bool) {
	switch name {
	case patch.DestLFO1Rate:
		return m.lfos[0].Frequency, true
	case patch.DestLFO2Rate:
		return m.lfos[1].Frequency, true
	}
	return nil, false
}

// LFOEnabled reports whether LFO i was configured to run.
func (m *Manager) LFOEnabled(i int) bool {
	return m.lfoCfg[i].Enabled
}

// LFO returns LFO i (0 or 1).
func (m *Manager) LFO(i int) *audio.LFO { return m.lfos[i] }

// Envelope returns auxiliary envelope i (0 or 1).
func (m *Manager) Envelope(i int) *audio.Envelope { return m.envs[i] }

// Velocity returns the velocity controller signal.
func (m *Manager) Velocity() *audio.Signal { return m.velocity }

// Keytrack returns the key-tracking controller signal.
func (m *Manager) Keytrack() *audio.Signal { return m.keytrack }

// ModWheel returns the mod wheel controller signal.
func (m *Manager) ModWheel() *audio.Signal { return m.modWheel }

// Aftertouch returns the aftertouch controller signal.
func (m *Manager) Aftertouch() *audio.Signal { return m.aftertouch }

// TriggerAttack fires both auxiliary envelopes.
func (m *Manager) TriggerAttack(t float64) {
	for _, env := range m.envs {
		env.TriggerAttack(t, 1)
	}
}

// TriggerRelease releases both auxiliary envelopes.
func (m *Manager) TriggerRelease(t float64) {
	for _, env := range m.envs {
		env.TriggerRelease(t)
	}
}

func midiUnit(raw float64) float64 {
	return max(0, min(1, raw/127))
}

// SetVelocity writes a MIDI velocity (0..127).
func (m *Manager) SetVelocity(raw float64) { m.velocity.SetValue(midiUnit(raw)) }

// SetKeytrack writes a MIDI note number (0..127).
func (m *Manager) SetKeytrack(note int) { m.keytrack.SetValue(midiUnit(float64(note))) }

// SetModWheel writes a mod wheel position (0..127).
func (m *Manager) SetModWheel(raw float64) { m.modWheel.SetValue(midiUnit(raw)) }

// SetAftertouch writes a channel pressure value (0..127).
func (m *Manager) SetAftertouch(raw float64) { m.aftertouch.SetValue(midiUnit(raw)) }

// UpdateLFO applies a live edit to LFO i. Start/stop happens first, then
// sync changes, then the remaining fields.
func (m *Manager) UpdateLFO(i int, cfg patch.LFOConfig) {
	if i < 0 || i > 1 {
		return
	}
	old := m.lfoCfg[i]
	lfo := m.lfos[i]
	now := m.ctx.Now()

	switch {
	case cfg.Enabled && !old.Enabled:
		lfo.Start(now)
	case !cfg.Enabled && old.Enabled:
		lfo.Stop(now)
	}

	switch {
	case cfg.Sync && !old.Sync:
		m.sync(i, cfg)
	case !cfg.Sync && old.Sync:
		lfo.Unsync()
		lfo.Frequency.SetValue(cfg.Frequency)
	}

	if cfg.Waveform != old.Waveform {
		m.log.DebugIf(lfo.SetType(cfg.Waveform), "lfo%d waveform", i+1)
	}
	if cfg.Frequency != old.Frequency || cfg.SyncRate != old.SyncRate {
		m.setFrequency(i, cfg)
	}
	if cfg.Amplitude != old.Amplitude {
		lfo.Amplitude.SetValue(cfg.Amplitude)
	}
	if cfg.Phase != old.Phase {
		lfo.SetPhase(cfg.Phase)
	}
	m.lfoCfg[i] = cfg
}

func (m *Manager) setFrequency(i int, cfg patch.LFOConfig) {
	lfo := m.lfos[i]
	if lfo.Synced() {
		m.log.DebugIf(lfo.SetRate(syncLabel(cfg)), "lfo%d rate", i+1)
		return
	}
	lfo.Frequency.SetValue(cfg.Frequency)
}

// SetLFOParam is the fast path for a single LFO field.
func (m *Manager) SetLFOParam(i int, field param.LFOField, value float64) {
	if i < 0 || i > 1 {
		return
	}
	cfg := m.lfoCfg[i]
	switch field {
	case param.LFOFrequency:
		cfg.Frequency = value
		m.setFrequency(i, cfg)
	case param.LFOAmplitude:
		cfg.Amplitude = value
		m.lfos[i].Amplitude.SetValue(value)
	case param.LFOPhase:
		cfg.Phase = value
		m.lfos[i].SetPhase(value)
	default:
		m.log.Debug("unknown lfo field %v", field)
		return
	}
	m.lfoCfg[i] = cfg
}

// UpdateEnvelope applies new settings to auxiliary envelope i.
func (m *Manager) UpdateEnvelope(i int, cfg patch.EnvelopeConfig) {
	if i < 0 || i > 1 {
		return
	}
	m.envs[i].Set(cfg.Options())
}

// RegisterConnection records the intermediate nodes of one routing so
// ClearConnections can remove them.
func (m *Manager) RegisterConnection(key string, nodes ...audio.Node) {
	if _, ok := m.connections[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.connections[key] = append(m.connections[key], nodes...)
}

// Connections returns the registered routing keys in registration order.
func (m *Manager) Connections() []string {
	return slices.Clone(m.keys)
}

// ConnectionNodes returns the nodes registered under key.
func (m *Manager) ConnectionNodes(key string) []audio.Node {
	return slices.Clone(m.connections[key])
}

// ClearConnections disconnects every registered node, then disposes them.
// Nothing is disposed until everything is disconnected so a disposal cannot
// tear down a connection another routing still holds. Failures are logged.
func (m *Manager) ClearConnections() {
	for _, key := range m.keys {
		for _, n := range m.connections[key] {
			m.log.WarnIf(n.Disconnect(), "disconnect %s (%s)", n.Name(), key)
		}
	}
	for _, key := range m.keys {
		for _, n := range m.connections[key] {
			if n.Disposed() {
				continue
			}
			m.log.WarnIf(n.Dispose(), "dispose %s (%s)", n.Name(), key)
		}
	}
	clear(m.connections)
	m.keys = m.keys[:0]
}

// Dispose clears every routing and frees the sources.
func (m *Manager) Dispose() {
	m.ClearConnections()
	now := m.ctx.Now()
	var nodes []audio.Node
	for i := range 2 {
		if m.lfos[i] != nil {
			m.lfos[i].Stop(now)
			nodes = append(nodes, m.lfos[i])
		}
		if m.envs[i] != nil {
			nodes = append(nodes, m.envs[i])
		}
	}
	for _, s := range []*audio.Signal{m.velocity, m.keytrack, m.modWheel, m.aftertouch} {
		if s != nil {
			nodes = append(nodes, s)
		}
	}

	var errs []error
	for _, n := range nodes {
		errs = append(errs, n.Disconnect())
	}
	for _, n := range nodes {
		if !n.Disposed() {
			errs = append(errs, n.Dispose())
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.log.Warn("dispose modulation: %v", err)
	}
}
