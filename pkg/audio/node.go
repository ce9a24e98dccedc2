package audio

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDisposed is returned when operating on a disposed node.
	ErrDisposed = errors.New("node disposed")
	// ErrNotConnected is returned when disconnecting from a destination that is not connected.
	ErrNotConnected = errors.New("not connected")
	// ErrNoInput is returned when connecting to something that accepts no input.
	ErrNoInput = errors.New("destination has no input")
	// ErrUnsupported is returned for operations a node does not support in its current configuration.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrNotLiveEditable is returned for construction-only settings.
	ErrNotLiveEditable = errors.New("not editable after construction")
)

// block holds one render quantum of stereo audio.
type block [2][]float32

func newBlock() block {
	return block{make([]float32, BlockSize), make([]float32, BlockSize)}
}

func (b block) slice(n int) block {
	return block{b[0][:n], b[1][:n]}
}

// Input is anything a node can be connected to: a node input or a Param.
type Input interface {
	inputBus() *bus
}

// Node is the connection and lifecycle contract shared by every graph node.
type Node interface {
	Input
	Name() string
	Connect(dst Input) error
	Disconnect(dsts ...Input) error
	Dispose() error
	Disposed() bool
	IsConnectedTo(dst Input) bool
	Outputs() int
}

// bus sums every source connected to one input.
type bus struct {
	owner   *node
	sources []*node
	buf     block
	tick    int64
}

func newBus(owner *node) *bus {
	return &bus{owner: owner, buf: newBlock(), tick: -1}
}

func (b *bus) sum(frames int) block {
	out := b.buf.slice(frames)
	tick := b.owner.ctx.tick
	if b.tick == tick {
		return out
	}
	b.tick = tick
	clear(out[0])
	clear(out[1])
	for _, src := range b.sources {
		s := src.pull(frames)
		for ch := range out {
			for i := range out[ch] {
				out[ch][i] += s[ch][i]
			}
		}
	}
	return out
}

func (b *bus) remove(src *node) {
	if i := slices.Index(b.sources, src); i >= 0 {
		b.sources = slices.Delete(b.sources, i, i+1)
	}
}

func (b *bus) detachAll() {
	for _, src := range b.sources {
		if i := slices.Index(src.outs, b); i >= 0 {
			src.outs = slices.Delete(src.outs, i, i+1)
		}
	}
	b.sources = nil
}

// node is the shared implementation embedded by every concrete node.
type node struct {
	ctx      *Context
	name     string
	ins      []*bus
	outs     []*bus
	params   []*Param
	out      block
	tick     int64
	disposed bool

	process   func(out block, n int)
	onDispose []func()
}

func newNode(ctx *Context, name string, inputs int) *node {
	n := &node{
		ctx:  ctx,
		name: name,
		out:  newBlock(),
		tick: -1,
	}
	for i := 0; i < inputs; i++ {
		n.ins = append(n.ins, newBus(n))
	}
	return n
}

func (n *node) newParam(name string, units Units, value, minValue, maxValue float64) *Param {
	p := newParam(n, name, units, value, minValue, maxValue)
	n.params = append(n.params, p)
	return p
}

func (n *node) inputBus() *bus {
	if n == nil || len(n.ins) == 0 {
		return nil
	}
	return n.ins[0]
}

// input returns the summed signal at input i for the current block.
func (n *node) input(i, frames int) block {
	return n.ins[i].sum(frames)
}

// pull renders the node once per block and returns its output.
func (n *node) pull(frames int) block {
	out := n.out.slice(frames)
	if n.tick == n.ctx.tick {
		return out
	}
	n.tick = n.ctx.tick
	if n.disposed || n.process == nil {
		clear(out[0])
		clear(out[1])
		return out
	}
	n.process(out, frames)
	return out
}

// Name returns the node's display name.
func (n *node) Name() string {
	return n.name
}

// Disposed reports whether Dispose has been called.
func (n *node) Disposed() bool {
	return n.disposed
}

// Outputs returns the number of connected destinations.
func (n *node) Outputs() int {
	return len(n.outs)
}

// IsConnectedTo reports whether the node's output feeds dst.
func (n *node) IsConnectedTo(dst Input) bool {
	if dst == nil {
		return false
	}
	b := dst.inputBus()
	return b != nil && slices.Contains(n.outs, b)
}

// Connect routes the node's output into dst. Connecting twice is a no-op.
func (n *node) Connect(dst Input) error {
	if n.disposed {
		return fmt.Errorf("audio: connect %s: %w", n.name, ErrDisposed)
	}
	if dst == nil {
		return fmt.Errorf("audio: connect %s: %w", n.name, ErrNoInput)
	}
	b := dst.inputBus()
	if b == nil {
		return fmt.Errorf("audio: connect %s: %w", n.name, ErrNoInput)
	}
	if b.owner.disposed {
		return fmt.Errorf("audio: connect %s to %s: %w", n.name, b.owner.name, ErrDisposed)
	}
	if slices.Contains(n.outs, b) {
		return nil
	}
	n.outs = append(n.outs, b)
	b.sources = append(b.sources, n)
	return nil
}

// Disconnect removes the given destinations, or every destination when none
// are given. Naming a destination that is not connected is an error, but the
// remaining destinations are still disconnected.
func (n *node) Disconnect(dsts ...Input) error {
	if len(dsts) == 0 {
		for _, b := range n.outs {
			b.remove(n)
		}
		n.outs = nil
		return nil
	}

	var errs []error
	for _, dst := range dsts {
		var b *bus
		if dst != nil {
			b = dst.inputBus()
		}
		i := slices.Index(n.outs, b)
		if b == nil || i < 0 {
			errs = append(errs, fmt.Errorf("audio: disconnect %s: %w", n.name, ErrNotConnected))
			continue
		}
		n.outs = slices.Delete(n.outs, i, i+1)
		b.remove(n)
	}
	return errors.Join(errs...)
}

// Dispose disconnects the node from everything and releases it.
// Disposing twice returns ErrDisposed.
func (n *node) Dispose() error {
	if n.disposed {
		return fmt.Errorf("audio: dispose %s: %w", n.name, ErrDisposed)
	}
	_ = n.Disconnect()
	for _, b := range n.ins {
		b.detachAll()
	}
	for _, p := range n.params {
		p.in.detachAll()
	}
	n.disposed = true
	for _, fn := range n.onDispose {
		fn()
	}
	return nil
}
