package audio

import (
	"errors"
	"math"
	"testing"
)

const testSampleRate = 44100.0

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func render(ctx *Context, frames int) ([]float32, []float32) {
	left := make([]float32, frames)
	right := make([]float32, frames)
	ctx.Render(left, right)
	return left, right
}

func TestConnectAndRender(t *testing.T) {
	ctx := NewContext(testSampleRate)
	sig := NewSignal(ctx, 0.5)
	gain := NewGain(ctx, 2)

	if err := sig.Connect(gain); err != nil {
		t.Fatalf("connect signal: %v", err)
	}
	if err := gain.Connect(ctx.Destination()); err != nil {
		t.Fatalf("connect gain: %v", err)
	}

	left, right := render(ctx, 300)
	for i := range left {
		if left[i] != 1 || right[i] != 1 {
			t.Fatalf("frame %d: got (%f, %f), want (1, 1)", i, left[i], right[i])
		}
	}
	if ctx.Frame() != 300 {
		t.Errorf("Expected frame 300, got %d", ctx.Frame())
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	ctx := NewContext(testSampleRate)
	sig := NewSignal(ctx, 1)
	gain := NewGain(ctx, 1)

	for i := 0; i < 3; i++ {
		if err := sig.Connect(gain); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
	}
	if sig.Outputs() != 1 {
		t.Errorf("Expected 1 output, got %d", sig.Outputs())
	}
	if !sig.IsConnectedTo(gain) {
		t.Error("Expected signal to be connected to gain")
	}
}

func TestDisconnect(t *testing.T) {
	ctx := NewContext(testSampleRate)
	sig := NewSignal(ctx, 1)
	a := NewGain(ctx, 1)
	b := NewGain(ctx, 1)

	if err := sig.Connect(a); err != nil {
		t.Fatal(err)
	}

	t.Run("not connected", func(t *testing.T) {
		err := sig.Disconnect(b)
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("Expected ErrNotConnected, got %v", err)
		}
		if !sig.IsConnectedTo(a) {
			t.Error("Failed disconnect must not drop other connections")
		}
	})

	t.Run("named", func(t *testing.T) {
		if err := sig.Disconnect(a); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if sig.Outputs() != 0 {
			t.Errorf("Expected 0 outputs, got %d", sig.Outputs())
		}
	})

	t.Run("all", func(t *testing.T) {
		_ = sig.Connect(a)
		_ = sig.Connect(b)
		if err := sig.Disconnect(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if sig.Outputs() != 0 {
			t.Errorf("Expected 0 outputs, got %d", sig.Outputs())
		}
	})
}

func TestDispose(t *testing.T) {
	ctx := NewContext(testSampleRate)
	sig := NewSignal(ctx, 1)
	gain := NewGain(ctx, 1)
	_ = sig.Connect(gain.Gain)

	if err := sig.Dispose(); err != nil {
		t.Fatalf("first dispose: %v", err)
	}
	if !sig.Disposed() {
		t.Error("Expected node to report disposed")
	}
	if gain.Gain.Inputs() != 0 {
		t.Errorf("Dispose must disconnect outputs, param still has %d inputs", gain.Gain.Inputs())
	}
	if err := sig.Dispose(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed on second dispose, got %v", err)
	}
	if err := sig.Connect(gain); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed connecting a disposed node, got %v", err)
	}

	other := NewSignal(ctx, 1)
	_ = gain.Dispose()
	if err := other.Connect(gain); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed connecting to a disposed node, got %v", err)
	}
}

func TestConnectToSourceWithoutInput(t *testing.T) {
	ctx := NewContext(testSampleRate)
	lfo, err := NewLFO(ctx, LFOOptions{Frequency: 1})
	if err != nil {
		t.Fatal(err)
	}
	sig := NewSignal(ctx, 1)
	if err := sig.Connect(lfo); !errors.Is(err, ErrNoInput) {
		t.Errorf("Expected ErrNoInput, got %v", err)
	}
}

func TestSchedule(t *testing.T) {
	ctx := NewContext(testSampleRate)
	var order []int
	ctx.Schedule(0.02, func() { order = append(order, 2) })
	ctx.Schedule(0.01, func() { order = append(order, 1) })
	ctx.Schedule(0.02, func() { order = append(order, 3) })

	ctx.Advance(0.005)
	if len(order) != 0 {
		t.Fatalf("Nothing should run before its time, ran %v", order)
	}
	if ctx.Pending() != 3 {
		t.Errorf("Expected 3 pending calls, got %d", ctx.Pending())
	}

	ctx.Advance(0.05)
	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
	if ctx.Pending() != 0 {
		t.Errorf("Expected no pending calls, got %d", ctx.Pending())
	}
}

func TestPannerAndCrossFade(t *testing.T) {
	t.Run("pan center", func(t *testing.T) {
		ctx := NewContext(testSampleRate)
		sig := NewSignal(ctx, 1)
		pan := NewPanner(ctx, 0)
		_ = sig.Connect(pan)
		_ = pan.Connect(ctx.Destination())
		left, right := render(ctx, 4)
		if !near(float64(left[0]), 1, 1e-5) || !near(float64(right[0]), 1, 1e-5) {
			t.Errorf("Center pan should be unity, got (%f, %f)", left[0], right[0])
		}
	})

	t.Run("pan hard left", func(t *testing.T) {
		ctx := NewContext(testSampleRate)
		sig := NewSignal(ctx, 1)
		pan := NewPanner(ctx, -1)
		_ = sig.Connect(pan)
		_ = pan.Connect(ctx.Destination())
		_, right := render(ctx, 4)
		if !near(float64(right[0]), 0, 1e-5) {
			t.Errorf("Hard left should silence the right channel, got %f", right[0])
		}
	})

	t.Run("crossfade ends", func(t *testing.T) {
		ctx := NewContext(testSampleRate)
		a := NewSignal(ctx, 0.25)
		b := NewSignal(ctx, 0.75)
		xf := NewCrossFade(ctx, 0)
		_ = a.Connect(xf.A())
		_ = b.Connect(xf.B())
		_ = xf.Connect(ctx.Destination())

		left, _ := render(ctx, 4)
		if !near(float64(left[0]), 0.25, 1e-6) {
			t.Errorf("Fade 0 should pass A, got %f", left[0])
		}
		xf.Fade.SetValue(1)
		left, _ = render(ctx, 4)
		if !near(float64(left[0]), 0.75, 1e-6) {
			t.Errorf("Fade 1 should pass B, got %f", left[0])
		}
	})
}

func TestMathNodes(t *testing.T) {
	ctx := NewContext(testSampleRate)
	sig := NewSignal(ctx, 0.75)
	add := NewAdd(ctx, -0.5)
	mul := NewMultiply(ctx, 4)
	shape := NewWaveShaper(ctx, func(x float64) float64 { return 100 * (math.Exp2(x) - 1) })
	_ = sig.Connect(add)
	_ = add.Connect(mul)
	_ = mul.Connect(shape)
	_ = shape.Connect(ctx.Destination())

	left, _ := render(ctx, 1)
	if !near(float64(left[0]), 100, 1e-3) {
		t.Errorf("Expected 100 (one octave above base minus base), got %f", left[0])
	}
}
