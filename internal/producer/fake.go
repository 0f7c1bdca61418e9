package producer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jmylchreest/airwave/internal/schedule"
)

// FakeCall records one operation against the Fake.
type FakeCall struct {
	Op         string
	Asset      string
	StartFrame int64
	FrameCount int64
	FPSNum     int64
	FPSDen     int64
	BoundaryMs int64
	At         time.Time
}

// Fake is a scripted Producer for tests. Behavior is driven by the
// exported knobs; every operation is recorded and the preview/switch
// ordering contract is enforced so tests catch ill-ordered callers.
type Fake struct {
	// StartErr makes Start fail.
	StartErr error
	// PreviewErr makes the next LoadPreview return it (one-shot).
	PreviewErr error
	// PreviewNotReady makes the next LoadPreview return (false, nil)
	// (one-shot).
	PreviewNotReady bool
	// SwitchErr makes the next SwitchToLive return it (one-shot).
	SwitchErr error
	// AutoCompleteSwitch makes SwitchToLive report completion on the
	// first poll after arming.
	AutoCompleteSwitch bool

	mu             sync.Mutex
	calls          []FakeCall
	started        bool
	stopped        bool
	previewLoaded  bool
	previewAsset   string
	currentAsset   string
	switchArmed    bool
	switchBoundary int64
	switchComplete bool
	switches       int64

	out *io.PipeReader
	in  *io.PipeWriter
}

// NewFake creates a Fake whose Output is an open pipe; use Feed to push
// bytes through it.
func NewFake() *Fake {
	r, w := io.Pipe()
	return &Fake{out: r, in: w}
}

func (f *Fake) record(c FakeCall) {
	c.At = time.Now().UTC()
	f.calls = append(f.calls, c)
}

// Calls returns a copy of the recorded operations.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded operations matching op.
func (f *Fake) CallsTo(op string) []FakeCall {
	var out []FakeCall
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Feed pushes bytes into the Output stream; blocks until consumed.
func (f *Fake) Feed(b []byte) error {
	_, err := f.in.Write(b)
	return err
}

// CompleteSwitch marks the armed switch as done; the next SwitchToLive
// poll reports success.
func (f *Fake) CompleteSwitch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchComplete = true
}

// Start implements Producer.
func (f *Fake) Start(_ context.Context, plan []schedule.Segment, startAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "Start"})
	if f.StartErr != nil {
		return f.StartErr
	}
	f.started = true
	if len(plan) > 0 {
		f.currentAsset = plan[0].AssetPath
	}
	return nil
}

// LoadPreview implements Producer.
func (f *Fake) LoadPreview(_ context.Context, asset string, startFrame, frameCount, fpsNum, fpsDen int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "LoadPreview", Asset: asset, StartFrame: startFrame, FrameCount: frameCount, FPSNum: fpsNum, FPSDen: fpsDen})
	if f.stopped {
		return false, ErrStopped
	}
	if f.switchArmed && !f.switchComplete {
		return false, ErrProtocolViolation
	}
	if f.PreviewErr != nil {
		err := f.PreviewErr
		f.PreviewErr = nil
		return false, err
	}
	if f.PreviewNotReady {
		f.PreviewNotReady = false
		return false, nil
	}
	f.previewLoaded = true
	f.previewAsset = asset
	return true, nil
}

// SwitchToLive implements Producer.
func (f *Fake) SwitchToLive(_ context.Context, targetBoundaryMs int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "SwitchToLive", BoundaryMs: targetBoundaryMs})
	if f.stopped {
		return false, ErrStopped
	}
	if f.SwitchErr != nil {
		err := f.SwitchErr
		f.SwitchErr = nil
		return false, err
	}
	if !f.switchArmed {
		if !f.previewLoaded {
			return false, ErrProtocolViolation
		}
		f.switchArmed = true
		f.switchBoundary = targetBoundaryMs
		if f.AutoCompleteSwitch {
			f.switchComplete = true
		}
	} else if targetBoundaryMs != f.switchBoundary {
		return false, ErrProtocolViolation
	}
	if !f.switchComplete {
		return false, nil
	}
	f.switchArmed = false
	f.switchComplete = false
	f.previewLoaded = false
	f.currentAsset = f.previewAsset
	f.previewAsset = ""
	f.switches++
	return true, nil
}

// Stop implements Producer.
func (f *Fake) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "Stop"})
	if f.stopped {
		return nil
	}
	f.stopped = true
	f.in.Close()
	return nil
}

// Stopped reports whether Stop has been called.
func (f *Fake) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// Health implements Producer.
func (f *Fake) Health() Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.stopped:
		return HealthStopped
	case f.started:
		return HealthRunning
	default:
		return HealthStopped
	}
}

// GetState implements Producer.
func (f *Fake) GetState() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := State{Health: HealthStopped, CurrentAsset: f.currentAsset, PreviewAsset: f.previewAsset, Switches: f.switches}
	if f.started && !f.stopped {
		s.Health = HealthRunning
	}
	return s
}

// Output implements Producer.
func (f *Fake) Output() io.ReadCloser {
	return f.out
}
