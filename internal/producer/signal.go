package producer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/asticode/go-astits"

	"github.com/jmylchreest/airwave/internal/clock"
	"github.com/jmylchreest/airwave/internal/schedule"
)

const (
	signalPID        = 256
	signalPESStream  = 0xBD // private_stream_1
	signalTickEvery  = 100 * time.Millisecond
	signalTablesEach = 50 // mux PAT/PMT every N payloads
)

// Signal is a self-contained Producer that muxes a synthetic MPEG-TS
// stream, used in demo mode so the whole tune-in path works without an
// external playout engine. The payload is a labelled counter carried in
// private PES packets; switches promote exactly at the target boundary
// against the runtime clock.
type Signal struct {
	log *slog.Logger
	clk clock.Clock

	mu             sync.Mutex
	started        bool
	stopped        bool
	startedAt      time.Time
	currentAsset   string
	previewAsset   string
	previewLoaded  bool
	switchArmed    bool
	switchBoundary int64
	switches       int64
	cancel         context.CancelFunc

	out *io.PipeReader
	in  *io.PipeWriter
}

// NewSignal creates a Signal producer.
func NewSignal(log *slog.Logger, clk clock.Clock) *Signal {
	r, w := io.Pipe()
	return &Signal{log: log, clk: clk, out: r, in: w}
}

// Start implements Producer.
func (s *Signal) Start(_ context.Context, plan []schedule.Segment, startAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("%w: %w", ErrStartup, ErrStopped)
	}
	if s.started {
		return nil
	}
	if len(plan) == 0 {
		return fmt.Errorf("%w: empty initial plan", ErrStartup)
	}
	s.started = true
	s.startedAt = startAt
	s.currentAsset = plan[0].AssetPath

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(runCtx)
	return nil
}

// run muxes the synthetic stream until cancelled or the reader goes away.
func (s *Signal) run(ctx context.Context) {
	defer s.in.Close()

	mux := astits.NewMuxer(ctx, s.in)
	if err := mux.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: signalPID,
		StreamType:    astits.StreamTypeMetadata,
	}); err != nil {
		s.log.Error("test signal: adding elementary stream", "error", err)
		return
	}
	mux.SetPCRPID(signalPID)

	ticker := time.NewTicker(signalTickEvery)
	defer ticker.Stop()

	start := time.Now()
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if seq%signalTablesEach == 0 {
			if _, err := mux.WriteTables(); err != nil {
				return
			}
		}

		s.mu.Lock()
		asset := s.currentAsset
		s.mu.Unlock()

		pts := int64(time.Since(start).Seconds() * 90000)
		payload := fmt.Sprintf("airwave-signal asset=%s seq=%d", asset, seq)
		_, err := mux.WriteData(&astits.MuxerData{
			PID: signalPID,
			PES: &astits.PESData{
				Header: &astits.PESHeader{
					StreamID: signalPESStream,
					OptionalHeader: &astits.PESOptionalHeader{
						MarkerBits:      2,
						PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
						PTS:             &astits.ClockReference{Base: pts},
					},
				},
				Data: []byte(payload),
			},
		})
		if err != nil {
			return
		}
		seq++
	}
}

// LoadPreview implements Producer.
func (s *Signal) LoadPreview(_ context.Context, asset string, _, _, _, _ int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false, ErrStopped
	}
	if s.switchArmed {
		return false, ErrProtocolViolation
	}
	s.previewLoaded = true
	s.previewAsset = asset
	return true, nil
}

// SwitchToLive implements Producer. Promotion completes on the first poll
// at or after the target boundary.
func (s *Signal) SwitchToLive(_ context.Context, targetBoundaryMs int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false, ErrStopped
	}
	if !s.switchArmed {
		if !s.previewLoaded {
			return false, ErrProtocolViolation
		}
		if s.clk.NowUTC().UnixMilli() > targetBoundaryMs {
			return false, fmt.Errorf("%w: boundary %d already past", ErrTiming, targetBoundaryMs)
		}
		s.switchArmed = true
		s.switchBoundary = targetBoundaryMs
	} else if targetBoundaryMs != s.switchBoundary {
		return false, fmt.Errorf("%w: armed for %d, asked for %d", ErrProtocolViolation, s.switchBoundary, targetBoundaryMs)
	}
	if s.clk.NowUTC().UnixMilli() < s.switchBoundary {
		return false, nil
	}
	s.switchArmed = false
	s.previewLoaded = false
	s.currentAsset = s.previewAsset
	s.previewAsset = ""
	s.switches++
	return true, nil
}

// Stop implements Producer.
func (s *Signal) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.in.Close()
	return nil
}

// Health implements Producer.
func (s *Signal) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped, !s.started:
		return HealthStopped
	default:
		return HealthRunning
	}
}

// GetState implements Producer.
func (s *Signal) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Health:       HealthStopped,
		StartedAt:    s.startedAt,
		CurrentAsset: s.currentAsset,
		PreviewAsset: s.previewAsset,
		Switches:     s.switches,
	}
	if s.started && !s.stopped {
		st.Health = HealthRunning
	}
	return st
}

// Output implements Producer.
func (s *Signal) Output() io.ReadCloser {
	return s.out
}
