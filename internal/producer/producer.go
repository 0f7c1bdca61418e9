// Package producer defines the adapter contract over an external playout
// engine, plus a scripted fake for tests and a TS test-signal source for
// demo mode.
package producer

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jmylchreest/airwave/internal/schedule"
)

// Health is the producer's coarse liveness.
type Health string

// Health values.
const (
	HealthRunning  Health = "running"
	HealthDegraded Health = "degraded"
	HealthStopped  Health = "stopped"
)

// Producer failure classes. The session maps Timing and ProtocolViolation
// to its Scheduling kind; Startup rolls up to ProducerStartup.
var (
	// ErrStartup means the engine could not be constructed or started.
	ErrStartup = errors.New("producer startup failed")

	// ErrProtocolViolation means an operation arrived out of order for the
	// engine (e.g. a preview load while a switch is armed).
	ErrProtocolViolation = errors.New("producer protocol violation")

	// ErrTiming means the engine rejected an operation as too late or too
	// early for its declared deadline.
	ErrTiming = errors.New("producer timing violation")

	// ErrStopped means the producer has already been stopped.
	ErrStopped = errors.New("producer stopped")
)

// State is a point-in-time snapshot for status surfaces.
type State struct {
	Health       Health    `json:"health"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	CurrentAsset string    `json:"current_asset,omitempty"`
	PreviewAsset string    `json:"preview_asset,omitempty"`
	Switches     int64     `json:"switches"`
}

// Producer is an opaque handle over one playout engine instance.
//
// Implementations must preserve frame-exact parameters and accept the
// millisecond boundary on SwitchToLive verbatim: a switch either promotes
// exactly at the target or fails, never earlier or later silently.
// Operations may block on I/O; callers bound them with the context.
type Producer interface {
	// Start brings the engine up with the initial plan at startAt.
	Start(ctx context.Context, plan []schedule.Segment, startAt time.Time) error

	// LoadPreview loads a frame-exact preview of the successor asset.
	// Returns (false, nil) when the engine is not ready yet; the caller may
	// retry. Errors are transport or encoder failures.
	LoadPreview(ctx context.Context, asset string, startFrame, frameCount, fpsNum, fpsDen int64) (bool, error)

	// SwitchToLive promotes the loaded preview at targetBoundaryMs (UTC
	// milliseconds). Returns (false, nil) while the promotion is still
	// pending; callers poll until true. Calling again after completion
	// reports (true, nil).
	SwitchToLive(ctx context.Context, targetBoundaryMs int64) (bool, error)

	// Stop tears the engine down. Best-effort; never waits for EOF.
	Stop(ctx context.Context) error

	// Health reports coarse liveness without blocking.
	Health() Health

	// GetState returns a status snapshot.
	GetState() State

	// Output is the single upstream TS byte stream fed to the fan-out
	// router. It reaches EOF when the producer stops.
	Output() io.ReadCloser
}
