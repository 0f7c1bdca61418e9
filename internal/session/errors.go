package session

import (
	"errors"

	"github.com/jmylchreest/airwave/internal/producer"
)

// Kind classifies terminal and reportable session failures.
type Kind string

// Failure kinds.
const (
	// KindProducerStartup: the producer adapter could not be built or started.
	KindProducerStartup Kind = "ProducerStartup"
	// KindNoScheduleData: the provider returned empty for a running channel.
	KindNoScheduleData Kind = "NoScheduleData"
	// KindChannelFailed: top-level rollup for a session that cannot get on-air.
	KindChannelFailed Kind = "ChannelFailed"
	// KindScheduling: infeasible boundary, late issuance, boundary mismatch,
	// illegal transition, grace or convergence timeout. Producer timing and
	// protocol violations map here at the session boundary.
	KindScheduling Kind = "Scheduling"
	// KindTransport: fan-out delivery failure; never terminal for the session.
	KindTransport Kind = "Transport"
)

// FatalError is a terminal session failure.
type FatalError struct {
	Kind       Kind
	Invariant  string
	BoundaryMs int64
	Err        error
}

// Error implements error.
func (e *FatalError) Error() string {
	msg := string(e.Kind)
	if e.Invariant != "" {
		msg += ": " + e.Invariant
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause.
func (e *FatalError) Unwrap() error { return e.Err }

func newFatal(kind Kind, invariant string, boundaryMs int64, err error) *FatalError {
	return &FatalError{Kind: kind, Invariant: invariant, BoundaryMs: boundaryMs, Err: err}
}

// kindForProducerErr maps producer failure classes to session kinds.
func kindForProducerErr(err error) Kind {
	switch {
	case errors.Is(err, producer.ErrStartup):
		return KindProducerStartup
	case errors.Is(err, producer.ErrTiming), errors.Is(err, producer.ErrProtocolViolation):
		return KindScheduling
	default:
		return KindScheduling
	}
}
