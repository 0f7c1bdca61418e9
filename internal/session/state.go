package session

import "fmt"

// State is the boundary lifecycle state. The machine is a DAG per boundary
// with one back-edge (LIVE restarts the cycle for the next boundary) and an
// absorbing terminal.
type State string

// Boundary lifecycle states.
const (
	StateNone            State = "NONE"
	StatePlanned         State = "PLANNED"
	StatePreloadIssued   State = "PRELOAD_ISSUED"
	StateSwitchScheduled State = "SWITCH_SCHEDULED"
	StateSwitchIssued    State = "SWITCH_ISSUED"
	StateLive            State = "LIVE"
	StateFailedTerminal  State = "FAILED_TERMINAL"
)

// SubState tracks producer execution inside a boundary cycle, forbidding
// preview loads while a switch is armed.
type SubState string

// Producer execution sub-states.
const (
	SubIdle          SubState = "IDLE"
	SubPreviewLoaded SubState = "PREVIEW_LOADED"
	SubSwitchArmed   SubState = "SWITCH_ARMED"
)

// legalEdges is the complete set of allowed transitions, FAILED_TERMINAL
// entries excepted (reachable from every non-terminal state).
var legalEdges = map[State]map[State]bool{
	StateNone:            {StatePlanned: true},
	StatePlanned:         {StatePreloadIssued: true},
	StatePreloadIssued:   {StateSwitchScheduled: true},
	StateSwitchScheduled: {StateSwitchIssued: true},
	StateSwitchIssued:    {StateLive: true},
	StateLive:            {StateNone: true, StatePlanned: true},
}

// Stable reports whether the state admits immediate teardown.
func (s State) Stable() bool {
	switch s {
	case StateNone, StateLive, StateFailedTerminal:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to State) bool {
	if to == StateFailedTerminal {
		return from != StateFailedTerminal
	}
	return legalEdges[from][to]
}

// errIllegalTransition records the offending edge.
func errIllegalTransition(from, to State) error {
	return fmt.Errorf("illegal boundary transition %s -> %s", from, to)
}
