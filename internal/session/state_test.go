package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]State{
		{StateNone, StatePlanned},
		{StatePlanned, StatePreloadIssued},
		{StatePreloadIssued, StateSwitchScheduled},
		{StateSwitchScheduled, StateSwitchIssued},
		{StateSwitchIssued, StateLive},
		{StateLive, StateNone},
		{StateLive, StatePlanned},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	all := []State{StateNone, StatePlanned, StatePreloadIssued, StateSwitchScheduled, StateSwitchIssued, StateLive, StateFailedTerminal}

	// Every non-terminal state can fail; the terminal absorbs.
	for _, from := range all {
		if from == StateFailedTerminal {
			assert.False(t, CanTransition(from, StateFailedTerminal))
			continue
		}
		assert.True(t, CanTransition(from, StateFailedTerminal), "%s -> FAILED_TERMINAL", from)
	}

	// Nothing leaves the terminal state, and skipping stages is illegal.
	for _, to := range all {
		assert.False(t, CanTransition(StateFailedTerminal, to), "FAILED_TERMINAL -> %s", to)
	}
	assert.False(t, CanTransition(StateNone, StateLive))
	assert.False(t, CanTransition(StatePlanned, StateSwitchIssued))
	assert.False(t, CanTransition(StateSwitchIssued, StatePlanned))
	assert.False(t, CanTransition(StateLive, StateSwitchIssued))
}

func TestStable(t *testing.T) {
	assert.True(t, StateNone.Stable())
	assert.True(t, StateLive.Stable())
	assert.True(t, StateFailedTerminal.Stable())
	assert.False(t, StatePlanned.Stable())
	assert.False(t, StatePreloadIssued.Stable())
	assert.False(t, StateSwitchScheduled.Stable())
	assert.False(t, StateSwitchIssued.Stable())
}
