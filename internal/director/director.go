// Package director holds the global playout policy: which channels exist,
// what mode each should run in, and whether a channel has been pulled.
package director

import (
	"context"
	"fmt"
)

// Mode selects the playout profile the producer is built for.
type Mode string

// Recognized modes.
const (
	ModeNormal    Mode = "normal"
	ModeEmergency Mode = "emergency"
	ModeGuide     Mode = "guide"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNormal, ModeEmergency, ModeGuide:
		return Mode(s), nil
	case "":
		return ModeNormal, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Channel is the director's view of a tunable channel.
type Channel struct {
	ID          string
	Name        string
	DisplayName string
}

// Director is the policy authority consulted by the orchestrator and the
// HTTP surface. Implementations must be safe for concurrent use.
type Director interface {
	// Mode returns the playout mode the channel should run in.
	Mode(ctx context.Context, channelID string) Mode

	// Channels enumerates the tunable channels for playlist generation.
	Channels(ctx context.Context) ([]Channel, error)

	// Available reports whether the channel may be (or stay) on air.
	// A channel the director has pulled is stopped on the next tick even
	// with viewers attached.
	Available(ctx context.Context, channelID string) bool
}
