package director

import (
	"context"
	"sync"
)

// Static is an in-memory Director for demo mode and tests.
type Static struct {
	mu          sync.RWMutex
	defaultMode Mode
	modes       map[string]Mode
	channels    map[string]Channel
	order       []string
}

// NewStatic creates a Static director with the given default mode.
func NewStatic(defaultMode Mode) *Static {
	if defaultMode == "" {
		defaultMode = ModeNormal
	}
	return &Static{
		defaultMode: defaultMode,
		modes:       make(map[string]Mode),
		channels:    make(map[string]Channel),
	}
}

// AddChannel registers a channel; enumeration preserves insertion order.
func (d *Static) AddChannel(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.channels[ch.ID]; !ok {
		d.order = append(d.order, ch.ID)
	}
	d.channels[ch.ID] = ch
}

// RemoveChannel pulls a channel off air.
func (d *Static) RemoveChannel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.channels, id)
	delete(d.modes, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// SetMode overrides the mode for one channel.
func (d *Static) SetMode(id string, mode Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes[id] = mode
}

// Mode implements Director.
func (d *Static) Mode(_ context.Context, channelID string) Mode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if m, ok := d.modes[channelID]; ok {
		return m
	}
	return d.defaultMode
}

// Channels implements Director.
func (d *Static) Channels(_ context.Context) ([]Channel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Channel, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.channels[id])
	}
	return out, nil
}

// Available implements Director.
func (d *Static) Available(_ context.Context, channelID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.channels[channelID]
	return ok
}
