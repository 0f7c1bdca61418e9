package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StaticProvider serves playout plans from an in-memory grid per channel.
// Used for demo mode and tests; production channels use StoreProvider.
type StaticProvider struct {
	mu    sync.RWMutex
	grids map[string]Grid
}

// NewStaticProvider creates an empty StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{grids: make(map[string]Grid)}
}

// SetGrid installs or replaces the grid for a channel.
func (p *StaticProvider) SetGrid(channelID string, grid Grid) error {
	if err := grid.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grids[channelID] = grid
	return nil
}

// RemoveGrid drops a channel's grid; subsequent queries return no data.
func (p *StaticProvider) RemoveGrid(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.grids, channelID)
}

// PlayoutPlanNow implements Provider.
func (p *StaticProvider) PlayoutPlanNow(_ context.Context, channelID string, at time.Time) ([]Segment, error) {
	if at.IsZero() {
		return nil, fmt.Errorf("playout plan query for channel %s: zero timestamp", channelID)
	}
	p.mu.RLock()
	grid, ok := p.grids[channelID]
	p.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return grid.SegmentsAt(at, 2), nil
}
