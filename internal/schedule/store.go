package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/airwave/internal/models"
	"github.com/jmylchreest/airwave/internal/repository"
)

// Default frame rate for store-backed channels (NTSC broadcast rate).
const (
	DefaultFPSNum int64 = 30000
	DefaultFPSDen int64 = 1001
)

// StoreProvider derives playout plans from persisted channels and their
// active plan. The channel row supplies the grid geometry; the plan's
// program rows supply the content and filler assets. Reads only, so the
// provider stays pure.
type StoreProvider struct {
	channels    repository.ChannelRepository
	plans       repository.PlanRepository
	fillerEpoch time.Time
}

// NewStoreProvider creates a StoreProvider over the given repositories.
// fillerEpoch anchors the continuous-virtual filler offset; zero means
// the Unix epoch.
func NewStoreProvider(channels repository.ChannelRepository, plans repository.PlanRepository, fillerEpoch time.Time) *StoreProvider {
	if fillerEpoch.IsZero() {
		fillerEpoch = time.Unix(0, 0).UTC()
	}
	return &StoreProvider{channels: channels, plans: plans, fillerEpoch: fillerEpoch}
}

// PlayoutPlanNow implements Provider. An empty result means the channel
// has no usable schedule data (unknown channel, disabled, or no active
// plan with a program entry).
func (p *StoreProvider) PlayoutPlanNow(ctx context.Context, channelID string, at time.Time) ([]Segment, error) {
	id, err := models.ParseULID(channelID)
	if err != nil {
		return nil, fmt.Errorf("playout plan query: %w", err)
	}
	ch, err := p.channels.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("playout plan query: %w", err)
	}
	if ch == nil || !ch.IsEnabled() {
		return nil, nil
	}
	plan, err := p.plans.GetActiveForChannel(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("playout plan query: %w", err)
	}
	if plan == nil {
		return nil, nil
	}

	grid, ok := p.gridFromPlan(ch, plan)
	if !ok {
		return nil, nil
	}
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("channel %s grid: %w", ch.Name, err)
	}
	return grid.SegmentsAt(at, 2), nil
}

// gridFromPlan folds the plan's program rows into grid geometry: the first
// program row defines the content slot, the first filler row the pad
// asset. A plan without a program row yields no schedule.
func (p *StoreProvider) gridFromPlan(ch *models.Channel, plan *models.Plan) (Grid, bool) {
	grid := Grid{
		BlockMinutes: ch.GridBlockMinutes,
		FillerEpoch:  p.fillerEpoch,
		FPSNum:       DefaultFPSNum,
		FPSDen:       DefaultFPSDen,
	}
	for _, prog := range plan.Programs {
		switch prog.ContentType {
		case models.ContentTypeProgram:
			if grid.ProgramAsset == "" {
				grid.ProgramAsset = prog.ContentRef
				grid.ProgramMinutes = prog.DurationMin
			}
		case models.ContentTypeFiller:
			if grid.FillerAsset == "" {
				grid.FillerAsset = prog.ContentRef
				grid.FillerLoopS = float64(prog.DurationMin) * 60
			}
		}
	}
	if grid.ProgramAsset == "" {
		return Grid{}, false
	}
	if grid.ProgramMinutes >= grid.BlockMinutes {
		grid.ProgramMinutes = grid.BlockMinutes
	}
	if grid.FillerAsset == "" {
		// No filler row: the program fills the whole block.
		grid.ProgramMinutes = grid.BlockMinutes
	}
	return grid, true
}
