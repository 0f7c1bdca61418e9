package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/airwave/internal/clock"
	"github.com/jmylchreest/airwave/internal/models"
	"github.com/jmylchreest/airwave/internal/observability"
	"github.com/jmylchreest/airwave/internal/repository"
)

// PlanSync periodically re-evaluates plan activation for every enabled
// channel. A plan is eligible while its date range covers the broadcast
// day; plans with a cron expression are promoted when the expression fires
// inside the sync window, and among competing plans the highest priority
// wins.
type PlanSync struct {
	mu sync.Mutex

	channelRepo repository.ChannelRepository
	planRepo    repository.PlanRepository
	clk         clock.Clock
	logger      *slog.Logger

	parser       cron.Parser
	syncInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlanSync creates a plan sync loop.
func NewPlanSync(channelRepo repository.ChannelRepository, planRepo repository.PlanRepository, clk clock.Clock, syncInterval time.Duration, logger *slog.Logger) *PlanSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanSync{
		channelRepo:  channelRepo,
		planRepo:     planRepo,
		clk:          clk,
		logger:       observability.WithComponent(logger, "plan-sync"),
		parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		syncInterval: syncInterval,
	}
}

// Start begins the background sync loop.
func (s *PlanSync) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("plan sync already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.syncLoop()

	s.logger.Info("plan sync started", slog.Duration("sync_interval", s.syncInterval))
	return nil
}

// Stop stops the sync loop.
func (s *PlanSync) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("plan sync stopped")
}

func (s *PlanSync) syncLoop() {
	defer s.wg.Done()

	// Run immediately on start
	s.SyncOnce(s.ctx)

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(s.ctx)
		}
	}
}

// SyncOnce re-evaluates plan activation for every enabled channel.
func (s *PlanSync) SyncOnce(ctx context.Context) {
	channels, err := s.channelRepo.GetEnabled(ctx)
	if err != nil {
		s.logger.Error("failed to get channels for plan sync", slog.Any("error", err))
		return
	}

	for _, ch := range channels {
		if err := s.syncChannel(ctx, ch); err != nil {
			s.logger.Error("plan sync failed",
				slog.String("channel", ch.Name),
				slog.Any("error", err))
		}
	}
}

// syncChannel picks the channel's winning plan and flips activation when it
// differs from the current one.
func (s *PlanSync) syncChannel(ctx context.Context, ch *models.Channel) error {
	plans, err := s.planRepo.GetForChannel(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("loading plans: %w", err)
	}
	if len(plans) == 0 {
		return nil
	}

	now := s.clk.NowUTC()

	var current *models.Plan
	var eligible []*models.Plan
	for _, p := range plans {
		if p.IsActive {
			current = p
		}
		if p.CoversDate(now) {
			eligible = append(eligible, p)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority > eligible[j].Priority
	})

	winner := s.pickWinner(eligible, current, now)
	if winner == nil || (current != nil && winner.ID == current.ID) {
		return nil
	}

	if current != nil {
		if err := s.planRepo.SetActive(ctx, current.ID, false); err != nil {
			return fmt.Errorf("deactivating plan %s: %w", current.Name, err)
		}
	}
	if err := s.planRepo.SetActive(ctx, winner.ID, true); err != nil {
		return fmt.Errorf("activating plan %s: %w", winner.Name, err)
	}

	s.logger.Info("plan activated",
		slog.String("channel", ch.Name),
		slog.String("plan", winner.Name),
		slog.Int("priority", winner.Priority))
	return nil
}

// pickWinner selects the plan to activate. Cron-gated plans win only when
// their expression fires inside the sync window; without a due cron plan
// the highest-priority eligible plan takes over once no plan is active.
// An already-active plan is otherwise left alone.
func (s *PlanSync) pickWinner(eligible []*models.Plan, current *models.Plan, now time.Time) *models.Plan {
	for _, p := range eligible {
		if p.CronExpression != "" && s.isDue(p.CronExpression, now) {
			return p
		}
	}
	if current != nil && current.CoversDate(now) {
		return current
	}
	for _, p := range eligible {
		if p.CronExpression == "" {
			return p
		}
	}
	return nil
}

// isDue checks if a cron expression fires within the current sync window.
func (s *PlanSync) isDue(cronExpr string, now time.Time) bool {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		s.logger.Warn("invalid cron expression", slog.String("cron", cronExpr), slog.Any("error", err))
		return false
	}

	next := schedule.Next(now.Add(-s.syncInterval))
	return next.Before(now) || next.Equal(now)
}
