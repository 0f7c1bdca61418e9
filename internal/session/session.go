// Package session implements the per-channel playout orchestrator: the
// boundary state machine, the clock-driven tick, deadline-scheduled switch
// issuance, startup convergence and deferred teardown.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jmylchreest/airwave/internal/clock"
	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/director"
	"github.com/jmylchreest/airwave/internal/metrics"
	"github.com/jmylchreest/airwave/internal/models"
	"github.com/jmylchreest/airwave/internal/observability"
	"github.com/jmylchreest/airwave/internal/producer"
	"github.com/jmylchreest/airwave/internal/router"
	"github.com/jmylchreest/airwave/internal/schedule"
)

const (
	// issuanceBuffer is subtracted from boundary - min_prefeed_lead when
	// scheduling the one-shot switch timer, so the producer has the full
	// lead after the call lands.
	issuanceBuffer = 500 * time.Millisecond

	// issuanceLateTolerance is how late the issuance timer may fire before
	// the session is failed.
	issuanceLateTolerance = 50 * time.Millisecond

	// historyCap bounds the retained transition history.
	historyCap = 64
)

// Invariant names used in violation logs and metrics.
const (
	invIssuanceDeadline     = "switch-issuance-deadline"
	invIssuanceOneShot      = "switch-issuance-oneshot"
	invBoundaryMatchesPlan  = "boundary-matches-plan"
	invBoundaryFeasibility  = "boundary-feasibility"
	invStartupConvergence   = "startup-convergence"
	invTeardownGrace        = "teardown-grace-timeout"
	invIllegalTransition    = "illegal-state-transition"
	invFrameBudget          = "segment-frame-budget"
	invSwitchBeforeExhaust  = "switch-before-exhaustion"
	invPreloadLeadViolation = "preload-min-lead"
)

// Session owns one channel's producer and fan-out router for one on-air
// lifetime. All mutable state is guarded by mu; the tick driver, the
// issuance timer callback and the viewer lifecycle paths all take it.
type Session struct {
	ID        string
	ChannelID string
	Mode      director.Mode

	log      *slog.Logger
	clk      clock.Clock
	provider schedule.Provider
	cfg      config.PlayoutConfig

	// afterFunc schedules the one-shot issuance timer; replaced in tests
	// to drive issuance against a fake clock.
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu       sync.Mutex
	prod     producer.Producer
	rtr      *router.Router
	state    State
	sub      SubState
	history  []State
	started  bool
	stopped  bool
	boundary time.Time
	next     *schedule.Segment

	converged   bool
	convergeBy  time.Time
	lateWarned  bool
	pendingErr  *FatalError
	failure     *FatalError
	issuance    *time.Timer
	issuedFor   int64
	teardownReq bool
	teardownBy  time.Time
	teardownRan bool

	viewers map[string]time.Time
}

// New creates an idle session for a channel. Start brings it on air.
func New(channelID string, mode director.Mode, clk clock.Clock, provider schedule.Provider, prod producer.Producer, rtr *router.Router, cfg config.PlayoutConfig, log *slog.Logger) *Session {
	id := models.NewULID().String()
	return &Session{
		ID:         id,
		ChannelID:  channelID,
		Mode:       mode,
		log:        observability.WithChannel(log, channelID).With("session_id", id),
		clk:        clk,
		provider:   provider,
		cfg:        cfg,
		afterFunc:  time.AfterFunc,
		prod:       prod,
		rtr:        rtr,
		state:      StateNone,
		sub:        SubIdle,
		history:    []State{StateNone},
		convergeBy: clk.NowUTC().Add(cfg.MaxStartupConvergence),
		viewers:    make(map[string]time.Time),
	}
}

// Start brings the producer up and plans the first boundary. The session
// is created whether or not that boundary is immediately feasible; the
// convergence rules resolve infeasibility on subsequent ticks.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	now := s.clk.NowUTC()
	plan, err := s.provider.PlayoutPlanNow(ctx, s.ChannelID, now)
	if err != nil {
		s.failLocked(newFatal(KindNoScheduleData, "", 0, err))
		return s.failure
	}
	if len(plan) == 0 {
		s.failLocked(newFatal(KindNoScheduleData, "", 0, fmt.Errorf("no schedule data for channel %s", s.ChannelID)))
		return s.failure
	}

	if err := s.prod.Start(ctx, plan, now); err != nil {
		s.failLocked(newFatal(kindForProducerErr(err), "", 0, err))
		return s.failure
	}
	s.started = true
	go s.serveRouter()

	s.boundary = s.firstBoundary(plan[0], now)
	s.transitionLocked(StatePlanned)
	s.log.Info("session started",
		"mode", string(s.Mode),
		"first_boundary", s.boundary.Format(observability.BoundaryTimeFormat),
	)
	return nil
}

// serveRouter pumps the producer's output through the fan-out until EOF.
func (s *Session) serveRouter() {
	if err := s.rtr.Serve(s.prod.Output()); err != nil {
		// Transport failures are not terminal for the session.
		s.log.Warn("fan-out stopped with error", "error", err, "kind", string(KindTransport))
	}
}

// firstBoundary applies the startup lead rule: if the plan's first boundary
// is closer than startup_latency + min_prefeed_lead and the segment carries
// a grid hint, the boundary is advanced to the next grid multiple with
// enough lead. Without a hint it is kept; convergence skips it later.
func (s *Session) firstBoundary(first schedule.Segment, now time.Time) time.Time {
	b := first.EndTimeUTC
	minLead := s.cfg.StartupLatency + s.cfg.MinPrefeedLead
	earliest := now.Add(minLead)
	if !b.Before(earliest) {
		return b
	}
	hint := first.Metadata["segment_seconds"]
	gridSeconds, err := strconv.Atoi(hint)
	if err != nil || gridSeconds <= 0 {
		return b
	}
	grid := time.Duration(gridSeconds) * time.Second
	for b.Before(earliest) {
		b = b.Add(grid)
	}
	s.log.Info("first boundary advanced for startup lead",
		"boundary", b.Format(observability.BoundaryTimeFormat),
		"grid_seconds", gridSeconds,
	)
	return b
}

// transitionLocked is the single gate for boundary state changes. Illegal
// edges force FAILED_TERMINAL and queue a fatal. Returns false on rejection.
func (s *Session) transitionLocked(to State) bool {
	if !CanTransition(s.state, to) {
		err := errIllegalTransition(s.state, to)
		s.violationLocked(invIllegalTransition, 0)
		s.failLocked(newFatal(KindScheduling, invIllegalTransition, s.boundary.UnixMilli(), err))
		return false
	}
	s.state = to
	if len(s.history) < historyCap {
		s.history = append(s.history, to)
	}
	return true
}

// failLocked enters FAILED_TERMINAL: cancels transient timers, records the
// fatal, and runs a pending deferred teardown. Idempotent.
func (s *Session) failLocked(fatal *FatalError) {
	if s.state == StateFailedTerminal {
		return
	}
	s.clearTimersLocked()
	s.state = StateFailedTerminal
	s.sub = SubIdle
	if len(s.history) < historyCap {
		s.history = append(s.history, StateFailedTerminal)
	}
	if s.failure == nil {
		s.failure = fatal
	}
	s.pendingErr = fatal
	metrics.IncSessionFatal(string(fatal.Kind))
	s.log.Error("session failed", "kind", string(fatal.Kind), "error", fatal.Error())
	if s.teardownReq && !s.teardownRan {
		s.teardownLocked()
	}
}

// clearTimersLocked cancels all transient timers. Idempotent.
func (s *Session) clearTimersLocked() {
	if s.issuance != nil {
		s.issuance.Stop()
		s.issuance = nil
	}
}

func (s *Session) violationLocked(invariant string, delta time.Duration) {
	observability.Violation(s.log, invariant, s.ID, s.boundary, delta)
	metrics.IncViolation(invariant)
}

// AddViewer registers a viewer and returns the new count.
func (s *Session) AddViewer(viewerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers[viewerID] = s.clk.NowUTC()
	return len(s.viewers)
}

// RemoveViewer drops a viewer and returns the remaining count.
func (s *Session) RemoveViewer(viewerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.viewers, viewerID)
	return len(s.viewers)
}

// ViewerCount returns the attached viewer count.
func (s *Session) ViewerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

// Subscribe attaches a viewer queue to the fan-out.
func (s *Session) Subscribe(viewerID string) (*router.Subscriber, error) {
	return s.rtr.Subscribe(viewerID)
}

// Unsubscribe detaches a viewer queue.
func (s *Session) Unsubscribe(viewerID string) {
	s.rtr.Unsubscribe(viewerID)
}

// IsLive reports whether the boundary state is LIVE. Authoritative for
// external liveness queries.
func (s *Session) IsLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateLive
}

// Converged reports whether the session has reached its first LIVE.
func (s *Session) Converged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.converged
}

// State returns the current boundary state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns the transition history so far.
func (s *Session) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]State, len(s.history))
	copy(out, s.history)
	return out
}

// Failure returns the surfaced fatal error, if any.
func (s *Session) Failure() *FatalError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// DeferredTeardownTriggered reports whether teardown has executed; the
// registry polls this to destroy the session.
func (s *Session) DeferredTeardownTriggered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardownRan
}

// Snapshot is a point-in-time session view for status surfaces.
type Snapshot struct {
	ID             string `json:"id"`
	ChannelID      string `json:"channel_id"`
	Mode           string `json:"mode"`
	State          string `json:"state"`
	SubState       string `json:"sub_state"`
	Live           bool   `json:"live"`
	Converged      bool   `json:"converged"`
	Viewers        int    `json:"viewers"`
	Boundary       string `json:"boundary,omitempty"`
	ProducerHealth string `json:"producer_health"`
	DroppedChunks  int64  `json:"dropped_chunks"`
}

// Snapshot captures the session state for the status API.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:            s.ID,
		ChannelID:     s.ChannelID,
		Mode:          string(s.Mode),
		State:         string(s.state),
		SubState:      string(s.sub),
		Live:          s.state == StateLive,
		Converged:     s.converged,
		Viewers:       len(s.viewers),
		DroppedChunks: s.rtr.DroppedTotal(),
	}
	if !s.boundary.IsZero() {
		snap.Boundary = s.boundary.Format(observability.BoundaryTimeFormat)
	}
	if s.prod != nil {
		snap.ProducerHealth = string(s.prod.Health())
	}
	return snap
}

// StopChannel requests teardown. In a stable boundary state it executes
// immediately; in a transient state it is deferred with a grace deadline
// and runs on the next stable-state entry. Idempotent: a second call while
// pending does not extend the deadline.
func (s *Session) StopChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teardownRan || s.teardownReq {
		return
	}
	if s.state.Stable() || !s.started {
		s.teardownReq = true
		s.teardownLocked()
		return
	}
	s.teardownReq = true
	s.teardownBy = s.clk.NowUTC().Add(s.cfg.TeardownGrace)
	s.log.Info("teardown deferred in transient state",
		"state", string(s.state),
		"grace_ms", s.cfg.TeardownGrace.Milliseconds(),
	)
}

// teardownLocked stops the producer (best-effort, no wait-for-EOF) and the
// fan-out, and cancels timers. Runs at most once.
func (s *Session) teardownLocked() {
	if s.teardownRan {
		return
	}
	s.teardownRan = true
	s.clearTimersLocked()
	s.stopped = true
	if s.started {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.prod.Stop(ctx); err != nil {
			s.log.Warn("producer stop", "error", err)
		}
		cancel()
	}
	s.rtr.Stop()
	s.log.Info("session torn down", "state", string(s.state))
}

// Tick runs one scheduler pass. Phases: grace/terminal checks, lifecycle
// checks, convergence timeout, feasibility, preload, completion poll.
// Issuance itself happens on the timer callback, not here.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.NowUTC()

	// Phase 1: grace and terminal checks.
	if s.teardownRan {
		return
	}
	if s.teardownReq {
		if now.After(s.teardownBy) {
			s.violationLocked(invTeardownGrace, now.Sub(s.teardownBy))
			s.failLocked(newFatal(KindScheduling, invTeardownGrace, s.boundary.UnixMilli(),
				fmt.Errorf("teardown grace expired in state %s", s.state)))
			return
		}
		// No new boundary work while pending; an already-armed switch is
		// still polled so the stable-state hook can fire at LIVE.
		if s.state == StateSwitchIssued && s.sub == SubSwitchArmed {
			s.pollCompletionLocked(ctx, now)
		}
		return
	}
	if s.state == StateFailedTerminal {
		s.pendingErr = nil
		return
	}
	if s.pendingErr != nil {
		pending := s.pendingErr
		s.pendingErr = nil
		s.failLocked(pending)
		return
	}

	// Phase 2: lifecycle checks.
	if s.stopped || !s.started || s.prod == nil {
		return
	}
	if s.state == StateSwitchIssued {
		if s.sub == SubSwitchArmed {
			s.pollCompletionLocked(ctx, now)
		}
		return
	}
	if s.state == StateLive {
		s.advanceLocked(ctx)
		return
	}

	// Phase 3: convergence timeout.
	if !s.converged && now.After(s.convergeBy) {
		s.violationLocked(invStartupConvergence, now.Sub(s.convergeBy))
		s.failLocked(newFatal(KindScheduling, invStartupConvergence, s.boundary.UnixMilli(),
			fmt.Errorf("no LIVE within %s of startup", s.cfg.MaxStartupConvergence)))
		return
	}

	if s.state == StateNone {
		s.planLocked(ctx, now)
		return
	}

	// Phase 4: feasibility.
	lead := s.boundary.Sub(now)
	if lead < s.cfg.MinPrefeedLead {
		if s.converged {
			s.violationLocked(invBoundaryFeasibility, s.cfg.MinPrefeedLead-lead)
			s.failLocked(newFatal(KindScheduling, invBoundaryFeasibility, s.boundary.UnixMilli(),
				fmt.Errorf("boundary lead %s below minimum %s", lead, s.cfg.MinPrefeedLead)))
			return
		}
		s.skipBoundaryLocked(ctx)
		return
	}

	// Phase 5: preload.
	if s.state == StatePlanned && !now.Before(s.boundary.Add(-s.cfg.PreloadLead())) {
		s.preloadLocked(ctx, now)
	}
}

// planLocked recovers a boundary when none is planned (NONE after an
// exhausted plan). Empty schedule data for a running channel is fatal.
func (s *Session) planLocked(ctx context.Context, now time.Time) {
	plan, err := s.provider.PlayoutPlanNow(ctx, s.ChannelID, now)
	if err != nil || len(plan) == 0 {
		s.failLocked(newFatal(KindNoScheduleData, "", 0, fmt.Errorf("no schedule data for running channel %s", s.ChannelID)))
		return
	}
	s.boundary = plan[0].EndTimeUTC
	s.transitionLocked(StatePlanned)
}

// skipBoundaryLocked advances past an infeasible boundary pre-convergence.
func (s *Session) skipBoundaryLocked(ctx context.Context) {
	plan, err := s.provider.PlayoutPlanNow(ctx, s.ChannelID, s.boundary)
	if err != nil || len(plan) == 0 {
		s.failLocked(newFatal(KindNoScheduleData, "", s.boundary.UnixMilli(),
			fmt.Errorf("no schedule data while skipping infeasible boundary")))
		return
	}
	next := plan[0].EndTimeUTC
	s.log.Info("skipping infeasible boundary pre-convergence",
		"boundary", s.boundary.Format(observability.BoundaryTimeFormat),
		"next", next.Format(observability.BoundaryTimeFormat),
	)
	s.boundary = next
	s.next = nil
}

// preloadLocked loads the successor's preview and schedules the one-shot
// issuance timer.
func (s *Session) preloadLocked(ctx context.Context, now time.Time) {
	plan, err := s.provider.PlayoutPlanNow(ctx, s.ChannelID, s.boundary)
	if err != nil || len(plan) == 0 {
		s.failLocked(newFatal(KindNoScheduleData, "", s.boundary.UnixMilli(),
			fmt.Errorf("no successor segment at boundary")))
		return
	}
	succ := plan[0]

	frames, err := succ.EffectiveFrameCount()
	if err != nil {
		// Play-to-EOF material: reject, then proceed on the derived
		// budget when duration yields one.
		s.violationLocked(invFrameBudget, 0)
		derived := int64(succ.DurationS * float64(succ.FPSNum) / float64(succ.FPSDen))
		if derived <= 0 {
			s.failLocked(newFatal(KindScheduling, invFrameBudget, s.boundary.UnixMilli(), err))
			return
		}
		frames = derived
	}

	ok, err := s.prod.LoadPreview(ctx, succ.AssetPath, succ.StartFrame(), frames, succ.FPSNum, succ.FPSDen)
	if err != nil || !ok {
		// Transient: retried next tick while the boundary stays feasible.
		s.log.Warn("preview load not ready", "asset", succ.AssetPath, "error", err)
		return
	}

	lead := s.boundary.Sub(now)
	metrics.ObservePreloadLead(lead)
	if lead < s.cfg.MinPrefeedLead {
		s.violationLocked(invPreloadLeadViolation, s.cfg.MinPrefeedLead-lead)
	}

	s.next = &succ
	s.sub = SubPreviewLoaded
	if !s.transitionLocked(StatePreloadIssued) {
		return
	}

	issueAt := s.boundary.Add(-s.cfg.MinPrefeedLead - issuanceBuffer)
	boundaryMs := s.boundary.UnixMilli()
	delay := issueAt.Sub(now)
	if delay < 0 {
		delay = 0
	}
	s.issuance = s.afterFunc(delay, func() {
		s.issueSwitch(context.Background(), boundaryMs, issueAt)
	})
	s.transitionLocked(StateSwitchScheduled)
	s.log.Debug("switch scheduled",
		"boundary", s.boundary.Format(observability.BoundaryTimeFormat),
		"issue_at", issueAt.Format(observability.BoundaryTimeFormat),
		"asset", succ.AssetPath,
	)
}

// issueSwitch runs on the one-shot timer. It validates one-shot issuance,
// lateness, sub-state and the plan-derived boundary, then issues
// SwitchToLive. Any error, violation or false arming result is terminal.
func (s *Session) issueSwitch(ctx context.Context, boundaryMs int64, issueAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.teardownRan || s.state == StateFailedTerminal {
		return
	}
	// One-shot: duplicates after issuance are suppressed.
	if s.state == StateSwitchIssued || s.state == StateLive {
		s.violationLocked(invIssuanceOneShot, 0)
		return
	}
	if s.state != StateSwitchScheduled {
		s.failLocked(newFatal(KindScheduling, invIllegalTransition, boundaryMs,
			errIllegalTransition(s.state, StateSwitchIssued)))
		return
	}

	now := s.clk.NowUTC()
	if late := now.Sub(issueAt); late > issuanceLateTolerance {
		s.violationLocked(invIssuanceDeadline, late)
		s.failLocked(newFatal(KindScheduling, invIssuanceDeadline, boundaryMs,
			fmt.Errorf("issuance fired %s late", late)))
		return
	}
	if s.sub != SubPreviewLoaded {
		s.failLocked(newFatal(KindScheduling, invIllegalTransition, boundaryMs,
			fmt.Errorf("issuance in sub-state %s", s.sub)))
		return
	}
	if boundaryMs != s.boundary.UnixMilli() {
		s.violationLocked(invBoundaryMatchesPlan, 0)
		s.failLocked(newFatal(KindScheduling, invBoundaryMatchesPlan, boundaryMs,
			fmt.Errorf("issued boundary %d does not match plan %d", boundaryMs, s.boundary.UnixMilli())))
		return
	}

	if !s.transitionLocked(StateSwitchIssued) {
		return
	}
	s.sub = SubSwitchArmed
	s.issuedFor = boundaryMs

	ok, err := s.prod.SwitchToLive(ctx, boundaryMs)
	if err != nil {
		s.failLocked(newFatal(kindForProducerErr(err), "", boundaryMs, err))
		return
	}
	if ok {
		s.completeSwitchLocked(s.clk.NowUTC())
	}
}

// pollCompletionLocked re-issues SwitchToLive while armed to detect
// completion. Completing after the boundary is allowed; it is flagged once.
func (s *Session) pollCompletionLocked(ctx context.Context, now time.Time) {
	ok, err := s.prod.SwitchToLive(ctx, s.issuedFor)
	if err != nil {
		s.failLocked(newFatal(kindForProducerErr(err), "", s.issuedFor, err))
		return
	}
	if !ok {
		if now.UnixMilli() > s.issuedFor && !s.lateWarned {
			s.lateWarned = true
			s.violationLocked(invSwitchBeforeExhaust, now.Sub(s.boundary))
		}
		return
	}
	s.completeSwitchLocked(now)
}

// completeSwitchLocked enters LIVE, marks convergence, runs a pending
// deferred teardown (stable-state hook), and otherwise advances to the
// next boundary.
func (s *Session) completeSwitchLocked(now time.Time) {
	if !s.transitionLocked(StateLive) {
		return
	}
	s.sub = SubIdle
	s.converged = true
	s.lateWarned = false
	metrics.IncSwitch()
	metrics.ObserveSwitchLateness(now.Sub(s.boundary))
	s.log.Info("switched live",
		"boundary", s.boundary.Format(observability.BoundaryTimeFormat),
		"lateness_ms", now.Sub(s.boundary).Milliseconds(),
	)

	if s.teardownReq && !s.teardownRan {
		s.teardownLocked()
		return
	}
	s.advanceLocked(context.Background())
}

// advanceLocked plans the boundary after LIVE: the recorded successor's
// end when present, otherwise NONE until the provider yields data again.
func (s *Session) advanceLocked(ctx context.Context) {
	if s.state != StateLive {
		return
	}
	if s.next != nil {
		s.boundary = s.next.EndTimeUTC
		s.next = nil
		s.transitionLocked(StatePlanned)
		return
	}
	plan, err := s.provider.PlayoutPlanNow(ctx, s.ChannelID, s.boundary)
	if err == nil && len(plan) > 0 {
		s.boundary = plan[0].EndTimeUTC
		s.transitionLocked(StatePlanned)
		return
	}
	s.transitionLocked(StateNone)
	if s.teardownReq && !s.teardownRan {
		s.teardownLocked()
	}
}
