package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/airwave/internal/clock"
	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/director"
	"github.com/jmylchreest/airwave/internal/metrics"
	"github.com/jmylchreest/airwave/internal/observability"
	"github.com/jmylchreest/airwave/internal/producer"
	"github.com/jmylchreest/airwave/internal/router"
	"github.com/jmylchreest/airwave/internal/schedule"
)

// ErrChannelUnavailable is returned for channels the director does not
// currently offer.
var ErrChannelUnavailable = errors.New("channel unavailable")

// ProducerFactory builds a producer for a channel in the given mode.
// Chosen at session construction; never swapped at runtime.
type ProducerFactory func(channelID string, mode director.Mode) (producer.Producer, error)

// Registry is the process-wide set of channel sessions: at most one live
// session per channel, created by the first viewer and destroyed after the
// last leaves.
type Registry struct {
	log      *slog.Logger
	clk      clock.Clock
	provider schedule.Provider
	dir      director.Director
	playout  config.PlayoutConfig
	fanout   config.RouterConfig
	factory  ProducerFactory

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry(clk clock.Clock, provider schedule.Provider, dir director.Director, playout config.PlayoutConfig, fanout config.RouterConfig, factory ProducerFactory, log *slog.Logger) *Registry {
	return &Registry{
		log:      observability.WithComponent(log, "registry"),
		clk:      clk,
		provider: provider,
		dir:      dir,
		playout:  playout,
		fanout:   fanout,
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// TuneIn attaches a viewer to a channel, creating and starting the session
// on the 0 -> 1 transition. The returned subscriber carries the viewer's TS
// byte queue. Errors are *FatalError where the session is at fault.
func (r *Registry) TuneIn(ctx context.Context, channelID, viewerID string) (*Session, *router.Subscriber, error) {
	if !r.dir.Available(ctx, channelID) {
		return nil, nil, fmt.Errorf("%w: %s", ErrChannelUnavailable, channelID)
	}

	r.mu.Lock()
	sess := r.sessions[channelID]
	if sess != nil && sess.DeferredTeardownTriggered() {
		delete(r.sessions, channelID)
		sess = nil
	}
	if sess != nil && sess.State() == StateFailedTerminal {
		r.mu.Unlock()
		if fatal := sess.Failure(); fatal != nil {
			return nil, nil, fatal
		}
		return nil, nil, newFatal(KindChannelFailed, "", 0, fmt.Errorf("channel %s session failed", channelID))
	}

	created := false
	if sess == nil {
		mode := r.dir.Mode(ctx, channelID)
		prod, err := r.factory(channelID, mode)
		if err != nil {
			r.mu.Unlock()
			return nil, nil, newFatal(KindProducerStartup, "", 0, err)
		}
		rtr := router.New(r.log, r.fanout.QueueDepth, r.fanout.ChunkBytes)
		rtr.OnDrop = func(string) { metrics.IncDroppedChunk() }
		sess = New(channelID, mode, r.clk, r.provider, prod, rtr, r.playout, r.log)
		r.sessions[channelID] = sess
		created = true
	}
	r.mu.Unlock()

	if created {
		if err := sess.Start(ctx); err != nil {
			r.mu.Lock()
			delete(r.sessions, channelID)
			r.mu.Unlock()
			sess.StopChannel()
			return nil, nil, err
		}
	}

	sub, err := sess.Subscribe(viewerID)
	if err != nil {
		return nil, nil, newFatal(KindTransport, "", 0, err)
	}
	count := sess.AddViewer(viewerID)
	r.log.Info("viewer tuned in", "channel_id", channelID, "viewer_id", viewerID, "viewers", count)
	return sess, sub, nil
}

// TuneOut detaches a viewer; the 1 -> 0 transition requests session stop.
func (r *Registry) TuneOut(_ context.Context, channelID, viewerID string) {
	r.mu.Lock()
	sess := r.sessions[channelID]
	r.mu.Unlock()
	if sess == nil {
		return
	}

	sess.Unsubscribe(viewerID)
	remaining := sess.RemoveViewer(viewerID)
	r.log.Info("viewer tuned out", "channel_id", channelID, "viewer_id", viewerID, "viewers", remaining)
	if remaining == 0 {
		sess.StopChannel()
	}
}

// StopChannel is the director's explicit stop authority.
func (r *Registry) StopChannel(channelID string) {
	r.mu.Lock()
	sess := r.sessions[channelID]
	r.mu.Unlock()
	if sess != nil {
		sess.StopChannel()
	}
}

// Get returns the channel's session, or nil.
func (r *Registry) Get(channelID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[channelID]
}

// Sessions returns a snapshot of all sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// TickAll runs one scheduler pass over every session, stops channels the
// director has pulled, destroys sessions whose teardown has executed, and
// refreshes the session gauges.
func (r *Registry) TickAll(ctx context.Context) {
	var live, viewers int
	for _, sess := range r.Sessions() {
		if !r.dir.Available(ctx, sess.ChannelID) {
			sess.StopChannel()
		}
		sess.Tick(ctx)
		if sess.DeferredTeardownTriggered() {
			r.mu.Lock()
			if r.sessions[sess.ChannelID] == sess {
				delete(r.sessions, sess.ChannelID)
			}
			r.mu.Unlock()
			r.log.Info("session destroyed", "channel_id", sess.ChannelID, "session_id", sess.ID)
			continue
		}
		if sess.IsLive() {
			live++
		}
		viewers += sess.ViewerCount()
	}
	metrics.LiveSessions.Set(float64(live))
	metrics.Viewers.Set(float64(viewers))
}

// Shutdown stops every session. Used on process exit.
func (r *Registry) Shutdown(context.Context) {
	for _, sess := range r.Sessions() {
		sess.StopChannel()
	}
	r.mu.Lock()
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
}
