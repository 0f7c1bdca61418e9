// Package router fans one upstream TS byte stream out to N viewers, each
// behind a bounded queue. A slow viewer loses chunks; it never slows the
// upstream or the other viewers.
package router

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by Subscribe after the router has stopped.
var ErrStopped = errors.New("router stopped")

// Subscriber is one viewer's end of the fan-out. Chunks arrive in upstream
// order; the channel closes after the queued chunks drain when the router
// stops or the subscriber is removed.
type Subscriber struct {
	id      string
	ch      chan []byte
	dropped atomic.Int64

	// mu serializes sends against close so Serve never sends on a
	// closed channel.
	mu     sync.Mutex
	closed bool
}

// ID returns the owning session id.
func (s *Subscriber) ID() string { return s.id }

// Chunks is the delivery channel.
func (s *Subscriber) Chunks() <-chan []byte { return s.ch }

// Dropped returns how many chunks were discarded for this subscriber.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// offer enqueues without blocking; reports delivered, dropped, or gone.
func (s *Subscriber) offer(chunk []byte) (delivered, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, false
	}
	select {
	case s.ch <- chunk:
		return true, true
	default:
		return false, true
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Router is the per-channel fan-out. Safe for concurrent use.
type Router struct {
	log        *slog.Logger
	queueDepth int
	chunkBytes int

	mu   sync.RWMutex
	subs map[string]*Subscriber

	count        atomic.Int32
	bytesIn      atomic.Int64
	droppedTotal atomic.Int64
	stopped      atomic.Bool

	// OnDrop, when set, is called once per dropped chunk with the owning
	// session id. Must not block.
	OnDrop func(sessionID string)
}

// New creates a Router with the given per-subscriber queue depth and read
// chunk size in bytes.
func New(log *slog.Logger, queueDepth, chunkBytes int) *Router {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if chunkBytes <= 0 {
		chunkBytes = 32 * 1024
	}
	return &Router{
		log:        log,
		queueDepth: queueDepth,
		chunkBytes: chunkBytes,
		subs:       make(map[string]*Subscriber),
	}
}

// Subscribe registers a bounded queue for sessionID. Re-subscribing an
// existing id replaces (and closes) the previous queue.
func (r *Router) Subscribe(sessionID string) (*Subscriber, error) {
	if r.stopped.Load() {
		return nil, ErrStopped
	}
	sub := &Subscriber{id: sessionID, ch: make(chan []byte, r.queueDepth)}

	r.mu.Lock()
	prev := r.subs[sessionID]
	r.subs[sessionID] = sub
	r.count.Store(int32(len(r.subs)))
	r.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return sub, nil
}

// Unsubscribe removes the session's queue and closes it after drain.
func (r *Router) Unsubscribe(sessionID string) {
	r.mu.Lock()
	sub := r.subs[sessionID]
	delete(r.subs, sessionID)
	r.count.Store(int32(len(r.subs)))
	r.mu.Unlock()

	if sub != nil {
		sub.close()
	}
}

// SubscriberCount is an atomic read for teardown decisions.
func (r *Router) SubscriberCount() int {
	return int(r.count.Load())
}

// BytesIn returns the total bytes read from upstream.
func (r *Router) BytesIn() int64 { return r.bytesIn.Load() }

// DroppedTotal returns the total chunks dropped across all subscribers.
func (r *Router) DroppedTotal() int64 { return r.droppedTotal.Load() }

// Serve reads the upstream until EOF or Stop, delivering each chunk to
// every subscriber without blocking: a full queue drops the chunk for that
// subscriber only. Returns nil on clean EOF.
func (r *Router) Serve(upstream io.Reader) error {
	defer r.closeAll()

	buf := make([]byte, r.chunkBytes)
	for {
		if r.stopped.Load() {
			return nil
		}
		n, err := upstream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.bytesIn.Add(int64(n))
			r.deliver(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("reading upstream: %w", err)
		}
	}
}

// deliver copies the subscriber set under the lock, then emits outside it.
func (r *Router) deliver(chunk []byte) {
	r.mu.RLock()
	subs := make([]*Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		delivered, open := sub.offer(chunk)
		if !open || delivered {
			continue
		}
		sub.dropped.Add(1)
		r.droppedTotal.Add(1)
		if r.OnDrop != nil {
			r.OnDrop(sub.id)
		}
	}
}

// Stop ends delivery; all subscriber queues close after drain. Idempotent.
func (r *Router) Stop() {
	if !r.stopped.CompareAndSwap(false, true) {
		return
	}
	r.closeAll()
}

func (r *Router) closeAll() {
	r.stopped.Store(true)

	r.mu.Lock()
	subs := make([]*Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[string]*Subscriber)
	r.count.Store(0)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	if r.log != nil && r.droppedTotal.Load() > 0 {
		r.log.Debug("router stopped with drops", "dropped_chunks", r.droppedTotal.Load())
	}
}
