package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmylchreest/airwave/internal/session"
)

// Pre-stream 503 bodies. Players show these verbatim, keep them short.
const (
	msgNoScheduleItem    = "No active schedule item"
	msgEngineUnavailable = "Air playout engine unavailable"
)

// StreamHandler serves the per-channel transport stream endpoints.
type StreamHandler struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewStreamHandler creates a stream handler over the session registry.
func NewStreamHandler(registry *session.Registry, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{registry: registry, logger: logger}
}

// RegisterChiRoutes registers streaming routes as raw Chi handlers. Raw
// handlers are required because status codes and headers must be decided
// before the first TS byte is written.
func (h *StreamHandler) RegisterChiRoutes(router chi.Router) {
	router.Get("/channel/{channelID}.ts", h.handleStream)
}

// handleStream attaches a viewer to the channel session and relays TS
// chunks until the client disconnects or the session ends.
func (h *StreamHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID := chi.URLParam(r, "channelID")
	viewerID := uuid.New().String()

	sess, sub, err := h.registry.TuneIn(ctx, channelID, viewerID)
	if err != nil {
		h.writeTuneError(w, r, channelID, err)
		return
	}
	defer h.registry.TuneOut(ctx, channelID, viewerID)

	w.Header().Set("Content-Type", "video/mp2t")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	// Clear any write deadline; the stream is unbounded.
	_ = rc.SetWriteDeadline(time.Time{})

	h.logger.InfoContext(ctx, "stream attached",
		slog.String("channel_id", channelID),
		slog.String("viewer_id", viewerID),
		slog.String("session_id", sess.ID),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-sub.Chunks():
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writeTuneError maps tune-in failures onto the pre-stream status contract.
func (h *StreamHandler) writeTuneError(w http.ResponseWriter, r *http.Request, channelID string, err error) {
	if errors.Is(err, session.ErrChannelUnavailable) {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}

	var fatal *session.FatalError
	if errors.As(err, &fatal) && fatal.Kind == session.KindNoScheduleData {
		http.Error(w, msgNoScheduleItem, http.StatusServiceUnavailable)
		return
	}

	h.logger.WarnContext(r.Context(), "tune in failed",
		slog.String("channel_id", channelID),
		slog.Any("error", err),
	)
	http.Error(w, msgEngineUnavailable, http.StatusServiceUnavailable)
}
