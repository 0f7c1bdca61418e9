// Package handlers provides HTTP handlers for the airwave front-end.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/airwave/internal/director"
)

// PlaylistHandler serves the M3U channel list.
type PlaylistHandler struct {
	dir    director.Director
	logger *slog.Logger
}

// NewPlaylistHandler creates a playlist handler backed by the director's
// channel catalogue.
func NewPlaylistHandler(dir director.Director, logger *slog.Logger) *PlaylistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaylistHandler{dir: dir, logger: logger}
}

// RegisterChiRoutes registers the playlist route as a raw Chi handler.
func (h *PlaylistHandler) RegisterChiRoutes(router chi.Router) {
	router.Get("/channellist.m3u", h.handlePlaylist)
}

// handlePlaylist writes one playlist entry per known channel. Stream URLs
// are built from the Host header so the playlist works behind NAT and
// reverse proxies without configuration.
func (h *PlaylistHandler) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	channels, err := h.dir.Channels(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing channels", slog.Any("error", err))
		http.Error(w, "channel list unavailable", http.StatusInternalServerError)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, ch := range channels {
		name := ch.DisplayName
		if name == "" {
			name = ch.ID
		}
		fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=%q tvg-name=%q,%s\n", ch.ID, name, name)
		fmt.Fprintf(&b, "%s://%s/channel/%s.ts\n", scheme, r.Host, ch.ID)
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(b.String())); err != nil {
		h.logger.WarnContext(r.Context(), "writing playlist", slog.Any("error", err))
	}
}
