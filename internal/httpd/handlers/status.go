package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/airwave/internal/director"
	"github.com/jmylchreest/airwave/internal/session"
	"github.com/jmylchreest/airwave/internal/version"
)

// StatusHandler exposes the operator API: channel catalogue, live session
// snapshots and service health.
type StatusHandler struct {
	dir       director.Director
	registry  *session.Registry
	startTime time.Time
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(dir director.Director, registry *session.Registry) *StatusHandler {
	return &StatusHandler{
		dir:       dir,
		registry:  registry,
		startTime: time.Now(),
	}
}

// ChannelInfo is one catalogue entry.
type ChannelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Mode        string `json:"mode"`
}

// ListChannelsOutput is the channel catalogue response.
type ListChannelsOutput struct {
	Body struct {
		Channels []ChannelInfo `json:"channels"`
	}
}

// ListSessionsOutput is the live-session snapshot response.
type ListSessionsOutput struct {
	Body struct {
		Sessions []session.Snapshot `json:"sessions"`
	}
}

// HealthOutput is the health response.
type HealthOutput struct {
	Body struct {
		Status    string `json:"status"`
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
		UptimeS   int64  `json:"uptime_s"`
		Sessions  int    `json:"sessions"`
	}
}

// Register registers the status routes with the API.
func (h *StatusHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listChannels",
		Method:      "GET",
		Path:        "/api/v1/channels",
		Summary:     "List channels",
		Description: "Returns the channel catalogue with each channel's playout mode",
		Tags:        []string{"Channels"},
	}, h.ListChannels)

	huma.Register(api, huma.Operation{
		OperationID: "listSessions",
		Method:      "GET",
		Path:        "/api/v1/sessions",
		Summary:     "List sessions",
		Description: "Returns a snapshot of every channel session with its boundary state",
		Tags:        []string{"Sessions"},
	}, h.ListSessions)

	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// ListChannels returns the director's catalogue.
func (h *StatusHandler) ListChannels(ctx context.Context, _ *struct{}) (*ListChannelsOutput, error) {
	channels, err := h.dir.Channels(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing channels", err)
	}

	out := &ListChannelsOutput{}
	out.Body.Channels = make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		out.Body.Channels = append(out.Body.Channels, ChannelInfo{
			ID:          ch.ID,
			Name:        ch.Name,
			DisplayName: ch.DisplayName,
			Mode:        string(h.dir.Mode(ctx, ch.ID)),
		})
	}
	return out, nil
}

// ListSessions returns a snapshot of every session, ordered by channel.
func (h *StatusHandler) ListSessions(_ context.Context, _ *struct{}) (*ListSessionsOutput, error) {
	sessions := h.registry.Sessions()

	out := &ListSessionsOutput{}
	out.Body.Sessions = make([]session.Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		out.Body.Sessions = append(out.Body.Sessions, sess.Snapshot())
	}
	sort.Slice(out.Body.Sessions, func(i, j int) bool {
		return out.Body.Sessions[i].ChannelID < out.Body.Sessions[j].ChannelID
	})
	return out, nil
}

// GetHealth returns the service health.
func (h *StatusHandler) GetHealth(context.Context, *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	out.Body.Version = version.Version
	out.Body.GoVersion = version.GoVersion
	out.Body.UptimeS = int64(time.Since(h.startTime).Seconds())
	out.Body.Sessions = len(h.registry.Sessions())
	return out, nil
}
