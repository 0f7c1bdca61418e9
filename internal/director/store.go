package director

import (
	"context"

	"github.com/jmylchreest/airwave/internal/models"
	"github.com/jmylchreest/airwave/internal/repository"
)

// Store is a Director backed by the channel repository. The mode is a
// process-wide default; per-channel overrides live in Static wrappers or a
// future channel column.
type Store struct {
	channels    repository.ChannelRepository
	defaultMode Mode
}

// NewStore creates a repository-backed director.
func NewStore(channels repository.ChannelRepository, defaultMode Mode) *Store {
	if defaultMode == "" {
		defaultMode = ModeNormal
	}
	return &Store{channels: channels, defaultMode: defaultMode}
}

// Mode implements Director.
func (d *Store) Mode(context.Context, string) Mode {
	return d.defaultMode
}

// Channels implements Director.
func (d *Store) Channels(ctx context.Context) ([]Channel, error) {
	rows, err := d.channels.GetEnabled(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Channel, 0, len(rows))
	for _, row := range rows {
		name := row.DisplayName
		if name == "" {
			name = row.Name
		}
		out = append(out, Channel{ID: row.ID.String(), Name: row.Name, DisplayName: name})
	}
	return out, nil
}

// Available implements Director.
func (d *Store) Available(ctx context.Context, channelID string) bool {
	id, err := models.ParseULID(channelID)
	if err != nil {
		return false
	}
	row, err := d.channels.GetByID(ctx, id)
	if err != nil || row == nil {
		return false
	}
	return row.IsEnabled()
}
