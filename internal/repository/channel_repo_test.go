package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/database"
	"github.com/jmylchreest/airwave/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "repo-test.db"),
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testChannel(name string) *models.Channel {
	return &models.Channel{
		Name:              name,
		GridBlockMinutes:  30,
		BroadcastDayStart: "06:00",
		Timezone:          "UTC",
	}
}

func TestChannelRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewChannelRepository(testDB(t))

	ch := testChannel("one")
	require.NoError(t, repo.Create(ctx, ch))
	require.False(t, ch.ID.IsZero())

	got, err := repo.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "one", got.Name)

	got, err = repo.GetByName(ctx, "one")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ch.ID, got.ID)

	got.DisplayName = "Channel One"
	require.NoError(t, repo.Update(ctx, got))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, "Channel One", all[0].DisplayName)

	require.NoError(t, repo.Delete(ctx, ch.ID))
	got, err = repo.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChannelRepo_GetEnabled(t *testing.T) {
	ctx := context.Background()
	repo := NewChannelRepository(testDB(t))

	on := testChannel("on")
	require.NoError(t, repo.Create(ctx, on))

	off := testChannel("off")
	disabled := false
	off.Enabled = &disabled
	require.NoError(t, repo.Create(ctx, off))

	enabled, err := repo.GetEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "on", enabled[0].Name)
}

func TestChannelRepo_CreateRejectsInvalidGrid(t *testing.T) {
	ctx := context.Background()
	repo := NewChannelRepository(testDB(t))

	ch := testChannel("bad")
	ch.GridBlockMinutes = 20
	err := repo.Create(ctx, ch)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidGridBlock)
}
