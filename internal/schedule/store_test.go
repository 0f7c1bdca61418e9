package schedule

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/database"
	"github.com/jmylchreest/airwave/internal/models"
	"github.com/jmylchreest/airwave/internal/repository"
)

func TestStoreProvider(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "schedule-test.db"),
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	channels := repository.NewChannelRepository(db)
	plans := repository.NewPlanRepository(db)

	ch := &models.Channel{
		Name:              "one",
		GridBlockMinutes:  30,
		BroadcastDayStart: "06:00",
		Timezone:          "UTC",
	}
	require.NoError(t, channels.Create(ctx, ch))

	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := NewStoreProvider(channels, plans, epoch)
	at := time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC)

	// Channel without an active plan has no schedule data.
	segs, err := provider.PlayoutPlanNow(ctx, ch.ID.String(), at)
	require.NoError(t, err)
	assert.Empty(t, segs)

	plan := &models.Plan{
		ChannelID: ch.ID,
		Name:      "weekday",
		Programs: []models.Program{
			{StartTime: "00:00", DurationMin: 22, ContentType: models.ContentTypeProgram, ContentRef: "/media/show.ts"},
			{StartTime: "00:22", DurationMin: 8, ContentType: models.ContentTypeFiller, ContentRef: "/media/filler.ts"},
		},
	}
	require.NoError(t, plans.Create(ctx, plan))
	require.NoError(t, plans.SetActive(ctx, plan.ID, true))

	segs, err = provider.PlayoutPlanNow(ctx, ch.ID.String(), at)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, SegmentTypeContent, segs[0].Type)
	assert.Equal(t, "/media/show.ts", segs[0].AssetPath)
	assert.Equal(t, int64(420_000), segs[0].StartPTSms)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 22, 0, 0, time.UTC), segs[0].EndTimeUTC)
	assert.Equal(t, SegmentTypeFiller, segs[1].Type)
	assert.Equal(t, "/media/filler.ts", segs[1].AssetPath)

	// Disabled channel stops answering.
	disabled := false
	ch.Enabled = &disabled
	require.NoError(t, channels.Update(ctx, ch))
	segs, err = provider.PlayoutPlanNow(ctx, ch.ID.String(), at)
	require.NoError(t, err)
	assert.Empty(t, segs)

	// Bad channel ID is an error, not silence.
	_, err = provider.PlayoutPlanNow(ctx, "not-a-ulid", at)
	assert.Error(t, err)
}
