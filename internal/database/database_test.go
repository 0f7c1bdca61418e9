package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/models"
)

func testConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "airwave-test.db"),
		LogLevel: "silent",
	}
}

func TestNewAndMigrate(t *testing.T) {
	db, err := New(testConfig(t), nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"channels", "plans", "zones", "programs"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Driver = "oracle"
	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestMigrate_RoundTrip(t *testing.T) {
	db, err := New(testConfig(t), nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	ch := &models.Channel{
		Name:              "one",
		GridBlockMinutes:  30,
		BroadcastDayStart: "06:00",
		Timezone:          "UTC",
	}
	require.NoError(t, db.Create(ch).Error)
	assert.False(t, ch.ID.IsZero())

	var got models.Channel
	require.NoError(t, db.Where("name = ?", "one").First(&got).Error)
	assert.Equal(t, ch.ID, got.ID)
	assert.Equal(t, 30, got.GridBlockMinutes)
}
