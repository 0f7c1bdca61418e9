package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultsConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultsConfig(t)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Playout.MinPrefeedLead)
	assert.Equal(t, 7*time.Second, cfg.Playout.StartupLatency)
	assert.Equal(t, 2*time.Second, cfg.Playout.SchedulingBuffer)
	assert.Equal(t, 10*time.Second, cfg.Playout.TeardownGrace)
	assert.Equal(t, 120*time.Second, cfg.Playout.MaxStartupConvergence)
	assert.Equal(t, 1, cfg.Playout.TickHz)
	assert.Equal(t, 64, cfg.Router.QueueDepth)

	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Warnings())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "invalid driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: "database.driver",
		},
		{
			name:    "empty dsn",
			mutate:  func(c *Config) { c.Database.DSN = "" },
			wantErr: "database.dsn",
		},
		{
			name:    "prefeed lead below minimum",
			mutate:  func(c *Config) { c.Playout.MinPrefeedLead = 500 * time.Millisecond },
			wantErr: "playout.min_prefeed_lead",
		},
		{
			name:    "zero tick rate",
			mutate:  func(c *Config) { c.Playout.TickHz = 0 },
			wantErr: "playout.tick_hz",
		},
		{
			name:    "chunk smaller than a TS packet",
			mutate:  func(c *Config) { c.Router.ChunkBytes = 100 },
			wantErr: "router.chunk_bytes",
		},
		{
			name:    "zero queue depth",
			mutate:  func(c *Config) { c.Router.QueueDepth = 0 },
			wantErr: "router.queue_depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultsConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := defaultsConfig(t)
	cfg.Playout.MinPrefeedLead = 45 * time.Second

	require.NoError(t, cfg.Validate())
	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "min_prefeed_lead")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
playout:
  min_prefeed_lead: 8s
  tick_hz: 4
router:
  queue_depth: 16
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8*time.Second, cfg.Playout.MinPrefeedLead)
	assert.Equal(t, 4, cfg.Playout.TickHz)
	assert.Equal(t, 250*time.Millisecond, cfg.Playout.TickInterval())
	assert.Equal(t, 16, cfg.Router.QueueDepth)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AIRWAVE_PLAYOUT_MIN_PREFEED_LEAD", "6s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Second, cfg.Playout.MinPrefeedLead)
}

func TestPreloadLead(t *testing.T) {
	cfg := defaultsConfig(t)
	assert.Equal(t, 7*time.Second, cfg.Playout.PreloadLead())
}
