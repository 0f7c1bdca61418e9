package producer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/airwave/internal/clock"
	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/observability"
)

func TestSignal_EmitsTransportStream(t *testing.T) {
	ctx := context.Background()
	log := observability.NewLoggerWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, io.Discard)
	s := NewSignal(log, clock.NewSystem())

	require.NoError(t, s.Start(ctx, fakePlan(), time.Now().UTC()))
	defer s.Stop(ctx)

	buf := make([]byte, 188)
	_, err := io.ReadFull(s.Output(), buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x47), buf[0], "TS sync byte")
	assert.Equal(t, HealthRunning, s.Health())
}

func TestSignal_SwitchCompletesAtBoundary(t *testing.T) {
	ctx := context.Background()
	log := observability.NewLoggerWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, io.Discard)
	fc := clock.NewFake(time.Date(2025, 6, 1, 14, 21, 53, 0, time.UTC))
	s := NewSignal(log, fc)

	require.NoError(t, s.Start(ctx, fakePlan(), fc.NowUTC()))
	defer s.Stop(ctx)

	ok, err := s.LoadPreview(ctx, "/media/filler.ts", 0, 14386, 30000, 1001)
	require.NoError(t, err)
	require.True(t, ok)

	boundary := time.Date(2025, 6, 1, 14, 22, 0, 0, time.UTC).UnixMilli()
	ok, err = s.SwitchToLive(ctx, boundary)
	require.NoError(t, err)
	assert.False(t, ok, "boundary not reached yet")

	fc.Advance(8 * time.Second)
	ok, err = s.SwitchToLive(ctx, boundary)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/media/filler.ts", s.GetState().CurrentAsset)
}

func TestSignal_RejectsLateArm(t *testing.T) {
	ctx := context.Background()
	log := observability.NewLoggerWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, io.Discard)
	fc := clock.NewFake(time.Date(2025, 6, 1, 14, 22, 5, 0, time.UTC))
	s := NewSignal(log, fc)

	require.NoError(t, s.Start(ctx, fakePlan(), fc.NowUTC()))
	defer s.Stop(ctx)

	ok, err := s.LoadPreview(ctx, "/media/filler.ts", 0, 14386, 30000, 1001)
	require.NoError(t, err)
	require.True(t, ok)

	boundary := time.Date(2025, 6, 1, 14, 22, 0, 0, time.UTC).UnixMilli()
	_, err = s.SwitchToLive(ctx, boundary)
	assert.ErrorIs(t, err, ErrTiming)
}
