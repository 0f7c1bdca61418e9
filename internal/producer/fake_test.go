package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/airwave/internal/schedule"
)

func fakePlan() []schedule.Segment {
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	return []schedule.Segment{{
		AssetPath:    "/media/show.ts",
		Type:         schedule.SegmentTypeContent,
		StartTimeUTC: start,
		EndTimeUTC:   start.Add(22 * time.Minute),
		FrameCount:   39560,
		FPSNum:       30000,
		FPSDen:       1001,
	}}
}

func TestFake_SwitchCycle(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	require.NoError(t, f.Start(ctx, fakePlan(), time.Now()))
	assert.Equal(t, HealthRunning, f.Health())

	ok, err := f.LoadPreview(ctx, "/media/filler.ts", 0, 14386, 30000, 1001)
	require.NoError(t, err)
	require.True(t, ok)

	boundary := int64(1717250520000)
	ok, err = f.SwitchToLive(ctx, boundary)
	require.NoError(t, err)
	assert.False(t, ok, "switch should be pending until completed")

	// Preview while armed violates the protocol.
	_, err = f.LoadPreview(ctx, "/media/other.ts", 0, 100, 30000, 1001)
	assert.ErrorIs(t, err, ErrProtocolViolation)

	f.CompleteSwitch()
	ok, err = f.SwitchToLive(ctx, boundary)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/media/filler.ts", f.GetState().CurrentAsset)
	assert.Equal(t, int64(1), f.GetState().Switches)

	require.NoError(t, f.Stop(ctx))
	assert.Equal(t, HealthStopped, f.Health())
	require.NoError(t, f.Stop(ctx))
}

func TestFake_SwitchWithoutPreview(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	require.NoError(t, f.Start(ctx, fakePlan(), time.Now()))

	_, err := f.SwitchToLive(ctx, 123)
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestFake_ScriptedFailures(t *testing.T) {
	ctx := context.Background()

	f := NewFake()
	f.StartErr = errors.New("boom")
	require.Error(t, f.Start(ctx, fakePlan(), time.Now()))

	f = NewFake()
	require.NoError(t, f.Start(ctx, fakePlan(), time.Now()))
	f.PreviewNotReady = true
	ok, err := f.LoadPreview(ctx, "/media/filler.ts", 0, 100, 30000, 1001)
	require.NoError(t, err)
	assert.False(t, ok)

	// One-shot: the retry succeeds.
	ok, err = f.LoadPreview(ctx, "/media/filler.ts", 0, 100, 30000, 1001)
	require.NoError(t, err)
	assert.True(t, ok)

	f.SwitchErr = ErrTiming
	_, err = f.SwitchToLive(ctx, 123)
	assert.ErrorIs(t, err, ErrTiming)

	assert.Len(t, f.CallsTo("LoadPreview"), 2)
	assert.Len(t, f.CallsTo("SwitchToLive"), 1)
}
