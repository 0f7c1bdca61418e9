package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/airwave/internal/clock"
	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/director"
	"github.com/jmylchreest/airwave/internal/producer"
)

func testRegistry(fc *clock.Fake) (*Registry, *director.Static, *int) {
	dir := director.NewStatic(director.ModeNormal)
	dir.AddChannel(director.Channel{ID: "ch1", Name: "one"})

	builds := 0
	factory := func(string, director.Mode) (producer.Producer, error) {
		builds++
		f := producer.NewFake()
		f.AutoCompleteSwitch = true
		return f, nil
	}
	reg := NewRegistry(fc, gridProvider(), dir, testPlayoutCfg(),
		config.RouterConfig{QueueDepth: 64, ChunkBytes: 4096}, factory, testLogger())
	return reg, dir, &builds
}

func TestRegistry_FirstViewerStartsLastViewerStops(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC))
	reg, _, builds := testRegistry(fc)

	sess, sub, err := reg.TuneIn(ctx, "ch1", "viewer-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, sub)
	assert.Equal(t, 1, *builds)
	assert.Equal(t, StatePlanned, sess.State())

	// Second viewer shares the session.
	sess2, sub2, err := reg.TuneIn(ctx, "ch1", "viewer-2")
	require.NoError(t, err)
	assert.Same(t, sess, sess2)
	require.NotNil(t, sub2)
	assert.Equal(t, 1, *builds)
	assert.Equal(t, 2, sess.ViewerCount())

	reg.TuneOut(ctx, "ch1", "viewer-1")
	assert.Equal(t, 1, sess.ViewerCount())
	assert.False(t, sess.DeferredTeardownTriggered(), "stop only on last viewer")

	// Last viewer out: stop requested; PLANNED is transient so teardown
	// defers until the grace expires without a stable state.
	reg.TuneOut(ctx, "ch1", "viewer-2")
	fc.Advance(11 * time.Second)
	reg.TickAll(ctx)
	assert.Nil(t, reg.Get("ch1"), "session destroyed after teardown")

	// Viewer queue reached EOF.
	_, open := <-sub2.Chunks()
	assert.False(t, open)
}

func TestRegistry_UnknownChannel(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC))
	reg, _, _ := testRegistry(fc)

	_, _, err := reg.TuneIn(ctx, "nope", "viewer-1")
	assert.ErrorIs(t, err, ErrChannelUnavailable)
}

func TestRegistry_NoScheduleData(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC))
	reg, dir, _ := testRegistry(fc)
	dir.AddChannel(director.Channel{ID: "ch2", Name: "two"})

	// ch2 has no grid in the provider.
	_, _, err := reg.TuneIn(ctx, "ch2", "viewer-1")
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, KindNoScheduleData, fatal.Kind)
	assert.Nil(t, reg.Get("ch2"), "failed session is not retained")
}

func TestRegistry_DirectorPullsChannel(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC))
	reg, dir, _ := testRegistry(fc)

	sess, _, err := reg.TuneIn(ctx, "ch1", "viewer-1")
	require.NoError(t, err)

	dir.RemoveChannel("ch1")
	reg.TickAll(ctx)

	// Stop requested even with a viewer attached; PLANNED defers it.
	fc.Advance(11 * time.Second)
	reg.TickAll(ctx)
	assert.True(t, sess.DeferredTeardownTriggered())
	assert.Nil(t, reg.Get("ch1"))
}

func TestRegistry_Shutdown(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC))
	reg, _, _ := testRegistry(fc)

	_, _, err := reg.TuneIn(ctx, "ch1", "viewer-1")
	require.NoError(t, err)

	reg.Shutdown(ctx)
	assert.Nil(t, reg.Get("ch1"))
}
