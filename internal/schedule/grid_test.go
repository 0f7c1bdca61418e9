package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid() Grid {
	return Grid{
		BlockMinutes:   30,
		ProgramMinutes: 22,
		ProgramAsset:   "/media/show.ts",
		FillerAsset:    "/media/filler.ts",
		FillerEpoch:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		FPSNum:         30000,
		FPSDen:         1001,
	}
}

func TestGrid_MidProgramJoin(t *testing.T) {
	grid := testGrid()
	at := time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC)

	segs := grid.SegmentsAt(at, 2)
	require.Len(t, segs, 2)

	prog := segs[0]
	assert.Equal(t, SegmentTypeContent, prog.Type)
	assert.Equal(t, "/media/show.ts", prog.AssetPath)
	assert.Equal(t, at, prog.StartTimeUTC)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 22, 0, 0, time.UTC), prog.EndTimeUTC)
	// Joined 7 minutes into the asset.
	assert.Equal(t, int64(7*60*1000), prog.StartPTSms)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 22, 0, 0, time.UTC).UnixMilli(), prog.BoundaryMs())
	// 900s remaining at 30000/1001 fps.
	assert.Equal(t, int64(26973), prog.FrameCount)
	assert.True(t, prog.Contains(at))
	assert.False(t, prog.Contains(prog.EndTimeUTC))

	filler := segs[1]
	assert.Equal(t, SegmentTypeFiller, filler.Type)
	assert.Equal(t, prog.EndTimeUTC, filler.StartTimeUTC)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC), filler.EndTimeUTC)
	assert.Equal(t, int64(14386), filler.FrameCount)
	// Continuous-virtual offset: (14:22 - epoch) mod 8 min = 360s.
	assert.Equal(t, int64(360_000), filler.StartPTSms)
}

func TestGrid_MidFillerJoin(t *testing.T) {
	grid := testGrid()
	at := time.Date(2025, 6, 1, 14, 25, 0, 0, time.UTC)

	segs := grid.SegmentsAt(at, 2)
	require.Len(t, segs, 2)

	filler := segs[0]
	assert.Equal(t, SegmentTypeFiller, filler.Type)
	assert.Equal(t, at, filler.StartTimeUTC)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC), filler.EndTimeUTC)
	// (14:25 - epoch) mod 8 min = 540s mod 480s = 60s.
	assert.Equal(t, int64(60_000), filler.StartPTSms)

	// Successor opens the next block on the grid.
	next := segs[1]
	assert.Equal(t, SegmentTypeContent, next.Type)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC), next.StartTimeUTC)
	assert.Equal(t, int64(0), next.StartPTSms)
}

func TestGrid_BlockStartIsInclusive(t *testing.T) {
	grid := testGrid()
	at := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)

	segs := grid.SegmentsAt(at, 2)
	require.Len(t, segs, 2)
	assert.Equal(t, at, segs[0].StartTimeUTC)
	assert.Equal(t, int64(0), segs[0].StartPTSms)
	assert.Equal(t, SegmentTypeContent, segs[0].Type)
}

func TestGrid_ProgramFillsWholeBlock(t *testing.T) {
	grid := testGrid()
	grid.ProgramMinutes = 30
	at := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	segs := grid.SegmentsAt(at, 2)
	require.Len(t, segs, 2)
	assert.Equal(t, SegmentTypeContent, segs[0].Type)
	assert.Equal(t, SegmentTypeContent, segs[1].Type)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC), segs[1].StartTimeUTC)
}

func TestGrid_Validate(t *testing.T) {
	grid := testGrid()
	require.NoError(t, grid.Validate())

	bad := grid
	bad.ProgramMinutes = 31
	assert.Error(t, bad.Validate())

	bad = grid
	bad.FPSNum = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidFPS)
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := NewStaticProvider()
	require.NoError(t, p.SetGrid("ch1", testGrid()))

	at := time.Date(2025, 6, 1, 14, 7, 0, 0, time.UTC)
	segs, err := p.PlayoutPlanNow(ctx, "ch1", at)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, int64(420_000), segs[0].StartPTSms)

	// Queries never mutate: same answer twice.
	again, err := p.PlayoutPlanNow(ctx, "ch1", at)
	require.NoError(t, err)
	assert.Equal(t, segs, again)

	// Unknown channel: no schedule data, not an error.
	segs, err = p.PlayoutPlanNow(ctx, "nope", at)
	require.NoError(t, err)
	assert.Empty(t, segs)

	p.RemoveGrid("ch1")
	segs, err = p.PlayoutPlanNow(ctx, "ch1", at)
	require.NoError(t, err)
	assert.Empty(t, segs)
}
