package schedule

import (
	"fmt"
	"time"
)

// Grid describes a fixed-block channel layout: each block of BlockMinutes
// opens with ProgramMinutes of content and pads the remainder with filler.
// Filler position is continuous-virtual: the filler asset loops from
// FillerEpoch, so the join offset is derived from wall time, never from
// when playback happened to start.
type Grid struct {
	BlockMinutes   int
	ProgramMinutes int
	ProgramAsset   string
	FillerAsset    string
	FillerEpoch    time.Time
	FillerLoopS    float64
	FPSNum         int64
	FPSDen         int64
}

// Validate checks the grid parameters.
func (g *Grid) Validate() error {
	if g.BlockMinutes <= 0 {
		return fmt.Errorf("grid block must be positive, got %d", g.BlockMinutes)
	}
	if g.ProgramMinutes <= 0 || g.ProgramMinutes > g.BlockMinutes {
		return fmt.Errorf("program minutes %d must be in (0, %d]", g.ProgramMinutes, g.BlockMinutes)
	}
	if g.FPSNum <= 0 || g.FPSDen <= 0 {
		return ErrInvalidFPS
	}
	return nil
}

// fillerLoop returns the filler loop length, defaulting to the filler
// window of one block.
func (g *Grid) fillerLoop() time.Duration {
	if g.FillerLoopS > 0 {
		return time.Duration(g.FillerLoopS * float64(time.Second))
	}
	return time.Duration(g.BlockMinutes-g.ProgramMinutes) * time.Minute
}

// fillerOffset returns the continuous-virtual join offset for filler
// airing at t: (t - filler_epoch) mod loop_length.
func (g *Grid) fillerOffset(t time.Time) time.Duration {
	loop := g.fillerLoop()
	if loop <= 0 {
		return 0
	}
	off := t.Sub(g.FillerEpoch) % loop
	if off < 0 {
		off += loop
	}
	return off
}

// blockStart floors t to the grid in UTC.
func (g *Grid) blockStart(t time.Time) time.Time {
	return t.UTC().Truncate(time.Duration(g.BlockMinutes) * time.Minute)
}

// frames converts a wall-clock extent to a frame budget at the grid rate.
func (g *Grid) frames(d time.Duration) int64 {
	return (d.Microseconds()*g.FPSNum + 500_000*g.FPSDen) / (1_000_000 * g.FPSDen)
}

func (g *Grid) segment(typ SegmentType, asset string, start, end time.Time, ptsOffset time.Duration) Segment {
	d := end.Sub(start)
	return Segment{
		AssetPath:    asset,
		Type:         typ,
		StartTimeUTC: start,
		EndTimeUTC:   end,
		DurationS:    d.Seconds(),
		FrameCount:   g.frames(d),
		StartPTSms:   ptsOffset.Milliseconds(),
		FPSNum:       g.FPSNum,
		FPSDen:       g.FPSDen,
		Metadata: map[string]string{
			"segment_seconds": fmt.Sprintf("%d", g.BlockMinutes*60),
		},
	}
}

// SegmentsAt returns at least n segments in airing order starting with the
// one containing at. The first element is clipped to begin at at, carrying
// the join offset in start_pts_ms; successors are whole segments.
func (g *Grid) SegmentsAt(at time.Time, n int) []Segment {
	if n < 2 {
		n = 2
	}
	at = at.UTC()
	out := make([]Segment, 0, n)
	bs := g.blockStart(at)
	for len(out) < n {
		programEnd := bs.Add(time.Duration(g.ProgramMinutes) * time.Minute)
		blockEnd := bs.Add(time.Duration(g.BlockMinutes) * time.Minute)

		if at.Before(programEnd) {
			start, pts := bs, time.Duration(0)
			if at.After(start) {
				pts = at.Sub(start)
				start = at
			}
			out = append(out, g.segment(SegmentTypeContent, g.ProgramAsset, start, programEnd, pts))
		}
		if programEnd.Before(blockEnd) && at.Before(blockEnd) && len(out) < n {
			start := programEnd
			if at.After(start) {
				start = at
			}
			out = append(out, g.segment(SegmentTypeFiller, g.FillerAsset, start, blockEnd, g.fillerOffset(start)))
		}
		bs = blockEnd
	}
	return out[:n]
}
