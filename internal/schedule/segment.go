// Package schedule defines the playout plan contract: what should be airing
// on a channel at a given instant, as an ordered list of upcoming segments
// with frame-exact boundaries.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// SegmentType classifies segment material.
type SegmentType string

// Recognized segment types.
const (
	SegmentTypeContent SegmentType = "content"
	SegmentTypeFiller  SegmentType = "filler"
)

// Segment errors.
var (
	// ErrPlayToEOF indicates a segment with no derivable frame budget.
	// "Play to end of file" is forbidden: every segment must exhaust at a
	// known frame count.
	ErrPlayToEOF = errors.New("segment has no frame budget (play-to-EOF is forbidden)")

	// ErrInvalidFPS indicates a non-positive frame rate.
	ErrInvalidFPS = errors.New("segment fps must be a positive rational")

	// ErrInvalidWindow indicates end_time_utc not after start_time_utc.
	ErrInvalidWindow = errors.New("segment end time must be after start time")
)

// Segment is the unit of media played between two boundaries.
//
// FrameCount is explicit where the planner knows it (always, for filler);
// for content a missing count may be derived from DurationS and the frame
// rate. A negative FrameCount means "play to EOF", which the orchestrator
// rejects.
type Segment struct {
	AssetPath    string            `json:"asset_path"`
	Type         SegmentType       `json:"segment_type"`
	StartTimeUTC time.Time         `json:"start_time_utc"`
	EndTimeUTC   time.Time         `json:"end_time_utc"`
	DurationS    float64           `json:"duration_s"`
	FrameCount   int64             `json:"frame_count"`
	StartPTSms   int64             `json:"start_pts_ms"`
	FPSNum       int64             `json:"fps_numerator"`
	FPSDen       int64             `json:"fps_denominator"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate checks the segment invariants.
func (s *Segment) Validate() error {
	if s.FPSNum <= 0 || s.FPSDen <= 0 {
		return ErrInvalidFPS
	}
	if !s.EndTimeUTC.After(s.StartTimeUTC) {
		return ErrInvalidWindow
	}
	if s.FrameCount < 0 {
		return ErrPlayToEOF
	}
	if s.Type == SegmentTypeFiller && s.FrameCount == 0 {
		return fmt.Errorf("%w: filler requires an explicit frame count", ErrPlayToEOF)
	}
	return nil
}

// BoundaryMs returns the segment's end boundary in UTC milliseconds.
// This is the value the orchestrator passes to SwitchToLive; it is taken
// verbatim from the plan, never invented or rounded by the caller.
func (s *Segment) BoundaryMs() int64 {
	return s.EndTimeUTC.UnixMilli()
}

// EffectiveFrameCount returns the explicit frame budget, or one derived
// from DurationS and the frame rate when the planner left it implicit.
// Returns ErrPlayToEOF when neither yields a positive budget.
func (s *Segment) EffectiveFrameCount() (int64, error) {
	if s.FrameCount < 0 {
		return 0, ErrPlayToEOF
	}
	if s.FrameCount > 0 {
		return s.FrameCount, nil
	}
	if s.FPSNum <= 0 || s.FPSDen <= 0 {
		return 0, ErrInvalidFPS
	}
	derived := int64(s.DurationS*float64(s.FPSNum)/float64(s.FPSDen) + 0.5)
	if derived <= 0 {
		return 0, ErrPlayToEOF
	}
	return derived, nil
}

// StartFrame converts the join offset StartPTSms into a frame index.
func (s *Segment) StartFrame() int64 {
	if s.StartPTSms <= 0 {
		return 0
	}
	return (s.StartPTSms*s.FPSNum + 500*s.FPSDen) / (1000 * s.FPSDen)
}

// CTDurationMicros returns the segment's continuous-time extent in
// microseconds: frame_count x frame_duration_us, computed without
// per-frame rounding error.
func (s *Segment) CTDurationMicros() (int64, error) {
	frames, err := s.EffectiveFrameCount()
	if err != nil {
		return 0, err
	}
	return (frames*1_000_000*s.FPSDen + s.FPSNum/2) / s.FPSNum, nil
}

// Contains reports whether t falls within the segment's half-open window
// [start, end). Boundaries are start-inclusive.
func (s *Segment) Contains(t time.Time) bool {
	return !t.Before(s.StartTimeUTC) && t.Before(s.EndTimeUTC)
}
