package schedule

import (
	"context"
	"time"
)

// Provider answers "what should be airing on channel C at time T".
//
// Contract:
//   - The returned sequence is in airing order, beginning with the segment
//     that contains at (first element: start <= at < end, start-inclusive).
//   - Every returned segment has an explicit end boundary or enough data
//     (duration_s, fps) to derive the exhaustion point.
//   - At least two elements are returned while schedule data exists, so the
//     successor is loadable before the current segment exhausts.
//   - The provider is pure and idempotent; it never mutates state.
//   - An empty sequence means no schedule data; for a running channel the
//     orchestrator treats that as fatal.
type Provider interface {
	PlayoutPlanNow(ctx context.Context, channelID string, at time.Time) ([]Segment, error)
}
