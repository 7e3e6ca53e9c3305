// Package timeline derives the dashboard's presentation data from an
// analysis result: the synthesized activity waveform, the merged
// chronological log, and the small view helpers the frontend renders with.
package timeline

import (
	"math"
	"math/rand"

	"github.com/sebumatt/Sentin/internal/analysis"
)

// Point is one waveform sample at 0.1s resolution.
type Point struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// eventNear returns the first event in source order within one second of t,
// or nil.
func eventNear(res *analysis.Result, t float64) *analysis.TimelineEvent {
	for i := range res.Events {
		if math.Abs(res.Events[i].TimeOffset-t) < 1.0 {
			return &res.Events[i]
		}
	}
	return nil
}

// Waveform synthesizes the activity trace rendered behind the scrubber. The
// trace is presentational, not measured: a calm low-frequency wave as
// baseline, a high-amplitude noise burst around each fall, and a moderate
// wobble around unsteady movement. The noise component is seeded so the same
// session always renders the same trace.
func Waveform(res *analysis.Result, duration float64, seed int64) []Point {
	maxTime := duration
	if maxTime <= 0 {
		for _, e := range res.Events {
			if e.TimeOffset+10 > maxTime {
				maxTime = e.TimeOffset + 10
			}
		}
		if maxTime == 0 {
			maxTime = 30
		}
	}

	rng := rand.New(rand.NewSource(seed))
	n := int(math.Ceil(maxTime * 10))
	points := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / 10
		var value float64

		event := eventNear(res, t)
		switch {
		case event != nil && event.Type == analysis.EventFall:
			value = 50 + (rng.Float64()-0.5)*60 + math.Sin(t*50)*20
		case event != nil && event.Type == analysis.EventUnsteady:
			value = 30 + math.Sin(t*10)*10 + (rng.Float64()-0.5)*10
		default:
			value = 20 + math.Sin(t*2)*4
		}
		if value < 0 {
			value = 0
		}

		points = append(points, Point{Time: math.Round(t*10) / 10, Value: value})
	}
	return points
}

// GradientOffset returns the fraction of the trace before the first fall,
// used to split the stroke color. 1 when no fall exists or the trace is
// empty, clamped to [0, 1] otherwise.
func GradientOffset(res *analysis.Result, points []Point) float64 {
	if len(points) == 0 {
		return 1
	}
	maxTime := points[len(points)-1].Time
	if maxTime <= 0 {
		return 1
	}
	fall := res.FirstEvent(analysis.EventFall)
	if fall == nil {
		return 1
	}
	offset := fall.TimeOffset / maxTime
	if offset < 0 {
		return 0
	}
	if offset > 1 {
		return 1
	}
	return offset
}
