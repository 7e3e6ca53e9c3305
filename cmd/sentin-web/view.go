package main

import (
	"hash/fnv"

	"github.com/sebumatt/Sentin/internal/monitor"
	"github.com/sebumatt/Sentin/internal/timeline"
)

// buildSessionView assembles the full dashboard payload for one session:
// the live snapshot plus, once analysis has completed, the result and its
// derived presentation data.
func buildSessionView(sess *monitor.Session) map[string]interface{} {
	snap := sess.Snapshot()
	view := map[string]interface{}{
		"session": snap,
	}

	result := sess.Result()
	if result == nil {
		return view
	}

	points := timeline.Waveform(result, snap.Duration, waveformSeed(sess.ID()))
	view["analysis"] = result
	view["waveform"] = points
	view["gradientOffset"] = timeline.GradientOffset(result, points)
	view["logs"] = timeline.MergeLogs(result, snap.CallStatus)
	view["hazards"] = timeline.SortHazards(result.Hazards)
	view["clock"] = timeline.Clock(snap.CurrentTime, snap.Duration)
	if e := timeline.ActiveEvent(result, snap.CurrentTime); e != nil {
		view["badge"] = e.Type
	}
	return view
}

// waveformSeed pins the synthesized trace's noise to the session id so every
// poll renders the same chart.
func waveformSeed(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
