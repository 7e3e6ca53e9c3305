package timeline

import (
	"math"
	"sort"

	"github.com/sebumatt/Sentin/internal/analysis"
)

// riskRank orders hazard severity for display. Unknown levels sort last.
func riskRank(level string) int {
	switch level {
	case "High":
		return 0
	case "Medium":
		return 1
	case "Low":
		return 2
	}
	return 3
}

// SortHazards returns the hazards ordered most severe first, preserving
// input order within a severity level.
func SortHazards(hazards []analysis.Hazard) []analysis.Hazard {
	out := make([]analysis.Hazard, len(hazards))
	copy(out, hazards)
	sort.SliceStable(out, func(i, j int) bool {
		return riskRank(out[i].RiskLevel) < riskRank(out[j].RiskLevel)
	})
	return out
}

// ScrubTime maps a click position on the scrubber, expressed as a 0-1 ratio
// of its width, to a video timestamp. Out-of-range ratios clamp to the ends.
func ScrubTime(ratio, maxTime float64) float64 {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return ratio * maxTime
}

// ActiveEvent returns the first event in source order within 1.5s of the
// current time, or nil. This is the wider badge window; the playback alert
// window lives with the session state.
func ActiveEvent(res *analysis.Result, t float64) *analysis.TimelineEvent {
	for i := range res.Events {
		if math.Abs(res.Events[i].TimeOffset-t) < 1.5 {
			return &res.Events[i]
		}
	}
	return nil
}

// Clock renders the "current / total" scrubber caption.
func Clock(current, total float64) string {
	return FormatTimestamp(current) + " / " + FormatTimestamp(total)
}
