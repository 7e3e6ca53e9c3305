// Package analysis sends uploaded video to the Gemini API and parses the
// structured monitoring result the dashboard renders.
package analysis

// EventType classifies a discrete model-reported occurrence in video time.
type EventType string

const (
	EventFall       EventType = "FALL"
	EventUnsteady   EventType = "UNSTEADY"
	EventInactivity EventType = "INACTIVITY"
	EventNormal     EventType = "NORMAL"
)

// TimelineEvent is one model-reported occurrence at a point in video time.
type TimelineEvent struct {
	// TimeOffset is seconds from the start of the video.
	TimeOffset float64 `json:"timeOffset"`
	Type       EventType `json:"type"`
	// Confidence is the model's score in 0-100.
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// Vitals holds the model's estimated vital signs.
type Vitals struct {
	HeartRate   float64 `json:"heartRate"`
	OxygenLevel float64 `json:"oxygenLevel"`
	// ActivityLevel is one of High, Moderate, Low, Sedentary.
	ActivityLevel string `json:"activityLevel"`
}

// Hazard is a static environmental risk item, independent of time.
type Hazard struct {
	Label string `json:"label"`
	// RiskLevel is one of High, Medium, Low.
	RiskLevel   string `json:"riskLevel"`
	Description string `json:"description"`
}

// ActivityLog is one line of the chronological log.
type ActivityLog struct {
	TimeOffset float64 `json:"timeOffset"`
	// Timestamp is the display string, e.g. "0:01".
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// RiskAssessment summarises the resident's overall risk.
type RiskAssessment struct {
	// FallRisk is one of High, Medium, Low.
	FallRisk string `json:"fallRisk"`
	// MobilityScore is 0-10.
	MobilityScore float64 `json:"mobilityScore"`
}

// Result is the complete analysis payload for one uploaded video. It is
// created once per upload, immutable thereafter, and discarded on the next
// upload. The model output is trusted as-is: no cross-field consistency is
// enforced between events, logs, and vitals.
type Result struct {
	Vitals         Vitals          `json:"vitals"`
	Events         []TimelineEvent `json:"events"`
	Hazards        []Hazard        `json:"hazards"`
	Logs           []ActivityLog   `json:"logs"`
	Summary        string          `json:"summary"`
	RiskAssessment RiskAssessment  `json:"riskAssessment"`
}

// FirstEvent returns the first event of the given type in source order, or
// nil when none exists.
func (r *Result) FirstEvent(t EventType) *TimelineEvent {
	for i := range r.Events {
		if r.Events[i].Type == t {
			return &r.Events[i]
		}
	}
	return nil
}

// normalize clamps out-of-range numeric fields without rejecting the result.
// Offsets become non-negative and confidences land in 0-100; everything else
// passes through untouched.
func (r *Result) normalize() {
	for i := range r.Events {
		if r.Events[i].TimeOffset < 0 {
			r.Events[i].TimeOffset = 0
		}
		if r.Events[i].Confidence < 0 {
			r.Events[i].Confidence = 0
		}
		if r.Events[i].Confidence > 100 {
			r.Events[i].Confidence = 100
		}
	}
	for i := range r.Logs {
		if r.Logs[i].TimeOffset < 0 {
			r.Logs[i].TimeOffset = 0
		}
	}
}
