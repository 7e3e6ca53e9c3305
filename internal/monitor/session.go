// Package monitor owns the playback/time synchronizer: per-session state
// driven by transport commands from the dashboard, deriving the active alert,
// the call-escalation status, and voice-alert playback from the advancing
// video timestamp.
package monitor

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebumatt/Sentin/internal/analysis"
	"github.com/sebumatt/Sentin/internal/metrics"
	"github.com/sebumatt/Sentin/internal/voice"
)

// CallStatus is the current escalation state driving the call UI.
type CallStatus string

const (
	CallNone      CallStatus = "NONE"
	CallCaregiver CallStatus = "CAREGIVER"
	CallEmergency CallStatus = "EMERGENCY"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusAnalyzing Status = "analyzing"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

const (
	// alertWindow is how long an event stays the active alert after its
	// offset (closed interval).
	alertWindow = 3.0
	// triggerWindow is the escalation window around an event offset. It is
	// deliberately narrower than alertWindow so the call fires near the
	// onset of the event rather than throughout its display duration.
	triggerWindow = 1.2

	fallConfidenceMin       = 65.0
	inactivityConfidenceMin = 80.0

	// defaultRevertAfter is how long a call state persists before
	// auto-reverting to none, supporting replay loops without explicit
	// dismissal.
	defaultRevertAfter = 12 * time.Second
)

// ErrAnalysisPending is returned for playback commands issued while the
// analysis call is still in flight.
var ErrAnalysisPending = errors.New("analysis in progress")

// Snapshot is an immutable view of session state, pushed to observers after
// every transition.
type Snapshot struct {
	SessionID   string     `json:"sessionId"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	CallStatus  CallStatus `json:"callStatus"`
	ActiveAlert string     `json:"activeAlert,omitempty"`
	CurrentTime float64    `json:"currentTime"`
	Duration    float64    `json:"duration"`
	Playing     bool       `json:"playing"`
	Ended       bool       `json:"ended"`
	TonePlaying bool       `json:"tonePlaying"`
	VoiceReady  bool       `json:"voiceReady"`
}

// Session is the single mutable state owner for one uploaded video. All
// transitions run under one mutex; timers re-enter through the same lock.
type Session struct {
	mu sync.Mutex

	id       string
	created  time.Time
	status   Status
	errMsg   string
	result   *analysis.Result
	duration float64

	callStatus  CallStatus
	currentTime float64
	activeAlert string
	playing     bool
	ended       bool

	// revertTimer is the cancellable auto-revert scheduled by the transition
	// that entered the current call state. Cancelled on every transition out
	// of that state.
	revertTimer *time.Timer
	revertAfter time.Duration

	voiceAlert  *voice.Buffer
	alertPlayed bool
	tonePlaying bool

	observers map[int]chan Snapshot
	nextObs   int
}

// NewSession creates a session in the analyzing state.
func NewSession(id string) *Session {
	return &Session{
		id:          id,
		created:     time.Now(),
		status:      StatusAnalyzing,
		callStatus:  CallNone,
		revertAfter: defaultRevertAfter,
		observers:   make(map[int]chan Snapshot),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Result returns the analysis result, or nil before it is available.
func (s *Session) Result() *analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Duration returns the video duration in seconds.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// SetResult installs the analysis result and marks the session ready.
// duration is the video length reported by the player; when zero it falls
// back to the last event offset plus a display margin.
func (s *Session) SetResult(result *analysis.Result, duration float64) {
	s.mu.Lock()
	if duration <= 0 {
		for _, e := range result.Events {
			if e.TimeOffset+10 > duration {
				duration = e.TimeOffset + 10
			}
		}
		if duration == 0 {
			duration = 30
		}
	}
	s.result = result
	s.duration = duration
	s.status = StatusReady
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SetFailed marks the session failed with a user-visible message and returns
// it to the pre-upload state.
func (s *Session) SetFailed(msg string) {
	s.mu.Lock()
	s.status = StatusFailed
	s.errMsg = msg
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SetVoiceAlert caches the eagerly generated fall alert. If playback already
// passed the fall event before generation resolved, the alert stays cached
// for the next pass; no retroactive playback occurs.
func (s *Session) SetVoiceAlert(buf *voice.Buffer) {
	s.mu.Lock()
	s.voiceAlert = buf
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// VoiceAlert returns the cached alert buffer, or nil.
func (s *Session) VoiceAlert() *voice.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceAlert
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Tick advances the playback timestamp and re-evaluates every derived state:
// active alert, escalation triggers, and voice-alert playback.
func (s *Session) Tick(t float64) (Snapshot, error) {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return Snapshot{}, ErrAnalysisPending
	}

	s.currentTime = t
	s.deriveActiveAlertLocked()
	s.evaluateEscalationLocked()
	s.evaluateVoiceLocked()

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return snap, nil
}

// Seek sets the timestamp directly and re-derives the active alert from
// scratch. Escalation triggers are edge-triggered on forward passage at
// playback rate, so a seek never re-runs them for events it jumps over.
// Any playing tone stops immediately.
func (s *Session) Seek(t float64) (Snapshot, error) {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return Snapshot{}, ErrAnalysisPending
	}

	s.currentTime = t
	s.ended = false
	s.stopToneLocked()
	s.deriveActiveAlertLocked()

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return snap, nil
}

// Play resumes playback.
func (s *Session) Play() (Snapshot, error) {
	return s.transport(func() {
		s.playing = true
		s.ended = false
	})
}

// Pause halts playback and stops any in-flight alert tone.
func (s *Session) Pause() (Snapshot, error) {
	return s.transport(func() {
		s.playing = false
		s.stopToneLocked()
	})
}

// Ended marks the video finished: any active tone stops and the per-event
// playback flag resets so a replay can re-trigger the alert.
func (s *Session) Ended() (Snapshot, error) {
	return s.transport(func() {
		s.playing = false
		s.ended = true
		s.stopToneLocked()
		s.alertPlayed = false
	})
}

// ToneFinished records that the alert tone completed naturally.
func (s *Session) ToneFinished() (Snapshot, error) {
	return s.transport(func() {
		s.tonePlaying = false
	})
}

// Reset returns the session to the start of the video with all derived
// state cleared.
func (s *Session) Reset() (Snapshot, error) {
	return s.transport(func() {
		s.currentTime = 0
		s.playing = false
		s.ended = false
		s.activeAlert = ""
		s.alertPlayed = false
		s.stopToneLocked()
		s.setCallStatusLocked(CallNone)
	})
}

func (s *Session) transport(apply func()) (Snapshot, error) {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return Snapshot{}, ErrAnalysisPending
	}
	apply()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return snap, nil
}

// deriveActiveAlertLocked recomputes the single active alert: the first
// event in source order whose display window [offset, offset+3] contains the
// current time. Source order is authoritative when windows overlap.
func (s *Session) deriveActiveAlertLocked() {
	s.activeAlert = ""
	for _, e := range s.result.Events {
		if s.currentTime >= e.TimeOffset && s.currentTime <= e.TimeOffset+alertWindow {
			s.activeAlert = string(e.Type)
			return
		}
	}
}

// evaluateEscalationLocked applies the call triggers for the current time.
func (s *Session) evaluateEscalationLocked() {
	t := s.currentTime

	// Caregiver call on a confident fall near its onset. Only from the idle
	// state: an active call is never restarted or downgraded.
	if s.callStatus == CallNone {
		for _, e := range s.result.Events {
			if e.Type == analysis.EventFall && e.Confidence >= fallConfidenceMin && within(t, e.TimeOffset, triggerWindow) {
				s.setCallStatusLocked(CallCaregiver)
				break
			}
		}
	}

	// Emergency call on confident inactivity; this overrides a caregiver
	// call but never restarts an emergency call already in progress.
	if s.callStatus != CallEmergency {
		for _, e := range s.result.Events {
			if e.Type == analysis.EventInactivity && e.Confidence >= inactivityConfidenceMin && within(t, e.TimeOffset, triggerWindow) {
				s.setCallStatusLocked(CallEmergency)
				break
			}
		}
	}
}

// setCallStatusLocked performs a call-state transition. The auto-revert
// scheduled by the previous transition is cancelled here, so a stale revert
// can never overwrite a later escalation; entering a call state schedules a
// fresh revert.
func (s *Session) setCallStatusLocked(status CallStatus) {
	if s.callStatus == status {
		return
	}

	if s.revertTimer != nil {
		s.revertTimer.Stop()
		s.revertTimer = nil
	}

	from := s.callStatus
	s.callStatus = status

	log.Info().
		Str("session", s.id).
		Str("from", string(from)).
		Str("to", string(status)).
		Float64("time", s.currentTime).
		Msg("Call status transition")

	if status != CallNone {
		metrics.New("SentinCare").
			Dimension("Operation", "escalation").
			Dimension("CallStatus", string(status)).
			Count("Escalations").
			Flush()

		entered := status
		s.revertTimer = time.AfterFunc(s.revertAfter, func() {
			s.mu.Lock()
			// The timer is cancelled on any transition out of this state;
			// this check only guards the window between fire and lock.
			if s.callStatus != entered {
				s.mu.Unlock()
				return
			}
			s.revertTimer = nil
			s.callStatus = CallNone
			log.Info().Str("session", s.id).Str("from", string(entered)).Msg("Call status auto-reverted")
			snap := s.snapshotLocked()
			s.mu.Unlock()
			s.notify(snap)
		})
	}
}

// evaluateVoiceLocked drives the exclusive alert tone. The alert plays once
// per fall pass: the played flag arms as soon as the fall window becomes the
// active alert and rearms when it clears. A fall reached before the cached
// buffer exists is silently skipped for that pass.
func (s *Session) evaluateVoiceLocked() {
	if s.activeAlert == string(analysis.EventFall) {
		if s.alertPlayed {
			return
		}
		s.alertPlayed = true
		if s.voiceAlert != nil && s.playing {
			// The tone claim is exclusive: a prior tone stops first.
			s.stopToneLocked()
			s.tonePlaying = true
			log.Debug().Str("session", s.id).Msg("Playing cached fall alert")
		}
		return
	}
	s.alertPlayed = false
}

// stopToneLocked is idempotent: stopping an already-stopped tone is required
// behavior, not a reportable condition.
func (s *Session) stopToneLocked() {
	s.tonePlaying = false
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:   s.id,
		Status:      s.status,
		Error:       s.errMsg,
		CallStatus:  s.callStatus,
		ActiveAlert: s.activeAlert,
		CurrentTime: s.currentTime,
		Duration:    s.duration,
		Playing:     s.playing,
		Ended:       s.ended,
		TonePlaying: s.tonePlaying,
		VoiceReady:  s.voiceAlert != nil,
	}
}

// Subscribe registers an observer channel that receives a snapshot after
// every transition. The returned cancel function unregisters it.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
	return ch, cancel
}

// notify fans a snapshot out to observers. Slow observers drop snapshots
// rather than blocking the transition path.
func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	for _, ch := range s.observers {
		select {
		case ch <- snap:
		default:
		}
	}
	s.mu.Unlock()
}

func within(t, offset, window float64) bool {
	d := t - offset
	if d < 0 {
		d = -d
	}
	return d < window
}
