package monitor

import (
	"testing"
	"time"

	"github.com/sebumatt/Sentin/internal/analysis"
	"github.com/sebumatt/Sentin/internal/voice"
)

func readySession(t *testing.T, events ...analysis.TimelineEvent) *Session {
	t.Helper()
	s := NewSession("session-test")
	// Long enough that auto-revert never races the assertions; the revert
	// tests shorten it explicitly.
	s.revertAfter = time.Minute
	s.SetResult(&analysis.Result{Events: events}, 60)
	return s
}

func mustTick(t *testing.T, s *Session, at float64) Snapshot {
	t.Helper()
	snap, err := s.Tick(at)
	if err != nil {
		t.Fatalf("Tick(%v) failed: %v", at, err)
	}
	return snap
}

func TestActiveAlert_WindowAndSourceOrder(t *testing.T) {
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 5, Type: analysis.EventUnsteady, Confidence: 50},
		analysis.TimelineEvent{TimeOffset: 6, Type: analysis.EventNormal, Confidence: 50},
	)

	if snap := mustTick(t, s, 4.9); snap.ActiveAlert != "" {
		t.Errorf("before window: active alert = %q, want none", snap.ActiveAlert)
	}
	if snap := mustTick(t, s, 5.0); snap.ActiveAlert != "UNSTEADY" {
		t.Errorf("at window start: active alert = %q, want UNSTEADY", snap.ActiveAlert)
	}
	if snap := mustTick(t, s, 8.0); snap.ActiveAlert != "UNSTEADY" {
		t.Errorf("at window end (closed interval): active alert = %q, want UNSTEADY", snap.ActiveAlert)
	}
	if snap := mustTick(t, s, 8.01); snap.ActiveAlert != "NORMAL" {
		t.Errorf("past first window: active alert = %q, want NORMAL", snap.ActiveAlert)
	}
	if snap := mustTick(t, s, 9.5); snap.ActiveAlert != "" {
		t.Errorf("past all windows: active alert = %q, want none", snap.ActiveAlert)
	}

	// Overlapping windows: the first event in source order wins, even when a
	// later-listed event started earlier in video time.
	s2 := readySession(t,
		analysis.TimelineEvent{TimeOffset: 11, Type: analysis.EventFall, Confidence: 50},
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventUnsteady, Confidence: 50},
	)
	if snap := mustTick(t, s2, 11.5); snap.ActiveAlert != "FALL" {
		t.Errorf("overlap tie-break: active alert = %q, want FALL (source order)", snap.ActiveAlert)
	}
}

func TestCaregiverEscalation_FiresExactlyOnce(t *testing.T) {
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 70},
	)

	ch, cancel := s.Subscribe()
	defer cancel()

	// Advance 8.0 → 10.5: the trigger window |t-10| < 1.2 opens past 8.8.
	for ts := 8.0; ts <= 10.5; ts += 0.25 {
		mustTick(t, s, ts)
	}

	// Count NONE→CAREGIVER edges across the observed snapshot stream: the
	// call must have been entered exactly once even though the trigger window
	// covers many ticks.
	edges := 0
	prev := CallNone
	for {
		var done bool
		select {
		case snap := <-ch:
			if prev == CallNone && snap.CallStatus == CallCaregiver {
				edges++
			}
			prev = snap.CallStatus
		default:
			done = true
		}
		if done {
			break
		}
	}

	if s.Snapshot().CallStatus != CallCaregiver {
		t.Fatalf("call status = %s, want CAREGIVER", s.Snapshot().CallStatus)
	}
	if edges != 1 {
		t.Fatalf("caregiver escalation entered %d times, want exactly 1", edges)
	}
}

func TestCaregiverEscalation_RespectsConfidenceAndWindow(t *testing.T) {
	// Below the confidence floor: never escalates.
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 60},
	)
	mustTick(t, s, 10.0)
	if s.Snapshot().CallStatus != CallNone {
		t.Error("low-confidence fall must not escalate")
	}

	// Outside the 1.2s trigger window but inside the 3s display window:
	// alert shows, call does not fire.
	s2 := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 90},
	)
	snap := mustTick(t, s2, 12.0)
	if snap.ActiveAlert != "FALL" {
		t.Errorf("active alert = %q, want FALL", snap.ActiveAlert)
	}
	if snap.CallStatus != CallNone {
		t.Error("call fired outside the trigger window")
	}
}

func TestEmergencyEscalation_OverridesCaregiver(t *testing.T) {
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 70},
		analysis.TimelineEvent{TimeOffset: 20, Type: analysis.EventInactivity, Confidence: 85},
	)

	mustTick(t, s, 10.0)
	if s.Snapshot().CallStatus != CallCaregiver {
		t.Fatal("expected caregiver call after fall")
	}

	if snap := mustTick(t, s, 18.7); snap.CallStatus != CallCaregiver {
		t.Errorf("before emergency window: status = %s", snap.CallStatus)
	}
	if snap := mustTick(t, s, 19.0); snap.CallStatus != CallEmergency {
		t.Errorf("inside (18.8, 21.2): status = %s, want EMERGENCY", snap.CallStatus)
	}

	// Once in emergency, a later fall trigger cannot demote the call.
	s.mu.Lock()
	s.result.Events = append(s.result.Events,
		analysis.TimelineEvent{TimeOffset: 25, Type: analysis.EventFall, Confidence: 99})
	s.mu.Unlock()
	if snap := mustTick(t, s, 25.0); snap.CallStatus != CallEmergency {
		t.Errorf("fall demoted emergency call to %s", snap.CallStatus)
	}
}

func TestAutoRevert_AndStaleRevertCancelled(t *testing.T) {
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 70},
	)
	s.revertAfter = 60 * time.Millisecond

	mustTick(t, s, 10.0)
	if s.Snapshot().CallStatus != CallCaregiver {
		t.Fatal("expected caregiver call")
	}

	// With no further escalation the call reverts to none.
	time.Sleep(120 * time.Millisecond)
	if got := s.Snapshot().CallStatus; got != CallNone {
		t.Fatalf("after revert delay: status = %s, want NONE", got)
	}

	// Escalating to emergency before the caregiver revert fires must cancel
	// that revert: the emergency call keeps its own full dwell time.
	s2 := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 70},
		analysis.TimelineEvent{TimeOffset: 10.5, Type: analysis.EventInactivity, Confidence: 85},
	)
	s2.revertAfter = 80 * time.Millisecond
	mustTick(t, s2, 9.0) // caregiver fires at |9-10| < 1.2
	if s2.Snapshot().CallStatus != CallCaregiver {
		t.Fatal("expected caregiver call")
	}
	time.Sleep(40 * time.Millisecond)
	mustTick(t, s2, 10.5) // emergency overrides mid-dwell
	if s2.Snapshot().CallStatus != CallEmergency {
		t.Fatal("expected emergency call")
	}
	// Past the original caregiver deadline: the stale revert must not fire.
	time.Sleep(55 * time.Millisecond)
	if got := s2.Snapshot().CallStatus; got != CallEmergency {
		t.Errorf("stale revert fired: status = %s, want EMERGENCY", got)
	}
	// The emergency call's own revert still lands.
	time.Sleep(60 * time.Millisecond)
	if got := s2.Snapshot().CallStatus; got != CallNone {
		t.Errorf("emergency revert missing: status = %s, want NONE", got)
	}
}

func TestSeek_DoesNotRunEscalation(t *testing.T) {
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 95},
	)

	// Jumping directly onto the event re-derives the alert but never
	// escalates: escalation is edge-triggered on forward ticks only.
	snap, err := s.Seek(10.0)
	if err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if snap.ActiveAlert != "FALL" {
		t.Errorf("seek active alert = %q, want FALL", snap.ActiveAlert)
	}
	if snap.CallStatus != CallNone {
		t.Errorf("seek triggered escalation: %s", snap.CallStatus)
	}
}

func TestVoicePlayback_Lifecycle(t *testing.T) {
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 70},
	)
	if _, err := s.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	// Generation has not resolved: reaching the fall silently skips the tone
	// for this pass.
	snap := mustTick(t, s, 10.0)
	if snap.TonePlaying {
		t.Error("tone played with no cached buffer")
	}

	buf := voice.DecodePCM(make([]byte, 480)) // 10ms of silence
	s.SetVoiceAlert(buf)

	// Still inside the same fall pass: no retroactive playback.
	snap = mustTick(t, s, 10.5)
	if snap.TonePlaying {
		t.Error("retroactive tone playback within the same pass")
	}

	// Replay: ended resets the per-event flag, so the next pass plays.
	if _, err := s.Ended(); err != nil {
		t.Fatalf("Ended failed: %v", err)
	}
	if _, err := s.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	snap = mustTick(t, s, 10.0)
	if !snap.TonePlaying {
		t.Error("replay did not re-trigger the cached alert")
	}

	// Scrubbing stops the tone immediately.
	snap, err := s.Seek(2.0)
	if err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if snap.TonePlaying {
		t.Error("seek did not stop the tone")
	}

	// Pausing mid-tone also stops it; stop is idempotent. The intermediate
	// tick outside the fall window rearms the per-pass flag.
	mustTick(t, s, 2.0)
	mustTick(t, s, 10.0)
	if !s.Snapshot().TonePlaying {
		t.Fatal("expected tone to restart on the rearmed pass")
	}
	if _, err := s.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if s.Snapshot().TonePlaying {
		t.Error("pause did not stop the tone")
	}
	if _, err := s.Pause(); err != nil {
		t.Errorf("second pause (idempotent stop) errored: %v", err)
	}
}

func TestCommands_RejectedWhileAnalyzing(t *testing.T) {
	s := NewSession("session-pending")
	if _, err := s.Tick(1); err != ErrAnalysisPending {
		t.Errorf("Tick while analyzing: err = %v, want ErrAnalysisPending", err)
	}
	if _, err := s.Seek(1); err != ErrAnalysisPending {
		t.Errorf("Seek while analyzing: err = %v, want ErrAnalysisPending", err)
	}
	if _, err := s.Play(); err != ErrAnalysisPending {
		t.Errorf("Play while analyzing: err = %v, want ErrAnalysisPending", err)
	}
}

func TestReset_ClearsDerivedState(t *testing.T) {
	s := readySession(t,
		analysis.TimelineEvent{TimeOffset: 10, Type: analysis.EventFall, Confidence: 70},
	)
	mustTick(t, s, 10.0)

	snap, err := s.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if snap.CurrentTime != 0 || snap.CallStatus != CallNone || snap.ActiveAlert != "" {
		t.Errorf("reset left state behind: %+v", snap)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s := r.Create()
	if s.ID() == "" {
		t.Fatal("empty session id")
	}
	if r.Get(s.ID()) != s {
		t.Error("Get did not return the created session")
	}
	if r.Get("session-missing") != nil {
		t.Error("Get returned a session for an unknown id")
	}
}
