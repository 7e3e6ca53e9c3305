package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sebumatt/Sentin/internal/analysis"
	"github.com/sebumatt/Sentin/internal/monitor"
)

const (
	caregiverLogText = "System: Calling Caregiver..."
	emergencyLogText = "System: Dialing Emergency Services (No Movement)"
)

// FormatTimestamp renders seconds of video time as the mm:ss display string.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// MergeLogs combines the model's activity log with system call entries for
// the current escalation state. A caregiver call injects its line one second
// after the first fall; an emergency call injects its line one second after
// the first inactivity event. Injection is idempotent: a line whose marker
// text is already present is never duplicated. The result is sorted by time
// offset, ties keeping input order.
func MergeLogs(res *analysis.Result, status monitor.CallStatus) []analysis.ActivityLog {
	logs := make([]analysis.ActivityLog, len(res.Logs))
	copy(logs, res.Logs)

	switch status {
	case monitor.CallCaregiver:
		if fall := res.FirstEvent(analysis.EventFall); fall != nil && !containsLog(logs, "Calling Caregiver") {
			logs = append(logs, systemLog(fall.TimeOffset+1, caregiverLogText))
		}
	case monitor.CallEmergency:
		if inact := res.FirstEvent(analysis.EventInactivity); inact != nil && !containsLog(logs, "Dialing Emergency Services") {
			logs = append(logs, systemLog(inact.TimeOffset+1, emergencyLogText))
		}
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].TimeOffset < logs[j].TimeOffset
	})
	return logs
}

func systemLog(at float64, text string) analysis.ActivityLog {
	return analysis.ActivityLog{
		TimeOffset:  at,
		Timestamp:   FormatTimestamp(at),
		Description: text,
	}
}

func containsLog(logs []analysis.ActivityLog, marker string) bool {
	for _, l := range logs {
		if strings.Contains(l.Description, marker) {
			return true
		}
	}
	return false
}

// IsSystemLog reports whether a log line was injected by the escalation
// machinery rather than produced by the model.
func IsSystemLog(l analysis.ActivityLog) bool {
	return strings.Contains(l.Description, "System:")
}
