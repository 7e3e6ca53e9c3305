package metrics

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestRecorder_FlushOutput(t *testing.T) {
	output := captureStdout(t, func() {
		New("SentinCare").
			Dimension("Operation", "analysis").
			Metric("LatencyMs", 1234.5, UnitMilliseconds).
			Count("ApiCalls").
			Property("sessionId", "abc-123").
			Flush()
	})

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse metric output as JSON: %v\nOutput: %s", err, output)
	}

	if doc["namespace"] != "SentinCare" {
		t.Errorf("expected namespace SentinCare, got %v", doc["namespace"])
	}
	if doc["Operation"] != "analysis" {
		t.Errorf("expected Operation=analysis, got %v", doc["Operation"])
	}
	if doc["LatencyMs"] != 1234.5 {
		t.Errorf("expected LatencyMs=1234.5, got %v", doc["LatencyMs"])
	}
	if doc["ApiCalls"] != float64(1) {
		t.Errorf("expected ApiCalls=1, got %v", doc["ApiCalls"])
	}
	if doc["sessionId"] != "abc-123" {
		t.Errorf("expected sessionId=abc-123, got %v", doc["sessionId"])
	}
	if _, ok := doc["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	output := captureStdout(t, func() {
		New("SentinCare").Flush()
	})
	if output != "" {
		t.Errorf("expected no output for empty recorder, got: %s", output)
	}
}
