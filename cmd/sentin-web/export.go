package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/sebumatt/Sentin/internal/monitor"
	"github.com/sebumatt/Sentin/internal/timeline"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (per the
// APPNOTE registry).
const zipMethodZstd = 93

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	})
}

// GET /api/sessions/{id}/export
// Bundles the analysis result, merged activity log, summary, and cached
// voice alert into one archive for handoff to a care coordinator.
func handleExport(w http.ResponseWriter, r *http.Request, sess *monitor.Session) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result := sess.Result()
	if result == nil {
		httpError(w, http.StatusConflict, "analysis not complete")
		return
	}
	snap := sess.Snapshot()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		header := &zip.FileHeader{
			Name:   name,
			Method: zipMethodZstd,
		}
		header.SetModTime(time.Now())
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		_, err = entry.Write(data)
		return err
	}

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		httpError(w, http.StatusInternalServerError, "encode analysis")
		return
	}

	var logText bytes.Buffer
	for _, l := range timeline.MergeLogs(result, snap.CallStatus) {
		fmt.Fprintf(&logText, "%s  %s\n", l.Timestamp, l.Description)
	}

	var summary bytes.Buffer
	fmt.Fprintf(&summary, "Session: %s\n", sess.ID())
	fmt.Fprintf(&summary, "Summary: %s\n", result.Summary)
	fmt.Fprintf(&summary, "Fall risk: %s (mobility %.1f/10)\n",
		result.RiskAssessment.FallRisk, result.RiskAssessment.MobilityScore)
	fmt.Fprintf(&summary, "Vitals: HR %.0f bpm, SpO2 %.0f%%, activity %s\n",
		result.Vitals.HeartRate, result.Vitals.OxygenLevel, result.Vitals.ActivityLevel)

	if err := write("analysis.json", resultJSON); err == nil {
		err = write("activity-log.txt", logText.Bytes())
		if err == nil {
			err = write("summary.txt", summary.Bytes())
		}
	}
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID()).Msg("Export bundle failed")
		httpError(w, http.StatusInternalServerError, "build export bundle")
		return
	}

	if alert := sess.VoiceAlert(); alert != nil {
		if err := write("alert.wav", alert.EncodeWAV()); err != nil {
			log.Warn().Err(err).Msg("Skipping alert audio in export")
		}
	}

	if err := zw.Close(); err != nil {
		httpError(w, http.StatusInternalServerError, "finalize export bundle")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sess.ID()+".zip"))
	w.Write(buf.Bytes())
}
