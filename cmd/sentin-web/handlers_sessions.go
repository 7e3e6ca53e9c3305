package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/sebumatt/Sentin/internal/analysis"
	"github.com/sebumatt/Sentin/internal/monitor"
	"github.com/sebumatt/Sentin/internal/voice"
)

// maxUploadBytes bounds a single clip upload. Monitoring clips are short;
// anything larger is almost certainly the wrong file.
const maxUploadBytes = 200 << 20

// supportedVideoExtensions maps lowercase extensions to the MIME type sent
// to the model.
var supportedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// POST /api/sessions
// Accepts either a multipart upload (field "video", optional "duration") or
// a JSON body {"path": ..., "duration": ...} referencing a local file, the
// latter pairing with /api/pick. Creates the session and starts the
// analysis job; the response carries only the session id.
func handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		video    []byte
		mimeType string
		duration float64
	)

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			httpError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		file, header, err := r.FormFile("video")
		if err != nil {
			httpError(w, http.StatusBadRequest, "missing video file")
			return
		}
		defer file.Close()

		video, err = io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "unreadable video file")
			return
		}
		mimeType = videoMIME(header.Filename, header.Header.Get("Content-Type"))
		if d := r.FormValue("duration"); d != "" {
			duration, _ = strconv.ParseFloat(d, 64)
		}

	default:
		var req struct {
			Path     string  `json:"path"`
			Duration float64 `json:"duration"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		info, err := os.Stat(req.Path)
		if err != nil || info.IsDir() || info.Size() > maxUploadBytes {
			httpError(w, http.StatusBadRequest, "unreadable video path")
			return
		}
		video, err = os.ReadFile(req.Path)
		if err != nil {
			httpError(w, http.StatusBadRequest, "unreadable video path")
			return
		}
		mimeType = videoMIME(req.Path, "")
		duration = req.Duration
	}

	if len(video) == 0 {
		httpError(w, http.StatusBadRequest, "empty video")
		return
	}
	if mimeType == "" {
		httpError(w, http.StatusBadRequest, "unsupported video format")
		return
	}

	sess := registry.Create()
	log.Info().
		Str("session", sess.ID()).
		Int("bytes", len(video)).
		Str("mime", mimeType).
		Msg("Session created, starting analysis")

	go runAnalysisJob(sess, video, mimeType, duration)

	respondJSON(w, http.StatusAccepted, map[string]string{"id": sess.ID()})
}

// videoMIME resolves the MIME type from the filename extension, falling back
// to the client-declared type when it looks like video.
func videoMIME(name, declared string) string {
	if mime, ok := supportedVideoExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	if strings.HasPrefix(declared, "video/") {
		return declared
	}
	return ""
}

// runAnalysisJob drives one session from upload to ready: the analysis call,
// then eager voice-alert generation for the first detected fall so the audio
// is cached before playback reaches it. Analysis failure is terminal for the
// session; voice failure is not.
func runAnalysisJob(sess *monitor.Session, video []byte, mimeType string, duration float64) {
	ctx := context.Background()

	result, variant, err := analyzer.Analyze(ctx, video, mimeType)
	if err != nil {
		sess.SetFailed("Video analysis failed. Please check the clip and try again.")
		return
	}

	sess.SetResult(result, duration)
	log.Info().
		Str("session", sess.ID()).
		Str("variant", string(variant.ID)).
		Msg("Session ready")

	if fall := result.FirstEvent(analysis.EventFall); fall != nil {
		text := "Urgent. Fall detected. " + fall.Description
		if buf := voice.Generate(ctx, genaiClient, analysis.ModelGemini25FlashTTS, text); buf != nil {
			sess.SetVoiceAlert(buf)
		}
	}
}

// Routes under /api/sessions/{id}[/action]
func handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if !strings.HasPrefix(id, "session-") {
		id = "session-" + id
	}

	sess := registry.Get(id)
	if sess == nil {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}

	switch action {
	case "":
		handleSessionState(w, r, sess)
	case "playback":
		handlePlayback(w, r, sess)
	case "alert-audio":
		handleAlertAudio(w, r, sess)
	case "export":
		handleExport(w, r, sess)
	case "ws":
		handleSessionWS(w, r, sess)
	default:
		httpError(w, http.StatusNotFound, "not found")
	}
}

// GET /api/sessions/{id}
func handleSessionState(w http.ResponseWriter, r *http.Request, sess *monitor.Session) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, buildSessionView(sess))
}

// POST /api/sessions/{id}/playback
// Transport commands from the player: the browser reports time passage and
// control presses, the synchronizer owns every derived consequence.
func handlePlayback(w http.ResponseWriter, r *http.Request, sess *monitor.Session) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Action string  `json:"action"`
		Time   float64 `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		snap monitor.Snapshot
		err  error
	)
	switch req.Action {
	case "tick":
		snap, err = sess.Tick(req.Time)
	case "seek":
		snap, err = sess.Seek(req.Time)
	case "play":
		snap, err = sess.Play()
	case "pause":
		snap, err = sess.Pause()
	case "ended":
		snap, err = sess.Ended()
	case "tone-finished":
		snap, err = sess.ToneFinished()
	case "reset":
		snap, err = sess.Reset()
	default:
		httpError(w, http.StatusBadRequest, "unknown action")
		return
	}
	if err != nil {
		if errors.Is(err, monitor.ErrAnalysisPending) {
			httpError(w, http.StatusConflict, "analysis in progress")
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// GET /api/sessions/{id}/alert-audio
// WAV-encoded cached voice alert for the browser's audio element.
func handleAlertAudio(w http.ResponseWriter, r *http.Request, sess *monitor.Session) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	buf := sess.VoiceAlert()
	if buf == nil {
		httpError(w, http.StatusNotFound, "no voice alert for this session")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.EncodeWAV())
}

// POST /api/pick
// Opens a native OS file picker restricted to video files and returns the
// selected path for a follow-up /api/sessions call.
func handlePick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	selected, err := zenity.SelectFile(
		zenity.Title("Select monitoring clip"),
		zenity.FileFilters{
			{
				Name:     "Video files",
				Patterns: []string{"*.mp4", "*.mov", "*.avi", "*.webm", "*.mkv"},
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"path":     "",
				"canceled": true,
			})
			return
		}
		log.Error().Err(err).Msg("File picker failed")
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}

	log.Info().Str("path", selected).Msg("Clip picked via native dialog")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"path":     selected,
		"canceled": false,
	})
}
