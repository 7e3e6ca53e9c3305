package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/sebumatt/Sentin/internal/analysis"
	"github.com/sebumatt/Sentin/internal/auth"
	"github.com/sebumatt/Sentin/internal/experiment"
	"github.com/sebumatt/Sentin/internal/logging"
	"github.com/sebumatt/Sentin/internal/monitor"
)

//go:embed dashboard.html
var dashboardPage []byte

// CLI flags
var (
	portFlag  int
	modelFlag string
	dbFlag    string
)

// Server-wide state, initialized once in runMain.
var (
	genaiClient *genai.Client
	analyzer    *analysis.Client
	registry    *monitor.Registry
	runStore    *experiment.Store
)

var rootCmd = &cobra.Command{
	Use:   "sentin-web",
	Short: "Local caregiver dashboard for video monitoring",
	Long: `Sentin Web starts a local server that analyzes uploaded care-home video
through the Gemini API and drives a synchronized monitoring dashboard:
fall and inactivity alerts, call escalation, a chronological activity log,
and a pre-generated voice alert.

Examples:
  sentin-web
  sentin-web --port 9090
  sentin-web --model gemini-2.5-flash`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", analysis.GetModelName(), "Gemini model for video analysis")
	rootCmd.Flags().StringVar(&dbFlag, "db", "", "Path to the prompt experiment log (default ~/.sentin/experiments.db)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	initStart := time.Now()

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get API key")
	}

	ctx := context.Background()
	genaiClient, err = analysis.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	if err := auth.ValidateAPIKey(ctx, genaiClient, modelFlag); err != nil {
		log.Fatal().Err(err).Msg("Invalid API key")
	}
	log.Info().Msg("API key validated")

	// The experiment log is best-effort: a store that cannot open disables
	// run logging but never blocks monitoring.
	dbPath := dbFlag
	if dbPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dbPath = filepath.Join(home, ".sentin", "experiments.db")
		}
	}
	var runs experiment.RunLogger
	if dbPath != "" {
		runStore, err = experiment.OpenStore(dbPath)
		if err != nil {
			log.Warn().Err(err).Str("path", dbPath).Msg("Experiment store unavailable, run logging disabled")
		} else {
			runs = runStore
			defer runStore.Close()
		}
	}

	analyzer = analysis.NewClient(genaiClient, modelFlag, experiment.NewSelector(), runs)
	registry = monitor.NewRegistry()

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/sessions", handleSessions)
	mux.HandleFunc("/api/sessions/", handleSessionRoutes)
	mux.HandleFunc("/api/pick", handlePick)

	// Embedded dashboard page
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; media-src 'self' blob:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; connect-src 'self' ws:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if r.URL.Path != "/" {
			httpError(w, http.StatusNotFound, "not found")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(dashboardPage)
	})

	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	logging.NewStartupLogger("sentin-web").
		Feature("voiceAlerts", true).
		Feature("experiments", runs != nil).
		Config("port", fmt.Sprintf("%d", portFlag)).
		Config("model", modelFlag).
		Config("experimentDb", dbPath).
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  Sentin dashboard: http://localhost:%d\n\n", portFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server is single-user and local; only localhost origins talk
		// to it.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
