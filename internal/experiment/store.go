package experiment

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// RunRecord is one appended experiment log entry. Entries are written after
// every analysis call, success or failure, and never read back by the
// running application.
type RunRecord struct {
	VariantID  VariantID
	Timestamp  time.Time
	DurationMs int64
	Success    bool
	Error      string
	ClientInfo string
}

// RunLogger appends experiment run records.
type RunLogger interface {
	LogRun(rec RunRecord)
}

// Store persists run records to a local sqlite database. The schema is
// created lazily on the first write.
type Store struct {
	db        *sql.DB
	once      sync.Once
	schemaErr error
}

// OpenStore opens (or creates) the sqlite database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open experiment store: %w", err)
	}

	// WAL keeps writes from blocking the request path.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping experiment store: %w", err)
	}

	log.Info().Str("path", path).Msg("Experiment store opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	s.once.Do(func() {
		_, s.schemaErr = s.db.Exec(`
			CREATE TABLE IF NOT EXISTS prompt_runs (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				variant_id  TEXT NOT NULL,
				timestamp   TEXT NOT NULL,
				duration_ms INTEGER NOT NULL,
				success     INTEGER NOT NULL,
				error       TEXT,
				client_info TEXT
			)`)
	})
	return s.schemaErr
}

// LogRun appends one record. Failures are logged and swallowed: the run log
// is best-effort telemetry and must never surface into the analysis path.
func (s *Store) LogRun(rec RunRecord) {
	if err := s.ensureSchema(); err != nil {
		log.Warn().Err(err).Msg("Failed to create experiment schema")
		return
	}

	var errVal interface{}
	if rec.Error != "" {
		errVal = rec.Error
	}

	_, err := s.db.Exec(
		`INSERT INTO prompt_runs (variant_id, timestamp, duration_ms, success, error, client_info)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.VariantID),
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.DurationMs,
		rec.Success,
		errVal,
		rec.ClientInfo,
	)
	if err != nil {
		log.Warn().Err(err).Str("variant", string(rec.VariantID)).Msg("Failed to log prompt experiment")
		return
	}

	log.Debug().
		Str("variant", string(rec.VariantID)).
		Int64("duration_ms", rec.DurationMs).
		Bool("success", rec.Success).
		Msg("Experiment run logged")
}
