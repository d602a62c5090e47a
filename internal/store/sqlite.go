package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/amishk599/dealscan/internal/model"
)

// Ensure SQLiteStore implements model.ResultCache.
var _ model.ResultCache = (*SQLiteStore)(nil)

// SQLiteStore caches enrichment results and records run history in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Run is one recorded enrichment run.
type Run struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Input       string
	Output      string
	Total       int
	Succeeded   int
	Failed      int
	Interesting int
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// results and runs tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// Workers share the store; a single connection serializes writes.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS results (
			cache_key  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			input       TEXT NOT NULL,
			output      TEXT NOT NULL,
			total       INTEGER NOT NULL,
			succeeded   INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			interesting INTEGER NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// CacheKey derives a stable key from the model, prompt version and the record's content.
// The input line number is not part of the key.
func CacheKey(modelName, promptVersion string, rec model.CompanyRecord) string {
	h := sha256.New()
	for _, part := range []string{
		modelName,
		promptVersion,
		rec.Name,
		strconv.Itoa(rec.FoundedYear),
		strconv.Itoa(rec.TotalEmployees),
		rec.Headquarters,
		rec.Industry,
		rec.Description,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key, or nil if there is none.
func (s *SQLiteStore) Get(key string) (*model.EnrichmentResult, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM results WHERE cache_key = ?", key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached result %s: %w", key, err)
	}

	var res model.EnrichmentResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("decoding cached result %s: %w", key, err)
	}
	return &res, nil
}

// Put stores res under key, replacing any previous entry.
func (s *SQLiteStore) Put(key string, res model.EnrichmentResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO results (cache_key, payload, created_at) VALUES (?, ?, ?)",
		key, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("caching result %s: %w", key, err)
	}
	return nil
}

// Cleanup deletes cached results older than the given duration.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := s.db.Exec("DELETE FROM results WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up results older than %v: %w", olderThan, err)
	}
	return nil
}

// RecordRun persists the summary of a finished run and returns its ID.
// Relative input and output paths are resolved against the working directory.
func (s *SQLiteStore) RecordRun(summary model.Summary) (string, error) {
	id := summary.RunID
	if id == "" {
		id = uuid.NewString()
	}
	input, err := absPath(summary.Input)
	if err != nil {
		return "", fmt.Errorf("recording run %s: %w", id, err)
	}
	output, err := absPath(summary.Output)
	if err != nil {
		return "", fmt.Errorf("recording run %s: %w", id, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (id, started_at, duration_ms, input, output, total, succeeded, failed, interesting)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, summary.StartedAt.UTC(), summary.Duration.Milliseconds(), input, output,
		summary.Total, summary.Succeeded(), summary.Failed(), len(summary.Interesting),
	)
	if err != nil {
		return "", fmt.Errorf("recording run %s: %w", id, err)
	}
	return id, nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStore) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, input, output, total, succeeded, failed, interesting
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ms int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &ms, &r.Input, &r.Output, &r.Total, &r.Succeeded, &r.Failed, &r.Interesting); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
