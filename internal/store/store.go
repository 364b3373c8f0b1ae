// Package store persists optimization run history. The pipeline itself is
// stateless; this is the externally-stored manifest archive the CLI uses
// for run listings and idempotence checks.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bundlepack/internal/manifest"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// Run is one persisted pipeline invocation.
type Run struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	InputHash     string    `json:"input_hash"`
	Fingerprint   string    `json:"fingerprint"`
	BundleCount   int       `json:"bundle_count"`
	ChunkCount    int       `json:"chunk_count"`
	OriginalSize  int64     `json:"original_size"`
	SizeReduction int64     `json:"size_reduction"`
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=3000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun archives a manifest and returns the stored run record.
func (s *Store) SaveRun(result *manifest.OptimizationResult) (Run, error) {
	fingerprint, err := result.Fingerprint()
	if err != nil {
		return Run{}, err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return Run{}, err
	}

	run := Run{
		ID:            uuid.NewString(),
		CreatedAt:     result.GeneratedAt,
		InputHash:     result.InputHash,
		Fingerprint:   fingerprint,
		BundleCount:   len(result.Bundles),
		ChunkCount:    len(result.SharedChunks),
		OriginalSize:  result.Metrics.OriginalTotalSize,
		SizeReduction: result.Metrics.SizeReduction,
	}
	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, created_at, input_hash, fingerprint,
			bundle_count, chunk_count, original_size, size_reduction, manifest_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.InputHash, run.Fingerprint,
		run.BundleCount, run.ChunkCount, run.OriginalSize, run.SizeReduction, string(encoded))
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT run_id, created_at, input_hash, fingerprint,
			bundle_count, chunk_count, original_size, size_reduction
		FROM runs
		ORDER BY created_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetManifest loads the archived manifest for a run id.
func (s *Store) GetManifest(runID string) (*manifest.OptimizationResult, error) {
	var encoded string
	err := s.db.QueryRow(`SELECT manifest_json FROM runs WHERE run_id = ?`, runID).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	var result manifest.OptimizationResult
	if err := json.Unmarshal([]byte(encoded), &result); err != nil {
		return nil, fmt.Errorf("corrupt manifest for run %s: %w", runID, err)
	}
	return &result, nil
}

// LatestForInput returns the most recent run for an input hash. The CLI
// uses it to flag determinism drift: same input hash, different
// fingerprint.
func (s *Store) LatestForInput(inputHash string) (Run, bool, error) {
	row := s.db.QueryRow(`
		SELECT run_id, created_at, input_hash, fingerprint,
			bundle_count, chunk_count, original_size, size_reduction
		FROM runs
		WHERE input_hash = ?
		ORDER BY created_at DESC, run_id
		LIMIT 1
	`, inputHash)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var createdAt string
	err := row.Scan(&run.ID, &createdAt, &run.InputHash, &run.Fingerprint,
		&run.BundleCount, &run.ChunkCount, &run.OriginalSize, &run.SizeReduction)
	if err != nil {
		return Run{}, err
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		run.CreatedAt = ts
	}
	return run, nil
}
