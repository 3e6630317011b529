// Package store persists analysis results in a SQLite database keyed by a
// content digest of the source audio. One row per track, overwritten on
// re-analysis: consumers always read exactly one authoritative record.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	musicanalysis "github.com/FmBlueSystem/music-analyzer-pro-sub000"
)

// ErrNotFound reports a digest with no stored analysis.
var ErrNotFound = errors.New("no analysis stored for digest")

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	digest      TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	analyzed_at TEXT NOT NULL,
	result      TEXT NOT NULL
);
`

// Store is a SQLite-backed analysis cache. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close() //nolint:wrapcheck
}

// Put stores the result for a digest, replacing any previous row.
func (s *Store) Put(ctx context.Context, digest, path string, result *musicanalysis.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (digest, path, analyzed_at, result)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET
			path = excluded.path,
			analyzed_at = excluded.analyzed_at,
			result = excluded.result
	`, digest, path, time.Now().UTC().Format(time.RFC3339), string(payload))
	if err != nil {
		return fmt.Errorf("storing result: %w", err)
	}

	return nil
}

// Get returns the stored result for a digest, or ErrNotFound.
func (s *Store) Get(ctx context.Context, digest string) (*musicanalysis.AnalysisResult, error) {
	var payload string

	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM analyses WHERE digest = ?`, digest,
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
	}

	if err != nil {
		return nil, fmt.Errorf("querying result: %w", err)
	}

	var result musicanalysis.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}

	return &result, nil
}

// Entry is one stored analysis with its provenance.
type Entry struct {
	Digest     string
	Path       string
	AnalyzedAt time.Time
	Result     *musicanalysis.AnalysisResult
}

// List returns all stored analyses, most recent first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT digest, path, analyzed_at, result FROM analyses ORDER BY analyzed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			entry   Entry
			stamp   string
			payload string
		)

		if err := rows.Scan(&entry.Digest, &entry.Path, &stamp, &payload); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		entry.AnalyzedAt, _ = time.Parse(time.RFC3339, stamp)

		var result musicanalysis.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("decoding result for %s: %w", entry.Digest, err)
		}

		entry.Result = &result
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return entries, nil
}

// Digest computes the content digest used as the primary key: SHA-256 over
// the raw file bytes, hex-encoded.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
