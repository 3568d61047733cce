package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/katalvlaran/melodia/generator"
)

var (
	// ErrNotFound is returned when no exercise matches the key.
	ErrNotFound = errors.New("store: exercise not found")

	// ErrNoFingerprint is returned by Put for results without a fingerprint.
	ErrNoFingerprint = errors.New("store: result has no fingerprint")
)

// Record is one cached exercise.
type Record struct {
	ID          uuid.UUID
	Fingerprint string
	Seed        int64
	Result      *generator.Result
	CreatedAt   time.Time
}

// Store is a SQLite-backed exercise cache.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path and migrates the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %q: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return s, nil
}

// Close releases the connection.
func (s *Store) Close() error { return s.db.Close() }

// Get loads the exercise cached for (fingerprint, seed).
func (s *Store) Get(ctx context.Context, fingerprint string, seed int64) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, fingerprint, seed, payload, created_at FROM exercises WHERE fingerprint = ? AND seed = ?`,
		fingerprint, seed)

	var (
		rec     Record
		id      string
		payload []byte
	)
	if err := row.Scan(&id, &rec.Fingerprint, &rec.Seed, &payload, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s/%d", ErrNotFound, fingerprint, seed)
		}
		return Record{}, fmt.Errorf("store: load %s/%d: %w", fingerprint, seed, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Record{}, fmt.Errorf("store: row id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.Result = new(generator.Result)
	if err := json.Unmarshal(payload, rec.Result); err != nil {
		return Record{}, fmt.Errorf("store: decode %s/%d: %w", fingerprint, seed, err)
	}

	return rec, nil
}

// Put caches res under its fingerprint and seed, replacing any previous
// payload. The row id of an existing entry is kept.
func (s *Store) Put(ctx context.Context, res *generator.Result) (uuid.UUID, error) {
	if res == nil || res.Fingerprint == "" {
		return uuid.Nil, ErrNoFingerprint
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: encode: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	// 1) Upsert on the natural key.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO exercises (id, fingerprint, seed, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint, seed) DO UPDATE SET payload = excluded.payload`,
		uuid.NewString(), res.Fingerprint, res.Seed, payload); err != nil {
		return uuid.Nil, fmt.Errorf("store: save %s/%d: %w", res.Fingerprint, res.Seed, err)
	}

	// 2) Read back the surviving row id.
	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM exercises WHERE fingerprint = ? AND seed = ?`,
		res.Fingerprint, res.Seed).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("store: read id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("store: commit: %w", err)
	}

	return uuid.Parse(id)
}

// Delete removes the entry for (fingerprint, seed).
func (s *Store) Delete(ctx context.Context, fingerprint string, seed int64) error {
	r, err := s.db.ExecContext(ctx, `DELETE FROM exercises WHERE fingerprint = ? AND seed = ?`, fingerprint, seed)
	if err != nil {
		return fmt.Errorf("store: delete %s/%d: %w", fingerprint, seed, err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, fingerprint, seed)
	}

	return nil
}

// Seeds lists the cached seeds of a fingerprint in ascending order.
func (s *Store) Seeds(ctx context.Context, fingerprint string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seed FROM exercises WHERE fingerprint = ? ORDER BY seed`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", fingerprint, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var seed int64
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("store: scan seed: %w", err)
		}
		out = append(out, seed)
	}

	return out, rows.Err()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS exercises (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		seed INTEGER NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (fingerprint, seed)
	);`)

	return err
}
