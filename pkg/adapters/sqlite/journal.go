// Package sqlite provides a durable, file-backed implementation of the
// persistence ports using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loopkit/loopkit/pkg/ports"
)

// Store provides SQLite-backed persistence for journal records and
// snapshots. It implements both ports.Journal and ports.SnapshotStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// The driver is not safe for concurrent writes over multiple conns.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// New returns a Store bound to an existing database handle. The caller is
// responsible for having run Migrate.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite: db is nil")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts the record with the next sequence number for its loop.
// The insert and the sequence read happen in one transaction, so concurrent
// appends cannot collide.
func (s *Store) Append(ctx context.Context, rec ports.Record) (ports.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.Record{}, fmt.Errorf("append: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var seq uint64
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE loop_id = ?`, rec.LoopID).Scan(&seq)
	if err != nil {
		return ports.Record{}, fmt.Errorf("append: next seq: %w", err)
	}

	payload := rec.Payload
	if payload == nil {
		// nil would bind as NULL and violate the NOT NULL constraint.
		payload = []byte{}
	}

	at := rec.At.UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (loop_id, seq, id, kind, payload, at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.LoopID, seq, rec.ID, rec.Kind, payload, at)
	if err != nil {
		return ports.Record{}, fmt.Errorf("append: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ports.Record{}, fmt.Errorf("append: commit: %w", err)
	}

	rec.Seq = seq
	return rec, nil
}

// Replay streams records in sequence order, starting after the given seq.
func (s *Store) Replay(ctx context.Context, loopID string, after uint64, fn func(ports.Record) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, kind, payload, at FROM records WHERE loop_id = ? AND seq > ? ORDER BY seq`,
		loopID, after)
	if err != nil {
		return fmt.Errorf("replay: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec ports.Record
			at  string
		)
		rec.LoopID = loopID
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.Kind, &rec.Payload, &at); err != nil {
			return fmt.Errorf("replay: scan: %w", err)
		}
		if rec.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return fmt.Errorf("replay: parse timestamp: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Len reports the number of records stored for a loop.
func (s *Store) Len(ctx context.Context, loopID string) (uint64, error) {
	var n uint64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE loop_id = ?`, loopID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("len: %w", err)
	}
	return n, nil
}

// Save persists the snapshot, overwriting any previous one for the loop.
func (s *Store) Save(ctx context.Context, loopID string, seq uint64, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (loop_id, seq, data, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(loop_id) DO UPDATE SET seq = excluded.seq, data = excluded.data, saved_at = excluded.saved_at`,
		loopID, seq, data, now)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a loop.
func (s *Store) Load(ctx context.Context, loopID string) (uint64, []byte, error) {
	var (
		seq  uint64
		data []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT seq, data FROM snapshots WHERE loop_id = ?`, loopID).Scan(&seq, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ports.ErrSnapshotNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("load snapshot: %w", err)
	}
	return seq, data, nil
}

// Delete removes the snapshot for a loop.
func (s *Store) Delete(ctx context.Context, loopID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE loop_id = ?`, loopID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
