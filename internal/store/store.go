// Package store persists the listen queue in SQLite so queued scrobbles
// survive client restarts.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/jlieth/legacy-scrobbler-go/internal/listen"
)

// Record is a persisted listen.
type Record struct {
	ID          string
	Listen      listen.Listen
	QueuedAt    time.Time
	SubmittedAt *time.Time
}

// Store wraps the SQLite connection with queue operations
type Store struct {
	conn *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// It enables WAL mode and runs migrations.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// migrate creates or updates the database schema
func (s *Store) migrate() error {
	schema := `
-- Listens table: the persistent scrobble queue
CREATE TABLE IF NOT EXISTS listens (
    id              TEXT PRIMARY KEY,
    played_at       INTEGER NOT NULL,
    artist          TEXT NOT NULL,
    title           TEXT NOT NULL,
    album           TEXT NOT NULL DEFAULT '',
    length          INTEGER NOT NULL DEFAULT 0,
    track_number    INTEGER NOT NULL DEFAULT 0,
    musicbrainz_id  TEXT NOT NULL DEFAULT '',
    source          TEXT NOT NULL DEFAULT 'P',
    rating          TEXT NOT NULL DEFAULT '',
    queued_at       INTEGER NOT NULL,
    submitted_at    INTEGER
);

-- Index for the pending-queue query
CREATE INDEX IF NOT EXISTS idx_listens_pending ON listens(submitted_at, played_at);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// Enqueue persists a listen and returns its id.
func (s *Store) Enqueue(l listen.Listen) (string, error) {
	if err := l.Validate(); err != nil {
		return "", err
	}

	id := ulid.Make().String()
	query := `
		INSERT INTO listens (
			id, played_at, artist, title, album, length,
			track_number, musicbrainz_id, source, rating, queued_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	source := l.Source
	if source == "" {
		source = listen.SourceP
	}
	_, err := s.conn.Exec(
		query,
		id,
		l.Date.Unix(),
		l.Artist,
		l.Title,
		l.Album,
		l.Length,
		l.TrackNumber,
		l.MusicBrainzID,
		source,
		l.Rating,
		time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue listen: %w", err)
	}
	return id, nil
}

// Pending returns unsubmitted listens in chronological order, up to limit.
// A limit of zero or less returns all pending listens.
func (s *Store) Pending(limit int) ([]Record, error) {
	query := `
		SELECT id, played_at, artist, title, album, length,
		       track_number, musicbrainz_id, source, rating, queued_at
		FROM listens
		WHERE submitted_at IS NULL
		ORDER BY played_at ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending listens: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var playedAt, queuedAt int64
		err := rows.Scan(
			&rec.ID,
			&playedAt,
			&rec.Listen.Artist,
			&rec.Listen.Title,
			&rec.Listen.Album,
			&rec.Listen.Length,
			&rec.Listen.TrackNumber,
			&rec.Listen.MusicBrainzID,
			&rec.Listen.Source,
			&rec.Listen.Rating,
			&queuedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listen: %w", err)
		}
		rec.Listen.Date = time.Unix(playedAt, 0).UTC()
		rec.QueuedAt = time.Unix(queuedAt, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkOldestSubmitted marks the n oldest pending listens as submitted.
// The client submits the queue in chronological order, so after a
// successful batch the n oldest pending rows are the ones the server
// accepted.
func (s *Store) MarkOldestSubmitted(n int) error {
	if n <= 0 {
		return nil
	}
	query := `
		UPDATE listens
		SET submitted_at = ?
		WHERE id IN (
			SELECT id FROM listens
			WHERE submitted_at IS NULL
			ORDER BY played_at ASC
			LIMIT ?
		)
	`
	if _, err := s.conn.Exec(query, time.Now().Unix(), n); err != nil {
		return fmt.Errorf("failed to mark listens submitted: %w", err)
	}
	return nil
}

// Counts returns the number of pending and submitted listens.
func (s *Store) Counts() (pending, submitted int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE submitted_at IS NULL),
			COUNT(*) FILTER (WHERE submitted_at IS NOT NULL)
		FROM listens
	`
	if err := s.conn.QueryRow(query).Scan(&pending, &submitted); err != nil {
		return 0, 0, fmt.Errorf("failed to count listens: %w", err)
	}
	return pending, submitted, nil
}

// PruneSubmitted deletes submitted listens older than the given age,
// keeping the database from growing without bound.
func (s *Store) PruneSubmitted(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).Unix()
	res, err := s.conn.Exec(
		"DELETE FROM listens WHERE submitted_at IS NOT NULL AND submitted_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune listens: %w", err)
	}
	return res.RowsAffected()
}
