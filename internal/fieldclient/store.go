package fieldclient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const cacheSchema = `
	CREATE TABLE IF NOT EXISTS cached_inspections (
		id       TEXT    PRIMARY KEY,
		payload  BLOB    NOT NULL,
		saved_at INTEGER NOT NULL
	)
`

// Store keeps serialized inspections on the device.
type Store interface {
	Put(ctx context.Context, id uuid.UUID, payload []byte, savedAt time.Time) error
	Get(ctx context.Context, id uuid.UUID) (payload []byte, savedAt time.Time, found bool, err error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the cache file at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if _, err := db.Exec(cacheSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to create cache table: %w (also failed to close db: %v)", err, cerr)
		}
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, id uuid.UUID, payload []byte, savedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cached_inspections (id, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, id.String(), payload, savedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store inspection %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) ([]byte, time.Time, bool, error) {
	var (
		payload []byte
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, saved_at FROM cached_inspections WHERE id = ?", id.String(),
	).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to read inspection %s: %w", id, err)
	}
	return payload, time.UnixMilli(savedAt), true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cached_inspections WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete inspection %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
