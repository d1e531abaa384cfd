package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	options store.Options
	conn    *sql.DB
}

func (s *sqliteStore) Load(ctx context.Context, id string) (*record.CallRecord, error) {
	var body string

	err := s.conn.QueryRowContext(ctx, `SELECT body FROM calls WHERE call_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return store.Decode(id, []byte(body))
}

func (s *sqliteStore) Save(ctx context.Context, rec *record.CallRecord) error {
	data, err := store.Encode(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO calls (call_id, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (call_id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`

	if _, err := s.conn.ExecContext(ctx, query, rec.ID(), string(data), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID(), err)
	}

	return nil
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT call_id FROM calls ORDER BY call_id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS calls (
		call_id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at DATETIME
	);`
	_, err := s.conn.ExecContext(ctx, query)
	return err
}

// NewStore opens the sqlite database at the location path.
func NewStore(opts ...store.Option) store.Store {
	options := store.NewOptions(opts...)

	if len(options.Location) == 0 {
		panic("missing location for sqlite store")
	}

	if dir := filepath.Dir(options.Location); dir != "." && !strings.HasPrefix(options.Location, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			detail := "failed to create sqlite store directory"
			slog.ErrorContext(options.Context, detail, "dir", dir, "error", err)
			panic(detail)
		}
	}

	conn, err := sql.Open("sqlite", options.Location)
	if err != nil {
		detail := "failed to open sqlite store"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	// one writer at a time
	conn.SetMaxOpenConns(1)

	s := &sqliteStore{
		options: options,
		conn:    conn,
	}

	if err := s.migrate(options.Context); err != nil {
		detail := "failed to migrate sqlite store"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return s
}
