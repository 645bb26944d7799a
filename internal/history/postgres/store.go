package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cubegate/cubegate/internal/history"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, in history.InsertInput) (history.Entry, error) {
	query := `
INSERT INTO query_log (trace_id, kind, dataset, query_text, status, error_message, row_count, duration_ms)
VALUES ($1, $2::cubegate_entry_kind, $3, $4, $5::cubegate_entry_status, $6, $7, $8)
RETURNING id, created_at`

	entry := history.Entry{
		TraceID:      in.TraceID,
		Kind:         in.Kind,
		Dataset:      in.Dataset,
		QueryText:    in.QueryText,
		Status:       in.Status,
		ErrorMessage: in.ErrorMessage,
		RowCount:     in.RowCount,
		DurationMS:   in.DurationMS,
	}
	if err := s.db.QueryRowContext(ctx, query,
		in.TraceID, string(in.Kind), in.Dataset, in.QueryText,
		string(in.Status), in.ErrorMessage, in.RowCount, in.DurationMS,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return history.Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return entry, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (history.Entry, error) {
	query := `
SELECT id, trace_id, kind, dataset, query_text, status, error_message, row_count, duration_ms, archive_path, archived_at, created_at
FROM query_log
WHERE id = $1`

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Entry{}, history.ErrNotFound
		}
		return history.Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}

func (s *Store) ListRecent(ctx context.Context, filter history.ListFilter) ([]history.Entry, error) {
	// Enum columns compare as text so that empty filter values stay inert
	// instead of failing the enum cast.
	query := `
SELECT id, trace_id, kind, dataset, query_text, status, error_message, row_count, duration_ms, archive_path, archived_at, created_at
FROM query_log
WHERE ($1 = '' OR dataset = $1)
  AND ($2 = '' OR kind::text = $2)
  AND ($3 = '' OR status::text = $3)
ORDER BY created_at DESC, id DESC
LIMIT $4`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx, query, filter.Dataset, string(filter.Kind), string(filter.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEntries(rows)
}

func (s *Store) ListArchived(ctx context.Context, limit int) ([]history.Entry, error) {
	query := `
SELECT id, trace_id, kind, dataset, query_text, status, error_message, row_count, duration_ms, archive_path, archived_at, created_at
FROM query_log
WHERE archived_at IS NOT NULL
ORDER BY archived_at DESC, id DESC
LIMIT $1`

	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEntries(rows)
}

func (s *Store) MarkArchived(ctx context.Context, id int64, path string, archivedAt time.Time) error {
	query := `
UPDATE query_log
SET archive_path = $2, archived_at = $3
WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id, path, archivedAt)
	if err != nil {
		return fmt.Errorf("mark entry archived: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark entry archived: %w", err)
	}
	if affected == 0 {
		return history.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (history.DeleteResult, error) {
	query := `
DELETE FROM query_log
WHERE created_at < $1
RETURNING archive_path`

	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return history.DeleteResult{}, fmt.Errorf("delete expired entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result history.DeleteResult
	for rows.Next() {
		var path sql.NullString
		if err := rows.Scan(&path); err != nil {
			return history.DeleteResult{}, fmt.Errorf("scan deleted entry: %w", err)
		}
		result.Deleted++
		if path.Valid && path.String != "" {
			result.ArchivePaths = append(result.ArchivePaths, path.String)
		}
	}
	if err := rows.Err(); err != nil {
		return history.DeleteResult{}, fmt.Errorf("iterate deleted entries: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (history.Entry, error) {
	var (
		entry       history.Entry
		kind        string
		status      string
		archivePath sql.NullString
		archivedAt  sql.NullTime
	)
	if err := row.Scan(
		&entry.ID,
		&entry.TraceID,
		&kind,
		&entry.Dataset,
		&entry.QueryText,
		&status,
		&entry.ErrorMessage,
		&entry.RowCount,
		&entry.DurationMS,
		&archivePath,
		&archivedAt,
		&entry.CreatedAt,
	); err != nil {
		return history.Entry{}, err
	}
	entry.Kind = history.Kind(kind)
	entry.Status = history.Status(status)
	if archivePath.Valid {
		entry.ArchivePath = archivePath.String
	}
	if archivedAt.Valid {
		at := archivedAt.Time
		entry.ArchivedAt = &at
	}
	return entry, nil
}

func collectEntries(rows *sql.Rows) ([]history.Entry, error) {
	entries := make([]history.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
