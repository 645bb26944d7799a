package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("history: not found")

type Kind string

const (
	KindQuery    Kind = "query"
	KindMetadata Kind = "metadata"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Store records every query and metadata request the gateway serves. Writes
// are best-effort from the request path: a failed insert is logged and
// counted, never surfaced to the caller.
type Store interface {
	HealthCheck(ctx context.Context) error
	Insert(ctx context.Context, in InsertInput) (Entry, error)
	GetByID(ctx context.Context, id int64) (Entry, error)
	ListRecent(ctx context.Context, filter ListFilter) ([]Entry, error)
	ListArchived(ctx context.Context, limit int) ([]Entry, error)
	MarkArchived(ctx context.Context, id int64, path string, archivedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (DeleteResult, error)
}

type Entry struct {
	ID           int64
	TraceID      string
	Kind         Kind
	Dataset      string
	QueryText    string
	Status       Status
	ErrorMessage string
	RowCount     int64
	DurationMS   int64
	ArchivePath  string
	ArchivedAt   *time.Time
	CreatedAt    time.Time
}

type InsertInput struct {
	TraceID      string
	Kind         Kind
	Dataset      string
	QueryText    string
	Status       Status
	ErrorMessage string
	RowCount     int64
	DurationMS   int64
}

type ListFilter struct {
	Dataset string
	Kind    Kind
	Status  Status
	Limit   int
}

type DeleteResult struct {
	Deleted      int64
	ArchivePaths []string
}
