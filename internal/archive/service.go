package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cubegate/cubegate/internal/engine"
	"github.com/cubegate/cubegate/internal/history"
	"github.com/cubegate/cubegate/internal/observability"
	"github.com/cubegate/cubegate/internal/storage"
)

type Config struct {
	RetentionInterval time.Duration
	// RetentionAge is how long history entries and their archived results are
	// kept before the retention sweep removes them.
	RetentionAge      time.Duration
	IntegrityInterval time.Duration
	IntegrityLimit    int
}

// Service archives successful query results to object storage and runs the
// janitor sweeps: retention over expired history entries and their archived
// objects, and an integrity check over recently archived results.
type Service struct {
	History     history.Store
	ObjectStore storage.ObjectStore
	Config      Config
	Logger      *slog.Logger
	Clock       func() time.Time
}

type RetentionSummary struct {
	EntriesDeleted int64 `json:"entries_deleted"`
	ObjectsDeleted int   `json:"objects_deleted"`
	Failures       int   `json:"failures"`
}

type IntegritySummary struct {
	EntriesChecked      int `json:"entries_checked"`
	MissingObjects      int `json:"missing_objects"`
	OperationalFailures int `json:"operational_failures"`
}

func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()

	retentionTicker := time.NewTicker(s.Config.RetentionInterval)
	defer retentionTicker.Stop()
	integrityTicker := time.NewTicker(s.Config.IntegrityInterval)
	defer integrityTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-retentionTicker.C:
			summary, err := s.RunRetentionOnce(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "retention sweep failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil {
				s.Logger.InfoContext(ctx, "retention sweep completed", slog.Any("summary", summary))
			}
		case <-integrityTicker.C:
			summary, err := s.RunIntegrityOnce(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "integrity check failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil {
				s.Logger.InfoContext(ctx, "integrity check completed", slog.Any("summary", summary))
			}
		}
	}
}

// ArchiveResult encodes a materialized result to parquet, stores it under the
// entry's dataset/day partition, and marks the history entry archived. Called
// best-effort from the request path after a successful query.
func (s *Service) ArchiveResult(ctx context.Context, entry history.Entry, records []engine.Record) (string, error) {
	s.ensureDefaults()
	if s.ObjectStore == nil {
		return "", fmt.Errorf("object store is required")
	}

	path, err := storage.BuildResultArchivePath(entry.Dataset, entry.TraceID, entry.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("build archive path: %w", err)
	}

	encoded, err := EncodeResultToParquet(entry.TraceID, entry.Dataset, records)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	if _, err := s.ObjectStore.Put(ctx, path, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return "", fmt.Errorf("put archive object: %w", err)
	}

	if s.History != nil {
		if err := s.History.MarkArchived(ctx, entry.ID, path, s.Clock()); err != nil {
			return "", fmt.Errorf("mark entry archived: %w", err)
		}
	}

	observability.AddArchivedResults(1)
	return path, nil
}

// RunRetentionOnce deletes history entries older than the retention age and
// then removes their archived objects. A missing object is not a failure; the
// row is already gone and the sweep's job is done.
func (s *Service) RunRetentionOnce(ctx context.Context) (RetentionSummary, error) {
	s.ensureDefaults()
	if s.History == nil {
		return RetentionSummary{}, fmt.Errorf("history store is required")
	}

	cutoff := s.Clock().Add(-s.Config.RetentionAge)
	deleted, err := s.History.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		observability.ObserveArchiveRun("retention", "failed")
		return RetentionSummary{}, fmt.Errorf("delete expired entries: %w", err)
	}

	summary := RetentionSummary{EntriesDeleted: deleted.Deleted}
	failures := make([]string, 0)

	if s.ObjectStore != nil {
		for _, path := range deleted.ArchivePaths {
			if err := s.ObjectStore.Delete(ctx, path); err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					continue
				}
				summary.Failures++
				failures = append(failures, fmt.Sprintf("delete object %s: %v", path, err))
				continue
			}
			summary.ObjectsDeleted++
		}
	}

	observability.AddRetentionDeleted(summary.EntriesDeleted)
	if len(failures) > 0 {
		observability.ObserveArchiveRun("retention", "failed")
		return summary, fmt.Errorf("retention encountered %d failure(s): %s", len(failures), strings.Join(failures, "; "))
	}
	observability.ObserveArchiveRun("retention", "completed")
	return summary, nil
}

// RunIntegrityOnce stats the most recently archived objects and counts the
// ones the object store no longer holds.
func (s *Service) RunIntegrityOnce(ctx context.Context) (IntegritySummary, error) {
	s.ensureDefaults()
	if s.History == nil {
		return IntegritySummary{}, fmt.Errorf("history store is required")
	}
	if s.ObjectStore == nil {
		return IntegritySummary{}, fmt.Errorf("object store is required")
	}

	entries, err := s.History.ListArchived(ctx, s.Config.IntegrityLimit)
	if err != nil {
		observability.ObserveArchiveRun("integrity", "failed")
		return IntegritySummary{}, fmt.Errorf("list archived entries: %w", err)
	}

	summary := IntegritySummary{}
	for _, entry := range entries {
		if entry.ArchivePath == "" {
			continue
		}
		summary.EntriesChecked++
		if _, err := s.ObjectStore.Stat(ctx, entry.ArchivePath); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				summary.MissingObjects++
				if s.Logger != nil {
					s.Logger.WarnContext(ctx, "archived result object is missing",
						slog.Int64("entry_id", entry.ID),
						slog.String("path", entry.ArchivePath),
					)
				}
				continue
			}
			summary.OperationalFailures++
		}
	}

	if summary.OperationalFailures > 0 {
		observability.ObserveArchiveRun("integrity", "failed")
		return summary, fmt.Errorf("integrity check encountered %d operational failure(s)", summary.OperationalFailures)
	}
	observability.ObserveArchiveRun("integrity", "completed")
	return summary, nil
}

func (s *Service) ensureDefaults() {
	if s.Clock == nil {
		s.Clock = func() time.Time { return time.Now().UTC() }
	}
	if s.Config.RetentionInterval <= 0 {
		s.Config.RetentionInterval = 10 * time.Minute
	}
	if s.Config.RetentionAge <= 0 {
		s.Config.RetentionAge = 30 * 24 * time.Hour
	}
	if s.Config.IntegrityInterval <= 0 {
		s.Config.IntegrityInterval = time.Hour
	}
	if s.Config.IntegrityLimit <= 0 {
		s.Config.IntegrityLimit = 50
	}
}
