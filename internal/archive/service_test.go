package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cubegate/cubegate/internal/engine"
	"github.com/cubegate/cubegate/internal/history"
	"github.com/cubegate/cubegate/internal/storage"
)

func TestArchiveResultStoresObjectAndMarksEntry(t *testing.T) {
	store := newFakeObjectStore()
	hist := &fakeHistoryStore{}
	svc := &Service{
		History:     hist,
		ObjectStore: store,
		Clock:       func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) },
	}

	var record engine.Record
	record.Set("Region", "East")
	entry := history.Entry{
		ID:        7,
		TraceID:   "trace-7",
		Dataset:   "Sales",
		CreatedAt: time.Date(2026, 3, 14, 9, 59, 0, 0, time.UTC),
	}

	path, err := svc.ArchiveResult(context.Background(), entry, []engine.Record{record})
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if path != "Sales/date=2026-03-14/result-trace-7.parquet" {
		t.Fatalf("archive path = %q", path)
	}
	if _, ok := store.objects[path]; !ok {
		t.Fatalf("object %q was not stored", path)
	}
	if hist.markedID != 7 || hist.markedPath != path {
		t.Fatalf("marked id=%d path=%q", hist.markedID, hist.markedPath)
	}
}

func TestArchiveResultObjectStoreFailure(t *testing.T) {
	store := newFakeObjectStore()
	store.putErr = errors.New("bucket unavailable")
	hist := &fakeHistoryStore{}
	svc := &Service{History: hist, ObjectStore: store}

	entry := history.Entry{ID: 1, TraceID: "trace-1", Dataset: "Sales", CreatedAt: time.Now().UTC()}
	if _, err := svc.ArchiveResult(context.Background(), entry, nil); err == nil {
		t.Fatal("expected error when put fails")
	}
	if hist.markedID != 0 {
		t.Fatal("entry must not be marked archived when the object was not stored")
	}
}

func TestRunRetentionOnceDeletesRowsThenObjects(t *testing.T) {
	store := newFakeObjectStore()
	store.objects["Sales/date=2026-01-01/result-a.parquet"] = 10
	store.objects["Sales/date=2026-01-01/result-b.parquet"] = 20
	hist := &fakeHistoryStore{
		deleteResult: history.DeleteResult{
			Deleted: 3,
			ArchivePaths: []string{
				"Sales/date=2026-01-01/result-a.parquet",
				"Sales/date=2026-01-01/result-b.parquet",
				"Sales/date=2026-01-01/result-gone.parquet",
			},
		},
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := &Service{
		History:     hist,
		ObjectStore: store,
		Config:      Config{RetentionAge: 48 * time.Hour},
		Clock:       func() time.Time { return now },
	}

	summary, err := svc.RunRetentionOnce(context.Background())
	if err != nil {
		t.Fatalf("retention failed: %v", err)
	}
	if !hist.deleteCutoff.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("cutoff = %v", hist.deleteCutoff)
	}
	if summary.EntriesDeleted != 3 {
		t.Fatalf("entries deleted = %d, want 3", summary.EntriesDeleted)
	}
	// The third path was already absent from the store; that is not a failure.
	if summary.ObjectsDeleted != 2 || summary.Failures != 0 {
		t.Fatalf("objects deleted = %d failures = %d", summary.ObjectsDeleted, summary.Failures)
	}
	if len(store.objects) != 0 {
		t.Fatalf("%d objects left in store", len(store.objects))
	}
}

func TestRunRetentionOnceReportsDeleteFailures(t *testing.T) {
	store := newFakeObjectStore()
	store.deleteErr = errors.New("access denied")
	store.objects["Sales/date=2026-01-01/result-a.parquet"] = 10
	hist := &fakeHistoryStore{
		deleteResult: history.DeleteResult{
			Deleted:      1,
			ArchivePaths: []string{"Sales/date=2026-01-01/result-a.parquet"},
		},
	}
	svc := &Service{History: hist, ObjectStore: store}

	summary, err := svc.RunRetentionOnce(context.Background())
	if err == nil {
		t.Fatal("expected error when object deletion fails")
	}
	if summary.Failures != 1 || summary.EntriesDeleted != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunIntegrityOnceCountsMissingObjects(t *testing.T) {
	store := newFakeObjectStore()
	store.objects["Sales/date=2026-01-01/result-a.parquet"] = 10
	hist := &fakeHistoryStore{
		archived: []history.Entry{
			{ID: 1, ArchivePath: "Sales/date=2026-01-01/result-a.parquet"},
			{ID: 2, ArchivePath: "Sales/date=2026-01-01/result-missing.parquet"},
			{ID: 3},
		},
	}
	svc := &Service{History: hist, ObjectStore: store}

	summary, err := svc.RunIntegrityOnce(context.Background())
	if err != nil {
		t.Fatalf("integrity check failed: %v", err)
	}
	if summary.EntriesChecked != 2 {
		t.Fatalf("entries checked = %d, want 2", summary.EntriesChecked)
	}
	if summary.MissingObjects != 1 {
		t.Fatalf("missing objects = %d, want 1", summary.MissingObjects)
	}
}

type fakeHistoryStore struct {
	archived     []history.Entry
	deleteResult history.DeleteResult
	deleteCutoff time.Time
	markedID     int64
	markedPath   string
}

func (f *fakeHistoryStore) HealthCheck(context.Context) error { return nil }

func (f *fakeHistoryStore) Insert(_ context.Context, in history.InsertInput) (history.Entry, error) {
	return history.Entry{}, nil
}

func (f *fakeHistoryStore) GetByID(context.Context, int64) (history.Entry, error) {
	return history.Entry{}, history.ErrNotFound
}

func (f *fakeHistoryStore) ListRecent(context.Context, history.ListFilter) ([]history.Entry, error) {
	return nil, nil
}

func (f *fakeHistoryStore) ListArchived(context.Context, int) ([]history.Entry, error) {
	return f.archived, nil
}

func (f *fakeHistoryStore) MarkArchived(_ context.Context, id int64, path string, _ time.Time) error {
	f.markedID = id
	f.markedPath = path
	return nil
}

func (f *fakeHistoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (history.DeleteResult, error) {
	f.deleteCutoff = cutoff
	return f.deleteResult, nil
}

type fakeObjectStore struct {
	objects   map[string]int64
	putErr    error
	deleteErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]int64{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, _ io.Reader, size int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	f.objects[key] = size
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func (f *fakeObjectStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (f *fakeObjectStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	size, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.objects, key)
	return nil
}
