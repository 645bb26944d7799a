package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/cubegate/cubegate/internal/engine"
)

var datasetNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

type Config struct {
	// DataDir holds one <dataset>.duckdb file per dataset; the file name is
	// the catalog selector.
	DataDir string
}

// Factory serves datasets from local DuckDB files for the dev profile. The
// bearer token is accepted and ignored; there is no identity authority in dev.
type Factory struct {
	cfg  Config
	open func(driverName, dsn string) (*sql.DB, error)
}

func NewFactory(cfg Config) (*Factory, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	return &Factory{cfg: cfg, open: sql.Open}, nil
}

func (f *Factory) OpenSession(ctx context.Context, dataset, token string) (engine.Session, error) {
	if !datasetNamePattern.MatchString(dataset) {
		return nil, &engine.ConnectionError{Dataset: dataset, Err: fmt.Errorf("invalid dataset name")}
	}

	path := filepath.Join(f.cfg.DataDir, dataset+".duckdb")
	if _, err := os.Stat(path); err != nil {
		return nil, &engine.ConnectionError{Dataset: dataset, Err: fmt.Errorf("dataset file: %w", err)}
	}

	db, err := f.open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, &engine.ConnectionError{Dataset: dataset, Err: fmt.Errorf("open dataset: %w", err)}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &engine.ConnectionError{Dataset: dataset, Err: err}
	}

	return &session{db: db, dataset: dataset}, nil
}

func (f *Factory) Datasets(ctx context.Context, token string) ([]string, error) {
	entries, err := os.ReadDir(f.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".duckdb")
		if name == entry.Name() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type session struct {
	db      *sql.DB
	dataset string
}

func (s *session) Query(ctx context.Context, statement string) (engine.Result, error) {
	text := strings.TrimSpace(statement)
	if text == "" {
		return engine.Result{}, fmt.Errorf("statement is required")
	}

	rows, err := s.db.QueryContext(ctx, text)
	if err != nil {
		return engine.Result{}, fmt.Errorf("execute statement: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return engine.Result{}, fmt.Errorf("read result columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return engine.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return engine.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return engine.Result{Columns: columns, Rows: resultRows}, nil
}

func (s *session) Statements() engine.Statements {
	return dialectStatements()
}

func (s *session) Close() error {
	return s.db.Close()
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case int:
			normalized[i] = int64(typed)
		case int8:
			normalized[i] = int64(typed)
		case int16:
			normalized[i] = int64(typed)
		case int32:
			normalized[i] = int64(typed)
		case uint:
			normalized[i] = int64(typed)
		case uint8:
			normalized[i] = int64(typed)
		case uint16:
			normalized[i] = int64(typed)
		case uint32:
			normalized[i] = int64(typed)
		case uint64:
			normalized[i] = int64(typed)
		case float32:
			normalized[i] = float64(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
