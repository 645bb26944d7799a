package trino

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cubegate/cubegate/internal/engine"
)

type session struct {
	db      *sql.DB
	dataset string
}

func (s *session) Query(ctx context.Context, statement string) (engine.Result, error) {
	text := stripTrailingSemicolons(statement)
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
		case int32:
			normalized[i] = int64(typed)
		case float32:
			normalized[i] = float64(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(statement string) string {
	trimmed := strings.TrimSpace(statement)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
