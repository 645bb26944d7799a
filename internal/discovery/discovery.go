package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cubegate/cubegate/internal/engine"
	"github.com/cubegate/cubegate/internal/observability"
)

// Discoverer enumerates a dataset's tables, columns, and measures over an open
// session. Both halves run independently and degrade to empty sections instead
// of failing: Discover never returns an error.
type Discoverer struct {
	Logger *slog.Logger
}

type tableStrategy struct {
	name      string
	statement func(engine.Statements) string
	parse     func(engine.Result) ([]engine.Table, error)
}

// Strategies run in order; the first success short-circuits and exhaustion
// yields the degraded empty outcome.
var tableStrategies = []tableStrategy{
	{
		name:      "storage",
		statement: func(s engine.Statements) string { return s.StorageTableColumns },
		parse:     parseStoragePairs,
	},
	{
		name:      "schema-catalog",
		statement: func(s engine.Statements) string { return s.CatalogTableColumns },
		parse:     parseCatalogTriples,
	},
}

func (d *Discoverer) Discover(ctx context.Context, session engine.Session) engine.Metadata {
	return engine.Metadata{
		Tables:   d.discoverTables(ctx, session),
		Measures: d.discoverMeasures(ctx, session),
	}
}

func (d *Discoverer) discoverTables(ctx context.Context, session engine.Session) []engine.Table {
	statements := session.Statements()
	for _, strategy := range tableStrategies {
		statement := strategy.statement(statements)
		if strings.TrimSpace(statement) == "" {
			continue
		}
		result, err := session.Query(ctx, statement)
		if err != nil {
			d.warn(ctx, "table discovery strategy failed", strategy.name, err)
			observability.ObserveDiscoveryStrategy("tables", strategy.name, "failed")
			continue
		}
		tables, err := strategy.parse(result)
		if err != nil {
			d.warn(ctx, "table discovery response was malformed", strategy.name, err)
			observability.ObserveDiscoveryStrategy("tables", strategy.name, "malformed")
			continue
		}
		observability.ObserveDiscoveryStrategy("tables", strategy.name, "succeeded")
		return tables
	}
	observability.ObserveDiscoveryStrategy("tables", "none", "degraded")
	return []engine.Table{}
}

func (d *Discoverer) discoverMeasures(ctx context.Context, session engine.Session) []engine.Measure {
	statements := session.Statements()
	attempts := []struct {
		name      string
		statement string
	}{
		{name: "primary", statement: statements.Measures},
		{name: "fallback", statement: statements.MeasuresFallback},
	}

	for _, attempt := range attempts {
		if strings.TrimSpace(attempt.statement) == "" {
			continue
		}
		result, err := session.Query(ctx, attempt.statement)
		if err != nil {
			d.warn(ctx, "measure discovery attempt failed", attempt.name, err)
			observability.ObserveDiscoveryStrategy("measures", attempt.name, "failed")
			continue
		}
		measures, err := parseMeasures(result)
		if err != nil {
			d.warn(ctx, "measure discovery response was malformed", attempt.name, err)
			observability.ObserveDiscoveryStrategy("measures", attempt.name, "malformed")
			continue
		}
		observability.ObserveDiscoveryStrategy("measures", attempt.name, "succeeded")
		return measures
	}
	observability.ObserveDiscoveryStrategy("measures", "none", "degraded")
	return []engine.Measure{}
}

func (d *Discoverer) warn(ctx context.Context, message, strategy string, err error) {
	if d.Logger == nil {
		return
	}
	d.Logger.WarnContext(ctx, message,
		slog.String("strategy", strategy),
		slog.Any("error", err),
	)
}

// parseStoragePairs handles the storage-level tier: (tableGroupName,
// attributeName) pairs with no type information, so every column is recorded
// as "unknown".
func parseStoragePairs(result engine.Result) ([]engine.Table, error) {
	if len(result.Columns) < 2 {
		return nil, fmt.Errorf("expected (table, column) pairs, got %d columns", len(result.Columns))
	}

	grouped := make(map[string][]engine.Column)
	for _, row := range result.Rows {
		table, err := nameCell(row, 0)
		if err != nil {
			return nil, err
		}
		column, err := nameCell(row, 1)
		if err != nil {
			return nil, err
		}
		if table == "" || column == "" {
			continue
		}
		grouped[table] = append(grouped[table], engine.Column{Name: column, DataType: engine.UnknownDataType})
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]engine.Table, 0, len(names))
	for _, name := range names {
		columns := grouped[name]
		sort.Slice(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })
		tables = append(tables, engine.Table{Name: name, Columns: dedupeColumns(columns)})
	}
	return tables, nil
}

// parseCatalogTriples handles the schema-catalog tier: (tableName, columnName,
// dataType) triples sorted in memory, then folded into tables by detecting
// table-name boundaries in the sorted sequence.
func parseCatalogTriples(result engine.Result) ([]engine.Table, error) {
	if len(result.Columns) < 3 {
		return nil, fmt.Errorf("expected (table, column, type) triples, got %d columns", len(result.Columns))
	}

	type entry struct {
		table    string
		column   string
		dataType string
	}
	entries := make([]entry, 0, len(result.Rows))
	for _, row := range result.Rows {
		table, err := nameCell(row, 0)
		if err != nil {
			return nil, err
		}
		column, err := nameCell(row, 1)
		if err != nil {
			return nil, err
		}
		if table == "" || column == "" {
			continue
		}
		dataType := textCell(row, 2)
		if dataType == "" {
			dataType = engine.UnknownDataType
		}
		entries = append(entries, entry{table: table, column: column, dataType: dataType})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].table != entries[j].table {
			return entries[i].table < entries[j].table
		}
		return entries[i].column < entries[j].column
	})

	tables := make([]engine.Table, 0)
	for i, e := range entries {
		if i == 0 || e.table != tables[len(tables)-1].Name {
			tables = append(tables, engine.Table{Name: e.table})
		}
		current := &tables[len(tables)-1]
		current.Columns = append(current.Columns, engine.Column{Name: e.column, DataType: e.dataType})
	}
	for i := range tables {
		tables[i].Columns = dedupeColumns(tables[i].Columns)
	}
	return tables, nil
}

// parseMeasures handles (measureName, measureCaption, measureGroupName) tuples
// with an optional fourth visibility column. A measure is visible unless that
// column is present and evaluates to false.
func parseMeasures(result engine.Result) ([]engine.Measure, error) {
	if len(result.Columns) < 3 {
		return nil, fmt.Errorf("expected (name, caption, group) tuples, got %d columns", len(result.Columns))
	}
	hasVisibility := len(result.Columns) >= 4

	measures := make([]engine.Measure, 0, len(result.Rows))
	for _, row := range result.Rows {
		name, err := nameCell(row, 0)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		if hasVisibility && !visibleCell(row, 3) {
			continue
		}
		measures = append(measures, engine.Measure{
			Name:      name,
			Caption:   textCell(row, 1),
			TableName: textCell(row, 2),
		})
	}
	return measures, nil
}

func dedupeColumns(columns []engine.Column) []engine.Column {
	deduped := columns[:0]
	for i, column := range columns {
		if i > 0 && column.Name == deduped[len(deduped)-1].Name {
			continue
		}
		deduped = append(deduped, column)
	}
	return deduped
}

func nameCell(row []any, index int) (string, error) {
	if index >= len(row) {
		return "", fmt.Errorf("row is missing column %d", index)
	}
	if row[index] == nil {
		return "", nil
	}
	value, ok := row[index].(string)
	if !ok {
		return "", fmt.Errorf("column %d holds %T, not a name", index, row[index])
	}
	return strings.TrimSpace(value), nil
}

func textCell(row []any, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	if value, ok := row[index].(string); ok {
		return value
	}
	return fmt.Sprint(row[index])
}

// visibleCell is deliberately permissive: only an explicit false-like value
// hides a measure; a missing, null, or unparsable cell means visible.
func visibleCell(row []any, index int) bool {
	if index >= len(row) || row[index] == nil {
		return true
	}
	switch value := row[index].(type) {
	case bool:
		return value
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "false", "0":
			return false
		}
		return true
	case int64:
		return value != 0
	case float64:
		return value != 0
	default:
		return true
	}
}
