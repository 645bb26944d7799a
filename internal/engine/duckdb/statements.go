package duckdb

import "github.com/cubegate/cubegate/internal/engine"

// Dev datasets are plain DuckDB files, so introspection goes through DuckDB's
// own catalog functions. SQL macros stand in for measures so the measure
// machinery stays exercisable without a remote engine.
func dialectStatements() engine.Statements {
	return engine.Statements{
		StorageTableColumns: "SELECT table_name, column_name FROM duckdb_columns() WHERE NOT internal",
		CatalogTableColumns: "SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main'",
		Measures:            "SELECT function_name AS measure_name, function_name AS measure_caption, 'macros' AS measure_group, true AS is_visible FROM duckdb_functions() WHERE function_type = 'macro' AND NOT internal",
		MeasuresFallback:    "SELECT function_name AS measure_name, function_name AS measure_caption, 'macros' AS measure_group FROM duckdb_functions() WHERE function_type = 'macro' AND NOT internal",
	}
}
