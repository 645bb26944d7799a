package trino

import "github.com/cubegate/cubegate/internal/engine"

// The remote engine accepts its tabular introspection dialect over the wire
// protocol; the gateway forwards these statements without interpreting them.
// The measure fallback drops the visibility column so engine versions that do
// not expose it fail over to the same projection.
func dialectStatements() engine.Statements {
	return engine.Statements{
		StorageTableColumns: "SELECT DIMENSION_NAME, ATTRIBUTE_NAME FROM $SYSTEM.DISCOVER_STORAGE_TABLE_COLUMNS",
		CatalogTableColumns: "SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE FROM $SYSTEM.DBSCHEMA_COLUMNS",
		Measures:            "SELECT MEASURE_NAME, MEASURE_CAPTION, MEASUREGROUP_NAME, MEASURE_IS_VISIBLE FROM $SYSTEM.MDSCHEMA_MEASURES",
		MeasuresFallback:    "SELECT MEASURE_NAME, MEASURE_CAPTION, MEASUREGROUP_NAME FROM $SYSTEM.MDSCHEMA_MEASURES",
		Catalogs:            "SELECT CATALOG_NAME FROM $SYSTEM.DBSCHEMA_CATALOGS",
	}
}
