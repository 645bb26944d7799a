package archive

import (
	"bytes"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/cubegate/cubegate/internal/engine"
)

func TestEncodeResultToParquetRoundTrip(t *testing.T) {
	var first, second engine.Record
	first.Set("Region", "East")
	first.Set("Total", int64(42))
	second.Set("Region", "West")
	second.Set("Total", nil)

	encoded, err := EncodeResultToParquet("trace-1", "Sales", []engine.Record{first, second})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded.RecordCount != 2 {
		t.Fatalf("record count = %d, want 2", encoded.RecordCount)
	}

	reader := parquet.NewGenericReader[resultRow](bytes.NewReader(encoded.Data))
	defer func() { _ = reader.Close() }()

	rows := make([]resultRow, 2)
	n, err := reader.Read(rows)
	if n != 2 {
		t.Fatalf("read %d rows (err=%v), want 2", n, err)
	}

	if rows[0].TraceID != "trace-1" || rows[0].Dataset != "Sales" {
		t.Fatalf("row 0 identity = %q/%q", rows[0].TraceID, rows[0].Dataset)
	}
	if rows[0].RowIndex != 0 || rows[1].RowIndex != 1 {
		t.Fatalf("row indexes = %d, %d", rows[0].RowIndex, rows[1].RowIndex)
	}
	if rows[0].PayloadJSON != `{"Region":"East","Total":42}` {
		t.Fatalf("row 0 payload = %s", rows[0].PayloadJSON)
	}
	if rows[1].PayloadJSON != `{"Region":"West","Total":null}` {
		t.Fatalf("row 1 payload = %s", rows[1].PayloadJSON)
	}
}

func TestEncodeResultToParquetEmptyResult(t *testing.T) {
	encoded, err := EncodeResultToParquet("trace-2", "Sales", nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded.RecordCount != 0 {
		t.Fatalf("record count = %d, want 0", encoded.RecordCount)
	}
	if len(encoded.Data) == 0 {
		t.Fatal("expected a valid empty parquet file, got no bytes")
	}
}
