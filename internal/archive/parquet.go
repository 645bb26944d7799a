package archive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/cubegate/cubegate/internal/engine"
)

type ParquetEncodeResult struct {
	Data        []byte
	RecordCount int64
}

// resultRow flattens one materialized record into a parquet row. The payload
// is the record's own JSON rendering, so the engine's column order survives
// the trip into the archive.
type resultRow struct {
	TraceID     string `parquet:"trace_id"`
	Dataset     string `parquet:"dataset"`
	RowIndex    int64  `parquet:"row_index"`
	PayloadJSON string `parquet:"payload_json"`
}

func EncodeResultToParquet(traceID, dataset string, records []engine.Record) (ParquetEncodeResult, error) {
	rows := make([]resultRow, 0, len(records))
	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return ParquetEncodeResult{}, fmt.Errorf("encode record %d: %w", i, err)
		}
		rows = append(rows, resultRow{
			TraceID:     traceID,
			Dataset:     dataset,
			RowIndex:    int64(i),
			PayloadJSON: string(payload),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[resultRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return ParquetEncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
	}, nil
}
