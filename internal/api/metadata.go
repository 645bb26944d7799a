package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/cubegate/cubegate/internal/history"
	"github.com/cubegate/cubegate/internal/observability"
)

// handleMetadata enumerates the dataset's tables, columns, and measures.
// Only token acquisition and session open can fail the request; the discovery
// itself degrades to empty sections instead of erroring.
func handleMetadata(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeDiagnostic(w, http.StatusServiceUnavailable, "query engine is not configured")
		return
	}

	dataset := strings.TrimSpace(r.URL.Query().Get("dataset"))
	if dataset == "" {
		writeDiagnostic(w, http.StatusBadRequest, "dataset query parameter is required")
		return
	}

	start := time.Now()
	metadata, err := deps.Gateway.DiscoverMetadata(r.Context(), dataset)
	elapsed := time.Since(start)
	if err != nil {
		observability.ObserveMetadata("failed", elapsed)
		recordRequest(r.Context(), deps, history.InsertInput{
			TraceID:      observability.TraceIDFromContext(r.Context()),
			Kind:         history.KindMetadata,
			Dataset:      dataset,
			Status:       history.StatusFailed,
			ErrorMessage: err.Error(),
			DurationMS:   elapsed.Milliseconds(),
		}, nil)
		status := http.StatusInternalServerError
		if requestFatal(err) {
			status = http.StatusBadRequest
		}
		writeDiagnostic(w, status, err.Error())
		return
	}

	observability.ObserveMetadata("succeeded", elapsed)
	recordRequest(r.Context(), deps, history.InsertInput{
		TraceID:    observability.TraceIDFromContext(r.Context()),
		Kind:       history.KindMetadata,
		Dataset:    dataset,
		Status:     history.StatusSucceeded,
		RowCount:   int64(len(metadata.Tables)),
		DurationMS: elapsed.Milliseconds(),
	}, nil)

	// engine.Metadata marshals to the consumer-facing PascalCase document:
	// {"Tables":[{"Name","Columns":[{"Name","DataType"}]}],"Measures":[...]}.
	writeJSON(w, http.StatusOK, metadata)
}
