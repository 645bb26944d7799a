package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cubegate/cubegate/internal/engine"
	"github.com/cubegate/cubegate/internal/history"
	"github.com/cubegate/cubegate/internal/observability"
)

type queryRequest struct {
	Dataset string `json:"dataset"`
	Query   string `json:"query"`
}

// handleQuery runs one analytical query against the engine. The query text is
// opaque and forwarded verbatim; any authentication, connection, or execution
// failure becomes a 400 with the diagnostic as plain text, since the message
// is meant for the analyst who wrote the query.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeDiagnostic(w, http.StatusServiceUnavailable, "query engine is not configured")
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeDiagnostic(w, http.StatusBadRequest, "invalid query request body: "+err.Error())
		return
	}
	request.Dataset = strings.TrimSpace(request.Dataset)
	if request.Dataset == "" {
		writeDiagnostic(w, http.StatusBadRequest, "dataset is required")
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeDiagnostic(w, http.StatusBadRequest, "query is required")
		return
	}

	start := time.Now()
	records, err := deps.Gateway.ExecuteQuery(r.Context(), request.Dataset, request.Query)
	elapsed := time.Since(start)
	if err != nil {
		observability.ObserveQuery("failed", 0, elapsed)
		recordRequest(r.Context(), deps, history.InsertInput{
			TraceID:      observability.TraceIDFromContext(r.Context()),
			Kind:         history.KindQuery,
			Dataset:      request.Dataset,
			QueryText:    request.Query,
			Status:       history.StatusFailed,
			ErrorMessage: err.Error(),
			DurationMS:   elapsed.Milliseconds(),
		}, nil)
		writeDiagnostic(w, http.StatusBadRequest, err.Error())
		return
	}

	observability.ObserveQuery("succeeded", len(records), elapsed)
	recordRequest(r.Context(), deps, history.InsertInput{
		TraceID:    observability.TraceIDFromContext(r.Context()),
		Kind:       history.KindQuery,
		Dataset:    request.Dataset,
		QueryText:  request.Query,
		Status:     history.StatusSucceeded,
		RowCount:   int64(len(records)),
		DurationMS: elapsed.Milliseconds(),
	}, records)

	writeJSON(w, http.StatusOK, records)
}

// recordRequest appends the request to the history store and hands successful
// results to the archiver. Both writes are best-effort: the response to the
// caller is already decided and a bookkeeping failure must not change it.
func recordRequest(ctx context.Context, deps Dependencies, in history.InsertInput, records []engine.Record) {
	if deps.History == nil {
		return
	}

	entry, err := deps.History.Insert(ctx, in)
	if err != nil {
		observability.ObserveHistoryWrite("failed")
		if deps.Logger != nil {
			deps.Logger.WarnContext(ctx, "history write failed",
				slog.String("dataset", in.Dataset),
				slog.Any("error", err),
			)
		}
		return
	}
	observability.ObserveHistoryWrite("succeeded")

	if deps.Archiver == nil || in.Status != history.StatusSucceeded || len(records) == 0 {
		return
	}
	path, err := deps.Archiver.ArchiveResult(ctx, entry, records)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.WarnContext(ctx, "result archiving failed",
				slog.Int64("entry_id", entry.ID),
				slog.String("dataset", in.Dataset),
				slog.Any("error", err),
			)
		}
		return
	}
	if deps.Logger != nil {
		deps.Logger.DebugContext(ctx, "result archived",
			slog.Int64("entry_id", entry.ID),
			slog.String("path", path),
		)
	}
}

// requestFatal reports whether the error belongs to the request-fatal
// taxonomy that the compatibility endpoints surface as a 400 diagnostic.
func requestFatal(err error) bool {
	var authErr *engine.AuthenticationError
	var connErr *engine.ConnectionError
	var execErr *engine.QueryExecutionError
	return errors.As(err, &authErr) || errors.As(err, &connErr) || errors.As(err, &execErr)
}
