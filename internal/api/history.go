package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cubegate/cubegate/internal/history"
)

type historyEntryResponse struct {
	ID           int64      `json:"id"`
	TraceID      string     `json:"trace_id"`
	Kind         string     `json:"kind"`
	Dataset      string     `json:"dataset"`
	QueryText    string     `json:"query_text"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RowCount     int64      `json:"row_count"`
	DurationMS   int64      `json:"duration_ms"`
	ArchivePath  string     `json:"archive_path,omitempty"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func handleListHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history store is not configured", false, nil)
		return
	}

	filter := history.ListFilter{
		Dataset: strings.TrimSpace(r.URL.Query().Get("dataset")),
		Kind:    history.Kind(strings.TrimSpace(r.URL.Query().Get("kind"))),
		Status:  history.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
			return
		}
		filter.Limit = limit
	}

	entries, err := deps.History.ListRecent(r.Context(), filter)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to list history entries", true, map[string]any{"details": err.Error()})
		return
	}

	items := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toHistoryResponse(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": items})
}

func handleGetHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "history store is not configured", false, nil)
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ID", "id must be a positive integer", false, nil)
		return
	}

	entry, err := deps.History.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "ENTRY_NOT_FOUND", "history entry was not found", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to get history entry", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponse(entry))
}

func toHistoryResponse(entry history.Entry) historyEntryResponse {
	return historyEntryResponse{
		ID:           entry.ID,
		TraceID:      entry.TraceID,
		Kind:         string(entry.Kind),
		Dataset:      entry.Dataset,
		QueryText:    entry.QueryText,
		Status:       string(entry.Status),
		ErrorMessage: entry.ErrorMessage,
		RowCount:     entry.RowCount,
		DurationMS:   entry.DurationMS,
		ArchivePath:  entry.ArchivePath,
		ArchivedAt:   entry.ArchivedAt,
		CreatedAt:    entry.CreatedAt,
	}
}
