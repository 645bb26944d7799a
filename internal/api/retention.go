package api

import (
	"net/http"
)

func handleRetentionRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Retention == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RETENTION_NOT_CONFIGURED", "retention service is not configured", false, nil)
		return
	}

	summary, err := deps.Retention.RunRetentionOnce(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "RETENTION_FAILED", "retention run failed", true, map[string]any{
			"details": err.Error(),
			"summary": summary,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"summary": summary,
	})
}
