package api

import (
	"errors"
	"net/http"

	"github.com/cubegate/cubegate/internal/engine"
)

func handleListDatasets(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GATEWAY_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}

	datasets, err := deps.Gateway.Datasets(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrDatasetListingUnsupported) {
			writeError(r.Context(), w, http.StatusNotImplemented, "DATASET_LISTING_UNSUPPORTED", "the configured engine does not support dataset listing", false, nil)
			return
		}
		var authErr *engine.AuthenticationError
		if errors.As(err, &authErr) {
			writeError(r.Context(), w, http.StatusBadGateway, "AUTHENTICATION_FAILED", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "ENGINE_UNAVAILABLE", err.Error(), true, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"datasets": datasets})
}
