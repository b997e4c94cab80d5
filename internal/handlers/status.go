package handlers

import (
	"errors"
	"net/http"

	"product-media/internal/derive"
	"product-media/internal/logging"
)

// GetUploadStatus reports in-flight upload state. With an id query
// parameter it returns the status of that entity; otherwise it returns
// every entity with an active upload.
func (h *Handlers) GetUploadStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if entityID := r.URL.Query().Get("id"); entityID != "" {
		writeJSON(w, h.tracker.Get(entityID))
		return
	}

	writeJSON(w, h.tracker.Snapshot())
}

// Rederive triggers a batch re-derivation of every recorded entity
// missing a derived asset. Only one run is allowed at a time.
func (h *Handlers) Rederive(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pipeline.Rederive(r.Context())
	if err != nil {
		if errors.Is(err, derive.ErrRederiveRunning) {
			writeJSONError(w, "re-derivation already in progress", http.StatusConflict)
			return
		}
		logging.Error("re-derivation failed: %v", err)
		writeJSONError(w, "re-derivation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, summary)
}
