package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"product-media/internal/derive"
	"product-media/internal/logging"
	"product-media/internal/mediatypes"
	"product-media/internal/records"
	"product-media/internal/urlx"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// MediaResponse is an asset record decorated with cache-busted display
// URLs. The stored URLs stay stable; only the display URLs carry a
// version query parameter.
type MediaResponse struct {
	records.Asset
	DisplayURL        string `json:"displayUrl"`
	DisplayDerivedURL string `json:"displayDerivedUrl,omitempty"`
	Warning           string `json:"warning,omitempty"`
}

func assetResponse(asset *records.Asset, warning string) MediaResponse {
	resp := MediaResponse{Asset: *asset, Warning: warning}
	resp.DisplayURL = urlx.AddVersion(asset.PrimaryURL)
	if asset.DerivedURL != "" {
		resp.DisplayDerivedURL = urlx.AddVersion(asset.DerivedURL)
	}
	return resp
}

// UploadMedia accepts a multipart media upload for a product entity and
// runs it through the derivation pipeline.
func (h *Handlers) UploadMedia(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	entityID := mux.Vars(r)["id"]
	if entityID == "" {
		writeJSONError(w, "entity id is required", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, "upload exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "multipart field 'file' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	tmpPath, err := spoolUpload(file, header.Filename)
	if err != nil {
		logging.Error("failed to spool upload for %s: %v", entityID, err)
		writeJSONError(w, "failed to receive upload", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			logging.Warn("failed to remove spooled upload %s: %v", tmpPath, err)
		}
	}()

	upload := &derive.Upload{
		EntityID:    entityID,
		Path:        tmpPath,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	result, err := h.pipeline.Run(r.Context(), upload)
	if err != nil {
		var storageErr *derive.StorageWriteError
		var recordErr *derive.RecordUpdateError
		switch {
		case errors.Is(err, derive.ErrUnsupportedMedia):
			writeJSONError(w, "unsupported media type", http.StatusUnsupportedMediaType)
		case errors.As(err, &storageErr):
			logging.Error("upload for %s failed at storage: %v", entityID, err)
			writeJSONError(w, "failed to store media", http.StatusBadGateway)
		case errors.As(err, &recordErr):
			logging.Error("upload for %s failed at record update: %v", entityID, err)
			writeJSONError(w, "failed to save media record", http.StatusInternalServerError)
		default:
			logging.Error("upload for %s failed: %v", entityID, err)
			writeJSONError(w, "upload failed", http.StatusInternalServerError)
		}
		return
	}

	logging.Debug("upload for %s completed in %v (warning=%q)", entityID, time.Since(start), result.Warning)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, assetResponse(result.Asset, result.Warning))
}

// spoolUpload copies the multipart part to a local temp file so the
// pipeline can probe and re-read it.
func spoolUpload(src io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp("", "upload-"+uuid.NewString()+"-*"+ext)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

// GetMedia returns the media record for a product entity
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	entityID := mux.Vars(r)["id"]

	asset, err := h.records.GetAsset(r.Context(), entityID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeJSONError(w, "no media for entity", http.StatusNotFound)
			return
		}
		logging.Error("failed to load media record for %s: %v", entityID, err)
		writeJSONError(w, "failed to load media record", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, assetResponse(asset, ""))
}

// ListMedia returns all media records
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	assets, err := h.records.ListAssets(r.Context())
	if err != nil {
		logging.Error("failed to list media records: %v", err)
		writeJSONError(w, "failed to list media records", http.StatusInternalServerError)
		return
	}

	responses := make([]MediaResponse, 0, len(assets))
	for _, asset := range assets {
		responses = append(responses, assetResponse(asset, ""))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, responses)
}

// DeleteMedia removes a product entity's media of the given kind, both
// stored blobs and the record.
func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entityID := vars["id"]
	kind := mediatypes.Kind(vars["kind"])

	if !mediatypes.IsSupported(kind) {
		writeJSONError(w, "unknown media kind", http.StatusBadRequest)
		return
	}

	asset, err := h.records.GetAsset(r.Context(), entityID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeJSONError(w, "no media for entity", http.StatusNotFound)
			return
		}
		logging.Error("failed to load media record for %s: %v", entityID, err)
		writeJSONError(w, "failed to load media record", http.StatusInternalServerError)
		return
	}

	if asset.Kind != kind {
		writeJSONError(w, "no media of that kind for entity", http.StatusNotFound)
		return
	}

	if err := h.pipeline.Remove(r.Context(), entityID); err != nil {
		logging.Error("failed to remove media for %s: %v", entityID, err)
		writeJSONError(w, "failed to remove media", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
