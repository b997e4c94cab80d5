package derive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"product-media/internal/capture"
	"product-media/internal/logging"
	"product-media/internal/mediatypes"
	"product-media/internal/metrics"
	"product-media/internal/records"
	"product-media/internal/storage"
	"product-media/internal/transcode"
)

// Run executes the full derivation sequence for one upload: classify,
// capture or load, encode, store original, store derived, resolve URLs,
// and write the record in one atomic update.
//
// The original blob and the record write are load-bearing: either failing
// fails the task. Capture, encode, and the derived blob write degrade to a
// success with a warning and no derived URL.
func (p *Pipeline) Run(ctx context.Context, upload *Upload) (*Result, error) {
	kind := mediatypes.Classify(upload.ContentType, upload.Filename)
	if !mediatypes.IsSupported(kind) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedMedia, upload.Filename, upload.ContentType)
	}

	unlock := p.lockEntity(upload.EntityID)
	defer unlock()

	defer p.progress.Clear(upload.EntityID)

	status := "error"
	defer func() { metrics.PipelineJobsTotal.WithLabelValues(string(kind), status).Inc() }()

	logging.Info("Starting %s derivation for entity %s (%s, %d bytes)",
		kind, upload.EntityID, upload.Filename, upload.Size)

	surface, warning, err := p.loadSurface(ctx, upload, kind)
	if err != nil {
		return nil, err
	}

	encoded, encodeWarning := p.encodeSurface(surface, kind)
	if warning == "" {
		warning = encodeWarning
	}

	asset, storeWarning, err := p.storeAndRecord(ctx, upload, kind, encoded)
	if err != nil {
		return nil, err
	}
	if warning == "" {
		warning = storeWarning
	}

	if warning != "" {
		status = "success_with_warning"
		logging.Warn("Derivation for entity %s completed with warning: %s", upload.EntityID, warning)
	} else {
		status = "success"
		logging.Info("Derivation for entity %s complete", upload.EntityID)
	}

	return &Result{Asset: asset, Warning: warning}, nil
}

// loadSurface produces the pixel surface the derived asset is encoded
// from: a captured frame for videos, the decoded image otherwise. A decode
// failure is not fatal; the upload proceeds without a derived asset.
func (p *Pipeline) loadSurface(ctx context.Context, upload *Upload, kind mediatypes.Kind) (*capture.Surface, string, error) {
	var surface *capture.Surface
	var err error

	start := time.Now()
	if kind == mediatypes.KindVideo {
		p.progress.Set(upload.EntityID, "Generating thumbnail...")
		surface, err = p.capturer.Capture(ctx, upload.Path, p.opts.PosterSeek)
	} else {
		p.progress.Set(upload.EntityID, "Processing image...")
		surface, err = p.transcoder.Load(upload.Path)
	}
	metrics.PipelineStageDuration.WithLabelValues("capture").Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return nil, "", err
		}
		var decodeErr *capture.DecodeError
		if errors.As(err, &decodeErr) {
			metrics.PipelineDerivedSkipped.WithLabelValues("decode_error").Inc()
			logging.Warn("Decode failed for entity %s, proceeding without derived asset: %v", upload.EntityID, err)
			return nil, "media could not be decoded; no preview was generated", nil
		}
		return nil, "", err
	}

	return surface, "", nil
}

// encodeSurface compresses the surface into the derived asset. A nil
// surface or an encode failure yields no derived asset.
func (p *Pipeline) encodeSurface(surface *capture.Surface, kind mediatypes.Kind) (*transcode.Encoded, string) {
	if surface == nil {
		return nil, ""
	}

	start := time.Now()
	var encoded *transcode.Encoded
	var err error
	if kind == mediatypes.KindVideo {
		encoded, err = p.transcoder.EncodePoster(surface.Image)
	} else {
		encoded, err = p.transcoder.EncodeImage(surface.Image)
	}
	metrics.PipelineStageDuration.WithLabelValues("transcode").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PipelineDerivedSkipped.WithLabelValues("encode_error").Inc()
		logging.Warn("Encode failed, proceeding without derived asset: %v", err)
		return nil, "preview could not be encoded"
	}
	return encoded, ""
}

// storeAndRecord writes the original and derived blobs, then persists both
// URLs in one record update.
func (p *Pipeline) storeAndRecord(ctx context.Context, upload *Upload, kind mediatypes.Kind, encoded *transcode.Encoded) (*records.Asset, string, error) {
	if kind == mediatypes.KindVideo {
		p.progress.Set(upload.EntityID, "Uploading video...")
	} else {
		p.progress.Set(upload.EntityID, "Uploading image...")
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext == "" {
		ext = ".bin"
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = mediatypes.GetMimeType(ext)
	}

	originalKey := storage.OriginalKey(upload.EntityID, kind, ext)

	f, err := os.Open(upload.Path)
	if err != nil {
		return nil, "", &StorageWriteError{Key: originalKey, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Error("failed to close upload file: %v", closeErr)
		}
	}()

	start := time.Now()
	err = storage.Put(ctx, p.blobs, originalKey, contentType, f, upload.Size, p.opts.Retry)
	metrics.PipelineStageDuration.WithLabelValues("store_original").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, "", &StorageWriteError{Key: originalKey, Err: err}
	}
	metrics.StorageBytesWritten.WithLabelValues("original").Add(float64(upload.Size))

	var warning string
	derivedURL := ""
	if encoded != nil {
		derivedKey := storage.DerivedKey(upload.EntityID, kind, encoded.Ext)

		start = time.Now()
		err = storage.Put(ctx, p.blobs, derivedKey, encoded.ContentType,
			bytes.NewReader(encoded.Data), int64(len(encoded.Data)), p.opts.Retry)
		metrics.PipelineStageDuration.WithLabelValues("store_derived").Observe(time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", &StorageWriteError{Key: derivedKey, Err: err}
			}
			metrics.PipelineDerivedSkipped.WithLabelValues("storage_error").Inc()
			logging.Warn("Derived blob write failed for entity %s, proceeding with original only: %v", upload.EntityID, err)
			warning = "preview could not be stored"
		} else {
			metrics.StorageBytesWritten.WithLabelValues("derived").Add(float64(len(encoded.Data)))
			derivedURL = p.blobs.PublicURL(derivedKey)
		}
	}

	p.progress.Set(upload.EntityID, "Saving changes...")

	asset := &records.Asset{
		EntityID:   upload.EntityID,
		Kind:       kind,
		PrimaryURL: p.blobs.PublicURL(originalKey),
		DerivedURL: derivedURL,
		UpdatedAt:  time.Now(),
	}

	start = time.Now()
	err = p.records.UpsertAsset(ctx, asset)
	metrics.PipelineStageDuration.WithLabelValues("record_update").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, "", &RecordUpdateError{EntityID: upload.EntityID, Err: err}
	}

	return asset, warning, nil
}

// Remove deletes an entity's media: both blobs best-effort, then the
// record. Blob delete failures are logged and skipped; the record is the
// source of truth and the orphaned objects are overwritten by the next
// upload.
func (p *Pipeline) Remove(ctx context.Context, entityID string) error {
	unlock := p.lockEntity(entityID)
	defer unlock()

	asset, err := p.records.GetAsset(ctx, entityID)
	if errors.Is(err, records.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, url := range []string{asset.PrimaryURL, asset.DerivedURL} {
		if url == "" {
			continue
		}
		key, keyErr := keyFromURL(url)
		if keyErr != nil {
			logging.Warn("Skipping blob delete for entity %s: %v", entityID, keyErr)
			continue
		}
		if delErr := storage.Delete(ctx, p.blobs, key); delErr != nil {
			logging.Warn("Failed to delete blob %s for entity %s: %v", key, entityID, delErr)
		}
	}

	if err := p.records.ClearAsset(ctx, entityID); err != nil {
		return &RecordUpdateError{EntityID: entityID, Err: err}
	}

	logging.Info("Removed media for entity %s", entityID)
	return nil
}
