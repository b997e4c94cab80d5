package derive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"product-media/internal/capture"
	"product-media/internal/logging"
	"product-media/internal/mediatypes"
	"product-media/internal/metrics"
	"product-media/internal/records"
	"product-media/internal/storage"
	"product-media/internal/transcode"
	"product-media/internal/workers"
)

// ErrRederiveRunning is returned when a batch re-derivation is requested
// while one is already in progress.
var ErrRederiveRunning = errors.New("re-derivation already in progress")

// RederiveSummary reports the outcome of one batch re-derivation run.
type RederiveSummary struct {
	Processed int `json:"processed"`
	Derived   int `json:"derived"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Rederive generates derived assets for every recorded entity that is
// missing one, e.g. after a libvips rollout or a storage incident. At most
// one run is active per process.
func (p *Pipeline) Rederive(ctx context.Context) (*RederiveSummary, error) {
	p.rederiveMu.Lock()
	if p.rederiveActive {
		p.rederiveMu.Unlock()
		return nil, ErrRederiveRunning
	}
	p.rederiveActive = true
	p.rederiveMu.Unlock()

	defer func() {
		p.rederiveMu.Lock()
		p.rederiveActive = false
		p.rederiveMu.Unlock()
		metrics.RederiveRunning.Set(0)
	}()

	metrics.RederiveRunsTotal.Inc()
	metrics.RederiveRunning.Set(1)

	assets, err := p.records.ListMissingDerived(ctx)
	if err != nil {
		return nil, err
	}

	workerCount := workers.ForMixed(p.opts.RederiveWorkerLimit)
	logging.Info("Re-deriving %d assets with %d workers", len(assets), workerCount)

	jobs := make(chan *records.Asset)
	summary := &RederiveSummary{}
	var summaryMu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range jobs {
				outcome := p.rederiveOne(ctx, asset)
				metrics.RederiveAssetsProcessed.WithLabelValues(outcome).Inc()

				summaryMu.Lock()
				summary.Processed++
				switch outcome {
				case "derived":
					summary.Derived++
				case "skipped":
					summary.Skipped++
				default:
					summary.Failed++
				}
				summaryMu.Unlock()
			}
		}()
	}

	for _, asset := range assets {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return summary, ctx.Err()
		case jobs <- asset:
		}
	}
	close(jobs)
	wg.Wait()

	logging.Info("Re-derivation complete: %d processed, %d derived, %d skipped, %d failed",
		summary.Processed, summary.Derived, summary.Skipped, summary.Failed)
	return summary, nil
}

// rederiveOne downloads an entity's original, derives its asset, and
// updates the record. Returns "derived", "skipped" (original cannot
// produce a derived asset), or "failed".
func (p *Pipeline) rederiveOne(ctx context.Context, asset *records.Asset) string {
	unlock := p.lockEntity(asset.EntityID)
	defer unlock()

	key, err := keyFromURL(asset.PrimaryURL)
	if err != nil {
		logging.Warn("Cannot re-derive entity %s: %v", asset.EntityID, err)
		return "failed"
	}

	localPath, err := p.fetchOriginal(ctx, key)
	if err != nil {
		logging.Warn("Cannot fetch original for entity %s: %v", asset.EntityID, err)
		return "failed"
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil {
			logging.Debug("failed to remove temp file %s: %v", localPath, rmErr)
		}
	}()

	var surface *capture.Surface
	if asset.Kind == mediatypes.KindVideo {
		surface, err = p.capturer.Capture(ctx, localPath, p.opts.PosterSeek)
	} else {
		surface, err = p.transcoder.Load(localPath)
	}
	if err != nil {
		var decodeErr *capture.DecodeError
		if errors.As(err, &decodeErr) && ctx.Err() == nil {
			logging.Debug("Entity %s original is not decodable, skipping: %v", asset.EntityID, err)
			return "skipped"
		}
		return "failed"
	}

	var encoded *transcode.Encoded
	if asset.Kind == mediatypes.KindVideo {
		encoded, err = p.transcoder.EncodePoster(surface.Image)
	} else {
		encoded, err = p.transcoder.EncodeImage(surface.Image)
	}
	if err != nil {
		logging.Warn("Encode failed for entity %s: %v", asset.EntityID, err)
		return "skipped"
	}

	derivedKey := storage.DerivedKey(asset.EntityID, asset.Kind, encoded.Ext)
	if err := storage.Put(ctx, p.blobs, derivedKey, encoded.ContentType,
		bytes.NewReader(encoded.Data), int64(len(encoded.Data)), p.opts.Retry); err != nil {
		logging.Warn("Derived blob write failed for entity %s: %v", asset.EntityID, err)
		return "failed"
	}
	metrics.StorageBytesWritten.WithLabelValues("derived").Add(float64(len(encoded.Data)))

	updated := &records.Asset{
		EntityID:   asset.EntityID,
		Kind:       asset.Kind,
		PrimaryURL: asset.PrimaryURL,
		DerivedURL: p.blobs.PublicURL(derivedKey),
		UpdatedAt:  time.Now(),
	}
	if err := p.records.UpsertAsset(ctx, updated); err != nil {
		logging.Warn("Record update failed for entity %s: %v", asset.EntityID, err)
		return "failed"
	}

	return "derived"
}

// fetchOriginal spools a stored original to a temp file so ffmpeg and the
// image decoders can read it. The caller removes the file.
func (p *Pipeline) fetchOriginal(ctx context.Context, key string) (string, error) {
	rc, err := p.blobs.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			logging.Debug("failed to close blob reader: %v", closeErr)
		}
	}()

	f, err := os.CreateTemp("", "rederive-*"+filepath.Ext(path.Base(key)))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to spool original %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
