package derive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"product-media/internal/capture"
	"product-media/internal/progress"
	"product-media/internal/records"
	"product-media/internal/storage"
	"product-media/internal/transcode"
)

// ErrUnsupportedMedia is returned for uploads that are neither images nor
// videos.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// StorageWriteError reports a blob write failure. A failure on the original
// blob fails the whole task; a failure on the derived blob degrades to
// "only the original is available".
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write failed for %s: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

// RecordUpdateError reports that the final record write failed after blobs
// were already stored. The orphaned blobs are accepted rather than solved
// with a two-phase commit; the next successful upload for the entity
// overwrites them in place.
type RecordUpdateError struct {
	EntityID string
	Err      error
}

func (e *RecordUpdateError) Error() string {
	return fmt.Sprintf("record update failed for %s: %v", e.EntityID, e.Err)
}

func (e *RecordUpdateError) Unwrap() error {
	return e.Err
}

// Upload describes one media file handed to the pipeline. The file has
// already been spooled to a local path by the caller.
type Upload struct {
	EntityID    string
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// Result is the terminal outcome of a successful pipeline run. Warning is
// non-empty when the task succeeded without a derived asset.
type Result struct {
	Asset   *records.Asset
	Warning string
}

// RecordStore is the slice of the record store the pipeline needs.
type RecordStore interface {
	UpsertAsset(ctx context.Context, asset *records.Asset) error
	GetAsset(ctx context.Context, entityID string) (*records.Asset, error)
	ClearAsset(ctx context.Context, entityID string) error
	ListMissingDerived(ctx context.Context) ([]*records.Asset, error)
}

// Options configures a Pipeline.
type Options struct {
	// PosterSeek is the video timestamp the poster frame is taken from.
	PosterSeek time.Duration
	// Retry controls blob storage write retries.
	Retry storage.RetryConfig
	// RederiveWorkerLimit caps the batch re-derivation pool. Zero means
	// the default limit.
	RederiveWorkerLimit int
}

// Pipeline derives and persists media assets for product entities.
// Runs for the same entity are serialized; runs for different entities
// proceed independently.
type Pipeline struct {
	capturer   *capture.Capturer
	transcoder *transcode.Transcoder
	blobs      storage.BlobStore
	records    RecordStore
	progress   *progress.Tracker
	opts       Options

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	rederiveMu     sync.Mutex
	rederiveActive bool
}

// New creates a Pipeline.
func New(capturer *capture.Capturer, transcoder *transcode.Transcoder, blobs storage.BlobStore, recordStore RecordStore, tracker *progress.Tracker, opts Options) *Pipeline {
	if opts.RederiveWorkerLimit <= 0 {
		opts.RederiveWorkerLimit = 8
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = storage.DefaultRetryConfig()
	}
	return &Pipeline{
		capturer:   capturer,
		transcoder: transcoder,
		blobs:      blobs,
		records:    recordStore,
		progress:   tracker,
		opts:       opts,
		locks:      make(map[string]*sync.Mutex),
	}
}

// lockEntity serializes pipeline work per entity. A second upload for the
// same entity waits for the first instead of racing it on the record write.
func (p *Pipeline) lockEntity(entityID string) func() {
	p.locksMu.Lock()
	lock, ok := p.locks[entityID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[entityID] = lock
	}
	p.locksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// keyFromURL recovers the storage key from a public asset URL. Keys always
// start at the "products/" segment regardless of which base URL fronts the
// bucket.
func keyFromURL(url string) (string, error) {
	idx := strings.Index(url, "/products/")
	if idx < 0 {
		return "", fmt.Errorf("no storage key in URL %q", url)
	}
	return url[idx+1:], nil
}
