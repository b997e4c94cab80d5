package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"product-media/internal/logging"
	"product-media/internal/mediatypes"
	"product-media/internal/metrics"
)

// Default timeout for record store operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when an entity has no media record.
var ErrNotFound = errors.New("media record not found")

// Asset is the durable media record for one entity. PrimaryURL always
// points at the original upload; DerivedURL is empty when no derived asset
// exists.
type Asset struct {
	EntityID   string          `json:"entityId"`
	Kind       mediatypes.Kind `json:"kind"`
	PrimaryURL string          `json:"primaryUrl"`
	DerivedURL string          `json:"derivedUrl,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Store persists media records in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens the record store.
// dbPath should be the full path to the database FILE (e.g.,
// "/database/records.db"), and the parent directory must already exist and
// be writable. Use startup.LoadConfig() for directory validation before
// calling this.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Record store path: %s", dbPath)

	// WAL mode plus busy_timeout prevents "database is locked" errors
	// when uploads and batch re-derivation write concurrently.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close record store after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to record store: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close record store after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize record store schema: %w", err)
	}

	logging.Info("Record store initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS product_media (
		entity_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		primary_url TEXT NOT NULL,
		derived_url TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_product_media_kind ON product_media(kind);
	CREATE INDEX IF NOT EXISTS idx_product_media_updated_at ON product_media(updated_at);
	`

	execCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(execCtx, schema)
	return err
}

// Close closes the record store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the underlying database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// UpsertAsset writes an entity's media record in a single statement. Both
// URLs and the kind land atomically: a reader never observes a new primary
// URL paired with a stale derived URL.
func (s *Store) UpsertAsset(ctx context.Context, asset *Asset) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_asset", start, err) }()

	execCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(execCtx, `
		INSERT INTO product_media (entity_id, kind, primary_url, derived_url, updated_at)
		VALUES (?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(entity_id) DO UPDATE SET
			kind = excluded.kind,
			primary_url = excluded.primary_url,
			derived_url = excluded.derived_url,
			updated_at = excluded.updated_at`,
		asset.EntityID, string(asset.Kind), asset.PrimaryURL, asset.DerivedURL)
	if err != nil {
		return fmt.Errorf("failed to upsert media record for %s: %w", asset.EntityID, err)
	}
	return nil
}

// GetAsset returns the media record for an entity, or ErrNotFound.
func (s *Store) GetAsset(ctx context.Context, entityID string) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_asset", start, err) }()

	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	asset := &Asset{}
	var kind string
	var updatedAt int64

	err = s.db.QueryRowContext(queryCtx, `
		SELECT entity_id, kind, primary_url, derived_url, updated_at
		FROM product_media WHERE entity_id = ?`, entityID).
		Scan(&asset.EntityID, &kind, &asset.PrimaryURL, &asset.DerivedURL, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil // not an error for query metrics
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load media record for %s: %w", entityID, err)
	}

	asset.Kind = mediatypes.Kind(kind)
	asset.UpdatedAt = time.Unix(updatedAt, 0)
	return asset, nil
}

// ListAssets returns all media records ordered by entity ID.
func (s *Store) ListAssets(ctx context.Context) ([]*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_assets", start, err) }()

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, `
		SELECT entity_id, kind, primary_url, derived_url, updated_at
		FROM product_media ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list media records: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Error("failed to close rows: %v", closeErr)
		}
	}()

	return scanAssets(rows)
}

// ListMissingDerived returns records that have no derived asset. Batch
// re-derivation uses this as its work list.
func (s *Store) ListMissingDerived(ctx context.Context) ([]*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_missing_derived", start, err) }()

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, `
		SELECT entity_id, kind, primary_url, derived_url, updated_at
		FROM product_media WHERE derived_url = '' ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records missing derived assets: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Error("failed to close rows: %v", closeErr)
		}
	}()

	return scanAssets(rows)
}

func scanAssets(rows *sql.Rows) ([]*Asset, error) {
	var assets []*Asset
	for rows.Next() {
		asset := &Asset{}
		var kind string
		var updatedAt int64
		if err := rows.Scan(&asset.EntityID, &kind, &asset.PrimaryURL, &asset.DerivedURL, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media record: %w", err)
		}
		asset.Kind = mediatypes.Kind(kind)
		asset.UpdatedAt = time.Unix(updatedAt, 0)
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// ClearAsset removes an entity's media record. Clearing a missing record is
// a no-op.
func (s *Store) ClearAsset(ctx context.Context, entityID string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_asset", start, err) }()

	execCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(execCtx, `DELETE FROM product_media WHERE entity_id = ?`, entityID)
	if err != nil {
		return fmt.Errorf("failed to clear media record for %s: %w", entityID, err)
	}
	return nil
}

// GetStats returns library counts for the metrics collector.
func (s *Store) GetStats() metrics.Stats {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_stats", start, err) }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats metrics.Stats
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN kind = 'image' THEN 1 END),
			COUNT(CASE WHEN kind = 'video' THEN 1 END),
			COUNT(CASE WHEN derived_url != '' THEN 1 END)
		FROM product_media`).
		Scan(&stats.TotalImages, &stats.TotalVideos, &stats.TotalDerived)
	if err != nil {
		logging.Error("failed to load media record stats: %v", err)
	}
	return stats
}

// UpdateDBMetrics updates connection pool metrics.
func (s *Store) UpdateDBMetrics() {
	metrics.DBConnectionsOpen.Set(float64(s.db.Stats().OpenConnections))
}

// recordQuery records record store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
