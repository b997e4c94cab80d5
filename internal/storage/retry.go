package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"product-media/internal/logging"
	"product-media/internal/metrics"
)

// RetryConfig configures retry behavior for blob storage writes.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for transient S3 failures.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Put writes an object with retry on transient failures. The body is rewound
// before every attempt. Context cancellation stops the retry loop
// immediately.
func Put(ctx context.Context, store BlobStore, key, contentType string, body io.ReadSeeker, size int64, config RetryConfig) error {
	start := time.Now()
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			metrics.StorageOperationsTotal.WithLabelValues("put", "error").Inc()
			return err
		}

		err := store.Put(ctx, key, contentType, body, size)
		if err == nil {
			if attempt > 0 {
				logging.Info("Storage put succeeded on retry %d for %s", attempt, key)
				metrics.StorageRetrySuccess.WithLabelValues("put").Inc()
			}
			metrics.StorageOperationsTotal.WithLabelValues("put", "success").Inc()
			metrics.StorageOperationDuration.WithLabelValues("put").Observe(time.Since(start).Seconds())
			return nil
		}

		lastErr = err

		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.StorageOperationsTotal.WithLabelValues("put", "error").Inc()
			metrics.StorageOperationDuration.WithLabelValues("put").Observe(time.Since(start).Seconds())
			return lastErr
		}

		if attempt < config.MaxRetries {
			metrics.StorageRetryAttempts.WithLabelValues("put").Inc()
			logging.Debug("Storage put failed for %s, retrying in %v (attempt %d/%d): %v",
				key, backoff, attempt+1, config.MaxRetries, err)

			select {
			case <-ctx.Done():
				metrics.StorageOperationsTotal.WithLabelValues("put", "error").Inc()
				return ctx.Err()
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("Storage put failed after %d retries for %s: %v", config.MaxRetries, key, lastErr)
	metrics.StorageRetryFailures.WithLabelValues("put").Inc()
	metrics.StorageOperationsTotal.WithLabelValues("put", "error").Inc()
	metrics.StorageOperationDuration.WithLabelValues("put").Observe(time.Since(start).Seconds())
	return lastErr
}

// Delete removes an object. Deletes are not retried: a failed delete leaves
// an orphaned object, which the next re-upload overwrites anyway.
func Delete(ctx context.Context, store BlobStore, key string) error {
	start := time.Now()
	err := store.Delete(ctx, key)
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("delete", "error").Inc()
	} else {
		metrics.StorageOperationsTotal.WithLabelValues("delete", "success").Inc()
	}
	metrics.StorageOperationDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	return err
}
