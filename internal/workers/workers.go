package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the number of workers for a task with the given
// worker-per-CPU multiplier. It respects container CPU limits via
// GOMAXPROCS (Go 1.19+); runtime.NumCPU() would report the host's cores.
//
// The limit parameter caps the worker count to prevent resource
// exhaustion. Use 0 for no limit.
//
// Can be overridden with REDERIVE_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("REDERIVE_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForMixed returns the worker count for mixed CPU/I-O tasks (1.5 per CPU).
// Re-derivation jobs decode and encode (CPU) but also read and write blob
// storage (I/O), so they fall in the middle.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
