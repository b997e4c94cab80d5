// Package progress tracks per-entity upload status for the UI.
//
// The tracker carries no correctness obligation, but one invariant is
// enforced by the pipeline: every transition into a non-idle status has a
// matching transition back to idle on the same code path, including error
// paths, so no entity is ever left with a stuck spinner.
package progress

import (
	"sync"

	"product-media/internal/metrics"
)

// Status is the UI-facing state of one entity's upload.
type Status struct {
	Uploading bool   `json:"isUploading"`
	Label     string `json:"status"`
}

// Tracker maps entity ids to their current upload status.
// The zero value is not usable; call NewTracker.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]Status
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]Status),
	}
}

// Set marks an entity as uploading with a human-readable phase label,
// e.g. "Generating thumbnail...".
func (t *Tracker) Set(entityID, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, active := t.states[entityID]; !active {
		metrics.UploadsInFlight.Inc()
	}
	t.states[entityID] = Status{Uploading: true, Label: label}
}

// Clear returns an entity to idle. Safe to call when already idle.
func (t *Tracker) Clear(entityID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, active := t.states[entityID]; active {
		metrics.UploadsInFlight.Dec()
		delete(t.states, entityID)
	}
}

// Get returns the status for an entity. Idle entities report
// {Uploading: false, Label: ""}.
func (t *Tracker) Get(entityID string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[entityID]
}

// Snapshot returns a copy of all non-idle entities.
func (t *Tracker) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Status, len(t.states))
	for id, s := range t.states {
		out[id] = s
	}
	return out
}
