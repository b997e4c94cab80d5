// Package storage writes original uploads and derived assets to blob
// storage under deterministic per-entity keys.
//
// The production backend is any S3-compatible object store; MemoryStore
// covers local development and tests. Writes retry with capped exponential
// backoff because object stores fail transiently under load.
package storage
