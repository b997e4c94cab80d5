// Package derive orchestrates the media derivation pipeline: classify an
// upload, capture or decode a pixel surface, encode the derived asset,
// write both blobs, and persist the entity's media record atomically.
//
// Failure handling follows one rule: the original blob and the record
// write are load-bearing, everything feeding the derived asset degrades to
// a success with a warning. Runs for the same entity are serialized so a
// re-upload never interleaves with an in-flight derivation.
package derive
