// Package capture extracts still frames from uploaded video files.
//
// It shells out to ffmpeg/ffprobe: ffprobe supplies stream metadata, ffmpeg
// rasterizes a single frame at the requested seek offset and pipes it back
// as PNG. Every extraction is bounded by a timeout because decoders can hang
// on malformed input.
//
// Capture failures are reported as *DecodeError and are always recoverable:
// a video upload proceeds without a poster when its frame cannot be
// extracted.
package capture
