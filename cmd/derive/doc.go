// Command derive generates a display asset from a local media file
// without running the server. Images are re-encoded at display quality;
// videos get a poster frame captured with FFmpeg.
//
// Usage:
//
//	derive -in product.mp4 -seek 2s
//	derive -in photo.jpg -out preview.webp -quality 0.9
package main
