// Package transcode converts uploaded images and captured video frames into
// the derived assets served to shoppers.
//
// Output is WebP when libvips is available and JPEG otherwise. Derived assets
// keep the source's exact pixel dimensions; the pipeline never resizes.
package transcode
