// Package mediatypes classifies uploaded files into image and video kinds
// and provides MIME type lookups for storage and HTTP responses.
package mediatypes
