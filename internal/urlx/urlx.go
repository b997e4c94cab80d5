// Package urlx decorates asset URLs for display so browsers do not serve
// stale cached media after an overwrite at the same storage path.
//
// Persisted URLs must stay clean: decoration is applied at read time only,
// never before a URL is written to the record store, so repeated decoration
// cannot accumulate parameters in storage.
package urlx

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// lastVersion holds the most recently issued version number so that values
// are strictly increasing within the process even when the clock does not
// advance between calls (or steps backwards).
var lastVersion atomic.Int64

// nextVersion returns max(now in milliseconds, previous+1).
func nextVersion() int64 {
	now := time.Now().UnixMilli()
	for {
		last := lastVersion.Load()
		v := now
		if v <= last {
			v = last + 1
		}
		if lastVersion.CompareAndSwap(last, v) {
			return v
		}
	}
}

// AddVersion appends a volatile v=<n> query parameter to url, using "&" when
// the URL already carries a query string and "?" otherwise. Each call
// produces a new n; every output is equally valid for cache defeating.
// Empty input is returned unchanged.
func AddVersion(url string) string {
	if url == "" {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "v=" + strconv.FormatInt(nextVersion(), 10)
}
