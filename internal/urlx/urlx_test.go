package urlx

import (
	"strconv"
	"strings"
	"testing"
)

func TestAddVersionSeparator(t *testing.T) {
	tests := []struct {
		name string
		url  string
		sep  string
	}{
		{
			name: "no query string uses question mark",
			url:  "https://cdn.example.com/products/p1/image/original.png",
			sep:  "?v=",
		},
		{
			name: "existing query string uses ampersand",
			url:  "https://cdn.example.com/products/p1/image/original.png?width=200",
			sep:  "&v=",
		},
		{
			name: "existing version parameter still appends",
			url:  "https://cdn.example.com/a.png?v=123",
			sep:  "&v=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddVersion(tt.url)
			if !strings.HasPrefix(got, tt.url) {
				t.Fatalf("AddVersion(%q) = %q, does not preserve input prefix", tt.url, got)
			}
			suffix := strings.TrimPrefix(got, tt.url)
			if !strings.HasPrefix(suffix, tt.sep) {
				t.Errorf("AddVersion(%q) appended %q, want separator %q", tt.url, suffix, tt.sep)
			}
			if _, err := strconv.ParseInt(strings.TrimPrefix(suffix, tt.sep), 10, 64); err != nil {
				t.Errorf("AddVersion(%q) version is not numeric: %q", tt.url, suffix)
			}
		})
	}
}

func TestAddVersionEmpty(t *testing.T) {
	if got := AddVersion(""); got != "" {
		t.Errorf("AddVersion(\"\") = %q, want empty", got)
	}
}

func TestAddVersionStrictlyIncreasing(t *testing.T) {
	const calls = 1000
	prev := int64(-1)
	for i := 0; i < calls; i++ {
		got := AddVersion("https://example.com/a.png")
		idx := strings.Index(got, "?v=")
		if idx < 0 {
			t.Fatalf("missing version parameter in %q", got)
		}
		n, err := strconv.ParseInt(got[idx+3:], 10, 64)
		if err != nil {
			t.Fatalf("bad version in %q: %v", got, err)
		}
		if n <= prev {
			t.Fatalf("version not strictly increasing: %d after %d", n, prev)
		}
		prev = n
	}
}

func TestNextVersionConcurrent(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 500

	results := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < perGoroutine; j++ {
				results <- nextVersion()
			}
		}()
	}

	seen := make(map[int64]bool, goroutines*perGoroutine)
	for i := 0; i < goroutines*perGoroutine; i++ {
		v := <-results
		if seen[v] {
			t.Fatalf("duplicate version issued: %d", v)
		}
		seen[v] = true
	}
}
