package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (s *stubStatsProvider) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.stats
}

func (s *stubStatsProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestCollectorUpdatesGauges(t *testing.T) {
	provider := &stubStatsProvider{
		stats: Stats{TotalImages: 7, TotalVideos: 3, TotalDerived: 9},
	}

	c := NewCollector(provider, time.Hour)
	c.Start()
	defer c.Stop()

	// Collection happens immediately on start
	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if provider.callCount() == 0 {
		t.Fatal("collector never called the stats provider")
	}

	if got := testutil.ToFloat64(MediaAssetsTotal.WithLabelValues("image")); got != 7 {
		t.Errorf("image gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(MediaAssetsTotal.WithLabelValues("video")); got != 3 {
		t.Errorf("video gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(MediaAssetsWithDerived); got != 9 {
		t.Errorf("derived gauge = %v, want 9", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, 10*time.Millisecond)
	c.Start()
	time.Sleep(50 * time.Millisecond)
	c.Stop() // must not panic
}

func TestInitializeMetrics(t *testing.T) {
	// Must be callable repeatedly without panicking
	InitializeMetrics()
	InitializeMetrics()

	// Pre-populated combinations are exported with zero values
	if got := testutil.ToFloat64(PipelineJobsTotal.WithLabelValues("image", "success")); got != 0 {
		t.Errorf("pre-populated counter = %v, want 0", got)
	}
}
