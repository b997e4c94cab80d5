package metrics

import (
	"sync"
	"time"

	"product-media/internal/logging"
)

// StatsProvider supplies counts from the record store.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current record store statistics.
type Stats struct {
	TotalImages  int
	TotalVideos  int
	TotalDerived int
}

// Collector periodically collects and updates record store gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	MediaAssetsTotal.WithLabelValues("image").Set(float64(stats.TotalImages))
	MediaAssetsTotal.WithLabelValues("video").Set(float64(stats.TotalVideos))
	MediaAssetsWithDerived.Set(float64(stats.TotalDerived))

	logging.Debug("Metrics collected: images=%d, videos=%d, derived=%d",
		stats.TotalImages, stats.TotalVideos, stats.TotalDerived)
}
