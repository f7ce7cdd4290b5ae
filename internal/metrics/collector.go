package metrics

import (
	"time"

	"photo-gallery/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// CacheStatsProvider reports the variant cache footprint
type CacheStatsProvider interface {
	CacheStats() (entries int, bytes int64)
}

// Stats holds the current registry statistics
type Stats struct {
	TotalAlbums      int
	TotalImages      int
	TotalViews       int
	TotalUniqueViews int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	cacheProvider CacheStatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. Either provider may be nil.
func NewCollector(provider StatsProvider, cache CacheStatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		cacheProvider: cache,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
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
	if c.cacheProvider != nil {
		entries, bytes := c.cacheProvider.CacheStats()
		VariantCacheEntries.Set(float64(entries))
		VariantCacheBytes.Set(float64(bytes))
	}

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	AlbumsTotal.Set(float64(stats.TotalAlbums))
	AlbumImagesTotal.Set(float64(stats.TotalImages))
	AlbumViewsTotal.WithLabelValues("total").Set(float64(stats.TotalViews))
	AlbumViewsTotal.WithLabelValues("unique").Set(float64(stats.TotalUniqueViews))

	logging.Debug("Metrics collected: albums=%d, images=%d, views=%d",
		stats.TotalAlbums, stats.TotalImages, stats.TotalViews)
}
