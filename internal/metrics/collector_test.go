package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCacheStats struct {
	entries int
	bytes   int64
}

func (m *mockCacheStats) CacheStats() (int, int64) {
	return m.entries, m.bytes
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	cache := &mockCacheStats{}

	collector := NewCollector(provider, cache, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.statsProvider != provider {
		t.Error("statsProvider not set correctly")
	}
	if collector.cacheProvider != cache {
		t.Error("cacheProvider not set correctly")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}
	if collector.stopChan == nil {
		t.Error("stopChan not initialized")
	}
}

func TestCollectorCollect(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{TotalAlbums: 3, TotalImages: 13, TotalViews: 2790, TotalUniqueViews: 2010},
	}
	cache := &mockCacheStats{entries: 7, bytes: 4096}

	NewCollector(provider, cache, time.Minute).collect()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"albums", testutil.ToFloat64(AlbumsTotal), 3},
		{"images", testutil.ToFloat64(AlbumImagesTotal), 13},
		{"total views", testutil.ToFloat64(AlbumViewsTotal.WithLabelValues("total")), 2790},
		{"unique views", testutil.ToFloat64(AlbumViewsTotal.WithLabelValues("unique")), 2010},
		{"cache entries", testutil.ToFloat64(VariantCacheEntries), 7},
		{"cache bytes", testutil.ToFloat64(VariantCacheBytes), 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestCollectorNilProviders(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect panicked with nil providers: %v", r)
		}
	}()
	NewCollector(nil, nil, time.Minute).collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalAlbums: 1}}

	collector := NewCollector(provider, nil, 20*time.Millisecond)
	collector.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	collector.Stop()

	if provider.callCount() < 2 {
		t.Errorf("expected at least 2 collections (immediate + tick), got %d", provider.callCount())
	}
}
