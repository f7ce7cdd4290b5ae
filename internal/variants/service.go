package variants

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"photo-gallery/internal/logging"
	"photo-gallery/internal/metrics"
	"photo-gallery/internal/workers"

	"golang.org/x/sync/semaphore"
)

var log = logging.Prefixed("variants")

// DefaultSweepInterval is how often Start sweeps old entries.
const DefaultSweepInterval = 6 * time.Hour

// Options tunes a Service. Zero values select defaults.
type Options struct {
	// MaxAge is the freshness window of cached variants (default 30 days).
	MaxAge time.Duration
	// SweepInterval is the period of the background sweep (default 6h).
	// Negative disables the sweep.
	SweepInterval time.Duration
	// SweepRetention is the age beyond which the sweep evicts (default MaxAge).
	SweepRetention time.Duration
	// Workers caps concurrently running transcodes (default workers.ForCPU(8)).
	Workers int
	// Clock overrides time.Now.
	Clock func() time.Time
	// Sources holds ingested upload sources. Ingest refuses uploads when it
	// is nil.
	Sources BlobStore
}

func (o Options) withDefaults() Options {
	if o.MaxAge == 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.SweepRetention <= 0 {
		o.SweepRetention = o.MaxAge
	}
	if o.Workers <= 0 {
		o.Workers = workers.ForCPU(8)
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// ImageVariants is every rendition of one source.
type ImageVariants struct {
	Thumbnail Ref    `json:"thumbnail"`
	Medium    Ref    `json:"medium"`
	Large     Ref    `json:"large"`
	Original  string `json:"original"`
}

// CacheInfo summarizes the service state.
type CacheInfo struct {
	Entries      int      `json:"entries"`
	Keys         []string `json:"keys"`
	SizeBytes    int64    `json:"sizeBytes"`
	InFlight     int      `json:"inFlight"`
	Placeholders int      `json:"placeholders"`
}

type binding struct {
	id uint64
	fn func(Ref)
}

// Service owns the variant cache, placeholder cache and in-flight tracker,
// and is the only path through which they change.
type Service struct {
	transcoder   Transcoder
	store        BlobStore
	sources      BlobStore
	cache        *Cache
	placeholders *Placeholders
	inflight     *tracker
	sem          *semaphore.Weighted
	opts         Options

	bindMu   sync.Mutex
	bindings map[Key][]binding
	nextBind uint64

	// lifeMu guards stopped against wg.Add racing with Stop.
	lifeMu   sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewService builds a service around transcoder. Handles produced by the
// transcoder must belong to store, which the cache revokes through. A nil
// store selects a MemoryBlobStore.
func NewService(transcoder Transcoder, store BlobStore, opts Options) *Service {
	opts = opts.withDefaults()
	if store == nil {
		store = NewMemoryBlobStore()
	}

	cache := NewCache(store, opts.MaxAge)
	cache.now = opts.Clock

	return &Service{
		transcoder:   transcoder,
		store:        store,
		sources:      opts.Sources,
		cache:        cache,
		placeholders: NewPlaceholders(),
		inflight:     newTracker(),
		sem:          semaphore.NewWeighted(int64(opts.Workers)),
		opts:         opts,
		bindings:     make(map[Key][]binding),
		stopChan:     make(chan struct{}),
	}
}

// Store returns the blob store backing the service's handles.
func (s *Service) Store() BlobStore {
	return s.store
}

// OpenBlob returns the content of a variant or upload source handle.
func (s *Service) OpenBlob(ref Ref) (Blob, error) {
	blob, err := s.store.Open(ref)
	if err == nil || s.sources == nil || !errors.Is(err, ErrNotFound) {
		return blob, err
	}
	return s.sources.Open(ref)
}

// ReleaseSource evicts every cached variant of source and, when source is
// an ingested upload, revokes the upload itself. It returns the number of
// variants evicted. Callers must make sure no album still lists source.
func (s *Service) ReleaseSource(source string) int {
	n := 0
	for _, class := range SizeClasses() {
		if key, err := NewKey(source, class); err == nil && s.cache.Evict(key) {
			n++
		}
	}

	ref := Ref(source)
	if s.sources != nil && ref.Revocable() {
		if err := s.sources.Revoke(ref); err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn("failed to release upload %s: %v", ref, err)
		} else if err == nil {
			log.Debug("released upload %s", ref)
		}
	}
	return n
}

// Cache exposes the variant cache for lookups.
func (s *Service) Cache() *Cache {
	return s.cache
}

// GetOptimizedURL returns the cached variant for (source, class) without
// blocking. On a miss it returns the placeholder for the class and starts a
// background transcode unless one is already running for the key.
func (s *Service) GetOptimizedURL(source string, class SizeClass) (Ref, error) {
	key, err := NewKey(source, class)
	if err != nil {
		return "", err
	}

	if v, ok := s.cache.Get(key); ok {
		metrics.VariantCacheHits.Inc()
		return v.Ref, nil
	}
	metrics.VariantCacheMisses.Inc()

	s.produce(key)
	return s.placeholderFor(class), nil
}

// Ensure returns the final variant for (source, class), waiting for the
// transcode when needed. Cancelling ctx stops the wait, not the transcode.
func (s *Service) Ensure(ctx context.Context, source string, class SizeClass) (Ref, error) {
	key, err := NewKey(source, class)
	if err != nil {
		return "", err
	}

	// A second attempt covers joining a call that a clear made stale.
	for attempt := 0; ; attempt++ {
		if v, ok := s.cache.Get(key); ok {
			metrics.VariantCacheHits.Inc()
			return v.Ref, nil
		}
		metrics.VariantCacheMisses.Inc()

		c := s.produce(key)
		select {
		case <-c.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}

		if errors.Is(c.err, ErrSuperseded) && attempt == 0 {
			continue
		}
		return c.ref, c.err
	}
}

// Variants returns the non-blocking ref of every size class plus the original.
func (s *Service) Variants(source string) (ImageVariants, error) {
	out := ImageVariants{Original: source}
	for _, class := range SizeClasses() {
		ref, err := s.GetOptimizedURL(source, class)
		if err != nil {
			return ImageVariants{}, err
		}
		switch class {
		case Thumbnail:
			out.Thumbnail = ref
		case Medium:
			out.Medium = ref
		case Large:
			out.Large = ref
		}
	}
	return out, nil
}

// Bind returns the current ref for (source, class). If that is a
// placeholder, fn is called once with the final ref when the background
// transcode succeeds. The returned func drops the binding.
func (s *Service) Bind(source string, class SizeClass, fn func(Ref)) (Ref, func(), error) {
	key, err := NewKey(source, class)
	if err != nil {
		return "", nil, err
	}
	if fn == nil {
		return "", nil, fmt.Errorf("%w: nil callback", ErrInvalidArgument)
	}
	noop := func() {}

	if v, ok := s.cache.Get(key); ok {
		metrics.VariantCacheHits.Inc()
		return v.Ref, noop, nil
	}
	metrics.VariantCacheMisses.Inc()

	id := s.addBinding(key, fn)
	unbind := func() { s.removeBinding(key, id) }

	// The transcode may have settled between the lookup and the binding.
	if v, ok := s.cache.Get(key); ok {
		unbind()
		return v.Ref, noop, nil
	}

	s.produce(key)
	return s.placeholderFor(class), unbind, nil
}

// Evict drops one variant and revokes its handle.
func (s *Service) Evict(source string, class SizeClass) (bool, error) {
	key, err := NewKey(source, class)
	if err != nil {
		return false, err
	}
	return s.cache.Evict(key), nil
}

// Clear revokes every cached variant and drops all placeholders. Transcodes
// already running finish but their results are discarded.
func (s *Service) Clear() int {
	s.inflight.bump()
	n := s.cache.Clear()
	s.placeholders.Clear()
	log.Info("cache cleared: %d variants released", n)
	return n
}

// Info reports cache and tracker state.
func (s *Service) Info() CacheInfo {
	keys := s.cache.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return CacheInfo{
		Entries:      len(keys),
		Keys:         names,
		SizeBytes:    s.cache.SizeEstimate(),
		InFlight:     s.inflight.len(),
		Placeholders: s.placeholders.Len(),
	}
}

// CacheStats implements metrics.CacheStatsProvider.
func (s *Service) CacheStats() (int, int64) {
	return s.cache.Len(), s.cache.SizeEstimate()
}

// Start launches the periodic sweep.
func (s *Service) Start() {
	if s.opts.SweepInterval < 0 {
		return
	}

	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.stopped {
		return
	}

	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop ends the sweep, refuses new transcodes and waits for running ones.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.lifeMu.Lock()
		s.stopped = true
		s.lifeMu.Unlock()
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Service) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.cache.Sweep(s.opts.SweepRetention); n > 0 {
				log.Info("sweep evicted %d variants older than %v", n, s.opts.SweepRetention)
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) placeholderFor(class SizeClass) Ref {
	spec, _ := Spec(class)
	return s.placeholders.Get(spec.Width, spec.Height)
}

// produce returns the pending call for key, starting a transcode if none
// is running.
func (s *Service) produce(key Key) *call {
	c, created := s.inflight.join(key)
	if !created {
		return c
	}

	// A previous call may have committed and left the tracker after the
	// caller's cache miss.
	if v, ok := s.cache.Get(key); ok {
		s.inflight.settle(key, c, v.Ref, nil, nil)
		c.wake()
		return c
	}

	s.lifeMu.RLock()
	if s.stopped {
		s.lifeMu.RUnlock()
		s.inflight.settle(key, c, "", ErrStopped, nil)
		c.wake()
		return c
	}
	s.wg.Add(1)
	s.lifeMu.RUnlock()

	metrics.TranscodesInFlight.Inc()
	go s.run(key, c)
	return c
}

func (s *Service) run(key Key, c *call) {
	defer s.wg.Done()
	defer metrics.TranscodesInFlight.Dec()

	ctx := context.Background()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.inflight.settle(key, c, "", err, nil)
		c.wake()
		return
	}
	defer s.sem.Release(1)

	start := time.Now()
	out, err := s.transcoder.Transcode(ctx, key.Source, key.Class)
	metrics.TranscodeDuration.WithLabelValues(string(key.Class)).Observe(time.Since(start).Seconds())

	stale := s.inflight.settle(key, c, out.Ref, err, func() {
		s.cache.Put(key, CachedVariant{
			Ref:       out.Ref,
			Size:      out.Size,
			Format:    out.Format,
			CreatedAt: s.opts.Clock(),
		})
	})

	switch {
	case err != nil:
		metrics.TranscodesTotal.WithLabelValues(string(key.Class), statusFor(err)).Inc()
		log.Warn("transcode %s failed: %v", key, err)
	case stale:
		metrics.TranscodesTotal.WithLabelValues(string(key.Class), statusFor(ErrSuperseded)).Inc()
		log.Debug("discarding %s for %s, cache was cleared", out.Ref, key)
		s.cache.release("clear", out.Ref)
	default:
		metrics.TranscodesTotal.WithLabelValues(string(key.Class), "success").Inc()
		log.Debug("transcoded %s [%s] in %v", key, key.Digest(), time.Since(start))
		s.notify(key, out.Ref)
	}
	c.wake()
}

func (s *Service) addBinding(key Key, fn func(Ref)) uint64 {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	s.nextBind++
	s.bindings[key] = append(s.bindings[key], binding{id: s.nextBind, fn: fn})
	return s.nextBind
}

func (s *Service) removeBinding(key Key, id uint64) {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()

	bs := s.bindings[key]
	for i, b := range bs {
		if b.id == id {
			bs = append(bs[:i], bs[i+1:]...)
			break
		}
	}
	if len(bs) == 0 {
		delete(s.bindings, key)
	} else {
		s.bindings[key] = bs
	}
}

// notify invokes and drops every binding for key.
func (s *Service) notify(key Key, ref Ref) {
	s.bindMu.Lock()
	bs := s.bindings[key]
	delete(s.bindings, key)
	s.bindMu.Unlock()

	for _, b := range bs {
		b.fn(ref)
	}
}
