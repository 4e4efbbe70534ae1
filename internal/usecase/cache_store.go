package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	"MarketLens/pkg/cache"
	applogger "MarketLens/pkg/logger"
)

// Dataset kinds. Each kind carries its own TTL class.
const (
	KindQuote        = "quote"
	KindHistory      = "history"
	KindIndicators   = "indicators"
	KindAnalytics    = "analytics"
	KindFundamentals = "fundamentals"
)

// CacheStoreOption configures CacheStore.
type CacheStoreOption func(*CacheStore)

// CacheStore wraps a durable backing store with the TTL policy and the
// CACHE_IO fallback. A persistence failure downgrades the entry to the
// in-memory fallback and is never fatal: cached reads may degrade to
// upstream fetches, but data is always returned when the upstream has it.
type CacheStore struct {
	store    cache.Store
	fallback *cache.MemoryStore
	ttl      map[string]time.Duration
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	now      func() time.Time
}

// NewCacheStore creates a TTL-aware cache front.
func NewCacheStore(store cache.Store, ttl map[string]time.Duration, opts ...CacheStoreOption) *CacheStore {
	c := &CacheStore{
		store:    store,
		fallback: cache.NewMemoryStore(),
		ttl:      ttl,
		logger:   applogger.Nop(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithCacheMetrics sets the metrics recorder.
func WithCacheMetrics(m domrepo.Metrics) CacheStoreOption {
	return func(c *CacheStore) {
		c.metrics = m
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *applogger.Logger) CacheStoreOption {
	return func(c *CacheStore) {
		c.logger = l
	}
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) CacheStoreOption {
	return func(c *CacheStore) {
		c.now = now
	}
}

// TTL returns the freshness horizon for a dataset kind. Subkinds such as
// "analytics_correlation" inherit their base kind's class.
func (c *CacheStore) TTL(kind string) time.Duration {
	if d, ok := c.ttl[kind]; ok {
		return d
	}
	if i := strings.IndexByte(kind, '_'); i > 0 {
		if d, ok := c.ttl[kind[:i]]; ok {
			return d
		}
	}
	return time.Hour
}

// Lookup loads a fresh entry for key into dest. The second return is false
// on miss, stale entry, or undecodable payload.
func (c *CacheStore) Lookup(ctx context.Context, key cache.Key, dest interface{}) (time.Time, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.recordCacheIO(key, "read", err)
		}
		// entries that failed to persist live in the fallback
		entry, err = c.fallback.Get(ctx, key)
		if err != nil {
			return time.Time{}, false
		}
	}

	if c.now().Sub(entry.FetchedAt) > c.TTL(key.Kind) {
		return time.Time{}, false
	}

	if err := json.Unmarshal(entry.Payload, dest); err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss",
			applogger.String("key", key.String()),
			applogger.Error(err),
		)
		return time.Time{}, false
	}

	return entry.FetchedAt, true
}

// Save publishes a snapshot for key. On persistence failure the entry is
// kept in the in-memory fallback and the error is counted, not returned.
func (c *CacheStore) Save(ctx context.Context, key cache.Key, payload interface{}) time.Time {
	fetchedAt := c.now()

	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("cache payload not serializable",
			applogger.String("key", key.String()),
			applogger.Error(err),
		)
		return fetchedAt
	}

	entry := cache.Entry{
		Key:       key,
		FetchedAt: fetchedAt,
		TTLClass:  key.Kind,
		Payload:   raw,
	}

	if err := c.store.Put(ctx, entry); err != nil {
		c.recordCacheIO(key, "write", err)
		if ferr := c.fallback.Put(ctx, entry); ferr != nil {
			c.logger.Error("cache fallback write failed",
				applogger.String("key", key.String()),
				applogger.Error(ferr),
			)
		}
	}

	return fetchedAt
}

// Sweep removes snapshots older than the cutoff from both stores.
func (c *CacheStore) Sweep(ctx context.Context, olderThan time.Time) int {
	removed, err := c.store.Sweep(ctx, olderThan)
	if err != nil {
		c.logger.Warn("retention sweep failed", applogger.Error(err))
	}
	fbRemoved, _ := c.fallback.Sweep(ctx, olderThan)
	removed += fbRemoved

	if c.metrics != nil {
		c.metrics.RecordSweep(removed)
	}
	return removed
}

// Close releases the underlying snapshot stores.
func (c *CacheStore) Close() error {
	_ = c.fallback.Close()
	return c.store.Close()
}

func (c *CacheStore) recordCacheIO(key cache.Key, op string, err error) {
	c.logger.Error("cache store "+op+" failed, falling back to memory",
		applogger.String("key", key.String()),
		applogger.Error(err),
	)
	if c.metrics != nil {
		c.metrics.RecordFetch(key.Kind, models.NewFetchError(models.ErrCacheIO, key.SymbolToken(), op+" failed", err))
	}
}

func (c *CacheStore) recordLookup(kind string, source models.CacheSource) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(kind, source)
	}
}

// GetOrFetch resolves one whole-dataset key: fresh cache hit or a single
// fetch. The freshness marker tells the caller which one happened.
func GetOrFetch[T any](ctx context.Context, c *CacheStore, key cache.Key, fetchFn func(context.Context) (T, error)) (T, models.Freshness, error) {
	var cached T
	if fetchedAt, ok := c.Lookup(ctx, key, &cached); ok {
		c.recordLookup(key.Kind, models.SourceHit)
		return cached, models.Freshness{Source: models.SourceHit, FetchedAt: fetchedAt}, nil
	}

	fetched, err := fetchFn(ctx)
	if err != nil {
		var zero T
		c.recordLookup(key.Kind, models.SourceMiss)
		return zero, models.Freshness{Source: models.SourceMiss, FetchedAt: c.now()}, err
	}

	fetchedAt := c.Save(ctx, key, fetched)
	c.recordLookup(key.Kind, models.SourceMiss)
	return fetched, models.Freshness{Source: models.SourceMiss, FetchedAt: fetchedAt}, nil
}

// GetOrFetchEach resolves a symbol set against per-symbol cache entries and
// fetches only the stale subset. The result maps are complete: every
// requested symbol lands in values or failures. Freshness is PARTIAL_HIT
// when served by a mix of cache and upstream, and FetchedAt is the oldest
// timestamp contributing to the result.
func GetOrFetchEach[T any](
	ctx context.Context,
	c *CacheStore,
	kind string,
	symbols []string,
	period models.Period,
	day string,
	fetchFn func(ctx context.Context, stale []string) (map[string]T, map[string]*models.FetchError),
) (map[string]T, map[string]*models.FetchError, models.Freshness) {
	values := make(map[string]T, len(symbols))
	failures := make(map[string]*models.FetchError)

	oldest := time.Time{}
	noteAge := func(t time.Time) {
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}

	stale := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}

		var cached T
		key := cache.NewKey(kind, []string{sym}, string(period), day)
		if fetchedAt, ok := c.Lookup(ctx, key, &cached); ok {
			values[sym] = cached
			noteAge(fetchedAt)
			continue
		}
		stale = append(stale, sym)
	}

	hits := len(values)

	if len(stale) > 0 {
		fetched, ferrs := fetchFn(ctx, stale)
		for _, sym := range stale {
			if v, ok := fetched[sym]; ok {
				key := cache.NewKey(kind, []string{sym}, string(period), day)
				noteAge(c.Save(ctx, key, v))
				values[sym] = v
				continue
			}
			if ferr, ok := ferrs[sym]; ok {
				failures[sym] = ferr
			} else {
				failures[sym] = models.NewFetchError(models.ErrTransient, sym, "no result from fetch", nil)
			}
		}
	}

	source := models.SourceMiss
	switch {
	case len(stale) == 0 && hits > 0:
		source = models.SourceHit
	case hits > 0:
		source = models.SourcePartialHit
	}
	c.recordLookup(kind, source)

	if oldest.IsZero() {
		oldest = c.now()
	}
	return values, failures, models.Freshness{Source: source, FetchedAt: oldest}
}
