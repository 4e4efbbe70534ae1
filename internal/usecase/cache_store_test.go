package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/pkg/cache"
)

var testTTL = map[string]time.Duration{
	KindQuote:        5 * time.Minute,
	KindHistory:      time.Hour,
	KindIndicators:   time.Hour,
	KindAnalytics:    time.Hour,
	KindFundamentals: 24 * time.Hour,
}

// brokenStore fails every durable operation. Used to prove CACHE_IO
// degradation keeps data flowing.
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key cache.Key) (cache.Entry, error) {
	return cache.Entry{}, errors.New("disk on fire")
}
func (brokenStore) Put(ctx context.Context, e cache.Entry) error { return errors.New("disk on fire") }
func (brokenStore) Sweep(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, errors.New("disk on fire")
}
func (brokenStore) Close() error { return nil }

func TestGetOrFetchHitSkipsFetch(t *testing.T) {
	cs := NewCacheStore(cache.NewMemoryStore(), testTTL)
	key := cache.NewKey(KindHistory, []string{"CHILE.SN"}, "3mo", "20241010")

	calls := 0
	fetchFn := func(ctx context.Context) (string, error) {
		calls++
		return "payload", nil
	}

	v, freshness, err := GetOrFetch(context.Background(), cs, key, fetchFn)
	if err != nil || v != "payload" {
		t.Fatalf("first call: %v %v", v, err)
	}
	if freshness.Source != models.SourceMiss {
		t.Errorf("first source = %v, want MISS", freshness.Source)
	}

	v, freshness, err = GetOrFetch(context.Background(), cs, key, fetchFn)
	if err != nil || v != "payload" {
		t.Fatalf("second call: %v %v", v, err)
	}
	if freshness.Source != models.SourceHit {
		t.Errorf("second source = %v, want HIT", freshness.Source)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (idempotence within TTL)", calls)
	}
}

func TestGetOrFetchExpiredEntryRefetches(t *testing.T) {
	now := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cs := NewCacheStore(cache.NewMemoryStore(), testTTL, WithClock(clock))
	key := cache.NewKey(KindQuote, []string{"CHILE.SN"}, "5d", "20241010")

	calls := 0
	fetchFn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if _, _, err := GetOrFetch(context.Background(), cs, key, fetchFn); err != nil {
		t.Fatal(err)
	}

	// Beyond the 5 minute quote TTL the entry is stale.
	now = now.Add(6 * time.Minute)
	v, freshness, err := GetOrFetch(context.Background(), cs, key, fetchFn)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 || calls != 2 {
		t.Errorf("expired entry not refetched: v=%d calls=%d", v, calls)
	}
	if freshness.Source != models.SourceMiss {
		t.Errorf("source = %v, want MISS", freshness.Source)
	}
}

func TestCacheIOFallsBackToMemory(t *testing.T) {
	cs := NewCacheStore(brokenStore{}, testTTL)
	key := cache.NewKey(KindHistory, []string{"CHILE.SN"}, "3mo", "20241010")

	calls := 0
	fetchFn := func(ctx context.Context) (string, error) {
		calls++
		return "payload", nil
	}

	v, _, err := GetOrFetch(context.Background(), cs, key, fetchFn)
	if err != nil || v != "payload" {
		t.Fatalf("persistence failure must not fail the call: %v %v", v, err)
	}

	// The fallback copy must serve the second call.
	v, freshness, err := GetOrFetch(context.Background(), cs, key, fetchFn)
	if err != nil || v != "payload" {
		t.Fatalf("fallback read: %v %v", v, err)
	}
	if freshness.Source != models.SourceHit {
		t.Errorf("source = %v, want HIT from fallback", freshness.Source)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
}

func TestGetOrFetchEachIncremental(t *testing.T) {
	cs := NewCacheStore(cache.NewMemoryStore(), testTTL)
	day := "20241010"

	fetched := map[string]int{}
	fetchFn := func(ctx context.Context, stale []string) (map[string]string, map[string]*models.FetchError) {
		out := make(map[string]string)
		for _, sym := range stale {
			fetched[sym]++
			out[sym] = "series-" + sym
		}
		return out, nil
	}

	// Warm A only.
	values, failures, freshness := GetOrFetchEach(context.Background(), cs, KindHistory,
		[]string{"A.SN"}, models.Period3M, day, fetchFn)
	if len(values) != 1 || len(failures) != 0 {
		t.Fatalf("warmup: %v %v", values, failures)
	}
	if freshness.Source != models.SourceMiss {
		t.Errorf("warmup source = %v, want MISS", freshness.Source)
	}

	// {A fresh, B stale}: only B may be fetched.
	values, failures, freshness = GetOrFetchEach(context.Background(), cs, KindHistory,
		[]string{"A.SN", "B.SN"}, models.Period3M, day, fetchFn)
	if len(values) != 2 || len(failures) != 0 {
		t.Fatalf("mixed call: %v %v", values, failures)
	}
	if fetched["A.SN"] != 1 {
		t.Errorf("A.SN fetched %d times, want 1 (must be served from cache)", fetched["A.SN"])
	}
	if fetched["B.SN"] != 1 {
		t.Errorf("B.SN fetched %d times, want 1", fetched["B.SN"])
	}
	if freshness.Source != models.SourcePartialHit {
		t.Errorf("mixed source = %v, want PARTIAL_HIT", freshness.Source)
	}

	// Everything fresh now.
	_, _, freshness = GetOrFetchEach(context.Background(), cs, KindHistory,
		[]string{"A.SN", "B.SN"}, models.Period3M, day, fetchFn)
	if freshness.Source != models.SourceHit {
		t.Errorf("third source = %v, want HIT", freshness.Source)
	}
	if fetched["A.SN"] != 1 || fetched["B.SN"] != 1 {
		t.Errorf("full hit still fetched: %v", fetched)
	}
}

func TestGetOrFetchEachCompleteMapping(t *testing.T) {
	cs := NewCacheStore(cache.NewMemoryStore(), testTTL)

	fetchFn := func(ctx context.Context, stale []string) (map[string]string, map[string]*models.FetchError) {
		out := make(map[string]string)
		ferrs := make(map[string]*models.FetchError)
		for _, sym := range stale {
			if sym == "BAD.SN" {
				ferrs[sym] = models.NewFetchError(models.ErrNotFound, sym, "unknown symbol", nil)
				continue
			}
			out[sym] = "ok"
		}
		return out, ferrs
	}

	values, failures, _ := GetOrFetchEach(context.Background(), cs, KindHistory,
		[]string{"GOOD.SN", "BAD.SN"}, models.Period3M, "20241010", fetchFn)

	if _, ok := values["GOOD.SN"]; !ok {
		t.Errorf("GOOD.SN missing from values")
	}
	if ferr, ok := failures["BAD.SN"]; !ok || ferr.Kind != models.ErrNotFound {
		t.Errorf("BAD.SN failure = %v, want NOT_FOUND", failures["BAD.SN"])
	}
	if len(values)+len(failures) != 2 {
		t.Errorf("mapping incomplete: %v %v", values, failures)
	}
}

func TestGetOrFetchEachFailuresAreNotCached(t *testing.T) {
	cs := NewCacheStore(cache.NewMemoryStore(), testTTL)

	attempts := 0
	fetchFn := func(ctx context.Context, stale []string) (map[string]string, map[string]*models.FetchError) {
		attempts++
		return nil, map[string]*models.FetchError{
			"FLAKY.SN": models.NewFetchError(models.ErrTransient, "FLAKY.SN", "boom", nil),
		}
	}

	for i := 0; i < 2; i++ {
		_, failures, _ := GetOrFetchEach(context.Background(), cs, KindHistory,
			[]string{"FLAKY.SN"}, models.Period3M, "20241010", fetchFn)
		if len(failures) != 1 {
			t.Fatalf("call %d: failures = %v", i, failures)
		}
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (failures must not be cached)", attempts)
	}
}

func TestSweepCountsRemovals(t *testing.T) {
	now := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
	oldNow := now.AddDate(0, 0, -10)
	clockTime := oldNow
	cs := NewCacheStore(cache.NewMemoryStore(), testTTL, WithClock(func() time.Time { return clockTime }))

	key := cache.NewKey(KindHistory, []string{"OLD.SN"}, "3mo", "20240930")
	cs.Save(context.Background(), key, "stale payload")

	clockTime = now
	removed := cs.Sweep(context.Background(), now.AddDate(0, 0, -7))
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
