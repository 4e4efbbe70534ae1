package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
)

type scriptedGateway struct {
	mu       sync.Mutex
	attempts map[string]int
	script   func(symbol string, attempt int) (models.PriceSeries, error)
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
}

func newScriptedGateway(script func(symbol string, attempt int) (models.PriceSeries, error)) *scriptedGateway {
	return &scriptedGateway{attempts: make(map[string]int), script: script}
}

func (g *scriptedGateway) Fetch(ctx context.Context, symbol string, period models.Period) (models.PriceSeries, error) {
	cur := atomic.AddInt32(&g.inFlight, 1)
	for {
		prev := atomic.LoadInt32(&g.maxInFlight)
		if cur <= prev || atomic.CompareAndSwapInt32(&g.maxInFlight, prev, cur) {
			break
		}
	}
	defer atomic.AddInt32(&g.inFlight, -1)

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return models.PriceSeries{}, ctx.Err()
		}
	}

	g.mu.Lock()
	g.attempts[symbol]++
	attempt := g.attempts[symbol]
	g.mu.Unlock()

	return g.script(symbol, attempt)
}

func (g *scriptedGateway) attemptCount(symbol string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts[symbol]
}

func okSeries(symbol string) models.PriceSeries {
	return models.PriceSeries{
		Meta:   models.SymbolMeta{Symbol: symbol},
		Period: models.Period3M,
		Points: []models.PricePoint{
			{Timestamp: time.Date(2024, 10, 9, 0, 0, 0, 0, time.UTC), Close: 100},
			{Timestamp: time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), Close: 101},
		},
	}
}

func TestFetchManyCompleteMapping(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		if symbol == "BAD.SN" {
			return models.PriceSeries{}, models.NewFetchError(models.ErrNotFound, symbol, "unknown symbol", nil)
		}
		return okSeries(symbol), nil
	})
	s := New(gw)

	results := s.FetchMany(context.Background(), []string{"CHILE.SN", "BAD.SN", "SQM-B.SN"}, models.Period3M)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results["CHILE.SN"].Err != nil {
		t.Errorf("CHILE.SN failed: %v", results["CHILE.SN"].Err)
	}
	if results["SQM-B.SN"].Err != nil {
		t.Errorf("SQM-B.SN failed: %v", results["SQM-B.SN"].Err)
	}
	bad := results["BAD.SN"]
	if bad.Err == nil || bad.Err.Kind != models.ErrNotFound {
		t.Errorf("BAD.SN err = %v, want NOT_FOUND", bad.Err)
	}
}

func TestFetchManyRetriesTransient(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		if attempt == 1 {
			return models.PriceSeries{}, models.NewFetchError(models.ErrTransient, symbol, "flaky upstream", nil)
		}
		return okSeries(symbol), nil
	})
	s := New(gw, WithRetry(2, time.Millisecond))

	results := s.FetchMany(context.Background(), []string{"CHILE.SN"}, models.Period3M)

	if results["CHILE.SN"].Err != nil {
		t.Fatalf("expected success after retry, got %v", results["CHILE.SN"].Err)
	}
	if got := gw.attemptCount("CHILE.SN"); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestFetchManyDoesNotRetryNotFound(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		return models.PriceSeries{}, models.NewFetchError(models.ErrNotFound, symbol, "unknown symbol", nil)
	})
	s := New(gw, WithRetry(3, time.Millisecond))

	results := s.FetchMany(context.Background(), []string{"GONE.SN"}, models.Period3M)

	if results["GONE.SN"].Err == nil || results["GONE.SN"].Err.Kind != models.ErrNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", results["GONE.SN"].Err)
	}
	if got := gw.attemptCount("GONE.SN"); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestFetchManyDoesNotRetryMalformed(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		return models.PriceSeries{}, models.NewFetchError(models.ErrMalformed, symbol, "bad payload", nil)
	})
	s := New(gw, WithRetry(3, time.Millisecond))

	results := s.FetchMany(context.Background(), []string{"CHILE.SN"}, models.Period3M)

	if results["CHILE.SN"].Err == nil || results["CHILE.SN"].Err.Kind != models.ErrMalformed {
		t.Fatalf("err = %v, want MALFORMED", results["CHILE.SN"].Err)
	}
	if got := gw.attemptCount("CHILE.SN"); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestFetchManyBoundsConcurrency(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		return okSeries(symbol), nil
	})
	gw.delay = 20 * time.Millisecond
	s := New(gw, WithWorkers(2))

	symbols := []string{"A.SN", "B.SN", "C.SN", "D.SN", "E.SN", "F.SN"}
	results := s.FetchMany(context.Background(), symbols, models.Period3M)

	if len(results) != len(symbols) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(symbols))
	}
	if max := atomic.LoadInt32(&gw.maxInFlight); max > 2 {
		t.Errorf("max in-flight = %d, want <= 2", max)
	}
}

func TestFetchManyPerSymbolTimeout(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		return okSeries(symbol), nil
	})
	gw.delay = 200 * time.Millisecond
	s := New(gw, WithPerSymbolTimeout(10*time.Millisecond), WithRetry(1, 0))

	results := s.FetchMany(context.Background(), []string{"SLOW.SN"}, models.Period3M)

	r := results["SLOW.SN"]
	if r.Err == nil || r.Err.Kind != models.ErrTransient {
		t.Fatalf("err = %v, want TRANSIENT", r.Err)
	}
}

func TestFetchManyBatchCancel(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		return okSeries(symbol), nil
	})
	s := New(gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := s.FetchMany(ctx, []string{"A.SN", "B.SN", "C.SN"}, models.Period3M)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for sym, r := range results {
		if r.Err == nil || r.Err.Kind != models.ErrTransient {
			t.Errorf("%s: err = %v, want TRANSIENT", sym, r.Err)
		}
	}
}

func TestFetchManyDedupes(t *testing.T) {
	gw := newScriptedGateway(func(symbol string, attempt int) (models.PriceSeries, error) {
		return okSeries(symbol), nil
	})
	s := New(gw)

	results := s.FetchMany(context.Background(), []string{"CHILE.SN", "CHILE.SN", ""}, models.Period3M)

	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if got := gw.attemptCount("CHILE.SN"); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}
