package fetch

import (
	"context"
	"sync"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	applogger "MarketLens/pkg/logger"
)

const kindHistory = "history"

// Option configures Scheduler.
type Option func(*Scheduler)

// Scheduler fans a symbol batch out over a bounded worker pool. Retry
// policy lives here, not in the gateway, so backoff stays centralized.
type Scheduler struct {
	gateway          domrepo.Gateway
	metrics          domrepo.Metrics
	logger           *applogger.Logger
	workers          int
	perSymbolTimeout time.Duration
	maxAttempts      int
	backoff          time.Duration
}

// Result is the per-symbol outcome of a batch fetch. Exactly one of
// Series/Err is meaningful; Err is nil on success.
type Result struct {
	Symbol string
	Series models.PriceSeries
	Err    *models.FetchError
}

// New creates a fetch scheduler.
func New(gateway domrepo.Gateway, opts ...Option) *Scheduler {
	s := &Scheduler{
		gateway:          gateway,
		logger:           applogger.Nop(),
		workers:          5,
		perSymbolTimeout: 10 * time.Second,
		maxAttempts:      2,
		backoff:          500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPerSymbolTimeout bounds each upstream attempt.
func WithPerSymbolTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.perSymbolTimeout = d
		}
	}
}

// WithRetry sets the attempt bound and linear backoff base.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(s *Scheduler) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		s.backoff = backoff
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// FetchMany fetches every symbol in the batch and returns a complete
// mapping: each requested symbol appears exactly once, with either a
// series or a typed failure. One symbol's failure never blocks or
// cancels its siblings.
func (s *Scheduler) FetchMany(ctx context.Context, symbols []string, period models.Period) map[string]Result {
	uniq := dedupe(symbols)
	results := make(map[string]Result, len(uniq))
	if len(uniq) == 0 {
		return results
	}

	jobs := make(chan string)
	out := make(chan Result, len(uniq))

	workers := s.workers
	if workers > len(uniq) {
		workers = len(uniq)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				out <- s.fetchOne(ctx, sym, period)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sym := range uniq {
			select {
			case jobs <- sym:
			case <-ctx.Done():
				// never dispatched, report instead of dropping
				out <- Result{
					Symbol: sym,
					Err:    models.NewFetchError(models.ErrTransient, sym, "batch canceled", ctx.Err()),
				}
			}
		}
	}()

	start := time.Now()
	for i := 0; i < len(uniq); i++ {
		r := <-out
		results[r.Symbol] = r
	}
	wg.Wait()

	ok, failed := 0, 0
	for _, r := range results {
		if r.Err == nil {
			ok++
		} else {
			failed++
		}
	}
	s.logger.Info("fetch batch done",
		applogger.Int("symbols", len(uniq)),
		applogger.Int("ok", ok),
		applogger.Int("failed", failed),
		applogger.String("period", string(period)),
		applogger.Duration("elapsed", time.Since(start)),
	)

	return results
}

func (s *Scheduler) fetchOne(ctx context.Context, symbol string, period models.Period) Result {
	var lastErr *models.FetchError

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Result{
				Symbol: symbol,
				Err:    models.NewFetchError(models.ErrTransient, symbol, "batch canceled", ctx.Err()),
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.perSymbolTimeout)
		start := time.Now()
		series, err := s.gateway.Fetch(attemptCtx, symbol, period)
		cancel()

		if s.metrics != nil {
			s.metrics.RecordFetchDuration(time.Since(start).Seconds())
		}

		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordFetch(kindHistory, nil)
				if last, hasLast := series.Last(); hasLast {
					s.metrics.RecordLastPrice(symbol, last.Close)
				}
			}
			return Result{Symbol: symbol, Series: series}
		}

		ferr := models.AsFetchError(symbol, err)
		lastErr = ferr
		if s.metrics != nil {
			s.metrics.RecordFetch(kindHistory, ferr)
		}

		if !ferr.Retryable() || attempt == s.maxAttempts {
			break
		}

		select {
		case <-time.After(s.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return Result{
				Symbol: symbol,
				Err:    models.NewFetchError(models.ErrTransient, symbol, "batch canceled", ctx.Err()),
			}
		}
	}

	switch lastErr.Kind {
	case models.ErrNotFound:
		s.logger.Debug("symbol unavailable", applogger.String("symbol", symbol))
	default:
		s.logger.Warn("fetch failed",
			applogger.String("symbol", symbol),
			applogger.String("kind", string(lastErr.Kind)),
			applogger.Error(lastErr),
		)
	}

	return Result{Symbol: symbol, Err: lastErr}
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
