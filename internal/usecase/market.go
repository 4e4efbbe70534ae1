package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/service/analytics"
	"MarketLens/internal/service/fetch"
	"MarketLens/internal/service/indicator"
	"MarketLens/pkg/cache"
	applogger "MarketLens/pkg/logger"
	"MarketLens/pkg/util"
)

const defaultMoversTopK = 5

// MarketServiceOption configures MarketService.
type MarketServiceOption func(*MarketService)

// MarketService is the read-only query surface over the cache, the fetch
// pipeline and the derivation engines. Every operation returns its payload
// together with a freshness marker; per-symbol failures are typed, never
// silently dropped.
type MarketService struct {
	cache      *CacheStore
	scheduler  *fetch.Scheduler
	engine     *indicator.Engine
	aggregator *analytics.Aggregator
	archive    domrepo.BarArchive
	events     domrepo.EventPublisher
	universe   []models.SymbolMeta
	logger     *applogger.Logger
	now        func() time.Time
}

// NewMarketService creates the query surface.
func NewMarketService(cache *CacheStore, scheduler *fetch.Scheduler, universe []models.SymbolMeta, opts ...MarketServiceOption) *MarketService {
	s := &MarketService{
		cache:      cache,
		scheduler:  scheduler,
		engine:     indicator.NewEngine(),
		aggregator: analytics.NewAggregator(),
		universe:   universe,
		logger:     applogger.Nop(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithBarArchive enables best-effort durable archiving of fetched bars.
func WithBarArchive(a domrepo.BarArchive) MarketServiceOption {
	return func(s *MarketService) {
		s.archive = a
	}
}

// WithEventPublisher enables the outward event feed.
func WithEventPublisher(p domrepo.EventPublisher) MarketServiceOption {
	return func(s *MarketService) {
		s.events = p
	}
}

// WithMarketLogger sets the logger.
func WithMarketLogger(l *applogger.Logger) MarketServiceOption {
	return func(s *MarketService) {
		s.logger = l
	}
}

// WithMarketClock overrides the time source. Tests only.
func WithMarketClock(now func() time.Time) MarketServiceOption {
	return func(s *MarketService) {
		s.now = now
	}
}

// Universe returns the configured symbol metadata.
func (s *MarketService) Universe() []models.SymbolMeta {
	out := make([]models.SymbolMeta, len(s.universe))
	copy(out, s.universe)
	return out
}

func (s *MarketService) universeSymbols() []string {
	out := make([]string, len(s.universe))
	for i, m := range s.universe {
		out[i] = m.Symbol
	}
	return out
}

func (s *MarketService) dayKey() string {
	return util.DayKey(s.now())
}

// resolveSymbols falls back to the whole universe for an empty request.
func (s *MarketService) resolveSymbols(symbols []string) []string {
	if len(symbols) == 0 {
		return s.universeSymbols()
	}
	return symbols
}

// historyFor serves price series per symbol, fetching only the stale
// subset. Fetched series are archived best-effort.
func (s *MarketService) historyFor(ctx context.Context, symbols []string, period models.Period) (map[string]models.PriceSeries, map[string]*models.FetchError, models.Freshness) {
	return GetOrFetchEach(ctx, s.cache, KindHistory, symbols, period, s.dayKey(),
		func(ctx context.Context, stale []string) (map[string]models.PriceSeries, map[string]*models.FetchError) {
			results := s.scheduler.FetchMany(ctx, stale, period)

			series := make(map[string]models.PriceSeries, len(results))
			failures := make(map[string]*models.FetchError)
			for sym, r := range results {
				if r.Err != nil {
					failures[sym] = r.Err
					continue
				}
				series[sym] = r.Series
				s.archiveSeries(ctx, r.Series)
			}

			s.publishFetchBatch(ctx, period, len(series), len(failures))
			return series, failures
		})
}

func (s *MarketService) archiveSeries(ctx context.Context, series models.PriceSeries) {
	if s.archive == nil {
		return
	}
	if err := s.archive.InsertSeries(ctx, series); err != nil {
		s.logger.Warn("bar archive insert failed",
			applogger.String("symbol", series.Meta.Symbol),
			applogger.Error(err),
		)
	}
}

func (s *MarketService) publishFetchBatch(ctx context.Context, period models.Period, ok, failed int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishFetchBatch(ctx, period, ok, failed, s.now()); err != nil {
		s.logger.Warn("fetch batch event publish failed", applogger.Error(err))
	}
}

// GetHistorical returns the price series for each requested symbol.
func (s *MarketService) GetHistorical(ctx context.Context, symbols []string, period models.Period) (map[string]models.PriceSeries, []models.SymbolFailure, models.Freshness) {
	symbols = s.resolveSymbols(symbols)
	series, failures, freshness := s.historyFor(ctx, symbols, period)
	return series, toFailureList(failures), freshness
}

// GetCurrentPrices returns the quote board for the requested symbols,
// derived from the two most recent daily bars.
func (s *MarketService) GetCurrentPrices(ctx context.Context, symbols []string) models.QuoteBoard {
	symbols = s.resolveSymbols(symbols)

	quotes, failures, freshness := GetOrFetchEach(ctx, s.cache, KindQuote, symbols, models.Period5D, s.dayKey(),
		func(ctx context.Context, stale []string) (map[string]models.Quote, map[string]*models.FetchError) {
			results := s.scheduler.FetchMany(ctx, stale, models.Period5D)

			out := make(map[string]models.Quote, len(results))
			ferrs := make(map[string]*models.FetchError)
			for sym, r := range results {
				if r.Err != nil {
					ferrs[sym] = r.Err
					continue
				}
				q, err := quoteFromSeries(r.Series)
				if err != nil {
					ferrs[sym] = models.NewFetchError(models.ErrMalformed, sym, err.Error(), err)
					continue
				}
				out[sym] = q
			}
			return out, ferrs
		})

	board := models.QuoteBoard{
		Quotes:    make([]models.Quote, 0, len(quotes)),
		Failed:    toFailureList(failures),
		Freshness: freshness,
	}
	for _, q := range quotes {
		board.Quotes = append(board.Quotes, q)
	}
	sort.Slice(board.Quotes, func(i, j int) bool {
		return board.Quotes[i].Meta.Symbol < board.Quotes[j].Meta.Symbol
	})

	return board
}

func quoteFromSeries(series models.PriceSeries) (models.Quote, error) {
	n := len(series.Points)
	if n == 0 {
		return models.Quote{}, fmt.Errorf("series has no bars")
	}

	last := series.Points[n-1]
	prevClose := last.Close
	if n > 1 {
		prevClose = series.Points[n-2].Close
	}

	change := last.Close - prevClose
	changePct := 0.0
	if prevClose != 0 {
		changePct = change / prevClose * 100
	}

	return models.Quote{
		Meta:      series.Meta,
		Price:     last.Close,
		PrevClose: prevClose,
		Change:    change,
		ChangePct: changePct,
		Volume:    float64(last.Volume),
		AsOf:      last.Timestamp,
	}, nil
}

// GetIndicators returns the indicator table for one symbol.
func (s *MarketService) GetIndicators(ctx context.Context, symbol string, period models.Period) (models.IndicatorTable, models.Freshness, error) {
	key := indicatorKey(symbol, period, s.dayKey())
	table, freshness, err := GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (models.IndicatorTable, error) {
		series, failures, _ := s.historyFor(ctx, []string{symbol}, period)
		if ferr, failed := failures[symbol]; failed {
			return models.IndicatorTable{}, ferr
		}
		return s.engine.Compute(series[symbol]), nil
	})
	if err != nil {
		return models.IndicatorTable{}, freshness, err
	}
	return table, freshness, nil
}

// GetSignal evaluates the trading signal for one symbol. Signals are
// derived on every call and never cached as authoritative state.
func (s *MarketService) GetSignal(ctx context.Context, symbol string, period models.Period) (models.SignalReport, models.Freshness, error) {
	table, freshness, err := s.GetIndicators(ctx, symbol, period)
	if err != nil {
		return models.SignalReport{}, freshness, err
	}

	report := indicator.Evaluate(table)

	if s.events != nil {
		if perr := s.events.PublishSignal(ctx, report); perr != nil {
			s.logger.Warn("signal event publish failed",
				applogger.String("symbol", symbol),
				applogger.Error(perr),
			)
		}
	}

	return report, freshness, nil
}

// indicatorTablesFor computes indicator tables for a symbol set from
// per-symbol cached history.
func (s *MarketService) indicatorTablesFor(ctx context.Context, symbols []string, period models.Period) (map[string]models.IndicatorTable, map[string]*models.FetchError, models.Freshness) {
	series, failures, freshness := s.historyFor(ctx, symbols, period)

	tables := make(map[string]models.IndicatorTable, len(series))
	for sym, sr := range series {
		tables[sym] = s.engine.Compute(sr)
	}
	return tables, failures, freshness
}

// GetCorrelation returns the pairwise correlation matrix for a symbol set.
func (s *MarketService) GetCorrelation(ctx context.Context, symbols []string, period models.Period) (models.CorrelationMatrix, error) {
	symbols = s.resolveSymbols(symbols)
	if len(symbols) < 2 {
		return models.CorrelationMatrix{}, fmt.Errorf("correlation needs at least 2 symbols")
	}

	key := analyticsKey("correlation", symbols, period, s.dayKey())
	matrix, freshness, err := GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (models.CorrelationMatrix, error) {
		tables, failures, _ := s.indicatorTablesFor(ctx, symbols, period)
		m := s.aggregator.Correlation(tables)
		m.Failed = toFailureList(failures)
		return m, nil
	})
	if err != nil {
		return models.CorrelationMatrix{}, err
	}

	matrix.Freshness = freshness
	return matrix, nil
}

// GetVolatilityRanking ranks the requested symbols by annualized
// volatility, descending. Failed symbols are reported, not dropped.
func (s *MarketService) GetVolatilityRanking(ctx context.Context, symbols []string, period models.Period) (models.VolatilityRanking, error) {
	symbols = s.resolveSymbols(symbols)

	tables, failures, freshness := s.indicatorTablesFor(ctx, symbols, period)
	ranking := s.aggregator.VolatilityRanking(tables)
	ranking.Failed = toFailureList(failures)
	ranking.Freshness = freshness
	return ranking, nil
}

// GetFundamentals returns the trailing profile for one symbol, derived
// from a year of daily bars and cached under the long fundamentals TTL.
func (s *MarketService) GetFundamentals(ctx context.Context, symbol string) (models.FundamentalsReport, models.Freshness, error) {
	key := cache.NewKey(KindFundamentals, []string{symbol}, string(models.Period1Y), s.dayKey())
	report, freshness, err := GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (models.FundamentalsReport, error) {
		series, failures, _ := s.historyFor(ctx, []string{symbol}, models.Period1Y)
		if ferr, failed := failures[symbol]; failed {
			return models.FundamentalsReport{}, ferr
		}
		return s.aggregator.Fundamentals(series[symbol]), nil
	})
	if err != nil {
		return models.FundamentalsReport{}, freshness, err
	}
	report.Freshness = freshness
	return report, freshness, nil
}

// GetMarketMovers returns the top-K gainers and losers across the universe.
func (s *MarketService) GetMarketMovers(ctx context.Context, k int) models.MarketMovers {
	if k <= 0 {
		k = defaultMoversTopK
	}

	board := s.GetCurrentPrices(ctx, nil)
	movers := s.aggregator.MarketMovers(board.Quotes, k)
	movers.Freshness = board.Freshness
	return movers
}

// GetSectorPerformance returns mean percent change per configured sector.
func (s *MarketService) GetSectorPerformance(ctx context.Context) models.SectorReport {
	board := s.GetCurrentPrices(ctx, nil)
	report := s.aggregator.SectorPerformance(board.Quotes)
	report.Freshness = board.Freshness
	return report
}

// GetMarketSummary aggregates the universe quote board into a market
// overview: breadth counts, extremes and overall trend.
func (s *MarketService) GetMarketSummary(ctx context.Context) models.MarketSummary {
	board := s.GetCurrentPrices(ctx, nil)

	summary := models.MarketSummary{
		TotalSymbols: len(board.Quotes) + len(board.Failed),
		Freshness:    board.Freshness,
	}

	var topGainer, topLoser *models.Quote
	for i := range board.Quotes {
		q := board.Quotes[i]
		summary.TotalVolume += q.Volume
		switch {
		case q.ChangePct > 0:
			summary.Gainers++
			if topGainer == nil || q.ChangePct > topGainer.ChangePct {
				topGainer = &board.Quotes[i]
			}
		case q.ChangePct < 0:
			summary.Losers++
			if topLoser == nil || q.ChangePct < topLoser.ChangePct {
				topLoser = &board.Quotes[i]
			}
		default:
			summary.Unchanged++
		}
	}
	summary.TopGainer = topGainer
	summary.TopLoser = topLoser

	switch {
	case summary.Gainers > summary.Losers:
		summary.Trend = "alcista"
	case summary.Losers > summary.Gainers:
		summary.Trend = "bajista"
	default:
		summary.Trend = "plano"
	}

	return summary
}

func indicatorKey(symbol string, period models.Period, day string) cache.Key {
	return cache.NewKey(KindIndicators, []string{symbol}, string(period), day)
}

func analyticsKey(view string, symbols []string, period models.Period, day string) cache.Key {
	return cache.NewKey(KindAnalytics+"_"+view, symbols, string(period), day)
}

func toFailureList(failures map[string]*models.FetchError) []models.SymbolFailure {
	if len(failures) == 0 {
		return nil
	}
	out := make([]models.SymbolFailure, 0, len(failures))
	for _, ferr := range failures {
		out = append(out, models.SymbolFailure{Symbol: ferr.Symbol, Kind: ferr.Kind, Msg: ferr.Msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
