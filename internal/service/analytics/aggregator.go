package analytics

import (
	"math"
	"sort"
	"time"

	"MarketLens/internal/domain/models"
)

const (
	volHighThreshold   = 0.30
	volMediumThreshold = 0.15
)

// Aggregator derives cross-sectional views from per-symbol indicator
// tables and quotes. All methods are pure; symbols with missing or
// undefined inputs are excluded from a computation, never zero-filled.
type Aggregator struct{}

func NewAggregator() *Aggregator { return &Aggregator{} }

// Correlation builds the pairwise Pearson correlation matrix of daily
// returns, aligned by timestamp intersection. Pairs with fewer than two
// overlapping returns, or zero variance on either side, stay undefined.
func (a *Aggregator) Correlation(tables map[string]models.IndicatorTable) models.CorrelationMatrix {
	symbols := make([]string, 0, len(tables))
	for sym := range tables {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	returnsBySymbol := make(map[string]map[time.Time]float64, len(symbols))
	for sym, table := range tables {
		rets := make(map[time.Time]float64)
		for _, row := range table.Rows {
			if row.DailyReturn != nil {
				rets[row.Timestamp] = *row.DailyReturn
			}
		}
		returnsBySymbol[sym] = rets
	}

	values := make([][]*float64, len(symbols))
	for i := range values {
		values[i] = make([]*float64, len(symbols))
	}

	for i, si := range symbols {
		one := 1.0
		values[i][i] = &one
		for j := i + 1; j < len(symbols); j++ {
			sj := symbols[j]
			if r, ok := pearson(returnsBySymbol[si], returnsBySymbol[sj]); ok {
				v := r
				values[i][j] = &v
				w := r
				values[j][i] = &w
			}
		}
	}

	return models.CorrelationMatrix{Symbols: symbols, Values: values}
}

func pearson(a, b map[time.Time]float64) (float64, bool) {
	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(a))
	for ts, va := range a {
		if vb, ok := b[ts]; ok {
			xs = append(xs, va)
			ys = append(ys, vb)
		}
	}
	if len(xs) < 2 {
		return 0, false
	}

	n := float64(len(xs))
	meanX, meanY := 0.0, 0.0
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}

	return cov / math.Sqrt(varX*varY), true
}

// VolatilityRanking ranks symbols by their latest annualized volatility,
// descending. Symbols with no defined volatility are left out.
func (a *Aggregator) VolatilityRanking(tables map[string]models.IndicatorTable) models.VolatilityRanking {
	ranks := make([]models.VolatilityRank, 0, len(tables))

	for _, table := range tables {
		current, avg, ok := volatilityStats(table)
		if !ok {
			continue
		}
		ranks = append(ranks, models.VolatilityRank{
			Meta:    table.Meta,
			Current: current,
			Average: avg,
			Class:   classifyVolatility(current),
		})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Current != ranks[j].Current {
			return ranks[i].Current > ranks[j].Current
		}
		return ranks[i].Meta.Symbol < ranks[j].Meta.Symbol
	})

	return models.VolatilityRanking{Ranks: ranks}
}

func volatilityStats(table models.IndicatorTable) (current, avg float64, ok bool) {
	sum, count := 0.0, 0
	var last *float64
	for _, row := range table.Rows {
		if row.Volatility == nil {
			continue
		}
		sum += *row.Volatility
		count++
		last = row.Volatility
	}
	if count == 0 {
		return 0, 0, false
	}
	return *last, sum / float64(count), true
}

func classifyVolatility(v float64) models.VolatilityClass {
	switch {
	case v > volHighThreshold:
		return models.VolatilityHigh
	case v > volMediumThreshold:
		return models.VolatilityMedium
	default:
		return models.VolatilityLow
	}
}

// MarketMovers picks the top-K gainers and losers by signed percent
// change. Flat symbols appear in neither list.
func (a *Aggregator) MarketMovers(quotes []models.Quote, k int) models.MarketMovers {
	gainers := make([]models.Quote, 0, len(quotes))
	losers := make([]models.Quote, 0, len(quotes))
	for _, q := range quotes {
		switch {
		case q.ChangePct > 0:
			gainers = append(gainers, q)
		case q.ChangePct < 0:
			losers = append(losers, q)
		}
	}

	sort.Slice(gainers, func(i, j int) bool {
		if gainers[i].ChangePct != gainers[j].ChangePct {
			return gainers[i].ChangePct > gainers[j].ChangePct
		}
		return gainers[i].Meta.Symbol < gainers[j].Meta.Symbol
	})
	sort.Slice(losers, func(i, j int) bool {
		if losers[i].ChangePct != losers[j].ChangePct {
			return losers[i].ChangePct < losers[j].ChangePct
		}
		return losers[i].Meta.Symbol < losers[j].Meta.Symbol
	})

	if k > 0 {
		if len(gainers) > k {
			gainers = gainers[:k]
		}
		if len(losers) > k {
			losers = losers[:k]
		}
	}

	return models.MarketMovers{Gainers: gainers, Losers: losers}
}

// SectorPerformance averages percent change per sector. Symbols without
// a configured sector, and sectors with no resolved symbols, are omitted.
func (a *Aggregator) SectorPerformance(quotes []models.Quote) models.SectorReport {
	type acc struct {
		sum     float64
		symbols []string
	}
	bySector := make(map[string]*acc)

	for _, q := range quotes {
		if q.Meta.Sector == "" {
			continue
		}
		entry, ok := bySector[q.Meta.Sector]
		if !ok {
			entry = &acc{}
			bySector[q.Meta.Sector] = entry
		}
		entry.sum += q.ChangePct
		entry.symbols = append(entry.symbols, q.Meta.Symbol)
	}

	sectors := make([]models.SectorPerformance, 0, len(bySector))
	for sector, entry := range bySector {
		sort.Strings(entry.symbols)
		sectors = append(sectors, models.SectorPerformance{
			Sector:  sector,
			MeanPct: entry.sum / float64(len(entry.symbols)),
			Symbols: entry.symbols,
		})
	}

	sort.Slice(sectors, func(i, j int) bool {
		if sectors[i].MeanPct != sectors[j].MeanPct {
			return sectors[i].MeanPct > sectors[j].MeanPct
		}
		return sectors[i].Sector < sectors[j].Sector
	})

	return models.SectorReport{Sectors: sectors}
}

// Trading-day window widths for the trailing-return profile.
const (
	window1M = 21
	window6M = 126
)

// Fundamentals derives the slow-moving profile for one symbol from its
// daily history: trailing 1m/6m returns over fixed trading-day windows,
// the full-series return, and 6m annualized volatility.
func (a *Aggregator) Fundamentals(series models.PriceSeries) models.FundamentalsReport {
	report := models.FundamentalsReport{
		Symbol:   series.Meta.Symbol,
		Name:     series.Meta.Name,
		Sector:   series.Meta.Sector,
		Currency: series.Meta.Currency,
	}
	n := len(series.Points)
	if n == 0 {
		return report
	}

	report.LastClose = series.Points[n-1].Close
	report.Change1M = trailingChange(series.Points, window1M)
	report.Change6M = trailingChange(series.Points, window6M)
	report.Change1Y = trailingChange(series.Points, n-1)
	report.AnnualVolatility = trailingVolatility(series.Points, window6M)
	return report
}

// trailingChange is the fractional change from span bars back to the
// last bar. Nil when the series is shorter than the window.
func trailingChange(points []models.PricePoint, span int) *float64 {
	n := len(points)
	if span < 1 || n <= span {
		return nil
	}
	first := points[n-1-span].Close
	if first == 0 {
		return nil
	}
	v := (points[n-1].Close - first) / first
	return &v
}

// trailingVolatility annualizes the sample deviation of the last span
// daily returns. A shorter series falls back to whatever returns exist.
func trailingVolatility(points []models.PricePoint, span int) *float64 {
	n := len(points)
	if span >= n {
		span = n - 1
	}
	if span < 2 {
		return nil
	}

	rets := make([]float64, 0, span)
	for i := n - span; i < n; i++ {
		prev := points[i-1].Close
		if prev == 0 {
			return nil
		}
		rets = append(rets, (points[i].Close-prev)/prev)
	}

	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	v := math.Sqrt(ss/float64(len(rets)-1)) * math.Sqrt(252)
	return &v
}
