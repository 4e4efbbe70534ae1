package indicator

import (
	"math"

	"MarketLens/internal/domain/models"
)

const (
	smaShortWindow = 20
	smaLongWindow  = 50
	emaFastSpan    = 12
	emaSlowSpan    = 26
	macdSignalSpan = 9
	rsiWindow      = 14
	bollingerK     = 2.0
	volWindow      = 20
	tradingDays    = 252
)

// Engine derives technical indicators from a price series. It is pure:
// no I/O, no clock, same input always yields the same table. Windowed
// values are causal and nil until enough history exists.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Compute builds the full indicator table for a series.
func (e *Engine) Compute(series models.PriceSeries) models.IndicatorTable {
	n := len(series.Points)
	rows := make([]models.IndicatorRow, n)
	if n == 0 {
		return models.IndicatorTable{Meta: series.Meta, Period: series.Period, Rows: rows}
	}

	closes := series.Closes()

	emaFast := ewma(closes, emaFastSpan)
	emaSlow := ewma(closes, emaSlowSpan)

	macd := make([]float64, n)
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	macdSignal := ewma(macd, macdSignalSpan)

	rsi := wilderRSI(closes)
	returns := dailyReturns(closes)

	for i := range rows {
		rows[i].PricePoint = series.Points[i]

		rows[i].SMA20 = rollingMean(closes, smaShortWindow, i)
		rows[i].SMA50 = rollingMean(closes, smaLongWindow, i)

		rows[i].EMA12 = fptr(emaFast[i])
		rows[i].EMA26 = fptr(emaSlow[i])
		rows[i].MACD = fptr(macd[i])
		rows[i].MACDSignal = fptr(macdSignal[i])
		rows[i].MACDHist = fptr(macd[i] - macdSignal[i])

		rows[i].RSI14 = rsi[i]

		if mid := rows[i].SMA20; mid != nil {
			sigma := populationStd(closes[i-smaShortWindow+1:i+1], *mid)
			rows[i].BBMiddle = mid
			rows[i].BBUpper = fptr(*mid + bollingerK*sigma)
			rows[i].BBLower = fptr(*mid - bollingerK*sigma)
		}

		rows[i].DailyReturn = returns[i]
		rows[i].Volatility = annualizedVol(returns, volWindow, i)
	}

	return models.IndicatorTable{Meta: series.Meta, Period: series.Period, Rows: rows}
}

// ewma is the recursive exponential mean, seeded with the first value,
// alpha = 2/(span+1).
func ewma(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func rollingMean(values []float64, window, i int) *float64 {
	if i < window-1 {
		return nil
	}
	sum := 0.0
	for _, v := range values[i-window+1 : i+1] {
		sum += v
	}
	return fptr(sum / float64(window))
}

// wilderRSI computes 14-period RSI with Wilder smoothing. The first value
// appears once 14 price deltas exist; all-gain windows read exactly 100.
func wilderRSI(closes []float64) []*float64 {
	out := make([]*float64, len(closes))
	if len(closes) <= rsiWindow {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= rsiWindow; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= rsiWindow
	avgLoss /= rsiWindow
	out[rsiWindow] = rsiValue(avgGain, avgLoss)

	for i := rsiWindow + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(rsiWindow-1) + gain) / rsiWindow
		avgLoss = (avgLoss*(rsiWindow-1) + loss) / rsiWindow
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) *float64 {
	if avgLoss == 0 {
		return fptr(100)
	}
	rs := avgGain / avgLoss
	return fptr(100 - 100/(1+rs))
}

func dailyReturns(closes []float64) []*float64 {
	out := make([]*float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i] = fptr(closes[i]/closes[i-1] - 1)
	}
	return out
}

// annualizedVol is the sample standard deviation of the last volWindow
// daily returns, scaled by sqrt(252).
func annualizedVol(returns []*float64, window, i int) *float64 {
	if i < window {
		return nil
	}
	sample := make([]float64, 0, window)
	for _, r := range returns[i-window+1 : i+1] {
		if r == nil {
			return nil
		}
		sample = append(sample, *r)
	}

	mean := 0.0
	for _, v := range sample {
		mean += v
	}
	mean /= float64(len(sample))

	ss := 0.0
	for _, v := range sample {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(sample)-1))
	return fptr(std * math.Sqrt(tradingDays))
}

func populationStd(values []float64, mean float64) float64 {
	ss := 0.0
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)))
}

func fptr(v float64) *float64 { return &v }
