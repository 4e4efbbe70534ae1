package indicator

import (
	"math"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
)

func seriesFromCloses(closes []float64) models.PriceSeries {
	base := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return models.PriceSeries{
		Meta:   models.SymbolMeta{Symbol: "TEST.SN"},
		Period: models.Period3M,
		Points: points,
	}
}

func linearCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeEmptySeries(t *testing.T) {
	table := NewEngine().Compute(models.PriceSeries{Meta: models.SymbolMeta{Symbol: "X"}})
	if len(table.Rows) != 0 {
		t.Fatalf("len(rows) = %d, want 0", len(table.Rows))
	}
	if _, ok := table.Latest(); ok {
		t.Errorf("Latest on empty table should report false")
	}
}

func TestComputeWindowBoundaries(t *testing.T) {
	table := NewEngine().Compute(seriesFromCloses(linearCloses(60)))
	rows := table.Rows

	if rows[18].SMA20 != nil {
		t.Errorf("SMA20 defined at row 18")
	}
	if rows[19].SMA20 == nil {
		t.Fatalf("SMA20 undefined at row 19")
	}
	// mean(1..20) = 10.5
	if !almostEqual(*rows[19].SMA20, 10.5) {
		t.Errorf("SMA20[19] = %v, want 10.5", *rows[19].SMA20)
	}

	if rows[48].SMA50 != nil {
		t.Errorf("SMA50 defined at row 48")
	}
	if rows[49].SMA50 == nil || !almostEqual(*rows[49].SMA50, 25.5) {
		t.Errorf("SMA50[49] = %v, want 25.5", rows[49].SMA50)
	}

	if rows[13].RSI14 != nil {
		t.Errorf("RSI defined before 14 deltas exist")
	}
	if rows[14].RSI14 == nil {
		t.Errorf("RSI undefined at row 14")
	}

	if rows[0].DailyReturn != nil {
		t.Errorf("daily return defined at row 0")
	}
	if rows[1].DailyReturn == nil || !almostEqual(*rows[1].DailyReturn, 1.0) {
		t.Errorf("DailyReturn[1] = %v, want 1.0", rows[1].DailyReturn)
	}

	if rows[19].Volatility != nil {
		t.Errorf("volatility defined at row 19")
	}
	if rows[20].Volatility == nil {
		t.Errorf("volatility undefined at row 20")
	}
}

func TestComputeEMASeededByFirstClose(t *testing.T) {
	closes := []float64{100, 110, 105}
	table := NewEngine().Compute(seriesFromCloses(closes))
	rows := table.Rows

	if rows[0].EMA12 == nil || !almostEqual(*rows[0].EMA12, 100) {
		t.Fatalf("EMA12[0] = %v, want seed 100", rows[0].EMA12)
	}

	alpha := 2.0 / 13.0
	want := alpha*110 + (1-alpha)*100
	if !almostEqual(*rows[1].EMA12, want) {
		t.Errorf("EMA12[1] = %v, want %v", *rows[1].EMA12, want)
	}

	// MACD is the fast/slow spread; with one point both seeds equal the close.
	if !almostEqual(*rows[0].MACD, 0) {
		t.Errorf("MACD[0] = %v, want 0", *rows[0].MACD)
	}
	if rows[0].MACDSignal == nil || rows[0].MACDHist == nil {
		t.Errorf("MACD signal/hist undefined at row 0")
	}
}

func TestComputeRSIAllGains(t *testing.T) {
	table := NewEngine().Compute(seriesFromCloses(linearCloses(30)))
	row := table.Rows[29]
	if row.RSI14 == nil || !almostEqual(*row.RSI14, 100) {
		t.Errorf("RSI on monotone gains = %v, want 100", row.RSI14)
	}
}

func TestComputeRSIConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50
	}
	table := NewEngine().Compute(seriesFromCloses(closes))
	row := table.Rows[29]
	// zero losses reads as 100 by convention
	if row.RSI14 == nil || !almostEqual(*row.RSI14, 100) {
		t.Errorf("RSI on flat series = %v, want 100", row.RSI14)
	}
}

func TestComputeBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 75
	}
	table := NewEngine().Compute(seriesFromCloses(closes))
	row := table.Rows[24]

	if row.BBMiddle == nil || row.BBUpper == nil || row.BBLower == nil {
		t.Fatalf("bollinger undefined at row 24")
	}
	if !almostEqual(*row.BBMiddle, 75) || !almostEqual(*row.BBUpper, 75) || !almostEqual(*row.BBLower, 75) {
		t.Errorf("flat series bands = %v/%v/%v, want all 75", *row.BBLower, *row.BBMiddle, *row.BBUpper)
	}
}

func TestComputeBollingerPopulationSigma(t *testing.T) {
	// 19 flat values then one outlier: mean and population sigma are exact.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	closes[19] = 120
	table := NewEngine().Compute(seriesFromCloses(closes))
	row := table.Rows[19]

	mean := 101.0
	variance := (19*(100.0-mean)*(100.0-mean) + (120.0-mean)*(120.0-mean)) / 20.0
	sigma := math.Sqrt(variance)

	if !almostEqual(*row.BBMiddle, mean) {
		t.Errorf("BBMiddle = %v, want %v", *row.BBMiddle, mean)
	}
	if !almostEqual(*row.BBUpper, mean+2*sigma) {
		t.Errorf("BBUpper = %v, want %v", *row.BBUpper, mean+2*sigma)
	}
}

func TestComputeVolatilityConstantGrowth(t *testing.T) {
	// Geometric closes give identical daily returns, so sample sigma is 0.
	closes := make([]float64, 30)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.01
	}
	table := NewEngine().Compute(seriesFromCloses(closes))
	row := table.Rows[29]

	if row.Volatility == nil {
		t.Fatalf("volatility undefined at row 29")
	}
	if !almostEqual(*row.Volatility, 0) {
		t.Errorf("volatility = %v, want 0", *row.Volatility)
	}
}

func TestComputeIsPure(t *testing.T) {
	series := seriesFromCloses(linearCloses(40))
	e := NewEngine()
	a := e.Compute(series)
	b := e.Compute(series)

	if len(a.Rows) != len(b.Rows) {
		t.Fatalf("row counts differ")
	}
	for i := range a.Rows {
		if (a.Rows[i].SMA20 == nil) != (b.Rows[i].SMA20 == nil) {
			t.Fatalf("row %d definedness differs between runs", i)
		}
		if a.Rows[i].SMA20 != nil && !almostEqual(*a.Rows[i].SMA20, *b.Rows[i].SMA20) {
			t.Fatalf("row %d SMA20 differs between runs", i)
		}
	}
}
