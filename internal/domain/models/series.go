package models

import (
	"fmt"
	"time"
)

// Period is an upstream-style history range ("5d", "1mo", "3mo", "6mo", "1y", "2y").
type Period string

const (
	Period5D  Period = "5d"
	Period1M  Period = "1mo"
	Period3M  Period = "3mo"
	Period6M  Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
)

// NormalizePeriod maps free-form input to a supported period, defaulting to 3mo.
func NormalizePeriod(s string) Period {
	switch Period(s) {
	case Period5D, Period1M, Period3M, Period6M, Period1Y, Period2Y:
		return Period(s)
	default:
		return Period3M
	}
}

// PricePoint is one OHLCV record at trading-day granularity.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// SymbolMeta carries the configured metadata for one ticker.
type SymbolMeta struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Currency string `json:"currency"`
}

// PriceSeries is an ordered OHLCV history for exactly one symbol.
// Timestamps are strictly increasing. A series with zero points is valid
// (the fetch succeeded but returned nothing) and is distinct from a series
// that was never fetched, which is represented by absence from a result map.
type PriceSeries struct {
	Meta   SymbolMeta   `json:"meta"`
	Period Period       `json:"period"`
	Points []PricePoint `json:"points"`
}

// Validate checks the strictly-increasing timestamp invariant.
func (s *PriceSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Timestamp.After(s.Points[i-1].Timestamp) {
			return fmt.Errorf("series %s: timestamps not strictly increasing at index %d", s.Meta.Symbol, i)
		}
	}
	return nil
}

// Closes extracts the close column.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Last returns the most recent point, or false when the series is empty.
func (s *PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
