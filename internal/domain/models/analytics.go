package models

// CorrelationMatrix holds pairwise Pearson correlations of daily returns.
// Symbols are sorted ascending so the matrix layout is deterministic.
// A nil cell means the pair had no usable timestamp overlap; it is never
// zero-filled. The diagonal is exactly 1.0.
type CorrelationMatrix struct {
	Symbols   []string        `json:"symbols"`
	Values    [][]*float64    `json:"values"`
	Failed    []SymbolFailure `json:"failed,omitempty"`
	Freshness Freshness       `json:"freshness"`
}

// At returns the correlation of (a, b), or false when either symbol is
// missing or the cell is undefined.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, s := range m.Symbols {
		if s == a {
			ia = i
		}
		if s == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 || m.Values[ia][ib] == nil {
		return 0, false
	}
	return *m.Values[ia][ib], true
}

// VolatilityClass buckets annualized volatility.
type VolatilityClass string

const (
	VolatilityHigh   VolatilityClass = "HIGH"
	VolatilityMedium VolatilityClass = "MEDIUM"
	VolatilityLow    VolatilityClass = "LOW"
)

// VolatilityRank is one row of the volatility ranking, ordered descending
// by current volatility.
type VolatilityRank struct {
	Meta    SymbolMeta      `json:"meta"`
	Current float64         `json:"current"`
	Average float64         `json:"average"`
	Class   VolatilityClass `json:"class"`
}

// VolatilityRanking is the ranking plus its freshness marker.
type VolatilityRanking struct {
	Ranks     []VolatilityRank `json:"ranks"`
	Failed    []SymbolFailure  `json:"failed,omitempty"`
	Freshness Freshness        `json:"freshness"`
}

// MarketMovers holds the top-K gainers and losers by signed percent change.
type MarketMovers struct {
	Gainers   []Quote   `json:"gainers"`
	Losers    []Quote   `json:"losers"`
	Freshness Freshness `json:"freshness"`
}

// SectorPerformance is the mean percent change of one sector's symbols.
// Sectors with zero resolved symbols are omitted from the report.
type SectorPerformance struct {
	Sector  string   `json:"sector"`
	MeanPct float64  `json:"mean_pct"`
	Symbols []string `json:"symbols"`
}

// SectorReport is the full per-sector aggregation.
type SectorReport struct {
	Sectors   []SectorPerformance `json:"sectors"`
	Freshness Freshness           `json:"freshness"`
}
