package models

import "time"

// SignalState is a categorical trading signal derived from the latest
// indicator row. It is recomputed on every evaluation and never persisted
// as authoritative state.
type SignalState string

const (
	BullishStrong   SignalState = "BULLISH_STRONG"
	BullishModerate SignalState = "BULLISH_MODERATE"
	BearishStrong   SignalState = "BEARISH_STRONG"
	BearishModerate SignalState = "BEARISH_MODERATE"
	Neutral         SignalState = "NEUTRAL"
)

// SignalReport is the evaluation result for one symbol.
type SignalReport struct {
	Meta      SymbolMeta  `json:"meta"`
	State     SignalState `json:"state"`
	Rule      string      `json:"rule"`
	LastClose float64     `json:"last_close"`
	AsOf      time.Time   `json:"as_of"`
}
