package models

import "time"

// Quote is the current-price snapshot for one symbol, derived from the two
// most recent daily bars.
type Quote struct {
	Meta      SymbolMeta `json:"meta"`
	Price     float64    `json:"price"`
	PrevClose float64    `json:"prev_close"`
	Change    float64    `json:"change"`
	ChangePct float64    `json:"change_pct"`
	Volume    float64    `json:"volume"`
	AsOf      time.Time  `json:"as_of"`
}

// CacheSource tells callers where a dataset came from.
type CacheSource string

const (
	SourceHit        CacheSource = "HIT"
	SourcePartialHit CacheSource = "PARTIAL_HIT"
	SourceMiss       CacheSource = "MISS"
)

// Freshness is the marker attached to every query-surface result.
type Freshness struct {
	Source    CacheSource `json:"source"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// SymbolFailure is the typed absence reason for one symbol in a batch result.
type SymbolFailure struct {
	Symbol string    `json:"symbol"`
	Kind   ErrorKind `json:"kind"`
	Msg    string    `json:"message"`
}

// QuoteBoard is the batch current-prices result: one entry per requested
// symbol, either in Quotes or in Failed, never silently missing.
type QuoteBoard struct {
	Quotes    []Quote         `json:"quotes"`
	Failed    []SymbolFailure `json:"failed,omitempty"`
	Freshness Freshness       `json:"freshness"`
}

// MarketSummary aggregates the quote board into a market overview.
type MarketSummary struct {
	TotalSymbols int       `json:"total_symbols"`
	Gainers      int       `json:"gainers"`
	Losers       int       `json:"losers"`
	Unchanged    int       `json:"unchanged"`
	TotalVolume  float64   `json:"total_volume"`
	TopGainer    *Quote    `json:"top_gainer,omitempty"`
	TopLoser     *Quote    `json:"top_loser,omitempty"`
	Trend        string    `json:"trend"`
	Freshness    Freshness `json:"freshness"`
}
