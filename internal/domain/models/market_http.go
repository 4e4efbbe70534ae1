package models

// Requests for the market HTTP endpoints. Defined in domain for consistency and reuse.
// Symbols is a comma-separated list; empty means the configured universe.

type PricesRequest struct {
	Symbols string `query:"symbols" json:"symbols"`
}

type HistoryRequest struct {
	Symbols string `query:"symbols" json:"symbols"`
	Period  string `query:"period" json:"period" default:"3mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y"`
}

type IndicatorsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"3mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y"`
}

type SignalRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"3mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y"`
}

type CorrelationRequest struct {
	Symbols string `query:"symbols" json:"symbols"`
	Period  string `query:"period" json:"period" default:"3mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y"`
}

type VolatilityRequest struct {
	Symbols string `query:"symbols" json:"symbols"`
	Period  string `query:"period" json:"period" default:"3mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y"`
}

type FundamentalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type MoversRequest struct {
	Top int `query:"top" json:"top" default:"5" validate:"gte=1,lte=50"`
}

// HistoryResponse is the envelope for batch history queries.
type HistoryResponse struct {
	Series    map[string]PriceSeries `json:"series"`
	Failed    []SymbolFailure        `json:"failed,omitempty"`
	Freshness Freshness              `json:"freshness"`
}
