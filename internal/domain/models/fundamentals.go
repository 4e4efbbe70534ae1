package models

// FundamentalsReport is the slow-moving per-symbol profile: trailing
// returns over fixed windows plus annualized volatility, derived from a
// year of daily bars. Windows with insufficient history are nil, never
// zero-filled.
type FundamentalsReport struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Sector           string    `json:"sector"`
	Currency         string    `json:"currency"`
	LastClose        float64   `json:"last_close"`
	Change1M         *float64  `json:"change_1m,omitempty"`
	Change6M         *float64  `json:"change_6m,omitempty"`
	Change1Y         *float64  `json:"change_1y,omitempty"`
	AnnualVolatility *float64  `json:"annual_volatility,omitempty"`
	Freshness        Freshness `json:"freshness"`
}
