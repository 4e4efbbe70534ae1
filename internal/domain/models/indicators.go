package models

// IndicatorRow extends one PricePoint with computed technical fields.
// A nil pointer means the field is undefined for that row (the lookback
// window is not yet filled); undefined is never represented as zero.
type IndicatorRow struct {
	PricePoint

	SMA20 *float64 `json:"sma20,omitempty"`
	SMA50 *float64 `json:"sma50,omitempty"`
	EMA12 *float64 `json:"ema12,omitempty"`
	EMA26 *float64 `json:"ema26,omitempty"`

	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	MACDHist   *float64 `json:"macd_hist,omitempty"`

	RSI14 *float64 `json:"rsi14,omitempty"`

	BBMiddle *float64 `json:"bb_middle,omitempty"`
	BBUpper  *float64 `json:"bb_upper,omitempty"`
	BBLower  *float64 `json:"bb_lower,omitempty"`

	DailyReturn *float64 `json:"daily_return,omitempty"`
	// Volatility is the annualized rolling volatility of daily returns.
	Volatility *float64 `json:"volatility,omitempty"`
}

// IndicatorTable is the indicator view of one symbol's series.
type IndicatorTable struct {
	Meta   SymbolMeta     `json:"meta"`
	Period Period         `json:"period"`
	Rows   []IndicatorRow `json:"rows"`
}

// Latest returns the most recent row, or false when the table is empty.
func (t *IndicatorTable) Latest() (IndicatorRow, bool) {
	if len(t.Rows) == 0 {
		return IndicatorRow{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}
