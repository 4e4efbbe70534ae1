package indicator

import (
	"MarketLens/internal/domain/models"
)

// Evaluate derives the trading signal for the latest row of a table.
// Rules run in fixed precedence order, first match wins. A rule whose
// inputs are undefined never matches, so thin history degrades toward
// NEUTRAL instead of erroring.
func Evaluate(table models.IndicatorTable) models.SignalReport {
	report := models.SignalReport{
		Meta:  table.Meta,
		State: models.Neutral,
		Rule:  "no history",
	}

	row, ok := table.Latest()
	if !ok {
		return report
	}

	report.LastClose = row.Close
	report.AsOf = row.Timestamp

	last := row.Close

	// 1. Trend alignment above both moving averages.
	if row.SMA20 != nil && row.SMA50 != nil && last > *row.SMA20 && *row.SMA20 > *row.SMA50 {
		report.State = models.BullishStrong
		report.Rule = "close above sma20 above sma50"
		return report
	}

	// 2. Trend alignment below both moving averages.
	if row.SMA20 != nil && row.SMA50 != nil && last < *row.SMA20 && *row.SMA20 < *row.SMA50 {
		report.State = models.BearishStrong
		report.Rule = "close below sma20 below sma50"
		return report
	}

	// 3. Oversold, contrarian buy.
	if row.RSI14 != nil && *row.RSI14 < 30 {
		report.State = models.BullishModerate
		report.Rule = "rsi oversold"
		return report
	}

	// 4. Overbought.
	if row.RSI14 != nil && *row.RSI14 > 70 {
		report.State = models.BearishModerate
		report.Rule = "rsi overbought"
		return report
	}

	// 5. MACD relative to its signal line.
	if row.MACD != nil && row.MACDSignal != nil {
		if *row.MACD > *row.MACDSignal {
			report.State = models.BullishModerate
			report.Rule = "macd above signal"
			return report
		}
		if *row.MACD < *row.MACDSignal {
			report.State = models.BearishModerate
			report.Rule = "macd below signal"
			return report
		}
	}

	// 6. Nothing decisive.
	report.Rule = "no rule matched"
	return report
}
