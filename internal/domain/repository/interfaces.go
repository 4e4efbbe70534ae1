package repository

import (
	"context"
	"time"

	"MarketLens/internal/domain/models"
)

// Gateway fetches one symbol's price history from the upstream provider.
// Exactly one upstream call per invocation; retries belong to the scheduler.
// Failures are always *models.FetchError.
type Gateway interface {
	Fetch(ctx context.Context, symbol string, period models.Period) (models.PriceSeries, error)
}

// Metrics is the observability port shared by the core components.
type Metrics interface {
	RecordCacheLookup(kind string, source models.CacheSource)
	RecordFetch(kind string, err *models.FetchError)
	RecordFetchDuration(seconds float64)
	RecordLastPrice(symbol string, price float64)
	RecordSweep(removed int)
}

// BarArchive durably keeps fetched OHLCV rows for later historical queries.
// Writes are best-effort: archive failures must never fail a fetch.
type BarArchive interface {
	InsertSeries(ctx context.Context, series models.PriceSeries) error
	LatestBar(ctx context.Context, symbol string) (models.PricePoint, bool, error)
}

// EventPublisher emits signal evaluations and fetch-batch outcomes to the
// outward event feed consumed by the automation layers.
type EventPublisher interface {
	PublishSignal(ctx context.Context, report models.SignalReport) error
	PublishFetchBatch(ctx context.Context, period models.Period, ok, failed int, at time.Time) error
	Close() error
}
