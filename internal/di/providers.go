package di

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/handler/api"
	internalrepo "MarketLens/internal/repository"
	"MarketLens/internal/service/fetch"
	"MarketLens/internal/service/yahoo"
	"MarketLens/internal/usecase"
	pkgcache "MarketLens/pkg/cache"
	pkgch "MarketLens/pkg/clickhouse"
	"MarketLens/pkg/config"
	xhttp "MarketLens/pkg/http"
	pkgkafka "MarketLens/pkg/kafka"
	applogger "MarketLens/pkg/logger"
	"MarketLens/pkg/metrics"
	"MarketLens/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCacheBackend selects the snapshot store from config.
func ProvideCacheBackend(cfg *config.Config) (pkgcache.Store, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return pkgcache.NewMemoryStore(), nil
	case "redis":
		store, err := pkgcache.NewRedisStore(
			pkgcache.WithRedisAddr(cfg.Redis.Addr),
			pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			pkgcache.WithRedisRetention(cfg.Cache.Retention),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return store, nil
	default:
		store, err := pkgcache.NewFSStore(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("fs cache: %w", err)
		}
		return store, nil
	}
}

// ProvideCacheStore builds the tiered cache with per-kind TTLs.
func ProvideCacheStore(cfg *config.Config, store pkgcache.Store, m domrepo.Metrics, l *applogger.Logger) *usecase.CacheStore {
	ttl := map[string]time.Duration{
		usecase.KindQuote:        cfg.Cache.TTL.Quote,
		usecase.KindHistory:      cfg.Cache.TTL.History,
		usecase.KindIndicators:   cfg.Cache.TTL.Indicators,
		usecase.KindAnalytics:    cfg.Cache.TTL.Analytics,
		usecase.KindFundamentals: cfg.Cache.TTL.Fundamentals,
	}
	return usecase.NewCacheStore(store, ttl,
		usecase.WithCacheMetrics(m),
		usecase.WithCacheLogger(l),
	)
}

// ProvideGateway creates the upstream chart gateway.
func ProvideGateway(cfg *config.Config, l *applogger.Logger) domrepo.Gateway {
	meta := make(map[string]models.SymbolMeta, len(cfg.Universe))
	for _, s := range cfg.Universe {
		meta[s.Symbol] = models.SymbolMeta{
			Symbol:   s.Symbol,
			Name:     s.Name,
			Sector:   s.Sector,
			Currency: s.Currency,
		}
	}
	return yahoo.New(
		yahoo.WithBaseURL(cfg.Provider.BaseURL),
		yahoo.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Provider.Timeout))),
		yahoo.WithRateLimit(cfg.Provider.RateCapacity, cfg.Provider.RatePerSec),
		yahoo.WithSymbolMeta(meta),
		yahoo.WithLogger(l),
	)
}

// ProvideScheduler creates the bounded fetch scheduler.
func ProvideScheduler(cfg *config.Config, gw domrepo.Gateway, m domrepo.Metrics, l *applogger.Logger) *fetch.Scheduler {
	return fetch.New(gw,
		fetch.WithWorkers(cfg.Scheduler.Workers),
		fetch.WithPerSymbolTimeout(cfg.Scheduler.PerSymbolTimeout),
		fetch.WithRetry(cfg.Scheduler.MaxAttempts, cfg.Scheduler.RetryBackoff),
		fetch.WithMetrics(m),
		fetch.WithLogger(l),
	)
}

// ProvideClickHouseClient creates a ClickHouse client when the archive is
// enabled; returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, 30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.BarArchiveSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideBarArchive creates the ClickHouse bar archive, nil when disabled.
func ProvideBarArchive(ch *pkgch.Client, l *applogger.Logger) domrepo.BarArchive {
	if ch == nil {
		return nil
	}
	archive := internalrepo.NewCHBarArchive(ch)
	archive.SetLogger(l)
	return archive
}

// ProvideKafkaProducer creates a Kafka producer when enabled; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the signal/fetch event feed, nil when
// the producer is absent.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.SignalTopic, cfg.Kafka.FetchTopic)
}

// ProvideMarketService assembles the query surface use case.
func ProvideMarketService(
	cfg *config.Config,
	cacheStore *usecase.CacheStore,
	scheduler *fetch.Scheduler,
	archive domrepo.BarArchive,
	events domrepo.EventPublisher,
	l *applogger.Logger,
) *usecase.MarketService {
	universe := make([]models.SymbolMeta, len(cfg.Universe))
	for i, s := range cfg.Universe {
		universe[i] = models.SymbolMeta{
			Symbol:   s.Symbol,
			Name:     s.Name,
			Sector:   s.Sector,
			Currency: s.Currency,
		}
	}

	opts := []usecase.MarketServiceOption{usecase.WithMarketLogger(l)}
	if archive != nil {
		opts = append(opts, usecase.WithBarArchive(archive))
	}
	if events != nil {
		opts = append(opts, usecase.WithEventPublisher(events))
	}
	return usecase.NewMarketService(cacheStore, scheduler, universe, opts...)
}

// ProvideMarketHandler creates the Echo HTTP handler.
func ProvideMarketHandler(l *applogger.Logger, svc *usecase.MarketService) *api.MarketHandler {
	return api.NewMarketHandler(l, svc)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.MarketHandler,
	cacheStore *usecase.CacheStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, handler, cacheStore, producer, chClient)
}
