//go:build wireinject
// +build wireinject

package di

import (
	"MarketLens/pkg/config"
	"MarketLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCacheBackend,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideBarArchive,
		ProvideEventPublisher,

		// Services and use cases
		ProvideGateway,
		ProvideScheduler,
		ProvideCacheStore,
		ProvideMarketService,

		// HTTP surface
		ProvideMarketHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
