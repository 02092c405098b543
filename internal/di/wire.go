//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"AlertEngine/pkg/config"
	"AlertEngine/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup closes infrastructure clients and must run after the app stops.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDatabase,
		ProvideRedisCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRateLimiter,
		ProvideTokenSource,
		ProvidePriceClient,

		// Repositories
		ProvideStore,
		ProvideRuleStore,
		ProvideCache,
		ProvideCycleLock,
		ProvideRuleState,
		ProvideHistoricalSource,
		ProvideNotificationSink,

		// Evaluation
		ProvideRegistry,
		ProvideCatalog,
		ProvideDispatcher,

		// Use cases
		ProvideGroupFetcher,
		ProvideRuleRunner,
		ProvideEventSink,
		ProvideOrchestrator,
		ProvideScheduler,
		ProvideWatchlistHandler,

		// Delivery
		ProvideOpsHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
