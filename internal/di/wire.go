//go:build wireinject
// +build wireinject

package di

import (
	"QuotePulse/pkg/config"
	"QuotePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideClickHouseClient,

		// Repositories
		ProvideBus,
		ProvideRegistry,
		ProvideQuoteCache,
		ProvideInstrumentStore,
		ProvideHistorySink,

		// Providers and verification
		ProvideQuoteProviders,
		ProvideSearcher,
		ProvideVerifier,

		// Use cases
		ProvideQuoteService,
		ProvideFanout,
		ProvideRefresher,

		// HTTP surface
		ProvideQuoteHandler,
		ProvideWSHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
