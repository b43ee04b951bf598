//go:build wireinject
// +build wireinject

package di

import (
	"MoexPull/pkg/config"
	"MoexPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Feed and storage
		ProvideFeed,
		ProvideHistoryStore,
		ProvideSearchCache,
		ProvideSecuritiesDirectory,

		// Use cases
		ProvideHistoryLoader,
		ProvideHistoryUseCase,

		// HTTP surface
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
