//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"cyclemap/internal/config"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config) (*App, error) {
	wire.Build(
		provideRowStore,
		provideHalvingSet,
		provideBinanceSource,
		provideChainSource,
		provideArchive,
		provideHub,
		provideRenderer,
		provideService,
		provideWebServer,
		provideApp,
	)
	return nil, nil
}
