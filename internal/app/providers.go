package app

import (
	"context"
	"os"

	"cyclemap/internal/config"
	"cyclemap/internal/gateway/binance"
	"cyclemap/internal/gateway/blockchain"
	"cyclemap/internal/gateway/database"
	"cyclemap/internal/logger"
	"cyclemap/internal/market"
	"cyclemap/internal/store"
	"cyclemap/internal/transport/web"
	"cyclemap/internal/view"
)

// wire 的 provider 集合：每个依赖一个构造函数，便于组装与测试替换。

func provideRowStore() store.RowStore {
	return store.NewMemoryRowStore()
}

func provideHalvingSet(cfg *config.Config) *market.HalvingSet {
	return market.NewHalvingSet(cfg.Matrix.HalvingMonths)
}

func provideBinanceSource(cfg *config.Config) *binance.Source {
	return binance.NewSource(binance.Config{
		Symbol:        cfg.Market.Symbol,
		RESTBaseURL:   cfg.Market.RESTBaseURL,
		WSBaseURL:     cfg.Market.WSBaseURL,
		SnapshotLimit: cfg.Market.SnapshotLimit,
	})
}

func provideChainSource() *blockchain.Source {
	return blockchain.NewSource()
}

func provideArchive(cfg *config.Config) (*database.Archive, error) {
	if cfg.Seed.ArchivePath == "" {
		return nil, nil
	}
	archive, err := database.NewArchive(cfg.Seed.ArchivePath)
	if err != nil {
		// 归档只是兜底，打不开时降级运行
		logger.Warnf("打开归档失败（忽略）: %v", err)
		return nil, nil
	}
	return archive, nil
}

func provideHub() *web.Hub {
	return web.NewHub()
}

func provideRenderer(cfg *config.Config, hub *web.Hub) view.Renderer {
	renderers := view.MultiRenderer{hub}
	if cfg.App.Console {
		renderers = append(renderers, view.NewConsoleRenderer(os.Stdout))
	}
	return renderers
}

func provideService(
	cfg *config.Config,
	rows store.RowStore,
	halving *market.HalvingSet,
	renderer view.Renderer,
	source *binance.Source,
	chain *blockchain.Source,
	archive *database.Archive,
) *Service {
	return NewService(cfg, rows, halving, renderer, source, chain, archive)
}

func provideWebServer(cfg *config.Config, hub *web.Hub, svc *Service) (*web.Server, error) {
	return web.NewServer(web.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Symbol:  cfg.Market.Symbol,
		Hub:     hub,
		FrameFn: func(ctx context.Context) (view.Frame, error) { return svc.Frame(ctx) },
		RowsFn:  func(ctx context.Context) ([]market.MonthRecord, error) { return svc.Rows(ctx) },
		Matrix: market.MatrixConfig{
			StartYear:  cfg.Matrix.StartYear,
			EndYear:    cfg.Matrix.EndYear,
			AnchorYear: cfg.Matrix.CycleAnchorYear,
		},
		SMAPeriod: cfg.Chart.SMAPeriod,
	})
}

func provideApp(cfg *config.Config, svc *Service, server *web.Server) *App {
	return &App{cfg: cfg, svc: svc, web: server}
}
