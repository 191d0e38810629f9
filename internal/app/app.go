package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cyclemap/internal/config"
	"cyclemap/internal/logger"
	"cyclemap/internal/transport/web"
)

// App 负责应用级编排：加载配置 → 初始化依赖 → 启动 Web 与实时服务。
type App struct {
	cfg *config.Config
	svc *Service
	web *web.Server
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 Web 服务与实时数据服务，任一出错或 ctx 取消则整体退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.svc == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.web != nil {
		group.Go(func() error {
			if err := a.web.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Warnf("Web 服务停止: %v", err)
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		defer a.svc.Close()
		return a.svc.Run(ctx)
	})

	return group.Wait()
}
