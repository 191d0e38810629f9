package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cyclemap/internal/app"
	"cyclemap/internal/config"
	"cyclemap/internal/logger"
)

// 入口程序：
// 1) 加载 TOML 配置（缺省路径 configs/config.toml，文件不存在走内置默认值）
// 2) 组装应用：记录仓库 + Binance 行情源 + Web 服务 + 页面推送
// 3) 启动：种子加载 → 首帧渲染 → 当月快照回填 → WS 实时流
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CYCLEMAP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，符号=%s，矩阵=%d..%d）",
		cfg.App.Env, cfg.Market.Symbol, cfg.Matrix.StartYear, cfg.Matrix.EndYear)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	if err := application.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("运行失败: %v", err)
	}
	logger.Infof("已退出")
}
