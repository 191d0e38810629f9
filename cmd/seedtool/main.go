package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"cyclemap/internal/config"
	"cyclemap/internal/gateway/binance"
	"cyclemap/internal/gateway/blockchain"
	"cyclemap/internal/gateway/database"
	"cyclemap/internal/logger"
	"cyclemap/internal/market"
	"cyclemap/internal/seed"
)

// 种子维护工具：
//   seedtool                 抓取上个自然月并写入种子文件
//   seedtool -target 2024-04 抓取指定月份
//   seedtool -sync-all       blockchain.info 月度序列 + Binance 全量月线合并重建
//   seedtool -daemon         常驻，每月 1 日零点自动执行月度更新
//
// 每次写种子时同步写入 SQLite 归档（配置了 archive_path 才启用）。

// Binance 现货月线最早从 2017-08 开始
var binanceHistoryStart = time.Date(2017, time.August, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func main() {
	var (
		cfgPath = flag.String("config", "configs/config.toml", "配置文件路径")
		target  = flag.String("target", "", "目标月份（YYYY-MM），默认上个自然月")
		syncAll = flag.Bool("sync-all", false, "全量重建种子")
		daemon  = flag.Bool("daemon", false, "常驻模式：每月自动更新")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	t := newTool(cfg)
	defer t.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *syncAll:
		err = t.runSyncAll(ctx)
	case *daemon:
		err = t.runDaemon(ctx)
	default:
		err = t.runMonthly(ctx, *target)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatalf("执行失败: %v", err)
	}
}

type tool struct {
	cfg     *config.Config
	source  *binance.Source
	chain   *blockchain.Source
	archive *database.Archive
}

func newTool(cfg *config.Config) *tool {
	t := &tool{
		cfg: cfg,
		source: binance.NewSource(binance.Config{
			Symbol:      cfg.Market.Symbol,
			RESTBaseURL: cfg.Market.RESTBaseURL,
		}),
		chain: blockchain.NewSource(),
	}
	if cfg.Seed.ArchivePath != "" {
		archive, err := database.NewArchive(cfg.Seed.ArchivePath)
		if err != nil {
			logger.Warnf("打开归档失败（忽略）: %v", err)
		} else {
			t.archive = archive
		}
	}
	return t
}

func (t *tool) close() {
	if t.archive != nil {
		_ = t.archive.Close()
	}
}

// runMonthly 抓取单个月份并合入种子文件
func (t *tool) runMonthly(ctx context.Context, target string) error {
	month := target
	if month == "" {
		month = market.PreviousMonthKey(time.Now())
	}
	row, err := t.source.FetchMonth(ctx, month)
	if err != nil {
		return err
	}

	rows := t.loadSeedRows()
	merged := mergeRows(rows, []market.MonthRecord{*row})
	if err := t.writeSeed(ctx, merged); err != nil {
		return err
	}
	fmt.Printf("✓ 已更新月份 %s（open=%.2f close=%.2f）\n", month, row.Open, row.Close)
	return nil
}

// runSyncAll 全量重建：blockchain.info 打底，Binance 同月覆盖，剔除当前未收月
func (t *tool) runSyncAll(ctx context.Context) error {
	chainRows, err := t.chain.MonthlyMarketPrice(ctx)
	if err != nil {
		return fmt.Errorf("拉取 blockchain.info 失败: %w", err)
	}
	binanceRows, err := t.source.MonthHistory(ctx, binanceHistoryStart)
	if err != nil {
		return fmt.Errorf("拉取 Binance 历史失败: %w", err)
	}

	merged := mergeRows(chainRows, binanceRows)
	nowMonth := market.NowMonthKey()
	kept := merged[:0]
	for _, row := range merged {
		if row.MonthKey < nowMonth {
			row.IsClosed = true
			kept = append(kept, row)
		}
	}
	if err := t.writeSeed(ctx, kept); err != nil {
		return err
	}
	fmt.Printf("✓ 全量同步完成：%d 条\n", len(kept))
	return nil
}

// runDaemon 常驻：每月 1 日 UTC 零点执行一次月度更新
func (t *tool) runDaemon(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc("0 0 1 * *", func() {
		if err := t.runMonthly(ctx, ""); err != nil {
			logger.Errorf("月度更新失败: %v", err)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	logger.Infof("✓ 种子守护已启动（每月 1 日 00:00 UTC 更新）")
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// loadSeedRows 读取现有种子；文件不存在视为空集
func (t *tool) loadSeedRows() []market.MonthRecord {
	rows, err := seed.Load(t.cfg.Seed.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("读取现有种子失败，按空集处理: %v", err)
		}
		return nil
	}
	return rows
}

func (t *tool) writeSeed(ctx context.Context, rows []market.MonthRecord) error {
	if err := seed.Write(t.cfg.Seed.Path, t.cfg.Market.Symbol, rows); err != nil {
		return fmt.Errorf("写种子文件失败: %w", err)
	}
	if t.archive != nil {
		if err := t.archive.UpsertRows(ctx, rows); err != nil {
			logger.Warnf("写归档失败（忽略）: %v", err)
		}
	}
	return nil
}

// mergeRows 按月份键合并，后一批覆盖前一批，结果升序
func mergeRows(base, override []market.MonthRecord) []market.MonthRecord {
	byKey := make(map[string]market.MonthRecord, len(base)+len(override))
	for _, row := range base {
		byKey[row.MonthKey] = row
	}
	for _, row := range override {
		byKey[row.MonthKey] = row
	}
	out := make([]market.MonthRecord, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthKey < out[j].MonthKey })
	return out
}
