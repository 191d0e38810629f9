package app

import (
	"context"
	"sync"
	"time"

	"cyclemap/internal/config"
	"cyclemap/internal/gateway/binance"
	"cyclemap/internal/gateway/blockchain"
	"cyclemap/internal/gateway/database"
	"cyclemap/internal/logger"
	"cyclemap/internal/market"
	"cyclemap/internal/seed"
	"cyclemap/internal/store"
	"cyclemap/internal/view"
)

// 预估的下次减半月份；blockchair 接口给出更准的月份时会被替换
const estimatedHalvingKey = "2028-04"

// Service 顶层协调者：持有记录仓库、渲染状态与各数据源，
// 串起「种子加载 → 首帧渲染 → 快照回填 → 实时流」的完整链路。
// 所有可变状态都在这里显式持有，不依赖包级单例。
type Service struct {
	cfg      *config.Config
	rows     store.RowStore
	halving  *market.HalvingSet
	renderer view.Renderer
	source   *binance.Source
	chain    *blockchain.Source
	archive  *database.Archive // 可为 nil（未配置归档）

	stream *binance.StreamClient
	sched  *view.Scheduler

	mu          sync.Mutex
	nowMonthKey string
	rendered    bool
}

func NewService(
	cfg *config.Config,
	rows store.RowStore,
	halving *market.HalvingSet,
	renderer view.Renderer,
	source *binance.Source,
	chain *blockchain.Source,
	archive *database.Archive,
) *Service {
	s := &Service{
		cfg:         cfg,
		rows:        rows,
		halving:     halving,
		renderer:    renderer,
		source:      source,
		chain:       chain,
		archive:     archive,
		nowMonthKey: market.NowMonthKey(),
	}
	s.sched = view.NewScheduler(time.Duration(cfg.Render.DebounceMS)*time.Millisecond, func() {
		s.rebuild(false)
	})
	s.stream = binance.NewStreamClient(binance.Config{
		Symbol:    cfg.Market.Symbol,
		WSBaseURL: cfg.Market.WSBaseURL,
	}, binance.StreamCallbacks{
		OnTradePrice: s.onTradePrice,
		OnMonthKline: s.onMonthKline,
		OnStatus:     func(msg string) { logger.Infof("WS 状态: %s", msg) },
		OnError:      func(msg string) { logger.Warnf("WS %s", msg) },
	})
	return s
}

// Run 启动服务：历史数据就绪后渲染首帧，快照与减半元数据异步补齐，
// 实时流持续驱动增量渲染，直到 ctx 取消。
func (s *Service) Run(ctx context.Context) error {
	s.loadHistory(ctx)
	s.rebuild(false)

	go s.refreshSnapshot(ctx)
	go s.refreshHalving(ctx)
	s.stream.Start()

	<-ctx.Done()
	return nil
}

// Close 释放 Service 持有的资源；幂等
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.stream != nil {
		s.stream.Close()
	}
	if s.archive != nil {
		_ = s.archive.Close()
	}
}

func (s *Service) matrixConfig() market.MatrixConfig {
	return market.MatrixConfig{
		StartYear:  s.cfg.Matrix.StartYear,
		EndYear:    s.cfg.Matrix.EndYear,
		AnchorYear: s.cfg.Matrix.CycleAnchorYear,
	}
}

// Frame 从仓库当前内容从头重算一帧（纯函数，无增量状态）
func (s *Service) Frame(ctx context.Context) (view.Frame, error) {
	rows, err := s.rows.Values(ctx)
	if err != nil {
		return view.Frame{}, err
	}
	yearRows := market.BuildYearMatrix(rows, s.matrixConfig())
	return view.Frame{
		YearRows:    yearRows,
		Bottom:      market.ComputeBottomStats(yearRows),
		NowMonthKey: s.nowMonthKey,
	}, nil
}

// Rows 当前仓库内容（图表页使用）
func (s *Service) Rows(ctx context.Context) ([]market.MonthRecord, error) {
	return s.rows.Values(ctx)
}

// loadHistory 加载历史月度数据：种子文件优先，失败时退回 SQLite 归档，
// 再失败则从空集合启动（页面照常渲染全空矩阵）。
func (s *Service) loadHistory(ctx context.Context) {
	rows, err := seed.Load(s.cfg.Seed.Path)
	if err != nil {
		logger.Warnf("加载种子失败: %v", err)
		if s.archive != nil {
			if archived, aerr := s.archive.LoadRows(ctx); aerr == nil {
				rows = archived
				logger.Infof("✓ 使用归档数据 %d 条", len(rows))
			} else {
				logger.Warnf("加载归档失败: %v", aerr)
			}
		}
	}
	for _, row := range rows {
		if err := s.rows.Upsert(ctx, row); err != nil {
			logger.Warnf("写入月记录失败: %v", err)
		}
	}
	logger.Infof("✓ 历史数据加载完成，共 %d 条", len(rows))
}

// refreshSnapshot 异步补当月快照；失败静默跳过（实时流会很快补上）
func (s *Service) refreshSnapshot(ctx context.Context) {
	rec, err := s.source.CurrentMonthSnapshot(ctx, s.nowMonthKey)
	if err != nil {
		logger.Debugf("当月快照获取失败（忽略）: %v", err)
		return
	}
	if rec == nil {
		return
	}
	if err := s.rows.Upsert(ctx, *rec); err != nil {
		logger.Warnf("写入快照失败: %v", err)
		return
	}
	s.rebuild(false)
}

// refreshHalving 用减半倒计时接口修正减半月份集合；变化时强制全量重渲染
func (s *Service) refreshHalving(ctx context.Context) {
	key, err := s.chain.NextHalvingMonth(ctx)
	if err != nil {
		logger.Debugf("减半月份获取失败（忽略）: %v", err)
		return
	}
	changed := false
	if key != estimatedHalvingKey && s.halving.Has(estimatedHalvingKey) {
		if s.halving.Remove(estimatedHalvingKey) {
			changed = true
		}
	}
	if s.halving.Add(key) {
		changed = true
	}
	if changed {
		logger.Infof("✓ 减半月份更新为 %s，触发全量重渲染", key)
		s.rebuild(true)
	}
}

// onTradePrice 实时成交价：绕过调度器直接渲染，不写仓库
func (s *Service) onTradePrice(price float64) {
	s.renderer.RenderSpotPrice(price)
	row, ok, err := s.rows.Get(context.Background(), s.nowMonthKey)
	if err != nil || !ok || row.Open <= 0 {
		return
	}
	s.renderer.RenderMonthChange((price - row.Open) / row.Open * 100)
}

// onMonthKline 月线事件：整条覆盖写入（不按字段合并），再预约一次合并渲染
func (s *Service) onMonthKline(rec market.MonthRecord) {
	if err := s.rows.Upsert(context.Background(), rec); err != nil {
		logger.Warnf("写入月线失败: %v", err)
		return
	}
	s.sched.Schedule()
}

// rebuild 重算一帧并交给渲染方：首帧或强制刷新走全量，其余走补丁
func (s *Service) rebuild(force bool) {
	frame, err := s.Frame(context.Background())
	if err != nil {
		logger.Warnf("构建渲染帧失败: %v", err)
		return
	}
	s.mu.Lock()
	full := !s.rendered || force
	s.rendered = true
	s.mu.Unlock()

	if full {
		s.renderer.RenderFull(frame)
	} else {
		s.renderer.PatchCells(frame)
	}
}
