package binance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"cyclemap/internal/market"
)

// Config 行情源配置
type Config struct {
	Symbol        string
	RESTBaseURL   string // 例如 https://api.binance.com
	WSBaseURL     string // 例如 wss://stream.binance.com:9443
	SnapshotLimit int
}

// Source 封装 Binance 现货 REST 接口（月线拉取）
type Source struct {
	cfg    Config
	client *gobinance.Client
}

func NewSource(cfg Config) *Source {
	if cfg.SnapshotLimit <= 0 {
		cfg.SnapshotLimit = 2
	}
	client := gobinance.NewClient("", "")
	if cfg.RESTBaseURL != "" {
		client.BaseURL = cfg.RESTBaseURL
	}
	return &Source{cfg: cfg, client: client}
}

// CurrentMonthSnapshot 拉取最近数根 1M K 线，返回与 nowMonthKey 匹配的那条；
// 无匹配时退回最新一条；结果为空返回 nil。单次请求，不重试。
func (s *Source) CurrentMonthSnapshot(ctx context.Context, nowMonthKey string) (*market.MonthRecord, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(s.cfg.Symbol).
		Interval("1M").
		Limit(s.cfg.SnapshotLimit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("拉取当月快照失败: %w", err)
	}
	return pickSnapshot(normalizeKlines(klines), nowMonthKey), nil
}

// pickSnapshot 选当月记录；无匹配取最新一条；空集返回 nil
func pickSnapshot(rows []market.MonthRecord, nowMonthKey string) *market.MonthRecord {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].MonthKey == nowMonthKey {
			return &rows[i]
		}
	}
	return &rows[len(rows)-1]
}

// FetchMonth 拉取指定月份的 1M K 线（按月初/下月初毫秒时间戳圈定范围）
func (s *Source) FetchMonth(ctx context.Context, monthKey string) (*market.MonthRecord, error) {
	start, err := market.MonthStartMillis(monthKey)
	if err != nil {
		return nil, err
	}
	end, err := market.NextMonthStartMillis(monthKey)
	if err != nil {
		return nil, err
	}
	klines, err := s.client.NewKlinesService().
		Symbol(s.cfg.Symbol).
		Interval("1M").
		StartTime(start).
		EndTime(end - 1).
		Limit(2).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("拉取月线失败: %w", err)
	}
	for _, row := range normalizeKlines(klines) {
		if row.MonthKey == monthKey {
			row.IsClosed = true
			return &row, nil
		}
	}
	return nil, fmt.Errorf("Binance 未返回目标月份数据: %s", monthKey)
}

// MonthHistory 拉取自 startMillis 起的全部月线（上限 1000 根），用于全量同步
func (s *Source) MonthHistory(ctx context.Context, startMillis int64) ([]market.MonthRecord, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(s.cfg.Symbol).
		Interval("1M").
		StartTime(startMillis).
		EndTime(time.Now().UnixMilli()).
		Limit(1000).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("拉取历史月线失败: %w", err)
	}
	return normalizeKlines(klines), nil
}

// normalizeKlines 把原始 K 线转为月记录：月份键取开盘时间、容忍未知字段、
// 数值非法的行静默丢弃，结果按月份键升序
func normalizeKlines(klines []*gobinance.Kline) []market.MonthRecord {
	nowMs := time.Now().UnixMilli()
	out := make([]market.MonthRecord, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		open, err1 := strconv.ParseFloat(k.Open, 64)
		close, err2 := strconv.ParseFloat(k.Close, 64)
		if err1 != nil || err2 != nil || !isFinite(open) || !isFinite(close) {
			continue
		}
		out = append(out, market.MonthRecord{
			MonthKey: market.MonthKeyFromMillis(k.OpenTime),
			Open:     open,
			Close:    close,
			Source:   market.SourceBinance,
			IsClosed: k.CloseTime <= nowMs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthKey < out[j].MonthKey })
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
