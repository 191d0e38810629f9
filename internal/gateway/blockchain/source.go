package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"cyclemap/internal/market"
)

// 中文说明：
// 两个链上数据补充源：
// 1) blockchain.info 全量日线市价 → 聚合为月度开收盘（早期无 Binance 数据的年份回填）；
// 2) blockchair 减半倒计时 → 推导下一次减半所在月份。

const (
	defaultInfoBaseURL  = "https://api.blockchain.info"
	defaultChairBaseURL = "https://api.blockchair.com"
)

type Source struct {
	InfoBaseURL  string
	ChairBaseURL string
	Client       *http.Client
}

func NewSource() *Source {
	return &Source{
		InfoBaseURL:  defaultInfoBaseURL,
		ChairBaseURL: defaultChairBaseURL,
		Client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// MonthlyMarketPrice 拉取全量市价序列并按月聚合：
// 每月第一条价格作为 open、最后一条作为 close，非法点位静默跳过
func (s *Source) MonthlyMarketPrice(ctx context.Context) ([]market.MonthRecord, error) {
	url := s.InfoBaseURL + "/charts/market-price?timespan=all&format=json&cors=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blockchain.info market-price error: %s", resp.Status)
	}

	var body struct {
		Values []struct {
			X float64 `json:"x"` // 秒级时间戳
			Y float64 `json:"y"` // 价格
		} `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	monthly := make(map[string]*market.MonthRecord)
	var order []string
	for _, v := range body.Values {
		tsMs := int64(v.X) * 1000
		price := v.Y
		if tsMs <= 0 || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			continue
		}
		key := market.MonthKeyFromMillis(tsMs)
		if rec, ok := monthly[key]; ok {
			rec.Close = price
		} else {
			monthly[key] = &market.MonthRecord{
				MonthKey: key,
				Open:     price,
				Close:    price,
				Source:   market.SourceBlockchainInfo,
				IsClosed: true,
			}
			order = append(order, key)
		}
	}

	sort.Strings(order)
	out := make([]market.MonthRecord, 0, len(order))
	for _, key := range order {
		out = append(out, *monthly[key])
	}
	return out, nil
}

// NextHalvingMonth 查询下一次减半的预计月份键
func (s *Source) NextHalvingMonth(ctx context.Context) (string, error) {
	url := s.ChairBaseURL + "/tools/halvening"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("blockchair halvening error: %s", resp.Status)
	}

	var body struct {
		Data struct {
			Bitcoin struct {
				HalveningTime string `json:"halvening_time"`
			} `json:"bitcoin"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	raw := strings.TrimSpace(body.Data.Bitcoin.HalveningTime)
	if raw == "" {
		return "", fmt.Errorf("halvening_time 缺失")
	}
	// 接口返回 "YYYY-MM-DD HH:MM:SS"（UTC）
	t, err := time.Parse("2006-01-02 15:04:05", raw)
	if err != nil {
		return "", fmt.Errorf("解析 halvening_time 失败: %w", err)
	}
	return t.UTC().Format("2006-01"), nil
}
