package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cyclemap/internal/config"
	"cyclemap/internal/gateway/binance"
	"cyclemap/internal/gateway/blockchain"
	"cyclemap/internal/market"
	"cyclemap/internal/seed"
	"cyclemap/internal/store"
	"cyclemap/internal/view"
)

// fakeRenderer 记录每次渲染调用，供断言全量/补丁路径
type fakeRenderer struct {
	mu      sync.Mutex
	fulls   []view.Frame
	patches []view.Frame
	prices  []float64
	changes []float64
}

func (r *fakeRenderer) RenderFull(f view.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fulls = append(r.fulls, f)
}
func (r *fakeRenderer) PatchCells(f view.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = append(r.patches, f)
}
func (r *fakeRenderer) RenderSpotPrice(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices = append(r.prices, p)
}
func (r *fakeRenderer) RenderMonthChange(pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, pct)
}

func (r *fakeRenderer) counts() (fulls, patches int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fulls), len(r.patches)
}

func (r *fakeRenderer) lastPatch() view.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patches[len(r.patches)-1]
}

func newTestService(t *testing.T, r view.Renderer) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Render.DebounceMS = 20
	cfg.Seed.Path = filepath.Join(t.TempDir(), "seed.json")
	return NewService(cfg, store.NewMemoryRowStore(), market.NewHalvingSet(cfg.Matrix.HalvingMonths),
		r, binance.NewSource(binance.Config{Symbol: cfg.Market.Symbol}), blockchain.NewSource(), nil)
}

func monthPct(f view.Frame, year, slot int) *float64 {
	for _, row := range f.YearRows {
		if row.Year == year {
			if m := row.Months[slot]; m != nil {
				return m.Pct
			}
			return nil
		}
	}
	return nil
}

// 月线事件整条覆盖：开盘也取事件值，涨跌幅按 (50000-40000)/40000 计
func TestService_KlineReplacesWholeRow(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestService(t, r)

	ctx := context.Background()
	if err := s.rows.Upsert(ctx, market.MonthRecord{
		MonthKey: "2024-01", Open: 40000, Close: 45000, Source: market.SourceSeed, IsClosed: true,
	}); err != nil {
		t.Fatal(err)
	}
	s.rebuild(false)
	if fulls, _ := r.counts(); fulls != 1 {
		t.Fatalf("first frame must be full, got %d fulls", fulls)
	}

	s.onMonthKline(market.MonthRecord{
		MonthKey: "2024-01", Open: 40000, Close: 50000, Source: market.SourceBinanceLive,
	})
	time.Sleep(100 * time.Millisecond)

	fulls, patches := r.counts()
	if fulls != 1 || patches != 1 {
		t.Fatalf("fulls = %d patches = %d", fulls, patches)
	}
	pct := monthPct(r.lastPatch(), 2024, 0)
	if pct == nil || *pct != 25 {
		t.Fatalf("pct = %v, want 25", pct)
	}
}

// 调度窗口内的多次月线事件合并为一次渲染
func TestService_KlineBurstCoalesced(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestService(t, r)
	s.rebuild(false)

	s.onMonthKline(market.MonthRecord{MonthKey: "2024-01", Open: 40000, Close: 41000})
	s.onMonthKline(market.MonthRecord{MonthKey: "2024-01", Open: 40000, Close: 42000})
	s.onMonthKline(market.MonthRecord{MonthKey: "2024-01", Open: 40000, Close: 43000})
	time.Sleep(100 * time.Millisecond)

	if _, patches := r.counts(); patches != 1 {
		t.Fatalf("patches = %d, want 1", patches)
	}
	pct := monthPct(r.lastPatch(), 2024, 0)
	if pct == nil || *pct != 7.5 {
		t.Fatalf("pct = %v, want 7.5 (last event wins)", pct)
	}
}

// 减半月份修正后强制走一次全量渲染，预估月份被替换
func TestService_HalvingRefreshForcesFullRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"bitcoin":{"halvening_time":"2028-03-15 08:00:00"}}}`))
	}))
	defer srv.Close()

	r := &fakeRenderer{}
	s := newTestService(t, r)
	s.chain.ChairBaseURL = srv.URL
	s.rebuild(false)

	s.refreshHalving(context.Background())

	fulls, _ := r.counts()
	if fulls != 2 {
		t.Fatalf("fulls = %d, want 2 (forced full after halving change)", fulls)
	}
	if s.halving.Has(estimatedHalvingKey) {
		t.Error("estimated halving month should be replaced")
	}
	if !s.halving.Has("2028-03") {
		t.Error("corrected halving month missing")
	}
}

// 接口返回与预估一致时不触发任何重渲染
func TestService_HalvingRefreshNoChangeNoRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"bitcoin":{"halvening_time":"2028-04-20 00:00:00"}}}`))
	}))
	defer srv.Close()

	r := &fakeRenderer{}
	s := newTestService(t, r)
	s.chain.ChairBaseURL = srv.URL
	s.rebuild(false)

	s.refreshHalving(context.Background())
	if fulls, patches := r.counts(); fulls != 1 || patches != 0 {
		t.Fatalf("fulls = %d patches = %d, want 1/0", fulls, patches)
	}
}

// 成交价直接渲染；当月有开盘价时同步给出本月涨跌幅
func TestService_TradePrice(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestService(t, r)

	s.onTradePrice(50000)
	r.mu.Lock()
	prices, changes := len(r.prices), len(r.changes)
	r.mu.Unlock()
	if prices != 1 || changes != 0 {
		t.Fatalf("prices = %d changes = %d (no open yet)", prices, changes)
	}

	if err := s.rows.Upsert(context.Background(), market.MonthRecord{
		MonthKey: s.nowMonthKey, Open: 40000, Close: 48000,
	}); err != nil {
		t.Fatal(err)
	}
	s.onTradePrice(50000)
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) != 1 || r.changes[0] != 25 {
		t.Fatalf("changes = %v, want [25]", r.changes)
	}
}

// 种子文件存在时历史数据从种子加载
func TestService_LoadHistoryFromSeed(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestService(t, r)
	if err := seed.Write(s.cfg.Seed.Path, "BTCUSDT", []market.MonthRecord{
		{MonthKey: "2023-12", Open: 38000, Close: 42000, Source: market.SourceSeed, IsClosed: true},
	}); err != nil {
		t.Fatal(err)
	}

	s.loadHistory(context.Background())
	row, ok, err := s.rows.Get(context.Background(), "2023-12")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if row.Open != 38000 || row.Close != 42000 {
		t.Errorf("row = %+v", row)
	}
}
