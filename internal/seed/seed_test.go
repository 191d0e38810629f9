package seed

import (
	"math"
	"path/filepath"
	"testing"

	"cyclemap/internal/market"
)

func fptr(v float64) *float64 { return &v }

func TestNormalize_FiltersAndSorts(t *testing.T) {
	rows := []Row{
		{MonthKey: "2024-02", Open: fptr(42000), Close: fptr(61000)},
		{MonthKey: "2024-01", Open: fptr(40000), Close: fptr(42000), Source: "binance"},
		{MonthKey: "", Open: fptr(1), Close: fptr(2)},           // 缺月份键
		{MonthKey: "2024-03", Open: nil, Close: fptr(70000)},    // 缺开盘
		{MonthKey: "2024-04", Open: fptr(math.NaN()), Close: fptr(1)}, // 非法数值
	}
	got := Normalize(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(got), got)
	}
	if got[0].MonthKey != "2024-01" || got[1].MonthKey != "2024-02" {
		t.Errorf("order = %s, %s", got[0].MonthKey, got[1].MonthKey)
	}
	// 默认来源与闭合标记
	if got[1].Source != market.SourceSeed {
		t.Errorf("default source = %s", got[1].Source)
	}
	if got[0].Source != "binance" {
		t.Errorf("source = %s", got[0].Source)
	}
	if !got[0].IsClosed || !got[1].IsClosed {
		t.Error("seed rows must be closed")
	}
}

func TestWriteLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "monthly-seed.json")
	in := []market.MonthRecord{
		{MonthKey: "2024-02", Open: 42000, Close: 61000, Source: market.SourceBinance},
		{MonthKey: "2024-01", Open: 40000, Close: 42000, Source: market.SourceSeed},
	}
	if err := Write(path, "BTCUSDT", in); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].MonthKey != "2024-01" || got[0].Open != 40000 || got[0].Close != 42000 {
		t.Errorf("row0 = %+v", got[0])
	}
	if got[1].Source != market.SourceBinance {
		t.Errorf("source = %s", got[1].Source)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
