package market

import (
	"math"
	"testing"
)

var testCfg = MatrixConfig{StartYear: 2011, EndYear: 2030, AnchorYear: 2024}

func rec(key string, open, close float64) MonthRecord {
	return MonthRecord{MonthKey: key, Open: open, Close: close, Source: SourceSeed, IsClosed: true}
}

func TestBuildYearMatrix_EmptyInput(t *testing.T) {
	years := BuildYearMatrix(nil, testCfg)
	if len(years) != 20 {
		t.Fatalf("expected 20 year rows, got %d", len(years))
	}
	if years[0].Year != 2030 || years[len(years)-1].Year != 2011 {
		t.Fatalf("expected descending 2030..2011, got %d..%d", years[0].Year, years[len(years)-1].Year)
	}
	for _, y := range years {
		for i, m := range y.Months {
			if m != nil {
				t.Errorf("year %d month %d expected nil", y.Year, i)
			}
		}
		if y.TotalPct != nil {
			t.Errorf("year %d expected nil totalPct", y.Year)
		}
	}
}

func TestMonthChangePercent(t *testing.T) {
	if pct := MonthChangePercent(100, 150); pct == nil || *pct != 50 {
		t.Errorf("pct(100,150) = %v, want 50", pct)
	}
	if pct := MonthChangePercent(0, 150); pct != nil {
		t.Errorf("pct(0,150) = %v, want nil", pct)
	}
	if pct := MonthChangePercent(math.NaN(), 150); pct != nil {
		t.Errorf("pct(NaN,150) = %v, want nil", pct)
	}
}

func TestBuildYearMatrix_CellsAndTotal(t *testing.T) {
	rows := []MonthRecord{
		rec("2024-01", 100, 150),
		rec("2024-03", 150, 120),
		rec("2024-12", 120, 200),
	}
	years := BuildYearMatrix(rows, testCfg)

	var y2024 *YearRow
	for i := range years {
		if years[i].Year == 2024 {
			y2024 = &years[i]
		}
	}
	if y2024 == nil {
		t.Fatal("missing 2024 row")
	}
	if m := y2024.Months[0]; m == nil || *m.Pct != 50 {
		t.Fatalf("jan pct = %v, want 50", m)
	}
	if y2024.Months[1] != nil {
		t.Error("feb should be nil")
	}
	// 首个可用开盘 100 → 最后可用收盘 200
	if y2024.TotalPct == nil || *y2024.TotalPct != 100 {
		t.Errorf("totalPct = %v, want 100", y2024.TotalPct)
	}
}

func TestBuildYearMatrix_OutOfRangeIgnored(t *testing.T) {
	years := BuildYearMatrix([]MonthRecord{rec("2009-05", 1, 2), rec("2031-01", 1, 2)}, testCfg)
	for _, y := range years {
		for _, m := range y.Months {
			if m != nil {
				t.Fatalf("expected all-empty matrix, year %d has data", y.Year)
			}
		}
	}
}

func TestCycleOf(t *testing.T) {
	cases := []struct {
		year int
		key  string
	}{
		{2024, "halving"},
		{2025, "bigBull"},
		{2026, "correction"},
		{2027, "smallBull"},
		{2028, "halving"},
		{2020, "halving"},
		{2011, "smallBull"},
	}
	for _, tc := range cases {
		if got := CycleOf(tc.year, 2024); got.Key != tc.key {
			t.Errorf("cycle(%d) = %s, want %s", tc.year, got.Key, tc.key)
		}
	}
}

func TestComputeBottomStats(t *testing.T) {
	// 同一月份槽位跨年取值 [10, 20, 缺, 30]
	rows := []MonthRecord{
		rec("2021-01", 100, 110),
		rec("2022-01", 100, 120),
		rec("2024-01", 100, 130),
	}
	years := BuildYearMatrix(rows, testCfg)
	stats := ComputeBottomStats(years)

	if stats.Average[0] == nil || *stats.Average[0] != 20 {
		t.Errorf("average = %v, want 20", stats.Average[0])
	}
	if stats.Median[0] == nil || *stats.Median[0] != 20 {
		t.Errorf("median = %v, want 20", stats.Median[0])
	}
	// 偶数个取中间两数均值
	rows2 := []MonthRecord{rec("2021-02", 100, 110), rec("2022-02", 100, 120)}
	stats2 := ComputeBottomStats(BuildYearMatrix(rows2, testCfg))
	if stats2.Median[1] == nil || *stats2.Median[1] != 15 {
		t.Errorf("even median = %v, want 15", stats2.Median[1])
	}
	// 无贡献年份的槽位为 nil
	if stats2.Median[5] != nil || stats2.Average[5] != nil {
		t.Error("empty slot should be nil")
	}
}

func TestComputeBottomStats_SkipsMissingNotZeroFill(t *testing.T) {
	rows := []MonthRecord{
		rec("2021-03", 100, 200), // +100
		rec("2022-03", 0, 150),   // open=0 → pct nil，不得按 0 计入
	}
	stats := ComputeBottomStats(BuildYearMatrix(rows, testCfg))
	if stats.Average[2] == nil || *stats.Average[2] != 100 {
		t.Errorf("average = %v, want 100", stats.Average[2])
	}
}
