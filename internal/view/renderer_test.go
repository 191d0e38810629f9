package view

import (
	"testing"

	"cyclemap/internal/market"
)

func frameWith(rows []market.MonthRecord) Frame {
	cfg := market.MatrixConfig{StartYear: 2023, EndYear: 2024, AnchorYear: 2024}
	years := market.BuildYearMatrix(rows, cfg)
	return Frame{
		YearRows:    years,
		Bottom:      market.ComputeBottomStats(years),
		NowMonthKey: "2024-01",
	}
}

func TestCells_Keys(t *testing.T) {
	f := frameWith([]market.MonthRecord{
		{MonthKey: "2024-01", Open: 40000, Close: 45000},
	})
	cells := Cells(f)

	jan := cells["2024-01"]
	if jan.Text != "+12.50%" {
		t.Errorf("jan text = %q", jan.Text)
	}
	if jan.Class != "cell-up cell-now" {
		t.Errorf("jan class = %q", jan.Class)
	}
	if cells["2023-05"].Class != "cell-empty" {
		t.Errorf("empty cell class = %q", cells["2023-05"].Class)
	}
	if _, ok := cells["2024:total"]; !ok {
		t.Error("missing total cell")
	}
	if _, ok := cells["median:0"]; !ok {
		t.Error("missing median cell")
	}
}

func TestDiffCells(t *testing.T) {
	prev := Cells(frameWith([]market.MonthRecord{
		{MonthKey: "2024-01", Open: 40000, Close: 45000},
	}))
	next := Cells(frameWith([]market.MonthRecord{
		{MonthKey: "2024-01", Open: 40000, Close: 50000},
	}))

	diff := DiffCells(prev, next)
	if _, ok := diff["2024-01"]; !ok {
		t.Fatal("expected 2024-01 in diff")
	}
	if got := diff["2024-01"].Text; got != "+25.00%" {
		t.Errorf("diff text = %q, want +25.00%%", got)
	}
	// 未变化的空单元格不应出现在补丁里
	if _, ok := diff["2023-05"]; ok {
		t.Error("unchanged cell leaked into diff")
	}
	// 同帧对比为空补丁
	if d := DiffCells(next, Cells(frameWith([]market.MonthRecord{
		{MonthKey: "2024-01", Open: 40000, Close: 50000},
	}))); len(d) != 0 {
		t.Errorf("identical frames should diff empty, got %v", d)
	}
}

func TestCellClass_DownAndNow(t *testing.T) {
	f := frameWith([]market.MonthRecord{
		{MonthKey: "2023-03", Open: 100, Close: 80},
	})
	cells := Cells(f)
	if cells["2023-03"].Class != "cell-down" {
		t.Errorf("class = %q, want cell-down", cells["2023-03"].Class)
	}
}
