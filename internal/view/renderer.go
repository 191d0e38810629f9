package view

import (
	"fmt"

	"cyclemap/internal/market"
	"cyclemap/internal/pkg/format"
)

// 中文说明：
// 渲染协作方的契约层。核心只负责两件事：决定全量重建还是增量补丁，
// 以及把帧（矩阵 + 底部统计 + 当前月份键）交给渲染方；渲染细节不在此层。

// Frame 一次渲染的全部输入
type Frame struct {
	YearRows    []market.YearRow   `json:"yearRows"`
	Bottom      market.BottomStats `json:"bottom"`
	NowMonthKey string             `json:"nowMonthKey"`
}

// Renderer 渲染协作方。四个调用均为单向，核心不消费返回值。
type Renderer interface {
	// RenderFull 全量重建（首次渲染、强制刷新）
	RenderFull(f Frame)
	// PatchCells 只更新文本或样式发生变化的单元格，保留视图的瞬态交互状态
	PatchCells(f Frame)
	// RenderSpotPrice 实时成交价，高频且廉价，绕过调度器直接渲染
	RenderSpotPrice(price float64)
	// RenderMonthChange 本月涨跌幅
	RenderMonthChange(pct float64)
}

// MultiRenderer 把调用扇出到多个渲染方
type MultiRenderer []Renderer

func (m MultiRenderer) RenderFull(f Frame) {
	for _, r := range m {
		r.RenderFull(f)
	}
}
func (m MultiRenderer) PatchCells(f Frame) {
	for _, r := range m {
		r.PatchCells(f)
	}
}
func (m MultiRenderer) RenderSpotPrice(price float64) {
	for _, r := range m {
		r.RenderSpotPrice(price)
	}
}
func (m MultiRenderer) RenderMonthChange(pct float64) {
	for _, r := range m {
		r.RenderMonthChange(pct)
	}
}

// CellState 单元格的可见状态：文本与样式类。两者任一变化即视为需要补丁。
type CellState struct {
	Text  string `json:"text"`
	Class string `json:"class"`
}

// Cells 把帧展开为「单元格键 → 状态」。
// 键格式：月份单元格用 YYYY-MM；年汇总用 YYYY:total；底部统计用 median:N / average:N。
func Cells(f Frame) map[string]CellState {
	out := make(map[string]CellState, len(f.YearRows)*14+24)
	for _, row := range f.YearRows {
		for idx, m := range row.Months {
			key := fmt.Sprintf("%d-%02d", row.Year, idx+1)
			if m == nil {
				out[key] = CellState{Text: format.SignedPct(nil), Class: cellClass(nil, key == f.NowMonthKey)}
				continue
			}
			out[key] = CellState{Text: format.SignedPct(m.Pct), Class: cellClass(m.Pct, m.MonthKey == f.NowMonthKey)}
		}
		out[fmt.Sprintf("%d:total", row.Year)] = CellState{
			Text:  format.SignedPct(row.TotalPct),
			Class: cellClass(row.TotalPct, false),
		}
	}
	for i := 0; i < 12; i++ {
		out[fmt.Sprintf("median:%d", i)] = CellState{
			Text:  format.SignedPct(f.Bottom.Median[i]),
			Class: cellClass(f.Bottom.Median[i], false),
		}
		out[fmt.Sprintf("average:%d", i)] = CellState{
			Text:  format.SignedPct(f.Bottom.Average[i]),
			Class: cellClass(f.Bottom.Average[i], false),
		}
	}
	return out
}

// DiffCells 返回 next 中相对 prev 发生变化（或新增）的单元格
func DiffCells(prev, next map[string]CellState) map[string]CellState {
	diff := make(map[string]CellState)
	for key, state := range next {
		if old, ok := prev[key]; !ok || old != state {
			diff[key] = state
		}
	}
	return diff
}

func cellClass(pct *float64, isNow bool) string {
	cls := "cell-empty"
	if pct != nil {
		if *pct >= 0 {
			cls = "cell-up"
		} else {
			cls = "cell-down"
		}
	}
	if isNow {
		cls += " cell-now"
	}
	return cls
}
