package market

import (
	"math"
	"sort"
)

// 中文说明：
// 把平铺的月记录集合变换为「年 × 月」矩阵以及底部统计（逐月中位数/平均数）。
// 全部为纯函数：每次渲染从头重算，不维护增量状态。

// MatrixConfig 矩阵范围与周期锚点
type MatrixConfig struct {
	StartYear  int
	EndYear    int
	AnchorYear int // 减半年锚点，(year-anchor) mod 4 决定周期分类
}

// MonthCell 单元格：某年某月的已计算视图数据
type MonthCell struct {
	MonthKey string   `json:"monthKey"`
	Open     float64  `json:"open"`
	Close    float64  `json:"close"`
	Pct      *float64 `json:"pct"`
	Source   string   `json:"source,omitempty"`
	IsClosed bool     `json:"isClosed,omitempty"`
}

// Cycle 四年周期分类
type Cycle struct {
	Key       string `json:"key"`
	ClassName string `json:"className"`
}

var cycleTable = [4]Cycle{
	{Key: "halving", ClassName: "cycle-halving"},
	{Key: "bigBull", ClassName: "cycle-big-bull"},
	{Key: "correction", ClassName: "cycle-correction"},
	{Key: "smallBull", ClassName: "cycle-small-bull"},
}

// CycleOf 按锚点年偏移取周期分类
func CycleOf(year, anchorYear int) Cycle {
	return cycleTable[((year-anchorYear)%4+4)%4]
}

// YearRow 一年的 12 个月槽位与派生汇总
type YearRow struct {
	Year     int            `json:"year"`
	Months   [12]*MonthCell `json:"months"`
	TotalPct *float64       `json:"totalPct"`
	Cycle    Cycle          `json:"cycle"`
}

// BottomStats 底部统计：逐自然月槽位的中位数与平均数（跨所有年份）
type BottomStats struct {
	Median  [12]*float64 `json:"median"`
	Average [12]*float64 `json:"average"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MonthChangePercent 月涨跌幅；open 为 0 或数值非法时返回 nil
func MonthChangePercent(open, close float64) *float64 {
	if !finite(open) || !finite(close) || open == 0 {
		return nil
	}
	pct := (close - open) / open * 100
	return &pct
}

// BuildYearMatrix 按年分组并补齐 [StartYear, EndYear] 的空年份，最终按年份降序。
// 范围之外的记录直接忽略。
func BuildYearMatrix(rows []MonthRecord, cfg MatrixConfig) []YearRow {
	byYear := make(map[int]*YearRow)
	for _, row := range rows {
		year, monthIdx, ok := SplitMonthKey(row.MonthKey)
		if !ok || year < cfg.StartYear || year > cfg.EndYear {
			continue
		}
		item := byYear[year]
		if item == nil {
			item = &YearRow{Year: year}
			byYear[year] = item
		}
		item.Months[monthIdx] = &MonthCell{
			MonthKey: row.MonthKey,
			Open:     row.Open,
			Close:    row.Close,
			Pct:      MonthChangePercent(row.Open, row.Close),
			Source:   row.Source,
			IsClosed: row.IsClosed,
		}
	}

	for year := cfg.StartYear; year <= cfg.EndYear; year++ {
		if byYear[year] == nil {
			byYear[year] = &YearRow{Year: year}
		}
	}

	years := make([]YearRow, 0, len(byYear))
	for _, item := range byYear {
		item.TotalPct = yearTotalPercent(item)
		item.Cycle = CycleOf(item.Year, cfg.AnchorYear)
		years = append(years, *item)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year > years[j].Year })
	return years
}

// yearTotalPercent 年度涨跌幅：首个可用开盘 → 最后可用收盘
func yearTotalPercent(y *YearRow) *float64 {
	var first, last *MonthCell
	for _, m := range y.Months {
		if m != nil && finite(m.Open) {
			first = m
			break
		}
	}
	for i := 11; i >= 0; i-- {
		if m := y.Months[i]; m != nil && finite(m.Close) {
			last = m
			break
		}
	}
	if first == nil || last == nil || first.Open == 0 {
		return nil
	}
	pct := (last.Close - first.Open) / first.Open * 100
	return &pct
}

// ComputeBottomStats 对每个月份槽位收集所有年份的有效涨跌幅。
// 缺数据的月份不按 0 计入；槽位无任何贡献年份时两项统计均为 nil。
func ComputeBottomStats(yearRows []YearRow) BottomStats {
	var stats BottomStats
	for slot := 0; slot < 12; slot++ {
		var values []float64
		for _, row := range yearRows {
			if m := row.Months[slot]; m != nil && m.Pct != nil && finite(*m.Pct) {
				values = append(values, *m.Pct)
			}
		}
		if len(values) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		avg := sum / float64(len(values))
		stats.Average[slot] = &avg

		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		var med float64
		if len(sorted)%2 == 0 {
			med = (sorted[mid-1] + sorted[mid]) / 2
		} else {
			med = sorted[mid]
		}
		stats.Median[slot] = &med
	}
	return stats
}
