package view

import (
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"

	"cyclemap/internal/logger"
	"cyclemap/internal/pkg/format"
)

var monthLabels = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// ConsoleRenderer 把矩阵渲染为终端表格。
// 终端没有增量补丁的概念，PatchCells 退化为整表重绘。
type ConsoleRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out}
}

func (r *ConsoleRenderer) RenderFull(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := table.Row{"年份"}
	for _, label := range monthLabels {
		header = append(header, label)
	}
	header = append(header, "总计", "周期")
	t.AppendHeader(header)

	for _, year := range f.YearRows {
		row := table.Row{year.Year}
		for _, m := range year.Months {
			if m == nil {
				row = append(row, format.SignedPct(nil))
			} else {
				row = append(row, format.SignedPct(m.Pct))
			}
		}
		row = append(row, format.SignedPct(year.TotalPct), year.Cycle.Key)
		t.AppendRow(row)
	}

	median := table.Row{"中位数"}
	average := table.Row{"平均数"}
	for i := 0; i < 12; i++ {
		median = append(median, format.SignedPct(f.Bottom.Median[i]))
		average = append(average, format.SignedPct(f.Bottom.Average[i]))
	}
	median = append(median, "", "")
	average = append(average, "", "")
	t.AppendFooter(median)
	t.AppendFooter(average)

	fmt.Fprintln(r.out, t.Render())
}

func (r *ConsoleRenderer) PatchCells(f Frame) {
	r.RenderFull(f)
}

func (r *ConsoleRenderer) RenderSpotPrice(price float64) {
	logger.Debugf("现价 %s", format.Price(price))
}

func (r *ConsoleRenderer) RenderMonthChange(pct float64) {
	logger.Debugf("本月 %+.2f%%", pct)
}
