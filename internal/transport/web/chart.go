package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/markcheno/go-talib"

	"cyclemap/internal/market"
)

// handleChart 辅助图表页：月度收盘 + SMA 均线、逐月中位数柱状图
func (s *Server) handleChart(c *gin.Context) {
	if s.cfg.RowsFn == nil {
		c.String(http.StatusServiceUnavailable, "chart not ready")
		return
	}
	rows, err := s.cfg.RowsFn(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "加载数据失败: %v", err)
		return
	}

	keys := make([]string, 0, len(rows))
	closes := make([]float64, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.MonthKey)
		closes = append(closes, row.Close)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title: s.cfg.Symbol + " 月度收盘",
	}))
	closeData := make([]opts.LineData, len(closes))
	for i, v := range closes {
		closeData[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(keys).AddSeries("收盘", closeData)

	period := s.cfg.SMAPeriod
	if period > 1 && len(closes) >= period {
		sma := talib.Sma(closes, period)
		smaData := make([]opts.LineData, len(sma))
		for i, v := range sma {
			if i < period-1 {
				// talib 对窗口未满的前缀输出 0，置空避免画出假值
				smaData[i] = opts.LineData{Value: nil}
				continue
			}
			smaData[i] = opts.LineData{Value: v}
		}
		line.AddSeries("SMA", smaData)
	}

	yearRows := market.BuildYearMatrix(rows, s.cfg.Matrix)
	stats := market.ComputeBottomStats(yearRows)
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title: "逐月涨跌幅中位数",
	}))
	labels := make([]string, 12)
	medianData := make([]opts.BarData, 12)
	for i := 0; i < 12; i++ {
		labels[i] = monthSlotLabel(i)
		if stats.Median[i] != nil {
			medianData[i] = opts.BarData{Value: *stats.Median[i]}
		} else {
			medianData[i] = opts.BarData{Value: nil}
		}
	}
	bar.SetXAxis(labels).AddSeries("中位数", medianData)

	page := components.NewPage()
	page.AddCharts(line, bar)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(c.Writer); err != nil {
		c.String(http.StatusInternalServerError, "渲染图表失败: %v", err)
	}
}

var slotLabels = [12]string{"1月", "2月", "3月", "4月", "5月", "6月", "7月", "8月", "9月", "10月", "11月", "12月"}

func monthSlotLabel(i int) string {
	if i < 0 || i > 11 {
		return ""
	}
	return slotLabels[i]
}
