package seed

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cyclemap/internal/market"
)

// 中文说明：
// 历史月度数据的种子文件（JSON 文档）读写与清洗。
// 文档结构 {version, timezone, symbol, updatedAt, rows}；
// rows 中缺月份键或数值字段非法的条目在清洗时静默剔除。

type Document struct {
	Version   int    `json:"version"`
	Timezone  string `json:"timezone"`
	Symbol    string `json:"symbol"`
	UpdatedAt string `json:"updatedAt"`
	Rows      []Row  `json:"rows"`
}

// Row 原始种子行：数值用指针以便区分「缺失」与 0
type Row struct {
	MonthKey string   `json:"monthKey"`
	Open     *float64 `json:"open"`
	Close    *float64 `json:"close"`
	Source   string   `json:"source,omitempty"`
}

// Load 读取并清洗种子文件
func Load(path string) ([]market.MonthRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取种子文件失败: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}
	return Normalize(doc.Rows), nil
}

// Normalize 清洗原始行：剔除非法条目、补默认来源、按月份键升序
func Normalize(rows []Row) []market.MonthRecord {
	out := make([]market.MonthRecord, 0, len(rows))
	for _, row := range rows {
		if row.MonthKey == "" || row.Open == nil || row.Close == nil {
			continue
		}
		if !isFinite(*row.Open) || !isFinite(*row.Close) {
			continue
		}
		src := row.Source
		if src == "" {
			src = market.SourceSeed
		}
		out = append(out, market.MonthRecord{
			MonthKey: row.MonthKey,
			Open:     *row.Open,
			Close:    *row.Close,
			Source:   src,
			IsClosed: true,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthKey < out[j].MonthKey })
	return out
}

// Write 按固定文档格式写回种子文件（行按月份键升序，带 updatedAt）
func Write(path, symbol string, rows []market.MonthRecord) error {
	sorted := append([]market.MonthRecord(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MonthKey < sorted[j].MonthKey })

	docRows := make([]Row, 0, len(sorted))
	for _, r := range sorted {
		open, close := r.Open, r.Close
		docRows = append(docRows, Row{MonthKey: r.MonthKey, Open: &open, Close: &close, Source: r.Source})
	}
	doc := Document{
		Version:   1,
		Timezone:  "UTC",
		Symbol:    symbol,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Rows:      docRows,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
