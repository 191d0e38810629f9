package market

import (
	"fmt"
	"time"
)

// 月份键统一为 UTC 的 YYYY-MM 字符串。

const monthKeyLayout = "2006-01"

// MonthKeyFromMillis 由毫秒时间戳推导月份键（K 线用开盘时间，而非本地时钟）
func MonthKeyFromMillis(tsMs int64) string {
	return time.UnixMilli(tsMs).UTC().Format(monthKeyLayout)
}

// NowMonthKey 当前 UTC 月份键
func NowMonthKey() string {
	return time.Now().UTC().Format(monthKeyLayout)
}

// SplitMonthKey 解析 YYYY-MM，monthIndex 为 0..11
func SplitMonthKey(key string) (year, monthIndex int, ok bool) {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), int(t.Month()) - 1, true
}

// MonthStartMillis 月初（UTC 零点）毫秒时间戳
func MonthStartMillis(key string) (int64, error) {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return 0, fmt.Errorf("非法月份键 %q: %w", key, err)
	}
	return t.UnixMilli(), nil
}

// NextMonthStartMillis 下月月初毫秒时间戳
func NextMonthStartMillis(key string) (int64, error) {
	t, err := time.Parse(monthKeyLayout, key)
	if err != nil {
		return 0, fmt.Errorf("非法月份键 %q: %w", key, err)
	}
	return t.AddDate(0, 1, 0).UnixMilli(), nil
}

// PreviousMonthKey 上一个自然月的月份键
func PreviousMonthKey(now time.Time) string {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0).Format(monthKeyLayout)
}
