package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"cyclemap/internal/market"
)

// RowStore 抽象：按月份键读写月记录。
// 同一月份键最多保留一条记录，后写入者无条件覆盖（无 CAS、无按来源合并）。
type RowStore interface {
	Upsert(ctx context.Context, row market.MonthRecord) error
	Get(ctx context.Context, monthKey string) (market.MonthRecord, bool, error)
	Values(ctx context.Context) ([]market.MonthRecord, error)
}

// MemoryRowStore 内存实现
type MemoryRowStore struct {
	mu   sync.RWMutex
	rows map[string]market.MonthRecord
}

func NewMemoryRowStore() *MemoryRowStore {
	return &MemoryRowStore{rows: make(map[string]market.MonthRecord)}
}

// Upsert 覆盖写入；仅要求月份键非空，数值合法性由调用方保证
func (s *MemoryRowStore) Upsert(ctx context.Context, row market.MonthRecord) error {
	if row.MonthKey == "" {
		return errors.New("monthKey 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.MonthKey] = row
	return nil
}

func (s *MemoryRowStore) Get(ctx context.Context, monthKey string) (market.MonthRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[monthKey]
	return row, ok, nil
}

// Values 返回按月份键升序的拷贝
func (s *MemoryRowStore) Values(ctx context.Context) ([]market.MonthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.MonthRecord, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthKey < out[j].MonthKey })
	return out, nil
}
