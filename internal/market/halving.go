package market

import (
	"sort"
	"sync"
)

// HalvingSet 可变的「减半月份」集合。
// 启动时由配置注入，运行期可被外部行情元数据修正；变更需触发一次强制全量渲染。
type HalvingSet struct {
	mu     sync.RWMutex
	months map[string]struct{}
}

func NewHalvingSet(months []string) *HalvingSet {
	s := &HalvingSet{months: make(map[string]struct{}, len(months))}
	for _, m := range months {
		if m != "" {
			s.months[m] = struct{}{}
		}
	}
	return s
}

func (s *HalvingSet) Has(monthKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.months[monthKey]
	return ok
}

// Add 返回集合是否发生了变化
func (s *HalvingSet) Add(monthKey string) bool {
	if monthKey == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.months[monthKey]; ok {
		return false
	}
	s.months[monthKey] = struct{}{}
	return true
}

// Remove 返回集合是否发生了变化
func (s *HalvingSet) Remove(monthKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.months[monthKey]; !ok {
		return false
	}
	delete(s.months, monthKey)
	return true
}

// Snapshot 返回排序后的拷贝
func (s *HalvingSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.months))
	for m := range s.months {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
