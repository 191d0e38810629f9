package view

import (
	"sync"
	"time"
)

// Scheduler 把一阵密集的更新合并为一次渲染：
// 已有待触发任务时 Schedule 为 no-op，定时器到期后恰好触发一次渲染。
// 无取消语义（armed 之后必然触发一次），与渲染方约定保持一致。
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	pending bool
	fire    func()
	after   func(d time.Duration, f func()) // 定时器工厂，测试可替换
}

func NewScheduler(delay time.Duration, fire func()) *Scheduler {
	if delay <= 0 {
		delay = 120 * time.Millisecond
	}
	return &Scheduler{
		delay: delay,
		fire:  fire,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Schedule 预约一次渲染；重复调用在触发前会被合并
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.mu.Unlock()

	s.after(s.delay, func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		s.fire()
	})
}
