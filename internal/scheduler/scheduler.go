package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"aitrader/internal/logger"
	"aitrader/internal/pkg/circuit"
)

// Task 是一轮交易。它的 ctx 与停止信号脱钩，已发出的订单会跑完。
type Task func(ctx context.Context) error

// Stats 是循环的当前快照，由状态接口返回。
type Stats struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Running   bool          `json:"running"`
	Cycles    int           `json:"cycles"`
	Failures  int           `json:"failures"`
	Skipped   int           `json:"skipped"`
	LastStart time.Time     `json:"last_start"`
	LastEnd   time.Time     `json:"last_end"`
	LastError string        `json:"last_error,omitempty"`
	NextRun   time.Time     `json:"next_run"`
	Breaker   string        `json:"breaker"`
}

// IntervalScheduler 执行任务后休眠 Interval 再重复。轮次不重叠，
// 单轮失败或 panic 不会停止循环；只有 ctx 取消才会退出，且只在两轮之间检查。
type IntervalScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool
	Breaker        *circuit.Breaker

	nowFn func() time.Time

	mu    sync.Mutex
	stats Stats
}

func NewIntervalScheduler(name string, interval time.Duration) *IntervalScheduler {
	return &IntervalScheduler{
		Name:           name,
		Interval:       interval,
		RunImmediately: true,
		nowFn:          time.Now,
	}
}

func (s *IntervalScheduler) Run(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("scheduler %s: task is nil", s.Name)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("scheduler %s: invalid interval %s", s.Name, s.Interval)
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	s.update(func(st *Stats) {
		st.Name = s.Name
		st.Interval = s.Interval
	})
	logger.Infof("scheduler[%s]: started interval=%s run_immediately=%v", s.Name, s.Interval, s.RunImmediately)

	if !s.RunImmediately && !s.sleep(ctx) {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			logger.Infof("scheduler[%s]: stop requested, exit", s.Name)
			return nil
		}
		s.runOnce(ctx, task)
		if !s.sleep(ctx) {
			return nil
		}
	}
}

// RunOnce 执行单轮，错误与 panic 处理同 Run。
func (s *IntervalScheduler) RunOnce(ctx context.Context, task Task) error {
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	return s.runOnce(ctx, task)
}

func (s *IntervalScheduler) runOnce(ctx context.Context, task Task) error {
	if !s.Breaker.Allow() {
		s.update(func(st *Stats) { st.Skipped++ })
		logger.Warnf("scheduler[%s]: breaker open, cycle skipped", s.Name)
		return nil
	}
	start := s.nowFn()
	s.update(func(st *Stats) {
		st.Running = true
		st.LastStart = start
	})
	err := contain(context.WithoutCancel(ctx), task)
	end := s.nowFn()
	s.update(func(st *Stats) {
		st.Running = false
		st.Cycles++
		st.LastEnd = end
		st.LastError = ""
		if err != nil {
			st.Failures++
			st.LastError = err.Error()
		}
	})
	if err != nil {
		s.Breaker.RecordFailure()
		logger.Errorf("scheduler[%s]: cycle failed after %s: %v", s.Name, end.Sub(start).Round(time.Millisecond), err)
		return err
	}
	s.Breaker.RecordSuccess()
	logger.Infof("scheduler[%s]: cycle done in %s", s.Name, end.Sub(start).Round(time.Millisecond))
	return nil
}

func contain(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v\n%s", r, debug.Stack())
		}
	}()
	return task(ctx)
}

func (s *IntervalScheduler) sleep(ctx context.Context) bool {
	next := s.nowFn().Add(s.Interval)
	s.update(func(st *Stats) { st.NextRun = next })
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		logger.Infof("scheduler[%s]: ctx done, exit", s.Name)
		return false
	case <-timer.C:
		return true
	}
}

func (s *IntervalScheduler) update(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

func (s *IntervalScheduler) Stats() Stats {
	s.mu.Lock()
	out := s.stats
	s.mu.Unlock()
	out.Breaker = circuit.StateClosed.String()
	if s.Breaker != nil {
		out.Breaker = s.Breaker.State().String()
	}
	return out
}
