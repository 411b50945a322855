package scheduler

import (
	"context"
	"time"

	"fxchannel/internal/logger"
)

// Task 为一次调度执行的任务，返回的错误只记录不终止调度。
type Task func(ctx context.Context) error

// DailyScheduler 按 UTC 日线收盘对齐执行任务：
// 首次执行为下一个 AlignInterval 边界 + Offset，此后每隔 Interval 执行一次。
type DailyScheduler struct {
	Name           string
	AlignInterval  time.Duration
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool
	// SkipWeekends 为 true 时落在周六/周日（UTC）的触发点不执行。
	SkipWeekends bool

	nowFn func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewDailyScheduler(interval, offset time.Duration) *DailyScheduler {
	return &DailyScheduler{
		AlignInterval: 24 * time.Hour,
		Interval:      interval,
		Offset:        offset,
		nowFn:         time.Now,
		after:         time.After,
	}
}

// Run 阻塞直到 ctx 结束。
func (s *DailyScheduler) Run(ctx context.Context, task Task) error {
	if task == nil {
		logger.Warnf("%s: task is nil, exit", s.prefix())
		return nil
	}
	if s.AlignInterval <= 0 {
		s.AlignInterval = 24 * time.Hour
	}
	if s.Interval <= 0 {
		logger.Warnf("%s: invalid interval=%s, fallback to align_interval", s.prefix(), s.Interval)
		s.Interval = s.AlignInterval
	}
	if s.Offset < 0 {
		logger.Warnf("%s: negative offset=%s, clamp to 0", s.prefix(), s.Offset)
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.after == nil {
		s.after = time.After
	}

	startAt := s.nowFn().UTC()
	logger.Infof("%s: started align_interval=%s interval=%s offset=%s run_immediately=%v at=%s",
		s.prefix(), s.AlignInterval, s.Interval, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		s.execute(ctx, task, startAt)
	}

	anchor := startAt.Truncate(s.AlignInterval).Add(s.AlignInterval).Add(s.Offset)
	nextAt := anchor
	for {
		now := s.nowFn().UTC()
		logger.Infof("%s: 下次执行=%s (in %s) | uptime=%s",
			s.prefix(),
			nextAt.Format(time.RFC3339),
			nextAt.Sub(now).Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)
		if !s.waitUntil(ctx, nextAt) {
			return ctx.Err()
		}
		s.execute(ctx, task, nextAt)
		nextAt = nextFixedTimeAfter(anchor, s.Interval, s.nowFn().UTC())
	}
}

func (s *DailyScheduler) execute(ctx context.Context, task Task, at time.Time) {
	if s.SkipWeekends && isWeekend(at) {
		logger.Infof("%s: %s 为周末，跳过", s.prefix(), at.Format("2006-01-02"))
		return
	}
	if err := task(ctx); err != nil {
		logger.Errorf("%s: task failed: %v", s.prefix(), err)
	}
}

func (s *DailyScheduler) prefix() string {
	if s.Name == "" {
		return "DailyScheduler"
	}
	return "DailyScheduler[" + s.Name + "]"
}

func (s *DailyScheduler) waitUntil(ctx context.Context, target time.Time) bool {
	if ctx.Err() != nil {
		return false
	}
	wait := target.Sub(s.nowFn().UTC())
	if wait <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	select {
	case <-ctx.Done():
		logger.Infof("%s: ctx done, exit", s.prefix())
		return false
	case <-s.after(wait):
		return true
	}
}

func isWeekend(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

func nextFixedTimeAfter(anchor time.Time, interval time.Duration, now time.Time) time.Time {
	anchor = anchor.UTC()
	now = now.UTC()
	if interval <= 0 {
		return now
	}
	delta := now.Sub(anchor)
	if delta < 0 {
		return anchor
	}
	k := delta / interval
	return anchor.Add((k + 1) * interval)
}
