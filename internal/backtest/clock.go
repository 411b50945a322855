package backtest

import (
	"time"

	"fxchannel/internal/trader"
	"fxchannel/internal/types"
)

// Clock 是一次回放独占的模拟时钟：从 today-term 开始逐个工作日前进。
type Clock struct {
	day        time.Time
	today      time.Time
	forceClose bool
	dailyLog   bool
}

var _ trader.Clock = (*Clock)(nil)

func NewClock(term int, now time.Time, opts Options) *Clock {
	today := types.TruncateDay(now)
	return &Clock{
		day:        today.AddDate(0, 0, -term),
		today:      today,
		forceClose: opts.ForceClose,
		dailyLog:   opts.DailyLog,
	}
}

// Today 返回当前模拟日。
func (c *Clock) Today() time.Time { return c.day }

func (c *Clock) Active() bool     { return true }
func (c *Clock) DailyLog() bool   { return c.dailyLog }
func (c *Clock) ForceClose() bool { return c.forceClose }

// NextDay 前进一天，落在周末时顺延到周一。
func (c *Clock) NextDay() time.Time {
	c.day = c.day.AddDate(0, 0, 1)
	switch c.day.Weekday() {
	case time.Saturday:
		c.day = c.day.AddDate(0, 0, 2)
	case time.Sunday:
		c.day = c.day.AddDate(0, 0, 1)
	}
	return c.day
}

// Done 在模拟日追上真实日期时为 true；当日 K 线未收盘，不参与回放。
func (c *Clock) Done() bool { return !c.day.Before(c.today) }
