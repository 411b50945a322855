package trader

import (
	"time"

	"fxchannel/internal/types"
)

// Clock 决定规则评估时"今天"是哪一天，以及本次运行是否为回放。
// 回放（Active）时 Engine 只看得到 Today 及之前的 K 线。
type Clock interface {
	Today() time.Time
	Active() bool
	DailyLog() bool
}

// LiveClock 是日报使用的实盘时钟：今天即真实日期，不写日快照。
type LiveClock struct {
	nowFn func() time.Time
}

func NewLiveClock(nowFn func() time.Time) LiveClock {
	if nowFn == nil {
		nowFn = time.Now
	}
	return LiveClock{nowFn: nowFn}
}

func (c LiveClock) Today() time.Time { return types.TruncateDay(c.nowFn()) }
func (c LiveClock) Active() bool     { return false }
func (c LiveClock) DailyLog() bool   { return false }
