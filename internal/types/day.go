package types

import (
	"time"
)

// DayToInt 把日期转为 YYYYMMDD 整数（K 线 time 字段的格式）。
func DayToInt(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// DayFromInt 把 YYYYMMDD 还原为 UTC 零点。
func DayFromInt(v int) time.Time {
	return time.Date(v/10000, time.Month(v/100%100), v%100, 0, 0, 0, 0, time.UTC)
}

// TruncateDay 保留日期部分（UTC 零点），用于日级比较。
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween 返回 to - from 的自然日差。
func DaysBetween(from, to time.Time) int {
	return int(TruncateDay(to).Sub(TruncateDay(from)).Hours() / 24)
}
