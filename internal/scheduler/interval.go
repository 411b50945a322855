package scheduler

import (
	"strconv"
	"strings"
	"time"
)

var intervalAliases = map[string]time.Duration{
	"daily":  24 * time.Hour,
	"weekly": 7 * 24 * time.Hour,
}

var intervalUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseInterval 解析日报周期："daily"、"1d"、"2w"，其余交给 time.ParseDuration（如 "6h"、"90m"）。
// 非正数或无法识别时返回 false。
func ParseInterval(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if d, ok := intervalAliases[s]; ok {
		return d, true
	}
	if unit, ok := intervalUnits[s[len(s)-1]]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(s[:len(s)-1]))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * unit, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
