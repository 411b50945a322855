package types

import (
	"fmt"
	"strings"
)

// Action 是规则当前的持仓方向，只有 Long / Short 两种取值。
type Action int

const (
	Long Action = iota + 1
	Short
)

// ParseAction 解析持久化的 "long" / "short"。
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown action: %q", s)
	}
}

// Sign 多头 +1，空头 -1。
func (a Action) Sign() int64 {
	if a == Short {
		return -1
	}
	return 1
}

// Flip 返回反方向。
func (a Action) Flip() Action {
	if a == Short {
		return Long
	}
	return Short
}

func (a Action) IsLong() bool { return a != Short }

func (a Action) String() string {
	switch a {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	if a != Long && a != Short {
		return nil, fmt.Errorf("invalid action %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
