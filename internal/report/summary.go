// Package report 生成每日规则状态摘要并渲染成纯文本。
package report

import (
	"fmt"
	"time"

	"fxchannel/internal/gateway/notifier"
	"fxchannel/internal/market"
	"fxchannel/internal/strategy"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
)

// Summary 是单条规则在报告日的状态。
type Summary struct {
	RuleID         int64
	Symbol         string
	Term           int
	Action         types.Action
	OpenPrice      decimal.Decimal
	ClosePrice     decimal.Decimal
	ProfitRate     decimal.Decimal
	ChangeRate     decimal.Decimal
	IsUpdateAction bool
	IsOpenPos      bool
	IsClosePos     bool
	OpenedDays     int
	BacktestLong   decimal.Decimal
	BacktestShort  decimal.Decimal
}

// FromRule 由已完成当日评估的规则生成摘要；openedDays 为 -1 表示没有未平仓持仓。
func FromRule(rule *types.TradeRule, win market.Window, openedDays int) Summary {
	visible := win.Until(types.DayToInt(rule.LatestDay))
	updated := rule.IsUpdateAction
	if !rule.ActionAt.IsZero() && !rule.LatestDay.IsZero() && types.DayToInt(rule.ActionAt) == types.DayToInt(rule.LatestDay) {
		updated = true
	}
	return Summary{
		RuleID:         rule.ID,
		Symbol:         rule.Symbol,
		Term:           rule.Term,
		Action:         rule.Action,
		OpenPrice:      rule.OpenPrice,
		ClosePrice:     rule.LatestClose,
		ProfitRate:     strategy.ProfitRate(rule.OpenPrice, rule.LatestClose, rule.Sign()),
		ChangeRate:     strategy.ChangeRate(visible),
		IsUpdateAction: updated,
		IsOpenPos:      rule.IsOpenPos,
		IsClosePos:     rule.IsClosePos,
		OpenedDays:     openedDays,
		BacktestLong:   rule.BacktestLong,
		BacktestShort:  rule.BacktestShort,
	}
}

func (s Summary) flags() string {
	out := []byte("---")
	if s.IsUpdateAction {
		out[0] = 'U'
	}
	if s.IsOpenPos {
		out[1] = 'O'
	}
	if s.IsClosePos {
		out[2] = 'C'
	}
	return string(out)
}

func (s Summary) line() string {
	days := "-"
	if s.OpenedDays >= 0 {
		days = fmt.Sprintf("%dd", s.OpenedDays)
	}
	return fmt.Sprintf("%-8s %3d %-5s %s %10s %10s %7s%% %7s%% %5s %8s",
		s.Symbol, s.Term, s.Action, s.flags(),
		s.OpenPrice.String(), s.ClosePrice.String(),
		s.ProfitRate.StringFixed(2), s.ChangeRate.StringFixed(2),
		days, s.BacktestLong.Add(s.BacktestShort).StringFixed(2))
}

// RenderText 渲染日报：一行一条规则，放在代码块里保证等宽对齐。
// 标记位：U=方向今日反转，O=开仓提示，C=今日平仓。
func RenderText(items []Summary, at time.Time) string {
	header := fmt.Sprintf("%-8s %3s %-5s %s %10s %10s %8s %8s %5s %8s",
		"SYMBOL", "TRM", "SIDE", "FLG", "OPEN", "CLOSE", "PL", "CHG", "HELD", "SCORE")
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, header)
	for _, it := range items {
		lines = append(lines, it.line())
	}
	var updated []string
	for _, it := range items {
		if it.IsUpdateAction {
			updated = append(updated, fmt.Sprintf("%s %d -> %s @ %s", it.Symbol, it.Term, it.Action, it.OpenPrice))
		}
	}
	msg := notifier.Message{
		Title: "📈 FX Channel Daily",
		Sections: []notifier.Section{
			{Title: "Rules", Lines: lines, Table: true},
			{Title: "Action updated", Lines: updated},
		},
		At: at,
	}
	if len(items) == 0 {
		msg.Footer = "no trade rules"
	}
	return msg.Render(notifier.MaxMessageBytes)
}
