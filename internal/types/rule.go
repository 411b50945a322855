package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 回测周期（天）。
const (
	Term180 = 180
	Term270 = 270
	Term360 = 360
)

// TradeRule 对应一个 (symbol, term, 参数变体)。它只承载数据，突破与评分逻辑
// 在 strategy / trader 包中。
type TradeRule struct {
	ID        int64
	Symbol    string
	Precision int32
	Term      int
	Action    Action
	OpenPrice decimal.Decimal
	ActionAt  time.Time
	Input     Input

	BacktestLong  decimal.Decimal
	BacktestShort decimal.Decimal
	BacktestCnt   int

	// 以下为当日评估状态，每个模拟日重置。
	LatestDay      time.Time
	LatestClose    decimal.Decimal
	IsUpdateAction bool
	IsOpenPos      bool
	IsClosePos     bool
}

// Sign 由 Action 派生，避免与方向不一致。
func (r *TradeRule) Sign() int64 { return r.Action.Sign() }

// Score 是优选排序使用的总分。
func (r *TradeRule) Score() decimal.Decimal {
	return r.BacktestLong.Add(r.BacktestShort)
}

// ResetDay 清除当日标记。
func (r *TradeRule) ResetDay() {
	r.IsUpdateAction = false
	r.IsOpenPos = false
	r.IsClosePos = false
}

// Variant 复制规则并覆盖 term 与参数；新变体没有 id，成绩归零。
func (r TradeRule) Variant(term int, in Input) TradeRule {
	out := r
	out.ID = 0
	out.Term = term
	out.Input = in
	out.BacktestLong = decimal.Zero
	out.BacktestShort = decimal.Zero
	out.BacktestCnt = 0
	out.ResetDay()
	return out
}

// PrecisionForSymbol 日元报价 3 位小数，其余 5 位。
func PrecisionForSymbol(symbol string) int32 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 3
	}
	return 5
}

// GroupKey 标识清理阶段的分组 (symbol, term)。
type GroupKey struct {
	Symbol string
	Term   int
}

func (r *TradeRule) GroupKey() GroupKey {
	return GroupKey{Symbol: r.Symbol, Term: r.Term}
}
