// Package rules 负责规则参数的初始化导入与导出。
package rules

import (
	"context"
	"fmt"

	"fxchannel/internal/logger"
	fxsymbol "fxchannel/internal/pkg/symbol"
	"fxchannel/internal/store"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
)

// ReferenceMargin 是 ratio 的基准保证金。
const ReferenceMargin = 36584

// Seed 是一条初始规则的参数。
type Seed struct {
	Symbol            string  `toml:"symbol"`
	Action            string  `toml:"action"`
	Term              int     `toml:"term"`
	Length            int     `toml:"length"`
	CloseLength       int     `toml:"close_length"`
	BandRangeRateMin  int64   `toml:"band_range_rate_min"`
	Overflow          int64   `toml:"overflow"`
	ProfitRateTrigger float64 `toml:"profit_rate_trigger"`
	Margin            float64 `toml:"margin"`
}

// DefaultSeeds 内置的初始规则。
var DefaultSeeds = []Seed{
	{Symbol: "USD_JPY", Action: "long", Length: 9, CloseLength: 9, BandRangeRateMin: 15, Overflow: 0, Margin: 60733},
	{Symbol: "EUR_USD", Action: "short", Length: 7, CloseLength: 7, BandRangeRateMin: 3, Overflow: 0, Margin: 65793},
	{Symbol: "USD_CHF", Action: "long", Length: 5, CloseLength: 5, BandRangeRateMin: 6, Overflow: 0, Margin: 60733},
	{Symbol: "GBP_USD", Action: "short", Length: 8, CloseLength: 6, BandRangeRateMin: 21, Overflow: 0, Margin: 76730},
}

// Ratio = round(margin / ReferenceMargin, 2)。
func Ratio(margin float64) float64 {
	r, _ := decimal.NewFromFloat(margin).Div(decimal.NewFromInt(ReferenceMargin)).Round(2).Float64()
	return r
}

// Rule 把种子转换为 id 固定的规则。
func (s Seed) Rule(id int64) (types.TradeRule, error) {
	pair := fxsymbol.Parse(s.Symbol)
	if !pair.Valid() {
		return types.TradeRule{}, fmt.Errorf("seed %d: 非法 symbol %q", id, s.Symbol)
	}
	symbol := pair.Internal()
	action, err := types.ParseAction(s.Action)
	if err != nil {
		return types.TradeRule{}, fmt.Errorf("seed %s: %w", symbol, err)
	}
	term := s.Term
	if term == 0 {
		term = types.Term180
	}
	in := types.Input{
		Length:            s.Length,
		CloseLength:       s.CloseLength,
		BandRangeRateMin:  s.BandRangeRateMin,
		Overflow:          s.Overflow,
		ProfitRateTrigger: s.ProfitRateTrigger,
		Ratio:             Ratio(s.Margin),
	}
	if err := in.Validate(); err != nil {
		return types.TradeRule{}, fmt.Errorf("seed %s: %w", symbol, err)
	}
	return types.TradeRule{
		ID:        id,
		Symbol:    symbol,
		Precision: types.PrecisionForSymbol(symbol),
		Term:      term,
		Action:    action,
		Input:     in,
	}, nil
}

// Import 以 1 起的顺序 id 写入种子；已存在的 id 只更新 input。
func Import(ctx context.Context, rs store.RuleStore, seeds []Seed) (int, error) {
	if len(seeds) == 0 {
		seeds = DefaultSeeds
	}
	list := make([]types.TradeRule, 0, len(seeds))
	for i, s := range seeds {
		rule, err := s.Rule(int64(i + 1))
		if err != nil {
			return 0, err
		}
		list = append(list, rule)
	}
	if err := rs.UpsertInputs(ctx, list); err != nil {
		return 0, fmt.Errorf("import trade rules: %w", err)
	}
	logger.Infof("[rules] imported %d trade rules", len(list))
	return len(list), nil
}
