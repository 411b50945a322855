package report

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"fxchannel/internal/logger"
	"fxchannel/internal/market"
	"fxchannel/internal/store"
	"fxchannel/internal/trader"
	"fxchannel/internal/types"
)

// DefaultMargin 是实盘评估在最长窗口之外多取的 K 线数，保证前一日涨跌可算。
const DefaultMargin = 2

// Builder 以实盘时钟评估全部规则并生成摘要。
type Builder struct {
	st     store.Store
	source market.Source
	engine *trader.Engine
	clock  trader.Clock
	margin int
}

func NewBuilder(st store.Store, source market.Source, clock trader.Clock, margin int) *Builder {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Builder{st: st, source: source, engine: trader.NewEngine(st), clock: clock, margin: margin}
}

// Build 逐条评估；单个品种失败不影响其他品种，最终返回汇总错误。
func (b *Builder) Build(ctx context.Context) ([]Summary, error) {
	var (
		items  []Summary
		errs   []error
		failed = make(map[string]bool)
	)
	err := b.st.Rules().Each(ctx, 100, func(rule *types.TradeRule) error {
		if failed[rule.Symbol] {
			return nil
		}
		item, err := b.evaluate(ctx, rule)
		if err != nil {
			failed[rule.Symbol] = true
			logger.Errorf("[report] %s rule=%d: %v", rule.Symbol, rule.ID, err)
			errs = append(errs, fmt.Errorf("%s: %w", rule.Symbol, err))
			return nil
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return items, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Symbol != items[j].Symbol {
			return items[i].Symbol < items[j].Symbol
		}
		return items[i].Term < items[j].Term
	})
	return items, errors.Join(errs...)
}

func (b *Builder) evaluate(ctx context.Context, rule *types.TradeRule) (Summary, error) {
	win, err := b.source.Fetch(ctx, rule.Symbol, rule.Input.MaxLength()+b.margin)
	if err != nil {
		return Summary{}, err
	}
	if err := b.engine.Evaluate(ctx, b.clock, rule, win); err != nil {
		return Summary{}, err
	}
	rec, err := b.engine.Ledger().Current(ctx, rule)
	if err != nil {
		return Summary{}, err
	}
	return FromRule(rule, win, b.engine.Ledger().OpenedDays(b.clock, rec)), nil
}
