package backtest

import (
	"context"
	"fmt"
	"sort"

	"fxchannel/internal/logger"
	"fxchannel/internal/store"
	"fxchannel/internal/types"
)

// Cleaner 在每个 (symbol, term) 分组内只保留成绩最好的一条规则。
type Cleaner struct {
	st store.Store
}

func NewCleaner(st store.Store) *Cleaner { return &Cleaner{st: st} }

// Clean 删除落选规则及其持仓和日快照，返回删除的规则数。
func (c *Cleaner) Clean(ctx context.Context, symbol string) (int64, error) {
	rules, err := c.st.Rules().ListBySymbol(ctx, symbol)
	if err != nil {
		return 0, err
	}
	groups := make(map[types.GroupKey][]types.TradeRule)
	var keys []types.GroupKey
	for _, r := range rules {
		k := r.GroupKey()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	var losers []int64
	for _, k := range keys {
		group := groups[k]
		RankRules(group)
		best := group[0]
		logger.Infof("[clean] %s term=%d keep rule=%d score=%s of %d", k.Symbol, k.Term, best.ID, best.Score(), len(group))
		for _, r := range group[1:] {
			losers = append(losers, r.ID)
		}
	}
	if len(losers) == 0 {
		return 0, nil
	}
	if err := c.st.Positions().DeleteByRule(ctx, losers...); err != nil {
		return 0, fmt.Errorf("clean %s positions: %w", symbol, err)
	}
	if err := c.st.DailyLogs().DeleteByRule(ctx, losers...); err != nil {
		return 0, fmt.Errorf("clean %s daily logs: %w", symbol, err)
	}
	n, err := c.st.Rules().Delete(ctx, store.RuleFilter{IDs: losers})
	if err != nil {
		return 0, fmt.Errorf("clean %s rules: %w", symbol, err)
	}
	return n, nil
}

// RankRules 按 score desc, length asc, band_range_rate_min asc, close_length desc, id asc 排序。
func RankRules(rules []types.TradeRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := &rules[i], &rules[j]
		if c := a.Score().Cmp(b.Score()); c != 0 {
			return c > 0
		}
		if a.Input.Length != b.Input.Length {
			return a.Input.Length < b.Input.Length
		}
		if a.Input.BandRangeRateMin != b.Input.BandRangeRateMin {
			return a.Input.BandRangeRateMin < b.Input.BandRangeRateMin
		}
		if a.Input.CloseLength != b.Input.CloseLength {
			return a.Input.CloseLength > b.Input.CloseLength
		}
		return a.ID < b.ID
	})
}
