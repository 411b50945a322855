package trader

import (
	"context"
	"fmt"

	"fxchannel/internal/store"
	"fxchannel/internal/strategy"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
)

// Scorer 根据已平仓记录汇总规则成绩：多空分别累计收益率，并计数。
type Scorer struct {
	positions store.PositionStore
}

func NewScorer(positions store.PositionStore) *Scorer {
	return &Scorer{positions: positions}
}

// Apply 重新计算并写回 rule 的 BacktestLong / BacktestShort / BacktestCnt（不持久化）。
func (s *Scorer) Apply(ctx context.Context, rule *types.TradeRule) error {
	records, err := s.positions.ListByRule(ctx, rule.ID)
	if err != nil {
		return fmt.Errorf("score rule=%d: %w", rule.ID, err)
	}
	var long, short []decimal.Decimal
	for i := range records {
		rec := &records[i]
		if !rec.IsClosed() {
			continue
		}
		if rec.Action == types.Long {
			long = append(long, rec.ProfitRate)
		} else {
			short = append(short, rec.ProfitRate)
		}
	}
	rule.BacktestLong = strategy.SumRates(long)
	rule.BacktestShort = strategy.SumRates(short)
	rule.BacktestCnt = len(long) + len(short)
	return nil
}
