package trader

import (
	"context"
	"errors"
	"fmt"

	"fxchannel/internal/logger"
	"fxchannel/internal/store"
	"fxchannel/internal/strategy"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
)

// Ledger 管理持仓记录的开平：同一 (开仓日, 规则, 方向) 只开一次，每笔只平一次。
type Ledger struct {
	positions store.PositionStore
	logs      store.DailyLogStore
}

func NewLedger(positions store.PositionStore, logs store.DailyLogStore) *Ledger {
	return &Ledger{positions: positions, logs: logs}
}

// Open 以规则当前方向、开仓价建仓；记录已存在时返回 false。
func (l *Ledger) Open(ctx context.Context, rule *types.TradeRule, b strategy.Breakout) (bool, error) {
	rec := &types.PositionRecord{
		RuleID:            rule.ID,
		Action:            rule.Action,
		OpenAt:            rule.LatestDay,
		OpenPrice:         rule.OpenPrice,
		Overflow:          b.Overflow,
		OpenBandRangeRate: b.BandRangeRate,
	}
	inserted, err := l.positions.InsertIfAbsent(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("open position rule=%d: %w", rule.ID, err)
	}
	if inserted {
		logger.Debugf("[ledger] open rule=%d %s %s at %s price=%s", rule.ID, rule.Symbol, rule.Action, rule.LatestDay.Format("2006-01-02"), rule.OpenPrice)
	}
	return inserted, nil
}

// Close 以最新收盘价平掉该规则当前方向最近的一笔持仓。
// 没有持仓或已平仓时不做任何事并返回 false。
func (l *Ledger) Close(ctx context.Context, clock Clock, rule *types.TradeRule) (bool, error) {
	rec, err := l.positions.Latest(ctx, rule.ID, rule.Action)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load position rule=%d: %w", rule.ID, err)
	}
	if rec.IsClosed() {
		return false, nil
	}
	rec.ClosePrice = rule.LatestClose
	rec.CloseAt = rule.LatestDay
	rec.ProfitRate = strategy.ProfitRate(rec.OpenPrice, rec.ClosePrice, rec.Action.Sign())
	rec.DaysHeld = types.DaysBetween(rec.OpenAt, rec.CloseAt)

	minRate, maxRate, err := l.trendExtrema(ctx, clock, rule)
	if err != nil {
		return false, err
	}
	// 平仓当日的日快照在平仓之后写入，平仓收益率需单独并入。
	rec.MinProfitRate = decimal.Min(minRate, rec.ProfitRate)
	rec.MaxProfitRate = decimal.Max(maxRate, rec.ProfitRate)
	if err := l.positions.Update(ctx, rec); err != nil {
		return false, fmt.Errorf("close position rule=%d: %w", rule.ID, err)
	}
	logger.Debugf("[ledger] close rule=%d %s %s profit=%s days=%d", rule.ID, rule.Symbol, rec.Action, rec.ProfitRate, rec.DaysHeld)
	return true, nil
}

// trendExtrema 扫描当前趋势段（从今天往前、方向与规则一致的连续日快照）的收益率极值。
func (l *Ledger) trendExtrema(ctx context.Context, clock Clock, rule *types.TradeRule) (decimal.Decimal, decimal.Decimal, error) {
	entries, err := l.logs.ListUntil(ctx, rule.ID, clock.Today())
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("load daily logs rule=%d: %w", rule.ID, err)
	}
	var minRate, maxRate decimal.Decimal
	seen := false
	for _, e := range entries {
		if e.Action != rule.Action {
			break
		}
		if !seen {
			minRate, maxRate, seen = e.ProfitRate, e.ProfitRate, true
			continue
		}
		minRate = decimal.Min(minRate, e.ProfitRate)
		maxRate = decimal.Max(maxRate, e.ProfitRate)
	}
	if !seen {
		rate := strategy.ProfitRate(rule.OpenPrice, rule.LatestClose, rule.Sign())
		return rate, rate, nil
	}
	return minRate, maxRate, nil
}

// OpenedDays 返回持仓已持有的自然日数；已平仓返回 -1。
func (l *Ledger) OpenedDays(clock Clock, rec *types.PositionRecord) int {
	if rec == nil || rec.IsClosed() {
		return -1
	}
	return types.DaysBetween(rec.OpenAt, clock.Today())
}

// Current 返回规则当前方向最近的一笔持仓，没有时返回 nil。
func (l *Ledger) Current(ctx context.Context, rule *types.TradeRule) (*types.PositionRecord, error) {
	rec, err := l.positions.Latest(ctx, rule.ID, rule.Action)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}
