package trader

import (
	"context"
	"fmt"

	"fxchannel/internal/logger"
	"fxchannel/internal/market"
	"fxchannel/internal/store"
	"fxchannel/internal/strategy"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
)

// Engine 按固定顺序对规则做一天的评估：平仓检查、反转检查、开仓提示、持久化。
type Engine struct {
	rules  store.RuleStore
	logs   store.DailyLogStore
	ledger *Ledger
	scorer *Scorer
}

func NewEngine(st store.Store) *Engine {
	return &Engine{
		rules:  st.Rules(),
		logs:   st.DailyLogs(),
		ledger: NewLedger(st.Positions(), st.DailyLogs()),
		scorer: NewScorer(st.Positions()),
	}
}

func (e *Engine) Ledger() *Ledger { return e.ledger }
func (e *Engine) Scorer() *Scorer { return e.scorer }

// Evaluate 只使用 clock 当天及之前的 K 线；win 需包含足够的历史
// （至少 max(Length, CloseLength) 根），否则返回 strategy.ErrInsufficientHistory。
func (e *Engine) Evaluate(ctx context.Context, clock Clock, rule *types.TradeRule, win market.Window) error {
	visible := win.Until(types.DayToInt(clock.Today()))
	latest, ok := visible.Latest()
	if !ok {
		return fmt.Errorf("evaluate %s: %w", rule.Symbol, strategy.ErrInsufficientHistory)
	}
	rule.LatestDay = types.DayFromInt(latest.Time)
	rule.LatestClose = latest.Close
	rule.ResetDay()

	closed := false

	closeCheck, err := strategy.DetectBreakout(visible, strategy.ParamsFor(rule, rule.Input.CloseLength))
	if err != nil {
		return fmt.Errorf("evaluate %s close check: %w", rule.Symbol, err)
	}
	if closeCheck.Triggered {
		applied, err := e.ledger.Close(ctx, clock, rule)
		if err != nil {
			return err
		}
		closed = closed || applied
		rule.IsClosePos = true
	}

	flip, err := strategy.DetectBreakout(visible, strategy.ParamsFor(rule, rule.Input.Length))
	if err != nil {
		return fmt.Errorf("evaluate %s flip check: %w", rule.Symbol, err)
	}
	if flip.Triggered {
		applied, err := e.ledger.Close(ctx, clock, rule)
		if err != nil {
			return err
		}
		closed = closed || applied
		from := rule.Action
		rule.Action = rule.Action.Flip()
		rule.OpenPrice = rule.LatestClose
		rule.ActionAt = rule.LatestDay
		if _, err := e.ledger.Open(ctx, rule, flip); err != nil {
			return err
		}
		rule.IsUpdateAction = true
		if !clock.Active() {
			logger.Infof("[engine] update action %s %s -> %s price=%s", rule.Symbol, from, rule.Action, rule.OpenPrice)
		}
	}

	trigger := decimal.NewFromFloat(rule.Input.ProfitRateTrigger)
	rate := strategy.ProfitRate(rule.OpenPrice, rule.LatestClose, rule.Sign())
	rule.IsOpenPos = trigger.GreaterThan(rate)

	if closed && !clock.Active() {
		if err := e.scorer.Apply(ctx, rule); err != nil {
			return err
		}
	}
	if clock.DailyLog() {
		if _, err := e.logs.InsertIfAbsent(ctx, &types.DailyLogEntry{
			Date:           clock.Today(),
			RuleID:         rule.ID,
			Action:         rule.Action,
			ProfitRate:     rate,
			IsUpdateAction: rule.IsUpdateAction,
			IsOpenPos:      rule.IsOpenPos,
			IsClosePos:     rule.IsClosePos,
		}); err != nil {
			return fmt.Errorf("daily log rule=%d: %w", rule.ID, err)
		}
	}
	if err := e.rules.Upsert(ctx, rule); err != nil {
		return fmt.Errorf("save rule=%d: %w", rule.ID, err)
	}
	return nil
}
