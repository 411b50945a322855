package backtest

import (
	"context"
	"fmt"
	"time"

	"fxchannel/internal/logger"
	"fxchannel/internal/market"
	"fxchannel/internal/store"
	"fxchannel/internal/trader"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
)

const defaultReplayCandles = 500

// Options 控制一次回放。
type Options struct {
	// ForceClose 回放结束时无条件平掉剩余持仓。
	ForceClose bool
	// DailyLog 每个模拟日写一条日快照。
	DailyLog bool
}

// Result 汇总一次回放。
type Result struct {
	RuleID int64
	Symbol string
	Term   int
	Days   int
	Closed int
	Long   decimal.Decimal
	Short  decimal.Decimal
}

func (r Result) Score() decimal.Decimal { return r.Long.Add(r.Short) }

type RunnerConfig struct {
	Store         store.Store
	Source        market.Source
	ReplayCandles int
	Now           func() time.Time
}

// Runner 在一条历史 K 线上逐日回放单条规则。
type Runner struct {
	st            store.Store
	source        market.Source
	engine        *trader.Engine
	replayCandles int
	nowFn         func() time.Time
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store 不能为空")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("candle source 不能为空")
	}
	if cfg.ReplayCandles <= 0 {
		cfg.ReplayCandles = defaultReplayCandles
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runner{
		st:            cfg.Store,
		source:        cfg.Source,
		engine:        trader.NewEngine(cfg.Store),
		replayCandles: cfg.ReplayCandles,
		nowFn:         cfg.Now,
	}, nil
}

// Fetch 拉取回放所需的全部 K 线。
func (r *Runner) Fetch(ctx context.Context, symbol string) (market.Window, error) {
	return r.source.Fetch(ctx, symbol, r.replayCandles)
}

// Run 拉取 K 线后回放规则。
func (r *Runner) Run(ctx context.Context, rule *types.TradeRule, opts Options) (Result, error) {
	win, err := r.Fetch(ctx, rule.Symbol)
	if err != nil {
		return Result{}, fmt.Errorf("backtest %s: %w", rule.Symbol, err)
	}
	return r.RunWindow(ctx, rule, win, opts)
}

// RunWindow 在给定 K 线上回放规则：先清空规则的历史记录，再从 today-term 逐个工作日评估，
// 结束后（可选）强制平仓并重算成绩。
func (r *Runner) RunWindow(ctx context.Context, rule *types.TradeRule, win market.Window, opts Options) (Result, error) {
	if err := r.reset(ctx, rule); err != nil {
		return Result{}, err
	}
	clock := NewClock(rule.Term, r.nowFn(), opts)
	days := 0
	for {
		day := clock.NextDay()
		if clock.Done() {
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := r.engine.Evaluate(ctx, clock, rule, win); err != nil {
			return Result{}, fmt.Errorf("backtest %s term=%d day=%s: %w", rule.Symbol, rule.Term, day.Format("2006-01-02"), err)
		}
		days++
	}
	if clock.ForceClose() && days > 0 {
		if _, err := r.engine.Ledger().Close(ctx, clock, rule); err != nil {
			return Result{}, fmt.Errorf("backtest %s force close: %w", rule.Symbol, err)
		}
	}
	if err := r.engine.Scorer().Apply(ctx, rule); err != nil {
		return Result{}, err
	}
	if err := r.st.Rules().Upsert(ctx, rule); err != nil {
		return Result{}, fmt.Errorf("save rule=%d: %w", rule.ID, err)
	}
	res := Result{
		RuleID: rule.ID,
		Symbol: rule.Symbol,
		Term:   rule.Term,
		Days:   days,
		Closed: rule.BacktestCnt,
		Long:   rule.BacktestLong,
		Short:  rule.BacktestShort,
	}
	logger.Debugf("[backtest] rule=%d %s term=%d days=%d closed=%d score=%s", res.RuleID, res.Symbol, res.Term, res.Days, res.Closed, res.Score())
	return res, nil
}

func (r *Runner) reset(ctx context.Context, rule *types.TradeRule) error {
	if err := r.st.Positions().DeleteByRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("reset positions rule=%d: %w", rule.ID, err)
	}
	if err := r.st.DailyLogs().DeleteByRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("reset daily logs rule=%d: %w", rule.ID, err)
	}
	rule.OpenPrice = decimal.Zero
	rule.ActionAt = time.Time{}
	rule.BacktestLong = decimal.Zero
	rule.BacktestShort = decimal.Zero
	rule.BacktestCnt = 0
	rule.ResetDay()
	return nil
}
