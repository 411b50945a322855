package backtest

import (
	"context"
	"fmt"
	"sync/atomic"

	"fxchannel/internal/logger"
	"fxchannel/internal/store"
	"fxchannel/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Summary 汇总一次参数优化。
type Summary struct {
	RunID     string
	Symbol    string
	Generated int
	Succeeded int
	Failed    int
}

type OptimizerConfig struct {
	Store   store.Store
	Runner  *Runner
	Workers int
}

// Optimizer 对一个品种做网格搜索：生成变体、并发回放、失败的变体直接删除。
type Optimizer struct {
	st      store.Store
	runner  *Runner
	workers int
}

func NewOptimizer(cfg OptimizerConfig) (*Optimizer, error) {
	if cfg.Store == nil || cfg.Runner == nil {
		return nil, fmt.Errorf("optimizer 需要 store 与 runner")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Optimizer{st: cfg.Store, runner: cfg.Runner, workers: cfg.Workers}, nil
}

// Optimize 以该品种 id 最小的规则为模板。模板自身也参与回放，以便与变体同口径比较。
func (o *Optimizer) Optimize(ctx context.Context, symbol string) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), Symbol: symbol}
	rules, err := o.st.Rules().ListBySymbol(ctx, symbol)
	if err != nil {
		return sum, err
	}
	if len(rules) == 0 {
		return sum, fmt.Errorf("optimize %s: %w", symbol, store.ErrNotFound)
	}
	base := rules[0]
	win, err := o.runner.Fetch(ctx, base.Symbol)
	if err != nil {
		return sum, fmt.Errorf("optimize %s: %w", symbol, err)
	}

	variants := Grid(base)
	candidates := make([]types.TradeRule, 0, len(variants)+1)
	candidates = append(candidates, base)
	for i := range variants {
		if err := o.st.Rules().Insert(ctx, &variants[i]); err != nil {
			return sum, fmt.Errorf("optimize %s insert variant: %w", symbol, err)
		}
		candidates = append(candidates, variants[i])
	}
	sum.Generated = len(variants)
	log := logger.With("run", sum.RunID, "symbol", symbol)
	log.Infof("[optimize] generated=%d workers=%d", sum.Generated, o.workers)

	opts := Options{ForceClose: true}
	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := range candidates {
		rule := candidates[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := o.runner.RunWindow(gctx, &rule, win, opts); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				log.Warnf("[optimize] rule=%d term=%d length=%d brm=%d failed: %v",
					rule.ID, rule.Term, rule.Input.Length, rule.Input.BandRangeRateMin, err)
				if rule.ID != base.ID {
					o.discard(ctx, rule.ID)
				}
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	err = g.Wait()
	sum.Succeeded = int(succeeded.Load())
	sum.Failed = int(failed.Load())
	log.Infof("[optimize] done succeeded=%d failed=%d", sum.Succeeded, sum.Failed)
	return sum, err
}

func (o *Optimizer) discard(ctx context.Context, ruleID int64) {
	if err := o.st.Positions().DeleteByRule(ctx, ruleID); err != nil {
		logger.Warnf("[optimize] delete positions rule=%d: %v", ruleID, err)
	}
	if err := o.st.DailyLogs().DeleteByRule(ctx, ruleID); err != nil {
		logger.Warnf("[optimize] delete daily logs rule=%d: %v", ruleID, err)
	}
	if _, err := o.st.Rules().Delete(ctx, store.RuleFilter{IDs: []int64{ruleID}}); err != nil {
		logger.Warnf("[optimize] delete rule=%d: %v", ruleID, err)
	}
}
