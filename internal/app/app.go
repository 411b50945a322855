package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"fxchannel/internal/backtest"
	"fxchannel/internal/config"
	"fxchannel/internal/gateway/notifier"
	"fxchannel/internal/logger"
	"fxchannel/internal/market"
	fxsymbol "fxchannel/internal/pkg/symbol"
	"fxchannel/internal/report"
	"fxchannel/internal/rules"
	"fxchannel/internal/scheduler"
	"fxchannel/internal/store"
	"fxchannel/internal/trader"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：持有存储、K 线来源与推送通道，向命令行暴露各子命令。
type App struct {
	cfg     *config.Config
	store   store.Store
	source  market.Source
	closers []io.Closer
	nowFn   func() time.Time

	mu         sync.RWMutex
	notifier   notifier.TextNotifier
	notifierFn func(config.NotifyConfig) notifier.TextNotifier
	margin     int
}

// NewApp 根据配置构建应用对象。
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return NewAppBuilder(cfg, opts...).Build(ctx)
}

func (a *App) Store() store.Store { return a.store }

func (a *App) Close() error {
	errs := make([]error, 0, len(a.closers)+1)
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// Init 导入种子规则，只覆盖参数。
func (a *App) Init(ctx context.Context) (int, error) {
	n, err := rules.Import(ctx, a.store.Rules(), a.cfg.Seeds)
	if err != nil {
		return 0, err
	}
	logger.Infof("[init] imported %d rules", n)
	return n, nil
}

// symbols 为空参数时返回库中全部品种。
func (a *App) symbols(ctx context.Context, symbol string) ([]string, error) {
	if strings.TrimSpace(symbol) != "" {
		return []string{fxsymbol.Normalize(symbol)}, nil
	}
	return a.store.Rules().Symbols(ctx)
}

func (a *App) runner() (*backtest.Runner, error) {
	return backtest.NewRunner(backtest.RunnerConfig{
		Store:         a.store,
		Source:        a.source,
		ReplayCandles: a.cfg.Backtest.ReplayCandles,
		Now:           a.nowFn,
	})
}

// Backtest 清空日快照后回放指定品种（为空则全部）的每条规则。
// 每个品种只拉一次 K 线；单个品种失败不影响其余品种。
func (a *App) Backtest(ctx context.Context, symbol string) ([]backtest.Result, error) {
	symbols, err := a.symbols(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := a.store.DailyLogs().Truncate(ctx); err != nil {
		return nil, fmt.Errorf("truncate daily logs: %w", err)
	}
	runner, err := a.runner()
	if err != nil {
		return nil, err
	}
	opts := backtest.Options{DailyLog: a.cfg.Backtest.DailyLog}

	var (
		results []backtest.Result
		errs    []error
	)
	for _, sym := range symbols {
		res, err := a.backtestSymbol(ctx, runner, sym, opts)
		results = append(results, res...)
		if err != nil {
			logger.Errorf("[backtest] %s: %v", sym, err)
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
		}
	}
	return results, errors.Join(errs...)
}

func (a *App) backtestSymbol(ctx context.Context, runner *backtest.Runner, symbol string, opts backtest.Options) ([]backtest.Result, error) {
	list, err := a.store.Rules().ListBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no rules: %w", store.ErrNotFound)
	}
	win, err := runner.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	out := make([]backtest.Result, 0, len(list))
	for i := range list {
		res, err := runner.RunWindow(ctx, &list[i], win, opts)
		if err != nil {
			return out, fmt.Errorf("rule %d: %w", list[i].ID, err)
		}
		logger.Infof("[backtest] %s rule=%d term=%d days=%d closed=%d score=%s",
			symbol, res.RuleID, res.Term, res.Days, res.Closed, res.Score().StringFixed(2))
		out = append(out, res)
	}
	return out, nil
}

// Optimize 对指定品种（为空则全部）做网格搜索；clean 时每个 term 只留最优规则。
func (a *App) Optimize(ctx context.Context, symbol string, clean bool) ([]backtest.Summary, error) {
	symbols, err := a.symbols(ctx, symbol)
	if err != nil {
		return nil, err
	}
	runner, err := a.runner()
	if err != nil {
		return nil, err
	}
	opt, err := backtest.NewOptimizer(backtest.OptimizerConfig{
		Store:   a.store,
		Runner:  runner,
		Workers: a.cfg.Optimize.Workers,
	})
	if err != nil {
		return nil, err
	}
	cleaner := backtest.NewCleaner(a.store)

	var (
		out  []backtest.Summary
		errs []error
	)
	for _, sym := range symbols {
		sum, err := opt.Optimize(ctx, sym)
		if err != nil {
			logger.Errorf("[optimize] %s: %v", sym, err)
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
			continue
		}
		out = append(out, sum)
		if !clean {
			continue
		}
		if _, err := cleaner.Clean(ctx, sym); err != nil {
			errs = append(errs, fmt.Errorf("clean %s: %w", sym, err))
		}
	}
	return out, errors.Join(errs...)
}

// Export 写出全部规则参数；clean 时先对每个品种执行清理。
func (a *App) Export(ctx context.Context, w io.Writer, clean bool) (int, error) {
	if clean {
		symbols, err := a.symbols(ctx, "")
		if err != nil {
			return 0, err
		}
		cleaner := backtest.NewCleaner(a.store)
		for _, sym := range symbols {
			if _, err := cleaner.Clean(ctx, sym); err != nil {
				return 0, fmt.Errorf("clean %s: %w", sym, err)
			}
		}
	}
	return rules.Export(ctx, a.store.Rules(), w)
}

// Report 以实盘时钟评估全部规则并渲染日报；send 为 false 时只返回文本。
// 部分品种失败时仍然投递其余品种的结果，并返回汇总错误。
func (a *App) Report(ctx context.Context, send bool) (string, error) {
	a.mu.RLock()
	margin := a.margin
	n := a.notifier
	a.mu.RUnlock()
	if margin <= 0 {
		margin = a.cfg.Report.Margin
	}

	clock := trader.NewLiveClock(a.nowFn)
	items, buildErr := report.NewBuilder(a.store, a.source, clock, margin).Build(ctx)
	text := report.RenderText(items, a.nowFn())
	if !send || n == nil {
		return text, buildErr
	}
	if err := n.SendText(text); err != nil {
		return text, errors.Join(buildErr, fmt.Errorf("send report: %w", err))
	}
	return text, buildErr
}

// Daemon 按日线收盘对齐每天发送一次日报，直到 ctx 结束。
// watcher 非空时，推送通道与 margin 随配置文件热更新。
func (a *App) Daemon(ctx context.Context, watcher *config.Watcher) error {
	rc := a.cfg.Report
	sched := scheduler.NewDailyScheduler(rc.IntervalDuration(), rc.Offset())
	sched.Name = "report"
	sched.RunImmediately = rc.RunImmediately
	sched.SkipWeekends = true

	group, ctx := errgroup.WithContext(ctx)
	if watcher != nil {
		watcher.Subscribe(a.applySnapshot)
	}
	group.Go(func() error {
		err := sched.Run(ctx, func(ctx context.Context) error {
			_, err := a.Report(ctx, true)
			return err
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return group.Wait()
}

func (a *App) applySnapshot(snap config.Snapshot) {
	cfg := snap.Config
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.notifierFn != nil {
		a.notifier = a.notifierFn(cfg.Notify)
	}
	a.margin = cfg.Report.Margin
	logger.Infof("[report] config v%d applied (margin=%d)", snap.Version, cfg.Report.Margin)
}
