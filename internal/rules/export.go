package rules

import (
	"context"
	"fmt"
	"io"

	"fxchannel/internal/store"
	"fxchannel/internal/types"

	"gopkg.in/yaml.v3"
)

// ExportItem 是导出文件中的一条规则。
type ExportItem struct {
	ID            int64       `yaml:"id"`
	Symbol        string      `yaml:"symbol"`
	Term          int         `yaml:"term"`
	Action        string      `yaml:"action"`
	BacktestLong  string      `yaml:"backtest_long"`
	BacktestShort string      `yaml:"backtest_short"`
	BacktestCnt   int         `yaml:"backtest_cnt"`
	Input         types.Input `yaml:"input"`
}

type exportFile struct {
	Rules []ExportItem `yaml:"rules"`
}

// Export 把全部规则的参数写成 YAML，返回条数。
func Export(ctx context.Context, rs store.RuleStore, w io.Writer) (int, error) {
	var file exportFile
	err := rs.Each(ctx, 200, func(r *types.TradeRule) error {
		file.Rules = append(file.Rules, ExportItem{
			ID:            r.ID,
			Symbol:        r.Symbol,
			Term:          r.Term,
			Action:        r.Action.String(),
			BacktestLong:  r.BacktestLong.StringFixed(2),
			BacktestShort: r.BacktestShort.StringFixed(2),
			BacktestCnt:   r.BacktestCnt,
			Input:         r.Input,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return 0, fmt.Errorf("encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	return len(file.Rules), nil
}
