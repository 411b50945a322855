package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fxchannel/internal/store"
	"fxchannel/internal/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RuleRepo implements store.RuleStore.
type RuleRepo struct {
	db *gorm.DB
}

var stateColumns = []string{
	"term", "action", "open_price", "action_at",
	"backtest_long", "backtest_short", "backtest_cnt", "updated_at",
}

func (r *RuleRepo) Get(ctx context.Context, id int64) (*types.TradeRule, error) {
	var m tradeRuleModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rule, err := ruleFromModel(m)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepo) ListBySymbol(ctx context.Context, symbol string) ([]types.TradeRule, error) {
	var rows []tradeRuleModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ?", strings.ToUpper(symbol)).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rulesFromModels(rows)
}

func (r *RuleRepo) ListBySymbolTerm(ctx context.Context, symbol string, term int) ([]types.TradeRule, error) {
	var rows []tradeRuleModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND term = ?", strings.ToUpper(symbol), term).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rulesFromModels(rows)
}

func (r *RuleRepo) Symbols(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).
		Model(&tradeRuleModel{}).
		Distinct("symbol").
		Order("symbol ASC").
		Pluck("symbol", &out).Error
	return out, err
}

func (r *RuleRepo) Insert(ctx context.Context, rule *types.TradeRule) error {
	if rule == nil || rule.Symbol == "" {
		return store.ErrInvalidInput
	}
	m, err := newTradeRuleModel(*rule)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	rule.ID = m.ID
	return nil
}

func (r *RuleRepo) Upsert(ctx context.Context, rules ...*types.TradeRule) error {
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		m, err := newTradeRuleModel(*rule)
		if err != nil {
			return err
		}
		err = r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(stateColumns),
			}).
			Create(&m).Error
		if err != nil {
			return fmt.Errorf("upsert trade rule %d: %w", rule.ID, err)
		}
		rule.ID = m.ID
	}
	return nil
}

func (r *RuleRepo) UpsertInputs(ctx context.Context, rules []types.TradeRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rule := range rules {
			m, err := newTradeRuleModel(rule)
			if err != nil {
				return err
			}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"input", "updated_at"}),
			}).Create(&m).Error
			if err != nil {
				return fmt.Errorf("upsert input %s: %w", rule.Symbol, err)
			}
		}
		return nil
	})
}

func (r *RuleRepo) Delete(ctx context.Context, filter store.RuleFilter) (int64, error) {
	if filter.Empty() {
		return 0, store.ErrInvalidInput
	}
	q := r.db.WithContext(ctx)
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", strings.ToUpper(filter.Symbol))
	}
	if filter.Term != 0 {
		q = q.Where("term = ?", filter.Term)
	}
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	res := q.Delete(&tradeRuleModel{})
	return res.RowsAffected, res.Error
}

func (r *RuleRepo) Each(ctx context.Context, batch int, fn func(rule *types.TradeRule) error) error {
	if batch <= 0 {
		batch = 100
	}
	var rows []tradeRuleModel
	res := r.db.WithContext(ctx).Order("id ASC").FindInBatches(&rows, batch, func(tx *gorm.DB, _ int) error {
		for _, m := range rows {
			rule, err := ruleFromModel(m)
			if err != nil {
				return err
			}
			if err := fn(&rule); err != nil {
				return err
			}
		}
		return nil
	})
	return res.Error
}

func newTradeRuleModel(rule types.TradeRule) (tradeRuleModel, error) {
	if err := rule.Input.Validate(); err != nil {
		return tradeRuleModel{}, fmt.Errorf("trade rule %d: %w", rule.ID, err)
	}
	raw, err := json.Marshal(rule.Input)
	if err != nil {
		return tradeRuleModel{}, fmt.Errorf("encode input: %w", err)
	}
	m := tradeRuleModel{
		ID:            rule.ID,
		Symbol:        strings.ToUpper(rule.Symbol),
		Term:          rule.Term,
		Precision:     rule.Precision,
		Action:        rule.Action.String(),
		OpenPrice:     rule.OpenPrice,
		Input:         datatypes.JSON(raw),
		BacktestLong:  rule.BacktestLong,
		BacktestShort: rule.BacktestShort,
		BacktestCnt:   rule.BacktestCnt,
	}
	if !rule.ActionAt.IsZero() {
		m.ActionAt = types.DayToInt(rule.ActionAt)
	}
	if m.Precision == 0 {
		m.Precision = types.PrecisionForSymbol(m.Symbol)
	}
	return m, nil
}

func ruleFromModel(m tradeRuleModel) (types.TradeRule, error) {
	action, err := types.ParseAction(m.Action)
	if err != nil {
		return types.TradeRule{}, fmt.Errorf("trade rule %d: %w", m.ID, err)
	}
	rule := types.TradeRule{
		ID:            m.ID,
		Symbol:        m.Symbol,
		Term:          m.Term,
		Precision:     m.Precision,
		Action:        action,
		OpenPrice:     m.OpenPrice,
		BacktestLong:  m.BacktestLong,
		BacktestShort: m.BacktestShort,
		BacktestCnt:   m.BacktestCnt,
	}
	if m.ActionAt > 0 {
		rule.ActionAt = types.DayFromInt(m.ActionAt)
	}
	// input 经 Input.UnmarshalJSON 的 schema 校验，手工改坏的行在读取时即报错。
	if len(m.Input) > 0 {
		if err := json.Unmarshal(m.Input, &rule.Input); err != nil {
			return types.TradeRule{}, fmt.Errorf("trade rule %d input: %w", m.ID, err)
		}
	}
	return rule, nil
}

func rulesFromModels(rows []tradeRuleModel) ([]types.TradeRule, error) {
	out := make([]types.TradeRule, 0, len(rows))
	for _, m := range rows {
		rule, err := ruleFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}
