package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fxchannel/internal/store"
	"fxchannel/internal/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PositionRepo implements store.PositionStore.
type PositionRepo struct {
	db *gorm.DB
}

func (r *PositionRepo) InsertIfAbsent(ctx context.Context, rec *types.PositionRecord) (bool, error) {
	if rec == nil || rec.RuleID == 0 || rec.OpenAt.IsZero() {
		return false, store.ErrInvalidInput
	}
	m := newTradeHistoryModel(*rec)
	m.ID = 0
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	rec.ID = m.ID
	return true, nil
}

func (r *PositionRepo) Latest(ctx context.Context, ruleID int64, action types.Action) (*types.PositionRecord, error) {
	var m tradeHistoryModel
	err := r.db.WithContext(ctx).
		Where("trade_rule_id = ? AND action = ?", ruleID, action.String()).
		Order("id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec, err := positionFromModel(m)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PositionRepo) Update(ctx context.Context, rec *types.PositionRecord) error {
	if rec == nil || rec.ID == 0 {
		return store.ErrInvalidInput
	}
	m := newTradeHistoryModel(*rec)
	res := r.db.WithContext(ctx).
		Model(&tradeHistoryModel{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"close_at":        m.CloseAt,
			"close_price":     m.ClosePrice,
			"profit_rate":     m.ProfitRate,
			"min_profit_rate": m.MinProfitRate,
			"max_profit_rate": m.MaxProfitRate,
			"days_held":       m.DaysHeld,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PositionRepo) ListByRule(ctx context.Context, ruleID int64) ([]types.PositionRecord, error) {
	var rows []tradeHistoryModel
	if err := r.db.WithContext(ctx).
		Where("trade_rule_id = ?", ruleID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.PositionRecord, 0, len(rows))
	for _, m := range rows {
		rec, err := positionFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *PositionRepo) DeleteByRule(ctx context.Context, ruleIDs ...int64) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("trade_rule_id IN ?", ruleIDs).
		Delete(&tradeHistoryModel{}).Error
}

// DailyLogRepo implements store.DailyLogStore.
type DailyLogRepo struct {
	db *gorm.DB
}

func (r *DailyLogRepo) InsertIfAbsent(ctx context.Context, entry *types.DailyLogEntry) (bool, error) {
	if entry == nil || entry.RuleID == 0 || entry.Date.IsZero() {
		return false, store.ErrInvalidInput
	}
	m := dailyLogModel{
		DateAt:         types.DayToInt(entry.Date),
		TradeRuleID:    entry.RuleID,
		Action:         entry.Action.String(),
		ProfitRate:     entry.ProfitRate,
		IsUpdateAction: entry.IsUpdateAction,
		IsOpenPos:      entry.IsOpenPos,
		IsClosePos:     entry.IsClosePos,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	entry.ID = m.ID
	return true, nil
}

func (r *DailyLogRepo) ListUntil(ctx context.Context, ruleID int64, day time.Time) ([]types.DailyLogEntry, error) {
	var rows []dailyLogModel
	if err := r.db.WithContext(ctx).
		Where("trade_rule_id = ? AND date_at <= ?", ruleID, types.DayToInt(day)).
		Order("date_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.DailyLogEntry, 0, len(rows))
	for _, m := range rows {
		action, err := types.ParseAction(m.Action)
		if err != nil {
			return nil, fmt.Errorf("daily log %d: %w", m.ID, err)
		}
		out = append(out, types.DailyLogEntry{
			ID:             m.ID,
			Date:           types.DayFromInt(m.DateAt),
			RuleID:         m.TradeRuleID,
			Action:         action,
			ProfitRate:     m.ProfitRate,
			IsUpdateAction: m.IsUpdateAction,
			IsOpenPos:      m.IsOpenPos,
			IsClosePos:     m.IsClosePos,
		})
	}
	return out, nil
}

func (r *DailyLogRepo) DeleteByRule(ctx context.Context, ruleIDs ...int64) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("trade_rule_id IN ?", ruleIDs).
		Delete(&dailyLogModel{}).Error
}

func (r *DailyLogRepo) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&dailyLogModel{}).Error
}

func newTradeHistoryModel(rec types.PositionRecord) tradeHistoryModel {
	m := tradeHistoryModel{
		ID:                rec.ID,
		OpenAt:            types.DayToInt(rec.OpenAt),
		TradeRuleID:       rec.RuleID,
		Action:            rec.Action.String(),
		OpenPrice:         rec.OpenPrice,
		ClosePrice:        rec.ClosePrice,
		ProfitRate:        rec.ProfitRate,
		MinProfitRate:     rec.MinProfitRate,
		MaxProfitRate:     rec.MaxProfitRate,
		DaysHeld:          rec.DaysHeld,
		Overflow:          rec.Overflow,
		OpenBandRangeRate: rec.OpenBandRangeRate,
	}
	if !rec.CloseAt.IsZero() {
		m.CloseAt = types.DayToInt(rec.CloseAt)
	}
	return m
}

func positionFromModel(m tradeHistoryModel) (types.PositionRecord, error) {
	action, err := types.ParseAction(m.Action)
	if err != nil {
		return types.PositionRecord{}, fmt.Errorf("trade history %d: %w", m.ID, err)
	}
	rec := types.PositionRecord{
		ID:                m.ID,
		RuleID:            m.TradeRuleID,
		Action:            action,
		OpenAt:            types.DayFromInt(m.OpenAt),
		OpenPrice:         m.OpenPrice,
		ClosePrice:        m.ClosePrice,
		ProfitRate:        m.ProfitRate,
		MinProfitRate:     m.MinProfitRate,
		MaxProfitRate:     m.MaxProfitRate,
		DaysHeld:          m.DaysHeld,
		Overflow:          m.Overflow,
		OpenBandRangeRate: m.OpenBandRangeRate,
	}
	if m.CloseAt > 0 {
		rec.CloseAt = types.DayFromInt(m.CloseAt)
	}
	return rec, nil
}
