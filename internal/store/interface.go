package store

import (
	"context"
	"errors"
	"time"

	"fxchannel/internal/types"
)

var (
	// ErrNotFound 查询的记录不存在。
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput 写入参数不合法。
	ErrInvalidInput = errors.New("invalid input")
)

// RuleFilter 描述批量删除的条件；零值字段不参与过滤，全部为零值时拒绝执行。
type RuleFilter struct {
	Symbol string
	Term   int
	IDs    []int64
}

func (f RuleFilter) Empty() bool {
	return f.Symbol == "" && f.Term == 0 && len(f.IDs) == 0
}

// RuleStore 持久化交易规则。
type RuleStore interface {
	Get(ctx context.Context, id int64) (*types.TradeRule, error)
	// ListBySymbol 按 id 升序返回。
	ListBySymbol(ctx context.Context, symbol string) ([]types.TradeRule, error)
	ListBySymbolTerm(ctx context.Context, symbol string, term int) ([]types.TradeRule, error)
	Symbols(ctx context.Context) ([]string, error)
	// Insert 写入新规则并回填 ID。
	Insert(ctx context.Context, rule *types.TradeRule) error
	// Upsert 按 id 冲突时只更新状态列（方向、开仓价、成绩等）。
	Upsert(ctx context.Context, rules ...*types.TradeRule) error
	// UpsertInputs 按 id 冲突时只更新 input（初始化导入使用）。
	UpsertInputs(ctx context.Context, rules []types.TradeRule) error
	Delete(ctx context.Context, filter RuleFilter) (int64, error)
	// Each 分批遍历全部规则，避免一次性加载。
	Each(ctx context.Context, batch int, fn func(rule *types.TradeRule) error) error
}

// PositionStore 持久化持仓记录。
type PositionStore interface {
	// InsertIfAbsent 以 (OpenAt, RuleID, Action) 去重；已存在时返回 false。
	InsertIfAbsent(ctx context.Context, rec *types.PositionRecord) (bool, error)
	// Latest 返回该规则该方向 id 最大的一条。
	Latest(ctx context.Context, ruleID int64, action types.Action) (*types.PositionRecord, error)
	Update(ctx context.Context, rec *types.PositionRecord) error
	ListByRule(ctx context.Context, ruleID int64) ([]types.PositionRecord, error)
	DeleteByRule(ctx context.Context, ruleIDs ...int64) error
}

// DailyLogStore 持久化日快照。
type DailyLogStore interface {
	// InsertIfAbsent 以 (Date, RuleID) 去重。
	InsertIfAbsent(ctx context.Context, entry *types.DailyLogEntry) (bool, error)
	// ListUntil 返回 date <= day 的记录，最新在前。
	ListUntil(ctx context.Context, ruleID int64, day time.Time) ([]types.DailyLogEntry, error)
	DeleteByRule(ctx context.Context, ruleIDs ...int64) error
	Truncate(ctx context.Context) error
}

// Store 聚合全部仓储。
type Store interface {
	Rules() RuleStore
	Positions() PositionStore
	DailyLogs() DailyLogStore
	Close() error
}
