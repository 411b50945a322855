package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TradeRuleModel 对应 trade_rules 表；input 以 JSON 文本保存参数集。
type TradeRuleModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	Symbol        string          `gorm:"column:symbol;index:idx_trade_rule_symbol_term,priority:1"`
	Term          int             `gorm:"column:term;index:idx_trade_rule_symbol_term,priority:2"`
	Precision     int32           `gorm:"column:precision;default:5"`
	Action        string          `gorm:"column:action;default:long"`
	OpenPrice     decimal.Decimal `gorm:"column:open_price;type:TEXT"`
	ActionAt      int             `gorm:"column:action_at"`
	Input         datatypes.JSON  `gorm:"column:input;type:TEXT"`
	BacktestLong  decimal.Decimal `gorm:"column:backtest_long;type:TEXT"`
	BacktestShort decimal.Decimal `gorm:"column:backtest_short;type:TEXT"`
	BacktestCnt   int             `gorm:"column:backtest_cnt"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (TradeRuleModel) TableName() string { return "trade_rules" }

// TradeHistoryModel 对应 trade_histories 表，(open_at, trade_rule_id, action) 唯一。
type TradeHistoryModel struct {
	ID                int64           `gorm:"column:id;primaryKey"`
	OpenAt            int             `gorm:"column:open_at;uniqueIndex:idx_trade_history,priority:1"`
	TradeRuleID       int64           `gorm:"column:trade_rule_id;uniqueIndex:idx_trade_history,priority:2;index"`
	Action            string          `gorm:"column:action;uniqueIndex:idx_trade_history,priority:3"`
	CloseAt           int             `gorm:"column:close_at"`
	OpenPrice         decimal.Decimal `gorm:"column:open_price;type:TEXT"`
	ClosePrice        decimal.Decimal `gorm:"column:close_price;type:TEXT"`
	ProfitRate        decimal.Decimal `gorm:"column:profit_rate;type:TEXT"`
	MinProfitRate     decimal.Decimal `gorm:"column:min_profit_rate;type:TEXT"`
	MaxProfitRate     decimal.Decimal `gorm:"column:max_profit_rate;type:TEXT"`
	DaysHeld          int             `gorm:"column:days_held"`
	Overflow          int64           `gorm:"column:overflow"`
	OpenBandRangeRate int64           `gorm:"column:open_band_range"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (TradeHistoryModel) TableName() string { return "trade_histories" }

// DailyLogModel 对应 daily_logs 表，(date_at, trade_rule_id) 唯一。
type DailyLogModel struct {
	ID             int64           `gorm:"column:id;primaryKey"`
	DateAt         int             `gorm:"column:date_at;uniqueIndex:idx_daily_log,priority:1"`
	TradeRuleID    int64           `gorm:"column:trade_rule_id;uniqueIndex:idx_daily_log,priority:2;index"`
	Action         string          `gorm:"column:action"`
	ProfitRate     decimal.Decimal `gorm:"column:profit_rate;type:TEXT"`
	IsUpdateAction bool            `gorm:"column:is_update_action"`
	IsOpenPos      bool            `gorm:"column:is_open_pos"`
	IsClosePos     bool            `gorm:"column:is_close_pos"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (DailyLogModel) TableName() string { return "daily_logs" }
