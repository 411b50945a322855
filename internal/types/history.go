package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionRecord 是一笔持仓记录，(OpenAt, RuleID, Action) 唯一。
// ClosePrice 为零表示仍未平仓。
type PositionRecord struct {
	ID                int64
	RuleID            int64
	Action            Action
	OpenAt            time.Time
	CloseAt           time.Time
	OpenPrice         decimal.Decimal
	ClosePrice        decimal.Decimal
	ProfitRate        decimal.Decimal
	MinProfitRate     decimal.Decimal
	MaxProfitRate     decimal.Decimal
	DaysHeld          int
	Overflow          int64
	OpenBandRangeRate int64
}

func (p *PositionRecord) IsClosed() bool {
	return !p.ClosePrice.IsZero()
}

// DailyLogEntry 是 (Date, RuleID) 唯一的日快照。
type DailyLogEntry struct {
	ID             int64
	Date           time.Time
	RuleID         int64
	Action         Action
	ProfitRate     decimal.Decimal
	IsUpdateAction bool
	IsOpenPos      bool
	IsClosePos     bool
}
