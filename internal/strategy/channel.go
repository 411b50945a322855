package strategy

import (
	"errors"
	"fmt"

	"fxchannel/internal/market"

	"github.com/shopspring/decimal"
)

// ErrInsufficientHistory 表示 K 线数量不足以计算通道；调用方应提前多请求几根，
// 而不是在这里兜底。
var ErrInsufficientHistory = errors.New("insufficient candle history")

// Channel 是回看窗口内的 (最低价, 最高价)。
type Channel struct {
	Low  decimal.Decimal
	High decimal.Decimal
}

// ChannelBands 计算长度为 length 的通道：先排除最新一根（当日尚在评估的 K 线），
// 再取其后 length-1 根的 min(low) / max(high)，并按品种精度四舍五入。
func ChannelBands(win market.Window, length int, precision int32) (Channel, error) {
	if length < 2 {
		return Channel{}, fmt.Errorf("channel length must be >= 2, got %d", length)
	}
	if win.Len() < length {
		return Channel{}, fmt.Errorf("%w: need %d candles, have %d", ErrInsufficientHistory, length, win.Len())
	}
	subset := win.Range(1, length-1)
	low, high := subset[0].Low, subset[0].High
	for _, c := range subset[1:] {
		if c.Low.LessThan(low) {
			low = c.Low
		}
		if c.High.GreaterThan(high) {
			high = c.High
		}
	}
	return Channel{
		Low:  low.Round(precision),
		High: high.Round(precision),
	}, nil
}

// BandRangeRate 为通道宽度相对最高价的万分比：round((1 - low/high) * 10000)。
func (c Channel) BandRangeRate() int64 {
	if c.High.IsZero() {
		return 0
	}
	rate := decimal.NewFromInt(1).Sub(c.Low.Div(c.High)).Shift(4)
	return rate.Round(0).IntPart()
}
