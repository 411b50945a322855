package strategy

import (
	"fxchannel/internal/market"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
)

// Params 是一次突破判定所需的参数。
type Params struct {
	Action           types.Action
	Length           int
	BandRangeRateMin int64
	Overflow         int64
	Precision        int32
}

// Breakout 是单次判定的结果，仅供调用方记录日志/开仓，不单独持久化。
type Breakout struct {
	Triggered     bool
	Channel       Channel
	Overflow      int64
	BandRangeRate int64
	ClosePrice    decimal.Decimal
	CloseTime     int
}

// ToPips 把价格差换算为点数：floor(x * 10^(precision-1))。
func ToPips(x decimal.Decimal, precision int32) int64 {
	return x.Shift(precision - 1).Floor().IntPart()
}

// DetectBreakout 判断最新收盘价是否以超过 overflow 的幅度突破通道阈值。
// 通道过窄（band_range_rate < min）时视为未突破。
func DetectBreakout(win market.Window, p Params) (Breakout, error) {
	ch, err := ChannelBands(win, p.Length, p.Precision)
	if err != nil {
		return Breakout{}, err
	}
	latest, _ := win.Latest()
	out := Breakout{
		Channel:       ch,
		BandRangeRate: ch.BandRangeRate(),
		ClosePrice:    latest.Close,
		CloseTime:     latest.Time,
	}
	if out.BandRangeRate < p.BandRangeRateMin {
		return out, nil
	}
	threshold := ch.High
	if p.Action.IsLong() {
		threshold = ch.Low
	}
	pips := ToPips(latest.Close.Sub(threshold), p.Precision)
	out.Overflow = abs64(pips)
	if p.Action.IsLong() {
		out.Triggered = pips < -p.Overflow
	} else {
		out.Triggered = pips > p.Overflow
	}
	return out, nil
}

// ParamsFor 从规则中取出指定窗口长度的判定参数。
func ParamsFor(rule *types.TradeRule, length int) Params {
	return Params{
		Action:           rule.Action,
		Length:           length,
		BandRangeRateMin: rule.Input.BandRangeRateMin,
		Overflow:         rule.Input.Overflow,
		Precision:        rule.Precision,
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
