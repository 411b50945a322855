package strategy

import (
	"fxchannel/internal/market"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProfitRate = round((close - open) * sign / open * 100, 2)；open 为 0（规则尚未建仓）时为 0。
func ProfitRate(open, close decimal.Decimal, sign int64) decimal.Decimal {
	if open.IsZero() {
		return decimal.Zero
	}
	diff := close.Sub(open).Mul(decimal.NewFromInt(sign))
	return diff.Div(open).Mul(hundred).Round(2)
}

// ChangeRate 为最新收盘相对前一日收盘的涨跌幅（%，两位小数）。
func ChangeRate(win market.Window) decimal.Decimal {
	if win.Len() < 2 {
		return decimal.Zero
	}
	cur, prev := win.At(0).Close, win.At(1).Close
	if prev.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(prev).Div(prev).Mul(hundred).Round(2)
}

// SumRates 对一组收益率求和。
func SumRates(rates []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rates {
		sum = sum.Add(r)
	}
	return sum
}
