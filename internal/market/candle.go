package market

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Candle 是一根已收盘的日线，Time 为 YYYYMMDD。
type Candle struct {
	Time  int             `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// Window 是单个品种历史 K 线的只读视图，按时间倒序（最新在前）。
type Window struct {
	candles []Candle
}

// NewWindow 复制并按 Time 倒序整理输入，重复日期只保留第一条。
func NewWindow(candles []Candle) Window {
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time > out[j].Time })
	dedup := out[:0]
	for i, c := range out {
		if i > 0 && c.Time == out[i-1].Time {
			continue
		}
		dedup = append(dedup, c)
	}
	return Window{candles: dedup}
}

func (w Window) Len() int { return len(w.candles) }

// At 返回第 i 根（0 为最新）。
func (w Window) At(i int) Candle { return w.candles[i] }

// Latest 返回最新一根。
func (w Window) Latest() (Candle, bool) {
	if len(w.candles) == 0 {
		return Candle{}, false
	}
	return w.candles[0], true
}

// Until 只保留 Time <= day 的 K 线；回测据此屏蔽“未来”数据。
func (w Window) Until(day int) Window {
	idx := sort.Search(len(w.candles), func(i int) bool { return w.candles[i].Time <= day })
	return Window{candles: w.candles[idx:]}
}

// Range 返回从 offset 起的 n 根（滚动子集）；越界时截断。
func (w Window) Range(offset, n int) []Candle {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(w.candles) || n <= 0 {
		return nil
	}
	end := offset + n
	if end > len(w.candles) {
		end = len(w.candles)
	}
	out := make([]Candle, end-offset)
	copy(out, w.candles[offset:end])
	return out
}

// Head 返回最新的 n 根。
func (w Window) Head(n int) Window {
	if n >= len(w.candles) {
		return w
	}
	if n < 0 {
		n = 0
	}
	return Window{candles: w.candles[:n]}
}

// Candles 返回副本。
func (w Window) Candles() []Candle {
	return w.Range(0, len(w.candles))
}
