package backtest

import "fxchannel/internal/types"

// 网格搜索的取值范围。
var (
	GridTerms         = []int{types.Term180, types.Term270, types.Term360}
	gridLengthFrom    = 3
	gridLengthTo      = 13
	gridBandRangeFrom = int64(7)
	gridBandRangeTo   = int64(23)
	gridStep          = 2
)

// Grid 以 base 为模板枚举 term × length × band_range_rate_min 的全部变体，
// close_length 与 length 相同。
func Grid(base types.TradeRule) []types.TradeRule {
	var out []types.TradeRule
	for _, term := range GridTerms {
		for length := gridLengthFrom; length <= gridLengthTo; length += gridStep {
			for brm := gridBandRangeFrom; brm <= gridBandRangeTo; brm += int64(gridStep) {
				in := base.Input
				in.Length = length
				in.CloseLength = length
				in.BandRangeRateMin = brm
				out = append(out, base.Variant(term, in))
			}
		}
	}
	return out
}
