package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction(t *testing.T) {
	a, err := ParseAction(" Short ")
	require.NoError(t, err)
	assert.Equal(t, Short, a)
	assert.Equal(t, int64(-1), a.Sign())
	assert.Equal(t, Long, a.Flip())
	assert.Equal(t, int64(1), Long.Sign())

	_, err = ParseAction("flat")
	assert.Error(t, err)

	b, err := Long.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "long", string(b))
	_, err = Action(0).MarshalText()
	assert.Error(t, err)
}

func TestInputPayload(t *testing.T) {
	in := Input{Length: 9, CloseLength: 7, BandRangeRateMin: 15, Overflow: 2, ProfitRateTrigger: 1.5, Ratio: 1.66}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"length":9,"close_length":7,"band_range_rate":{"min":15},"overflow":2,"profit_rate_trigger":1.5,"ratio":1.66}`, string(b))

	var back Input
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, in, back)
	assert.Equal(t, 9, back.MaxLength())
}

func TestInputValidate(t *testing.T) {
	assert.NoError(t, Input{Length: 2, CloseLength: 2}.Validate())
	assert.Error(t, Input{Length: 1, CloseLength: 2}.Validate())
	assert.Error(t, Input{Length: 2, CloseLength: 0}.Validate())
	assert.Error(t, Input{Length: 2, CloseLength: 2, Overflow: -1}.Validate())
	assert.Error(t, Input{Length: 2, CloseLength: 2, BandRangeRateMin: -3}.Validate())
	assert.Error(t, Input{Length: 2, CloseLength: 2, Ratio: -1}.Validate())
}

func TestInputUnmarshalRejectsMalformedPayload(t *testing.T) {
	cases := map[string]string{
		"string length":     `{"length":"x","close_length":5,"band_range_rate":{"min":3},"overflow":0,"profit_rate_trigger":0,"ratio":1}`,
		"negative ratio":    `{"length":5,"close_length":5,"band_range_rate":{"min":3},"overflow":0,"profit_rate_trigger":0,"ratio":-1}`,
		"negative band min": `{"length":5,"close_length":5,"band_range_rate":{"min":-1},"overflow":0,"profit_rate_trigger":0,"ratio":1}`,
		"fractional length": `{"length":5.5,"close_length":5,"band_range_rate":{"min":3},"overflow":0,"profit_rate_trigger":0,"ratio":1}`,
		"missing ratio":     `{"length":5,"close_length":5,"band_range_rate":{"min":3},"overflow":0,"profit_rate_trigger":0}`,
		"unknown field":     `{"length":5,"close_length":5,"band_range_rate":{"min":3},"overflow":0,"profit_rate_trigger":0,"ratio":1,"lenght":9}`,
		"not an object":     `[1,2,3]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var in Input
			err := json.Unmarshal([]byte(raw), &in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid input payload")
		})
	}

	var ok Input
	require.NoError(t, json.Unmarshal([]byte(`{"length":5,"close_length":3,"band_range_rate":{"min":3},"overflow":1,"profit_rate_trigger":-0.5,"ratio":0}`), &ok))
	assert.Equal(t, Input{Length: 5, CloseLength: 3, BandRangeRateMin: 3, Overflow: 1, ProfitRateTrigger: -0.5}, ok)
}

func TestDayHelpers(t *testing.T) {
	d := time.Date(2024, 7, 5, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, 20240705, DayToInt(d))
	assert.Equal(t, time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), DayFromInt(20240705))
	assert.Equal(t, 3, DaysBetween(d, time.Date(2024, 7, 8, 1, 0, 0, 0, time.UTC)))
}

func TestVariantResetsScores(t *testing.T) {
	r := TradeRule{ID: 7, Symbol: "USD_JPY", Term: Term180, BacktestLong: decimal.NewFromInt(3), BacktestCnt: 2, IsOpenPos: true}
	v := r.Variant(Term360, Input{Length: 5, CloseLength: 5})
	assert.Zero(t, v.ID)
	assert.Equal(t, Term360, v.Term)
	assert.True(t, v.Score().IsZero())
	assert.Zero(t, v.BacktestCnt)
	assert.False(t, v.IsOpenPos)
	assert.Equal(t, int32(3), PrecisionForSymbol("usd_jpy"))
	assert.Equal(t, int32(5), PrecisionForSymbol("EUR_USD"))
}
