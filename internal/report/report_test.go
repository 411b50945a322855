package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fxchannel/internal/market"
	"fxchannel/internal/store/memory"
	"fxchannel/internal/strategy"
	"fxchannel/internal/trader"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubSource struct {
	windows map[string]market.Window
}

func (s stubSource) Fetch(_ context.Context, symbol string, _ int) (market.Window, error) {
	win, ok := s.windows[symbol]
	if !ok {
		return market.Window{}, errors.New("no data")
	}
	return win, nil
}

func bar(day int, low, high, close string) market.Candle {
	return market.Candle{Time: day, Open: d(close), High: d(high), Low: d(low), Close: d(close)}
}

func TestBuilder_EvaluatesLiveAndJoinsErrors(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rule := &types.TradeRule{
		Symbol: "EUR_USD", Precision: 5, Term: types.Term180, Action: types.Long, OpenPrice: d("1.1040"),
		Input: types.Input{Length: 4, CloseLength: 4, BandRangeRateMin: 9},
	}
	require.NoError(t, st.Rules().Insert(ctx, rule))
	rule.LatestDay = types.DayFromInt(20240102)
	_, err := trader.NewLedger(st.Positions(), st.DailyLogs()).Open(ctx, rule, strategy.Breakout{})
	require.NoError(t, err)
	require.NoError(t, st.Rules().Insert(ctx, &types.TradeRule{
		Symbol: "USD_JPY", Precision: 3, Term: types.Term180, Action: types.Long,
		Input: types.Input{Length: 4, CloseLength: 4},
	}))

	src := stubSource{windows: map[string]market.Window{
		"EUR_USD": market.NewWindow([]market.Candle{
			bar(20240105, "1.0990", "1.1000", "1.0995"),
			bar(20240104, "1.1010", "1.1050", "1.1020"),
			bar(20240103, "1.1000", "1.1030", "1.1010"),
			bar(20240102, "1.1005", "1.1040", "1.1030"),
		}),
	}}
	clock := trader.NewLiveClock(func() time.Time { return time.Date(2024, 1, 5, 22, 0, 0, 0, time.UTC) })

	items, err := NewBuilder(st, src, clock, 0).Build(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USD_JPY")
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "EUR_USD", it.Symbol)
	assert.Equal(t, types.Short, it.Action)
	assert.True(t, it.IsUpdateAction)
	assert.True(t, it.IsClosePos)
	assert.Equal(t, 0, it.OpenedDays)
	assert.True(t, it.ProfitRate.IsZero())
	assert.True(t, it.ChangeRate.Equal(d("-0.23")), "chg=%s", it.ChangeRate)
	assert.True(t, it.BacktestLong.Equal(d("-0.41")))

	text := RenderText(items, time.Date(2024, 1, 5, 22, 0, 0, 0, time.UTC))
	assert.Contains(t, text, "EUR_USD")
	assert.Contains(t, text, "U-C")
	assert.Contains(t, text, "EUR_USD 180 -> short @ 1.0995")
	assert.True(t, strings.HasPrefix(text, "📈 FX Channel Daily"))
}

func TestFromRule_ActionAtMarksUpdate(t *testing.T) {
	day := types.DayFromInt(20240105)
	rule := &types.TradeRule{
		Symbol: "USD_CHF", Term: types.Term270, Action: types.Long,
		OpenPrice: d("0.85"), LatestClose: d("0.867"), LatestDay: day, ActionAt: day,
	}
	win := market.NewWindow([]market.Candle{bar(20240105, "0.86", "0.87", "0.867"), bar(20240104, "0.84", "0.86", "0.85")})
	s := FromRule(rule, win, -1)
	assert.True(t, s.IsUpdateAction)
	assert.True(t, s.ProfitRate.Equal(d("2")))
	assert.True(t, s.ChangeRate.Equal(d("2")))
	assert.Contains(t, s.line(), "     -")
}

func TestRenderText_Empty(t *testing.T) {
	text := RenderText(nil, time.Time{})
	assert.Contains(t, text, "SYMBOL")
	assert.Contains(t, text, "no trade rules")
}
