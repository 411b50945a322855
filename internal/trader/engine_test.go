package trader

import (
	"context"
	"testing"
	"time"

	"fxchannel/internal/market"
	"fxchannel/internal/store/memory"
	"fxchannel/internal/strategy"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	today    time.Time
	active   bool
	dailyLog bool
}

func (c fixedClock) Today() time.Time { return c.today }
func (c fixedClock) Active() bool     { return c.active }
func (c fixedClock) DailyLog() bool   { return c.dailyLog }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bar(day int, low, high, close string) market.Candle {
	return market.Candle{Time: day, Open: d(close), High: d(high), Low: d(low), Close: d(close)}
}

// breakoutWindow: 通道 (1.1000, 1.1050)，20240105 收于 1.0995，向下突破 5 点。
func breakoutWindow(extra ...market.Candle) market.Window {
	candles := []market.Candle{
		bar(20240105, "1.0990", "1.1000", "1.0995"),
		bar(20240104, "1.1010", "1.1050", "1.1020"),
		bar(20240103, "1.1000", "1.1030", "1.1010"),
		bar(20240102, "1.1005", "1.1040", "1.1030"),
	}
	return market.NewWindow(append(candles, extra...))
}

func replayClock(day int) fixedClock {
	return fixedClock{today: types.DayFromInt(day), active: true, dailyLog: true}
}

func seedRule(t *testing.T, st *memory.Store) *types.TradeRule {
	t.Helper()
	rule := &types.TradeRule{
		Symbol:    "EUR_USD",
		Precision: 5,
		Term:      types.Term180,
		Action:    types.Long,
		OpenPrice: d("1.1040"),
		Input:     types.Input{Length: 4, CloseLength: 4, BandRangeRateMin: 9},
	}
	require.NoError(t, st.Rules().Insert(context.Background(), rule))
	rule.LatestDay = types.DayFromInt(20240102)
	_, err := NewLedger(st.Positions(), st.DailyLogs()).Open(context.Background(), rule, strategy.Breakout{})
	require.NoError(t, err)
	return rule
}

func TestEngine_BreakoutClosesAndFlips(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rule := seedRule(t, st)
	eng := NewEngine(st)

	require.NoError(t, eng.Evaluate(ctx, replayClock(20240105), rule, breakoutWindow()))

	assert.Equal(t, types.Short, rule.Action)
	assert.Equal(t, int64(-1), rule.Sign())
	assert.True(t, rule.OpenPrice.Equal(d("1.0995")))
	assert.Equal(t, 20240105, types.DayToInt(rule.ActionAt))
	assert.True(t, rule.IsUpdateAction)
	assert.True(t, rule.IsClosePos)
	assert.False(t, rule.IsOpenPos)

	records, err := st.Positions().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	closed := records[0]
	assert.True(t, closed.IsClosed())
	assert.True(t, closed.ProfitRate.Equal(d("-0.41")), "profit=%s", closed.ProfitRate)
	assert.Equal(t, 3, closed.DaysHeld)
	opened := records[1]
	assert.Equal(t, types.Short, opened.Action)
	assert.False(t, opened.IsClosed())
	assert.Equal(t, int64(5), opened.Overflow)
	assert.Equal(t, int64(45), opened.OpenBandRangeRate)

	stored, err := st.Rules().Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Short, stored.Action)
	assert.True(t, stored.Score().IsZero(), "replay scores are computed at run end")

	logs, err := st.DailyLogs().ListUntil(ctx, rule.ID, types.DayFromInt(20240105))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.Short, logs[0].Action)
	assert.True(t, logs[0].IsUpdateAction)
}

func TestEngine_SameDayReevaluationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rule := seedRule(t, st)
	eng := NewEngine(st)
	clock := replayClock(20240105)

	require.NoError(t, eng.Evaluate(ctx, clock, rule, breakoutWindow()))
	require.NoError(t, eng.Evaluate(ctx, clock, rule, breakoutWindow()))

	records, err := st.Positions().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, types.Short, rule.Action)
}

func TestEngine_IgnoresBarsAfterClockDay(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rule := seedRule(t, st)
	eng := NewEngine(st)

	// 20240108 的 K 线远高于通道，若被看到则不会触发向下突破。
	win := breakoutWindow(bar(20240108, "1.1900", "1.2100", "1.2000"))
	require.NoError(t, eng.Evaluate(ctx, replayClock(20240105), rule, win))

	assert.Equal(t, 20240105, types.DayToInt(rule.LatestDay))
	assert.True(t, rule.LatestClose.Equal(d("1.0995")))
	assert.True(t, rule.IsUpdateAction)
}

func TestEngine_LiveCloseRecomputesScore(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rule := seedRule(t, st)
	eng := NewEngine(st)
	clock := fixedClock{today: types.DayFromInt(20240105)}

	require.NoError(t, eng.Evaluate(ctx, clock, rule, breakoutWindow()))

	assert.True(t, rule.BacktestLong.Equal(d("-0.41")))
	assert.True(t, rule.BacktestShort.IsZero())
	assert.Equal(t, 1, rule.BacktestCnt)

	logs, err := st.DailyLogs().ListUntil(ctx, rule.ID, clock.Today())
	require.NoError(t, err)
	assert.Empty(t, logs, "live evaluations do not write daily logs")
}

func TestEngine_OpenFlagIsSignalOnly(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rule := seedRule(t, st)
	rule.Input.BandRangeRateMin = 100
	rule.Input.ProfitRateTrigger = 1
	eng := NewEngine(st)

	require.NoError(t, eng.Evaluate(ctx, replayClock(20240105), rule, breakoutWindow()))

	assert.False(t, rule.IsUpdateAction)
	assert.True(t, rule.IsOpenPos)
	records, err := st.Positions().ListByRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEngine_InsufficientHistory(t *testing.T) {
	st := memory.New()
	rule := seedRule(t, st)
	rule.Input.Length = 10
	err := NewEngine(st).Evaluate(context.Background(), replayClock(20240105), rule, breakoutWindow())
	assert.ErrorIs(t, err, strategy.ErrInsufficientHistory)

	err = NewEngine(st).Evaluate(context.Background(), replayClock(20231229), rule, breakoutWindow())
	assert.ErrorIs(t, err, strategy.ErrInsufficientHistory)
}
