package sqlite

import (
	"context"
	"testing"
	"time"

	"fxchannel/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(day int, close string) market.Candle {
	c := decimal.RequireFromString(close)
	return market.Candle{Time: day, Open: c, High: c, Low: c, Close: c}
}

func TestCandleStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s, err := NewCandleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	list, fetchedAt, err := s.LoadCandles(ctx, "usd_jpy")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, fetchedAt.IsZero())

	now := time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveCandles(ctx, "USD_JPY", []market.Candle{
		candle(20240105, "144.610"),
		candle(20240104, "144.540"),
	}, now))
	require.NoError(t, s.SaveCandles(ctx, "USD_JPY", []market.Candle{
		candle(20240105, "144.620"),
	}, now.Add(time.Hour)))

	list, fetchedAt, err = s.LoadCandles(ctx, "USD_JPY")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 20240104, list[0].Time)
	assert.True(t, list[1].Close.Equal(decimal.RequireFromString("144.62")))
	assert.Equal(t, now.Add(time.Hour).UnixMilli(), fetchedAt.UnixMilli())

	other, _, err := s.LoadCandles(ctx, "EUR_USD")
	require.NoError(t, err)
	assert.Empty(t, other)
}
