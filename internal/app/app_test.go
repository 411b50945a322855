package app

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"fxchannel/internal/config"
	"fxchannel/internal/market"
	"fxchannel/internal/store/memory"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

// waveSource 对所有品种返回同一条正弦日线；failing 中的品种返回错误。
type waveSource struct {
	failing map[string]bool
}

func (s waveSource) Fetch(_ context.Context, symbol string, count int) (market.Window, error) {
	if s.failing[symbol] {
		return market.Window{}, fmt.Errorf("boom")
	}
	var candles []market.Candle
	day := testNow.AddDate(0, 0, -1)
	for len(candles) < count {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			k := float64(len(candles))
			c := decimal.NewFromFloat(1.1 + 0.03*math.Sin(k/9) + 0.01*math.Sin(k/2.3)).Round(5)
			spread := decimal.RequireFromString("0.002")
			candles = append(candles, market.Candle{
				Time: types.DayToInt(day), Open: c, High: c.Add(spread), Low: c.Sub(spread), Close: c,
			})
		}
		day = day.AddDate(0, 0, -1)
	}
	return market.NewWindow(candles), nil
}

type recordingNotifier struct {
	texts []string
}

func (r *recordingNotifier) SendText(text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test"},
		Market:   config.MarketConfig{Source: "alphavantage"},
		Backtest: config.BacktestConfig{ReplayCandles: 300, DailyLog: true},
		Optimize: config.OptimizeConfig{Workers: 4},
		Report:   config.ReportConfig{Interval: "1d", Margin: 2},
	}
}

func newTestApp(t *testing.T, src market.Source) (*App, *memory.Store, *recordingNotifier) {
	t.Helper()
	st := memory.New()
	n := &recordingNotifier{}
	a, err := NewApp(context.Background(), testConfig(),
		WithStore(st), WithSource(src), WithNotifier(n),
		WithNow(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, st, n
}

func TestApp_InitImportsDefaultSeeds(t *testing.T) {
	a, st, _ := newTestApp(t, waveSource{})
	n, err := a.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	symbols, err := st.Rules().Symbols(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"USD_JPY", "EUR_USD", "USD_CHF", "GBP_USD"}, symbols)
}

func TestApp_BacktestWritesDailyLogs(t *testing.T) {
	ctx := context.Background()
	a, st, _ := newTestApp(t, waveSource{})
	_, err := a.Init(ctx)
	require.NoError(t, err)

	results, err := a.Backtest(ctx, "eur_usd")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "EUR_USD", results[0].Symbol)
	assert.Positive(t, results[0].Days)

	logs, err := st.DailyLogs().ListUntil(ctx, results[0].RuleID, testNow)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}

func TestApp_BacktestContinuesAfterSymbolFailure(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t, waveSource{failing: map[string]bool{"USD_CHF": true}})
	_, err := a.Init(ctx)
	require.NoError(t, err)

	results, err := a.Backtest(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USD_CHF")
	assert.Len(t, results, 3)
}

func TestApp_OptimizeWithCleanKeepsOneRulePerTerm(t *testing.T) {
	ctx := context.Background()
	a, st, _ := newTestApp(t, waveSource{})
	_, err := a.Init(ctx)
	require.NoError(t, err)

	sums, err := a.Optimize(ctx, "GBP_USD", true)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 162, sums[0].Generated)

	list, err := st.Rules().ListBySymbol(ctx, "GBP_USD")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestApp_ExportWritesYAML(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t, waveSource{})
	_, err := a.Init(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := a.Export(ctx, &buf, true)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Contains(t, buf.String(), "rules:")
	assert.Contains(t, buf.String(), "symbol: USD_JPY")
}

func TestApp_ReportSendsPartialResults(t *testing.T) {
	ctx := context.Background()
	a, _, n := newTestApp(t, waveSource{failing: map[string]bool{"EUR_USD": true}})
	_, err := a.Init(ctx)
	require.NoError(t, err)

	text, err := a.Report(ctx, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EUR_USD")
	require.Len(t, n.texts, 1)
	assert.Equal(t, text, n.texts[0])
	assert.Contains(t, text, "USD_JPY")
	assert.NotContains(t, text, "EUR_USD")
}

func TestApp_ReportDryRunDoesNotSend(t *testing.T) {
	ctx := context.Background()
	a, _, n := newTestApp(t, waveSource{})
	_, err := a.Init(ctx)
	require.NoError(t, err)

	text, err := a.Report(ctx, false)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.Empty(t, n.texts)
}

func TestApp_SummaryCountsRules(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t, waveSource{})
	_, err := a.Init(ctx)
	require.NoError(t, err)

	s, err := a.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Rules["USD_JPY"])
	var buf bytes.Buffer
	s.Print(&buf)
	assert.Contains(t, buf.String(), "USD_JPY")
}

func TestApp_ApplySnapshotSwapsNotifier(t *testing.T) {
	a, _, _ := newTestApp(t, waveSource{})
	cfg := *testConfig()
	cfg.Report.Margin = 5
	a.applySnapshot(config.Snapshot{Version: 2, Config: cfg})
	assert.Equal(t, 5, a.margin)
	assert.NotNil(t, a.notifier)
}
