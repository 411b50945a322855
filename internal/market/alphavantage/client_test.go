package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fxchannel/internal/pkg/circuit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyPayload = `{
  "Meta Data": {"1. Information": "Forex Daily Prices"},
  "Time Series FX (Daily)": {
    "2024-01-08": {"1. open": "144.60", "2. high": "144.90", "3. low": "144.10", "4. close": "144.20"},
    "2024-01-05": {"1. open": "144.50", "2. high": "145.90", "3. low": "143.80", "4. close": "144.61"},
    "2024-01-04": {"1. open": "143.20", "2. high": "144.80", "3. low": "143.00", "4. close": "144.54"},
    "2024-01-03": {"1. open": "142.00", "2. high": "143.40", "3. low": "141.90", "4. close": "143.22"}
  }
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{Endpoint: srv.URL, APIKey: "demo", Retries: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	c.nowFn = func() time.Time { return time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC) }
	return c
}

func TestClient_FetchDropsTodayAndLimitsCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "FX_DAILY", q.Get("function"))
		assert.Equal(t, "USD", q.Get("from_symbol"))
		assert.Equal(t, "JPY", q.Get("to_symbol"))
		assert.Equal(t, "compact", q.Get("outputsize"))
		assert.Equal(t, "demo", q.Get("apikey"))
		_, _ = w.Write([]byte(dailyPayload))
	})

	win, err := c.Fetch(context.Background(), "usd_jpy", 2)
	require.NoError(t, err)
	require.Equal(t, 2, win.Len())
	assert.Equal(t, 20240105, win.At(0).Time)
	assert.Equal(t, 20240104, win.At(1).Time)
	assert.True(t, win.At(0).High.Equal(decimal.RequireFromString("145.9")))
}

func TestClient_DropsBarsDatedAfterLocalToday(t *testing.T) {
	// 服务端已进入 01-09，本地仍是 01-08：两根都未收盘。
	payload := `{"Time Series FX (Daily)": {
    "2024-01-09": {"1. open": "144.20", "2. high": "144.40", "3. low": "144.00", "4. close": "144.30"},
    "2024-01-08": {"1. open": "144.60", "2. high": "144.90", "3. low": "144.10", "4. close": "144.20"},
    "2024-01-05": {"1. open": "144.50", "2. high": "145.90", "3. low": "143.80", "4. close": "144.61"}
  }}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	})

	win, err := c.Fetch(context.Background(), "USD_JPY", 5)
	require.NoError(t, err)
	require.Equal(t, 1, win.Len())
	assert.Equal(t, 20240105, win.At(0).Time)
}

func TestClient_FullOutputSizeForLongHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "full", r.URL.Query().Get("outputsize"))
		_, _ = w.Write([]byte(dailyPayload))
	})
	win, err := c.Fetch(context.Background(), "EUR_USD", 500)
	require.NoError(t, err)
	assert.Equal(t, 3, win.Len())
}

func TestClient_InformationPayloadIsRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Information": "API call frequency exceeded"}`))
	})
	_, err := c.Fetch(context.Background(), "USD_JPY", 10)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(dailyPayload))
	})
	win, err := c.Fetch(context.Background(), "USD_JPY", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, win.Len())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Fetch(context.Background(), "USD_JPY", 10)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RejectsBadSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})
	_, err := c.Fetch(context.Background(), "BTCUSDT", 10)
	assert.Error(t, err)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage"}`))
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{Endpoint: srv.URL, APIKey: "demo", BreakerThreshold: 2, BreakerCooldown: time.Hour})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(context.Background(), "USD_JPY", 10)
		assert.ErrorIs(t, err, ErrRateLimited)
	}
	_, err = c.Fetch(context.Background(), "USD_JPY", 10)
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Equal(t, int32(2), calls.Load())
}
