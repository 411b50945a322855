// Package alphavantage 对接 Alpha Vantage FX_DAILY 日线接口。
package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fxchannel/internal/logger"
	"fxchannel/internal/market"
	"fxchannel/internal/pkg/circuit"
	"fxchannel/internal/pkg/symbol"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint = "https://www.alphavantage.co/query"
	seriesKey       = "Time Series FX (Daily)"
	compactSize     = 100
)

// ErrRateLimited 表示 API 返回了 Information/Note 提示（调用额度耗尽等）。
var ErrRateLimited = errors.New("alphavantage: rate limited")

type Config struct {
	Endpoint          string
	APIKey            string
	RequestsPerMinute int
	Timeout           time.Duration
	Retries           int
	RetryDelay        time.Duration
	// 连续失败 BreakerThreshold 次后熔断 BreakerCooldown。
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client 并发安全；所有请求共享同一个限速器。
type Client struct {
	endpoint   string
	apiKey     string
	http       *http.Client
	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
	breaker    *circuit.Breaker
	nowFn      func() time.Time
}

var _ market.Source = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("alphavantage: api key 不能为空")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}
	perSec := float64(cfg.RequestsPerMinute) / 60.0
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), cfg.RequestsPerMinute),
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		breaker:    circuit.New("alphavantage", cfg.BreakerThreshold, cfg.BreakerCooldown),
		nowFn:      time.Now,
	}, nil
}

// Fetch 返回最近 count 根已收盘日线（最新在前，剔除当日）。
func (c *Client) Fetch(ctx context.Context, sym string, count int) (market.Window, error) {
	pair := symbol.Parse(sym)
	if !pair.Valid() {
		return market.Window{}, fmt.Errorf("alphavantage: 非法 symbol %q", sym)
	}
	outputSize := "compact"
	if count > compactSize {
		outputSize = "full"
	}
	q := url.Values{}
	q.Set("function", "FX_DAILY")
	q.Set("from_symbol", pair.Base)
	q.Set("to_symbol", pair.Quote)
	q.Set("outputsize", outputSize)
	q.Set("apikey", c.apiKey)

	var candles []market.Candle
	err := c.breaker.Do(func() error {
		body, err := c.send(ctx, q)
		if err != nil {
			return err
		}
		candles, err = c.parse(body)
		return err
	}, countsAsFailure)
	if err != nil {
		return market.Window{}, fmt.Errorf("fetch %s: %w", pair.Internal(), err)
	}
	win := market.NewWindow(candles)
	if count > 0 {
		win = win.Head(count)
	}
	return win, nil
}

// countsAsFailure 调用方取消不计入熔断。
func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) send(ctx context.Context, q url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 && c.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := c.do(ctx, q)
		if err == nil {
			return body, nil
		}
		lastErr = err
		logger.Warnf("[alphavantage] request failed attempt=%d err=%v", attempt+1, err)
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("alphavantage 返回状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) parse(body []byte) ([]market.Candle, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("alphavantage: 响应不是合法 JSON")
	}
	root := gjson.ParseBytes(body)
	series := root.Get(gjson.Escape(seriesKey))
	if !series.Exists() {
		for _, key := range []string{"Information", "Note", "Error Message"} {
			if msg := root.Get(key); msg.Exists() {
				logger.Warnf("[alphavantage] %s: %s", key, msg.String())
				if key == "Error Message" {
					return nil, fmt.Errorf("alphavantage: %s", msg.String())
				}
				return nil, fmt.Errorf("%w: %s", ErrRateLimited, msg.String())
			}
		}
		return nil, fmt.Errorf("alphavantage: 响应缺少 %q", seriesKey)
	}
	today := types.DayToInt(c.nowFn())
	var (
		out      []market.Candle
		parseErr error
	)
	series.ForEach(func(key, row gjson.Result) bool {
		day, err := parseDay(key.String())
		if err != nil {
			parseErr = err
			return false
		}
		// 当日及之后的 K 线尚未收盘（服务端时区可能早于本地）。
		if day >= today {
			return true
		}
		c, err := parseRow(day, row)
		if err != nil {
			parseErr = err
			return false
		}
		out = append(out, c)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func parseDay(s string) (int, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("alphavantage: 非法日期 %q", s)
	}
	return types.DayToInt(t), nil
}

func parseRow(day int, row gjson.Result) (market.Candle, error) {
	fields := [4]string{"1\\. open", "2\\. high", "3\\. low", "4\\. close"}
	var vals [4]decimal.Decimal
	for i, f := range fields {
		v, err := decimal.NewFromString(row.Get(f).String())
		if err != nil {
			return market.Candle{}, fmt.Errorf("alphavantage: %d %s: %w", day, f, err)
		}
		vals[i] = v
	}
	return market.Candle{Time: day, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, nil
}
