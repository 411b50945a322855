package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fxchannel/internal/logger"
	"fxchannel/internal/types"
)

// Source 拉取已收盘的日线（最新在前，不含当日未收盘 K 线）。
type Source interface {
	Fetch(ctx context.Context, symbol string, count int) (Window, error)
}

// CandleStore 缓存每个品种最近一次拉取的 K 线。
type CandleStore interface {
	LoadCandles(ctx context.Context, symbol string) ([]Candle, time.Time, error)
	SaveCandles(ctx context.Context, symbol string, candles []Candle, fetchedAt time.Time) error
}

// CachedSource 在远端数据源前加一层缓存：最新 K 线不足一天不刷新；
// 最新 K 线是周五且不超过三天（周末无新数据）也不刷新。
type CachedSource struct {
	next  Source
	store CandleStore
	nowFn func() time.Time
}

func NewCachedSource(next Source, store CandleStore) *CachedSource {
	return &CachedSource{next: next, store: store, nowFn: time.Now}
}

// SetNow 替换时钟，测试使用。
func (s *CachedSource) SetNow(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

func (s *CachedSource) Fetch(ctx context.Context, symbol string, count int) (Window, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	cached, _, err := s.store.LoadCandles(ctx, symbol)
	if err != nil {
		return Window{}, fmt.Errorf("load cached candles %s: %w", symbol, err)
	}
	win := NewWindow(cached)
	if win.Len() >= count && !s.stale(win) {
		return win.Head(count), nil
	}
	logger.Infof("[market] update candles %s count=%d cached=%d", symbol, count, win.Len())
	fresh, err := s.next.Fetch(ctx, symbol, count)
	if err != nil {
		return Window{}, err
	}
	if err := s.store.SaveCandles(ctx, symbol, fresh.Candles(), s.nowFn()); err != nil {
		return Window{}, fmt.Errorf("save candles %s: %w", symbol, err)
	}
	return fresh, nil
}

func (s *CachedSource) stale(win Window) bool {
	latest, ok := win.Latest()
	if !ok {
		return true
	}
	latestDay := types.DayFromInt(latest.Time)
	age := types.DaysBetween(latestDay, s.nowFn())
	if age <= 1 {
		return false
	}
	if latestDay.Weekday() == time.Friday && age <= 3 {
		return false
	}
	return true
}
