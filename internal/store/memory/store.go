// Package memory 提供进程内的仓储实现，用于测试与一次性回测。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fxchannel/internal/market"
	"fxchannel/internal/store"
	"fxchannel/internal/types"
)

type Store struct {
	rules     *RuleStore
	positions *PositionStore
	logs      *DailyLogStore
	candles   *CandleStore
}

func New() *Store {
	return &Store{
		rules:     NewRuleStore(),
		positions: NewPositionStore(),
		logs:      NewDailyLogStore(),
		candles:   NewCandleStore(),
	}
}

func (s *Store) Rules() store.RuleStore         { return s.rules }
func (s *Store) Positions() store.PositionStore { return s.positions }
func (s *Store) DailyLogs() store.DailyLogStore { return s.logs }
func (s *Store) Candles() *CandleStore          { return s.candles }
func (s *Store) Close() error                   { return nil }

var _ store.Store = (*Store)(nil)

// RuleStore is an in-memory implementation of store.RuleStore.
type RuleStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]types.TradeRule
}

func NewRuleStore() *RuleStore {
	return &RuleStore{data: make(map[int64]types.TradeRule)}
}

func (s *RuleStore) Get(_ context.Context, id int64) (*types.TradeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *RuleStore) sorted(match func(types.TradeRule) bool) []types.TradeRule {
	out := make([]types.TradeRule, 0, len(s.data))
	for _, r := range s.data {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *RuleStore) ListBySymbol(_ context.Context, symbol string) ([]types.TradeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r types.TradeRule) bool { return strings.EqualFold(r.Symbol, symbol) }), nil
}

func (s *RuleStore) ListBySymbolTerm(_ context.Context, symbol string, term int) ([]types.TradeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r types.TradeRule) bool {
		return strings.EqualFold(r.Symbol, symbol) && r.Term == term
	}), nil
}

func (s *RuleStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.sorted(func(types.TradeRule) bool { return true }) {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		out = append(out, r.Symbol)
	}
	return out, nil
}

func (s *RuleStore) Insert(_ context.Context, rule *types.TradeRule) error {
	if rule == nil || rule.Symbol == "" {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.ID == 0 {
		s.nextID++
		for {
			if _, exists := s.data[s.nextID]; !exists {
				break
			}
			s.nextID++
		}
		rule.ID = s.nextID
	} else if rule.ID > s.nextID {
		s.nextID = rule.ID
	}
	s.data[rule.ID] = *rule
	return nil
}

func (s *RuleStore) Upsert(ctx context.Context, rules ...*types.TradeRule) error {
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		s.mu.Lock()
		cur, ok := s.data[rule.ID]
		if ok {
			cur.Term = rule.Term
			cur.Action = rule.Action
			cur.OpenPrice = rule.OpenPrice
			cur.ActionAt = rule.ActionAt
			cur.BacktestLong = rule.BacktestLong
			cur.BacktestShort = rule.BacktestShort
			cur.BacktestCnt = rule.BacktestCnt
			s.data[rule.ID] = cur
		}
		s.mu.Unlock()
		if !ok {
			if err := s.Insert(ctx, rule); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *RuleStore) UpsertInputs(ctx context.Context, rules []types.TradeRule) error {
	for i := range rules {
		rule := rules[i]
		s.mu.Lock()
		cur, ok := s.data[rule.ID]
		if ok {
			cur.Input = rule.Input
			s.data[rule.ID] = cur
		}
		s.mu.Unlock()
		if !ok {
			if err := s.Insert(ctx, &rule); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *RuleStore) Delete(_ context.Context, filter store.RuleFilter) (int64, error) {
	if filter.Empty() {
		return 0, store.ErrInvalidInput
	}
	ids := make(map[int64]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.data {
		if filter.Symbol != "" && !strings.EqualFold(r.Symbol, filter.Symbol) {
			continue
		}
		if filter.Term != 0 && r.Term != filter.Term {
			continue
		}
		if len(ids) > 0 {
			if _, ok := ids[id]; !ok {
				continue
			}
		}
		delete(s.data, id)
		n++
	}
	return n, nil
}

func (s *RuleStore) Each(ctx context.Context, batch int, fn func(rule *types.TradeRule) error) error {
	s.mu.RLock()
	all := s.sorted(func(types.TradeRule) bool { return true })
	s.mu.RUnlock()
	for i := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&all[i]); err != nil {
			return err
		}
	}
	return nil
}

// PositionStore is an in-memory implementation of store.PositionStore.
type PositionStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []types.PositionRecord
}

func NewPositionStore() *PositionStore {
	return &PositionStore{}
}

func (s *PositionStore) InsertIfAbsent(_ context.Context, rec *types.PositionRecord) (bool, error) {
	if rec == nil || rec.RuleID == 0 {
		return false, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.data {
		if cur.RuleID == rec.RuleID && cur.Action == rec.Action && cur.OpenAt.Equal(rec.OpenAt) {
			return false, nil
		}
	}
	s.nextID++
	rec.ID = s.nextID
	s.data = append(s.data, *rec)
	return true, nil
}

func (s *PositionStore) Latest(_ context.Context, ruleID int64, action types.Action) (*types.PositionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.data) - 1; i >= 0; i-- {
		if s.data[i].RuleID == ruleID && s.data[i].Action == action {
			rec := s.data[i]
			return &rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *PositionStore) Update(_ context.Context, rec *types.PositionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data {
		if s.data[i].ID == rec.ID {
			s.data[i] = *rec
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *PositionStore) ListByRule(_ context.Context, ruleID int64) ([]types.PositionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.PositionRecord
	for _, rec := range s.data {
		if rec.RuleID == ruleID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *PositionStore) DeleteByRule(_ context.Context, ruleIDs ...int64) error {
	drop := idSet(ruleIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.data[:0]
	for _, rec := range s.data {
		if _, ok := drop[rec.RuleID]; !ok {
			kept = append(kept, rec)
		}
	}
	s.data = kept
	return nil
}

// DailyLogStore is an in-memory implementation of store.DailyLogStore.
type DailyLogStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []types.DailyLogEntry
}

func NewDailyLogStore() *DailyLogStore {
	return &DailyLogStore{}
}

func (s *DailyLogStore) InsertIfAbsent(_ context.Context, entry *types.DailyLogEntry) (bool, error) {
	if entry == nil || entry.RuleID == 0 {
		return false, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.data {
		if cur.RuleID == entry.RuleID && cur.Date.Equal(entry.Date) {
			return false, nil
		}
	}
	s.nextID++
	entry.ID = s.nextID
	s.data = append(s.data, *entry)
	return true, nil
}

func (s *DailyLogStore) ListUntil(_ context.Context, ruleID int64, day time.Time) ([]types.DailyLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.DailyLogEntry
	for i := len(s.data) - 1; i >= 0; i-- {
		e := s.data[i]
		if e.RuleID == ruleID && !e.Date.After(day) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *DailyLogStore) DeleteByRule(_ context.Context, ruleIDs ...int64) error {
	drop := idSet(ruleIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.data[:0]
	for _, e := range s.data {
		if _, ok := drop[e.RuleID]; !ok {
			kept = append(kept, e)
		}
	}
	s.data = kept
	return nil
}

func (s *DailyLogStore) Truncate(_ context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

// CandleStore 按品种保存最近一次拉取的 K 线。
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]candleEntry
}

type candleEntry struct {
	candles   []market.Candle
	fetchedAt time.Time
}

func NewCandleStore() *CandleStore {
	return &CandleStore{data: make(map[string]candleEntry)}
}

func (s *CandleStore) LoadCandles(_ context.Context, symbol string) ([]market.Candle, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[strings.ToUpper(symbol)]
	if !ok {
		return nil, time.Time{}, nil
	}
	out := make([]market.Candle, len(e.candles))
	copy(out, e.candles)
	return out, e.fetchedAt, nil
}

func (s *CandleStore) SaveCandles(_ context.Context, symbol string, candles []market.Candle, fetchedAt time.Time) error {
	cp := make([]market.Candle, len(candles))
	copy(cp, candles)
	s.mu.Lock()
	s.data[strings.ToUpper(symbol)] = candleEntry{candles: cp, fetchedAt: fetchedAt}
	s.mu.Unlock()
	return nil
}

func idSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
