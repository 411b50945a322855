// Package sqlite 缓存日线行情，每个 symbol 一个 SQLite 文件。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fxchannel/internal/market"

	_ "modernc.org/sqlite"
)

// CandleStore implements market.CandleStore.
type CandleStore struct {
	root string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

var _ market.CandleStore = (*CandleStore)(nil)

func NewCandleStore(root string) (*CandleStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("candle cache root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &CandleStore{root: root, dbs: make(map[string]*sql.DB)}, nil
}

func (s *CandleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for k, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, k)
	}
	return firstErr
}

func (s *CandleStore) db(symbol string) (*sql.DB, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if key == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[key]; ok {
		return db, nil
	}
	path := s.dbPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db, key); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.dbs[key] = db
	return db, nil
}

func (s *CandleStore) dbPath(symbol string) string {
	return filepath.Join(s.root, symbol, "daily.db")
}

// LoadCandles 返回缓存的全部日线（time 升序）以及最近一次同步时间。
// 从未同步过时返回空切片与零值时间。
func (s *CandleStore) LoadCandles(ctx context.Context, symbol string) ([]market.Candle, time.Time, error) {
	db, err := s.db(symbol)
	if err != nil {
		return nil, time.Time{}, err
	}
	var syncedAt int64
	err = db.QueryRowContext(ctx, `SELECT COALESCE(last_sync_at, 0) FROM manifest WHERE id=1`).Scan(&syncedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, err
	}
	rows, err := db.QueryContext(ctx, `SELECT day, open, high, low, close FROM candles ORDER BY day ASC`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()
	var list []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close); err != nil {
			return nil, time.Time{}, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	var fetchedAt time.Time
	if syncedAt > 0 {
		fetchedAt = time.UnixMilli(syncedAt).UTC()
	}
	return list, fetchedAt, nil
}

// SaveCandles 批量写入日线（重复 day 覆盖）并记录同步时间。
func (s *CandleStore) SaveCandles(ctx context.Context, symbol string, candles []market.Candle, fetchedAt time.Time) error {
	db, err := s.db(symbol)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (day, open, high, low, close)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Time, c.Open.String(), c.High.String(), c.Low.String(), c.Close.String()); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE manifest
		SET min_day = (SELECT COALESCE(MIN(day), 0) FROM candles),
		    max_day = (SELECT COALESCE(MAX(day), 0) FROM candles),
		    rows = (SELECT COUNT(1) FROM candles),
		    last_sync_at = ?
		WHERE id = 1`, fetchedAt.UnixMilli()); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func ensureSchema(db *sql.DB, symbol string) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			day   INTEGER PRIMARY KEY,
			open  TEXT NOT NULL,
			high  TEXT NOT NULL,
			low   TEXT NOT NULL,
			close TEXT NOT NULL,
			inserted_at INTEGER NOT NULL DEFAULT (strftime('%s','now') * 1000)
		);`,
		`CREATE TABLE IF NOT EXISTS manifest (
			id INTEGER PRIMARY KEY CHECK (id=1),
			symbol TEXT NOT NULL,
			min_day INTEGER,
			max_day INTEGER,
			rows INTEGER DEFAULT 0,
			last_sync_at INTEGER
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT INTO manifest (id, symbol) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET symbol=excluded.symbol`, symbol)
	return err
}
