// Package csvfile 从本地 CSV 目录读取日线，作为离线数据源。
//
// 每个品种一个文件：<dir>/<SYMBOL>.csv，列为 date,open,high,low,close[,...]，
// date 支持 YYYY-MM-DD 与 YYYYMMDD，首行表头可选。
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fxchannel/internal/market"
	"fxchannel/internal/types"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Source struct {
	dir   string
	nowFn func() time.Time
}

func New(dir string) *Source {
	return &Source{dir: dir, nowFn: time.Now}
}

// SetNow 替换时钟，测试使用。
func (s *Source) SetNow(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

func (s *Source) Fetch(ctx context.Context, symbol string, count int) (market.Window, error) {
	if err := ctx.Err(); err != nil {
		return market.Window{}, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	path := filepath.Join(s.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return market.Window{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	candles, err := parse(f, types.DayToInt(s.nowFn()))
	if err != nil {
		return market.Window{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(candles) == 0 {
		return market.Window{}, fmt.Errorf("%s: no candles", path)
	}
	return market.NewWindow(candles).Head(count), nil
}

// parse 读取 CSV，丢弃 today 及之后（未收盘）的行。
// UTF-8 / UTF-16 BOM 均可识别。
func parse(r io.Reader, today int) ([]market.Candle, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []market.Candle
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 5 {
			continue
		}
		if line == 1 && isHeader(rec[0]) {
			continue
		}
		c, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if c.Time >= today {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func isHeader(field string) bool {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "date", "time", "timestamp", "day":
		return true
	}
	return false
}

func parseRecord(rec []string) (market.Candle, error) {
	day, err := parseDay(rec[0])
	if err != nil {
		return market.Candle{}, err
	}
	vals := make([]decimal.Decimal, 4)
	for i := range vals {
		v, err := decimal.NewFromString(strings.Trim(strings.TrimSpace(rec[i+1]), `"`))
		if err != nil {
			return market.Candle{}, fmt.Errorf("column %d: %w", i+2, err)
		}
		vals[i] = v
	}
	return market.Candle{Time: day, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, nil
}

func parseDay(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return types.DayToInt(t), nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 19000101 || v > 99991231 {
		return 0, fmt.Errorf("invalid date %q", raw)
	}
	return v, nil
}
