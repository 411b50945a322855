package csvfile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

const sample = `date,open,high,low,close
2024-06-26,160.10,160.80,159.90,160.70
2024-06-27,160.70,161.20,160.50,160.90
20240628,160.90,161.30,160.60,160.85
2024-07-01,160.85,161.70,160.80,161.50
`

func TestFetchDropsTodayAndOrdersNewestFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "USD_JPY.csv"), []byte(sample), 0o644))

	s := New(dir)
	s.SetNow(func() time.Time { return time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC) })
	win, err := s.Fetch(context.Background(), "usd_jpy", 2)
	require.NoError(t, err)
	require.Equal(t, 2, win.Len())
	assert.Equal(t, 20240628, win.At(0).Time)
	assert.Equal(t, 20240627, win.At(1).Time)
	assert.Equal(t, "160.85", win.At(0).Close.String())
}

func TestParseUTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, err := enc.String(sample)
	require.NoError(t, err)

	candles, err := parse(bytes.NewReader([]byte(encoded)), 20240701)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, 20240626, candles[0].Time)
}

func TestParseUTF8BOMWithoutHeader(t *testing.T) {
	body := "\ufeff2024-06-26,1.07,1.08,1.06,1.075\n"
	candles, err := parse(strings.NewReader(body), 20240701)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, "1.075", candles[0].Close.String())
}

func TestParseRejectsBadRow(t *testing.T) {
	_, err := parse(strings.NewReader("2024-06-26,x,1,1,1\n"), 20240701)
	assert.ErrorContains(t, err, "line 1")
}

func TestFetchMissingFile(t *testing.T) {
	_, err := New(t.TempDir()).Fetch(context.Background(), "EUR_USD", 10)
	assert.Error(t, err)
}
