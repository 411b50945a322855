// Package symbol 解析外汇货币对。
package symbol

import (
	"strings"
)

// Pair 是一个货币对，例如 USD/JPY。
type Pair struct {
	Base  string
	Quote string
}

// Internal 返回库内使用的形式 BASE_QUOTE。
func (p Pair) Internal() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + "_" + p.Quote
}

func (p Pair) Valid() bool { return p.Base != "" && p.Quote != "" }

// Parse 接受 USD_JPY、USD/JPY、usdjpy 三种写法；无法识别时返回零值。
func Parse(s string) Pair {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Pair{}
	}
	for _, sep := range []string{"_", "/"} {
		if base, quote, ok := strings.Cut(s, sep); ok {
			base, quote = strings.TrimSpace(base), strings.TrimSpace(quote)
			if !isCurrency(base) || !isCurrency(quote) {
				return Pair{}
			}
			return Pair{Base: base, Quote: quote}
		}
	}
	if len(s) == 6 && isCurrency(s[:3]) && isCurrency(s[3:]) {
		return Pair{Base: s[:3], Quote: s[3:]}
	}
	return Pair{}
}

func isCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Normalize 返回 BASE_QUOTE；无法识别时原样大写返回。
func Normalize(s string) string {
	if p := Parse(s); p.Valid() {
		return p.Internal()
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func IsValid(s string) bool {
	return Parse(s).Valid()
}
