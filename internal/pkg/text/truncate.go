package text

import "unicode/utf8"

// Truncate 把 s 截到最多 max 字节（含结尾的 "..."），不切断多字节字符。
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	const ellipsis = "..."
	limit := max - len(ellipsis)
	if limit <= 0 {
		return ellipsis[:max]
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + ellipsis
}
