package text

import "strings"

// Truncate 把 s 截到最多 max 个字符，有截断时追加 "..."。
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
