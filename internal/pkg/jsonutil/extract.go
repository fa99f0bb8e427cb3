package jsonutil

import (
	"encoding/json"
	"strings"
)

const codeFence = "```"

// ExtractObject 返回回答中的 JSON 对象。去空白后的全文或其唯一代码块的内容
// 必须恰好是一个对象；多个对象、顶层数组或夹在正文中的对象都返回 false。
func ExtractObject(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	candidate := raw
	if strings.Contains(raw, codeFence) {
		block, ok := fencedBlock(raw)
		if !ok {
			return "", false
		}
		candidate = block
	}
	if !isSingleObject(candidate) {
		return "", false
	}
	return candidate, true
}

// fencedBlock 返回 raw 中唯一 ``` 代码块的内容。
func fencedBlock(raw string) (string, bool) {
	if strings.Count(raw, codeFence) != 2 {
		return "", false
	}
	start := strings.Index(raw, codeFence)
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	block := strings.TrimLeft(rest[:end], "\r\n")
	// 去掉 ```json 这类语言标记
	if idx := strings.Index(block, "\n"); idx != -1 {
		if first := strings.TrimSpace(block[:idx]); first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
		}
	}
	block = strings.TrimSpace(block)
	return block, block != ""
}

func isSingleObject(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}
