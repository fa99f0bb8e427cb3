package notifier

import (
	"strings"
	"time"

	"aitrader/internal/pkg/text"
)

// Telegram 单条消息上限 4096 字符，留出余量。
const maxStructuredMessageLen = 3800

// Field 是段落内的一行 key: value；Key 为空时只输出 Value。
type Field struct {
	Key   string
	Value string
}

func F(key, value string) Field { return Field{Key: key, Value: value} }

type MessageSection struct {
	Title  string
	Fields []Field
}

// StructuredMessage 是一轮交易结果的推送：标题行、等宽字段块、trace 与时间。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	TraceID   string
	Timestamp time.Time
}

// AddSection 追加段落，值为空的字段在渲染时丢弃。
func (m *StructuredMessage) AddSection(title string, fields ...Field) {
	m.Sections = append(m.Sections, MessageSection{Title: title, Fields: fields})
}

// RenderMarkdown 生成 Markdown 文本，超长时按字符裁剪。
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString("*" + escapeMarkdown(header) + "*\n\n")
	}
	b.WriteString(m.renderBlock())
	var meta []string
	if m.TraceID != "" {
		meta = append(meta, "trace `"+m.TraceID+"`")
	}
	if !m.Timestamp.IsZero() {
		meta = append(meta, m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	b.WriteString(strings.Join(meta, " · "))
	return text.Truncate(b.String(), maxStructuredMessageLen)
}

func (m StructuredMessage) renderBlock() string {
	var parts []string
	for _, sec := range m.Sections {
		fields := nonEmpty(sec.Fields)
		if len(fields) == 0 {
			continue
		}
		width := 0
		for _, f := range fields {
			if n := len([]rune(f.Key)); n > width {
				width = n
			}
		}
		var b strings.Builder
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString("[" + stripFence(title) + "]\n")
		}
		for _, f := range fields {
			if f.Key == "" {
				b.WriteString(stripFence(f.Value) + "\n")
				continue
			}
			pad := strings.Repeat(" ", width-len([]rune(f.Key)))
			b.WriteString(stripFence(f.Key) + pad + " : " + stripFence(f.Value) + "\n")
		}
		parts = append(parts, b.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return "```\n" + strings.Join(parts, "\n") + "```\n"
}

func nonEmpty(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		f.Key = strings.TrimSpace(f.Key)
		f.Value = strings.TrimSpace(f.Value)
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// 代码块内只需避免提前闭合。
func stripFence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
