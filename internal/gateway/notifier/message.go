package notifier

import (
	"strings"
	"time"

	"fxchannel/internal/pkg/text"
)

// MaxMessageBytes 是渲染结果的默认上限，低于 Telegram 单条消息的 4096 字符。
const MaxMessageBytes = 3800

const fence = "```"

// Section 是消息中的一段。Table 段逐行原样输出以保留列对齐，否则输出为列表。
type Section struct {
	Title string
	Lines []string
	Table bool
}

func (s Section) lines() []string {
	out := make([]string, 0, len(s.Lines))
	for _, line := range s.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if s.Table {
			line = strings.TrimRight(line, " \t")
		} else {
			line = "- " + strings.TrimSpace(line)
		}
		out = append(out, escapeFence(line))
	}
	return out
}

// Message 是推送的统一结构；正文统一放进一个代码块，Discord 与 Telegram 都能等宽显示。
type Message struct {
	Title    string
	Sections []Section
	Footer   string
	At       time.Time
}

// Render 生成 Markdown 文本，超过 limit 字节时截断（不切断多字节字符）；limit <= 0 使用 MaxMessageBytes。
func (m Message) Render(limit int) string {
	if limit <= 0 {
		limit = MaxMessageBytes
	}
	var parts []string
	if title := strings.TrimSpace(m.Title); title != "" {
		parts = append(parts, title)
	}
	if body := m.body(); body != "" {
		parts = append(parts, fence+"\n"+body+"\n"+fence)
	}
	var tail []string
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		tail = append(tail, escapeFence(footer))
	}
	if !m.At.IsZero() {
		tail = append(tail, "时间："+m.At.Format("2006-01-02 15:04 MST"))
	}
	if len(tail) > 0 {
		parts = append(parts, strings.Join(tail, "\n"))
	}
	return text.Truncate(strings.Join(parts, "\n\n"), limit)
}

func (m Message) body() string {
	var blocks []string
	for _, sec := range m.Sections {
		lines := sec.lines()
		if len(lines) == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			lines = append([]string{escapeFence(title)}, lines...)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func escapeFence(s string) string {
	return strings.ReplaceAll(s, fence, "'''")
}
