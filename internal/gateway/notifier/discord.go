package notifier

import (
	"fmt"
	"net/http"
	"time"

	"fxchannel/internal/pkg/text"
)

const (
	discordMaxContent = 2000
	discordMaxEmbed   = 4096
)

// WebhookMessage 是 Discord webhook 的请求体。
type WebhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

const ColorInfo = 0x0099FF

// Discord 通过 webhook 推送日报。
type Discord struct {
	WebhookURL string
	Client     *http.Client
	nowFn      func() time.Time
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
		nowFn:      time.Now,
	}
}

// SendText 较短的消息直接作为 content 发送，超过 Discord 限制时改用 embed。
func (d *Discord) SendText(body string) error {
	if d.WebhookURL == "" {
		return fmt.Errorf("Discord webhook 未配置")
	}
	msg := WebhookMessage{Content: body}
	if len(body) > discordMaxContent {
		msg = WebhookMessage{Embeds: []Embed{{
			Description: text.Truncate(body, discordMaxEmbed),
			Color:       ColorInfo,
			Footer:      &EmbedFooter{Text: "fxchannel"},
			Timestamp:   d.nowFn().Format(time.RFC3339),
		}}}
	}
	return d.send(msg)
}

func (d *Discord) send(msg WebhookMessage) error {
	status, raw, err := postJSON(d.Client, d.WebhookURL, msg)
	if err != nil {
		return fmt.Errorf("discord webhook 请求失败: %w", err)
	}
	if status/100 != 2 {
		return fmt.Errorf("discord status=%d: %s", status, text.Truncate(string(raw), 512))
	}
	return nil
}
