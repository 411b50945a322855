package notifier

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	telegramAPI      = "https://api.telegram.org"
	telegramAttempts = 3
)

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Telegram 把日报推送到指定群/频道。
type Telegram struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client
	// Backoff 为第 i 次重试前的等待时长，默认 (i+1) 秒；服务端给出 retry_after 时以其为准。
	Backoff func(attempt int) time.Duration
	sleep   func(time.Duration)
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  telegramAPI,
		Client:   &http.Client{Timeout: 15 * time.Second},
		sleep:    time.Sleep,
	}
}

// SendText 发送 Markdown 文本。网络错误、429 与 5xx 会重试，其余 4xx 直接返回。
func (t *Telegram) SendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("Telegram 配置不完整")
	}
	url := t.endpoint("sendMessage")
	msg := telegramMessage{ChatID: t.ChatID, Text: text, ParseMode: "Markdown"}

	var lastErr error
	for attempt := 0; attempt < telegramAttempts; attempt++ {
		status, body, err := postJSON(t.Client, url, msg)
		if err == nil && status/100 == 2 {
			return nil
		}
		wait := t.backoff(attempt)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("telegram 请求失败: %w", err)
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = telegramError(status, body)
			if after := gjson.GetBytes(body, "parameters.retry_after").Int(); after > 0 && t.Backoff == nil {
				wait = time.Duration(after) * time.Second
			}
		default:
			return telegramError(status, body)
		}
		if attempt < telegramAttempts-1 {
			t.wait(wait)
		}
	}
	return lastErr
}

func (t *Telegram) endpoint(method string) string {
	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = telegramAPI
	}
	return fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method)
}

func (t *Telegram) backoff(attempt int) time.Duration {
	if t.Backoff != nil {
		return t.Backoff(attempt)
	}
	return time.Duration(attempt+1) * time.Second
}

func (t *Telegram) wait(d time.Duration) {
	if d <= 0 {
		return
	}
	if t.sleep == nil {
		time.Sleep(d)
		return
	}
	t.sleep(d)
}

func telegramError(status int, body []byte) error {
	if desc := gjson.GetBytes(body, "description").String(); desc != "" {
		return fmt.Errorf("telegram status=%d: %s", status, desc)
	}
	return fmt.Errorf("telegram status=%d", status)
}
