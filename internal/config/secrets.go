package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Secrets 只从环境变量（或 .env）读取，非空时覆盖配置文件中的值。
type Secrets struct {
	AlphaVantageKey string `envconfig:"ALPHAVANTAGE_API_KEY"`
	DiscordWebhook  string `envconfig:"DISCORD_WEBHOOK_URL"`
	TelegramToken   string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID  string `envconfig:"TELEGRAM_CHAT_ID"`
}

// LoadSecrets 先尝试加载 envFile（不存在时忽略），再解析环境变量。
func LoadSecrets(envFile string) (Secrets, error) {
	var s Secrets
	envFile = strings.TrimSpace(envFile)
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return s, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	if err := envconfig.Process("", &s); err != nil {
		return s, fmt.Errorf("process env: %w", err)
	}
	return s, nil
}

func (c *Config) applySecrets(s Secrets) {
	override := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	override(&c.AlphaVantage.APIKey, s.AlphaVantageKey)
	override(&c.Notify.Discord.WebhookURL, s.DiscordWebhook)
	override(&c.Notify.Telegram.BotToken, s.TelegramToken)
	override(&c.Notify.Telegram.ChatID, s.TelegramChatID)
}

// resolveEnvFile 相对路径按配置文件所在目录解析。
func resolveEnvFile(configPath, envFile string) string {
	envFile = strings.TrimSpace(envFile)
	if envFile == "" || filepath.IsAbs(envFile) {
		return envFile
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return envFile
	}
	return filepath.Join(filepath.Dir(abs), envFile)
}
