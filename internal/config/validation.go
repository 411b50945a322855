package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.AlphaVantage.validate(c.Market.Source); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Optimize.validate(); err != nil {
		return err
	}
	if err := c.Report.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	for i, s := range c.Seeds {
		if _, err := s.Rule(int64(i + 1)); err != nil {
			return fmt.Errorf("seeds[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be debug/info/warn/error, got %q", a.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch m.Source {
	case "alphavantage":
	case "csv":
		if strings.TrimSpace(m.CSVDir) == "" {
			return fmt.Errorf("market.csv_dir is required when market.source=csv")
		}
	default:
		return fmt.Errorf("market.source must be alphavantage or csv, got %q", m.Source)
	}
	return nil
}

func (a *AlphaVantageConfig) validate(source string) error {
	if source != "alphavantage" {
		return nil
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(a.Endpoint)); err != nil {
		return fmt.Errorf("alphavantage.endpoint invalid: %w", err)
	}
	if a.Retries < 0 {
		return fmt.Errorf("alphavantage.retries must be >= 0")
	}
	if a.RetryDelayMillis < 0 {
		return fmt.Errorf("alphavantage.retry_delay_ms must be >= 0")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.ReplayCandles < 2 {
		return fmt.Errorf("backtest.replay_candles must be >= 2")
	}
	return nil
}

func (o *OptimizeConfig) validate() error {
	if o.Workers <= 0 {
		return fmt.Errorf("optimize.workers must be > 0")
	}
	return nil
}

func (r *ReportConfig) validate() error {
	if r.IntervalDuration() <= 0 {
		return fmt.Errorf("report.interval must be a positive duration, got %q", r.Interval)
	}
	if r.OffsetMinutes < 0 {
		return fmt.Errorf("report.offset_minutes must be >= 0")
	}
	if r.Margin < 0 {
		return fmt.Errorf("report.margin must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Discord.Enabled && strings.TrimSpace(n.Discord.WebhookURL) == "" {
		return fmt.Errorf("notify.discord.webhook_url is required when discord is enabled")
	}
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}
