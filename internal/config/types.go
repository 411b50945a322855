package config

import (
	"strings"
	"time"

	"fxchannel/internal/rules"
	"fxchannel/internal/scheduler"
)

// Config 是 fxchannel 的主配置载体。
type Config struct {
	App          AppConfig          `toml:"app"`
	Database     DatabaseConfig     `toml:"database"`
	Market       MarketConfig       `toml:"market"`
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
	Backtest     BacktestConfig     `toml:"backtest"`
	Optimize     OptimizeConfig     `toml:"optimize"`
	Report       ReportConfig       `toml:"report"`
	Notify       NotifyConfig       `toml:"notify"`
	Seeds        []rules.Seed       `toml:"seeds"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogPath   string `toml:"log_path"`
	EnvFile   string `toml:"env_file"`
}

type DatabaseConfig struct {
	Path     string `toml:"path"`
	CacheDir string `toml:"cache_dir"`
}

// MarketConfig 选择 K 线来源：alphavantage（默认）或 csv（离线目录）。
type MarketConfig struct {
	Source string `toml:"source"`
	CSVDir string `toml:"csv_dir"`
	Cache  bool   `toml:"cache"`
}

type AlphaVantageConfig struct {
	Endpoint          string `toml:"endpoint"`
	APIKey            string `toml:"api_key"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	Retries           int    `toml:"retries"`
	RetryDelayMillis  int    `toml:"retry_delay_ms"`
	BreakerThreshold  int    `toml:"breaker_threshold"`
	BreakerCooldown   int    `toml:"breaker_cooldown_seconds"`
}

func (a AlphaVantageConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (a AlphaVantageConfig) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelayMillis) * time.Millisecond
}

func (a AlphaVantageConfig) BreakerCooldownDuration() time.Duration {
	return time.Duration(a.BreakerCooldown) * time.Second
}

type BacktestConfig struct {
	ReplayCandles int  `toml:"replay_candles"`
	DailyLog      bool `toml:"daily_log"`
}

type OptimizeConfig struct {
	Workers int  `toml:"workers"`
	Clean   bool `toml:"clean"`
}

type ReportConfig struct {
	// Interval 两次日报之间的间隔，支持 "daily"、"1d" 或 time.ParseDuration 格式，默认 1d。
	Interval       string `toml:"interval"`
	OffsetMinutes  int    `toml:"offset_minutes"`
	RunImmediately bool   `toml:"run_immediately"`
	Margin         int    `toml:"margin"`
}

func (r ReportConfig) IntervalDuration() time.Duration {
	d, _ := scheduler.ParseInterval(r.Interval)
	return d
}

func (r ReportConfig) Offset() time.Duration {
	return time.Duration(r.OffsetMinutes) * time.Minute
}

type NotifyConfig struct {
	Discord  DiscordConfig  `toml:"discord"`
	Telegram TelegramConfig `toml:"telegram"`
}

type DiscordConfig struct {
	Enabled    bool   `toml:"enabled"`
	WebhookURL string `toml:"webhook_url"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
