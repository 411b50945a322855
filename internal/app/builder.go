package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fxchannel/internal/config"
	"fxchannel/internal/gateway/notifier"
	"fxchannel/internal/logger"
	"fxchannel/internal/market"
	"fxchannel/internal/market/alphavantage"
	"fxchannel/internal/market/csvfile"
	"fxchannel/internal/store"
	"fxchannel/internal/store/gormstore"
	"fxchannel/internal/store/sqlite"
)

type AppBuilder struct {
	cfg *config.Config

	storeFn    func(config.DatabaseConfig) (store.Store, error)
	sourceFn   func(*config.Config) (market.Source, []io.Closer, error)
	notifierFn func(config.NotifyConfig) notifier.TextNotifier
	nowFn      func() time.Time
}

type AppBuilderOption func(*AppBuilder)

// WithStore 使用给定的 store 代替 SQLite（测试使用）。
func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(config.DatabaseConfig) (store.Store, error) { return st, nil }
	}
}

func WithSource(src market.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(*config.Config) (market.Source, []io.Closer, error) { return src, nil, nil }
	}
}

func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.notifierFn = func(config.NotifyConfig) notifier.TextNotifier { return n }
	}
}

func WithNow(fn func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.nowFn = fn
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		storeFn:    buildStore,
		sourceFn:   buildSource,
		notifierFn: buildNotifier,
		nowFn:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	st, err := b.storeFn(cfg.Database)
	if err != nil {
		return nil, err
	}
	src, closers, err := b.sourceFn(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &App{
		cfg:        cfg,
		store:      st,
		source:     src,
		closers:    closers,
		nowFn:      b.nowFn,
		notifier:   b.notifierFn(cfg.Notify),
		notifierFn: b.notifierFn,
		margin:     cfg.Report.Margin,
	}, nil
}

func buildStore(cfg config.DatabaseConfig) (store.Store, error) {
	st, err := gormstore.NewGormStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	logger.Infof("✓ 数据库已打开: %s", cfg.Path)
	return st, nil
}

// buildSource 组装 K 线来源：远端/CSV，可选再套一层 SQLite 缓存。
func buildSource(cfg *config.Config) (market.Source, []io.Closer, error) {
	var (
		src     market.Source
		closers []io.Closer
	)
	switch cfg.Market.Source {
	case "csv":
		src = csvfile.New(cfg.Market.CSVDir)
		logger.Infof("✓ K 线来源: CSV %s", cfg.Market.CSVDir)
	default:
		av := cfg.AlphaVantage
		client, err := alphavantage.New(alphavantage.Config{
			Endpoint:          av.Endpoint,
			APIKey:            av.APIKey,
			RequestsPerMinute: av.RequestsPerMinute,
			Timeout:           av.Timeout(),
			Retries:           av.Retries,
			RetryDelay:        av.RetryDelay(),
			BreakerThreshold:  av.BreakerThreshold,
			BreakerCooldown:   av.BreakerCooldownDuration(),
		})
		if err != nil {
			return nil, nil, err
		}
		src = client
		logger.Infof("✓ K 线来源: Alpha Vantage (%d req/min)", av.RequestsPerMinute)
	}
	if !cfg.Market.Cache {
		return src, closers, nil
	}
	cache, err := sqlite.NewCandleStore(cfg.Database.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化 K 线缓存失败: %w", err)
	}
	closers = append(closers, cache)
	return market.NewCachedSource(src, cache), closers, nil
}

// buildNotifier 日志输出总是开启，Discord/Telegram 按配置追加。
func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	out := notifier.Multi{notifier.Log{}}
	if cfg.Discord.Enabled && strings.TrimSpace(cfg.Discord.WebhookURL) != "" {
		out = append(out, notifier.NewDiscord(cfg.Discord.WebhookURL))
	}
	if cfg.Telegram.Enabled {
		out = append(out, notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	return out
}
