package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppEnvFile        = ".env"
	defaultDatabasePath      = "data/fxchannel.db"
	defaultCacheDir          = "data/candles"
	defaultMarketSource      = "alphavantage"
	defaultAVEndpoint        = "https://www.alphavantage.co/query"
	defaultAVRequestsPerMin  = 100
	defaultAVTimeoutSeconds  = 10
	defaultAVRetries         = 2
	defaultAVRetryDelayMilli = 3000
	defaultAVBreakerFailures = 5
	defaultAVBreakerCooldown = 60
	defaultReplayCandles     = 500
	defaultOptimizeWorkers   = 4
	defaultReportInterval    = "1d"
	defaultReportMargin      = 2
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Database.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.AlphaVantage.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Optimize.applyDefaults(keys)
	c.Report.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.env_file", &a.EnvFile, defaultAppEnvFile),
	)
}

func (d *DatabaseConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("database.path", &d.Path, defaultDatabasePath),
		stringFieldDefault("database.cache_dir", &d.CacheDir, defaultCacheDir),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.source", &m.Source, defaultMarketSource),
		boolFieldDefault("market.cache", &m.Cache, true),
	)
	m.Source = strings.ToLower(strings.TrimSpace(m.Source))
}

func (a *AlphaVantageConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("alphavantage.endpoint", &a.Endpoint, defaultAVEndpoint),
		intFieldDefault("alphavantage.requests_per_minute", &a.RequestsPerMinute, defaultAVRequestsPerMin),
		intFieldDefault("alphavantage.timeout_seconds", &a.TimeoutSeconds, defaultAVTimeoutSeconds),
		intFieldDefault("alphavantage.breaker_threshold", &a.BreakerThreshold, defaultAVBreakerFailures),
		intFieldDefault("alphavantage.breaker_cooldown_seconds", &a.BreakerCooldown, defaultAVBreakerCooldown),
		fieldDefault{
			key:   "alphavantage.retries",
			apply: func() { a.Retries = defaultAVRetries },
		},
		fieldDefault{
			key:   "alphavantage.retry_delay_ms",
			apply: func() { a.RetryDelayMillis = defaultAVRetryDelayMilli },
		},
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("backtest.replay_candles", &b.ReplayCandles, defaultReplayCandles),
		boolFieldDefault("backtest.daily_log", &b.DailyLog, true),
	)
}

func (o *OptimizeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("optimize.workers", &o.Workers, defaultOptimizeWorkers),
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("report.interval", &r.Interval, defaultReportInterval),
		intFieldDefault("report.margin", &r.Margin, defaultReportMargin),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
