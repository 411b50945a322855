package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// StartupSummary 是启动时打印的配置摘要。
type StartupSummary struct {
	Env       string
	Database  string
	Source    string
	Cache     string
	Notifiers []string
	Rules     map[string]int
}

func (a *App) Summary(ctx context.Context) (StartupSummary, error) {
	cfg := a.cfg
	s := StartupSummary{
		Env:       cfg.App.Env,
		Database:  cfg.Database.Path,
		Source:    cfg.Market.Source,
		Cache:     "-",
		Notifiers: []string{"log"},
		Rules:     make(map[string]int),
	}
	if cfg.Market.Source == "csv" {
		s.Source = "csv (" + cfg.Market.CSVDir + ")"
	}
	if cfg.Market.Cache {
		s.Cache = cfg.Database.CacheDir
	}
	if cfg.Notify.Discord.Enabled {
		s.Notifiers = append(s.Notifiers, "discord")
	}
	if cfg.Notify.Telegram.Enabled {
		s.Notifiers = append(s.Notifiers, "telegram")
	}
	symbols, err := a.store.Rules().Symbols(ctx)
	if err != nil {
		return s, err
	}
	for _, sym := range symbols {
		list, err := a.store.Rules().ListBySymbol(ctx, sym)
		if err != nil {
			return s, err
		}
		s.Rules[sym] = len(list)
	}
	return s, nil
}

func (s StartupSummary) Print(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "  环境:     %s\n", s.Env)
	fmt.Fprintf(w, "  数据库:   %s\n", s.Database)
	fmt.Fprintf(w, "  K线来源:  %s\n", s.Source)
	fmt.Fprintf(w, "  K线缓存:  %s\n", s.Cache)
	fmt.Fprintf(w, "  推送通道: %s\n", formatList(s.Notifiers))
	fmt.Fprintln(w, "[规则 (RULES)]")
	if len(s.Rules) == 0 {
		fmt.Fprintln(w, "  (无规则，先执行 init)")
	} else {
		symbols := make([]string, 0, len(s.Rules))
		for sym := range s.Rules {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			fmt.Fprintf(w, "  > %-8s %d\n", sym, s.Rules[sym])
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
