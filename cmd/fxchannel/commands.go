package main

import (
	"fmt"
	"os"
	"strings"

	"fxchannel/internal/app"
	"fxchannel/internal/config"
	"fxchannel/internal/logger"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "fxchannel",
		Short:         "Channel-breakout backtester and optimizer for daily FX bars",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Import seed trade rules (updates parameters only)",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	backtestCmd = &cobra.Command{
		Use:   "backtest [symbol]",
		Short: "Replay trade rules over historical daily candles",
		Long:  `Truncates daily logs, then replays every rule of the symbol (or of all symbols) day by day.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBacktest,
	}
	optimizeCmd = &cobra.Command{
		Use:   "optimize [symbol]",
		Short: "Grid-search rule parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOptimize,
	}
	optimizeClean bool

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write all rule parameters as YAML",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	exportClean bool
	exportOut   string

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Evaluate rules on the latest candles and send the daily report",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
	reportDaemon bool
	reportDryRun bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (env FXCHANNEL_CONFIG, default configs/config.yaml)")

	optimizeCmd.Flags().BoolVar(&optimizeClean, "clean", false, "keep only the best rule per term afterwards")
	exportCmd.Flags().BoolVar(&exportClean, "clean", false, "clean losing rules before export")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	reportCmd.Flags().BoolVar(&reportDaemon, "daemon", false, "run once per day until interrupted")
	reportCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "print the report without sending it")

	rootCmd.AddCommand(initCmd, backtestCmd, optimizeCmd, exportCmd, reportCmd)
}

func resolveConfigPath() string {
	if p := strings.TrimSpace(configPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("FXCHANNEL_CONFIG")); p != "" {
		return p
	}
	return defaultConfigPath
}

// withApp 加载配置、初始化日志并构建 App，执行完毕后关闭。
func withApp(cmd *cobra.Command, fn func(*app.App, *config.Config) error) error {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	logFile, out, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return fmt.Errorf("初始化日志文件失败: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetOutput(out)
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，来源=%s）", cfg.App.Env, cfg.Market.Source)

	a, err := app.NewApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warnf("关闭应用失败: %v", err)
		}
	}()
	return fn(a, cfg)
}

func symbolArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runInit(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app.App, _ *config.Config) error {
		n, err := a.Init(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rules\n", n)
		return nil
	})
}

func runBacktest(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App, _ *config.Config) error {
		results, err := a.Backtest(cmd.Context(), symbolArg(args))
		out := cmd.OutOrStdout()
		for _, r := range results {
			fmt.Fprintf(out, "%-8s rule=%-5d term=%d closed=%-4d long=%s short=%s\n",
				r.Symbol, r.RuleID, r.Term, r.Closed, r.Long.StringFixed(2), r.Short.StringFixed(2))
		}
		return err
	})
}

func runOptimize(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App, cfg *config.Config) error {
		clean := optimizeClean || cfg.Optimize.Clean
		sums, err := a.Optimize(cmd.Context(), symbolArg(args), clean)
		for _, s := range sums {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s run=%s generated=%d succeeded=%d failed=%d\n",
				s.Symbol, s.RunID, s.Generated, s.Succeeded, s.Failed)
		}
		return err
	})
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app.App, _ *config.Config) error {
		w := cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		n, err := a.Export(cmd.Context(), w, exportClean)
		if err != nil {
			return err
		}
		logger.Infof("[export] %d rules", n)
		return nil
	})
}

func runReport(cmd *cobra.Command, _ []string) error {
	if reportDaemon {
		return runDaemon(cmd)
	}
	return withApp(cmd, func(a *app.App, _ *config.Config) error {
		text, err := a.Report(cmd.Context(), !reportDryRun)
		if reportDryRun {
			fmt.Fprintln(cmd.OutOrStdout(), text)
		}
		return err
	})
}

func runDaemon(cmd *cobra.Command) error {
	return withApp(cmd, func(a *app.App, _ *config.Config) error {
		if s, err := a.Summary(cmd.Context()); err == nil {
			s.Print(cmd.OutOrStdout())
		} else {
			logger.Warnf("生成启动摘要失败: %v", err)
		}
		watcher, err := config.NewWatcher(resolveConfigPath())
		if err != nil {
			logger.Warnf("配置热更新不可用: %v", err)
			watcher = nil
		}
		return a.Daemon(cmd.Context(), watcher)
	})
}
