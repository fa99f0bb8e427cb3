package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"aitrader/internal/app"
	"aitrader/internal/config"
	"aitrader/internal/logger"
	"aitrader/internal/pkg/jsonutil"
)

type rootOptions struct {
	configPath string
	envFile    string
	interval   time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "aitrader",
		Short:         "LLM 驱动的加密货币交易循环",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, cleanup, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer cleanup()
			err = a.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "配置文件路径")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "启动前加载的 .env 文件（不存在则忽略）")
	root.Flags().DurationVar(&opts.interval, "interval", 0, "覆盖 scheduler.interval")

	root.AddCommand(newOnceCmd(opts))
	return root
}

func newOnceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "只执行一轮决策并打印报告",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer cleanup()
			rep, err := a.RunOnce(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), jsonutil.Pretty(jsonutil.Marshal(rep)))
			return err
		},
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("AITRADER_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// bootstrap 加载 .env 与配置、初始化日志输出并构建应用。
func bootstrap(opts *rootOptions) (*app.App, func(), error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("加载 %s 失败: %w", opts.envFile, err)
		}
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置失败: %w", err)
	}
	if opts.interval > 0 {
		cfg.Scheduler.Interval = opts.interval
	}

	var files []*os.File
	cleanup := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	logger.SetFormat(cfg.App.LogFormat)
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	if logFile != nil {
		files = append(files, logFile)
	} else {
		logger.SetOutput(os.Stdout)
	}
	logger.SetLLMWriter(nil)
	if cfg.App.LLMDump {
		f, err := setupLLMLogOutput(cfg.App.LLMLog)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("初始化 LLM 日志失败: %w", err)
		}
		if f != nil {
			files = append(files, f)
		}
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableLLMPayloadDump(cfg.App.LLMDump)
	logger.Infof("✓ 配置加载成功（环境=%s，交易对=%s）", cfg.App.Env, cfg.Trading.Symbol)

	a, err := app.NewApp(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("初始化应用失败: %w", err)
	}
	return a, func() {
		if err := a.Close(); err != nil {
			logger.Warnf("关闭应用资源失败: %v", err)
		}
		cleanup()
	}, nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupLLMLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetLLMWriter(f)
	return f, nil
}
