package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"aitrader/internal/agent/engine"
	"aitrader/internal/config"
	"aitrader/internal/logger"
	"aitrader/internal/prompt"
	"aitrader/internal/scheduler"
	"aitrader/internal/store/auditlog"
	livehttp "aitrader/internal/transport/http/live"
)

// App 负责应用级编排：初始化依赖后启动交易循环、状态接口与提示词热加载。
type App struct {
	cfg       *config.Config
	engine    *engine.LiveEngine
	scheduler *scheduler.IntervalScheduler
	prompts   *prompt.Store
	audit     *auditlog.Store
	liveHTTP  *livehttp.Server
	closers   []func() error
	Summary   *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动交易循环，直到 ctx 取消；当前轮次会先跑完。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, gctx := errgroup.WithContext(ctx)

	if a.liveHTTP != nil {
		group.Go(func() error {
			// 状态接口失败只记日志，交易循环照常运行。
			if err := a.liveHTTP.Start(gctx); err != nil {
				logger.Errorf("live http server error: %v", err)
			}
			return nil
		})
	}
	if a.cfg.Prompt.Watch {
		group.Go(func() error {
			if err := a.prompts.Watch(gctx); err != nil {
				logger.Warnf("提示词热加载不可用: %v", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.scheduler.Run(gctx, a.engine.Tick)
	})
	return group.Wait()
}

// RunOnce 执行单轮并返回报告，供 once 子命令使用。
func (a *App) RunOnce(ctx context.Context) (engine.Report, error) {
	if a == nil || a.engine == nil {
		return engine.Report{}, fmt.Errorf("app not initialized")
	}
	return a.engine.RunCycle(ctx)
}

func (a *App) Engine() *engine.LiveEngine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Close 按创建的逆序释放资源。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
