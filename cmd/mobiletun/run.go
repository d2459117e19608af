package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-mobiletun"
	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/internal/core/metrics"
)

// runFlags run 子命令参数
type runFlags struct {
	plugin        string
	metricsAddr   string
	statsInterval time.Duration
}

func newRunCmd(g *globalFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "启动运行时，直到收到 SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return runRuntime(cmd.Context(), cfg, rf, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&rf.plugin, "plugin", "", "传输插件路径 (.so)")
	f.StringVar(&rf.metricsAddr, "metrics-addr", "", "指标监听地址，例如 127.0.0.1:9464")
	f.DurationVar(&rf.statsInterval, "stats-interval", 0, "统计快照日志间隔，0 关闭")
	return cmd
}

// runRuntime 启动运行时并阻塞到退出信号或 ctx 取消
func runRuntime(ctx context.Context, cfg *config.Config, rf *runFlags, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []mobiletun.Option{mobiletun.WithConfig(cfg)}
	if rf.plugin != "" {
		opts = append(opts, mobiletun.WithPlugin(rf.plugin))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "📦 %s\n", mobiletun.VersionInfo())
	rt, err := mobiletun.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = rt.Close() }()

	if !rt.Transport().Available() {
		logger.Warn("传输不可用，所有连接与发送将失败", "plugin", rf.plugin)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 信号回调在分发协程中执行，只做非阻塞通知
	stop := make(chan int, 1)
	onSignal := func(signum int) {
		select {
		case stop <- signum:
		default:
		}
	}
	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM} {
		if err := rt.Signals().Register(int(sig), onSignal); err != nil {
			return fmt.Errorf("register signal %d: %w", sig, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if rf.metricsAddr != "" {
		srv := &http.Server{
			Addr:              rf.metricsAddr,
			Handler:           metricsMux(rt),
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gctx },
		}
		g.Go(func() error {
			logger.Info("指标端点已启动", "addr", rf.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if rf.statsInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(rf.statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					snap := rt.Snapshot()
					logger.Info("运行时统计",
						"background", snap.Background,
						"freeBlocks", snap.FreeBlocks,
						"pooled", snap.Pool.Pooled,
						"flushes", snap.Pool.Flushes,
						"processes", snap.ActiveProcesses)
				}
			}
		})
	}

	g.Go(func() error {
		select {
		case signum := <-stop:
			logger.Info("收到退出信号", "signal", signum)
			fmt.Fprintln(cmd.OutOrStdout(), "\n正在关闭运行时...")
		case <-gctx.Done():
		}
		cancel()
		return nil
	})

	fmt.Fprintln(cmd.OutOrStdout(), "运行时已启动，按 Ctrl+C 退出")
	if err := g.Wait(); err != nil {
		return err
	}
	return rt.Close()
}

// metricsMux 挂载 /metrics 与 /debug/snapshot
func metricsMux(rt *mobiletun.Runtime) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(rt.Registry()))
	mux.HandleFunc("/debug/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = printJSON(w, rt.Snapshot())
	})
	return mux
}
