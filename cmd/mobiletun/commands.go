package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/docker/go-units"
	"github.com/pbnjay/memory"
	"github.com/spf13/cobra"

	"github.com/dep2p/go-mobiletun"
	"github.com/dep2p/go-mobiletun/internal/core/capacity"
	"github.com/dep2p/go-mobiletun/internal/core/lifecycle"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

// 输出格式
const (
	outputText = "text"
	outputJSON = "json"
)

// ═══════════════════════════════════════════════════════════════════════════
// plan / tuning
// ═══════════════════════════════════════════════════════════════════════════

func newPlanCmd(g *globalFlags) *cobra.Command {
	var (
		mtu, maxConns, bufPackets int
		budget, output            string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "计算稳定后的容量规划",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}

			req := capacity.RequestFromConfig(cfg.Capacity)
			f := cmd.Flags()
			if f.Changed("mtu") {
				req.MTU = mtu
			}
			if f.Changed("max-connections") {
				req.MaxConnections = maxConns
			}
			if f.Changed("buffer-packets") {
				req.BufferPackets = bufPackets
			}
			if f.Changed("budget") {
				n, err := units.RAMInBytes(budget)
				if err != nil {
					return fmt.Errorf("invalid budget %q: %w", budget, err)
				}
				req.MemoryBudgetBytes = n
			}

			plan := capacity.Stabilize(req)
			if output == outputJSON {
				return printJSON(cmd.OutOrStdout(), plan)
			}
			writePlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&mtu, "mtu", 0, "隧道 MTU")
	f.IntVar(&maxConns, "max-connections", 0, "请求的最大连接数")
	f.IntVar(&bufPackets, "buffer-packets", 0, "请求的每连接缓冲包数")
	f.StringVar(&budget, "budget", "", "内存预算，例如 32MiB")
	f.StringVarP(&output, "output", "o", outputText, "输出格式 (text/json)")
	return cmd
}

func writePlan(w io.Writer, plan types.CapacityPlan) {
	fmt.Fprintf(w, "MTU:              %d\n", plan.MTU)
	fmt.Fprintf(w, "连接数:           %d (请求 %d)\n", plan.EffectiveMaxConnections, plan.RequestedMaxConnections)
	fmt.Fprintf(w, "缓冲包数:         %d (请求 %d)\n", plan.EffectiveBufferPackets, plan.RequestedBufferPackets)
	fmt.Fprintf(w, "预估缓冲:         %s\n", units.BytesSize(float64(plan.EstimatedBufferBytes)))
	fmt.Fprintf(w, "生效预算:         %s\n", units.BytesSize(float64(plan.EffectiveBudgetBytes)))
	fmt.Fprintf(w, "已调整:           %t\n", plan.Changed)
}

// tuningResult tuning 子命令输出
type tuningResult struct {
	Tuning types.Tuning       `json:"tuning"`
	Plan   types.CapacityPlan `json:"plan"`
}

func newTuningCmd(g *globalFlags) *cobra.Command {
	var score int

	cmd := &cobra.Command{
		Use:   "tuning",
		Short: "按网络探测评分输出调优档案",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			t := capacity.TuningForScore(score)
			base := capacity.RequestFromConfig(cfg.Capacity)
			plan := capacity.Stabilize(capacity.RequestForTuning(t, base.MTU, base.MemoryBudgetBytes))
			return printJSON(cmd.OutOrStdout(), tuningResult{Tuning: t, Plan: plan})
		},
	}

	cmd.Flags().IntVar(&score, "score", -1, "网络探测评分 (0-100，负数表示未探测)")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════
// port
// ═══════════════════════════════════════════════════════════════════════════

func newPortCmd(_ *globalFlags) *cobra.Command {
	var (
		rangeText string
		preferred int
		seed      int
	)

	cmd := &cobra.Command{
		Use:   "port",
		Short: "在端口范围内选择本地端口",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = os.Getpid()
			}
			port := capacity.SelectPort(rangeText, preferred, seed)
			fmt.Fprintln(cmd.OutOrStdout(), port)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&rangeText, "range", "20000-50000", "端口范围，例如 20000-50000")
	f.IntVar(&preferred, "preferred", 0, "首选端口")
	f.IntVar(&seed, "seed", 0, "旋转种子（默认进程号）")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════
// meminfo / shutdown
// ═══════════════════════════════════════════════════════════════════════════

// memInfo meminfo 子命令输出
type memInfo struct {
	TotalBytes      uint64            `json:"total_bytes"`
	AvailableMB     uint64            `json:"available_mb"`
	ThresholdMB     uint64            `json:"threshold_mb"`
	LowMemory       bool              `json:"low_memory"`
	Process         types.MemoryStats `json:"process"`
	AutoBudgetBytes int64             `json:"auto_budget_bytes,omitempty"`
}

func newMeminfoCmd(g *globalFlags) *cobra.Command {
	var threshold uint64

	cmd := &cobra.Command{
		Use:   "meminfo",
		Short: "显示系统与进程内存，并检查低内存阈值",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			m, err := lifecycle.New(cfg.Lifecycle)
			if err != nil {
				return err
			}
			defer m.Close()

			if threshold == 0 {
				threshold = cfg.Lifecycle.LowMemoryThresholdMB
			}
			low, availMB, err := m.IsLowMemory(threshold)
			if err != nil {
				return err
			}
			proc, err := m.MemoryStats()
			if err != nil {
				return err
			}

			info := memInfo{
				TotalBytes:  memory.TotalMemory(),
				AvailableMB: availMB,
				ThresholdMB: threshold,
				LowMemory:   low,
				Process:     proc,
			}
			if cfg.Capacity.AutoBudgetFraction > 0 {
				info.AutoBudgetBytes = capacity.AutoBudget(cfg.Capacity.AutoBudgetFraction)
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}

	cmd.Flags().Uint64Var(&threshold, "threshold-mb", 0, "低内存阈值（MB），0 使用配置值")
	return cmd
}

func newShutdownCmd(g *globalFlags) *cobra.Command {
	var (
		pid     int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "优雅关闭指定进程并输出关闭记录",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pid <= 0 {
				return errors.New("--pid must be positive")
			}
			cfg, err := g.load()
			if err != nil {
				return err
			}
			m, err := lifecycle.New(cfg.Lifecycle)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.RegisterProcess(pid, types.PriorityBackground); err != nil {
				return err
			}
			if timeout <= 0 {
				timeout = cfg.Lifecycle.CloseTimeout.Duration()
			}

			logger.Info("关闭进程", "pid", pid, "timeout", timeout)
			shutdownErr := m.GracefulShutdown(pid, timeout)
			// 失败时不让 Close 再次关闭同一进程
			_ = m.UnregisterProcess(pid)
			if rec, ok := m.LastShutdown(pid); ok {
				if err := printJSON(cmd.OutOrStdout(), rec); err != nil {
					return err
				}
			}
			return shutdownErr
		},
	}

	f := cmd.Flags()
	f.IntVar(&pid, "pid", 0, "目标进程号")
	f.DurationVar(&timeout, "timeout", 0, "优雅关闭超时，0 使用配置值")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════
// version
// ═══════════════════════════════════════════════════════════════════════════

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, mobiletun.VersionInfo())
			fmt.Fprintf(w, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
