// Package main 提供 mobiletun 命令行入口
//
// 子命令覆盖运行时各组件：容量规划、调优参数、端口选择、内存诊断、
// 受管进程关闭，以及带指标端点的完整运行。
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/lib/log"
)

var logger = log.Logger("mobiletun/cmd")

// globalFlags 所有子命令共享的参数
type globalFlags struct {
	configFile string
	preset     string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd 构建根命令
func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "mobiletun",
		Short: "mobiletun - 移动端 VPN 运行时工具",
		Long: `mobiletun 提供移动端 VPN 隧道运行时的资源管理组件：
块分配器、容量规划、传输连接池、后台进程生命周期与信号分发。`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "配置文件路径 (JSON/YAML)")
	pf.StringVar(&g.preset, "preset", "", "预设配置 (mobile/android/ios/desktop/lowmem)")
	pf.StringVar(&g.logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")

	root.AddCommand(
		newPlanCmd(g),
		newTuningCmd(g),
		newPortCmd(g),
		newMeminfoCmd(g),
		newShutdownCmd(g),
		newRunCmd(g),
		newVersionCmd(),
	)
	return root
}

// load 按 环境变量 > 配置文件 > 默认值 加载配置，再应用预设与日志级别
func (g *globalFlags) load() (*config.Config, error) {
	v, defaults, err := newViper()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(v, defaults, g.configFile, g.preset)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		if _, ok := log.ParseLevel(g.logLevel); !ok {
			return nil, fmt.Errorf("unknown log level %q", g.logLevel)
		}
		cfg.Log.Level = g.logLevel
	}
	lvl, _ := log.ParseLevel(cfg.Log.Level)
	log.Setup(cfg.Log.Format, lvl)
	return cfg, nil
}

// printJSON 以缩进 JSON 输出
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
