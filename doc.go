// Package mobiletun 是移动端隧道运行时的性能与生命周期层
//
// mobiletun 不实现隧道协议本身。它位于宿主应用（Android VpnService /
// iOS Network Extension）与不透明传输之间，提供：
//   - 块分配器：固定块大小的空闲链表，带命中/未命中统计
//   - 容量规划：按 MTU 和内存预算收敛连接数与缓冲深度
//   - 传输连接池与批量发送：与原始入口签名一致的可替换层
//   - 后台进程生命周期：状态回调、优先级、优雅关闭、低内存检测
//   - 信号分发：固定容量的信号回调表与屏蔽集
//   - Prometheus 指标
//
// # 快速开始
//
//	rt, err := mobiletun.New(
//	    mobiletun.WithPreset(mobiletun.PresetAndroid),
//	    mobiletun.WithTransport(tr),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := rt.Start(ctx); err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	h := rt.Transport().Connect("relay.example", 443, token)
//	rt.Transport().Send(h, packet)
//
// # 不透明传输
//
// 底层传输通过 WithTransport 直接注入，或通过 WithPlugin 从 Go 插件
// 解析 Connect/Send/Receive/Close 四个符号。入口不完整时传输层失败关闭：
// Connect/Send/Receive 返回 -1，Runtime 仍可正常启动。
//
// # 宿主日志
//
// 宿主通过 WithLogSink 接收全部日志行（包括 fx 事件与内存看门狗）。
//
// # 架构
//
// 组件由 go.uber.org/fx 组装，每个 internal/core 包提供 Module()。
// Runtime 是唯一的门面，所有表都属于 Runtime 实例，没有包级全局表。
package mobiletun
