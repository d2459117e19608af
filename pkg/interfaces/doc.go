// Package interfaces 定义 mobiletun 的公共接口
//
// 一个接口文件对应 internal/core 下的一个实现目录：
//   - transport.go  - 不透明传输入口（internal/core/transportpool）
//   - allocator.go  - 块分配器（internal/core/allocator）
//   - lifecycle.go  - 后台进程生命周期管理（internal/core/lifecycle）
//   - signal.go     - 信号分发（internal/core/sigdispatch）
//
// 容量规划是纯函数，没有对应接口，直接使用 internal/core/capacity。
package interfaces
